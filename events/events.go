// Package events publishes post lifecycle events for other services. Delivery
// is best effort: the engine logs a failed publish and carries on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"piazza/models"
)

type Type string

const (
	PostCreated   Type = "post.created"
	PostReacted   Type = "post.reacted"
	PostCommented Type = "post.commented"
	PostExpired   Type = "post.expired"
)

type Event struct {
	Type       Type            `json:"type"`
	PostID     string          `json:"postId"`
	Topic      models.Topic    `json:"topic"`
	ActorID    string          `json:"actorId,omitempty"`
	Reaction   models.Reaction `json:"reaction,omitempty"`
	Likes      int             `json:"likes"`
	Dislikes   int             `json:"dislikes"`
	Comments   int             `json:"comments"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// FromPost fills the counters of an event from the post state.
func FromPost(t Type, p *models.Post, actorID string, at time.Time) Event {
	return Event{
		Type:       t,
		PostID:     p.ID,
		Topic:      p.Topic,
		ActorID:    actorID,
		Likes:      p.Likes(),
		Dislikes:   p.Dislikes(),
		Comments:   len(p.Comments),
		OccurredAt: at,
	}
}

type NatsPublisher struct {
	nc *nats.Conn
}

func NewNatsPublisher(nc *nats.Conn) *NatsPublisher {
	return &NatsPublisher{nc: nc}
}

func (p *NatsPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &nats.Msg{
		Subject: string(e.Type),
		Data:    data,
		Header:  nats.Header{},
	}
	// Carry the request trace to subscribers.
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	slog.Debug("Publishing event", "subject", msg.Subject, "post_id", e.PostID)
	return p.nc.PublishMsg(msg)
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory. Used by tests and local runs.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event{}, r.events...)
}
