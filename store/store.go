// Package store defines the persistence contracts the engagement engine and
// the auth handlers depend on, plus an in-memory implementation.
package store

import (
	"context"
	"time"

	"piazza/models"
)

// StatusFilter selects posts by lifecycle state. It is always evaluated from
// ExpiresAt against the supplied time, never from the cached status.
type StatusFilter int

const (
	FilterAll StatusFilter = iota
	FilterLive
	FilterExpired
)

// Matches reports whether p passes the filter at now.
func (f StatusFilter) Matches(p *models.Post, now time.Time) bool {
	switch f {
	case FilterLive:
		return !p.IsExpired(now)
	case FilterExpired:
		return p.IsExpired(now)
	}
	return true
}

// MutationFunc transforms a private copy of a post. Returning an error
// aborts the mutation; the error is handed back to the caller unchanged.
type MutationFunc func(p *models.Post) error

type PostStore interface {
	Create(ctx context.Context, post *models.Post) (string, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// ListByTopic returns matching posts ordered by CreatedAt, newest first.
	ListByTopic(ctx context.Context, topic models.Topic, filter StatusFilter, now time.Time) ([]*models.Post, error)
	// ApplyMutation runs fn on the current post and persists the result
	// atomically. It returns models.ErrNotFound or models.ErrConflict when
	// the post is missing or was modified concurrently.
	ApplyMutation(ctx context.Context, id string, fn MutationFunc) (*models.Post, error)
	// ListStaleLive returns ids of posts still cached as Live but expired at now.
	ListStaleLive(ctx context.Context, now time.Time, limit int) ([]string, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) (string, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
