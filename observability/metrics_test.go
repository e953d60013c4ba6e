package observability

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"piazza/models"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&models.ValidationError{}, "validation_error"},
		{fmt.Errorf("get: %w", models.ErrNotFound), "not_found"},
		{models.ErrPostExpired, "post_expired"},
		{models.ErrSelfInteraction, "self_interaction"},
		{models.ErrInvalidTopic, "invalid_topic"},
		{models.ErrNoPostsInTopic, "no_posts"},
		{models.ErrConflict, "conflict"},
		{models.ErrUnauthorized, "unauthorized"},
		{&models.StoreFailure{Op: "get", Err: errors.New("io")}, "store_failure"},
		{errors.New("other"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveOperation("like", nil)
	m.ObserveOperation("like", nil)
	m.ObserveOperation("like", models.ErrSelfInteraction)
	m.PostExpired("sweeper")
	m.MutationRetried()
	m.ObserveHTTP("GET", "/api/posts/:id", 200, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("like", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("like", "self_interaction")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PostsExpiredTotal.WithLabelValues("sweeper")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MutationRetriesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/posts/:id", "200")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveOperation("like", nil)
		m.PostExpired("read")
		m.MutationRetried()
		m.ObserveHTTP("GET", "/", 200, time.Millisecond)
	})
}
