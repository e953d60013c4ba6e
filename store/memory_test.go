package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piazza/models"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newPost(topic models.Topic, created time.Time, ttl time.Duration) *models.Post {
	return &models.Post{
		Title:      "title",
		Content:    "content",
		Topic:      topic,
		AuthorID:   "author",
		AuthorName: "Author",
		CreatedAt:  created,
		ExpiresAt:  created.Add(ttl),
		Status:     models.StatusLive,
		LikedBy:    []string{},
		DislikedBy: []string{},
		Comments:   []models.Comment{},
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id, err := s.Create(ctx, newPost(models.TopicTech, t0, time.Minute))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, int64(1), got.Version)

	_, err = s.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id, _ := s.Create(ctx, newPost(models.TopicTech, t0, time.Minute))

	got, _ := s.GetByID(ctx, id)
	got.LikedBy = append(got.LikedBy, "intruder")

	again, _ := s.GetByID(ctx, id)
	assert.Empty(t, again.LikedBy)
}

func TestMemoryStore_ListByTopicFiltersOnTimestamp(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	oldID, _ := s.Create(ctx, newPost(models.TopicTech, t0, time.Second))
	midID, _ := s.Create(ctx, newPost(models.TopicTech, t0.Add(time.Second), time.Hour))
	newID, _ := s.Create(ctx, newPost(models.TopicTech, t0.Add(2*time.Second), time.Hour))
	_, _ = s.Create(ctx, newPost(models.TopicHealth, t0, time.Hour))

	now := t0.Add(10 * time.Second)

	all, err := s.ListByTopic(ctx, models.TopicTech, FilterAll, now)
	require.NoError(t, err)
	assert.Equal(t, []string{newID, midID, oldID}, ids(all))

	// The old post still carries a Live status but its timestamp has passed.
	live, _ := s.ListByTopic(ctx, models.TopicTech, FilterLive, now)
	assert.Equal(t, []string{newID, midID}, ids(live))

	expired, _ := s.ListByTopic(ctx, models.TopicTech, FilterExpired, now)
	assert.Equal(t, []string{oldID}, ids(expired))
}

func TestMemoryStore_ApplyMutationErrorLeavesPostUntouched(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id, _ := s.Create(ctx, newPost(models.TopicTech, t0, time.Minute))
	boom := errors.New("boom")

	_, err := s.ApplyMutation(ctx, id, func(p *models.Post) error {
		p.LikedBy = append(p.LikedBy, "u1")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := s.GetByID(ctx, id)
	assert.Empty(t, got.LikedBy)
	assert.Equal(t, int64(1), got.Version)

	_, err = s.ApplyMutation(ctx, "missing", func(*models.Post) error { return nil })
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryStore_ConcurrentMutationsAreNotLost(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id, _ := s.Create(ctx, newPost(models.TopicTech, t0, time.Hour))

	const users = 50
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reaction := models.ReactionLike
			if i%2 == 1 {
				reaction = models.ReactionDislike
			}
			_, err := s.ApplyMutation(ctx, id, func(p *models.Post) error {
				p.Toggle(fmt.Sprintf("user-%d", i), reaction)
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, _ := s.GetByID(ctx, id)
	assert.Equal(t, users/2, got.Likes())
	assert.Equal(t, users/2, got.Dislikes())
	assert.Equal(t, int64(users+1), got.Version)
}

func TestMemoryStore_ListStaleLive(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	staleID, _ := s.Create(ctx, newPost(models.TopicTech, t0, time.Second))
	_, _ = s.Create(ctx, newPost(models.TopicTech, t0, time.Hour))
	flipped := newPost(models.TopicTech, t0, time.Second)
	flipped.Status = models.StatusExpired
	_, _ = s.Create(ctx, flipped)

	got, err := s.ListStaleLive(ctx, t0.Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{staleID}, got)
}

func TestMemoryStore_Users(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id, err := s.CreateUser(ctx, &models.User{Email: "a@example.com", Username: "alice"})
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, &models.User{Email: "A@example.com", Username: "other"})
	assert.ErrorIs(t, err, models.ErrUserExists)
	_, err = s.CreateUser(ctx, &models.User{Email: "b@example.com", Username: "ALICE"})
	assert.ErrorIs(t, err, models.ErrUserExists)

	byEmail, err := s.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, byEmail.ID)

	byID, err := s.GetUserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func ids(posts []*models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}
