package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"piazza/models"
)

// MemoryStore keeps posts and users in process memory. A single RWMutex
// guards both maps; ApplyMutation holds the write lock across the whole
// read-apply-write so per-post mutations never interleave.
type MemoryStore struct {
	mu    sync.RWMutex
	posts map[string]*models.Post
	users map[string]*models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts: make(map[string]*models.Post),
		users: make(map[string]*models.User),
	}
}

var (
	_ PostStore = (*MemoryStore)(nil)
	_ UserStore = (*MemoryStore)(nil)
)

func (s *MemoryStore) Create(_ context.Context, post *models.Post) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := post.Clone()
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	cp.Version = 1
	s.posts[cp.ID] = cp
	return cp.ID, nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) ListByTopic(_ context.Context, topic models.Topic, filter StatusFilter, now time.Time) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Post, 0)
	for _, p := range s.posts {
		if p.Topic == topic && filter.Matches(p, now) {
			out = append(out, p.Clone())
		}
	}
	SortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) ApplyMutation(_ context.Context, id string, fn MutationFunc) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.posts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.Version = current.Version + 1
	s.posts[id] = next
	return next.Clone(), nil
}

func (s *MemoryStore) ListStaleLive(_ context.Context, now time.Time, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, p := range s.posts {
		if p.Status == models.StatusLive && p.IsExpired(now) {
			ids = append(ids, id)
			if limit > 0 && len(ids) == limit {
				break
			}
		}
	}
	return ids, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) || strings.EqualFold(u.Username, user.Username) {
			return "", models.ErrUserExists
		}
	}
	cp := *user
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	s.users[cp.ID] = &cp
	return cp.ID, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// SortNewestFirst orders posts by CreatedAt descending, id ascending on ties.
func SortNewestFirst(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID < posts[j].ID
	})
}
