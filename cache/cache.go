// Package cache stores the most-active post of each topic. Entries are
// invalidated by the engine on every reaction write, so a hit is never staler
// than the last like or dislike.
//
// Every topic carries a generation that Invalidate bumps. Set only writes when
// the caller's generation, read before it ranked the posts, is still current,
// so a ranking computed across a concurrent reaction is dropped.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"piazza/models"
)

type Entry struct {
	PostID string `json:"postId"`
	Score  int    `json:"score"`
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func key(topic models.Topic) string {
	return fmt.Sprintf("most_active:%s", topic)
}

func genKey(topic models.Topic) string {
	return fmt.Sprintf("most_active_gen:%s", topic)
}

var errStaleGeneration = errors.New("cache generation moved")

// generation maps a missing counter to zero.
func generation(v uint64, err error) (uint64, error) {
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *RedisCache) Get(ctx context.Context, topic models.Topic) (Entry, bool, error) {
	raw, err := c.client.Get(ctx, key(topic)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// A corrupt entry is treated as a miss and overwritten on next Set.
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (c *RedisCache) Generation(ctx context.Context, topic models.Topic) (uint64, error) {
	return generation(c.client.Get(ctx, genKey(topic)).Uint64())
}

// Set stores e when gen is still the topic's generation. A stale gen, or an
// Invalidate racing the write, leaves the cache untouched.
func (c *RedisCache) Set(ctx context.Context, topic models.Topic, gen uint64, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := generation(tx.Get(ctx, genKey(topic)).Uint64())
		if err != nil {
			return err
		}
		if cur != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(topic), data, c.ttl)
			return nil
		})
		return err
	}, genKey(topic))

	if errors.Is(err, errStaleGeneration) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *RedisCache) Invalidate(ctx context.Context, topic models.Topic) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(topic))
		pipe.Del(ctx, key(topic))
		return nil
	})
	return err
}

// MemoryCache is the single-process equivalent of RedisCache.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[models.Topic]memoryEntry
	gens    map[models.Topic]uint64
}

type memoryEntry struct {
	Entry
	expires time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[models.Topic]memoryEntry),
		gens:    make(map[models.Topic]uint64),
	}
}

func (c *MemoryCache) Get(_ context.Context, topic models.Topic) (Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[topic]
	if !ok {
		return Entry{}, false, nil
	}
	if c.ttl > 0 && !c.now().Before(e.expires) {
		delete(c.entries, topic)
		return Entry{}, false, nil
	}
	return e.Entry, true, nil
}

func (c *MemoryCache) Generation(_ context.Context, topic models.Topic) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[topic], nil
}

func (c *MemoryCache) Set(_ context.Context, topic models.Topic, gen uint64, e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[topic] != gen {
		return nil
	}
	c.entries[topic] = memoryEntry{Entry: e, expires: c.now().Add(c.ttl)}
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, topic models.Topic) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[topic]++
	delete(c.entries, topic)
	return nil
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, models.Topic) (Entry, bool, error)   { return Entry{}, false, nil }
func (Nop) Generation(context.Context, models.Topic) (uint64, error) { return 0, nil }
func (Nop) Set(context.Context, models.Topic, uint64, Entry) error   { return nil }
func (Nop) Invalidate(context.Context, models.Topic) error           { return nil }
