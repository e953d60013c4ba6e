package engagement

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const defaultSweepBatch = 100

// Sweeper periodically persists the Expired status of posts past their
// expiry. Reads never depend on it; it keeps stored status and the
// post.expired event stream close to real time.
type Sweeper struct {
	engine   *Engine
	interval time.Duration
	batch    int

	mu      sync.Mutex
	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewSweeper(engine *Engine, interval time.Duration) *Sweeper {
	return &Sweeper{
		engine:   engine,
		interval: interval,
		batch:    defaultSweepBatch,
	}
}

// Start launches the sweep loop. It runs one sweep immediately.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("sweep interval must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("sweeper is already running")
	}
	s.running = true
	s.done = make(chan struct{})

	slog.Info("🧹 Expiry sweeper starting", "interval", s.interval.String(), "batch", s.batch)

	s.wg.Add(1)
	go s.loop(ctx, s.done)
	return nil
}

// Stop signals the loop and waits for the current sweep to finish. Safe to
// call more than once.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.done)
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	slog.Info("Expiry sweeper stopped")
}

// RunOnce flips one batch of stale posts and returns how many changed.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	ids, err := s.engine.posts.ListStaleLive(ctx, s.engine.now(), s.batch)
	if err != nil {
		return 0, storeError("list stale", err)
	}

	flipped := 0
	for _, id := range ids {
		ok, err := s.engine.expire(ctx, id, "sweeper")
		if err != nil {
			s.engine.logger.Warn("Sweeper failed to expire post", "post_id", id, "error", err)
			continue
		}
		if ok {
			flipped++
		}
	}
	return flipped, nil
}

func (s *Sweeper) loop(ctx context.Context, done <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.RunOnce(ctx)
	if err != nil {
		slog.Error("Expiry sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.Debug("Expiry sweep done", "expired", n)
	}
}
