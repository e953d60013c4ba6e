// Package engagement owns the post lifecycle: creation, expiry, reactions,
// comments and the topic queries built on them. Every check that guards a
// write runs inside the store mutation, so it is atomic with the write.
package engagement

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"piazza/cache"
	"piazza/events"
	"piazza/models"
	"piazza/observability"
	"piazza/store"
	"piazza/validation"
)

const (
	DefaultExpiration  = 5 * time.Minute
	defaultMaxAttempts = 3
)

// ActivityCache holds the most-active post per topic. Set must drop the
// entry when gen is no longer the value Generation reported, since an
// Invalidate in between means the ranking may be out of date.
type ActivityCache interface {
	Get(ctx context.Context, topic models.Topic) (cache.Entry, bool, error)
	Generation(ctx context.Context, topic models.Topic) (uint64, error)
	Set(ctx context.Context, topic models.Topic, gen uint64, e cache.Entry) error
	Invalidate(ctx context.Context, topic models.Topic) error
}

type EventPublisher interface {
	Publish(ctx context.Context, e events.Event) error
}

type Engine struct {
	posts      store.PostStore
	validator  *validation.Validator
	cache      ActivityCache
	publisher  EventPublisher
	metrics    *observability.Metrics
	logger     *slog.Logger
	now        func() time.Time
	expiration time.Duration
	attempts   int
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithCache(c ActivityCache) Option {
	return func(e *Engine) { e.cache = c }
}

func WithPublisher(p EventPublisher) Option {
	return func(e *Engine) { e.publisher = p }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTaxonomy replaces the default topic set.
func WithTaxonomy(t models.Taxonomy) Option {
	return func(e *Engine) { e.validator = validation.New(t) }
}

// WithDefaultExpiration sets the window used when CreatePost gets none.
// Non-positive values are ignored.
func WithDefaultExpiration(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.expiration = d
		}
	}
}

// WithMaxAttempts bounds how often a mutation is re-run after a conflict.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.attempts = n
		}
	}
}

func NewEngine(posts store.PostStore, opts ...Option) *Engine {
	e := &Engine{
		posts:      posts,
		validator:  validation.New(models.NewTaxonomy()),
		cache:      cache.Nop{},
		publisher:  events.Nop{},
		logger:     slog.Default(),
		now:        time.Now,
		expiration: DefaultExpiration,
		attempts:   defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validator exposes the rules the engine enforces, for request decoding.
func (e *Engine) Validator() *validation.Validator {
	return e.validator
}

type ReactionResult struct {
	PostID   string          `json:"postId"`
	Likes    int             `json:"likes"`
	Dislikes int             `json:"dislikes"`
	Reaction models.Reaction `json:"reaction"`
}

type CommentResult struct {
	Comment models.Comment `json:"comment"`
	Count   int            `json:"commentCount"`
}

type MostActive struct {
	Post  *models.Post `json:"post"`
	Score int          `json:"score"`
}

// CreatePost validates in and stores a new Live post authored by author.
func (e *Engine) CreatePost(ctx context.Context, author models.Identity, in validation.PostInput) (post *models.Post, err error) {
	defer func() { e.metrics.ObserveOperation("create_post", err) }()

	if author.UserID == "" {
		return nil, models.ErrUnauthorized
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if err := e.validator.Error(in); err != nil {
		return nil, err
	}

	window := e.expiration
	if in.Expiration != nil {
		window = *in.Expiration
	}
	now := e.now()
	post = &models.Post{
		Title:      in.Title,
		Content:    in.Content,
		Topic:      in.Topic,
		AuthorID:   author.UserID,
		AuthorName: author.DisplayName,
		CreatedAt:  now,
		ExpiresAt:  now.Add(window),
		Status:     models.StatusLive,
		LikedBy:    []string{},
		DislikedBy: []string{},
		Comments:   []models.Comment{},
	}

	id, err := e.posts.Create(ctx, post)
	if err != nil {
		return nil, storeError("create post", err)
	}
	post.ID = id

	e.invalidate(ctx, post.Topic)
	e.publish(ctx, events.FromPost(events.PostCreated, post, author.UserID, now))
	e.logger.Info("Post created", "post_id", id, "topic", post.Topic, "expires_at", post.ExpiresAt)
	return post, nil
}

// GetPost returns a post with its status derived from the clock.
func (e *Engine) GetPost(ctx context.Context, id string) (post *models.Post, err error) {
	defer func() { e.metrics.ObserveOperation("get_post", err) }()

	post, err = e.posts.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("get post", err)
	}
	e.refreshStatus(ctx, []*models.Post{post}, e.now())
	return post, nil
}

// ListPostsByTopic returns posts of topic matching filter, newest first.
func (e *Engine) ListPostsByTopic(ctx context.Context, topic models.Topic, filter store.StatusFilter) (posts []*models.Post, err error) {
	defer func() { e.metrics.ObserveOperation("list_posts", err) }()

	if err := e.validator.Topic(topic); err != nil {
		return nil, err
	}
	now := e.now()
	posts, err = e.posts.ListByTopic(ctx, topic, filter, now)
	if err != nil {
		return nil, storeError("list posts", err)
	}
	e.refreshStatus(ctx, posts, now)
	return posts, nil
}

func (e *Engine) LikePost(ctx context.Context, postID string, user models.Identity) (*ReactionResult, error) {
	return e.react(ctx, "like", postID, user, models.ReactionLike)
}

func (e *Engine) DislikePost(ctx context.Context, postID string, user models.Identity) (*ReactionResult, error) {
	return e.react(ctx, "dislike", postID, user, models.ReactionDislike)
}

func (e *Engine) react(ctx context.Context, op, postID string, user models.Identity, r models.Reaction) (res *ReactionResult, err error) {
	defer func() { e.metrics.ObserveOperation(op, err) }()

	if user.UserID == "" {
		return nil, models.ErrUnauthorized
	}

	var result models.Reaction
	post, err := e.mutate(ctx, postID, func(p *models.Post) error {
		if p.IsExpired(e.now()) {
			return models.ErrPostExpired
		}
		if p.AuthorID == user.UserID {
			return models.ErrSelfInteraction
		}
		result = p.Toggle(user.UserID, r)
		return nil
	})
	if err != nil {
		return nil, storeError(op, err)
	}

	e.invalidate(ctx, post.Topic)
	ev := events.FromPost(events.PostReacted, post, user.UserID, e.now())
	ev.Reaction = result
	e.publish(ctx, ev)

	return &ReactionResult{
		PostID:   post.ID,
		Likes:    post.Likes(),
		Dislikes: post.Dislikes(),
		Reaction: result,
	}, nil
}

// AddComment appends a comment by author to a Live post. Authors may
// comment on their own posts.
func (e *Engine) AddComment(ctx context.Context, postID string, author models.Identity, text string) (res *CommentResult, err error) {
	defer func() { e.metrics.ObserveOperation("comment", err) }()

	if author.UserID == "" {
		return nil, models.ErrUnauthorized
	}
	in := validation.CommentInput{Text: strings.TrimSpace(text)}
	if err := e.validator.Error(in); err != nil {
		return nil, err
	}

	var comment models.Comment
	post, err := e.mutate(ctx, postID, func(p *models.Post) error {
		now := e.now()
		if p.IsExpired(now) {
			return models.ErrPostExpired
		}
		comment = models.Comment{
			AuthorID:   author.UserID,
			AuthorName: author.DisplayName,
			Text:       in.Text,
			CreatedAt:  now,
		}
		p.Comments = append(p.Comments, comment)
		return nil
	})
	if err != nil {
		return nil, storeError("comment", err)
	}

	e.publish(ctx, events.FromPost(events.PostCommented, post, author.UserID, comment.CreatedAt))
	return &CommentResult{Comment: comment, Count: len(post.Comments)}, nil
}

// MostActivePostInTopic returns the Live post of topic with the highest
// likes+dislikes. Ties go to the earliest post, then the smallest id.
func (e *Engine) MostActivePostInTopic(ctx context.Context, topic models.Topic) (res *MostActive, err error) {
	defer func() { e.metrics.ObserveOperation("most_active", err) }()

	if err := e.validator.Topic(topic); err != nil {
		return nil, err
	}
	now := e.now()

	if hit := e.cachedMostActive(ctx, topic, now); hit != nil {
		return hit, nil
	}
	gen, genErr := e.cache.Generation(ctx, topic)

	posts, err := e.posts.ListByTopic(ctx, topic, store.FilterLive, now)
	if err != nil {
		return nil, storeError("most active", err)
	}
	if len(posts) == 0 {
		return nil, models.ErrNoPostsInTopic
	}

	best := posts[0]
	for _, p := range posts[1:] {
		if moreActive(p, best) {
			best = p
		}
	}
	best.Status = models.StatusLive

	if genErr != nil {
		e.logger.Warn("Most active cache generation read failed", "topic", topic, "error", genErr)
	} else if err := e.cache.Set(ctx, topic, gen, cache.Entry{PostID: best.ID, Score: best.ActivityScore()}); err != nil {
		e.logger.Warn("Failed to cache most active post", "topic", topic, "error", err)
	}
	return &MostActive{Post: best, Score: best.ActivityScore()}, nil
}

func (e *Engine) cachedMostActive(ctx context.Context, topic models.Topic, now time.Time) *MostActive {
	entry, ok, err := e.cache.Get(ctx, topic)
	if err != nil {
		e.logger.Warn("Most active cache read failed", "topic", topic, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	post, err := e.posts.GetByID(ctx, entry.PostID)
	if err != nil || post.Topic != topic || post.IsExpired(now) {
		return nil
	}
	post.Status = models.StatusLive
	return &MostActive{Post: post, Score: post.ActivityScore()}
}

// moreActive reports whether a outranks b.
func moreActive(a, b *models.Post) bool {
	if sa, sb := a.ActivityScore(), b.ActivityScore(); sa != sb {
		return sa > sb
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func sortByExpiry(posts []*models.Post) {
	slices.SortStableFunc(posts, func(a, b *models.Post) int {
		if c := b.ExpiresAt.Compare(a.ExpiresAt); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// ExpiredPostsInTopic returns the expired history of topic, most recently
// expired first.
func (e *Engine) ExpiredPostsInTopic(ctx context.Context, topic models.Topic) (posts []*models.Post, err error) {
	defer func() { e.metrics.ObserveOperation("expired_posts", err) }()

	if err := e.validator.Topic(topic); err != nil {
		return nil, err
	}
	now := e.now()
	posts, err = e.posts.ListByTopic(ctx, topic, store.FilterExpired, now)
	if err != nil {
		return nil, storeError("expired posts", err)
	}
	sortByExpiry(posts)
	e.refreshStatus(ctx, posts, now)
	return posts, nil
}

// mutate runs fn through the store, starting over from a fresh read when a
// concurrent writer got there first. fn may therefore run more than once.
func (e *Engine) mutate(ctx context.Context, id string, fn store.MutationFunc) (*models.Post, error) {
	var err error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		var post *models.Post
		post, err = e.posts.ApplyMutation(ctx, id, fn)
		if !errors.Is(err, models.ErrConflict) {
			return post, err
		}
		if attempt < e.attempts {
			e.metrics.MutationRetried()
			e.logger.Debug("Retrying post mutation after conflict", "post_id", id, "attempt", attempt)
		}
	}
	return nil, err
}

// refreshStatus reports the derived status on every post and persists
// stale Live flags. Write failures are logged only.
func (e *Engine) refreshStatus(ctx context.Context, posts []*models.Post, now time.Time) {
	for _, p := range posts {
		if p.Status == models.StatusExpired || p.StatusAt(now) == models.StatusLive {
			continue
		}
		p.Status = models.StatusExpired
		if _, err := e.expire(ctx, p.ID, "read"); err != nil {
			e.logger.Warn("Lazy expiry flip failed", "post_id", p.ID, "error", err)
		}
	}
}

var errStatusCurrent = errors.New("status already current")

// expire flips the cached status of id to Expired when it is due. It reports
// whether this call made the transition.
func (e *Engine) expire(ctx context.Context, id, source string) (bool, error) {
	post, err := e.mutate(ctx, id, func(p *models.Post) error {
		if p.Status == models.StatusExpired || !p.IsExpired(e.now()) {
			return errStatusCurrent
		}
		p.Status = models.StatusExpired
		return nil
	})
	if errors.Is(err, errStatusCurrent) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	e.metrics.PostExpired(source)
	e.publish(ctx, events.FromPost(events.PostExpired, post, "", post.ExpiresAt))
	return true, nil
}

func (e *Engine) invalidate(ctx context.Context, topic models.Topic) {
	if err := e.cache.Invalidate(ctx, topic); err != nil {
		e.logger.Warn("Failed to invalidate most active cache", "topic", topic, "error", err)
	}
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if err := e.publisher.Publish(ctx, ev); err != nil {
		e.logger.Warn("Failed to publish event", "type", ev.Type, "post_id", ev.PostID, "error", err)
	}
}

// storeError passes domain errors through and wraps anything else as a
// store failure.
func storeError(op string, err error) error {
	var verr *models.ValidationError
	var serr *models.StoreFailure
	switch {
	case errors.As(err, &verr), errors.As(err, &serr),
		errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrPostExpired),
		errors.Is(err, models.ErrSelfInteraction),
		errors.Is(err, models.ErrConflict),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return &models.StoreFailure{Op: op, Err: err}
}
