package models

import "time"

type PostStatus string

const (
	StatusLive    PostStatus = "Live"
	StatusExpired PostStatus = "Expired"
)

type Post struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Topic      Topic      `json:"topic"`
	AuthorID   string     `json:"authorId"`
	AuthorName string     `json:"authorName"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	Status     PostStatus `json:"status"`
	LikedBy    []string   `json:"likedBy"`
	DislikedBy []string   `json:"dislikedBy"`
	Comments   []Comment  `json:"comments"`

	// Version is bumped on every persisted mutation (compare-and-swap).
	Version int64 `json:"-"`
}

type Comment struct {
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

// IsExpired reports whether the post is past its expiry at now. The stored
// Status is only a cache of this value.
func (p *Post) IsExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// StatusAt derives the lifecycle state from the expiry timestamp.
func (p *Post) StatusAt(now time.Time) PostStatus {
	if p.IsExpired(now) {
		return StatusExpired
	}
	return StatusLive
}

// Likes and Dislikes are the reaction counts.
func (p *Post) Likes() int    { return len(p.LikedBy) }
func (p *Post) Dislikes() int { return len(p.DislikedBy) }

// ActivityScore is likes + dislikes. Comments are not counted.
func (p *Post) ActivityScore() int {
	return len(p.LikedBy) + len(p.DislikedBy)
}

// ReactionOf returns the current reaction of userID on this post.
func (p *Post) ReactionOf(userID string) Reaction {
	if containsID(p.LikedBy, userID) {
		return ReactionLike
	}
	if containsID(p.DislikedBy, userID) {
		return ReactionDislike
	}
	return ReactionNone
}

// Clone returns a deep copy so a mutation never aliases stored slices.
func (p *Post) Clone() *Post {
	cp := *p
	cp.LikedBy = append([]string{}, p.LikedBy...)
	cp.DislikedBy = append([]string{}, p.DislikedBy...)
	cp.Comments = append([]Comment{}, p.Comments...)
	return &cp
}
