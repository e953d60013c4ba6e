package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("post not found")
	ErrPostExpired     = errors.New("post has expired")
	ErrSelfInteraction = errors.New("authors cannot react to their own post")
	ErrInvalidTopic    = errors.New("invalid topic")
	ErrNoPostsInTopic  = errors.New("no live posts in topic")
	ErrConflict        = errors.New("concurrent modification, retry")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("email or username already in use")
)

// Violation is one failed field rule.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError carries every violation found in an input.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// StoreFailure wraps an IO failure of the persistence layer so it stays
// distinct from the domain errors above.
type StoreFailure struct {
	Op  string
	Err error
}

func (e *StoreFailure) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreFailure) Unwrap() error { return e.Err }
