package handlers

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"piazza/middleware"
	"piazza/models"
	"piazza/validation"
)

// maxExpirationSeconds is the largest window time.Duration can hold.
const maxExpirationSeconds = math.MaxInt64 / int64(time.Second)

type createPostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Topic   string `json:"topic"`
	// Either field overrides the default window; seconds win when both are set.
	ExpirationSeconds *int64 `json:"expirationSeconds"`
	Expiration        string `json:"expiration"`
}

func (r createPostRequest) toInput() (validation.PostInput, error) {
	in := validation.PostInput{
		Title:   r.Title,
		Content: r.Content,
		Topic:   models.Topic(r.Topic),
	}
	switch {
	case r.ExpirationSeconds != nil:
		secs := *r.ExpirationSeconds
		if secs > maxExpirationSeconds || secs < -maxExpirationSeconds {
			return in, &models.ValidationError{Violations: []models.Violation{{
				Field:   "expirationSeconds",
				Rule:    "max",
				Message: fmt.Sprintf("expirationSeconds must be at most %d", maxExpirationSeconds),
			}}}
		}
		d := time.Duration(secs) * time.Second
		in.Expiration = &d
	case r.Expiration != "":
		d, err := time.ParseDuration(r.Expiration)
		if err != nil {
			return in, &models.ValidationError{Violations: []models.Violation{{
				Field:   "expiration",
				Rule:    "duration",
				Message: fmt.Sprintf("expiration must be a duration such as 90s or 5m, got %q", r.Expiration),
			}}}
		}
		in.Expiration = &d
	}
	return in, nil
}

type commentRequest struct {
	Text string `json:"text"`
}

func (h *Handler) CreatePost(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		respondError(c, models.ErrUnauthorized)
		return
	}

	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.engine.CreatePost(ctx, identity, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *Handler) GetPost(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.engine.GetPost(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handler) LikePost(c *gin.Context) {
	h.react(c, models.ReactionLike)
}

func (h *Handler) DislikePost(c *gin.Context) {
	h.react(c, models.ReactionDislike)
}

func (h *Handler) react(c *gin.Context, r models.Reaction) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		respondError(c, models.ErrUnauthorized)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	react := h.engine.LikePost
	if r == models.ReactionDislike {
		react = h.engine.DislikePost
	}
	res, err := react(ctx, c.Param("id"), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) AddComment(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		respondError(c, models.ErrUnauthorized)
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.engine.AddComment(ctx, c.Param("id"), identity, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
