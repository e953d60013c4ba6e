package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"piazza/models"
	"piazza/store"
)

var statusFilters = map[string]store.StatusFilter{
	"":        store.FilterLive,
	"live":    store.FilterLive,
	"expired": store.FilterExpired,
	"all":     store.FilterAll,
}

func (h *Handler) ListTopics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"topics": h.engine.Validator().Topics()})
}

// ListTopicPosts browses a topic. ?status=live|expired|all, live by default.
func (h *Handler) ListTopicPosts(c *gin.Context) {
	status := strings.ToLower(c.Query("status"))
	filter, ok := statusFilters[status]
	if !ok {
		respondError(c, &models.ValidationError{Violations: []models.Violation{{
			Field:   "status",
			Rule:    "oneof",
			Message: fmt.Sprintf("status must be one of live, expired, all, got %q", status),
		}}})
		return
	}
	if status == "" {
		status = "live"
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	topic := models.Topic(c.Param("topic"))
	posts, err := h.engine.ListPostsByTopic(ctx, topic, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"topic":  topic,
		"status": status,
		"count":  len(posts),
		"posts":  nonNilPosts(posts),
	})
}

func (h *Handler) MostActive(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.engine.MostActivePostInTopic(ctx, models.Topic(c.Param("topic")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ExpiredPosts(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	topic := models.Topic(c.Param("topic"))
	posts, err := h.engine.ExpiredPostsInTopic(ctx, topic)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"topic": topic,
		"count": len(posts),
		"posts": nonNilPosts(posts),
	})
}

func nonNilPosts(posts []*models.Post) []*models.Post {
	if posts == nil {
		return []*models.Post{}
	}
	return posts
}
