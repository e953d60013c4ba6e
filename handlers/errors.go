package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"piazza/models"
)

// respondError maps engine and store errors to a status and a JSON body of
// the form {"error": code, "message": text}.
func respondError(c *gin.Context, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "validation_failed",
			"message":    verr.Error(),
			"violations": verr.Violations,
		})
		return
	}

	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, models.ErrInvalidTopic):
		status, code = http.StatusBadRequest, "invalid_topic"
	case errors.Is(err, models.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrNoPostsInTopic):
		status, code = http.StatusNotFound, "no_posts_in_topic"
	case errors.Is(err, models.ErrPostExpired):
		status, code = http.StatusGone, "post_expired"
	case errors.Is(err, models.ErrSelfInteraction):
		status, code = http.StatusForbidden, "self_interaction_forbidden"
	case errors.Is(err, models.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, models.ErrUserExists):
		status, code = http.StatusConflict, "user_exists"
	case errors.Is(err, models.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	}

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		slog.Error("❌ Request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": code, "message": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": code, "message": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
}
