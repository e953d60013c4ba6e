// Package handlers adapts HTTP requests to the engagement engine and the
// user store. Handlers hold no business rules of their own.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"piazza/engagement"
	"piazza/store"
)

const requestTimeout = 10 * time.Second

type AuthConfig struct {
	Secret   []byte
	TokenTTL time.Duration
}

type Handler struct {
	engine *engagement.Engine
	users  store.UserStore
	auth   AuthConfig
	now    func() time.Time
}

func New(engine *engagement.Engine, users store.UserStore, auth AuthConfig) *Handler {
	if auth.TokenTTL <= 0 {
		auth.TokenTTL = 24 * time.Hour
	}
	return &Handler{engine: engine, users: users, auth: auth, now: time.Now}
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}
