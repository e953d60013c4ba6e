package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"piazza/middleware"
	"piazza/models"
	"piazza/validation"
)

func (h *Handler) Signup(c *gin.Context) {
	var req validation.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := h.engine.Validator().Error(req); err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, err)
		return
	}

	user := &models.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hashed),
		CreatedAt:    h.now(),
	}
	id, err := h.users.CreateUser(ctx, user)
	if err != nil {
		respondError(c, err)
		return
	}

	identity := models.Identity{UserID: id, DisplayName: user.Username}
	token, expiresAt, err := middleware.IssueToken(h.auth.Secret, identity, h.auth.TokenTTL, h.now())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "User created successfully",
		"token":     token,
		"expiresAt": expiresAt,
		"userId":    id,
		"username":  user.Username,
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req validation.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := h.engine.Validator().Error(req); err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.users.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, models.ErrUserNotFound) {
		invalidCredentials(c)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		invalidCredentials(c)
		return
	}

	identity := models.Identity{UserID: user.ID, DisplayName: user.Username}
	token, expiresAt, err := middleware.IssueToken(h.auth.Secret, identity, h.auth.TokenTTL, h.now())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresAt": expiresAt,
		"userId":    user.ID,
		"username":  user.Username,
	})
}

func invalidCredentials(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Invalid email or password"})
}

// Me returns the profile of the authenticated caller.
func (h *Handler) Me(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		respondError(c, models.ErrUnauthorized)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.users.GetUserByID(ctx, identity.UserID)
	if errors.Is(err, models.ErrUserNotFound) {
		respondError(c, models.ErrUnauthorized)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
