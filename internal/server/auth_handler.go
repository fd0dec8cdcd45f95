package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	authservice "legalrisk/backend/internal/auth/service"
	identitydomain "legalrisk/backend/internal/identity/domain"
)

// AuthHandler exposes the session lifecycle over HTTP.
type AuthHandler struct {
	auth *authservice.AuthService
}

// NewAuthHandler returns an AuthHandler over the given service.
func NewAuthHandler(auth *authservice.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type socialLoginRequest struct {
	Provider string `json:"provider" binding:"required"`
	IDToken  string `json:"id_token" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type tokenPairResponse struct {
	AccessToken            string `json:"access_token"`
	RefreshToken           string `json:"refresh_token"`
	TokenType              string `json:"token_type"`
	ExpiresIn              int    `json:"expires_in"`
	NeedsProfileCompletion bool   `json:"needs_profile_completion"`
}

// SocialLogin handles POST /auth/social.
func (h *AuthHandler) SocialLogin(c *gin.Context) {
	var req socialLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provider and id_token are required"})
		return
	}

	pair, err := h.auth.SocialLogin(
		c.Request.Context(),
		identitydomain.Provider(req.Provider),
		req.IDToken,
		c.Request.UserAgent(),
		c.ClientIP(),
	)
	countAuthOp("login", err)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTokenPairResponse(pair))
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token is required"})
		return
	}

	pair, err := h.auth.RotateRefresh(c.Request.Context(), req.RefreshToken, c.Request.UserAgent(), c.ClientIP())
	countAuthOp("refresh", err)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTokenPairResponse(pair))
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token is required"})
		return
	}

	err := h.auth.Logout(c.Request.Context(), req.RefreshToken)
	countAuthOp("logout", err)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func toTokenPairResponse(pair *authservice.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:            pair.AccessToken,
		RefreshToken:           pair.RefreshToken,
		TokenType:              pair.TokenType,
		ExpiresIn:              pair.ExpiresIn,
		NeedsProfileCompletion: pair.NeedsProfileCompletion,
	}
}

// writeAuthError maps service errors to HTTP responses. Invalid and replayed
// refresh tokens produce the identical response so a caller cannot tell which
// case it hit.
func writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, authservice.ErrMalformedToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed refresh token"})
	case errors.Is(err, authservice.ErrInvalidCredential):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credential"})
	case errors.Is(err, authservice.ErrInvalidRefreshToken), errors.Is(err, authservice.ErrReplayDetected):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
