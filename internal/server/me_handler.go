package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"legalrisk/backend/internal/quota"
	userdomain "legalrisk/backend/internal/user/domain"
	userrepo "legalrisk/backend/internal/user/repository"
)

// MeHandler exposes the authenticated user's profile, limits, and usage.
type MeHandler struct {
	users userrepo.Repository
	quota *quota.Service
}

// NewMeHandler returns a MeHandler over the given repositories.
func NewMeHandler(users userrepo.Repository, quotaSvc *quota.Service) *MeHandler {
	return &MeHandler{users: users, quota: quotaSvc}
}

type userResponse struct {
	ID                     string `json:"id"`
	Email                  string `json:"email"`
	Name                   string `json:"name"`
	AvatarURL              string `json:"avatar_url"`
	Role                   string `json:"role"`
	NeedsProfileCompletion bool   `json:"needs_profile_completion"`
	CreatedAt              string `json:"created_at"`
}

func toUserResponse(u *userdomain.User) userResponse {
	return userResponse{
		ID:                     u.ID,
		Email:                  u.Email,
		Name:                   u.Name,
		AvatarURL:              u.AvatarURL,
		Role:                   u.Role,
		NeedsProfileCompletion: u.NeedsProfileCompletion(),
		CreatedAt:              u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Get handles GET /me.
func (h *MeHandler) Get(c *gin.Context) {
	u := CurrentUser(c)
	if u == nil {
		respondUnauthorized(c, "missing auth context")
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}

type updateProfileRequest struct {
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

// Update handles PATCH /me. Only fields present in the body change.
func (h *MeHandler) Update(c *gin.Context) {
	u := CurrentUser(c)
	if u == nil {
		respondUnauthorized(c, "missing auth context")
		return
	}
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if req.Name == nil && req.AvatarURL == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if err := h.users.UpdateProfile(c.Request.Context(), u.ID, req.Name, req.AvatarURL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}
	updated, err := h.users.GetByID(c.Request.Context(), u.ID)
	if err != nil || updated == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}
	c.JSON(http.StatusOK, toUserResponse(updated))
}

// Limits handles GET /me/limits.
func (h *MeHandler) Limits(c *gin.Context) {
	u := CurrentUser(c)
	if u == nil {
		respondUnauthorized(c, "missing auth context")
		return
	}
	limits, err := h.quota.ResolveEffectiveLimits(c.Request.Context(), u.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve limits"})
		return
	}
	usage, err := h.quota.WeekUsage(c.Request.Context(), u.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read usage"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"plan": limits.PlanCode,
		"limits": gin.H{
			"weekly_free_analyses": limits.Limits.WeeklyAnalyses,
			"history_cap":          limits.Limits.HistoryCap,
		},
		"used_this_week": usage.Used,
		"resets_at":      limits.ResetsAt.UTC().Format(time.RFC3339),
	})
}

// WeekUsage handles GET /me/usage/week.
func (h *MeHandler) WeekUsage(c *gin.Context) {
	u := CurrentUser(c)
	if u == nil {
		respondUnauthorized(c, "missing auth context")
		return
	}
	usage, err := h.quota.WeekUsage(c.Request.Context(), u.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read usage"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":        usage.Used,
		"limit":        usage.Limit,
		"remaining":    usage.Remaining,
		"window_start": usage.WindowStart.UTC().Format(time.RFC3339),
		"window_end":   usage.WindowEnd.UTC().Format(time.RFC3339),
	})
}
