package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"legalrisk/backend/internal/security"
	userdomain "legalrisk/backend/internal/user/domain"
	userrepo "legalrisk/backend/internal/user/repository"
)

const ctxUserKey = "auth.user"

// RequireAuth enforces bearer access-token auth and loads the authenticated
// user into the gin context. Soft-deleted users are rejected; the repository
// already filters them, so a valid token for a deleted user comes back 401.
func RequireAuth(tokens *security.TokenProvider, users userrepo.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			respondUnauthorized(c, "missing or invalid authorization header")
			return
		}
		claims, err := tokens.ValidateAccess(token)
		if err != nil {
			respondUnauthorized(c, "invalid token")
			return
		}
		u, err := users.GetByID(c.Request.Context(), claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
			return
		}
		if u == nil {
			respondUnauthorized(c, "invalid token")
			return
		}
		c.Set(ctxUserKey, u)
		c.Next()
	}
}

// CurrentUser returns the user installed by RequireAuth, or nil on an
// unauthenticated route.
func CurrentUser(c *gin.Context) *userdomain.User {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*userdomain.User)
	return u
}

func extractBearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}
