// Package server wires the HTTP surface: auth lifecycle routes, the
// authenticated profile and quota routes, and operational endpoints.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	authservice "legalrisk/backend/internal/auth/service"
	"legalrisk/backend/internal/quota"
	"legalrisk/backend/internal/security"
	userrepo "legalrisk/backend/internal/user/repository"
)

// Deps carries everything the router needs.
type Deps struct {
	DB     *sql.DB
	Auth   *authservice.AuthService
	Quota  *quota.Service
	Users  userrepo.Repository
	Tokens *security.TokenProvider
	// CORSOrigins lists allowed origins; "*" allows all.
	CORSOrigins []string
}

// NewRouter builds the HTTP router.
func NewRouter(d Deps) *gin.Engine {
	router := gin.Default()
	router.Use(MetricsMiddleware())
	router.Use(cors.New(corsConfig(d.CORSOrigins)))

	router.GET("/health", healthHandler(d.DB))
	router.GET("/metrics", MetricsHandler())

	authHandler := NewAuthHandler(d.Auth)
	authGroup := router.Group("/auth")
	authGroup.POST("/social", authHandler.SocialLogin)
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.POST("/logout", authHandler.Logout)

	meHandler := NewMeHandler(d.Users, d.Quota)
	me := router.Group("/me")
	me.Use(RequireAuth(d.Tokens, d.Users))
	me.GET("", meHandler.Get)
	me.PATCH("", meHandler.Update)
	me.GET("/limits", meHandler.Limits)
	me.GET("/usage/week", meHandler.WeekUsage)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

// healthHandler reports liveness plus a bounded DB ping.
func healthHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
