package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"legalrisk/backend/internal/audit"
	auditrepo "legalrisk/backend/internal/audit/repository"
	authservice "legalrisk/backend/internal/auth/service"
	"legalrisk/backend/internal/config"
	"legalrisk/backend/internal/db"
	identitydomain "legalrisk/backend/internal/identity/domain"
	"legalrisk/backend/internal/idp"
	planrepo "legalrisk/backend/internal/plan/repository"
	"legalrisk/backend/internal/quota"
	"legalrisk/backend/internal/security"
	"legalrisk/backend/internal/server"
	"legalrisk/backend/internal/store"
	"legalrisk/backend/internal/telemetry"
	"legalrisk/backend/internal/telemetry/otel"
	usagerepo "legalrisk/backend/internal/usage/repository"
	userrepo "legalrisk/backend/internal/user/repository"
)

const serviceName = "legalrisk-backend"

// Provider JWKS locations; neither provider publishes at the conventional
// issuer-relative path.
const (
	googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
	appleJWKSURL  = "https://appleid.apple.com/auth/keys"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	loc, err := time.LoadLocation(cfg.QuotaTimezone)
	if err != nil {
		log.Fatalf("quota timezone %q: %v", cfg.QuotaTimezone, err)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	tokens, err := buildTokenProvider(cfg)
	if err != nil {
		log.Fatalf("token provider: %v", err)
	}

	registry, err := buildVerifierRegistry(cfg)
	if err != nil {
		log.Fatalf("identity providers: %v", err)
	}

	uow := store.NewPostgres(conn)
	quotaSvc := quota.NewService(planrepo.NewPostgresRepository(conn), usagerepo.NewPostgresRepository(conn), loc)
	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(conn))
	emitter := otel.NewEventEmitter(providers.LoggerProvider)

	authSvc := authservice.NewAuthService(
		uow,
		registry,
		tokens,
		quotaSvc,
		auditLogger,
		emitter,
		cfg.BcryptCost,
		cfg.SessionTTL(),
	)

	router := server.NewRouter(server.Deps{
		DB:          conn,
		Auth:        authSvc,
		Quota:       quotaSvc,
		Users:       userrepo.NewPostgresRepository(conn),
		Tokens:      tokens,
		CORSOrigins: cfg.CORSOriginsList(),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	// Let in-flight async telemetry emits finish before tearing down exporters.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}

func buildTokenProvider(cfg *config.Config) (*security.TokenProvider, error) {
	if cfg.JWTPrivateKey != "" {
		priv, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
		if err != nil {
			return nil, err
		}
		pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
		if err != nil {
			return nil, err
		}
		return security.NewTokenProvider(priv, pub, cfg.JWTIssuer, cfg.AccessTTL())
	}
	return security.NewHMACTokenProvider([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.AccessTTL())
}

// buildVerifierRegistry registers a JWKS verifier per configured provider.
// A provider with an empty audience is disabled.
func buildVerifierRegistry(cfg *config.Config) (*idp.Registry, error) {
	registry := idp.NewRegistry()
	if cfg.GoogleAudience != "" {
		v, err := idp.NewJWKSVerifier(cfg.GoogleIssuer, cfg.GoogleAudience, googleJWKSURL)
		if err != nil {
			return nil, err
		}
		registry.Register(identitydomain.ProviderGoogle, v)
	}
	if cfg.AppleAudience != "" {
		v, err := idp.NewJWKSVerifier(cfg.AppleIssuer, cfg.AppleAudience, appleJWKSURL)
		if err != nil {
			return nil, err
		}
		registry.Register(identitydomain.ProviderApple, v)
	}
	return registry, nil
}
