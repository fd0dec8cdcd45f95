// seed inserts development sample data for local testing.
// Idempotent: plans upsert by code and user inserts are skipped when the dev
// user (dev@example.com) already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"legalrisk/backend/internal/config"
	"legalrisk/backend/internal/db"
	identitydomain "legalrisk/backend/internal/identity/domain"
	identityrepo "legalrisk/backend/internal/identity/repository"
	userdomain "legalrisk/backend/internal/user/domain"
	userrepo "legalrisk/backend/internal/user/repository"
)

const (
	devUserEmail     = "dev@example.com"
	devUserID        = "00000000-0000-4000-8000-000000000001"
	premiumUserEmail = "premium@example.com"
	premiumUserID    = "00000000-0000-4000-8000-000000000002"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()

	// Plans are keyed by code, so these are safe to re-run.
	if _, err := conn.ExecContext(ctx, `
		INSERT INTO plans (code, limits, active)
		VALUES
			('free',    '{"weekly_free_analyses": 1, "history_cap": 3}'::jsonb,  TRUE),
			('premium', '{"history_cap": 50}'::jsonb,                            TRUE)
		ON CONFLICT (code) DO NOTHING;
	`); err != nil {
		log.Fatalf("seed plans: %v", err)
	}

	users := userrepo.NewPostgresRepository(conn)
	existing, err := users.GetByEmail(ctx, devUserEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev@example.com exists). Skipping.")
		os.Exit(0)
	}

	idents := identityrepo.NewPostgresRepository(conn)
	now := time.Now().UTC()

	seedUser := func(id, email, name, providerUserID string) {
		u := &userdomain.User{ID: id, Email: email, Name: name, Role: userdomain.DefaultRole, CreatedAt: now}
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create user %s: %v", email, err)
		}
		if err := idents.Create(ctx, &identitydomain.Identity{
			UserID:         id,
			Provider:       identitydomain.ProviderGoogle,
			ProviderUserID: providerUserID,
			EmailVerified:  true,
			RawProfile:     []byte(`{"seed": true}`),
			CreatedAt:      now,
		}); err != nil {
			log.Fatalf("create identity for %s: %v", email, err)
		}
	}

	seedUser(devUserID, devUserEmail, "Dev User", "seed-google-dev")
	seedUser(premiumUserID, premiumUserEmail, "Premium User", "seed-google-premium")

	if _, err := conn.ExecContext(ctx, `
		INSERT INTO subscriptions (id, user_id, plan_id, provider, status, current_period_start, current_period_end)
		SELECT '00000000-0000-4000-8000-00000000a001', $1, p.id, 'stripe', 'active', NOW(), NOW() + INTERVAL '30 days'
		FROM plans p
		WHERE p.code = 'premium'
		ON CONFLICT (id) DO NOTHING;
	`, premiumUserID); err != nil {
		log.Fatalf("seed subscription: %v", err)
	}

	log.Println("Seed completed successfully.")
	log.Printf("Seeded users: %s (free), %s (premium)", devUserEmail, premiumUserEmail)
}
