// Package service implements the session lifecycle: social login, refresh
// rotation with replay containment, and logout.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"legalrisk/backend/internal/audit"
	auditdomain "legalrisk/backend/internal/audit/domain"
	"legalrisk/backend/internal/db"
	identitydomain "legalrisk/backend/internal/identity/domain"
	identityservice "legalrisk/backend/internal/identity/service"
	"legalrisk/backend/internal/idp"
	plandomain "legalrisk/backend/internal/plan/domain"
	"legalrisk/backend/internal/security"
	sessiondomain "legalrisk/backend/internal/session/domain"
	"legalrisk/backend/internal/store"
	"legalrisk/backend/internal/telemetry"
	userdomain "legalrisk/backend/internal/user/domain"
)

// Error taxonomy for the auth operations. The transport maps
// ErrInvalidRefreshToken and ErrReplayDetected to the same client response so
// a caller cannot probe which case it hit.
var (
	// ErrInvalidCredential covers unverifiable provider tokens and
	// unsupported providers.
	ErrInvalidCredential = errors.New("invalid identity credential")
	// ErrMalformedToken is a refresh secret with no recoverable session id.
	ErrMalformedToken = errors.New("malformed refresh token")
	// ErrInvalidRefreshToken is an unknown, revoked, or expired refresh secret.
	ErrInvalidRefreshToken = errors.New("invalid or revoked refresh token")
	// ErrReplayDetected is a refresh secret that names an active session but
	// fails digest verification. The named session has been revoked.
	ErrReplayDetected = errors.New("refresh token replay detected")
)

// errLogoutLookup tags a session fetch failure during logout so it can be
// downgraded to a no-op instead of surfacing as a fault.
var errLogoutLookup = errors.New("logout session lookup")

// PlanTagResolver supplies the plan code stamped into access tokens.
// Resolution failures fall back to the free plan tag.
type PlanTagResolver interface {
	EffectivePlanCode(ctx context.Context, userID string) (string, error)
}

// TokenPair is the result of a successful login or rotation.
type TokenPair struct {
	AccessToken            string
	RefreshToken           string
	TokenType              string
	ExpiresIn              int
	UserID                 string
	NeedsProfileCompletion bool

	// sessionJTI identifies the created session for audit and telemetry.
	sessionJTI string
}

// AuthService orchestrates identity verification, user resolution, and the
// refresh session state machine. All session reads and writes for one
// operation share a single transaction.
type AuthService struct {
	uow        store.UnitOfWork
	verifier   idp.Verifier
	tokens     *security.TokenProvider
	plans      PlanTagResolver
	audit      *audit.Logger
	emitter    telemetry.EventEmitter
	bcryptCost int
	sessionTTL time.Duration
	now        func() time.Time
}

// NewAuthService wires the auth service. plans, auditLogger, and emitter may
// be nil; the corresponding side effects are skipped.
func NewAuthService(
	uow store.UnitOfWork,
	verifier idp.Verifier,
	tokens *security.TokenProvider,
	plans PlanTagResolver,
	auditLogger *audit.Logger,
	emitter telemetry.EventEmitter,
	bcryptCost int,
	sessionTTL time.Duration,
) *AuthService {
	return &AuthService{
		uow:        uow,
		verifier:   verifier,
		tokens:     tokens,
		plans:      plans,
		audit:      auditLogger,
		emitter:    emitter,
		bcryptCost: bcryptCost,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// SocialLogin verifies a provider ID token, resolves it to a local user
// (creating or linking as needed), and opens a new refresh session. A unique
// violation from two concurrent first logins retries the transaction once;
// the loser then finds the identity the winner created.
func (s *AuthService) SocialLogin(ctx context.Context, provider identitydomain.Provider, idToken, userAgent, ip string) (*TokenPair, error) {
	if !provider.Valid() {
		return nil, fmt.Errorf("%w: unsupported provider %q", ErrInvalidCredential, provider)
	}
	profile, err := s.verifier.Verify(ctx, provider, idToken)
	if err != nil {
		return nil, ErrInvalidCredential
	}

	pair, err := s.login(ctx, provider, profile, userAgent, ip)
	if db.IsUniqueViolation(err) {
		pair, err = s.login(ctx, provider, profile, userAgent, ip)
	}
	if err != nil {
		return nil, err
	}

	s.audit.LogEvent(ctx, pair.UserID, auditdomain.ActionLogin, "auth_session", pair.sessionJTI, "")
	telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
		UserID:    pair.UserID,
		SessionID: pair.sessionJTI,
		EventType: telemetry.EventLogin,
		Source:    string(provider),
		CreatedAt: s.now().UTC(),
	})
	return pair, nil
}

func (s *AuthService) login(ctx context.Context, provider identitydomain.Provider, profile *idp.Profile, userAgent, ip string) (*TokenPair, error) {
	var pair *TokenPair
	err := s.uow.Do(ctx, func(ctx context.Context, st store.Store) error {
		u, err := identityservice.Resolve(ctx, st, provider, profile)
		if err != nil {
			return err
		}
		pair, err = s.openSession(ctx, st, u, nil, userAgent, ip)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// RotateRefresh exchanges a raw refresh secret for a fresh token pair. The
// presented session is revoked and a child session is created in the same
// transaction. A digest mismatch against an active session is treated as
// replay: the session is revoked, the revocation is committed, and
// ErrReplayDetected is returned.
func (s *AuthService) RotateRefresh(ctx context.Context, rawRefresh, userAgent, ip string) (*TokenPair, error) {
	jti, err := security.ParseRefreshSessionID(rawRefresh)
	if err != nil {
		return nil, ErrMalformedToken
	}

	var (
		pair         *TokenPair
		replayUserID string
		replayed     bool
	)
	err = s.uow.Do(ctx, func(ctx context.Context, st store.Store) error {
		sess, err := st.Sessions().GetActiveByID(ctx, jti)
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		if sess == nil {
			return ErrInvalidRefreshToken
		}
		if !sess.Active(s.now()) {
			return fmt.Errorf("%w: session expired", ErrInvalidRefreshToken)
		}
		if !security.VerifyRefreshSecret(rawRefresh, sess.RefreshTokenHash) {
			// Active session, wrong secret. Revoke it and commit; the error
			// is surfaced after the transaction so the revocation sticks.
			if _, err := st.Sessions().Revoke(ctx, jti); err != nil {
				return fmt.Errorf("revoke replayed session: %w", err)
			}
			replayed = true
			replayUserID = sess.UserID
			return nil
		}

		won, err := st.Sessions().Revoke(ctx, jti)
		if err != nil {
			return fmt.Errorf("revoke session: %w", err)
		}
		if !won {
			// A concurrent rotation got there first.
			return ErrInvalidRefreshToken
		}

		u, err := st.Users().GetByID(ctx, sess.UserID)
		if err != nil {
			return fmt.Errorf("load session user: %w", err)
		}
		if u == nil {
			return ErrInvalidRefreshToken
		}
		pair, err = s.openSession(ctx, st, u, &sess.JTI, userAgent, ip)
		return err
	})
	if err != nil {
		return nil, err
	}

	if replayed {
		s.audit.LogEvent(ctx, replayUserID, auditdomain.ActionReplayDetected, "auth_session", jti, "")
		telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
			UserID:    replayUserID,
			SessionID: jti,
			EventType: telemetry.EventReplayDetected,
			CreatedAt: s.now().UTC(),
		})
		return nil, ErrReplayDetected
	}

	s.audit.LogEvent(ctx, pair.UserID, auditdomain.ActionRefreshRotated, "auth_session", pair.sessionJTI, "")
	telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
		UserID:    pair.UserID,
		SessionID: pair.sessionJTI,
		EventType: telemetry.EventRefreshRotated,
		CreatedAt: s.now().UTC(),
	})
	return pair, nil
}

// Logout revokes the session named by the raw refresh secret. Idempotent:
// unknown or already revoked sessions succeed. A lookup failure is logged and
// swallowed; a failure while revoking a live session is returned.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string) error {
	jti, err := security.ParseRefreshSessionID(rawRefresh)
	if err != nil {
		return ErrMalformedToken
	}

	var (
		userID  string
		revoked bool
	)
	err = s.uow.Do(ctx, func(ctx context.Context, st store.Store) error {
		sess, err := st.Sessions().GetActiveByID(ctx, jti)
		if err != nil {
			return fmt.Errorf("%w: %v", errLogoutLookup, err)
		}
		if sess == nil {
			return nil
		}
		userID = sess.UserID
		if _, err := st.Sessions().Revoke(ctx, jti); err != nil {
			return fmt.Errorf("revoke session: %w", err)
		}
		revoked = true
		return nil
	})
	if err != nil {
		if errors.Is(err, errLogoutLookup) {
			log.Printf("auth: logout lookup failed, treating as logged out: %v", err)
			return nil
		}
		return err
	}

	if revoked {
		s.audit.LogEvent(ctx, userID, auditdomain.ActionLogout, "auth_session", jti, "")
		telemetry.EmitAsync(s.emitter, ctx, &telemetry.Event{
			UserID:    userID,
			SessionID: jti,
			EventType: telemetry.EventLogout,
			CreatedAt: s.now().UTC(),
		})
	}
	return nil
}

// openSession creates a refresh session for u (child of parentJTI when
// rotating) and issues the matching access token, all on the caller's
// transaction-bound store.
func (s *AuthService) openSession(ctx context.Context, st store.Store, u *userdomain.User, parentJTI *string, userAgent, ip string) (*TokenPair, error) {
	raw, jti, err := security.NewRefreshSecret()
	if err != nil {
		return nil, fmt.Errorf("generate refresh secret: %w", err)
	}
	digest, err := security.DigestRefreshSecret(raw, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("digest refresh secret: %w", err)
	}

	now := s.now().UTC()
	if err := st.Sessions().Create(ctx, &sessiondomain.Session{
		ID:               uuid.New().String(),
		UserID:           u.ID,
		RefreshTokenHash: digest,
		JTI:              jti,
		ParentJTI:        parentJTI,
		ExpiresAt:        now.Add(s.sessionTTL),
		UserAgent:        userAgent,
		IP:               ip,
		CreatedAt:        now,
	}); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	access, expiresIn, err := s.tokens.IssueAccess(u.ID, u.Role, s.planTag(ctx, u.ID))
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	return &TokenPair{
		AccessToken:            access,
		RefreshToken:           raw,
		TokenType:              "Bearer",
		ExpiresIn:              expiresIn,
		UserID:                 u.ID,
		NeedsProfileCompletion: u.NeedsProfileCompletion(),
		sessionJTI:             jti,
	}, nil
}

// planTag resolves the plan code for access-token claims, falling back to the
// free plan when no resolver is wired or resolution fails.
func (s *AuthService) planTag(ctx context.Context, userID string) string {
	if s.plans == nil {
		return plandomain.FreePlanCode
	}
	code, err := s.plans.EffectivePlanCode(ctx, userID)
	if err != nil || code == "" {
		return plandomain.FreePlanCode
	}
	return code
}
