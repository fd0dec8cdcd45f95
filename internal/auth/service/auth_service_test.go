package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	identitydomain "legalrisk/backend/internal/identity/domain"
	identityrepo "legalrisk/backend/internal/identity/repository"
	"legalrisk/backend/internal/idp"
	"legalrisk/backend/internal/security"
	sessiondomain "legalrisk/backend/internal/session/domain"
	sessionrepo "legalrisk/backend/internal/session/repository"
	"legalrisk/backend/internal/store"
	userdomain "legalrisk/backend/internal/user/domain"
	userrepo "legalrisk/backend/internal/user/repository"
)

const testBcryptCost = 4

type memUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*userdomain.User
	byEmail map[string]*userdomain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*userdomain.User{}, byEmail: map[string]*userdomain.User{}}
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byEmail[email], nil
}

func (r *memUserRepo) Create(ctx context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u2 := *u
	r.byID[u.ID] = &u2
	r.byEmail[u.Email] = &u2
	return nil
}

func (r *memUserRepo) UpdateProfile(ctx context.Context, id string, name, avatarURL *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		if name != nil {
			u.Name = *name
		}
		if avatarURL != nil {
			u.AvatarURL = *avatarURL
		}
	}
	return nil
}

type memIdentityRepo struct {
	mu sync.Mutex
	m  map[string]*identitydomain.Identity

	// conflictNext makes the next Create fail with a unique violation, as if
	// a concurrent login committed first, and installs winner as that row.
	conflictNext bool
	winner       *identitydomain.Identity
}

func newMemIdentityRepo() *memIdentityRepo {
	return &memIdentityRepo{m: map[string]*identitydomain.Identity{}}
}

func identKey(p identitydomain.Provider, providerUserID string) string {
	return string(p) + "|" + providerUserID
}

func (r *memIdentityRepo) GetByProvider(ctx context.Context, provider identitydomain.Provider, providerUserID string) (*identitydomain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[identKey(provider, providerUserID)], nil
}

func (r *memIdentityRepo) Create(ctx context.Context, i *identitydomain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflictNext {
		r.conflictNext = false
		if r.winner != nil {
			w := *r.winner
			r.m[identKey(w.Provider, w.ProviderUserID)] = &w
		}
		return &pgconn.PgError{Code: "23505", ConstraintName: "user_identities_provider_provider_user_id_key"}
	}
	key := identKey(i.Provider, i.ProviderUserID)
	if _, exists := r.m[key]; exists {
		return &pgconn.PgError{Code: "23505", ConstraintName: "user_identities_provider_provider_user_id_key"}
	}
	i2 := *i
	r.m[key] = &i2
	return nil
}

type memSessionRepo struct {
	mu sync.Mutex
	m  map[string]*sessiondomain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{m: map[string]*sessiondomain.Session{}}
}

func (r *memSessionRepo) Create(ctx context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s2 := *s
	r.m[s.JTI] = &s2
	return nil
}

func (r *memSessionRepo) GetActiveByID(ctx context.Context, jti string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[jti]
	if !ok || s.RevokedAt != nil {
		return nil, nil
	}
	s2 := *s
	return &s2, nil
}

func (r *memSessionRepo) Revoke(ctx context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[jti]
	if !ok || s.RevokedAt != nil {
		return false, nil
	}
	t := time.Now().UTC()
	s.RevokedAt = &t
	return true, nil
}

type memStore struct {
	users    *memUserRepo
	idents   *memIdentityRepo
	sessions *memSessionRepo
}

func newMemStore() *memStore {
	return &memStore{users: newMemUserRepo(), idents: newMemIdentityRepo(), sessions: newMemSessionRepo()}
}

func (s *memStore) Users() userrepo.Repository          { return s.users }
func (s *memStore) Identities() identityrepo.Repository { return s.idents }
func (s *memStore) Sessions() sessionrepo.Repository    { return s.sessions }

type memUOW struct {
	store *memStore
}

func (u *memUOW) Do(ctx context.Context, fn func(ctx context.Context, s store.Store) error) error {
	return fn(ctx, u.store)
}

func (u *memUOW) View() store.Store { return u.store }

type fakeVerifier struct {
	profile *idp.Profile
	err     error
}

func (v *fakeVerifier) Verify(ctx context.Context, provider identitydomain.Provider, idToken string) (*idp.Profile, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.profile, nil
}

func newTestService(t *testing.T, st *memStore, verifier idp.Verifier) *AuthService {
	t.Helper()
	tokens, err := security.NewHMACTokenProvider([]byte("test-secret"), "test-issuer", 15*time.Minute)
	if err != nil {
		t.Fatalf("token provider: %v", err)
	}
	return NewAuthService(&memUOW{store: st}, verifier, tokens, nil, nil, nil, testBcryptCost, time.Hour)
}

func testProfile() *idp.Profile {
	return &idp.Profile{
		ProviderUserID: "google-sub-1",
		Email:          "ada@example.com",
		EmailVerified:  true,
		Name:           "Ada",
		AvatarURL:      "https://example.com/ada.png",
	}
}

func TestSocialLoginCreatesUserAndSession(t *testing.T) {
	st := newMemStore()
	svc := newTestService(t, st, &fakeVerifier{profile: testProfile()})

	pair, err := svc.SocialLogin(context.Background(), identitydomain.ProviderGoogle, "id-token", "ua", "1.2.3.4")
	if err != nil {
		t.Fatalf("SocialLogin: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected non-empty token pair")
	}
	if pair.TokenType != "Bearer" {
		t.Fatalf("token type = %q, want Bearer", pair.TokenType)
	}
	if pair.ExpiresIn != int((15 * time.Minute).Seconds()) {
		t.Fatalf("expires_in = %d", pair.ExpiresIn)
	}
	if pair.NeedsProfileCompletion {
		t.Fatal("profile has a name; completion should not be needed")
	}

	u, _ := st.users.GetByEmail(context.Background(), "ada@example.com")
	if u == nil {
		t.Fatal("user not created")
	}
	if u.ID != pair.UserID {
		t.Fatalf("pair user %s != stored user %s", pair.UserID, u.ID)
	}
	if u.Role != userdomain.DefaultRole {
		t.Fatalf("role = %q", u.Role)
	}

	jti, err := security.ParseRefreshSessionID(pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh secret malformed: %v", err)
	}
	sess, _ := st.sessions.GetActiveByID(context.Background(), jti)
	if sess == nil {
		t.Fatal("session not created")
	}
	if sess.ParentJTI != nil {
		t.Fatal("login session must have no parent")
	}
	if !security.VerifyRefreshSecret(pair.RefreshToken, sess.RefreshTokenHash) {
		t.Fatal("stored digest does not match issued secret")
	}
	if strings.Contains(sess.RefreshTokenHash, pair.RefreshToken) {
		t.Fatal("raw secret leaked into storage")
	}
}

func TestSocialLoginReusesExistingIdentity(t *testing.T) {
	st := newMemStore()
	svc := newTestService(t, st, &fakeVerifier{profile: testProfile()})
	ctx := context.Background()

	first, err := svc.SocialLogin(ctx, identitydomain.ProviderGoogle, "t1", "ua", "ip")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := svc.SocialLogin(ctx, identitydomain.ProviderGoogle, "t2", "ua", "ip")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if first.UserID != second.UserID {
		t.Fatalf("same identity resolved to different users: %s vs %s", first.UserID, second.UserID)
	}
	if first.RefreshToken == second.RefreshToken {
		t.Fatal("each login must mint a distinct refresh secret")
	}
	if len(st.users.byID) != 1 {
		t.Fatalf("user count = %d, want 1", len(st.users.byID))
	}
}

func TestSocialLoginLinksByEmail(t *testing.T) {
	st := newMemStore()
	existing := &userdomain.User{ID: "u-1", Email: "ada@example.com", Name: "Ada", Role: "user", CreatedAt: time.Now().UTC()}
	if err := st.users.Create(context.Background(), existing); err != nil {
		t.Fatal(err)
	}

	profile := testProfile()
	profile.ProviderUserID = "apple-sub-9"
	svc := newTestService(t, st, &fakeVerifier{profile: profile})

	pair, err := svc.SocialLogin(context.Background(), identitydomain.ProviderApple, "id-token", "ua", "ip")
	if err != nil {
		t.Fatalf("SocialLogin: %v", err)
	}
	if pair.UserID != existing.ID {
		t.Fatalf("linked to %s, want existing user %s", pair.UserID, existing.ID)
	}
	ident, _ := st.idents.GetByProvider(context.Background(), identitydomain.ProviderApple, "apple-sub-9")
	if ident == nil || ident.UserID != existing.ID {
		t.Fatal("identity not attached to existing user")
	}
}

func TestSocialLoginRejectsUnsupportedProvider(t *testing.T) {
	svc := newTestService(t, newMemStore(), &fakeVerifier{profile: testProfile()})
	_, err := svc.SocialLogin(context.Background(), identitydomain.Provider("github"), "t", "ua", "ip")
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("err = %v, want ErrInvalidCredential", err)
	}
}

func TestSocialLoginRejectsBadIDToken(t *testing.T) {
	svc := newTestService(t, newMemStore(), &fakeVerifier{err: idp.ErrInvalidIDToken})
	_, err := svc.SocialLogin(context.Background(), identitydomain.ProviderGoogle, "bad", "ua", "ip")
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("err = %v, want ErrInvalidCredential", err)
	}
}

func TestSocialLoginRetriesAfterConcurrentCreate(t *testing.T) {
	st := newMemStore()
	ctx := context.Background()

	winner := &userdomain.User{ID: "u-winner", Email: "ada@example.com", Name: "Ada", Role: "user", CreatedAt: time.Now().UTC()}
	if err := st.users.Create(ctx, winner); err != nil {
		t.Fatal(err)
	}
	st.idents.conflictNext = true
	st.idents.winner = &identitydomain.Identity{
		UserID:         winner.ID,
		Provider:       identitydomain.ProviderGoogle,
		ProviderUserID: "google-sub-1",
	}

	svc := newTestService(t, st, &fakeVerifier{profile: testProfile()})
	pair, err := svc.SocialLogin(ctx, identitydomain.ProviderGoogle, "t", "ua", "ip")
	if err != nil {
		t.Fatalf("login after conflict: %v", err)
	}
	if pair.UserID != winner.ID {
		t.Fatalf("retry resolved %s, want the winner's user %s", pair.UserID, winner.ID)
	}
}

func TestRotateRefreshRotatesSession(t *testing.T) {
	st := newMemStore()
	svc := newTestService(t, st, &fakeVerifier{profile: testProfile()})
	ctx := context.Background()

	login, err := svc.SocialLogin(ctx, identitydomain.ProviderGoogle, "t", "ua", "ip")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	oldJTI, _ := security.ParseRefreshSessionID(login.RefreshToken)

	rotated, err := svc.RotateRefresh(ctx, login.RefreshToken, "ua2", "ip2")
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if rotated.RefreshToken == login.RefreshToken {
		t.Fatal("rotation must mint a new refresh secret")
	}
	if rotated.UserID != login.UserID {
		t.Fatalf("rotation changed user: %s -> %s", login.UserID, rotated.UserID)
	}

	if sess, _ := st.sessions.GetActiveByID(ctx, oldJTI); sess != nil {
		t.Fatal("rotated-out session still active")
	}
	newJTI, _ := security.ParseRefreshSessionID(rotated.RefreshToken)
	child, _ := st.sessions.GetActiveByID(ctx, newJTI)
	if child == nil {
		t.Fatal("child session not created")
	}
	if child.ParentJTI == nil || *child.ParentJTI != oldJTI {
		t.Fatal("child session must point at the rotated-out session")
	}

	// The old secret names a revoked session now.
	if _, err := svc.RotateRefresh(ctx, login.RefreshToken, "ua", "ip"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("reusing rotated-out secret: err = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestRotateRefreshMalformedSecret(t *testing.T) {
	svc := newTestService(t, newMemStore(), &fakeVerifier{profile: testProfile()})
	for _, raw := range []string{"", "no-separator", ".only-random", "jti."} {
		if _, err := svc.RotateRefresh(context.Background(), raw, "ua", "ip"); !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("raw %q: err = %v, want ErrMalformedToken", raw, err)
		}
	}
}

func TestRotateRefreshUnknownSession(t *testing.T) {
	svc := newTestService(t, newMemStore(), &fakeVerifier{profile: testProfile()})
	_, err := svc.RotateRefresh(context.Background(), "11111111-1111-1111-1111-111111111111.c2VjcmV0", "ua", "ip")
	if !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("err = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestRotateRefreshExpiredSession(t *testing.T) {
	st := newMemStore()
	svc := newTestService(t, st, &fakeVerifier{profile: testProfile()})
	ctx := context.Background()

	raw, jti, err := security.NewRefreshSecret()
	if err != nil {
		t.Fatal(err)
	}
	digest, err := security.DigestRefreshSecret(raw, testBcryptCost)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.sessions.Create(ctx, &sessiondomain.Session{
		ID:               "s-1",
		UserID:           "u-1",
		RefreshTokenHash: digest,
		JTI:              jti,
		ExpiresAt:        time.Now().UTC().Add(-time.Minute),
		CreatedAt:        time.Now().UTC().Add(-time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.RotateRefresh(ctx, raw, "ua", "ip"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("err = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestRotateRefreshReplayRevokesSession(t *testing.T) {
	st := newMemStore()
	svc := newTestService(t, st, &fakeVerifier{profile: testProfile()})
	ctx := context.Background()

	login, err := svc.SocialLogin(ctx, identitydomain.ProviderGoogle, "t", "ua", "ip")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	jti, _ := security.ParseRefreshSessionID(login.RefreshToken)

	// Same session id, wrong random component.
	forged := jti + security.RefreshSeparator + "Zm9yZ2VkLXJhbmRvbS1jb21wb25lbnQ"
	if _, err := svc.RotateRefresh(ctx, forged, "ua", "ip"); !errors.Is(err, ErrReplayDetected) {
		t.Fatalf("err = %v, want ErrReplayDetected", err)
	}

	// Containment: the legitimate secret is dead too.
	if _, err := svc.RotateRefresh(ctx, login.RefreshToken, "ua", "ip"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("post-replay rotate: err = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestLogoutRevokesAndIsIdempotent(t *testing.T) {
	st := newMemStore()
	svc := newTestService(t, st, &fakeVerifier{profile: testProfile()})
	ctx := context.Background()

	login, err := svc.SocialLogin(ctx, identitydomain.ProviderGoogle, "t", "ua", "ip")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	jti, _ := security.ParseRefreshSessionID(login.RefreshToken)

	if err := svc.Logout(ctx, login.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if sess, _ := st.sessions.GetActiveByID(ctx, jti); sess != nil {
		t.Fatal("session still active after logout")
	}
	if err := svc.Logout(ctx, login.RefreshToken); err != nil {
		t.Fatalf("repeat logout must succeed: %v", err)
	}
	if err := svc.Logout(ctx, "garbage"); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("malformed logout: err = %v, want ErrMalformedToken", err)
	}
}
