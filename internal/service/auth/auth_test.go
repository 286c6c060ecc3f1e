package auth

import (
	"context"
	"testing"
	"time"

	"billhub-service/internal/domain/audit"
	authdom "billhub-service/internal/domain/auth"
	"billhub-service/internal/domain/role"
	"billhub-service/internal/domain/user"
	xerrors "billhub-service/internal/pkg/errors"
	"billhub-service/internal/pkg/session"
	auditsvc "billhub-service/internal/service/audit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type stubUsers struct {
	byEmail map[string]*user.User
	updated map[int64]map[string]interface{}
}

func (s *stubUsers) FindByEmail(_ context.Context, email string) (*user.User, error) {
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, xerrors.ErrNotFound
}

func (s *stubUsers) FindByID(_ context.Context, id int64) (*user.User, error) {
	for _, u := range s.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (s *stubUsers) Update(_ context.Context, id int64, fields map[string]interface{}) (int64, error) {
	if s.updated == nil {
		s.updated = map[int64]map[string]interface{}{}
	}
	s.updated[id] = fields
	return 1, nil
}

type stubRoles struct {
	perms map[int64]map[string]role.Permission
}

func (s *stubRoles) PermissionsFor(_ context.Context, roleID int64) (map[string]role.Permission, error) {
	return s.perms[roleID], nil
}

type stubLimiter struct {
	allowed bool
	resets  int
}

func (s *stubLimiter) CheckLoginAttempt(_ context.Context, _, _ string) (bool, int64, error) {
	return s.allowed, 0, nil
}

func (s *stubLimiter) ResetLoginAttempts(_ context.Context, _, _ string) error {
	s.resets++
	return nil
}

// stubSessionRepo backs a real session.Store during tests.
type stubSessionRepo struct {
	sessions map[string]*authdom.Session
	contexts map[string]*authdom.SessionContext
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{
		sessions: map[string]*authdom.Session{},
		contexts: map[string]*authdom.SessionContext{},
	}
}

func (s *stubSessionRepo) CreateSession(_ context.Context, sess *authdom.Session) error {
	s.sessions[sess.ID] = sess
	return nil
}

func (s *stubSessionRepo) LookupContext(_ context.Context, sessionID string, _ time.Time) (*authdom.SessionContext, error) {
	return s.contexts[sessionID], nil
}

func (s *stubSessionRepo) TouchSession(_ context.Context, _ string, _ time.Time) error {
	return nil
}

func (s *stubSessionRepo) DeactivateSession(_ context.Context, sessionID string) error {
	delete(s.sessions, sessionID)
	delete(s.contexts, sessionID)
	return nil
}

func (s *stubSessionRepo) DeactivateUserSessions(_ context.Context, userID int64) (int64, error) {
	var n int64
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
			delete(s.contexts, id)
			n++
		}
	}
	return n, nil
}

func (s *stubSessionRepo) DeactivateExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (s *stubSessionRepo) ExtendSession(_ context.Context, sessionID string, expiresAt time.Time) (bool, error) {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return false, nil
	}
	sess.ExpiresAt = expiresAt
	return true, nil
}

func (s *stubSessionRepo) ActiveUserSessions(_ context.Context, userID int64) ([]*authdom.Session, error) {
	var out []*authdom.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	return out, nil
}

type captureSink struct {
	entries []*audit.Entry
}

func (s *captureSink) Append(_ context.Context, e *audit.Entry, _, _ []byte) error {
	s.entries = append(s.entries, e)
	return nil
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

type authFixture struct {
	users    *stubUsers
	limiter  *stubLimiter
	sessRepo *stubSessionRepo
	sink     *captureSink
	svc      *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	f := &authFixture{
		users:    &stubUsers{byEmail: map[string]*user.User{}},
		limiter:  &stubLimiter{allowed: true},
		sessRepo: newStubSessionRepo(),
		sink:     &captureSink{},
	}
	logger := zap.NewNop()
	store := session.NewStore(f.sessRepo, nil, time.Hour, logger)
	roles := &stubRoles{perms: map[int64]map[string]role.Permission{
		5: {role.ModuleClients: {Module: role.ModuleClients, CanView: true}},
	}}
	f.svc = NewAuthService(f.users, roles, store, f.limiter, auditsvc.NewRecorder(f.sink, logger), logger)
	f.users.byEmail["jane@billhub.test"] = &user.User{
		ID:           7,
		Username:     "jane",
		Email:        "jane@billhub.test",
		PasswordHash: mustHash(t, "correct horse"),
		RoleID:       5,
		RoleName:     "Billing Admin",
		Status:       user.StatusActive,
	}
	return f
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials open a session", func(t *testing.T) {
		f := newAuthFixture(t)

		res, err := f.svc.Login(ctx, &authdom.LoginRequest{Email: "jane@billhub.test", Password: "correct horse"})
		require.NoError(t, err)

		assert.Len(t, res.SessionID, session.TokenLength)
		assert.Equal(t, int(time.Hour.Seconds()), res.ExpiresIn)
		assert.Equal(t, int64(7), res.User.UserID)
		assert.True(t, res.Permissions[role.ModuleClients].CanView)

		assert.Contains(t, f.sessRepo.sessions, res.SessionID)
		assert.Equal(t, 1, f.limiter.resets)

		require.Len(t, f.sink.entries, 1)
		assert.Equal(t, audit.ActionLogin, f.sink.entries[0].ActionType)
	})

	t.Run("wrong password is unauthorized and leaves no session", func(t *testing.T) {
		f := newAuthFixture(t)

		_, err := f.svc.Login(ctx, &authdom.LoginRequest{Email: "jane@billhub.test", Password: "wrong"})
		assert.True(t, xerrors.Is(err, xerrors.ErrUnauthorized))
		assert.Empty(t, f.sessRepo.sessions)
		assert.Zero(t, f.limiter.resets)
	})

	t.Run("unknown email reads the same as a wrong password", func(t *testing.T) {
		f := newAuthFixture(t)

		_, err := f.svc.Login(ctx, &authdom.LoginRequest{Email: "nobody@billhub.test", Password: "whatever"})
		assert.True(t, xerrors.Is(err, xerrors.ErrUnauthorized))
	})

	t.Run("inactive account cannot log in even with the right password", func(t *testing.T) {
		f := newAuthFixture(t)
		f.users.byEmail["jane@billhub.test"].Status = user.StatusInactive

		_, err := f.svc.Login(ctx, &authdom.LoginRequest{Email: "jane@billhub.test", Password: "correct horse"})
		assert.True(t, xerrors.Is(err, xerrors.ErrUnauthorized))
		assert.Empty(t, f.sessRepo.sessions)
	})

	t.Run("login still works when redis is down", func(t *testing.T) {
		f := newAuthFixture(t)
		// The wiring hands the service a limiter without a backend when
		// Redis is unreachable; login must degrade, not fail.
		logger := zap.NewNop()
		store := session.NewStore(f.sessRepo, nil, time.Hour, logger)
		roles := &stubRoles{perms: map[int64]map[string]role.Permission{5: {}}}
		svc := NewAuthService(f.users, roles, store, session.NewRateLimiter(nil),
			auditsvc.NewRecorder(f.sink, logger), logger)

		res, err := svc.Login(ctx, &authdom.LoginRequest{Email: "jane@billhub.test", Password: "correct horse"})
		require.NoError(t, err)
		assert.Contains(t, f.sessRepo.sessions, res.SessionID)
	})

	t.Run("rate limited before credentials are even checked", func(t *testing.T) {
		f := newAuthFixture(t)
		f.limiter.allowed = false

		_, err := f.svc.Login(ctx, &authdom.LoginRequest{Email: "jane@billhub.test", Password: "correct horse"})
		assert.True(t, xerrors.Is(err, xerrors.ErrRateLimited))
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("rotates the hash and kills every session", func(t *testing.T) {
		f := newAuthFixture(t)
		res, err := f.svc.Login(ctx, &authdom.LoginRequest{Email: "jane@billhub.test", Password: "correct horse"})
		require.NoError(t, err)

		actor := audit.Actor{UserID: 7, SessionID: res.SessionID}
		err = f.svc.ChangePassword(ctx, actor, &authdom.ChangePasswordRequest{
			CurrentPassword: "correct horse",
			NewPassword:     "battery staple",
		})
		require.NoError(t, err)

		assert.Contains(t, f.users.updated[7], "password_hash")
		assert.Empty(t, f.sessRepo.sessions)
	})

	t.Run("wrong current password changes nothing", func(t *testing.T) {
		f := newAuthFixture(t)

		err := f.svc.ChangePassword(ctx, audit.Actor{UserID: 7}, &authdom.ChangePasswordRequest{
			CurrentPassword: "wrong",
			NewPassword:     "battery staple",
		})
		assert.True(t, xerrors.Is(err, xerrors.ErrUnauthorized))
		assert.Empty(t, f.users.updated)
	})
}

func TestRevokeSession(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	res, err := f.svc.Login(ctx, &authdom.LoginRequest{Email: "jane@billhub.test", Password: "correct horse"})
	require.NoError(t, err)

	t.Run("someone else's token reads as not found", func(t *testing.T) {
		err := f.svc.RevokeSession(ctx, 999, res.SessionID)
		assert.True(t, xerrors.Is(err, xerrors.ErrNotFound))
		assert.Contains(t, f.sessRepo.sessions, res.SessionID)
	})

	t.Run("own token is revoked", func(t *testing.T) {
		err := f.svc.RevokeSession(ctx, 7, res.SessionID)
		require.NoError(t, err)
		assert.NotContains(t, f.sessRepo.sessions, res.SessionID)
	})
}
