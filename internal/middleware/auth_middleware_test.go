package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"billhub-service/internal/domain/auth"
	"billhub-service/internal/domain/role"
	"billhub-service/internal/domain/user"
	xerrors "billhub-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSessions struct {
	contexts  map[string]*auth.SessionContext
	destroyed []string
	err       error
}

func (s *stubSessions) Validate(_ context.Context, id string) (*auth.SessionContext, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.contexts[id], nil
}

func (s *stubSessions) Destroy(_ context.Context, id string) error {
	s.destroyed = append(s.destroyed, id)
	delete(s.contexts, id)
	return nil
}

type stubUsers struct {
	users map[int64]*user.User
}

func (s *stubUsers) FindByID(_ context.Context, id int64) (*user.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return u, nil
}

type stubPermissions struct {
	perms map[int64]map[string]role.Permission
	calls int
}

func (s *stubPermissions) PermissionFor(_ context.Context, roleID int64, module string) (*role.Permission, error) {
	s.calls++
	p, ok := s.perms[roleID][module]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

type fixture struct {
	sessions *stubSessions
	users    *stubUsers
	perms    *stubPermissions
	mw       *AuthMiddleware
}

func newFixture() *fixture {
	f := &fixture{
		sessions: &stubSessions{contexts: map[string]*auth.SessionContext{}},
		users:    &stubUsers{users: map[int64]*user.User{}},
		perms:    &stubPermissions{perms: map[int64]map[string]role.Permission{}},
	}
	f.mw = NewAuthMiddleware(f.sessions, f.users, f.perms, zap.NewNop())
	return f
}

func (f *fixture) addUser(id int64, roleID int64, roleName, status string) string {
	token := "tok-" + roleName
	f.users.users[id] = &user.User{ID: id, Username: "u", Email: "u@x.com", RoleID: roleID, RoleName: roleName, Status: status}
	f.sessions.contexts[token] = &auth.SessionContext{
		SessionID: token,
		User:      auth.Identity{UserID: id, Username: "u", Email: "u@x.com", RoleID: roleID, RoleName: roleName, Status: status},
		ExpiresAt: time.Now().Add(time.Hour),
	}
	return token
}

func serve(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/probe", chain...)
	return r
}

func do(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func envelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRequireAuth(t *testing.T) {
	t.Run("missing token is 401", func(t *testing.T) {
		f := newFixture()
		w := do(serve(f.mw.RequireAuth()), "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		body := envelope(t, w)
		assert.Equal(t, false, body["success"])
		assert.NotEmpty(t, body["timestamp"])
	})

	t.Run("unknown token is 401", func(t *testing.T) {
		f := newFixture()
		w := do(serve(f.mw.RequireAuth()), "no-such-token")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("header token works without cookie", func(t *testing.T) {
		f := newFixture()
		token := f.addUser(1, 1, "Billing Admin", user.StatusActive)

		r := serve(f.mw.RequireAuth())
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set(TokenHeader, token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("valid session attaches identity", func(t *testing.T) {
		f := newFixture()
		token := f.addUser(1, 1, "Billing Admin", user.StatusActive)

		var seen auth.Identity
		r := serve(f.mw.RequireAuth(), func(c *gin.Context) {
			seen, _ = CurrentIdentity(c)
			c.Next()
		})
		w := do(r, token)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(1), seen.UserID)
		assert.Equal(t, "Billing Admin", seen.RoleName)
	})

	t.Run("vanished user destroys the stale session", func(t *testing.T) {
		f := newFixture()
		token := f.addUser(1, 1, "Billing Admin", user.StatusActive)
		delete(f.users.users, 1)

		w := do(serve(f.mw.RequireAuth()), token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, f.sessions.destroyed, token)
	})

	t.Run("deactivated user destroys the stale session", func(t *testing.T) {
		f := newFixture()
		token := f.addUser(1, 1, "Billing Admin", user.StatusActive)
		f.users.users[1].Status = user.StatusInactive

		w := do(serve(f.mw.RequireAuth()), token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, f.sessions.destroyed, token)
	})

	t.Run("store failure is 503, not 401", func(t *testing.T) {
		f := newFixture()
		f.sessions.err = assert.AnError
		w := do(serve(f.mw.RequireAuth()), "tok")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestRequirePermission(t *testing.T) {
	t.Run("unauthenticated is 401", func(t *testing.T) {
		f := newFixture()
		// No RequireAuth upstream: the identity is simply absent.
		w := do(serve(f.mw.RequirePermission(role.ModuleClients, role.ActionView)), "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("super admin bypasses the matrix entirely", func(t *testing.T) {
		f := newFixture()
		token := f.addUser(1, 1, role.SuperAdminName, user.StatusActive)
		// No permission rows at all for this role.

		w := do(serve(f.mw.RequireAuth(), f.mw.RequirePermission(role.ModuleRoles, role.ActionDelete)), token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Zero(t, f.perms.calls)
	})

	t.Run("granted action passes", func(t *testing.T) {
		f := newFixture()
		token := f.addUser(2, 5, "Client Manager", user.StatusActive)
		f.perms.perms[5] = map[string]role.Permission{
			role.ModuleClients: {Module: role.ModuleClients, CanView: true, CanEdit: true},
		}

		w := do(serve(f.mw.RequireAuth(), f.mw.RequirePermission(role.ModuleClients, role.ActionEdit)), token)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("denied action is 403", func(t *testing.T) {
		f := newFixture()
		token := f.addUser(2, 5, "Client Manager", user.StatusActive)
		f.perms.perms[5] = map[string]role.Permission{
			role.ModuleClients: {Module: role.ModuleClients, CanView: true},
		}

		w := do(serve(f.mw.RequireAuth(), f.mw.RequirePermission(role.ModuleClients, role.ActionDelete)), token)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("absent module row fails closed with 403", func(t *testing.T) {
		f := newFixture()
		token := f.addUser(2, 5, "Client Manager", user.StatusActive)

		w := do(serve(f.mw.RequireAuth(), f.mw.RequirePermission(role.ModuleInvoices, role.ActionView)), token)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	t.Run("member of allowed set passes", func(t *testing.T) {
		f := newFixture()
		token := f.addUser(3, 6, "Client Manager", user.StatusActive)

		w := do(serve(f.mw.RequireAuth(), f.mw.RequireRole("Client Manager", "Billing Admin")), token)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("outside the allowed set is 403 access denied", func(t *testing.T) {
		f := newFixture()
		token := f.addUser(3, 6, "Auditor", user.StatusActive)

		w := do(serve(f.mw.RequireAuth(), f.mw.RequireRole("Client Manager")), token)
		assert.Equal(t, http.StatusForbidden, w.Code)

		body := envelope(t, w)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Access denied", body["message"])
	})

	t.Run("unauthenticated is 401", func(t *testing.T) {
		f := newFixture()
		w := do(serve(f.mw.RequireRole("Client Manager")), "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireSuperAdmin(t *testing.T) {
	f := newFixture()
	admin := f.addUser(1, 1, role.SuperAdminName, user.StatusActive)
	other := f.addUser(2, 5, "Billing Admin", user.StatusActive)

	r := serve(f.mw.RequireAuth(), f.mw.RequireSuperAdmin())
	assert.Equal(t, http.StatusOK, do(r, admin).Code)
	assert.Equal(t, http.StatusForbidden, do(r, other).Code)
}
