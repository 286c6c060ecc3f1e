// internal/middleware/auth_middleware.go
package middleware

import (
	"context"
	"net/http"

	"billhub-service/internal/domain/auth"
	"billhub-service/internal/domain/role"
	"billhub-service/internal/domain/user"
	xerrors "billhub-service/internal/pkg/errors"
	"billhub-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CookieName carries the opaque session token; X-Session-Token is the
// header fallback for non-browser clients.
const (
	CookieName  = "billhub_session"
	TokenHeader = "X-Session-Token"
)

// SessionValidator resolves and revokes session tokens. Satisfied by
// session.Store.
type SessionValidator interface {
	Validate(ctx context.Context, sessionID string) (*auth.SessionContext, error)
	Destroy(ctx context.Context, sessionID string) error
}

// UserSource re-checks the identity behind a session. Satisfied by
// postgres.UserRepository.
type UserSource interface {
	FindByID(ctx context.Context, id int64) (*user.User, error)
}

// PermissionSource looks up one (role, module) permission row; absent rows
// come back (nil, nil). Satisfied by postgres.RoleRepository.
type PermissionSource interface {
	PermissionFor(ctx context.Context, roleID int64, module string) (*role.Permission, error)
}

type AuthMiddleware struct {
	sessions    SessionValidator
	users       UserSource
	permissions PermissionSource
	logger      *zap.Logger
}

func NewAuthMiddleware(sessions SessionValidator, users UserSource, permissions PermissionSource, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		sessions:    sessions,
		users:       users,
		permissions: permissions,
		logger:      logger,
	}
}

// RequireAuth resolves the session token and attaches the caller's identity
// to the request context. An absent cookie/header is simply unauthenticated,
// never an error. A session whose user has vanished or gone inactive is
// destroyed on the spot.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, "Authentication required")
			return
		}

		sc, err := m.sessions.Validate(c.Request.Context(), token)
		if err != nil {
			m.logger.Error("session validation failed", zap.Error(err))
			response.Error(c, http.StatusServiceUnavailable, "Authentication temporarily unavailable", nil)
			return
		}
		if sc == nil {
			response.Unauthorized(c, "Invalid or expired session")
			return
		}

		// Secondary check: the join can race a deactivation, so look the
		// user up again and drop the stale session if they are gone.
		u, err := m.users.FindByID(c.Request.Context(), sc.User.UserID)
		if err != nil || !u.IsActive() {
			if err != nil && !xerrors.Is(err, xerrors.ErrNotFound) {
				m.logger.Error("user lookup failed during auth", zap.Error(err))
				response.Error(c, http.StatusServiceUnavailable, "Authentication temporarily unavailable", nil)
				return
			}
			if derr := m.sessions.Destroy(c.Request.Context(), token); derr != nil {
				m.logger.Warn("failed to destroy stale session", zap.Error(derr))
			}
			response.Unauthorized(c, "Invalid or expired session")
			return
		}

		setIdentity(c, sc.SessionID, sc.User)
		c.Next()
	}
}

// RequirePermission gates a handler on the caller's permission matrix.
// Super Admin bypasses the matrix unconditionally. MUST run after
// RequireAuth; it does not re-validate the session.
func (m *AuthMiddleware) RequirePermission(module string, action role.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			response.Unauthorized(c, "Authentication required")
			return
		}

		if identity.RoleName == role.SuperAdminName {
			c.Next()
			return
		}

		perm, err := m.permissions.PermissionFor(c.Request.Context(), identity.RoleID, module)
		if err != nil {
			m.logger.Error("permission lookup failed",
				zap.Int64("role_id", identity.RoleID),
				zap.String("module", module),
				zap.Error(err),
			)
			response.Error(c, http.StatusServiceUnavailable, "Authorization temporarily unavailable", nil)
			return
		}
		if perm == nil || !perm.Allows(action) {
			response.Forbidden(c, "Access denied")
			return
		}

		c.Next()
	}
}

// RequireRole gates a handler on role membership. MUST run after RequireAuth.
func (m *AuthMiddleware) RequireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			response.Unauthorized(c, "Authentication required")
			return
		}

		for _, name := range allowed {
			if identity.RoleName == name {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "Access denied")
	}
}

// RequireSuperAdmin restricts a handler to the unrestricted role.
func (m *AuthMiddleware) RequireSuperAdmin() gin.HandlerFunc {
	return m.RequireRole(role.SuperAdminName)
}

// extractToken reads the session cookie, falling back to the token header.
func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(CookieName); err == nil && cookie != "" {
		return cookie
	}
	return c.GetHeader(TokenHeader)
}
