// internal/service/auth/auth.go
package auth

import (
	"context"
	"time"

	"billhub-service/internal/domain/audit"
	"billhub-service/internal/domain/auth"
	"billhub-service/internal/domain/role"
	"billhub-service/internal/domain/user"
	xerrors "billhub-service/internal/pkg/errors"
	"billhub-service/internal/pkg/session"
	auditsvc "billhub-service/internal/service/audit"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserSource is the slice of the user repository the auth flow needs.
type UserSource interface {
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	FindByID(ctx context.Context, id int64) (*user.User, error)
	Update(ctx context.Context, id int64, fields map[string]interface{}) (int64, error)
}

// PermissionSource resolves a role's permission matrix.
type PermissionSource interface {
	PermissionsFor(ctx context.Context, roleID int64) (map[string]role.Permission, error)
}

// LoginLimiter throttles credential guessing. Satisfied by session.RateLimiter.
type LoginLimiter interface {
	CheckLoginAttempt(ctx context.Context, ip, email string) (bool, int64, error)
	ResetLoginAttempts(ctx context.Context, ip, email string) error
}

type AuthService struct {
	users    UserSource
	roles    PermissionSource
	sessions *session.Store
	limiter  LoginLimiter
	recorder *auditsvc.Recorder
	logger   *zap.Logger
}

func NewAuthService(users UserSource, roles PermissionSource, sessions *session.Store, limiter LoginLimiter, recorder *auditsvc.Recorder, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:    users,
		roles:    roles,
		sessions: sessions,
		limiter:  limiter,
		recorder: recorder,
		logger:   logger,
	}
}

// Login authenticates email/password and opens a session. Credential
// failures all collapse to ErrUnauthorized so the response does not reveal
// which half was wrong, and no session row is created.
func (s *AuthService) Login(ctx context.Context, req *auth.LoginRequest) (*auth.LoginResponse, error) {
	if s.limiter != nil {
		allowed, _, err := s.limiter.CheckLoginAttempt(ctx, req.IPAddress, req.Email)
		if err != nil {
			s.logger.Warn("login rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			return nil, xerrors.Wrap(xerrors.ErrRateLimited, "too many login attempts")
		}
	}

	u, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.Wrap(xerrors.ErrUnauthorized, "invalid credentials")
		}
		return nil, err
	}

	if !u.IsActive() {
		return nil, xerrors.Wrap(xerrors.ErrUnauthorized, "account is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, xerrors.Wrap(xerrors.ErrUnauthorized, "invalid credentials")
	}

	if s.limiter != nil {
		if err := s.limiter.ResetLoginAttempts(ctx, req.IPAddress, req.Email); err != nil {
			s.logger.Warn("failed to reset login attempts", zap.Error(err))
		}
	}

	token, err := s.sessions.Create(ctx, u.ID, req.IPAddress, req.UserAgent)
	if err != nil {
		return nil, err
	}

	perms, err := s.roles.PermissionsFor(ctx, u.RoleID)
	if err != nil {
		return nil, err
	}

	identity := auth.Identity{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		RoleID:   u.RoleID,
		RoleName: u.RoleName,
		Status:   u.Status,
	}

	s.recorder.RecordUserAction(ctx,
		audit.Actor{UserID: u.ID, SessionID: token, IPAddress: req.IPAddress, UserAgent: req.UserAgent},
		audit.ActionLogin, "session", 0, u.Username, nil, nil)

	s.logger.Info("user logged in",
		zap.Int64("user_id", u.ID),
		zap.String("email", u.Email),
	)

	return &auth.LoginResponse{
		SessionID:   token,
		ExpiresIn:   int(s.sessions.Timeout().Seconds()),
		User:        identity,
		Permissions: perms,
	}, nil
}

// Logout revokes the calling session.
func (s *AuthService) Logout(ctx context.Context, actor audit.Actor, username string) error {
	if err := s.sessions.Destroy(ctx, actor.SessionID); err != nil {
		return err
	}
	s.recorder.RecordUserAction(ctx, actor, audit.ActionLogout, "session", 0, username, nil, nil)
	return nil
}

// Me returns the caller's identity plus the effective permission matrix.
func (s *AuthService) Me(ctx context.Context, identity auth.Identity) (*auth.LoginResponse, error) {
	perms, err := s.roles.PermissionsFor(ctx, identity.RoleID)
	if err != nil {
		return nil, err
	}
	return &auth.LoginResponse{
		User:        identity,
		Permissions: perms,
	}, nil
}

// Sessions lists the caller's active sessions, newest activity first.
func (s *AuthService) Sessions(ctx context.Context, userID int64, currentSession string) ([]auth.SessionSummary, error) {
	return s.sessions.UserSessions(ctx, userID, currentSession)
}

// RevokeSession destroys one of the caller's own sessions. Revoking a
// session that is not theirs reports not-found rather than forbidden.
func (s *AuthService) RevokeSession(ctx context.Context, userID int64, sessionID string) error {
	owned, err := s.sessions.UserSessions(ctx, userID, "")
	if err != nil {
		return err
	}
	for _, sess := range owned {
		if sess.SessionID == sessionID {
			return s.sessions.Destroy(ctx, sessionID)
		}
	}
	return xerrors.Wrap(xerrors.ErrNotFound, "session not found")
}

// ChangePassword verifies the current credential, stores the new hash, and
// bulk-revokes the user's sessions so every device re-authenticates.
func (s *AuthService) ChangePassword(ctx context.Context, actor audit.Actor, req *auth.ChangePasswordRequest) error {
	u, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return xerrors.Wrap(xerrors.ErrUnauthorized, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return xerrors.Wrap(err, "failed to hash password")
	}

	if _, err := s.users.Update(ctx, u.ID, map[string]interface{}{
		"password_hash": string(hash),
		"updated_at":    time.Now(),
	}); err != nil {
		return err
	}

	if err := s.sessions.DestroyUserSessions(ctx, u.ID); err != nil {
		s.logger.Warn("failed to revoke sessions after password change", zap.Int64("user_id", u.ID), zap.Error(err))
	}

	s.recorder.RecordUserAction(ctx, actor, audit.ActionUpdate, "user", u.ID, u.Username,
		nil, map[string]string{"password": "changed"})
	return nil
}
