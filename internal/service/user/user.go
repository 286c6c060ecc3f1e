// internal/service/user/user.go
package user

import (
	"context"
	"time"

	"billhub-service/internal/domain/audit"
	"billhub-service/internal/domain/user"
	xerrors "billhub-service/internal/pkg/errors"
	"billhub-service/internal/pkg/session"
	"billhub-service/internal/repository/postgres"
	auditsvc "billhub-service/internal/service/audit"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func hashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", xerrors.Wrap(err, "failed to hash password")
	}
	return string(hash), nil
}

type UserService struct {
	repo     *postgres.UserRepository
	sessions *session.Store
	recorder *auditsvc.Recorder
	logger   *zap.Logger
}

func NewUserService(repo *postgres.UserRepository, sessions *session.Store, recorder *auditsvc.Recorder, logger *zap.Logger) *UserService {
	return &UserService{repo: repo, sessions: sessions, recorder: recorder, logger: logger}
}

func (s *UserService) Get(ctx context.Context, id int64) (*user.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, filters *user.ListFilters) ([]*user.User, int64, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *UserService) Create(ctx context.Context, actor audit.Actor, req *user.CreateUserRequest) (*user.User, error) {
	exists, err := s.repo.ExistsByEmailOrUsername(ctx, req.Email, req.Username, 0)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, xerrors.Wrap(xerrors.ErrConflict, "email or username already in use")
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = user.StatusActive
	}
	if status != user.StatusActive && status != user.StatusInactive {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "status must be active or inactive")
	}

	u := &user.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		RoleID:       req.RoleID,
		Status:       status,
	}
	id, err := s.repo.Create(ctx, u)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.recorder.RecordUserAction(ctx, actor, audit.ActionCreate, "user", id, created.Username,
		nil, snapshot(created))
	return created, nil
}

func (s *UserService) Update(ctx context.Context, actor audit.Actor, id int64, req *user.UpdateUserRequest) (*user.User, error) {
	before, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Username != nil {
		fields["username"] = *req.Username
	}
	if req.Email != nil {
		fields["email"] = *req.Email
	}
	if req.Username != nil || req.Email != nil {
		email, username := before.Email, before.Username
		if req.Email != nil {
			email = *req.Email
		}
		if req.Username != nil {
			username = *req.Username
		}
		exists, err := s.repo.ExistsByEmailOrUsername(ctx, email, username, id)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, xerrors.Wrap(xerrors.ErrConflict, "email or username already in use")
		}
	}
	if req.Password != nil {
		hash, err := hashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		fields["password_hash"] = hash
	}
	if req.RoleID != nil {
		fields["role_id"] = *req.RoleID
	}
	if req.Status != nil {
		if *req.Status != user.StatusActive && *req.Status != user.StatusInactive {
			return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "status must be active or inactive")
		}
		fields["status"] = *req.Status
	}
	if len(fields) == 0 {
		return before, nil
	}
	fields["updated_at"] = time.Now()

	if _, err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, err
	}

	after, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Deactivation and role changes force re-authentication everywhere.
	if !after.IsActive() || (req.RoleID != nil && *req.RoleID != before.RoleID) {
		if err := s.sessions.DestroyUserSessions(ctx, id); err != nil {
			s.logger.Warn("failed to revoke sessions for updated user", zap.Int64("user_id", id), zap.Error(err))
		}
	}

	s.recorder.RecordUserAction(ctx, actor, audit.ActionUpdate, "user", id, after.Username,
		snapshot(before), snapshot(after))
	return after, nil
}

// Deactivate flips a user to inactive and revokes every session they hold.
func (s *UserService) Deactivate(ctx context.Context, actor audit.Actor, id int64) error {
	if id == actor.UserID {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "cannot deactivate your own account")
	}

	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !u.IsActive() {
		return nil
	}

	if _, err := s.repo.Update(ctx, id, map[string]interface{}{
		"status":     user.StatusInactive,
		"updated_at": time.Now(),
	}); err != nil {
		return err
	}
	if err := s.sessions.DestroyUserSessions(ctx, id); err != nil {
		s.logger.Warn("failed to revoke sessions for deactivated user", zap.Int64("user_id", id), zap.Error(err))
	}

	s.recorder.RecordUserAction(ctx, actor, audit.ActionDeactivate, "user", id, u.Username,
		snapshot(u), map[string]string{"status": user.StatusInactive})
	return nil
}

func (s *UserService) Delete(ctx context.Context, actor audit.Actor, id int64) error {
	if id == actor.UserID {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "cannot delete your own account")
	}

	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.sessions.DestroyUserSessions(ctx, id); err != nil {
		s.logger.Warn("failed to revoke sessions for deleted user", zap.Int64("user_id", id), zap.Error(err))
	}
	if _, err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.recorder.RecordUserAction(ctx, actor, audit.ActionDelete, "user", id, u.Username,
		snapshot(u), nil)
	return nil
}

// snapshot is the audit view of a user; no credential material.
func snapshot(u *user.User) map[string]interface{} {
	return map[string]interface{}{
		"username": u.Username,
		"email":    u.Email,
		"role_id":  u.RoleID,
		"status":   u.Status,
	}
}
