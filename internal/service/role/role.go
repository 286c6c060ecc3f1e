// internal/service/role/role.go
package role

import (
	"context"
	"time"

	"billhub-service/internal/domain/audit"
	"billhub-service/internal/domain/role"
	xerrors "billhub-service/internal/pkg/errors"
	"billhub-service/internal/repository/postgres"
	auditsvc "billhub-service/internal/service/audit"

	"go.uber.org/zap"
)

type RoleService struct {
	repo     *postgres.RoleRepository
	users    *postgres.UserRepository
	recorder *auditsvc.Recorder
	logger   *zap.Logger
}

func NewRoleService(repo *postgres.RoleRepository, users *postgres.UserRepository, recorder *auditsvc.Recorder, logger *zap.Logger) *RoleService {
	return &RoleService{repo: repo, users: users, recorder: recorder, logger: logger}
}

func (s *RoleService) Get(ctx context.Context, id int64) (*role.Role, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *RoleService) List(ctx context.Context, filters *role.ListFilters) ([]*role.Role, int64, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *RoleService) Create(ctx context.Context, actor audit.Actor, req *role.CreateRoleRequest) (*role.Role, error) {
	if req.Name == role.SuperAdminName {
		return nil, xerrors.Wrap(xerrors.ErrConflict, "role name is reserved")
	}
	if _, err := s.repo.FindByName(ctx, req.Name); err == nil {
		return nil, xerrors.Wrap(xerrors.ErrConflict, "role already exists")
	} else if !xerrors.Is(err, xerrors.ErrNotFound) {
		return nil, err
	}
	if err := validateMatrix(req.Permissions); err != nil {
		return nil, err
	}

	id, err := s.repo.Create(ctx, &role.Role{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
	})
	if err != nil {
		return nil, err
	}

	created, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.recorder.RecordUserAction(ctx, actor, audit.ActionCreate, "role", id, created.Name, nil, created)
	return created, nil
}

func (s *RoleService) Update(ctx context.Context, actor audit.Actor, id int64, req *role.UpdateRoleRequest) (*role.Role, error) {
	before, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if before.IsSuperAdmin() && req.Name != nil && *req.Name != role.SuperAdminName {
		return nil, xerrors.Wrap(xerrors.ErrForbidden, "the super admin role cannot be renamed")
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["role_name"] = *req.Name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if len(fields) > 0 {
		fields["updated_at"] = time.Now()
		if _, err := s.repo.Update(ctx, id, fields); err != nil {
			return nil, err
		}
	}

	// Replace drops the old rows before inserting the new ones. A mid-write
	// failure can leave the matrix short, never mixed with stale grants, and
	// missing rows deny.
	if req.Permissions != nil {
		if err := validateMatrix(req.Permissions); err != nil {
			return nil, err
		}
		if err := s.repo.ReplacePermissions(ctx, id, req.Permissions); err != nil {
			return nil, err
		}
	}

	after, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.recorder.RecordUserAction(ctx, actor, audit.ActionUpdate, "role", id, after.Name, before, after)
	return after, nil
}

// Delete removes a role. Roles with assigned users, and the super admin
// role, are not deletable.
func (s *RoleService) Delete(ctx context.Context, actor audit.Actor, id int64) error {
	rl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if rl.IsSuperAdmin() {
		return xerrors.Wrap(xerrors.ErrForbidden, "the super admin role cannot be deleted")
	}

	n, err := s.users.CountByRole(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return xerrors.Wrap(xerrors.ErrConflict, "role still has assigned users")
	}

	if _, err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.recorder.RecordUserAction(ctx, actor, audit.ActionDelete, "role", id, rl.Name, rl, nil)
	return nil
}

func validateMatrix(perms map[string]role.Permission) error {
	known := map[string]bool{
		role.ModuleUsers:    true,
		role.ModuleRoles:    true,
		role.ModuleClients:  true,
		role.ModuleInvoices: true,
	}
	for module := range perms {
		if !known[module] {
			return xerrors.Wrap(xerrors.ErrInvalidInput, "unknown module "+module)
		}
	}
	return nil
}
