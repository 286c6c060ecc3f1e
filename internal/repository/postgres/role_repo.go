// internal/repository/postgres/role_repo.go
package postgres

import (
	"context"
	"fmt"
	"strings"

	"billhub-service/internal/domain/role"
	"billhub-service/internal/pkg/dbx"
	xerrors "billhub-service/internal/pkg/errors"
)

type RoleRepository struct {
	exec *dbx.Executor
}

func NewRoleRepository(exec *dbx.Executor) *RoleRepository {
	return &RoleRepository{exec: exec}
}

func scanRole(row dbx.Row) *role.Role {
	return &role.Role{
		ID:          asInt64(row["id"]),
		Name:        asString(row["role_name"]),
		Description: asString(row["description"]),
		Permissions: map[string]role.Permission{},
		CreatedAt:   asTime(row["created_at"]),
		UpdatedAt:   asTime(row["updated_at"]),
	}
}

func (r *RoleRepository) FindByID(ctx context.Context, id int64) (*role.Role, error) {
	row, err := r.exec.GetOne(ctx, `SELECT * FROM roles WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, xerrors.ErrNotFound
	}

	rl := scanRole(row)
	perms, err := r.PermissionsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	rl.Permissions = perms
	return rl, nil
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*role.Role, error) {
	row, err := r.exec.GetOne(ctx, `SELECT * FROM roles WHERE role_name = $1`, name)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, xerrors.ErrNotFound
	}
	return scanRole(row), nil
}

// PermissionsFor loads a role's full module matrix.
func (r *RoleRepository) PermissionsFor(ctx context.Context, roleID int64) (map[string]role.Permission, error) {
	rows, err := r.exec.GetMany(ctx, `
		SELECT module, can_view, can_create, can_edit, can_delete
		FROM role_permissions
		WHERE role_id = $1
	`, roleID)
	if err != nil {
		return nil, err
	}

	perms := make(map[string]role.Permission, len(rows))
	for _, row := range rows {
		p := role.Permission{
			Module:    asString(row["module"]),
			CanView:   asBool(row["can_view"]),
			CanCreate: asBool(row["can_create"]),
			CanEdit:   asBool(row["can_edit"]),
			CanDelete: asBool(row["can_delete"]),
		}
		perms[p.Module] = p
	}
	return perms, nil
}

// PermissionFor loads one (role, module) matrix row. Absent rows return
// (nil, nil): the guard fails closed on them.
func (r *RoleRepository) PermissionFor(ctx context.Context, roleID int64, module string) (*role.Permission, error) {
	row, err := r.exec.GetOne(ctx, `
		SELECT module, can_view, can_create, can_edit, can_delete
		FROM role_permissions
		WHERE role_id = $1 AND module = $2
	`, roleID, module)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return &role.Permission{
		Module:    asString(row["module"]),
		CanView:   asBool(row["can_view"]),
		CanCreate: asBool(row["can_create"]),
		CanEdit:   asBool(row["can_edit"]),
		CanDelete: asBool(row["can_delete"]),
	}, nil
}

func (r *RoleRepository) Create(ctx context.Context, rl *role.Role) (int64, error) {
	id, err := r.exec.Insert(ctx, "roles", map[string]interface{}{
		"role_name":   rl.Name,
		"description": rl.Description,
	})
	if err != nil {
		return 0, err
	}
	if err := r.ReplacePermissions(ctx, id, rl.Permissions); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *RoleRepository) Update(ctx context.Context, id int64, fields map[string]interface{}) (int64, error) {
	return r.exec.Update(ctx, "roles", fields, "id = $1", id)
}

// ReplacePermissions swaps a role's matrix wholesale: delete then insert,
// not transactional. An insert failure leaves fewer grants, never stale ones.
func (r *RoleRepository) ReplacePermissions(ctx context.Context, roleID int64, perms map[string]role.Permission) error {
	if _, err := r.exec.Delete(ctx, "role_permissions", "role_id = $1", roleID); err != nil {
		return err
	}
	for module, p := range perms {
		_, err := r.exec.Insert(ctx, "role_permissions", map[string]interface{}{
			"role_id":    roleID,
			"module":     module,
			"can_view":   p.CanView,
			"can_create": p.CanCreate,
			"can_edit":   p.CanEdit,
			"can_delete": p.CanDelete,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *RoleRepository) Delete(ctx context.Context, id int64) (int64, error) {
	if _, err := r.exec.Delete(ctx, "role_permissions", "role_id = $1", id); err != nil {
		return 0, err
	}
	return r.exec.Delete(ctx, "roles", "id = $1", id)
}

func (r *RoleRepository) List(ctx context.Context, filters *role.ListFilters) ([]*role.Role, int64, int, error) {
	conditions := []string{}
	args := []interface{}{}

	if filters.Search != "" {
		conditions = append(conditions, "role_name ILIKE $1")
		args = append(args, "%"+filters.Search+"%")
	}

	page, err := r.exec.Paginate(ctx, "roles", dbx.PageQuery{
		Page:      filters.Page,
		Limit:     filters.Limit,
		Where:     strings.Join(conditions, " AND "),
		WhereArgs: args,
		OrderBy:   "role_name",
	})
	if err != nil {
		return nil, 0, 0, err
	}

	roles := make([]*role.Role, 0, len(page.Rows))
	for _, row := range page.Rows {
		rl := scanRole(row)
		perms, err := r.PermissionsFor(ctx, rl.ID)
		if err != nil {
			return nil, 0, 0, err
		}
		rl.Permissions = perms
		roles = append(roles, rl)
	}

	if err := r.fillUserCounts(ctx, roles); err != nil {
		return nil, 0, 0, err
	}
	return roles, page.Total, page.PageCount, nil
}

func (r *RoleRepository) fillUserCounts(ctx context.Context, roles []*role.Role) error {
	if len(roles) == 0 {
		return nil
	}
	rows, err := r.exec.GetMany(ctx, `SELECT role_id, COUNT(*) AS n FROM users GROUP BY role_id`)
	if err != nil {
		return err
	}
	counts := make(map[int64]int64, len(rows))
	for _, row := range rows {
		counts[asInt64(row["role_id"])] = asInt64(row["n"])
	}
	for _, rl := range roles {
		rl.UserCount = counts[rl.ID]
	}
	return nil
}

// EnsureSuperAdminRole creates the unrestricted role if missing and returns
// its id.
func (r *RoleRepository) EnsureSuperAdminRole(ctx context.Context) (int64, error) {
	existing, err := r.FindByName(ctx, role.SuperAdminName)
	if err == nil {
		return existing.ID, nil
	}
	if !xerrors.Is(err, xerrors.ErrNotFound) {
		return 0, err
	}
	id, err := r.exec.Insert(ctx, "roles", map[string]interface{}{
		"role_name":   role.SuperAdminName,
		"description": "Unrestricted access to every module",
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create super admin role: %w", err)
	}
	return id, nil
}
