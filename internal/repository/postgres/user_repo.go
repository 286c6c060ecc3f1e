// internal/repository/postgres/user_repo.go
package postgres

import (
	"context"
	"fmt"
	"strings"

	"billhub-service/internal/domain/user"
	"billhub-service/internal/pkg/dbx"
	xerrors "billhub-service/internal/pkg/errors"
)

type UserRepository struct {
	exec *dbx.Executor
}

func NewUserRepository(exec *dbx.Executor) *UserRepository {
	return &UserRepository{exec: exec}
}

const userColumns = `
	u.id, u.username, u.email, u.password_hash, u.role_id, u.status,
	u.created_at, u.updated_at, r.role_name
`

func scanUser(row dbx.Row) *user.User {
	return &user.User{
		ID:           asInt64(row["id"]),
		Username:     asString(row["username"]),
		Email:        asString(row["email"]),
		PasswordHash: asString(row["password_hash"]),
		RoleID:       asInt64(row["role_id"]),
		RoleName:     asString(row["role_name"]),
		Status:       asString(row["status"]),
		CreatedAt:    asTime(row["created_at"]),
		UpdatedAt:    asTime(row["updated_at"]),
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*user.User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users u JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1
	`, userColumns)

	row, err := r.exec.GetOne(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, xerrors.ErrNotFound
	}
	return scanUser(row), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users u JOIN roles r ON r.id = u.role_id
		WHERE LOWER(u.email) = LOWER($1)
	`, userColumns)

	row, err := r.exec.GetOne(ctx, query, email)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, xerrors.ErrNotFound
	}
	return scanUser(row), nil
}

func (r *UserRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string, excludeID int64) (bool, error) {
	row, err := r.exec.GetOne(ctx,
		`SELECT id FROM users WHERE (LOWER(email) = LOWER($1) OR username = $2) AND id <> $3 LIMIT 1`,
		email, username, excludeID)
	if err != nil {
		return false, err
	}
	return row != nil, nil
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) (int64, error) {
	return r.exec.Insert(ctx, "users", map[string]interface{}{
		"username":      u.Username,
		"email":         u.Email,
		"password_hash": u.PasswordHash,
		"role_id":       u.RoleID,
		"status":        u.Status,
	})
}

func (r *UserRepository) Update(ctx context.Context, id int64, fields map[string]interface{}) (int64, error) {
	return r.exec.Update(ctx, "users", fields, "id = $1", id)
}

func (r *UserRepository) Delete(ctx context.Context, id int64) (int64, error) {
	return r.exec.Delete(ctx, "users", "id = $1", id)
}

// List pages over users. The role name is resolved in a second lookup per
// page via roles join-free pagination on the users table.
func (r *UserRepository) List(ctx context.Context, filters *user.ListFilters) ([]*user.User, int64, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(username ILIKE $%d OR email ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+filters.Search+"%")
		argPos++
	}
	if filters.RoleID > 0 {
		conditions = append(conditions, fmt.Sprintf("role_id = $%d", argPos))
		args = append(args, filters.RoleID)
		argPos++
	}
	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, filters.Status)
		argPos++
	}

	page, err := r.exec.Paginate(ctx, "users", dbx.PageQuery{
		Page:      filters.Page,
		Limit:     filters.Limit,
		Where:     strings.Join(conditions, " AND "),
		WhereArgs: args,
		OrderBy:   "created_at DESC",
	})
	if err != nil {
		return nil, 0, 0, err
	}

	users := make([]*user.User, 0, len(page.Rows))
	for _, row := range page.Rows {
		u := scanUser(row)
		users = append(users, u)
	}

	if err := r.fillRoleNames(ctx, users); err != nil {
		return nil, 0, 0, err
	}
	return users, page.Total, page.PageCount, nil
}

func (r *UserRepository) fillRoleNames(ctx context.Context, users []*user.User) error {
	if len(users) == 0 {
		return nil
	}
	rows, err := r.exec.GetMany(ctx, `SELECT id, role_name FROM roles`)
	if err != nil {
		return err
	}
	names := make(map[int64]string, len(rows))
	for _, row := range rows {
		names[asInt64(row["id"])] = asString(row["role_name"])
	}
	for _, u := range users {
		u.RoleName = names[u.RoleID]
	}
	return nil
}

// CountByRole reports how many users hold a role, guarding role deletion.
func (r *UserRepository) CountByRole(ctx context.Context, roleID int64) (int64, error) {
	row, err := r.exec.GetOne(ctx, `SELECT COUNT(*) AS n FROM users WHERE role_id = $1`, roleID)
	if err != nil {
		return 0, err
	}
	return asInt64(row["n"]), nil
}
