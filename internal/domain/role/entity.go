// internal/domain/role/entity.go
package role

import "time"

// Action is an explicit permission action. Permission checks never build
// dynamic "can_<x>" keys; unknown actions fail closed.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionCreate, ActionEdit, ActionDelete:
		return true
	}
	return false
}

// Modules gated by the permission matrix.
const (
	ModuleUsers    = "users"
	ModuleRoles    = "roles"
	ModuleClients  = "clients"
	ModuleInvoices = "invoices"
)

// SuperAdminName is the role that bypasses every permission check.
const SuperAdminName = "Super Admin"

// Permission is one row of the matrix: what a role may do in one module.
type Permission struct {
	Module    string `json:"module"`
	CanView   bool   `json:"can_view"`
	CanCreate bool   `json:"can_create"`
	CanEdit   bool   `json:"can_edit"`
	CanDelete bool   `json:"can_delete"`
}

// Allows reports whether the permission grants the given action.
func (p Permission) Allows(action Action) bool {
	switch action {
	case ActionView:
		return p.CanView
	case ActionCreate:
		return p.CanCreate
	case ActionEdit:
		return p.CanEdit
	case ActionDelete:
		return p.CanDelete
	}
	return false
}

// Role with its per-module permission matrix.
type Role struct {
	ID          int64                 `json:"role_id"`
	Name        string                `json:"role_name"`
	Description string                `json:"description,omitempty"`
	Permissions map[string]Permission `json:"permissions"`
	UserCount   int64                 `json:"user_count,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// IsSuperAdmin reports whether this is the unrestricted role.
func (r *Role) IsSuperAdmin() bool {
	return r.Name == SuperAdminName
}
