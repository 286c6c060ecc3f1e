// internal/domain/role/dto.go
package role

// CreateRoleRequest creates a role together with its permission matrix.
type CreateRoleRequest struct {
	Name        string                `json:"role_name" binding:"required,min=2,max=64"`
	Description string                `json:"description"`
	Permissions map[string]Permission `json:"permissions"`
}

// UpdateRoleRequest replaces the matrix atomically when Permissions is set.
type UpdateRoleRequest struct {
	Name        *string               `json:"role_name,omitempty"`
	Description *string               `json:"description,omitempty"`
	Permissions map[string]Permission `json:"permissions,omitempty"`
}

// ListFilters narrows role listings.
type ListFilters struct {
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
	Search string `form:"search"`
}
