// internal/domain/user/dto.go
package user

type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	RoleID   int64  `json:"role_id" binding:"required"`
	Status   string `json:"status"`
}

type UpdateUserRequest struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	RoleID   *int64  `json:"role_id,omitempty"`
	Status   *string `json:"status,omitempty"`
}

type ListFilters struct {
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
	Search string `form:"search"`
	RoleID int64  `form:"role_id"`
	Status string `form:"status"`
}
