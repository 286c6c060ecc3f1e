// internal/domain/auth/dto.go
package auth

import "billhub-service/internal/domain/role"

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`

	// Filled by the handler, not the client.
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

type LoginResponse struct {
	SessionID   string                            `json:"-"`
	ExpiresIn   int                               `json:"expires_in"`
	User        Identity                          `json:"user"`
	Permissions map[string]role.Permission        `json:"permissions"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}
