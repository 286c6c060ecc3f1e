// internal/domain/auth/entity.go
package auth

import (
	"database/sql"
	"time"
)

// Session is the server-side record behind an opaque client-held token.
// A session authorizes a request only while is_active is true, expires_at is
// in the future, and the owning user is still active.
type Session struct {
	ID           string         `json:"session_id"`
	UserID       int64          `json:"user_id"`
	IPAddress    sql.NullString `json:"ip_address"`
	UserAgent    sql.NullString `json:"user_agent"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActivity time.Time      `json:"last_activity"`
	ExpiresAt    time.Time      `json:"expires_at"`
	IsActive     bool           `json:"is_active"`
}

// Identity is the user view attached to a validated session.
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	RoleID   int64  `json:"role_id"`
	RoleName string `json:"role_name"`
	Status   string `json:"status"`
}

// SessionContext is what session validation hands to the middleware chain.
type SessionContext struct {
	SessionID string    `json:"session_id"`
	User      Identity  `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionSummary backs the "manage my devices" listing.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
	Current      bool      `json:"current"`
}
