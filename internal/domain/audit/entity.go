// internal/domain/audit/entity.go
package audit

import "time"

// Actor identifies who performed an audited action. It is passed explicitly
// from the middleware chain into services, never read off ambient state.
type Actor struct {
	UserID    int64  `json:"user_id"`
	SessionID string `json:"session_id"`
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}

// Entry is one append-only audit record. Entries are never mutated or
// deleted once written. UserID of zero records a system action.
type Entry struct {
	ID          int64       `json:"id"`
	UserID      int64       `json:"user_id,omitempty"`
	ActionType  string      `json:"action_type"`
	EntityType  string      `json:"entity_type"`
	EntityID    int64       `json:"entity_id,omitempty"`
	EntityName  string      `json:"entity_name,omitempty"`
	Description string      `json:"description"`
	OldValues   interface{} `json:"old_values,omitempty"`
	NewValues   interface{} `json:"new_values,omitempty"`
	IPAddress   string      `json:"ip_address,omitempty"`
	UserAgent   string      `json:"user_agent,omitempty"`
	SessionID   string      `json:"session_id,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Action types recorded by the services.
const (
	ActionCreate     = "create"
	ActionUpdate     = "update"
	ActionDelete     = "delete"
	ActionLogin      = "login"
	ActionLogout     = "logout"
	ActionDeactivate = "deactivate"
	ActionTransition = "transition"
)

// ListFilters narrows the audit trail listing.
type ListFilters struct {
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
	UserID     int64  `form:"user_id"`
	EntityType string `form:"entity_type"`
	ActionType string `form:"action_type"`
}
