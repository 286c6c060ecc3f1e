// internal/domain/invoice/entity.go
package invoice

import (
	"database/sql"
	"time"
)

// Invoice statuses. Transitions: draft -> sent -> paid; draft/sent -> void.
const (
	StatusDraft = "draft"
	StatusSent  = "sent"
	StatusPaid  = "paid"
	StatusVoid  = "void"
)

// CanTransition reports whether an invoice may move from one status to another.
func CanTransition(from, to string) bool {
	switch from {
	case StatusDraft:
		return to == StatusSent || to == StatusVoid
	case StatusSent:
		return to == StatusPaid || to == StatusVoid
	}
	return false
}

// LineItem is one billed position. Amounts are integer cents.
type LineItem struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitCents   int64  `json:"unit_cents"`
}

// TotalCents is the line total.
func (li LineItem) TotalCents() int64 {
	return li.Quantity * li.UnitCents
}

type Invoice struct {
	ID         int64          `json:"invoice_id"`
	Number     string         `json:"number"`
	ClientID   int64          `json:"client_id"`
	ClientName string         `json:"client_name,omitempty"`
	Status     string         `json:"status"`
	Currency   string         `json:"currency"`
	Items      []LineItem     `json:"items"`
	TotalCents int64          `json:"total_cents"`
	IssuedAt   sql.NullTime   `json:"issued_at"`
	DueAt      sql.NullTime   `json:"due_at"`
	PaidAt     sql.NullTime   `json:"paid_at"`
	Notes      sql.NullString `json:"notes"`
	CreatedBy  int64          `json:"created_by"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Total sums the line items.
func Total(items []LineItem) int64 {
	var total int64
	for _, li := range items {
		total += li.TotalCents()
	}
	return total
}
