// internal/domain/invoice/dto.go
package invoice

import "time"

type CreateInvoiceRequest struct {
	ClientID int64      `json:"client_id" binding:"required"`
	Currency string     `json:"currency"`
	Items    []LineItem `json:"items" binding:"required,min=1"`
	DueAt    *time.Time `json:"due_at"`
	Notes    string     `json:"notes"`
}

type UpdateInvoiceRequest struct {
	Items []LineItem `json:"items,omitempty"`
	DueAt *time.Time `json:"due_at,omitempty"`
	Notes *string    `json:"notes,omitempty"`
}

type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
}

type ListFilters struct {
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
	ClientID int64  `form:"client_id"`
	Status   string `form:"status"`
	Search   string `form:"search"`
}
