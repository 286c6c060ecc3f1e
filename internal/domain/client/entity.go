// internal/domain/client/entity.go
package client

import (
	"database/sql"
	"time"
)

// Client is a billable customer account.
type Client struct {
	ID            int64          `json:"client_id"`
	Name          string         `json:"name"`
	ContactName   sql.NullString `json:"contact_name"`
	ContactEmail  sql.NullString `json:"contact_email"`
	ContactPhone  sql.NullString `json:"contact_phone"`
	BillingStreet sql.NullString `json:"billing_street"`
	BillingCity   sql.NullString `json:"billing_city"`
	BillingCountry sql.NullString `json:"billing_country"`
	TaxNumber     sql.NullString `json:"tax_number"`
	Notes         sql.NullString `json:"notes"`
	Tags          []string       `json:"tags"`
	IsActive      bool           `json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
