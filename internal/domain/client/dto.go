// internal/domain/client/dto.go
package client

type CreateClientRequest struct {
	Name           string   `json:"name" binding:"required,min=2,max=200"`
	ContactName    string   `json:"contact_name"`
	ContactEmail   string   `json:"contact_email" binding:"omitempty,email"`
	ContactPhone   string   `json:"contact_phone"`
	BillingStreet  string   `json:"billing_street"`
	BillingCity    string   `json:"billing_city"`
	BillingCountry string   `json:"billing_country"`
	TaxNumber      string   `json:"tax_number"`
	Notes          string   `json:"notes"`
	Tags           []string `json:"tags"`
}

type UpdateClientRequest struct {
	Name           *string  `json:"name,omitempty"`
	ContactName    *string  `json:"contact_name,omitempty"`
	ContactEmail   *string  `json:"contact_email,omitempty" binding:"omitempty,email"`
	ContactPhone   *string  `json:"contact_phone,omitempty"`
	BillingStreet  *string  `json:"billing_street,omitempty"`
	BillingCity    *string  `json:"billing_city,omitempty"`
	BillingCountry *string  `json:"billing_country,omitempty"`
	TaxNumber      *string  `json:"tax_number,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	IsActive       *bool    `json:"is_active,omitempty"`
}

type ListFilters struct {
	Page     int      `form:"page"`
	Limit    int      `form:"limit"`
	Search   string   `form:"search"`
	Tags     []string `form:"tags"`
	IsActive *bool    `form:"is_active"`
}
