// internal/repository/postgres/client_repo.go
package postgres

import (
	"context"
	"fmt"
	"strings"

	"billhub-service/internal/domain/client"
	"billhub-service/internal/pkg/dbx"
	xerrors "billhub-service/internal/pkg/errors"

	"github.com/lib/pq"
)

type ClientRepository struct {
	exec *dbx.Executor
}

func NewClientRepository(exec *dbx.Executor) *ClientRepository {
	return &ClientRepository{exec: exec}
}

func scanClient(row dbx.Row) *client.Client {
	return &client.Client{
		ID:             asInt64(row["id"]),
		Name:           asString(row["name"]),
		ContactName:    asNullString(row["contact_name"]),
		ContactEmail:   asNullString(row["contact_email"]),
		ContactPhone:   asNullString(row["contact_phone"]),
		BillingStreet:  asNullString(row["billing_street"]),
		BillingCity:    asNullString(row["billing_city"]),
		BillingCountry: asNullString(row["billing_country"]),
		TaxNumber:      asNullString(row["tax_number"]),
		Notes:          asNullString(row["notes"]),
		Tags:           asStringSlice(row["tags"]),
		IsActive:       asBool(row["is_active"]),
		CreatedAt:      asTime(row["created_at"]),
		UpdatedAt:      asTime(row["updated_at"]),
	}
}

func (r *ClientRepository) FindByID(ctx context.Context, id int64) (*client.Client, error) {
	row, err := r.exec.GetOne(ctx, `SELECT * FROM clients WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, xerrors.ErrNotFound
	}
	return scanClient(row), nil
}

func (r *ClientRepository) Create(ctx context.Context, c *client.Client) (int64, error) {
	return r.exec.Insert(ctx, "clients", map[string]interface{}{
		"name":            c.Name,
		"contact_name":    c.ContactName,
		"contact_email":   c.ContactEmail,
		"contact_phone":   c.ContactPhone,
		"billing_street":  c.BillingStreet,
		"billing_city":    c.BillingCity,
		"billing_country": c.BillingCountry,
		"tax_number":      c.TaxNumber,
		"notes":           c.Notes,
		"tags":            pq.Array(c.Tags),
		"is_active":       c.IsActive,
	})
}

func (r *ClientRepository) Update(ctx context.Context, id int64, fields map[string]interface{}) (int64, error) {
	return r.exec.Update(ctx, "clients", fields, "id = $1", id)
}

func (r *ClientRepository) Delete(ctx context.Context, id int64) (int64, error) {
	return r.exec.Delete(ctx, "clients", "id = $1", id)
}

// HasInvoices guards deletion: clients with billing history are deactivated
// instead of removed.
func (r *ClientRepository) HasInvoices(ctx context.Context, id int64) (bool, error) {
	row, err := r.exec.GetOne(ctx, `SELECT id FROM invoices WHERE client_id = $1 LIMIT 1`, id)
	if err != nil {
		return false, err
	}
	return row != nil, nil
}

func (r *ClientRepository) List(ctx context.Context, filters *client.ListFilters) ([]*client.Client, int64, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(name ILIKE $%d OR contact_name ILIKE $%d OR contact_email ILIKE $%d)",
			argPos, argPos, argPos,
		))
		args = append(args, "%"+filters.Search+"%")
		argPos++
	}
	if filters.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argPos))
		args = append(args, *filters.IsActive)
		argPos++
	}
	if len(filters.Tags) > 0 {
		conditions = append(conditions, fmt.Sprintf("tags && $%d::text[]", argPos))
		args = append(args, pq.Array(filters.Tags))
		argPos++
	}

	page, err := r.exec.Paginate(ctx, "clients", dbx.PageQuery{
		Page:      filters.Page,
		Limit:     filters.Limit,
		Where:     strings.Join(conditions, " AND "),
		WhereArgs: args,
		OrderBy:   "name",
	})
	if err != nil {
		return nil, 0, 0, err
	}

	clients := make([]*client.Client, 0, len(page.Rows))
	for _, row := range page.Rows {
		clients = append(clients, scanClient(row))
	}
	return clients, page.Total, page.PageCount, nil
}
