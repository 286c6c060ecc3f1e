// internal/repository/postgres/invoice_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"billhub-service/internal/domain/invoice"
	"billhub-service/internal/pkg/dbx"
	xerrors "billhub-service/internal/pkg/errors"
)

type InvoiceRepository struct {
	exec *dbx.Executor
}

func NewInvoiceRepository(exec *dbx.Executor) *InvoiceRepository {
	return &InvoiceRepository{exec: exec}
}

func scanInvoice(row dbx.Row) (*invoice.Invoice, error) {
	inv := &invoice.Invoice{
		ID:         asInt64(row["id"]),
		Number:     asString(row["number"]),
		ClientID:   asInt64(row["client_id"]),
		ClientName: asString(row["client_name"]),
		Status:     asString(row["status"]),
		Currency:   asString(row["currency"]),
		TotalCents: asInt64(row["total_cents"]),
		IssuedAt:   asNullTime(row["issued_at"]),
		DueAt:      asNullTime(row["due_at"]),
		PaidAt:     asNullTime(row["paid_at"]),
		Notes:      asNullString(row["notes"]),
		CreatedBy:  asInt64(row["created_by"]),
		CreatedAt:  asTime(row["created_at"]),
		UpdatedAt:  asTime(row["updated_at"]),
	}

	if raw := asBytes(row["items"]); len(raw) > 0 {
		if err := json.Unmarshal(raw, &inv.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal invoice items: %w", err)
		}
	}
	return inv, nil
}

func (r *InvoiceRepository) FindByID(ctx context.Context, id int64) (*invoice.Invoice, error) {
	query := `
		SELECT i.*, c.name AS client_name
		FROM invoices i
		JOIN clients c ON c.id = i.client_id
		WHERE i.id = $1
	`
	row, err := r.exec.GetOne(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, xerrors.ErrNotFound
	}
	return scanInvoice(row)
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) (int64, error) {
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal invoice items: %w", err)
	}

	return r.exec.Insert(ctx, "invoices", map[string]interface{}{
		"number":      inv.Number,
		"client_id":   inv.ClientID,
		"status":      inv.Status,
		"currency":    inv.Currency,
		"items":       items,
		"total_cents": inv.TotalCents,
		"due_at":      inv.DueAt,
		"notes":       inv.Notes,
		"created_by":  inv.CreatedBy,
	})
}

func (r *InvoiceRepository) Update(ctx context.Context, id int64, fields map[string]interface{}) (int64, error) {
	return r.exec.Update(ctx, "invoices", fields, "id = $1", id)
}

func (r *InvoiceRepository) Delete(ctx context.Context, id int64) (int64, error) {
	return r.exec.Delete(ctx, "invoices", "id = $1", id)
}

func (r *InvoiceRepository) List(ctx context.Context, filters *invoice.ListFilters) ([]*invoice.Invoice, int64, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filters.ClientID > 0 {
		conditions = append(conditions, fmt.Sprintf("i.client_id = $%d", argPos))
		args = append(args, filters.ClientID)
		argPos++
	}
	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("i.status = $%d", argPos))
		args = append(args, filters.Status)
		argPos++
	}
	if filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(i.number ILIKE $%d OR c.name ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+filters.Search+"%")
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) AS n FROM invoices i JOIN clients c ON c.id = i.client_id" + where
	row, err := r.exec.GetOne(ctx, countQuery, args...)
	if err != nil {
		return nil, 0, 0, err
	}
	total := asInt64(row["n"])

	page := filters.Page
	if page < 1 {
		page = 1
	}
	limit := filters.Limit
	if limit < 1 {
		limit = 20
	}

	query := fmt.Sprintf(`
		SELECT i.*, c.name AS client_name
		FROM invoices i
		JOIN clients c ON c.id = i.client_id
		%s
		ORDER BY i.created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, argPos, argPos+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.exec.GetMany(ctx, query, args...)
	if err != nil {
		return nil, 0, 0, err
	}

	invoices := make([]*invoice.Invoice, 0, len(rows))
	for _, row := range rows {
		inv, err := scanInvoice(row)
		if err != nil {
			return nil, 0, 0, err
		}
		invoices = append(invoices, inv)
	}

	pageCount := int((total + int64(limit) - 1) / int64(limit))
	if total == 0 {
		pageCount = 0
	}
	return invoices, total, pageCount, nil
}
