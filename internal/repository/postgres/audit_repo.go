// internal/repository/postgres/audit_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"billhub-service/internal/domain/audit"
	"billhub-service/internal/pkg/dbx"
)

// AuditRepository appends to and reads from the audit trail. Rows are
// write-once; there is deliberately no update or delete here.
type AuditRepository struct {
	exec *dbx.Executor
}

func NewAuditRepository(exec *dbx.Executor) *AuditRepository {
	return &AuditRepository{exec: exec}
}

// Append writes one entry. Snapshots arrive pre-serialized.
func (r *AuditRepository) Append(ctx context.Context, e *audit.Entry, oldValues, newValues []byte) error {
	fields := map[string]interface{}{
		"action_type": e.ActionType,
		"entity_type": e.EntityType,
		"description": e.Description,
	}
	if e.UserID > 0 {
		fields["user_id"] = e.UserID
	}
	if e.EntityID > 0 {
		fields["entity_id"] = e.EntityID
	}
	if e.EntityName != "" {
		fields["entity_name"] = e.EntityName
	}
	if len(oldValues) > 0 {
		fields["old_values"] = oldValues
	}
	if len(newValues) > 0 {
		fields["new_values"] = newValues
	}
	if e.IPAddress != "" {
		fields["ip_address"] = e.IPAddress
	}
	if e.UserAgent != "" {
		fields["user_agent"] = e.UserAgent
	}
	if e.SessionID != "" {
		fields["session_id"] = e.SessionID
	}

	_, err := r.exec.Insert(ctx, "audit_logs", fields)
	return err
}

func (r *AuditRepository) List(ctx context.Context, filters *audit.ListFilters) ([]*audit.Entry, int64, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argPos := 1

	if filters.UserID > 0 {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argPos))
		args = append(args, filters.UserID)
		argPos++
	}
	if filters.EntityType != "" {
		conditions = append(conditions, fmt.Sprintf("entity_type = $%d", argPos))
		args = append(args, filters.EntityType)
		argPos++
	}
	if filters.ActionType != "" {
		conditions = append(conditions, fmt.Sprintf("action_type = $%d", argPos))
		args = append(args, filters.ActionType)
		argPos++
	}

	page, err := r.exec.Paginate(ctx, "audit_logs", dbx.PageQuery{
		Page:      filters.Page,
		Limit:     filters.Limit,
		Where:     strings.Join(conditions, " AND "),
		WhereArgs: args,
		OrderBy:   "created_at DESC",
	})
	if err != nil {
		return nil, 0, 0, err
	}

	entries := make([]*audit.Entry, 0, len(page.Rows))
	for _, row := range page.Rows {
		e := &audit.Entry{
			ID:          asInt64(row["id"]),
			UserID:      asInt64(row["user_id"]),
			ActionType:  asString(row["action_type"]),
			EntityType:  asString(row["entity_type"]),
			EntityID:    asInt64(row["entity_id"]),
			EntityName:  asString(row["entity_name"]),
			Description: asString(row["description"]),
			IPAddress:   asString(row["ip_address"]),
			UserAgent:   asString(row["user_agent"]),
			SessionID:   asString(row["session_id"]),
			CreatedAt:   asTime(row["created_at"]),
		}
		if raw := asBytes(row["old_values"]); len(raw) > 0 {
			e.OldValues = json.RawMessage(raw)
		}
		if raw := asBytes(row["new_values"]); len(raw) > 0 {
			e.NewValues = json.RawMessage(raw)
		}
		entries = append(entries, e)
	}
	return entries, page.Total, page.PageCount, nil
}
