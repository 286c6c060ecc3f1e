// internal/service/audit/recorder.go
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"billhub-service/internal/domain/audit"

	"go.uber.org/zap"
)

// Sink is the append-only persistence surface. Implemented by
// postgres.AuditRepository.
type Sink interface {
	Append(ctx context.Context, e *audit.Entry, oldValues, newValues []byte) error
}

// Recorder writes the audit trail. Failures are swallowed and logged:
// telemetry degradation must never fail the mutation it records.
type Recorder struct {
	sink   Sink
	logger *zap.Logger
}

func NewRecorder(sink Sink, logger *zap.Logger) *Recorder {
	return &Recorder{sink: sink, logger: logger}
}

// Record persists one entry, serializing the value snapshots to JSON first.
func (r *Recorder) Record(ctx context.Context, e *audit.Entry) {
	oldValues, err := marshalSnapshot(e.OldValues)
	if err != nil {
		r.logger.Warn("failed to serialize audit old values", zap.Error(err))
	}
	newValues, err := marshalSnapshot(e.NewValues)
	if err != nil {
		r.logger.Warn("failed to serialize audit new values", zap.Error(err))
	}

	if err := r.sink.Append(ctx, e, oldValues, newValues); err != nil {
		r.logger.Warn("audit write failed",
			zap.String("action_type", e.ActionType),
			zap.String("entity_type", e.EntityType),
			zap.Int64("entity_id", e.EntityID),
			zap.Error(err),
		)
	}
}

// RecordUserAction composes the conventional "<action> <entity>: <name>"
// entry from an explicit actor plus snapshots.
func (r *Recorder) RecordUserAction(ctx context.Context, actor audit.Actor, action, entityType string, entityID int64, entityName string, oldValues, newValues interface{}) {
	r.Record(ctx, &audit.Entry{
		UserID:      actor.UserID,
		ActionType:  action,
		EntityType:  entityType,
		EntityID:    entityID,
		EntityName:  entityName,
		Description: fmt.Sprintf("%s %s: %s", action, entityType, entityName),
		OldValues:   oldValues,
		NewValues:   newValues,
		IPAddress:   actor.IPAddress,
		UserAgent:   actor.UserAgent,
		SessionID:   actor.SessionID,
	})
}

func marshalSnapshot(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
