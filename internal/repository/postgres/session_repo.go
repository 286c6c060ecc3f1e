// internal/repository/postgres/session_repo.go
package postgres

import (
	"context"
	"time"

	"billhub-service/internal/domain/auth"
	"billhub-service/internal/pkg/dbx"
)

// SessionRepository persists sessions through the query executor. It is the
// storage half of session.Store.
type SessionRepository struct {
	exec *dbx.Executor
}

func NewSessionRepository(exec *dbx.Executor) *SessionRepository {
	return &SessionRepository{exec: exec}
}

func (r *SessionRepository) CreateSession(ctx context.Context, s *auth.Session) error {
	_, err := r.exec.Insert(ctx, "sessions", map[string]interface{}{
		"session_id":    s.ID,
		"user_id":       s.UserID,
		"ip_address":    s.IPAddress,
		"user_agent":    s.UserAgent,
		"created_at":    s.CreatedAt,
		"last_activity": s.LastActivity,
		"expires_at":    s.ExpiresAt,
		"is_active":     s.IsActive,
	})
	return err
}

// LookupContext resolves a token against the validity invariant: the session
// must be active and unexpired, and its owner still an active user.
func (r *SessionRepository) LookupContext(ctx context.Context, sessionID string, now time.Time) (*auth.SessionContext, error) {
	query := `
		SELECT s.session_id, s.expires_at,
		       u.id AS user_id, u.username, u.email, u.role_id, u.status,
		       r.role_name
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		JOIN roles r ON r.id = u.role_id
		WHERE s.session_id = $1
		  AND s.is_active = TRUE
		  AND s.expires_at > $2
		  AND u.status = 'active'
	`

	row, err := r.exec.GetOne(ctx, query, sessionID, now)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}

	return &auth.SessionContext{
		SessionID: asString(row["session_id"]),
		ExpiresAt: asTime(row["expires_at"]),
		User: auth.Identity{
			UserID:   asInt64(row["user_id"]),
			Username: asString(row["username"]),
			Email:    asString(row["email"]),
			RoleID:   asInt64(row["role_id"]),
			RoleName: asString(row["role_name"]),
			Status:   asString(row["status"]),
		},
	}, nil
}

func (r *SessionRepository) TouchSession(ctx context.Context, sessionID string, now time.Time) error {
	_, err := r.exec.Update(ctx, "sessions",
		map[string]interface{}{"last_activity": now},
		"session_id = $1", sessionID)
	return err
}

func (r *SessionRepository) DeactivateSession(ctx context.Context, sessionID string) error {
	_, err := r.exec.Update(ctx, "sessions",
		map[string]interface{}{"is_active": false},
		"session_id = $1", sessionID)
	return err
}

func (r *SessionRepository) DeactivateUserSessions(ctx context.Context, userID int64) (int64, error) {
	return r.exec.Update(ctx, "sessions",
		map[string]interface{}{"is_active": false},
		"user_id = $1 AND is_active = TRUE", userID)
}

func (r *SessionRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.exec.Update(ctx, "sessions",
		map[string]interface{}{"is_active": false},
		"is_active = TRUE AND expires_at < $1", now)
}

func (r *SessionRepository) ExtendSession(ctx context.Context, sessionID string, expiresAt time.Time) (bool, error) {
	affected, err := r.exec.Update(ctx, "sessions",
		map[string]interface{}{"expires_at": expiresAt},
		"session_id = $1 AND is_active = TRUE AND expires_at > $2", sessionID, time.Now())
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *SessionRepository) ActiveUserSessions(ctx context.Context, userID int64) ([]*auth.Session, error) {
	query := `
		SELECT session_id, user_id, ip_address, user_agent,
		       created_at, last_activity, expires_at, is_active
		FROM sessions
		WHERE user_id = $1 AND is_active = TRUE AND expires_at > $2
		ORDER BY last_activity DESC
	`

	rows, err := r.exec.GetMany(ctx, query, userID, time.Now())
	if err != nil {
		return nil, err
	}

	sessions := make([]*auth.Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, &auth.Session{
			ID:           asString(row["session_id"]),
			UserID:       asInt64(row["user_id"]),
			IPAddress:    asNullString(row["ip_address"]),
			UserAgent:    asNullString(row["user_agent"]),
			CreatedAt:    asTime(row["created_at"]),
			LastActivity: asTime(row["last_activity"]),
			ExpiresAt:    asTime(row["expires_at"]),
			IsActive:     asBool(row["is_active"]),
		})
	}
	return sessions, nil
}
