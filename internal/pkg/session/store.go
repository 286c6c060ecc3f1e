// internal/pkg/session/store.go
package session

import (
	"context"
	"database/sql"
	"time"

	"billhub-service/internal/domain/auth"
	xerrors "billhub-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// DefaultTimeout is the session lifetime unless overridden by config.
const DefaultTimeout = 8 * time.Hour

// Repository is the persistence surface the store needs. Implemented by
// postgres.SessionRepository.
type Repository interface {
	CreateSession(ctx context.Context, s *auth.Session) error
	// LookupContext joins sessions against users and roles filtered by the
	// validity invariant. A miss returns (nil, nil).
	LookupContext(ctx context.Context, sessionID string, now time.Time) (*auth.SessionContext, error)
	TouchSession(ctx context.Context, sessionID string, now time.Time) error
	DeactivateSession(ctx context.Context, sessionID string) error
	DeactivateUserSessions(ctx context.Context, userID int64) (int64, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
	ExtendSession(ctx context.Context, sessionID string, expiresAt time.Time) (bool, error)
	ActiveUserSessions(ctx context.Context, userID int64) ([]*auth.Session, error)
}

// Store owns the session lifecycle: create, validate, extend, revoke, sweep.
// Per session: created -> active -> (extended)* -> destroyed | expired; there
// is no way back out of a terminal state short of a new login.
type Store struct {
	repo    Repository
	cache   *Cache
	timeout time.Duration
	logger  *zap.Logger
}

func NewStore(repo Repository, cache *Cache, timeout time.Duration, logger *zap.Logger) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Store{repo: repo, cache: cache, timeout: timeout, logger: logger}
}

// Timeout returns the configured session lifetime.
func (s *Store) Timeout() time.Duration {
	return s.timeout
}

// Create opens a new session for a user. Concurrent sessions per user are
// allowed; each token is independently valid and revocable.
func (s *Store) Create(ctx context.Context, userID int64, ip, userAgent string) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", xerrors.Wrap(err, "failed to generate session token")
	}

	now := time.Now()
	sess := &auth.Session{
		ID:           token,
		UserID:       userID,
		IPAddress:    sql.NullString{String: ip, Valid: ip != ""},
		UserAgent:    sql.NullString{String: userAgent, Valid: userAgent != ""},
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(s.timeout),
		IsActive:     true,
	}

	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return "", xerrors.Wrap(err, "failed to persist session")
	}
	return token, nil
}

// Validate resolves a token to a session context. Missing or unknown tokens
// return (nil, nil); only hard persistence failures surface as errors. On a
// hit the session's last_activity is refreshed.
func (s *Store) Validate(ctx context.Context, sessionID string) (*auth.SessionContext, error) {
	if sessionID == "" {
		return nil, nil
	}

	if sc := s.cache.Get(ctx, sessionID); sc != nil {
		go s.touch(sessionID)
		return sc, nil
	}

	sc, err := s.repo.LookupContext(ctx, sessionID, time.Now())
	if err != nil {
		return nil, xerrors.Wrap(err, "session lookup failed")
	}
	if sc == nil {
		return nil, nil
	}

	if err := s.repo.TouchSession(ctx, sessionID, time.Now()); err != nil {
		s.logger.Warn("failed to refresh session activity", zap.Error(err))
	}
	s.cache.Put(ctx, sc)
	return sc, nil
}

func (s *Store) touch(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.TouchSession(ctx, sessionID, time.Now()); err != nil {
		s.logger.Warn("failed to refresh session activity", zap.Error(err))
	}
}

// Destroy revokes a session. Idempotent: revoking an already-inactive or
// unknown session succeeds silently.
func (s *Store) Destroy(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.repo.DeactivateSession(ctx, sessionID); err != nil {
		return xerrors.Wrap(err, "failed to destroy session")
	}
	s.cache.Delete(ctx, sessionID)
	return nil
}

// DestroyUserSessions bulk-revokes every active session a user holds, e.g.
// after deactivation or a password change.
func (s *Store) DestroyUserSessions(ctx context.Context, userID int64) error {
	active, err := s.repo.ActiveUserSessions(ctx, userID)
	if err != nil {
		return xerrors.Wrap(err, "failed to list user sessions")
	}

	if _, err := s.repo.DeactivateUserSessions(ctx, userID); err != nil {
		return xerrors.Wrap(err, "failed to revoke user sessions")
	}
	for _, sess := range active {
		s.cache.Delete(ctx, sess.ID)
	}
	return nil
}

// CleanExpired bulk-marks expired sessions inactive. Run from the periodic
// sweep; it need not be linearizable with concurrent validations.
func (s *Store) CleanExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeactivateExpired(ctx, time.Now())
	if err != nil {
		return 0, xerrors.Wrap(err, "expired session sweep failed")
	}
	return n, nil
}

// Extend pushes a session's expiry forward by the full timeout from now.
// Only currently-active sessions extend; returns false otherwise.
func (s *Store) Extend(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	ok, err := s.repo.ExtendSession(ctx, sessionID, time.Now().Add(s.timeout))
	if err != nil {
		return false, xerrors.Wrap(err, "failed to extend session")
	}
	if ok {
		// Cached expiry is now stale; next validate re-reads from the DB.
		s.cache.Delete(ctx, sessionID)
	}
	return ok, nil
}

// UserSessions lists a user's active sessions, most recently used first.
func (s *Store) UserSessions(ctx context.Context, userID int64, currentID string) ([]auth.SessionSummary, error) {
	sessions, err := s.repo.ActiveUserSessions(ctx, userID)
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to list user sessions")
	}

	summaries := make([]auth.SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, auth.SessionSummary{
			SessionID:    sess.ID,
			IPAddress:    sess.IPAddress.String,
			UserAgent:    sess.UserAgent.String,
			CreatedAt:    sess.CreatedAt,
			LastActivity: sess.LastActivity,
			ExpiresAt:    sess.ExpiresAt,
			Current:      sess.ID == currentID,
		})
	}
	return summaries, nil
}
