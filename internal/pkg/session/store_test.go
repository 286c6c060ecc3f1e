package session

import (
	"context"
	"testing"
	"time"

	"billhub-service/internal/domain/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRepo struct {
	sessions map[string]*auth.Session
	contexts map[string]*auth.SessionContext
	touched  []string
	err      error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		sessions: map[string]*auth.Session{},
		contexts: map[string]*auth.SessionContext{},
	}
}

func (r *stubRepo) CreateSession(_ context.Context, s *auth.Session) error {
	if r.err != nil {
		return r.err
	}
	r.sessions[s.ID] = s
	return nil
}

func (r *stubRepo) LookupContext(_ context.Context, id string, now time.Time) (*auth.SessionContext, error) {
	if r.err != nil {
		return nil, r.err
	}
	sess, ok := r.sessions[id]
	if !ok || !sess.IsActive || !sess.ExpiresAt.After(now) {
		return nil, nil
	}
	return r.contexts[id], nil
}

func (r *stubRepo) TouchSession(_ context.Context, id string, now time.Time) error {
	r.touched = append(r.touched, id)
	if s, ok := r.sessions[id]; ok {
		s.LastActivity = now
	}
	return nil
}

func (r *stubRepo) DeactivateSession(_ context.Context, id string) error {
	if r.err != nil {
		return r.err
	}
	if s, ok := r.sessions[id]; ok {
		s.IsActive = false
	}
	return nil
}

func (r *stubRepo) DeactivateUserSessions(_ context.Context, userID int64) (int64, error) {
	var n int64
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *stubRepo) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, s := range r.sessions {
		if s.IsActive && !s.ExpiresAt.After(now) {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r *stubRepo) ExtendSession(_ context.Context, id string, expiresAt time.Time) (bool, error) {
	s, ok := r.sessions[id]
	if !ok || !s.IsActive {
		return false, nil
	}
	s.ExpiresAt = expiresAt
	return true, nil
}

func (r *stubRepo) ActiveUserSessions(_ context.Context, userID int64) ([]*auth.Session, error) {
	var out []*auth.Session
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func newTestStore(repo Repository) *Store {
	return NewStore(repo, nil, DefaultTimeout, zap.NewNop())
}

func seed(repo *stubRepo, token string, userID int64, active bool, expiresIn time.Duration) {
	now := time.Now()
	repo.sessions[token] = &auth.Session{
		ID:           token,
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(expiresIn),
		IsActive:     active,
	}
	repo.contexts[token] = &auth.SessionContext{
		SessionID: token,
		User:      auth.Identity{UserID: userID, Username: "amara", RoleName: "Billing Admin", Status: "active"},
		ExpiresAt: now.Add(expiresIn),
	}
}

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	require.NoError(t, err)
	b, err := NewToken()
	require.NoError(t, err)

	assert.Len(t, a, TokenLength)
	assert.Len(t, b, TokenLength)
	assert.NotEqual(t, a, b)
}

func TestCreateProducesIndependentSessions(t *testing.T) {
	repo := newStubRepo()
	store := newTestStore(repo)

	t1, err := store.Create(context.Background(), 7, "10.0.0.1", "cli")
	require.NoError(t, err)
	t2, err := store.Create(context.Background(), 7, "10.0.0.2", "browser")
	require.NoError(t, err)

	assert.NotEqual(t, t1, t2)
	assert.True(t, repo.sessions[t1].IsActive)
	assert.True(t, repo.sessions[t2].IsActive)

	// Revoking one device leaves the other valid.
	require.NoError(t, store.Destroy(context.Background(), t1))
	assert.False(t, repo.sessions[t1].IsActive)
	assert.True(t, repo.sessions[t2].IsActive)
}

func TestValidate(t *testing.T) {
	t.Run("empty token is a miss, not an error", func(t *testing.T) {
		store := newTestStore(newStubRepo())
		sc, err := store.Validate(context.Background(), "")
		require.NoError(t, err)
		assert.Nil(t, sc)
	})

	t.Run("valid session returns joined role context and refreshes activity", func(t *testing.T) {
		repo := newStubRepo()
		seed(repo, "tok-valid", 7, true, time.Hour)
		store := newTestStore(repo)

		sc, err := store.Validate(context.Background(), "tok-valid")
		require.NoError(t, err)
		require.NotNil(t, sc)
		assert.Equal(t, "Billing Admin", sc.User.RoleName)
		assert.Contains(t, repo.touched, "tok-valid")
	})

	t.Run("expired session is a miss", func(t *testing.T) {
		repo := newStubRepo()
		seed(repo, "tok-old", 7, true, -time.Minute)
		store := newTestStore(repo)

		sc, err := store.Validate(context.Background(), "tok-old")
		require.NoError(t, err)
		assert.Nil(t, sc)
	})

	t.Run("revoked session is a miss", func(t *testing.T) {
		repo := newStubRepo()
		seed(repo, "tok-dead", 7, false, time.Hour)
		store := newTestStore(repo)

		sc, err := store.Validate(context.Background(), "tok-dead")
		require.NoError(t, err)
		assert.Nil(t, sc)
	})

	t.Run("repository failure surfaces", func(t *testing.T) {
		repo := newStubRepo()
		repo.err = assert.AnError
		store := newTestStore(repo)

		_, err := store.Validate(context.Background(), "tok")
		assert.Error(t, err)
	})
}

func TestDestroyIsIdempotent(t *testing.T) {
	repo := newStubRepo()
	seed(repo, "tok", 7, true, time.Hour)
	store := newTestStore(repo)

	require.NoError(t, store.Destroy(context.Background(), "tok"))
	assert.False(t, repo.sessions["tok"].IsActive)

	// Second revocation of the same id succeeds silently.
	require.NoError(t, store.Destroy(context.Background(), "tok"))
	assert.False(t, repo.sessions["tok"].IsActive)

	// As does revoking a token that never existed.
	require.NoError(t, store.Destroy(context.Background(), "never-issued"))
}

func TestDestroyUserSessions(t *testing.T) {
	repo := newStubRepo()
	seed(repo, "a", 7, true, time.Hour)
	seed(repo, "b", 7, true, time.Hour)
	seed(repo, "c", 9, true, time.Hour)
	store := newTestStore(repo)

	require.NoError(t, store.DestroyUserSessions(context.Background(), 7))
	assert.False(t, repo.sessions["a"].IsActive)
	assert.False(t, repo.sessions["b"].IsActive)
	assert.True(t, repo.sessions["c"].IsActive)
}

func TestExtend(t *testing.T) {
	repo := newStubRepo()
	seed(repo, "live", 7, true, time.Minute)
	seed(repo, "dead", 7, false, time.Minute)
	store := newTestStore(repo)

	before := repo.sessions["live"].ExpiresAt
	ok, err := store.Extend(context.Background(), "live")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, repo.sessions["live"].ExpiresAt.After(before))

	ok, err = store.Extend(context.Background(), "dead")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCleanExpired(t *testing.T) {
	repo := newStubRepo()
	seed(repo, "fresh", 7, true, time.Hour)
	seed(repo, "stale", 7, true, -time.Hour)
	store := newTestStore(repo)

	n, err := store.CleanExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.True(t, repo.sessions["fresh"].IsActive)
	assert.False(t, repo.sessions["stale"].IsActive)
}

func TestUserSessionsMarksCurrent(t *testing.T) {
	repo := newStubRepo()
	seed(repo, "a", 7, true, time.Hour)
	seed(repo, "b", 7, true, time.Hour)
	store := newTestStore(repo)

	summaries, err := store.UserSessions(context.Background(), 7, "b")
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	current := 0
	for _, s := range summaries {
		if s.Current {
			current++
			assert.Equal(t, "b", s.SessionID)
		}
	}
	assert.Equal(t, 1, current)
}
