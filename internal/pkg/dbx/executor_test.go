package dbx

import (
	"context"
	"testing"
	"time"

	xerrors "billhub-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type capturedQuery struct {
	sql      string
	args     []interface{}
	deadline time.Time
}

type fakeQuerier struct {
	queries  []capturedQuery
	rows     *fakeRows
	scanVals []interface{}
	affected int64
	err      error
}

func (f *fakeQuerier) capture(ctx context.Context, sql string, args []interface{}) {
	deadline, _ := ctx.Deadline()
	f.queries = append(f.queries, capturedQuery{sql: sql, args: args, deadline: deadline})
}

func (f *fakeQuerier) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	f.capture(ctx, sql, args)
	if f.err != nil {
		return nil, f.err
	}
	if f.rows == nil {
		return &fakeRows{}, nil
	}
	return f.rows.reset(), nil
}

func (f *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	f.capture(ctx, sql, args)
	return &fakeRow{vals: f.scanVals, err: f.err}
}

func (f *fakeQuerier) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	f.capture(ctx, sql, args)
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag("UPDATE " + itoa(f.affected)), nil
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	return string(b)
}

type fakeRow struct {
	vals []interface{}
	err  error
}

func (r *fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	for i := range dest {
		if i < len(r.vals) {
			if p, ok := dest[i].(*int64); ok {
				*p = r.vals[i].(int64)
			}
		}
	}
	return nil
}

type fakeRows struct {
	cols []string
	data [][]interface{}
	pos  int
}

func (r *fakeRows) reset() *fakeRows                 { r.pos = 0; return r }
func (r *fakeRows) Close()                           {}
func (r *fakeRows) Err() error                       { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag    { return pgconn.CommandTag{} }
func (r *fakeRows) RawValues() [][]byte              { return nil }
func (r *fakeRows) Conn() *pgx.Conn                  { return nil }
func (r *fakeRows) Scan(dest ...interface{}) error   { return nil }
func (r *fakeRows) Next() bool                       { r.pos++; return r.pos <= len(r.data) }
func (r *fakeRows) Values() ([]interface{}, error)   { return r.data[r.pos-1], nil }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(r.cols))
	for i, c := range r.cols {
		fds[i] = pgconn.FieldDescription{Name: c}
	}
	return fds
}

// ---- builder tests ----

func TestBuildInsert(t *testing.T) {
	t.Run("builds deterministic column order", func(t *testing.T) {
		sql, args, err := buildInsert("users", map[string]interface{}{
			"username": "amara",
			"email":    "amara@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO users (email, username) VALUES ($1, $2) RETURNING id", sql)
		assert.Equal(t, []interface{}{"amara@example.com", "amara"}, args)
	})

	t.Run("rejects empty field map", func(t *testing.T) {
		_, _, err := buildInsert("users", map[string]interface{}{})
		assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	})

	t.Run("rejects unsafe identifiers", func(t *testing.T) {
		_, _, err := buildInsert("users; DROP TABLE users", map[string]interface{}{"a": 1})
		assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

		_, _, err = buildInsert("users", map[string]interface{}{"email = '' --": 1})
		assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	})
}

func TestBuildUpdate(t *testing.T) {
	t.Run("shifts where placeholders past set args", func(t *testing.T) {
		sql, args, err := buildUpdate("sessions",
			map[string]interface{}{"is_active": false, "last_activity": "now"},
			"session_id = $1 AND user_id = $2",
			[]interface{}{"tok", int64(7)},
		)
		require.NoError(t, err)
		assert.Equal(t, "UPDATE sessions SET is_active = $1, last_activity = $2 WHERE session_id = $3 AND user_id = $4", sql)
		assert.Equal(t, []interface{}{false, "now", "tok", int64(7)}, args)
	})

	t.Run("rejects empty field map", func(t *testing.T) {
		_, _, err := buildUpdate("sessions", nil, "id = $1", []interface{}{1})
		assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	})
}

func TestValidOrderBy(t *testing.T) {
	assert.True(t, validOrderBy("created_at DESC"))
	assert.True(t, validOrderBy("last_activity desc, id"))
	assert.False(t, validOrderBy("created_at; DROP TABLE users"))
	assert.False(t, validOrderBy("created_at DESCENDING"))
}

// ---- executor tests ----

func TestGetOneMissReturnsNil(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{cols: []string{"id"}}}
	e := NewExecutor(q)

	row, err := e.GetOne(context.Background(), "SELECT id FROM users WHERE id = $1", 99)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestGetManyMapsColumns(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{
		cols: []string{"id", "username"},
		data: [][]interface{}{{int64(1), "amara"}, {int64(2), "kofi"}},
	}}
	e := NewExecutor(q)

	rows, err := e.GetMany(context.Background(), "SELECT id, username FROM users")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "amara", rows[0]["username"])
	assert.Equal(t, int64(2), rows[1]["id"])
}

func TestInsertReturnsNewID(t *testing.T) {
	q := &fakeQuerier{scanVals: []interface{}{int64(42)}}
	e := NewExecutor(q)

	id, err := e.Insert(context.Background(), "clients", map[string]interface{}{"name": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "INSERT INTO clients (name) VALUES ($1) RETURNING id", q.queries[0].sql)
}

func TestQueryErrorWrapsDatabaseSentinel(t *testing.T) {
	q := &fakeQuerier{err: assert.AnError}
	e := NewExecutor(q)

	_, err := e.GetMany(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, xerrors.ErrDatabase)
}

func TestPaginate(t *testing.T) {
	t.Run("second page uses offset and shares where clause", func(t *testing.T) {
		q := &fakeQuerier{
			scanVals: []interface{}{int64(45)},
			rows:     &fakeRows{cols: []string{"id"}, data: [][]interface{}{{int64(11)}}},
		}
		e := NewExecutor(q)

		res, err := e.Paginate(context.Background(), "invoices", PageQuery{
			Page:      2,
			Limit:     10,
			Where:     "status = $1",
			WhereArgs: []interface{}{"sent"},
			OrderBy:   "created_at DESC",
		})
		require.NoError(t, err)

		require.Len(t, q.queries, 2)
		assert.Equal(t, "SELECT COUNT(*) FROM invoices WHERE status = $1", q.queries[0].sql)
		assert.Equal(t, []interface{}{"sent"}, q.queries[0].args)
		assert.Equal(t, "SELECT * FROM invoices WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3", q.queries[1].sql)
		assert.Equal(t, []interface{}{"sent", 10, 10}, q.queries[1].args)

		assert.Equal(t, int64(45), res.Total)
		assert.Equal(t, 5, res.PageCount)
		assert.Equal(t, 2, res.Page)
	})

	t.Run("defaults page and limit", func(t *testing.T) {
		q := &fakeQuerier{scanVals: []interface{}{int64(0)}, rows: &fakeRows{cols: []string{"id"}}}
		e := NewExecutor(q)

		res, err := e.Paginate(context.Background(), "users", PageQuery{})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Page)
		assert.Equal(t, 20, res.Limit)
		assert.Equal(t, 0, res.PageCount)
	})

	t.Run("count and page query share one deadline", func(t *testing.T) {
		q := &fakeQuerier{
			scanVals: []interface{}{int64(3)},
			rows:     &fakeRows{cols: []string{"id"}, data: [][]interface{}{{int64(1)}}},
		}
		e := NewExecutor(q).WithTimeout(time.Minute)

		_, err := e.Paginate(context.Background(), "users", PageQuery{})
		require.NoError(t, err)

		require.Len(t, q.queries, 2)
		assert.False(t, q.queries[0].deadline.IsZero())
		assert.Equal(t, q.queries[0].deadline, q.queries[1].deadline)
	})

	t.Run("rejects hostile order by", func(t *testing.T) {
		e := NewExecutor(&fakeQuerier{})
		_, err := e.Paginate(context.Background(), "users", PageQuery{OrderBy: "id; DELETE FROM users"})
		assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	})
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 5, pageCount(45, 10))
	assert.Equal(t, 5, pageCount(50, 10))
	assert.Equal(t, 6, pageCount(51, 10))
	assert.Equal(t, 0, pageCount(0, 10))
}
