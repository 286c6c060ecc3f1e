// internal/pkg/dbx/executor.go
package dbx

import (
	"context"
	"fmt"
	"time"

	xerrors "billhub-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool the executor needs. Satisfied by
// *pgxpool.Pool and by transaction handles.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Row is a single result row keyed by column name.
type Row map[string]interface{}

// PageQuery describes one page of a filtered table scan. Pages are 1-based.
type PageQuery struct {
	Page      int
	Limit     int
	Where     string
	WhereArgs []interface{}
	OrderBy   string
	Select    string
}

// PageResult carries one page of rows plus the total match count.
type PageResult struct {
	Rows      []Row `json:"rows"`
	Total     int64 `json:"total"`
	Page      int   `json:"page"`
	Limit     int   `json:"limit"`
	PageCount int   `json:"page_count"`
}

const (
	defaultPageLimit = 20
	defaultTimeout   = 10 * time.Second
)

// Executor issues parameterized SQL against a pooled connection. All variable
// input travels as bound arguments; identifiers are validated before they are
// interpolated.
type Executor struct {
	db      Querier
	timeout time.Duration
}

func NewExecutor(db Querier) *Executor {
	return &Executor{db: db, timeout: defaultTimeout}
}

// WithTimeout overrides the per-statement timeout applied when the caller's
// context has no deadline of its own.
func (e *Executor) WithTimeout(d time.Duration) *Executor {
	e.timeout = d
	return e
}

func (e *Executor) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || e.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.timeout)
}

// GetOne runs a query expected to return at most one row. A miss returns
// (nil, nil), never an error.
func (e *Executor) GetOne(ctx context.Context, query string, args ...interface{}) (Row, error) {
	rows, err := e.GetMany(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// GetMany runs a query and materializes every row as a column-keyed map.
func (e *Executor) GetMany(ctx context.Context, query string, args ...interface{}) ([]Row, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()

	rows, err := e.db.Query(ctx, query, args...)
	if err != nil {
		return nil, dbErr("query failed", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := []Row{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, dbErr("failed to read row", err)
		}
		row := make(Row, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("row iteration failed", err)
	}
	return result, nil
}

// Exec runs a statement and returns the affected row count.
func (e *Executor) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()

	tag, err := e.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, dbErr("exec failed", err)
	}
	return tag.RowsAffected(), nil
}

// Insert builds and runs an INSERT from the field map, returning the new id.
func (e *Executor) Insert(ctx context.Context, table string, fields map[string]interface{}) (int64, error) {
	query, args, err := buildInsert(table, fields)
	if err != nil {
		return 0, err
	}

	ctx, cancel := e.bound(ctx)
	defer cancel()

	var id int64
	if err := e.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, dbErr(fmt.Sprintf("insert into %s failed", table), err)
	}
	return id, nil
}

// Update builds and runs an UPDATE from the field map, returning the affected
// row count. The where clause refers to whereArgs as $1..$n.
func (e *Executor) Update(ctx context.Context, table string, fields map[string]interface{}, where string, whereArgs ...interface{}) (int64, error) {
	query, args, err := buildUpdate(table, fields, where, whereArgs)
	if err != nil {
		return 0, err
	}
	return e.Exec(ctx, query, args...)
}

// Delete removes rows matching the where clause, returning the affected count.
func (e *Executor) Delete(ctx context.Context, table, where string, whereArgs ...interface{}) (int64, error) {
	if !validIdent(table) {
		return 0, xerrors.Wrap(xerrors.ErrInvalidInput, fmt.Sprintf("invalid table name %q", table))
	}
	query := fmt.Sprintf("DELETE FROM %s", table)
	if where != "" {
		query += " WHERE " + where
	}
	return e.Exec(ctx, query, whereArgs...)
}

// Paginate fetches one page of a table with a COUNT sharing the same WHERE
// clause. offset = (page-1)*limit, pageCount = ceil(total/limit).
func (e *Executor) Paginate(ctx context.Context, table string, q PageQuery) (*PageResult, error) {
	if !validIdent(table) {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, fmt.Sprintf("invalid table name %q", table))
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageLimit
	}
	if q.Select == "" {
		q.Select = "*"
	}
	if !validSelect(q.Select) {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, fmt.Sprintf("invalid select list %q", q.Select))
	}
	if q.OrderBy != "" && !validOrderBy(q.OrderBy) {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, fmt.Sprintf("invalid order by %q", q.OrderBy))
	}

	where := ""
	if q.Where != "" {
		where = " WHERE " + q.Where
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", table, where)

	ctx, cancel := e.bound(ctx)
	defer cancel()

	var total int64
	if err := e.db.QueryRow(ctx, countQuery, q.WhereArgs...).Scan(&total); err != nil {
		return nil, dbErr(fmt.Sprintf("count on %s failed", table), err)
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s", q.Select, table, where)
	if q.OrderBy != "" {
		query += " ORDER BY " + q.OrderBy
	}
	argPos := len(q.WhereArgs)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos+1, argPos+2)

	args := make([]interface{}, 0, argPos+2)
	args = append(args, q.WhereArgs...)
	args = append(args, q.Limit, (q.Page-1)*q.Limit)

	rows, err := e.GetMany(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &PageResult{
		Rows:      rows,
		Total:     total,
		Page:      q.Page,
		Limit:     q.Limit,
		PageCount: pageCount(total, q.Limit),
	}, nil
}

func pageCount(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// dbErr wraps a driver failure so callers can match ErrDatabase without the
// raw SQL or bound values leaking into the message.
func dbErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, xerrors.ErrDatabase, err)
}
