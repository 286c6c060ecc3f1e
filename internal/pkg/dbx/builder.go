// internal/pkg/dbx/builder.go
package dbx

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	xerrors "billhub-service/internal/pkg/errors"
)

var (
	identPattern       = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	placeholderPattern = regexp.MustCompile(`\$(\d+)`)
)

// validIdent reports whether s is safe to interpolate as a SQL identifier.
// Everything else must go through bound parameters.
func validIdent(s string) bool {
	return identPattern.MatchString(s)
}

// validOrderBy accepts comma-separated "column [ASC|DESC]" terms.
func validOrderBy(s string) bool {
	for _, term := range strings.Split(s, ",") {
		parts := strings.Fields(strings.TrimSpace(term))
		if len(parts) == 0 || len(parts) > 2 || !validIdent(parts[0]) {
			return false
		}
		if len(parts) == 2 {
			dir := strings.ToUpper(parts[1])
			if dir != "ASC" && dir != "DESC" {
				return false
			}
		}
	}
	return true
}

// validSelect accepts "*" or a comma-separated column list.
func validSelect(s string) bool {
	if s == "*" {
		return true
	}
	for _, col := range strings.Split(s, ",") {
		if !validIdent(strings.TrimSpace(col)) {
			return false
		}
	}
	return true
}

// sortedColumns returns the field map's keys in deterministic order.
func sortedColumns(fields map[string]interface{}) []string {
	cols := make([]string, 0, len(fields))
	for col := range fields {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// buildInsert renders an INSERT for the given field map.
func buildInsert(table string, fields map[string]interface{}) (string, []interface{}, error) {
	if len(fields) == 0 {
		return "", nil, xerrors.Wrap(xerrors.ErrInvalidInput, "insert requires at least one field")
	}
	if !validIdent(table) {
		return "", nil, xerrors.Wrap(xerrors.ErrInvalidInput, fmt.Sprintf("invalid table name %q", table))
	}

	cols := sortedColumns(fields)
	placeholders := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols))

	for i, col := range cols {
		if !validIdent(col) {
			return "", nil, xerrors.Wrap(xerrors.ErrInvalidInput, fmt.Sprintf("invalid column name %q", col))
		}
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, fields[col])
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)
	return query, args, nil
}

// buildUpdate renders an UPDATE for the given field map. The where clause is
// written against $1..$n of whereArgs; its placeholders are shifted past the
// SET arguments here.
func buildUpdate(table string, fields map[string]interface{}, where string, whereArgs []interface{}) (string, []interface{}, error) {
	if len(fields) == 0 {
		return "", nil, xerrors.Wrap(xerrors.ErrInvalidInput, "update requires at least one field")
	}
	if !validIdent(table) {
		return "", nil, xerrors.Wrap(xerrors.ErrInvalidInput, fmt.Sprintf("invalid table name %q", table))
	}

	cols := sortedColumns(fields)
	assignments := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols)+len(whereArgs))

	for i, col := range cols {
		if !validIdent(col) {
			return "", nil, xerrors.Wrap(xerrors.ErrInvalidInput, fmt.Sprintf("invalid column name %q", col))
		}
		assignments = append(assignments, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, fields[col])
	}
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s", table, strings.Join(assignments, ", "))
	if where != "" {
		query += " WHERE " + shiftPlaceholders(where, len(cols))
	}
	return query, args, nil
}

// shiftPlaceholders renumbers $1..$n placeholders by offset.
func shiftPlaceholders(clause string, offset int) string {
	return placeholderPattern.ReplaceAllStringFunc(clause, func(m string) string {
		var n int
		fmt.Sscanf(m, "$%d", &n)
		return fmt.Sprintf("$%d", n+offset)
	})
}
