package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Tx is the query surface shared by pgx.Tx and *pgxpool.Pool so repositories
// can run against either without knowing which one the context carries.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Join concatenates SQL fragments with single spaces, skipping empties.
func Join(parts ...string) string {
	filtered := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			filtered = append(filtered, p)
		}
	}
	return strings.Join(filtered, " ")
}

// JoinWhere renders a WHERE clause from the given conditions, AND-joined.
// Returns the empty string when no conditions are present.
func JoinWhere(conditions ...string) string {
	filtered := make([]string, 0, len(conditions))
	for _, c := range conditions {
		if strings.TrimSpace(c) != "" {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(filtered, " AND ")
}

// BatchInsertQueryN renders a multi-row VALUES clause for the given base
// INSERT statement, numbering placeholders from $1.
func BatchInsertQueryN(baseQuery string, rows [][]any) (string, []any) {
	if len(rows) == 0 {
		return baseQuery, nil
	}
	var (
		sb   strings.Builder
		args = make([]any, 0, len(rows)*len(rows[0]))
		n    = 1
	)
	sb.WriteString(baseQuery)
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(" (")
		for j := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", n)
			n++
		}
		sb.WriteString(")")
		args = append(args, row...)
	}
	return sb.String(), args
}
