// Package instruction is the daily production instruction: how many
// lenses of a product were ordered for a given day. The feed is
// insert-only; an existing (product, date) pair is never rewritten.
package instruction

import (
	"context"
	"time"
)

type Record struct {
	ProductID string
	Date      time.Time
	Qty       float64
}

type Repository interface {
	List(ctx context.Context) ([]*Record, error)
	// CreateIfAbsent inserts the record unless the (product, date) pair
	// already exists. The return reports whether a row was written.
	CreateIfAbsent(ctx context.Context, record *Record) (bool, error)
}
