// Package importstate models the shared feed-freshness row: a single
// timestamp recording when the primary lot feed was last taken in.
package importstate

import (
	"context"
	"time"
)

type State struct {
	ImportedAt *time.Time
}

type Repository interface {
	Get(ctx context.Context) (*State, error)
	SetImportedAt(ctx context.Context, at time.Time) error
}
