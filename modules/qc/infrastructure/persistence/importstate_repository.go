package persistence

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/entities/importstate"
	"github.com/hikari-opt/lens-qc/pkg/composables"
)

const (
	importStateGetQuery = `SELECT imported_at FROM set_mst WHERE id = 1`

	importStateSetQuery = `
        INSERT INTO set_mst (id, imported_at) VALUES (1, $1)
        ON CONFLICT (id) DO UPDATE SET imported_at = EXCLUDED.imported_at`
)

type PgImportStateRepository struct{}

func NewImportStateRepository() importstate.Repository {
	return &PgImportStateRepository{}
}

func (g *PgImportStateRepository) Get(ctx context.Context) (*importstate.State, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	state := &importstate.State{}
	err = tx.QueryRow(ctx, importStateGetQuery).Scan(&state.ImportedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read import state")
	}
	return state, nil
}

func (g *PgImportStateRepository) SetImportedAt(ctx context.Context, at time.Time) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	if _, err := tx.Exec(ctx, importStateSetQuery, at); err != nil {
		return errors.Wrap(err, "failed to write import state")
	}
	return nil
}
