package persistence

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/instruction"
	"github.com/hikari-opt/lens-qc/pkg/composables"
)

const (
	instructionFindQuery = `SELECT product_id, instr_date, qty FROM sji_dat`

	// ON CONFLICT DO NOTHING keeps the feed insert-only: a pair already
	// on file is never rewritten.
	instructionInsertQuery = `
        INSERT INTO sji_dat (product_id, instr_date, qty)
        VALUES ($1, $2, $3)
        ON CONFLICT (product_id, instr_date) DO NOTHING`
)

type PgInstructionRepository struct{}

func NewInstructionRepository() instruction.Repository {
	return &PgInstructionRepository{}
}

func (g *PgInstructionRepository) List(ctx context.Context) ([]*instruction.Record, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, instructionFindQuery+" ORDER BY instr_date, product_id")
	if err != nil {
		return nil, errors.Wrap(err, "failed to query instructions")
	}
	defer rows.Close()

	out := make([]*instruction.Record, 0)
	for rows.Next() {
		r := &instruction.Record{}
		if err := rows.Scan(&r.ProductID, &r.Date, &r.Qty); err != nil {
			return nil, errors.Wrap(err, "failed to scan instruction")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (g *PgInstructionRepository) CreateIfAbsent(ctx context.Context, record *instruction.Record) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, errors.Wrap(err, "failed to get transaction")
	}
	tag, err := tx.Exec(ctx, instructionInsertQuery, record.ProductID, record.Date, record.Qty)
	if err != nil {
		return false, errors.Wrap(err, "failed to insert instruction")
	}
	return tag.RowsAffected() > 0, nil
}
