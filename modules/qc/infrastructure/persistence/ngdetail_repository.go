package persistence

import (
	"context"
	"sync"

	"github.com/go-faster/errors"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/lot"
	"github.com/hikari-opt/lens-qc/pkg/composables"
)

const (
	ngDetailFindQuery = `SELECT lot_no, ng_id, inspect_qty, ng_qty, note FROM fng_dat`

	ngDetailUpsertQuery = `
        INSERT INTO fng_dat (lot_no, ng_id, inspect_qty, ng_qty, note)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (lot_no, ng_id) DO UPDATE SET
            inspect_qty = EXCLUDED.inspect_qty,
            ng_qty = EXCLUDED.ng_qty,
            note = EXCLUDED.note`
)

type PgNGDetailRepository struct{}

func NewNGDetailRepository() lot.NGDetailRepository {
	return &PgNGDetailRepository{}
}

func (g *PgNGDetailRepository) List(ctx context.Context) ([]*lot.NGDetail, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, ngDetailFindQuery+" ORDER BY lot_no, ng_id")
	if err != nil {
		return nil, errors.Wrap(err, "failed to query ng details")
	}
	defer rows.Close()

	out := make([]*lot.NGDetail, 0)
	for rows.Next() {
		d := &lot.NGDetail{}
		if err := rows.Scan(&d.LotNo, &d.NGID, &d.InspectQty, &d.NGQty, &d.Note); err != nil {
			return nil, errors.Wrap(err, "failed to scan ng detail")
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (g *PgNGDetailRepository) Save(ctx context.Context, detail *lot.NGDetail) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	_, err = tx.Exec(ctx, ngDetailUpsertQuery,
		detail.LotNo, detail.NGID, detail.InspectQty, detail.NGQty, detail.Note)
	if err != nil {
		return errors.Wrap(err, "failed to save ng detail")
	}
	return nil
}

type InMemNGDetailRepository struct {
	mu      sync.RWMutex
	details map[[2]any]*lot.NGDetail
}

func NewInMemNGDetailRepository() *InMemNGDetailRepository {
	return &InMemNGDetailRepository{details: map[[2]any]*lot.NGDetail{}}
}

func (m *InMemNGDetailRepository) List(_ context.Context) ([]*lot.NGDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*lot.NGDetail, 0, len(m.details))
	for _, d := range m.details {
		copied := *d
		out = append(out, &copied)
	}
	return out, nil
}

func (m *InMemNGDetailRepository) Save(_ context.Context, detail *lot.NGDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *detail
	m.details[[2]any{detail.LotNo, detail.NGID}] = &copied
	return nil
}
