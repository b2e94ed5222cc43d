package persistence

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/entities/refcode"
	"github.com/hikari-opt/lens-qc/pkg/composables"
)

const (
	refCodeFindQuery = `SELECT kbn_typ, kbn_id, kbn_nm FROM kbn_mst`

	refCodeUpsertQuery = `
        INSERT INTO kbn_mst (kbn_typ, kbn_id, kbn_nm)
        VALUES ($1, $2, $3)
        ON CONFLICT (kbn_typ, kbn_id) DO UPDATE SET kbn_nm = EXCLUDED.kbn_nm`
)

type PgRefCodeRepository struct{}

func NewRefCodeRepository() refcode.Repository {
	return &PgRefCodeRepository{}
}

func (g *PgRefCodeRepository) queryCodes(ctx context.Context, query string, args ...any) ([]refcode.Code, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query reference codes")
	}
	defer rows.Close()

	out := make([]refcode.Code, 0)
	for rows.Next() {
		var c refcode.Code
		if err := rows.Scan(&c.Domain, &c.ID, &c.Name); err != nil {
			return nil, errors.Wrap(err, "failed to scan reference code")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (g *PgRefCodeRepository) List(ctx context.Context, domain refcode.Domain) ([]refcode.Code, error) {
	return g.queryCodes(ctx, refCodeFindQuery+" WHERE kbn_typ = $1 ORDER BY kbn_id", domain)
}

func (g *PgRefCodeRepository) GetAll(ctx context.Context) ([]refcode.Code, error) {
	return g.queryCodes(ctx, refCodeFindQuery+" ORDER BY kbn_typ, kbn_id")
}

func (g *PgRefCodeRepository) Save(ctx context.Context, code refcode.Code) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	if _, err := tx.Exec(ctx, refCodeUpsertQuery, code.Domain, code.ID, code.Name); err != nil {
		return errors.Wrap(err, "failed to save reference code")
	}
	return nil
}
