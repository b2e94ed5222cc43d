package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/entities/product"
	"github.com/hikari-opt/lens-qc/pkg/composables"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

const (
	productFindQuery = `
        SELECT prd_id, prd_kbn, prd_typ, prd_nm, prd_color, prd_ply_days
        FROM prd_mst`

	productUpsertQuery = `
        INSERT INTO prd_mst (prd_id, prd_kbn, prd_typ, prd_nm, prd_color, prd_ply_days)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (prd_id) DO UPDATE SET
            prd_kbn = EXCLUDED.prd_kbn,
            prd_typ = EXCLUDED.prd_typ,
            prd_nm = EXCLUDED.prd_nm,
            prd_color = EXCLUDED.prd_color,
            prd_ply_days = EXCLUDED.prd_ply_days`

	monomerFindQuery = `SELECT mno_syu, mno_nm, mno_target FROM mno_mst ORDER BY mno_syu`

	monomerUpsertQuery = `
        INSERT INTO mno_mst (mno_syu, mno_nm, mno_target)
        VALUES ($1, $2, $3)
        ON CONFLICT (mno_syu) DO UPDATE SET
            mno_nm = EXCLUDED.mno_nm,
            mno_target = EXCLUDED.mno_target`

	workerFindQuery  = `SELECT wrk_id, wrk_nm FROM wrk_mst ORDER BY wrk_id`
	machineFindQuery = `SELECT mcn_id, mcn_nm FROM mcn_mst ORDER BY mcn_id`
)

type PgProductRepository struct{}

func NewProductRepository() product.Repository {
	return &PgProductRepository{}
}

func (g *PgProductRepository) scanProducts(ctx context.Context, query string, args ...any) ([]*product.Product, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query products")
	}
	defer rows.Close()

	out := make([]*product.Product, 0)
	for rows.Next() {
		p := &product.Product{}
		if err := rows.Scan(&p.ID, &p.Kind, &p.MonomerType, &p.Name, &p.Color, &p.PolymerizeDays); err != nil {
			return nil, errors.Wrap(err, "failed to scan product")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (g *PgProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	products, err := g.scanProducts(ctx, productFindQuery+" WHERE prd_id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("product: %s: %w", id, ErrProductNotFound)
	}
	return products[0], nil
}

func (g *PgProductRepository) List(ctx context.Context) ([]*product.Product, error) {
	return g.scanProducts(ctx, productFindQuery+" ORDER BY prd_id")
}

func (g *PgProductRepository) Save(ctx context.Context, p *product.Product) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	_, err = tx.Exec(ctx, productUpsertQuery, p.ID, p.Kind, p.MonomerType, p.Name, p.Color, p.PolymerizeDays)
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to save product %s", p.ID))
	}
	return nil
}

type PgMonomerRepository struct{}

func NewMonomerRepository() product.MonomerRepository {
	return &PgMonomerRepository{}
}

func (g *PgMonomerRepository) List(ctx context.Context) ([]*product.Monomer, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, monomerFindQuery)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query monomers")
	}
	defer rows.Close()

	out := make([]*product.Monomer, 0)
	for rows.Next() {
		m := &product.Monomer{}
		if err := rows.Scan(&m.Type, &m.Name, &m.Target); err != nil {
			return nil, errors.Wrap(err, "failed to scan monomer")
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (g *PgMonomerRepository) Save(ctx context.Context, m *product.Monomer) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	if _, err := tx.Exec(ctx, monomerUpsertQuery, m.Type, m.Name, m.Target); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to save monomer %s", m.Type))
	}
	return nil
}

type PgWorkerRepository struct{}

func NewWorkerRepository() product.WorkerRepository {
	return &PgWorkerRepository{}
}

func (g *PgWorkerRepository) List(ctx context.Context) ([]*product.Worker, error) {
	return scanIDName[product.Worker](ctx, workerFindQuery, func(id int, name string) *product.Worker {
		return &product.Worker{ID: id, Name: name}
	})
}

type PgMachineRepository struct{}

func NewMachineRepository() product.MachineRepository {
	return &PgMachineRepository{}
}

func (g *PgMachineRepository) List(ctx context.Context) ([]*product.Machine, error) {
	return scanIDName[product.Machine](ctx, machineFindQuery, func(id int, name string) *product.Machine {
		return &product.Machine{ID: id, Name: name}
	})
}

func scanIDName[T any](ctx context.Context, query string, build func(int, string) *T) ([]*T, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query master rows")
	}
	defer rows.Close()

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*T, error) {
		var (
			id   int
			name string
		)
		if err := row.Scan(&id, &name); err != nil {
			return nil, err
		}
		return build(id, name), nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect master rows")
	}
	return out, nil
}
