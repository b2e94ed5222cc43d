package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/hardcoat"
	"github.com/hikari-opt/lens-qc/pkg/composables"
	"github.com/hikari-opt/lens-qc/pkg/repo"
)

const (
	hardCoatFindQuery = `
        SELECT
            id,
            coat_date,
            times,
            coat_type,
            base,
            add_power,
            lr,
            color,
            coat_count,
            pre_foreign,
            pre_drop,
            pre_chip,
            pre_streak,
            pre_others,
            trans_base_fail,
            trans_foreign,
            trans_inclusion,
            trans_scratch,
            trans_coat_fail,
            trans_drop,
            trans_streak,
            trans_dirt,
            trans_chip,
            proj_base,
            proj_foreign,
            proj_dust,
            proj_scratch,
            proj_drop,
            proj_chip,
            proj_streak,
            pass_qty
        FROM hdc_dat`

	hardCoatMatchQuery = `
        SELECT id FROM hdc_dat
        WHERE coat_date IS NOT DISTINCT FROM $1
          AND times = $2
          AND coat_type = $3
          AND base = $4
          AND add_power = $5
          AND lr = $6
          AND color = $7
        ORDER BY id
        LIMIT 1`

	hardCoatInsertQuery = `
        INSERT INTO hdc_dat (
            coat_date, times, coat_type, base, add_power, lr, color, coat_count,
            pre_foreign, pre_drop, pre_chip, pre_streak, pre_others,
            trans_base_fail, trans_foreign, trans_inclusion, trans_scratch,
            trans_coat_fail, trans_drop, trans_streak, trans_dirt, trans_chip,
            proj_base, proj_foreign, proj_dust, proj_scratch, proj_drop,
            proj_chip, proj_streak, pass_qty
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
                  $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26,
                  $27, $28, $29, $30)`

	hardCoatUpdateQuery = `
        UPDATE hdc_dat SET
            coat_date = $1, times = $2, coat_type = $3, base = $4,
            add_power = $5, lr = $6, color = $7, coat_count = $8,
            pre_foreign = $9, pre_drop = $10, pre_chip = $11, pre_streak = $12,
            pre_others = $13,
            trans_base_fail = $14, trans_foreign = $15, trans_inclusion = $16,
            trans_scratch = $17, trans_coat_fail = $18, trans_drop = $19,
            trans_streak = $20, trans_dirt = $21, trans_chip = $22,
            proj_base = $23, proj_foreign = $24, proj_dust = $25,
            proj_scratch = $26, proj_drop = $27, proj_chip = $28,
            proj_streak = $29, pass_qty = $30
        WHERE id = $31`
)

type PgHardCoatRepository struct{}

func NewHardCoatRepository() hardcoat.Repository {
	return &PgHardCoatRepository{}
}

func hardCoatValues(r *hardcoat.Record) []any {
	return []any{
		r.CoatDate, r.Times, r.Type, r.Base, r.AddPower, r.LR, r.Color, r.CoatCount,
		r.PreForeign, r.PreDrop, r.PreChip, r.PreStreak, r.PreOthers,
		r.TransBaseFail, r.TransForeign, r.TransInclusion, r.TransScratch,
		r.TransCoatFail, r.TransDrop, r.TransStreak, r.TransDirt, r.TransChip,
		r.ProjBase, r.ProjForeign, r.ProjDust, r.ProjScratch, r.ProjDrop,
		r.ProjChip, r.ProjStreak, r.PassQty,
	}
}

func (g *PgHardCoatRepository) List(ctx context.Context, params *hardcoat.FindParams) ([]*hardcoat.Record, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if params != nil {
		if params.CoatFrom != nil {
			conditions = append(conditions, "coat_date >= "+arg(*params.CoatFrom))
		}
		if params.CoatTo != nil {
			conditions = append(conditions, "coat_date <= "+arg(*params.CoatTo))
		}
		if params.Type != nil {
			conditions = append(conditions, "coat_type = "+arg(*params.Type))
		}
		if params.Color != nil {
			conditions = append(conditions, "color = "+arg(*params.Color))
		}
	}
	query := repo.Join(hardCoatFindQuery, repo.JoinWhere(conditions...), "ORDER BY coat_date, id")
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query hard coat records")
	}
	defer rows.Close()

	out := make([]*hardcoat.Record, 0)
	for rows.Next() {
		r := &hardcoat.Record{}
		if err := rows.Scan(
			&r.ID, &r.CoatDate, &r.Times, &r.Type, &r.Base, &r.AddPower, &r.LR, &r.Color, &r.CoatCount,
			&r.PreForeign, &r.PreDrop, &r.PreChip, &r.PreStreak, &r.PreOthers,
			&r.TransBaseFail, &r.TransForeign, &r.TransInclusion, &r.TransScratch,
			&r.TransCoatFail, &r.TransDrop, &r.TransStreak, &r.TransDirt, &r.TransChip,
			&r.ProjBase, &r.ProjForeign, &r.ProjDust, &r.ProjScratch, &r.ProjDrop,
			&r.ProjChip, &r.ProjStreak, &r.PassQty,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan hard coat record")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (g *PgHardCoatRepository) Save(ctx context.Context, record *hardcoat.Record) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	var id int64
	err = tx.QueryRow(ctx, hardCoatMatchQuery,
		record.CoatDate, record.Times, record.Type, record.Base,
		record.AddPower, record.LR, record.Color,
	).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := tx.Exec(ctx, hardCoatInsertQuery, hardCoatValues(record)...); err != nil {
			return errors.Wrap(err, "failed to insert hard coat record")
		}
		return nil
	case err != nil:
		return errors.Wrap(err, "failed to match hard coat record")
	}
	record.ID = id
	args := append(hardCoatValues(record), id)
	if _, err := tx.Exec(ctx, hardCoatUpdateQuery, args...); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to update hard coat record %d", id))
	}
	return nil
}
