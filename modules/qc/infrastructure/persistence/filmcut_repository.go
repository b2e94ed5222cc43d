package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/filmcut"
	"github.com/hikari-opt/lens-qc/pkg/composables"
	"github.com/hikari-opt/lens-qc/pkg/repo"
)

const (
	filmCutFindQuery = `
        SELECT
            id,
            cut_date,
            r1_inject_date,
            monomer,
            anneal_no,
            cut_machine_no,
            item,
            cut_menu,
            film_proc_date,
            cr_film,
            heat_proc_date,
            film_curve,
            color,
            input_qty,
            cut_foreign,
            cut_wrinkle,
            cut_wave,
            cut_err,
            cut_crack,
            cut_scratch,
            cut_others,
            good_qty,
            wash_wrinkle,
            wash_scratch,
            wash_foreign,
            wash_acetone,
            wash_err,
            wash_cut_err,
            wash_others,
            pass_qty,
            month
        FROM fmc_dat`

	// Natural-key match. NULL-safe comparison so rows with unresolved
	// classification codes still reconcile; ambiguous matches resolve to
	// the oldest row.
	filmCutMatchQuery = `
        SELECT id FROM fmc_dat
        WHERE cut_date IS NOT DISTINCT FROM $1
          AND r1_inject_date IS NOT DISTINCT FROM $2
          AND monomer IS NOT DISTINCT FROM $3
          AND anneal_no = $4
          AND cut_machine_no = $5
          AND item IS NOT DISTINCT FROM $6
          AND cut_menu IS NOT DISTINCT FROM $7
          AND film_proc_date IS NOT DISTINCT FROM $8
          AND cr_film = $9
          AND heat_proc_date IS NOT DISTINCT FROM $10
          AND film_curve IS NOT DISTINCT FROM $11
          AND color IS NOT DISTINCT FROM $12
        ORDER BY id
        LIMIT 1`

	filmCutInsertQuery = `
        INSERT INTO fmc_dat (
            cut_date, r1_inject_date, monomer, anneal_no, cut_machine_no,
            item, cut_menu, film_proc_date, cr_film, heat_proc_date,
            film_curve, color, input_qty,
            cut_foreign, cut_wrinkle, cut_wave, cut_err, cut_crack, cut_scratch, cut_others,
            good_qty,
            wash_wrinkle, wash_scratch, wash_foreign, wash_acetone, wash_err, wash_cut_err, wash_others,
            pass_qty, month
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
                  $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)`

	filmCutUpdateQuery = `
        UPDATE fmc_dat SET
            cut_date = $1, r1_inject_date = $2, monomer = $3, anneal_no = $4, cut_machine_no = $5,
            item = $6, cut_menu = $7, film_proc_date = $8, cr_film = $9, heat_proc_date = $10,
            film_curve = $11, color = $12, input_qty = $13,
            cut_foreign = $14, cut_wrinkle = $15, cut_wave = $16, cut_err = $17,
            cut_crack = $18, cut_scratch = $19, cut_others = $20,
            good_qty = $21,
            wash_wrinkle = $22, wash_scratch = $23, wash_foreign = $24, wash_acetone = $25,
            wash_err = $26, wash_cut_err = $27, wash_others = $28,
            pass_qty = $29, month = $30
        WHERE id = $31`
)

type PgFilmCutRepository struct{}

func NewFilmCutRepository() filmcut.Repository {
	return &PgFilmCutRepository{}
}

func filmCutValues(r *filmcut.Record) []any {
	return []any{
		r.CutDate, r.R1InjectDate, r.Monomer, r.AnnealNo, r.CutMachineNo,
		r.Item, r.CutMenu, r.FilmProcDate, r.CRFilm, r.HeatProcDate,
		r.FilmCurve, r.Color, r.InputQty,
		r.CutForeign, r.CutWrinkle, r.CutWave, r.CutErr, r.CutCrack, r.CutScratch, r.CutOthers,
		r.GoodQty,
		r.WashWrinkle, r.WashScratch, r.WashForeign, r.WashAcetone, r.WashErr, r.WashCutErr, r.WashOthers,
		r.PassQty, r.Month,
	}
}

func (g *PgFilmCutRepository) List(ctx context.Context, params *filmcut.FindParams) ([]*filmcut.Record, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	where, args := buildFilmCutFilters(params)
	rows, err := tx.Query(ctx, repo.Join(filmCutFindQuery, where, "ORDER BY cut_date DESC, monomer"), args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query film cut records")
	}
	defer rows.Close()

	out := make([]*filmcut.Record, 0)
	for rows.Next() {
		r := &filmcut.Record{}
		if err := rows.Scan(
			&r.ID, &r.CutDate, &r.R1InjectDate, &r.Monomer, &r.AnnealNo, &r.CutMachineNo,
			&r.Item, &r.CutMenu, &r.FilmProcDate, &r.CRFilm, &r.HeatProcDate,
			&r.FilmCurve, &r.Color, &r.InputQty,
			&r.CutForeign, &r.CutWrinkle, &r.CutWave, &r.CutErr, &r.CutCrack, &r.CutScratch, &r.CutOthers,
			&r.GoodQty,
			&r.WashWrinkle, &r.WashScratch, &r.WashForeign, &r.WashAcetone, &r.WashErr, &r.WashCutErr, &r.WashOthers,
			&r.PassQty, &r.Month,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan film cut record")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func buildFilmCutFilters(params *filmcut.FindParams) (string, []any) {
	if params == nil {
		return "", nil
	}
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if params.CutFrom != nil {
		conditions = append(conditions, "cut_date >= "+arg(*params.CutFrom))
	}
	if params.CutTo != nil {
		conditions = append(conditions, "cut_date <= "+arg(*params.CutTo))
	}
	if params.Month != nil {
		conditions = append(conditions, "month = "+arg(*params.Month))
	}
	if params.R1InjectDate != nil {
		conditions = append(conditions, "r1_inject_date = "+arg(*params.R1InjectDate))
	}
	if params.Monomer != nil {
		conditions = append(conditions, "monomer = "+arg(*params.Monomer))
	}
	if params.AnnealNo != nil {
		conditions = append(conditions, "anneal_no = "+arg(*params.AnnealNo))
	}
	if params.CutMachineNo != nil {
		conditions = append(conditions, "cut_machine_no = "+arg(*params.CutMachineNo))
	}
	if params.Item != nil {
		conditions = append(conditions, "item = "+arg(*params.Item))
	}
	if params.CutMenu != nil {
		conditions = append(conditions, "cut_menu = "+arg(*params.CutMenu))
	}
	if params.FilmProcDate != nil {
		conditions = append(conditions, "film_proc_date = "+arg(*params.FilmProcDate))
	}
	if params.CRFilm != nil {
		conditions = append(conditions, "cr_film = "+arg(*params.CRFilm))
	}
	if params.HeatProcDate != nil {
		conditions = append(conditions, "heat_proc_date = "+arg(*params.HeatProcDate))
	}
	if params.FilmCurve != nil {
		conditions = append(conditions, "film_curve = "+arg(*params.FilmCurve))
	}
	if params.Color != nil {
		conditions = append(conditions, "color = "+arg(*params.Color))
	}
	return repo.JoinWhere(conditions...), args
}

func (g *PgFilmCutRepository) Save(ctx context.Context, record *filmcut.Record) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	var id int64
	err = tx.QueryRow(ctx, filmCutMatchQuery,
		record.CutDate, record.R1InjectDate, record.Monomer, record.AnnealNo,
		record.CutMachineNo, record.Item, record.CutMenu, record.FilmProcDate,
		record.CRFilm, record.HeatProcDate, record.FilmCurve, record.Color,
	).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := tx.Exec(ctx, filmCutInsertQuery, filmCutValues(record)...); err != nil {
			return errors.Wrap(err, "failed to insert film cut record")
		}
		return nil
	case err != nil:
		return errors.Wrap(err, "failed to match film cut record")
	}
	record.ID = id
	args := append(filmCutValues(record), id)
	if _, err := tx.Exec(ctx, filmCutUpdateQuery, args...); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to update film cut record %d", id))
	}
	return nil
}
