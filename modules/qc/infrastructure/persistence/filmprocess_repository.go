package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/filmprocess"
	"github.com/hikari-opt/lens-qc/pkg/composables"
	"github.com/hikari-opt/lens-qc/pkg/repo"
)

const (
	filmProcessFindQuery = `
        SELECT
            id,
            inspect_date,
            process_date,
            color,
            pva_lot_no,
            note,
            film_curve,
            processed_sheets,
            wrinkle_a,
            wrinkle_b,
            tear,
            foreign_matter,
            fiber,
            scratch,
            hole,
            primary_others,
            primary_good_qty,
            color_fade,
            color_irregular,
            dye_streak,
            dirt,
            others,
            grade_a,
            grade_b,
            grade_c
        FROM fmp_dat`

	filmProcessMatchQuery = `
        SELECT id FROM fmp_dat
        WHERE inspect_date IS NOT DISTINCT FROM $1
          AND process_date IS NOT DISTINCT FROM $2
          AND color IS NOT DISTINCT FROM $3
          AND pva_lot_no = $4
          AND note = $5
          AND film_curve IS NOT DISTINCT FROM $6
        ORDER BY id
        LIMIT 1`

	filmProcessInsertQuery = `
        INSERT INTO fmp_dat (
            inspect_date, process_date, color, pva_lot_no, note, film_curve,
            processed_sheets,
            wrinkle_a, wrinkle_b, tear, foreign_matter, fiber, scratch, hole, primary_others,
            primary_good_qty,
            color_fade, color_irregular, dye_streak, dirt, others,
            grade_a, grade_b, grade_c
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
                  $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`

	filmProcessUpdateQuery = `
        UPDATE fmp_dat SET
            inspect_date = $1, process_date = $2, color = $3, pva_lot_no = $4,
            note = $5, film_curve = $6, processed_sheets = $7,
            wrinkle_a = $8, wrinkle_b = $9, tear = $10, foreign_matter = $11,
            fiber = $12, scratch = $13, hole = $14, primary_others = $15,
            primary_good_qty = $16,
            color_fade = $17, color_irregular = $18, dye_streak = $19, dirt = $20, others = $21,
            grade_a = $22, grade_b = $23, grade_c = $24
        WHERE id = $25`
)

type PgFilmProcessRepository struct{}

func NewFilmProcessRepository() filmprocess.Repository {
	return &PgFilmProcessRepository{}
}

func filmProcessValues(r *filmprocess.Record) []any {
	return []any{
		r.InspectDate, r.ProcessDate, r.Color, r.PVALotNo, r.Note, r.FilmCurve,
		r.ProcessedSheets,
		r.WrinkleA, r.WrinkleB, r.Tear, r.Foreign, r.Fiber, r.Scratch, r.Hole, r.PrimaryOthers,
		r.PrimaryGoodQty,
		r.ColorFade, r.ColorIrregular, r.DyeStreak, r.Dirt, r.Others,
		r.GradeA, r.GradeB, r.GradeC,
	}
}

func (g *PgFilmProcessRepository) List(ctx context.Context, params *filmprocess.FindParams) ([]*filmprocess.Record, error) {
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
		if params.InspectFrom != nil {
			conditions = append(conditions, "inspect_date >= "+arg(*params.InspectFrom))
		}
		if params.InspectTo != nil {
			conditions = append(conditions, "inspect_date <= "+arg(*params.InspectTo))
		}
		if params.ProcessDate != nil {
			conditions = append(conditions, "process_date = "+arg(*params.ProcessDate))
		}
		if params.Color != nil {
			conditions = append(conditions, "color = "+arg(*params.Color))
		}
		if params.PVALotNo != nil {
			conditions = append(conditions, "pva_lot_no = "+arg(*params.PVALotNo))
		}
		if params.FilmCurve != nil {
			conditions = append(conditions, "film_curve = "+arg(*params.FilmCurve))
		}
	}
	query := repo.Join(filmProcessFindQuery, repo.JoinWhere(conditions...), "ORDER BY inspect_date, id")
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query film process records")
	}
	defer rows.Close()

	out := make([]*filmprocess.Record, 0)
	for rows.Next() {
		r := &filmprocess.Record{}
		if err := rows.Scan(
			&r.ID, &r.InspectDate, &r.ProcessDate, &r.Color, &r.PVALotNo, &r.Note, &r.FilmCurve,
			&r.ProcessedSheets,
			&r.WrinkleA, &r.WrinkleB, &r.Tear, &r.Foreign, &r.Fiber, &r.Scratch, &r.Hole, &r.PrimaryOthers,
			&r.PrimaryGoodQty,
			&r.ColorFade, &r.ColorIrregular, &r.DyeStreak, &r.Dirt, &r.Others,
			&r.GradeA, &r.GradeB, &r.GradeC,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan film process record")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (g *PgFilmProcessRepository) Save(ctx context.Context, record *filmprocess.Record) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	var id int64
	err = tx.QueryRow(ctx, filmProcessMatchQuery,
		record.InspectDate, record.ProcessDate, record.Color,
		record.PVALotNo, record.Note, record.FilmCurve,
	).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := tx.Exec(ctx, filmProcessInsertQuery, filmProcessValues(record)...); err != nil {
			return errors.Wrap(err, "failed to insert film process record")
		}
		return nil
	case err != nil:
		return errors.Wrap(err, "failed to match film process record")
	}
	record.ID = id
	args := append(filmProcessValues(record), id)
	if _, err := tx.Exec(ctx, filmProcessUpdateQuery, args...); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to update film process record %d", id))
	}
	return nil
}
