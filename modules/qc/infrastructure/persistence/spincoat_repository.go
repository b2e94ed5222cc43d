package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/spincoat"
	"github.com/hikari-opt/lens-qc/pkg/composables"
	"github.com/hikari-opt/lens-qc/pkg/repo"
)

const (
	spinCoatFindQuery = `
        SELECT
            id,
            coat_date,
            instruction,
            branch_no,
            coat_type,
            name_1,
            name_2,
            ref_index,
            coat_color,
            machine,
            times,
            sheets,
            pre_black_dust,
            pre_white_dust,
            pre_edge_fail,
            pre_coat_fail,
            pre_dark_spot,
            pre_snail,
            pre_mist,
            pre_wrinkle,
            pre_barrel_bub,
            pre_stick,
            pre_trouble,
            pre_base_fail,
            pre_good_qty,
            pre_note,
            post_inspect_date,
            post_scratch,
            post_coat_fail,
            post_snail,
            post_dark_spot,
            post_wrinkle,
            post_bubble,
            post_edge_fail,
            post_white_dust,
            post_black_dust,
            post_stick,
            post_primer_stick,
            post_base_fail,
            post_others,
            final_good_qty
        FROM spc_dat`

	spinCoatMatchQuery = `
        SELECT id FROM spc_dat
        WHERE coat_date IS NOT DISTINCT FROM $1
          AND instruction = $2
          AND branch_no = $3
          AND coat_type = $4
          AND name_1 = $5
          AND ref_index = $6
          AND coat_color = $7
          AND times = $8
        ORDER BY id
        LIMIT 1`

	spinCoatInsertQuery = `
        INSERT INTO spc_dat (
            coat_date, instruction, branch_no, coat_type, name_1, name_2,
            ref_index, coat_color, machine, times, sheets,
            pre_black_dust, pre_white_dust, pre_edge_fail, pre_coat_fail,
            pre_dark_spot, pre_snail, pre_mist, pre_wrinkle, pre_barrel_bub,
            pre_stick, pre_trouble, pre_base_fail, pre_good_qty, pre_note,
            post_inspect_date, post_scratch, post_coat_fail, post_snail,
            post_dark_spot, post_wrinkle, post_bubble, post_edge_fail,
            post_white_dust, post_black_dust, post_stick, post_primer_stick,
            post_base_fail, post_others, final_good_qty
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
                  $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26,
                  $27, $28, $29, $30, $31, $32, $33, $34, $35, $36, $37, $38,
                  $39, $40)`

	spinCoatUpdateQuery = `
        UPDATE spc_dat SET
            coat_date = $1, instruction = $2, branch_no = $3, coat_type = $4,
            name_1 = $5, name_2 = $6, ref_index = $7, coat_color = $8,
            machine = $9, times = $10, sheets = $11,
            pre_black_dust = $12, pre_white_dust = $13, pre_edge_fail = $14,
            pre_coat_fail = $15, pre_dark_spot = $16, pre_snail = $17,
            pre_mist = $18, pre_wrinkle = $19, pre_barrel_bub = $20,
            pre_stick = $21, pre_trouble = $22, pre_base_fail = $23,
            pre_good_qty = $24, pre_note = $25,
            post_inspect_date = $26, post_scratch = $27, post_coat_fail = $28,
            post_snail = $29, post_dark_spot = $30, post_wrinkle = $31,
            post_bubble = $32, post_edge_fail = $33, post_white_dust = $34,
            post_black_dust = $35, post_stick = $36, post_primer_stick = $37,
            post_base_fail = $38, post_others = $39, final_good_qty = $40
        WHERE id = $41`
)

type PgSpinCoatRepository struct{}

func NewSpinCoatRepository() spincoat.Repository {
	return &PgSpinCoatRepository{}
}

func spinCoatValues(r *spincoat.Record) []any {
	return []any{
		r.CoatDate, r.Instruction, r.BranchNo, r.Type, r.Name1, r.Name2,
		r.RefIndex, r.CoatColor, r.Machine, r.Times, r.Sheets,
		r.PreBlackDust, r.PreWhiteDust, r.PreEdgeFail, r.PreCoatFail,
		r.PreDarkSpot, r.PreSnail, r.PreMist, r.PreWrinkle, r.PreBarrelBub,
		r.PreStick, r.PreTrouble, r.PreBaseFail, r.PreGoodQty, r.PreNote,
		r.PostInspectDate, r.PostScratch, r.PostCoatFail, r.PostSnail,
		r.PostDarkSpot, r.PostWrinkle, r.PostBubble, r.PostEdgeFail,
		r.PostWhiteDust, r.PostBlackDust, r.PostStick, r.PostPrimerStick,
		r.PostBaseFail, r.PostOthers, r.FinalGoodQty,
	}
}

func (g *PgSpinCoatRepository) List(ctx context.Context, params *spincoat.FindParams) ([]*spincoat.Record, error) {
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
		if params.CoatColor != nil {
			conditions = append(conditions, "coat_color = "+arg(*params.CoatColor))
		}
	}
	query := repo.Join(spinCoatFindQuery, repo.JoinWhere(conditions...), "ORDER BY coat_date, id")
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query spin coat records")
	}
	defer rows.Close()

	out := make([]*spincoat.Record, 0)
	for rows.Next() {
		r := &spincoat.Record{}
		if err := rows.Scan(
			&r.ID, &r.CoatDate, &r.Instruction, &r.BranchNo, &r.Type, &r.Name1, &r.Name2,
			&r.RefIndex, &r.CoatColor, &r.Machine, &r.Times, &r.Sheets,
			&r.PreBlackDust, &r.PreWhiteDust, &r.PreEdgeFail, &r.PreCoatFail,
			&r.PreDarkSpot, &r.PreSnail, &r.PreMist, &r.PreWrinkle, &r.PreBarrelBub,
			&r.PreStick, &r.PreTrouble, &r.PreBaseFail, &r.PreGoodQty, &r.PreNote,
			&r.PostInspectDate, &r.PostScratch, &r.PostCoatFail, &r.PostSnail,
			&r.PostDarkSpot, &r.PostWrinkle, &r.PostBubble, &r.PostEdgeFail,
			&r.PostWhiteDust, &r.PostBlackDust, &r.PostStick, &r.PostPrimerStick,
			&r.PostBaseFail, &r.PostOthers, &r.FinalGoodQty,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan spin coat record")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (g *PgSpinCoatRepository) Save(ctx context.Context, record *spincoat.Record) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	var id int64
	err = tx.QueryRow(ctx, spinCoatMatchQuery,
		record.CoatDate, record.Instruction, record.BranchNo, record.Type,
		record.Name1, record.RefIndex, record.CoatColor, record.Times,
	).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := tx.Exec(ctx, spinCoatInsertQuery, spinCoatValues(record)...); err != nil {
			return errors.Wrap(err, "failed to insert spin coat record")
		}
		return nil
	case err != nil:
		return errors.Wrap(err, "failed to match spin coat record")
	}
	record.ID = id
	args := append(spinCoatValues(record), id)
	if _, err := tx.Exec(ctx, spinCoatUpdateQuery, args...); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to update spin coat record %d", id))
	}
	return nil
}
