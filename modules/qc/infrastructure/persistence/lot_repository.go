package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/lot"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/defect"
	"github.com/hikari-opt/lens-qc/pkg/composables"
	"github.com/hikari-opt/lens-qc/pkg/repo"
)

var (
	ErrLotNotFound = errors.New("lot not found")
)

// lotBaseColumns are the feed-owned columns in insert order. Defect
// counter columns follow, taken from the registry, then the stage-owned
// columns which the primary feed never overwrites.
var lotBaseColumns = []string{
	"lot_no",
	"product_id",
	"monomer_type",
	"r1_in_date",
	"r1_tank",
	"r2_tank",
	"monomer_batch",
	"r2_injector",
	"film_date",
	"r1_injector",
	"inject_qty",
	"a_grade",
	"b_grade",
	"r1_in_comment",
	"r1_chk_comment",
	"r2_in_comment",
	"release_comment",
	"release_by",
	"anneal_by",
	"chk1_by",
	"chk2_by",
	"chk3_by",
	"r1_good_cnt",
	"anneal_tank",
}

var lotStageColumns = []string{
	"r2_date",
	"r2_qty",
	"release_date",
	"check_date",
	"r2_judge_date",
	"anneal_date",
	"chk1_date",
	"chk2_date",
	"r1_judge_date",
	"r1_check_date",
	"r2_timestamp",
}

func lotAllColumns() []string {
	cols := make([]string, 0, len(lotBaseColumns)+len(defect.Fields)+len(lotStageColumns))
	cols = append(cols, lotBaseColumns...)
	for _, f := range defect.Fields {
		cols = append(cols, string(f))
	}
	cols = append(cols, lotStageColumns...)
	return cols
}

var (
	lotFindQuery   = "SELECT " + strings.Join(lotAllColumns(), ", ") + " FROM prd_record"
	lotUpsertQuery = buildLotUpsertQuery()
	lotDeleteQuery = `DELETE FROM prd_record WHERE lot_no = $1`
)

// buildLotUpsertQuery renders the primary-feed upsert. On conflict every
// feed-owned column is replaced; the stage-owned columns keep whatever
// the stage feed wrote.
func buildLotUpsertQuery() string {
	cols := lotAllColumns()
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	updatable := make([]string, 0, len(lotBaseColumns)+len(defect.Fields)-1)
	for _, c := range lotBaseColumns[1:] {
		updatable = append(updatable, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	for _, f := range defect.Fields {
		updatable = append(updatable, fmt.Sprintf("%s = EXCLUDED.%s", f, f))
	}
	return fmt.Sprintf(
		"INSERT INTO prd_record (%s) VALUES (%s) ON CONFLICT (lot_no) DO UPDATE SET %s",
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updatable, ", "),
	)
}

type PgLotRepository struct{}

func NewLotRepository() lot.Repository {
	return &PgLotRepository{}
}

func lotValues(r *lot.Record) []any {
	args := make([]any, 0, len(lotBaseColumns)+len(defect.Fields)+len(lotStageColumns))
	args = append(args,
		r.LotNo,
		r.ProductID,
		r.MonomerType,
		r.R1InDate,
		r.R1Tank,
		r.R2Tank,
		r.MonomerBatch,
		r.R2Injector,
		r.FilmDate,
		r.R1Injector,
		r.InjectQty,
		r.AGrade,
		r.BGrade,
		r.R1InComment,
		r.R1ChkComment,
		r.R2InComment,
		r.ReleaseComment,
		r.ReleaseBy,
		r.AnnealBy,
		r.Chk1By,
		r.Chk2By,
		r.Chk3By,
		r.R1GoodCnt,
		r.AnnealTank,
	)
	for _, f := range defect.Fields {
		args = append(args, r.DefectCount(f))
	}
	args = append(args,
		r.R2Date,
		r.R2Qty,
		r.ReleaseDate,
		r.CheckDate,
		r.R2JudgeDate,
		r.AnnealDate,
		r.Chk1Date,
		r.Chk2Date,
		r.R1JudgeDate,
		r.R1CheckDate,
		r.R2Timestamp,
	)
	return args
}

// lotScanDest builds a scan target list matching lotFindQuery order. The
// counters slice is filled positionally and folded into the record after
// the scan.
func lotScanDest(r *lot.Record, counters []float64) []any {
	dest := make([]any, 0, len(lotBaseColumns)+len(counters)+len(lotStageColumns))
	dest = append(dest,
		&r.LotNo,
		&r.ProductID,
		&r.MonomerType,
		&r.R1InDate,
		&r.R1Tank,
		&r.R2Tank,
		&r.MonomerBatch,
		&r.R2Injector,
		&r.FilmDate,
		&r.R1Injector,
		&r.InjectQty,
		&r.AGrade,
		&r.BGrade,
		&r.R1InComment,
		&r.R1ChkComment,
		&r.R2InComment,
		&r.ReleaseComment,
		&r.ReleaseBy,
		&r.AnnealBy,
		&r.Chk1By,
		&r.Chk2By,
		&r.Chk3By,
		&r.R1GoodCnt,
		&r.AnnealTank,
	)
	for i := range counters {
		dest = append(dest, &counters[i])
	}
	dest = append(dest,
		&r.R2Date,
		&r.R2Qty,
		&r.ReleaseDate,
		&r.CheckDate,
		&r.R2JudgeDate,
		&r.AnnealDate,
		&r.Chk1Date,
		&r.Chk2Date,
		&r.R1JudgeDate,
		&r.R1CheckDate,
		&r.R2Timestamp,
	)
	return dest
}

func (g *PgLotRepository) queryLots(ctx context.Context, query string, args ...any) ([]*lot.Record, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query lots")
	}
	defer rows.Close()

	out := make([]*lot.Record, 0)
	for rows.Next() {
		r := &lot.Record{}
		counters := make([]float64, len(defect.Fields))
		if err := rows.Scan(lotScanDest(r, counters)...); err != nil {
			return nil, errors.Wrap(err, "failed to scan lot")
		}
		r.Defects = make(defect.Counts, len(defect.Fields))
		for i, f := range defect.Fields {
			r.Defects.Set(f, counters[i])
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (g *PgLotRepository) GetByLot(ctx context.Context, lotNo string) (*lot.Record, error) {
	lots, err := g.queryLots(ctx, repo.Join(lotFindQuery, "WHERE lot_no = $1"), lotNo)
	if err != nil {
		return nil, err
	}
	if len(lots) == 0 {
		return nil, fmt.Errorf("lot: %s: %w", lotNo, ErrLotNotFound)
	}
	return lots[0], nil
}

func (g *PgLotRepository) List(ctx context.Context, params *lot.FindParams) ([]*lot.Record, error) {
	where, args := buildLotFilters(params)
	return g.queryLots(ctx, repo.Join(lotFindQuery, where, "ORDER BY lot_no"), args...)
}

func buildLotFilters(params *lot.FindParams) (string, []any) {
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
	if params.R1From != nil {
		conditions = append(conditions, "r1_in_date >= "+arg(*params.R1From))
	}
	if params.R1To != nil {
		conditions = append(conditions, "r1_in_date <= "+arg(*params.R1To))
	}
	if params.CheckFrom != nil {
		conditions = append(conditions, "check_date >= "+arg(*params.CheckFrom))
	}
	if params.CheckTo != nil {
		conditions = append(conditions, "check_date <= "+arg(*params.CheckTo))
	}
	if params.R2From != nil {
		conditions = append(conditions, "r2_date >= "+arg(*params.R2From))
	}
	if params.R2To != nil {
		conditions = append(conditions, "r2_date <= "+arg(*params.R2To))
	}
	if params.ProductID != "" {
		conditions = append(conditions, "product_id = "+arg(params.ProductID))
	}
	if params.MonomerType != "" {
		conditions = append(conditions, "monomer_type = "+arg(params.MonomerType))
	}
	if params.R1Injector != nil {
		conditions = append(conditions, "r1_injector = "+arg(*params.R1Injector))
	}
	if params.R2Injector != nil {
		conditions = append(conditions, "r2_injector = "+arg(*params.R2Injector))
	}
	if params.FinalChecked {
		conditions = append(conditions, "chk3_by IS NOT NULL")
	}
	return repo.JoinWhere(conditions...), args
}

func (g *PgLotRepository) Upsert(ctx context.Context, record *lot.Record) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	if _, err := tx.Exec(ctx, lotUpsertQuery, lotValues(record)...); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to upsert lot %s", record.LotNo))
	}
	return nil
}

func (g *PgLotRepository) ApplyStage(ctx context.Context, lotNo string, update lot.StageUpdate) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	// A nil Date or R2Timestamp writes NULL, clearing the stored value.
	switch update.Stage {
	case lot.StageR1Polymerize:
		set("r1_judge_date", update.Date)
	case lot.StageR1Inspect:
		set("r1_check_date", update.Date)
	case lot.StageR2Inject:
		set("r2_date", update.Date)
		set("r2_qty", update.R2Qty)
		set("r2_timestamp", update.R2Timestamp)
	case lot.StageR2Polymerize:
		set("r2_judge_date", update.Date)
	case lot.StageRelease:
		set("release_date", update.Date)
	case lot.StageAnneal:
		set("anneal_date", update.Date)
	case lot.StageFirstInspect:
		set("chk1_date", update.Date)
	case lot.StageSecondInspect:
		set("chk2_date", update.Date)
	case lot.StageFinalCheck:
		set("check_date", update.Date)
	default:
		return 0, nil
	}
	args = append(args, lotNo)
	query := fmt.Sprintf(
		"UPDATE prd_record SET %s WHERE lot_no = $%d",
		strings.Join(sets, ", "), len(args),
	)
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, fmt.Sprintf("failed to apply stage update to lot %s", lotNo))
	}
	return tag.RowsAffected(), nil
}

func (g *PgLotRepository) Delete(ctx context.Context, lotNo string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	if _, err := tx.Exec(ctx, lotDeleteQuery, lotNo); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to delete lot %s", lotNo))
	}
	return nil
}

func (g *PgLotRepository) IncompleteInspections(ctx context.Context, asOf time.Time) ([]*lot.Record, error) {
	query := repo.Join(
		lotFindQuery,
		"WHERE chk3_by IS NULL AND release_by IS NOT NULL AND r1_in_date >= $1 AND release_date <= $2",
		"ORDER BY r1_in_date",
	)
	return g.queryLots(ctx, query, asOf.AddDate(0, 0, -14), asOf.AddDate(0, 0, -2))
}
