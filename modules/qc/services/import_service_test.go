package services_test

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/lot"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/defect"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/entities/product"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/entities/refcode"
	"github.com/hikari-opt/lens-qc/modules/qc/infrastructure/persistence"
	"github.com/hikari-opt/lens-qc/modules/qc/services"
	"github.com/hikari-opt/lens-qc/pkg/eventbus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// importEnv bundles an ImportService with its in-memory repositories so
// tests can seed masters and inspect what a feed run wrote.
type importEnv struct {
	svc          *services.ImportService
	lots         *persistence.InMemLotRepository
	filmCuts     *persistence.InMemFilmCutRepository
	filmProcess  *persistence.InMemFilmProcessRepository
	spinCoats    *persistence.InMemSpinCoatRepository
	hardCoats    *persistence.InMemHardCoatRepository
	instructions *persistence.InMemInstructionRepository
	products     *persistence.InMemProductRepository
	refCodes     *persistence.InMemRefCodeRepository
	state        *persistence.InMemImportStateRepository
	bus          eventbus.EventBus
}

func newImportEnv(t *testing.T, adjust func(opts *services.ImportServiceOptions)) *importEnv {
	t.Helper()
	env := &importEnv{
		lots:         persistence.NewInMemLotRepository(),
		filmCuts:     persistence.NewInMemFilmCutRepository(),
		filmProcess:  persistence.NewInMemFilmProcessRepository(),
		spinCoats:    persistence.NewInMemSpinCoatRepository(),
		hardCoats:    persistence.NewInMemHardCoatRepository(),
		instructions: persistence.NewInMemInstructionRepository(),
		products:     persistence.NewInMemProductRepository(),
		refCodes:     persistence.NewInMemRefCodeRepository(),
		state:        persistence.NewInMemImportStateRepository(),
		bus:          eventbus.NewEventPublisher(quietLogger()),
	}
	opts := services.ImportServiceOptions{
		Lots:         env.lots,
		FilmCuts:     env.filmCuts,
		FilmProcess:  env.filmProcess,
		SpinCoats:    env.spinCoats,
		HardCoats:    env.hardCoats,
		Instructions: env.instructions,
		Products:     env.products,
		Workers:      persistence.NewInMemWorkerRepository(&product.Worker{ID: 1, Name: "田中"}, &product.Worker{ID: 2, Name: "佐藤"}),
		Machines:     persistence.NewInMemMachineRepository(&product.Machine{ID: 3, Name: "T-3"}, &product.Machine{ID: 4, Name: "T-4"}),
		RefCodes:     env.refCodes,
		State:        services.NewImportStateService(env.state),
		Publisher:    env.bus,
		Logger:       quietLogger(),
	}
	if adjust != nil {
		adjust(&opts)
	}
	env.svc = services.NewImportService(opts)
	return env
}

func writeFeed(t *testing.T, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(rows))
	require.NoError(t, f.Close())
	return path
}

func (e *importEnv) run(t *testing.T, kind services.FeedKind, rows [][]string) services.ImportRunResult {
	t.Helper()
	result, err := e.svc.Import(context.Background(), services.ImportRequest{
		Path:     writeFeed(t, rows),
		Kind:     kind,
		Encoding: "utf8",
	})
	require.NoError(t, err)
	return result
}

// primaryRow builds an 89-column primary feed row.
func primaryRow(lotNo string, set func(row []string)) []string {
	row := make([]string, 89)
	row[0] = lotNo
	if set != nil {
		set(row)
	}
	return row
}

func TestLotPrimaryImport(t *testing.T) {
	env := newImportEnv(t, nil)
	require.NoError(t, env.products.Save(context.Background(), &product.Product{ID: "1234", MonomerType: "9", Name: "CR IV"}))

	var got lot.ImportedEvent
	env.bus.Subscribe(func(e lot.ImportedEvent) { got = e })

	result := env.run(t, services.FeedLotPrimary, [][]string{
		primaryRow("1234567890-01", func(row []string) {
			row[1] = "2024/4/1"
			row[2] = "T-3"
			row[5] = "田中,佐藤"
			row[7] = "佐藤"
			row[12] = "100"
			row[13] = "2"  // roll_miss
			row[23] = "3"  // tear
			row[74] = "90" // a_grade
			row[75] = "5"
			row[80] = "田中"
			row[87] = "95"
			row[88] = "T-4"
		}),
	})

	require.True(t, result.Success)
	require.Equal(t, "1件のデータをインポートしました。", result.Message)
	require.Equal(t, 1, result.Committed)
	require.Empty(t, result.Errors)

	rec, err := env.lots.GetByLot(context.Background(), "1234567890-01")
	require.NoError(t, err)
	require.Equal(t, "1234", rec.ProductID)
	require.Equal(t, "9", rec.MonomerType, "product master overrides the lot prefix")
	require.NotNil(t, rec.R1InDate)
	require.Equal(t, 3, *rec.R1Tank)
	require.Equal(t, 1, *rec.R2Injector, "first name of the pair wins")
	require.Equal(t, 2, *rec.R1Injector)
	require.Equal(t, 1, *rec.ReleaseBy)
	require.Equal(t, 4, *rec.AnnealTank)
	require.InDelta(t, 100, rec.InjectQty, 1e-9)
	require.InDelta(t, 2, rec.DefectCount(defect.FieldRollMiss), 1e-9)
	require.InDelta(t, 3, rec.DefectCount(defect.FieldTear), 1e-9)
	require.InDelta(t, 95, rec.GoodQty(), 1e-9)

	state, err := env.state.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, state.ImportedAt)

	require.Equal(t, result.RunID, got.RunID)
	require.Equal(t, 1, got.Rows)
}

func TestLotPrimaryUnknownProductKeepsPrefix(t *testing.T) {
	env := newImportEnv(t, nil)
	result := env.run(t, services.FeedLotPrimary, [][]string{
		primaryRow("56789012345-01", nil),
	})
	require.True(t, result.Success)

	rec, err := env.lots.GetByLot(context.Background(), "56789012345-01")
	require.NoError(t, err)
	require.Equal(t, "56789", rec.ProductID, "11-char prefixes carry a 5-char product code")
	require.Equal(t, "5", rec.MonomerType)
}

func TestLotPrimaryRejectsMalformedLotNo(t *testing.T) {
	env := newImportEnv(t, nil)
	result := env.run(t, services.FeedLotPrimary, [][]string{
		primaryRow("123-45", nil),
		primaryRow("1234567890-01", nil),
	})

	require.True(t, result.Success)
	require.Equal(t, 1, result.Committed)
	require.Len(t, result.Errors, 1)
	require.Equal(t, 1, result.Errors[0].Row)
	require.Contains(t, result.Errors[0].Message, "ロットNoの形式が不正です: 123-45")

	_, err := env.lots.GetByLot(context.Background(), "1234567890-01")
	require.NoError(t, err)
}

func TestLotPrimaryReimportIsIdempotent(t *testing.T) {
	env := newImportEnv(t, nil)
	rows := [][]string{
		primaryRow("1234567890-01", func(row []string) { row[12] = "100" }),
	}
	first := env.run(t, services.FeedLotPrimary, rows)
	second := env.run(t, services.FeedLotPrimary, rows)

	require.Equal(t, first.Committed, second.Committed)
	all, err := env.lots.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestLotPrimaryReimportPreservesStageDates(t *testing.T) {
	env := newImportEnv(t, nil)
	env.run(t, services.FeedLotPrimary, [][]string{
		primaryRow("1234567890-01", func(row []string) { row[12] = "100" }),
	})

	stage := env.run(t, services.FeedLotStage, [][]string{
		{"date", "lot", "", "", "", "", "", "", "", "", "code"},
		{"2024/4/2", "1234567890-01", "", "", "", "", "", "", "", "", "4", "", "50", "", "", "2024/4/2 10:30:00"},
	})
	require.True(t, stage.Success)

	env.run(t, services.FeedLotPrimary, [][]string{
		primaryRow("1234567890-01", func(row []string) { row[12] = "120" }),
	})

	rec, err := env.lots.GetByLot(context.Background(), "1234567890-01")
	require.NoError(t, err)
	require.InDelta(t, 120, rec.InjectQty, 1e-9, "feed-owned fields follow the re-import")
	require.NotNil(t, rec.R2Date, "stage-owned fields survive the re-import")
	require.NotNil(t, rec.R2Qty)
	require.InDelta(t, 50, *rec.R2Qty, 1e-9)
	require.NotNil(t, rec.R2Timestamp)
}

func TestLotPrimarySupersedesReworkedLots(t *testing.T) {
	env := newImportEnv(t, nil)
	env.run(t, services.FeedLotPrimary, [][]string{
		primaryRow("1234567890-01", nil),
	})

	result := env.run(t, services.FeedLotPrimary, [][]string{
		primaryRow("1234567890-012", nil),
	})
	require.True(t, result.Success)

	_, err := env.lots.GetByLot(context.Background(), "1234567890-01")
	require.ErrorIs(t, err, persistence.ErrLotNotFound, "the reworked parent lot is dropped")
	_, err = env.lots.GetByLot(context.Background(), "1234567890-012")
	require.NoError(t, err)
}

func TestLotPrimaryEmptyFeed(t *testing.T) {
	env := newImportEnv(t, nil)
	result := env.run(t, services.FeedLotPrimary, [][]string{})

	require.False(t, result.Success)
	require.Equal(t, "データが読み込めませんでした。CSVファイルの形式を確認してください。", result.Message)

	state, err := env.state.Get(context.Background())
	require.NoError(t, err)
	require.Nil(t, state.ImportedAt, "a failed run never moves the freshness timestamp")
}

func TestLotPrimaryShortRowsUnreadable(t *testing.T) {
	env := newImportEnv(t, nil)
	result := env.run(t, services.FeedLotPrimary, [][]string{
		{"1234567890-01", "2024/4/1", "100"},
		{"1234567891-01", "2024/4/1", "120"},
	})

	require.False(t, result.Success, "rows below the column gate are no more readable than an empty file")
	require.Equal(t, "データが読み込めませんでした。CSVファイルの形式を確認してください。", result.Message)

	state, err := env.state.Get(context.Background())
	require.NoError(t, err)
	require.Nil(t, state.ImportedAt)
}

func TestLotPrimaryRowErrorLimit(t *testing.T) {
	env := newImportEnv(t, func(opts *services.ImportServiceOptions) {
		opts.MaxRowErrors = 2
	})
	_, err := env.svc.Import(context.Background(), services.ImportRequest{
		Path: writeFeed(t, [][]string{
			primaryRow("a-1", nil),
			primaryRow("b-2", nil),
			primaryRow("c-3", nil),
		}),
		Kind:     services.FeedLotPrimary,
		Encoding: "utf8",
	})
	require.ErrorIs(t, err, services.ErrRunFailed)
}

func TestLotStageFeed(t *testing.T) {
	env := newImportEnv(t, nil)
	env.run(t, services.FeedLotPrimary, [][]string{
		primaryRow("1234567890-01", nil),
	})
	stateBefore, err := env.state.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stateBefore.ImportedAt)
	before := *stateBefore.ImportedAt

	result := env.run(t, services.FeedLotStage, [][]string{
		{"header"},
		{"2024/4/2", "1234567890-01", "", "", "", "", "", "", "", "", "4", "", "50", "", "", "2024/4/2 10:30:00"},
		{"2024/4/5", "1234567890-01", "", "", "", "", "", "", "", "", "10", "", ""},
		{"2024/4/6", "1234567890-01", "", "", "", "", "", "", "", "", "99", "", ""},
	})
	require.True(t, result.Success)
	require.Equal(t, 3, result.Rows)
	require.Equal(t, 2, result.Committed, "unknown process codes are dropped")
	require.Equal(t, "2件のデータをインポートしました。", result.Message)

	rec, err := env.lots.GetByLot(context.Background(), "1234567890-01")
	require.NoError(t, err)
	require.NotNil(t, rec.R2Date)
	require.Equal(t, "2024-04-02", rec.R2Date.Format("2006-01-02"))
	require.NotNil(t, rec.R2Qty)
	require.InDelta(t, 50, *rec.R2Qty, 1e-9)
	require.NotNil(t, rec.R2Timestamp)
	require.Equal(t, "2024-04-02 10:30", rec.R2Timestamp.Format("2006-01-02 15:04"))
	require.NotNil(t, rec.CheckDate)
	require.Equal(t, "2024-04-05", rec.CheckDate.Format("2006-01-02"))

	stateAfter, err := env.state.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, before, *stateAfter.ImportedAt, "stage runs leave the freshness timestamp alone")
}

func TestLotStageUnknownLotStillCounts(t *testing.T) {
	env := newImportEnv(t, nil)
	result := env.run(t, services.FeedLotStage, [][]string{
		{"header"},
		{"2024/4/2", "0000000000-00", "", "", "", "", "", "", "", "", "6", "", ""},
	})
	require.True(t, result.Success)
	require.Equal(t, 1, result.Committed)
}

func TestLotStageShortRowsUnreadable(t *testing.T) {
	env := newImportEnv(t, nil)
	result := env.run(t, services.FeedLotStage, [][]string{
		{"header"},
		{"2024/4/2", "1234567890-01", "6"},
	})
	require.False(t, result.Success)
	require.Equal(t, "データが読み込めませんでした。CSVファイルの形式を確認してください。", result.Message)
}

func TestLotStageUnparseableDateClearsStoredDate(t *testing.T) {
	env := newImportEnv(t, nil)
	env.run(t, services.FeedLotPrimary, [][]string{
		primaryRow("1234567890-01", nil),
	})

	first := env.run(t, services.FeedLotStage, [][]string{
		{"header"},
		{"2024/4/2", "1234567890-01", "", "", "", "", "", "", "", "", "6", "", ""},
	})
	require.True(t, first.Success)
	rec, err := env.lots.GetByLot(context.Background(), "1234567890-01")
	require.NoError(t, err)
	require.NotNil(t, rec.ReleaseDate)

	second := env.run(t, services.FeedLotStage, [][]string{
		{"header"},
		{"出荷日不明", "1234567890-01", "", "", "", "", "", "", "", "", "6", "", ""},
	})
	require.True(t, second.Success)
	rec, err = env.lots.GetByLot(context.Background(), "1234567890-01")
	require.NoError(t, err)
	require.Nil(t, rec.ReleaseDate, "a stage row always writes its column, NULL when the date does not parse")
}

func TestFilmCutFeedLenientResolution(t *testing.T) {
	env := newImportEnv(t, nil)
	require.NoError(t, env.refCodes.Save(context.Background(), refcode.Code{Domain: refcode.DomainMonomer, ID: 1, Name: "CR39"}))

	row := make([]string, 30)
	row[0] = "2024/4/1"
	row[2] = "CR39"
	row[5] = "謎アイテム"
	row[12] = "100"
	row[20] = "90"
	row[28] = "85"
	row[29] = "4月"

	result := env.run(t, services.FeedFilmCut, [][]string{
		{"header"},
		row,
	})

	require.False(t, result.Success, "unresolved names fail the run report")
	require.Equal(t, 1, result.Committed, "the row itself still imports")
	require.Len(t, result.Errors, 1)
	require.Contains(t, result.Errors[0].Message, "アイテムの「謎アイテム」が見つかりません")

	records, err := env.filmCuts.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Monomer)
	require.Equal(t, 1, *records[0].Monomer)
	require.Nil(t, records[0].Item, "unresolved codes stay unset")
	require.InDelta(t, 100, records[0].InputQty, 1e-9)
	require.InDelta(t, 4, records[0].Month, 1e-9, "the month suffix is stripped")
}

func TestFilmCutFeedReimportOverwritesByNaturalKey(t *testing.T) {
	env := newImportEnv(t, nil)

	cutRow := func(input string) []string {
		row := make([]string, 30)
		row[0] = "2024/4/1"
		row[3] = "2" // anneal no
		row[4] = "1" // cut machine
		row[12] = input
		row[20] = "90"
		row[29] = "4月"
		return row
	}

	first := env.run(t, services.FeedFilmCut, [][]string{{"header"}, cutRow("100")})
	require.True(t, first.Success)
	second := env.run(t, services.FeedFilmCut, [][]string{{"header"}, cutRow("150")})
	require.True(t, second.Success)

	records, err := env.filmCuts.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, records, 1, "matching natural keys overwrite in place")
	require.InDelta(t, 150, records[0].InputQty, 1e-9, "the later feed wins")
}

func TestFilmCutFeedRequiresCutDate(t *testing.T) {
	env := newImportEnv(t, nil)
	row := make([]string, 30)
	result := env.run(t, services.FeedFilmCut, [][]string{
		{"header"},
		row,
	})
	require.False(t, result.Success)
	require.Zero(t, result.Committed)
	require.Contains(t, result.Errors[0].Message, "カット日が空です")
}

func TestSpinCoatFeedStrictResolution(t *testing.T) {
	env := newImportEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.refCodes.Save(ctx, refcode.Code{Domain: refcode.DomainSpinCoatType, ID: 2, Name: "瞬間"}))
	require.NoError(t, env.refCodes.Save(ctx, refcode.Code{Domain: refcode.DomainSpinCoatName, ID: 5, Name: "NX"}))

	good := make([]string, 42)
	good[0] = "2024/4/1"
	good[3] = "瞬間"
	good[4] = "NX"
	// Column 7 empty: strict resolution falls back to code 0.
	good[12] = "200"

	bad := make([]string, 42)
	bad[0] = "2024/4/1"
	bad[3] = "不明種別"

	result := env.run(t, services.FeedSpinCoat, [][]string{
		{"header"},
		good,
		bad,
	})

	require.False(t, result.Success)
	require.Equal(t, 1, result.Committed)
	require.Len(t, result.Errors, 1)
	require.Equal(t, 2, result.Errors[0].Row)
	require.Contains(t, result.Errors[0].Message, "種別の「不明種別」が見つかりません")

	records, err := env.spinCoats.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, records, 1, "rows with unresolved strict codes never import")
	require.Equal(t, 2, records[0].Type)
	require.Equal(t, 5, records[0].Name1)
	require.Equal(t, 0, records[0].CoatColor)
}

func TestInstructionFeed(t *testing.T) {
	env := newImportEnv(t, nil)
	result := env.run(t, services.FeedInstruction, [][]string{
		{"header"},
		{"", "P100", "2024/4/1", "", "", "", "", "", "", "", "", "", "", "500"},
		{"", "P100", "2024/4/1", "", "", "", "", "", "", "", "", "", "", "999"},
		{"", "", "2024/4/1", "", "", "", "", "", "", "", "", "", "", "1"},
	})

	require.False(t, result.Success)
	require.Equal(t, 1, result.Committed, "duplicate product and date pairs insert once")
	require.Len(t, result.Errors, 1)
	require.Contains(t, result.Errors[0].Message, "品種または指示日が不正です")
	require.Equal(t, "データのインポートが完了しました", result.Message)

	records, err := env.instructions.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.InDelta(t, 500, records[0].Qty, 1e-9, "the first row wins")
}

func TestProductMasterFeed(t *testing.T) {
	env := newImportEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.products.Save(ctx, &product.Product{ID: "P100", Name: "既存品", MonomerType: "1"}))

	result := env.run(t, services.FeedProductMaster, [][]string{
		{"P100", "2", "", "", "グレー", "3"},
		{"P200", "1", "5", "新製品", "", ""},
	})

	require.True(t, result.Success)
	require.Equal(t, 2, result.Committed)
	require.Equal(t, "データのインポートが完了しました。新規追加: 1件、更新: 1件", result.Message)

	updated, err := env.products.GetByID(ctx, "P100")
	require.NoError(t, err)
	require.Equal(t, "既存品", updated.Name, "blank cells keep the stored value")
	require.Equal(t, "1", updated.MonomerType)
	require.NotNil(t, updated.Kind)
	require.Equal(t, 2, *updated.Kind)
	require.Equal(t, "グレー", updated.Color)
	require.NotNil(t, updated.PolymerizeDays)
	require.Equal(t, 3, *updated.PolymerizeDays)

	added, err := env.products.GetByID(ctx, "P200")
	require.NoError(t, err)
	require.Equal(t, "新製品", added.Name)
	require.Equal(t, "5", added.MonomerType)
}

func TestImportRejectsUnknownEncoding(t *testing.T) {
	env := newImportEnv(t, nil)
	_, err := env.svc.Import(context.Background(), services.ImportRequest{
		Path:     writeFeed(t, [][]string{{"x"}}),
		Kind:     services.FeedLotPrimary,
		Encoding: "latin1",
	})
	require.ErrorIs(t, err, services.ErrRunFailed)
}
