package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/instruction"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/lot"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/defect"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/entities/product"
	"github.com/hikari-opt/lens-qc/modules/qc/infrastructure/persistence"
	"github.com/hikari-opt/lens-qc/modules/qc/services"
)

// aggEnv bundles an AggregationService with seedable repositories.
type aggEnv struct {
	svc          *services.AggregationService
	lots         *persistence.InMemLotRepository
	ngDetails    *persistence.InMemNGDetailRepository
	instructions *persistence.InMemInstructionRepository
	products     *persistence.InMemProductRepository
	monomers     *persistence.InMemMonomerRepository
	filmCuts     *persistence.InMemFilmCutRepository
	filmProcess  *persistence.InMemFilmProcessRepository
	spinCoats    *persistence.InMemSpinCoatRepository
	hardCoats    *persistence.InMemHardCoatRepository
	state        *persistence.InMemImportStateRepository
}

func newAggEnv(t *testing.T) *aggEnv {
	t.Helper()
	env := &aggEnv{
		lots:         persistence.NewInMemLotRepository(),
		ngDetails:    persistence.NewInMemNGDetailRepository(),
		instructions: persistence.NewInMemInstructionRepository(),
		products:     persistence.NewInMemProductRepository(),
		monomers:     persistence.NewInMemMonomerRepository(),
		filmCuts:     persistence.NewInMemFilmCutRepository(),
		filmProcess:  persistence.NewInMemFilmProcessRepository(),
		spinCoats:    persistence.NewInMemSpinCoatRepository(),
		hardCoats:    persistence.NewInMemHardCoatRepository(),
		state:        persistence.NewInMemImportStateRepository(),
	}
	env.svc = services.NewAggregationService(services.AggregationServiceOptions{
		Lots:         env.lots,
		NGDetails:    env.ngDetails,
		Instructions: env.instructions,
		Products:     env.products,
		Monomers:     env.monomers,
		FilmCuts:     env.filmCuts,
		FilmProcess:  env.filmProcess,
		SpinCoats:    env.spinCoats,
		HardCoats:    env.hardCoats,
		State:        services.NewImportStateService(env.state),
		Logger:       quietLogger(),
	})
	return env
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func dayPtr(t *testing.T, s string) *time.Time {
	d := day(t, s)
	return &d
}

func intPtr(v int) *int { return &v }

// seedLot stores a lot with the given injected quantity, applying mods
// on top of a blank record.
func (e *aggEnv) seedLot(t *testing.T, lotNo, mono string, inject float64, mods func(r *lot.Record)) {
	t.Helper()
	r := &lot.Record{
		LotNo:       lotNo,
		MonomerType: mono,
		InjectQty:   inject,
		Defects:     make(defect.Counts),
	}
	if mods != nil {
		mods(r)
	}
	require.NoError(t, e.lots.Upsert(context.Background(), r))
}

func TestDefectSummaryFoldsCompositeCategories(t *testing.T) {
	env := newAggEnv(t)
	env.seedLot(t, "L1", "1", 100, func(r *lot.Record) {
		r.Defects.Set(defect.FieldTear, 2)
		r.Defects.Set(defect.FieldCrack, 1)
	})
	env.seedLot(t, "L2", "1", 100, func(r *lot.Record) {
		r.Defects.Set(defect.FieldTearRls, 3)
	})
	require.NoError(t, env.state.SetImportedAt(context.Background(), day(t, "2024-04-10")))

	sum, err := env.svc.DefectSummary(context.Background(), nil)
	require.NoError(t, err)
	require.InDelta(t, 200, sum.TotalInject, 1e-9)
	require.Len(t, sum.Items, len(defect.Categories))
	require.NotNil(t, sum.ImportedAt)

	byID := map[string]services.CategoryRate{}
	for _, item := range sum.Items {
		byID[item.ID] = item
	}
	require.InDelta(t, 5, byID["tear"].Count, 1e-9, "tear folds both raw counters")
	require.InDelta(t, 2.5, byID["tear"].Rate, 1e-9)
	require.InDelta(t, 1, byID["crack"].Count, 1e-9)
	require.InDelta(t, 0.5, byID["crack"].Rate, 1e-9)
	require.Zero(t, byID["haze"].Count)
}

func TestDefectSummaryZeroDenominator(t *testing.T) {
	env := newAggEnv(t)
	sum, err := env.svc.DefectSummary(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, sum.TotalInject)
	for _, item := range sum.Items {
		require.Zero(t, item.Rate, "a zero denominator reads as a zero rate")
	}
}

func TestDefectSummaryInvertedRange(t *testing.T) {
	env := newAggEnv(t)
	env.seedLot(t, "L1", "1", 100, func(r *lot.Record) {
		r.R1InDate = dayPtr(t, "2024-04-15")
		r.Defects.Set(defect.FieldTear, 5)
	})

	sum, err := env.svc.DefectSummary(context.Background(), &lot.FindParams{
		R1From: dayPtr(t, "2024-05-01"),
		R1To:   dayPtr(t, "2024-04-01"),
	})
	require.NoError(t, err, "an inverted range is an empty result, not a failure")
	require.Zero(t, sum.TotalInject)
	for _, item := range sum.Items {
		require.Zero(t, item.Count)
		require.Zero(t, item.Rate)
	}
}

func TestMonomerDailyTrendCountsOnlySignedOffLots(t *testing.T) {
	env := newAggEnv(t)
	env.seedLot(t, "L1", "1", 100, func(r *lot.Record) {
		r.Chk3By = intPtr(1)
		r.Defects.Set(defect.FieldCrack, 4)
	})
	env.seedLot(t, "L2", "1", 50, func(r *lot.Record) {
		r.Chk3By = intPtr(1)
		r.Defects.Set(defect.FieldHaze, 2)
	})
	env.seedLot(t, "L3", "2", 80, func(r *lot.Record) {
		r.Chk3By = intPtr(1)
	})
	// Not signed off: excluded from the trend.
	env.seedLot(t, "L4", "1", 999, func(r *lot.Record) {
		r.Defects.Set(defect.FieldCrack, 99)
	})
	ctx := context.Background()
	d := dayPtr(t, "2024-04-02")
	for _, lotNo := range []string{"L1", "L2", "L3", "L4"} {
		_, err := env.lots.ApplyStage(ctx, lotNo, lot.StageUpdate{Stage: lot.StageR2Inject, Date: d})
		require.NoError(t, err)
	}

	trend, err := env.svc.MonomerDailyTrend(ctx, nil)
	require.NoError(t, err)
	require.Len(t, trend.Points, 2)

	require.Equal(t, "2024-04-02", trend.Points[0].Date)
	require.Equal(t, "1", trend.Points[0].MonomerType)
	require.InDelta(t, 150, trend.Points[0].TotalInject, 1e-9)
	require.InDelta(t, 6, trend.Points[0].DefectCount, 1e-9)
	require.InDelta(t, 4, trend.Points[0].Rate, 1e-9)

	require.Equal(t, "2", trend.Points[1].MonomerType)
	require.Zero(t, trend.Points[1].DefectCount)
}

func TestDefectItemTrend(t *testing.T) {
	env := newAggEnv(t)
	env.seedLot(t, "L1", "1", 200, func(r *lot.Record) {
		r.Chk3By = intPtr(1)
		r.Defects.Set(defect.FieldTear, 3)
		r.Defects.Set(defect.FieldTearRls, 1)
		r.Defects.Set(defect.FieldCrack, 50)
	})
	ctx := context.Background()
	_, err := env.lots.ApplyStage(ctx, "L1", lot.StageUpdate{Stage: lot.StageR2Inject, Date: dayPtr(t, "2024-04-02")})
	require.NoError(t, err)

	trend, err := env.svc.DefectItemTrend(ctx, "tear", nil)
	require.NoError(t, err)
	require.Len(t, trend.Points, 1)
	require.InDelta(t, 4, trend.Points[0].DefectCount, 1e-9, "only the category's own counters contribute")
	require.InDelta(t, 2, trend.Points[0].Rate, 1e-9)

	_, err = env.svc.DefectItemTrend(ctx, "no_such_item", nil)
	require.ErrorIs(t, err, defect.ErrUnknownCategory)
}

func TestHighDefectRatesSortsWorstFirst(t *testing.T) {
	env := newAggEnv(t)
	ctx := context.Background()
	require.NoError(t, env.monomers.Save(ctx, &product.Monomer{Type: "1", Name: "CR-39", Target: 95}))

	env.seedLot(t, "L1", "1", 100, func(r *lot.Record) {
		r.Defects.Set(defect.FieldCrack, 10)
		r.Defects.Set(defect.FieldHaze, 2)
	})
	env.seedLot(t, "L2", "2", 100, func(r *lot.Record) {
		r.Defects.Set(defect.FieldCrack, 5)
	})

	report, err := env.svc.HighDefectRates(ctx, nil)
	require.NoError(t, err)
	require.Len(t, report.Items, 3, "zero categories never appear")

	require.InDelta(t, 10, report.Items[0].Rate, 1e-9)
	require.Equal(t, "crack", report.Items[0].CategoryID)
	require.Equal(t, "1", report.Items[0].MonomerType)
	require.Equal(t, "CR-39", report.Items[0].MonomerName)
	require.NotNil(t, report.Items[0].Target)
	require.InDelta(t, 95, *report.Items[0].Target, 1e-9)

	require.InDelta(t, 5, report.Items[1].Rate, 1e-9)
	require.Empty(t, report.Items[1].MonomerName, "monomers missing from the master carry no name")
	require.Nil(t, report.Items[1].Target)
	require.InDelta(t, 2, report.Items[2].Rate, 1e-9)
}

func TestMonomerInspectionSummary(t *testing.T) {
	env := newAggEnv(t)
	ctx := context.Background()
	require.NoError(t, env.monomers.Save(ctx, &product.Monomer{Type: "1", Name: "CR-39", Target: 95}))
	require.NoError(t, env.monomers.Save(ctx, &product.Monomer{Type: "2", Name: "MR-8", Target: 90}))

	env.seedLot(t, "L1", "1", 200, func(r *lot.Record) {
		r.Chk3By = intPtr(1)
		r.AGrade = 160
		r.BGrade = 20
		r.Defects.Set(defect.FieldCrack, 12)
		r.Defects.Set(defect.FieldHaze, 3)
		r.Defects.Set(defect.FieldTear, 1)
		r.Defects.Set(defect.FieldPeel, 1)
		r.Defects.Set(defect.FieldChip, 1)
		r.Defects.Set(defect.FieldDrop, 2)
	})
	_, err := env.lots.ApplyStage(ctx, "L1", lot.StageUpdate{Stage: lot.StageFinalCheck, Date: dayPtr(t, "2024-04-03")})
	require.NoError(t, err)

	report, err := env.svc.MonomerInspectionSummary(ctx, dayPtr(t, "2024-04-01"), dayPtr(t, "2024-04-30"))
	require.NoError(t, err)
	require.Len(t, report.Items, 1, "monomers with no signed-off volume are dropped")

	item := report.Items[0]
	require.Equal(t, "CR-39", item.MonomerName)
	require.InDelta(t, 200, item.TotalShots, 1e-9)
	require.InDelta(t, 180, item.GoodCount, 1e-9)
	require.InDelta(t, 20, item.DefectCount, 1e-9)
	require.InDelta(t, 90, item.GoodRate, 1e-9)
	require.InDelta(t, -5, item.Difference, 1e-9)
	require.Len(t, item.TopDefects, 5, "only the five heaviest categories are listed")
	require.InDelta(t, 12, item.TopDefects[0].Count, 1e-9)

	// Outside the check window nothing matches.
	report, err = env.svc.MonomerInspectionSummary(ctx, dayPtr(t, "2024-05-01"), dayPtr(t, "2024-05-31"))
	require.NoError(t, err)
	require.Empty(t, report.Items)
}

func TestStageProgressReport(t *testing.T) {
	env := newAggEnv(t)
	ctx := context.Background()
	require.NoError(t, env.monomers.Save(ctx, &product.Monomer{Type: "1", Name: "CR-39"}))
	require.NoError(t, env.monomers.Save(ctx, &product.Monomer{Type: "2", Name: "MR-8"}))

	env.seedLot(t, "L1", "1", 100, func(r *lot.Record) {
		r.R1Injector = intPtr(1)
		r.R2Injector = intPtr(1)
		r.ReleaseBy = intPtr(1)
		r.Chk3By = intPtr(1)
	})
	env.seedLot(t, "L2", "1", 100, func(r *lot.Record) {
		r.R1Injector = intPtr(1)
	})

	report, err := env.svc.StageProgressReport(ctx, nil)
	require.NoError(t, err)
	require.Len(t, report.Items, 2, "monomers without lots still appear")

	byType := map[string]services.StageProgress{}
	for _, item := range report.Items {
		byType[item.MonomerType] = item
	}
	cr := byType["1"]
	require.Equal(t, 2, cr.TotalLots)
	require.Equal(t, 2, cr.R1Injected)
	require.Equal(t, 1, cr.R2Injected)
	require.Equal(t, 1, cr.Released)
	require.Equal(t, 1, cr.Checked3rd)
	require.False(t, cr.AllChecked())

	mr := byType["2"]
	require.Zero(t, mr.TotalLots)
	require.False(t, mr.AllChecked())
}

func TestMonomerAchievementReport(t *testing.T) {
	env := newAggEnv(t)
	ctx := context.Background()
	require.NoError(t, env.monomers.Save(ctx, &product.Monomer{Type: "1", Name: "CR-39", Target: 90}))

	_, err := env.instructions.CreateIfAbsent(ctx, &instruction.Record{
		ProductID: "P100", Date: day(t, "2024-04-01"), Qty: 500,
	})
	require.NoError(t, err)
	_, err = env.instructions.CreateIfAbsent(ctx, &instruction.Record{
		ProductID: "P200", Date: day(t, "2024-04-01"), Qty: 300,
	})
	require.NoError(t, err)

	// Two checked lots against the same instruction: its quantity counts once.
	seed := func(lotNo, productID string, inject, good float64, checked bool) {
		env.seedLot(t, lotNo, "1", inject, func(r *lot.Record) {
			r.ProductID = productID
			r.R1InDate = dayPtr(t, "2024-04-01")
			r.AGrade = good
		})
		if checked {
			_, err := env.lots.ApplyStage(ctx, lotNo, lot.StageUpdate{Stage: lot.StageFinalCheck, Date: dayPtr(t, "2024-04-05")})
			require.NoError(t, err)
		}
	}
	seed("L1", "P100", 300, 280, true)
	seed("L2", "P100", 250, 230, true)
	// One lot of the P200 group is unchecked: the whole group drops out.
	seed("L3", "P200", 100, 90, true)
	seed("L4", "P200", 100, 0, false)

	report, err := env.svc.MonomerAchievementReport(ctx, dayPtr(t, "2024-04-01"), dayPtr(t, "2024-04-30"))
	require.NoError(t, err)
	require.Len(t, report.Items, 1)

	item := report.Items[0]
	require.Equal(t, "CR-39", item.MonomerName)
	require.InDelta(t, 500, item.InstructedQty, 1e-9, "the instruction counts once per group")
	require.InDelta(t, 450, item.TargetQty, 1e-9)
	require.InDelta(t, 550, item.InjectedQty, 1e-9)
	require.InDelta(t, 510, item.GoodQty, 1e-9)
	require.InDelta(t, 102, item.GoodPerOrdered, 1e-9)
	require.InDelta(t, 92.73, item.GoodPerInjected, 1e-9)
}

func TestColorTransDetailReport(t *testing.T) {
	env := newAggEnv(t)
	ctx := context.Background()
	require.NoError(t, env.products.Save(ctx, &product.Product{ID: "P100", Name: "グレー品", Color: "グレー"}))
	require.NoError(t, env.products.Save(ctx, &product.Product{ID: "P200", Name: "クリア品"}))

	env.seedLot(t, "L1", "1", 100, func(r *lot.Record) {
		r.ProductID = "P100"
		r.R1InDate = dayPtr(t, "2024-04-01")
		r.Defects.Set(defect.FieldColorDef, 2)
		r.Defects.Set(defect.FieldTransDef, 1)
	})
	// Color defects on a colorless product report only the transmittance side.
	env.seedLot(t, "L2", "1", 100, func(r *lot.Record) {
		r.ProductID = "P200"
		r.R1InDate = dayPtr(t, "2024-04-02")
		r.Defects.Set(defect.FieldColorDef, 3)
	})
	_, err := env.lots.ApplyStage(ctx, "L1", lot.StageUpdate{Stage: lot.StageFinalCheck, Date: dayPtr(t, "2024-04-10")})
	require.NoError(t, err)

	require.NoError(t, env.ngDetails.Save(ctx, &lot.NGDetail{
		LotNo: "L1", NGID: lot.NGColor, InspectQty: 50, NGQty: 5, Note: "再検査済",
	}))

	report, err := env.svc.ColorTransDetailReport(ctx, dayPtr(t, "2024-04-01"), dayPtr(t, "2024-04-30"))
	require.NoError(t, err)
	require.Len(t, report.Items, 2)

	colorLine := report.Items[0]
	require.Equal(t, "L1", colorLine.LotNo)
	require.Equal(t, lot.NGColor, colorLine.Kind)
	require.Equal(t, "グレー品", colorLine.ProductName)
	require.InDelta(t, 2, colorLine.DefectCount, 1e-9)
	require.NotNil(t, colorLine.NGRate)
	require.InDelta(t, 10, *colorLine.NGRate, 1e-9)
	require.Equal(t, "再検査済", colorLine.Note)

	transLine := report.Items[1]
	require.Equal(t, lot.NGTrans, transLine.Kind)
	require.Nil(t, transLine.NGRate, "no re-inspection quantity leaves the rate unset")
}

func TestIncompleteInspections(t *testing.T) {
	env := newAggEnv(t)
	asOf := day(t, "2024-04-20")

	env.seedLot(t, "L1", "1", 100, func(r *lot.Record) {
		r.R1InDate = dayPtr(t, "2024-04-10")
		r.ReleaseBy = intPtr(1)
	})
	_, err := env.lots.ApplyStage(context.Background(), "L1", lot.StageUpdate{Stage: lot.StageRelease, Date: dayPtr(t, "2024-04-15")})
	require.NoError(t, err)

	// Already signed off.
	env.seedLot(t, "L2", "1", 100, func(r *lot.Record) {
		r.R1InDate = dayPtr(t, "2024-04-10")
		r.ReleaseBy = intPtr(1)
		r.Chk3By = intPtr(1)
	})
	_, err = env.lots.ApplyStage(context.Background(), "L2", lot.StageUpdate{Stage: lot.StageRelease, Date: dayPtr(t, "2024-04-15")})
	require.NoError(t, err)

	report, err := env.svc.IncompleteInspections(context.Background(), asOf)
	require.NoError(t, err)
	require.Len(t, report.Lots, 1)
	require.Equal(t, "L1", report.Lots[0].LotNo)
}
