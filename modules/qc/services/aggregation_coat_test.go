package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/hardcoat"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/spincoat"
	"github.com/hikari-opt/lens-qc/modules/qc/services"
)

func (e *aggEnv) seedSpinCoat(t *testing.T, mods func(r *spincoat.Record)) {
	t.Helper()
	r := &spincoat.Record{}
	if mods != nil {
		mods(r)
	}
	require.NoError(t, e.spinCoats.Save(context.Background(), r))
}

func (e *aggEnv) seedHardCoat(t *testing.T, mods func(r *hardcoat.Record)) {
	t.Helper()
	r := &hardcoat.Record{}
	if mods != nil {
		mods(r)
	}
	require.NoError(t, e.hardCoats.Save(context.Background(), r))
}

func TestSpinCoatReport(t *testing.T) {
	env := newAggEnv(t)
	env.seedSpinCoat(t, func(r *spincoat.Record) {
		r.CoatDate = dayPtr(t, "2024-04-01")
		r.Sheets = 200
		r.PreBlackDust = 10
		r.PreGoodQty = 160
		r.PostScratch = 4
		r.FinalGoodQty = 150
	})

	report, err := env.svc.SpinCoatReport(context.Background(), nil)
	require.NoError(t, err)
	require.InDelta(t, 200, report.TotalSheets, 1e-9)
	require.InDelta(t, 160, report.TotalPreGood, 1e-9)

	byID := map[string]float64{}
	for _, item := range report.PreItems {
		byID[item.ID] = item.Rate
	}
	for _, item := range report.PostItems {
		byID[item.ID] = item.Rate
	}
	require.InDelta(t, 5, byID["pre_black_dust"], 1e-9, "pre items rate against coated sheets")
	require.InDelta(t, 2.5, byID["post_scratch"], 1e-9, "post items rate against pre-cure good")
}

func TestSpinCoatDailySummary(t *testing.T) {
	env := newAggEnv(t)
	// Same day, two runs: the run count splits the groups.
	env.seedSpinCoat(t, func(r *spincoat.Record) {
		r.CoatDate = dayPtr(t, "2024-04-01")
		r.Times = 1
		r.Sheets = 100
		r.PreWrinkle = 2
		r.PreGoodQty = 90
		r.PostBubble = 3
	})
	env.seedSpinCoat(t, func(r *spincoat.Record) {
		r.CoatDate = dayPtr(t, "2024-04-01")
		r.Times = 2
		r.Sheets = 50
		r.PreGoodQty = 50
	})

	report, err := env.svc.SpinCoatDailySummary(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, report.Days, 2)

	first := report.Days[0]
	require.Equal(t, "2024-04-01", first.Date)
	require.InDelta(t, 1, first.Times, 1e-9)
	require.InDelta(t, 2, first.PreDefects, 1e-9)
	require.InDelta(t, 2, first.PreRate, 1e-9)
	require.InDelta(t, 3, first.PostDefects, 1e-9)
	require.InDelta(t, 3.33, first.PostRate, 1e-9)

	second := report.Days[1]
	require.InDelta(t, 2, second.Times, 1e-9)
	require.Zero(t, second.PreRate)
}

func TestHardCoatDailySummary(t *testing.T) {
	env := newAggEnv(t)
	env.seedHardCoat(t, func(r *hardcoat.Record) {
		r.CoatDate = dayPtr(t, "2024-04-01")
		r.Times = 1
		r.CoatCount = 100
		r.PreForeign = 3
		r.TransScratch = 2
		r.PassQty = 95
	})
	env.seedHardCoat(t, func(r *hardcoat.Record) {
		r.CoatDate = dayPtr(t, "2024-04-02")
		r.Times = 1
		r.CoatCount = 50
		r.PassQty = 50
	})

	report, err := env.svc.HardCoatDailySummary(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, report.Days, 2)

	first := report.Days[0]
	require.Equal(t, "2024-04-01", first.Date)
	require.InDelta(t, 100, first.CoatCount, 1e-9)
	require.Len(t, first.Items, len(hardcoat.Measures))
	require.InDelta(t, 5, first.TotalCount, 1e-9)
	require.InDelta(t, 5, first.TotalRate, 1e-9)

	byID := map[string]float64{}
	for _, item := range first.Items {
		byID[item.ID] = item.Rate
	}
	require.InDelta(t, 3, byID["pre_foreign"], 1e-9)
	require.InDelta(t, 2, byID["trans_scratch"], 1e-9)

	require.Zero(t, report.Days[1].TotalRate)
}

func TestHardCoatItemTrendReport(t *testing.T) {
	env := newAggEnv(t)
	env.seedHardCoat(t, func(r *hardcoat.Record) {
		r.CoatDate = dayPtr(t, "2024-04-01")
		r.Times = 1
		r.CoatCount = 100
		r.PreForeign = 4
	})
	env.seedHardCoat(t, func(r *hardcoat.Record) {
		r.CoatDate = dayPtr(t, "2024-04-01")
		r.Times = 2
		r.CoatCount = 200
		r.PreForeign = 2
	})

	trend, err := env.svc.HardCoatItemTrendReport(context.Background(), "pre_foreign", nil)
	require.NoError(t, err)
	require.Equal(t, "pre_foreign", trend.ItemID)
	require.Len(t, trend.Points, 2)
	require.InDelta(t, 4, trend.Points[0].Rate, 1e-9)
	require.InDelta(t, 1, trend.Points[1].Rate, 1e-9)

	_, err = env.svc.HardCoatItemTrendReport(context.Background(), "no_such_item", nil)
	require.ErrorIs(t, err, services.ErrUnknownCoatMeasure)
}

func TestHardCoatTimesTrendReport(t *testing.T) {
	env := newAggEnv(t)
	env.seedHardCoat(t, func(r *hardcoat.Record) {
		r.CoatDate = dayPtr(t, "2024-04-01")
		r.Times = 1
		r.CoatCount = 100
		r.PreForeign = 3
		r.ProjDust = 2
	})

	trend, err := env.svc.HardCoatTimesTrendReport(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "total", trend.ItemID)
	require.Equal(t, "不良合計", trend.ItemLabel)
	require.Len(t, trend.Points, 1)
	require.InDelta(t, 5, trend.Points[0].Count, 1e-9)
	require.InDelta(t, 5, trend.Points[0].Rate, 1e-9)
}
