package services_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/lot"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/defect"
	"github.com/hikari-opt/lens-qc/modules/qc/services"
)

func TestExportDefectSummary(t *testing.T) {
	env := newAggEnv(t)
	env.seedLot(t, "L1", "1", 100, func(r *lot.Record) {
		r.Defects.Set(defect.FieldRollMiss, 3)
	})

	data, err := services.NewExportService(env.svc).ExportDefectSummary(context.Background(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	v, err := f.GetCellValue("不良集計", "A1")
	require.NoError(t, err)
	require.Equal(t, "不良項目", v)

	// Category order matches the registry: row 2 is the first category.
	v, err = f.GetCellValue("不良集計", "A2")
	require.NoError(t, err)
	require.Equal(t, "巻きミス", v)
	v, err = f.GetCellValue("不良集計", "B2")
	require.NoError(t, err)
	require.Equal(t, "3", v)
	v, err = f.GetCellValue("不良集計", "C2")
	require.NoError(t, err)
	require.Equal(t, "3", v)
}

func TestExportIncompleteInspections(t *testing.T) {
	env := newAggEnv(t)
	env.seedLot(t, "L1", "1", 100, func(r *lot.Record) {
		r.ProductID = "P100"
		r.R1InDate = dayPtr(t, "2024-04-10")
		r.ReleaseBy = intPtr(1)
	})
	_, err := env.lots.ApplyStage(context.Background(), "L1", lot.StageUpdate{Stage: lot.StageRelease, Date: dayPtr(t, "2024-04-15")})
	require.NoError(t, err)

	data, err := services.NewExportService(env.svc).ExportIncompleteInspections(context.Background(), day(t, "2024-04-20"))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	v, err := f.GetCellValue("検査未完了", "A2")
	require.NoError(t, err)
	require.Equal(t, "L1", v)
	v, err = f.GetCellValue("検査未完了", "D2")
	require.NoError(t, err)
	require.Equal(t, "2024-04-10", v)
}
