package services

import (
	"context"
	"time"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/lot"
	"github.com/hikari-opt/lens-qc/pkg/excel"
)

// ExportService renders aggregation results as XLSX workbooks for the
// line managers who still file reports by spreadsheet.
type ExportService struct {
	aggregations *AggregationService
	exporter     *excel.Exporter
}

func NewExportService(aggregations *AggregationService) *ExportService {
	return &ExportService{
		aggregations: aggregations,
		exporter:     excel.NewExporter(excel.DefaultOptions()),
	}
}

func (s *ExportService) ExportDefectSummary(ctx context.Context, params *lot.FindParams) ([]byte, error) {
	summary, err := s.aggregations.DefectSummary(ctx, params)
	if err != nil {
		return nil, err
	}
	values := make([][]any, 0, len(summary.Items))
	for _, item := range summary.Items {
		values = append(values, []any{item.Label, item.Count, item.Rate})
	}
	return s.exporter.Export(ctx, &excel.SliceDataSource{
		Name:   "不良集計",
		Cols:   []string{"不良項目", "不良数", "不良率(%)"},
		Values: values,
	})
}

func (s *ExportService) ExportMonomerAchievement(ctx context.Context, from, to *time.Time) ([]byte, error) {
	report, err := s.aggregations.MonomerAchievementReport(ctx, from, to)
	if err != nil {
		return nil, err
	}
	values := make([][]any, 0, len(report.Items))
	for _, item := range report.Items {
		values = append(values, []any{
			item.MonomerName,
			item.InstructedQty,
			item.TargetQty,
			item.InjectedQty,
			item.GoodQty,
			item.GoodPerOrdered,
			item.GoodPerInjected,
		})
	}
	return s.exporter.Export(ctx, &excel.SliceDataSource{
		Name:   "モノマー達成率",
		Cols:   []string{"モノマー種名", "指示数", "目標数", "注入数", "良品数", "指示良品率(%)", "注入良品率(%)"},
		Values: values,
	})
}

func (s *ExportService) ExportIncompleteInspections(ctx context.Context, asOf time.Time) ([]byte, error) {
	report, err := s.aggregations.IncompleteInspections(ctx, asOf)
	if err != nil {
		return nil, err
	}
	fmtDate := func(t *time.Time) any {
		if t == nil {
			return ""
		}
		return t.Format(dayLayout)
	}
	values := make([][]any, 0, len(report.Lots))
	for _, l := range report.Lots {
		values = append(values, []any{
			l.LotNo,
			l.ProductID,
			l.MonomerType,
			fmtDate(l.R1InDate),
			fmtDate(l.ReleaseDate),
			l.InjectQty,
		})
	}
	return s.exporter.Export(ctx, &excel.SliceDataSource{
		Name:   "検査未完了",
		Cols:   []string{"ロットNo", "品種", "モノマー種", "R1注入日", "リリース日", "注入数"},
		Values: values,
	})
}
