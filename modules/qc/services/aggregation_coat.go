package services

import (
	"context"
	"sort"
	"time"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/hardcoat"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/spincoat"
	"github.com/hikari-opt/lens-qc/pkg/serrors"
)

// ErrUnknownCoatMeasure is returned for hard coat item ids outside the
// measure table.
var ErrUnknownCoatMeasure = serrors.NewError("QC_UNKNOWN_COAT_MEASURE", "unknown hard coat defect item", "")

type SpinCoatReport struct {
	TotalSheets  float64
	TotalPreGood float64
	// PreItems are rated against coated sheets, PostItems against the
	// pre-cure good quantity.
	PreItems   []MeasureRate
	PostItems  []MeasureRate
	ImportedAt *time.Time
}

// SpinCoatReport rates the pre- and post-cure defect items over the
// matching spin coat records.
func (s *AggregationService) SpinCoatReport(ctx context.Context, params *spincoat.FindParams) (*SpinCoatReport, error) {
	records, err := s.opts.SpinCoats.List(ctx, params)
	if err != nil {
		return nil, err
	}
	importedAt, err := s.freshness(ctx)
	if err != nil {
		return nil, err
	}

	out := &SpinCoatReport{ImportedAt: importedAt}
	pre := make(map[string]float64, len(spincoat.PreMeasures))
	post := make(map[string]float64, len(spincoat.PostMeasures))
	for _, r := range records {
		out.TotalSheets += r.Sheets
		out.TotalPreGood += r.PreGoodQty
		for _, m := range spincoat.PreMeasures {
			pre[m.ID] += m.Value(r)
		}
		for _, m := range spincoat.PostMeasures {
			post[m.ID] += m.Value(r)
		}
	}

	for _, m := range spincoat.PreMeasures {
		out.PreItems = append(out.PreItems, MeasureRate{
			ID:    m.ID,
			Label: m.Label,
			Count: pre[m.ID],
			Rate:  rate(pre[m.ID], out.TotalSheets),
		})
	}
	for _, m := range spincoat.PostMeasures {
		out.PostItems = append(out.PostItems, MeasureRate{
			ID:    m.ID,
			Label: m.Label,
			Count: post[m.ID],
			Rate:  rate(post[m.ID], out.TotalPreGood),
		})
	}
	return out, nil
}

// SpinCoatDay is one coat day and run count with its stage totals.
type SpinCoatDay struct {
	Date         string
	Times        float64
	Sheets       float64
	PreDefects   float64
	PreGoodQty   float64
	PostDefects  float64
	FinalGoodQty float64
	PreRate      float64
	PostRate     float64
}

type SpinCoatDailySummary struct {
	Days       []SpinCoatDay
	ImportedAt *time.Time
}

// SpinCoatDailySummary groups spin coat records by coat day and run
// count, rating total pre defects against sheets and post defects
// against the pre-cure good quantity.
func (s *AggregationService) SpinCoatDailySummary(ctx context.Context, params *spincoat.FindParams) (*SpinCoatDailySummary, error) {
	records, err := s.opts.SpinCoats.List(ctx, params)
	if err != nil {
		return nil, err
	}
	importedAt, err := s.freshness(ctx)
	if err != nil {
		return nil, err
	}

	type key struct {
		date  string
		times float64
	}
	groups := map[key]*SpinCoatDay{}
	for _, r := range records {
		if r.CoatDate == nil {
			continue
		}
		k := key{date: r.CoatDate.Format(dayLayout), times: r.Times}
		g, ok := groups[k]
		if !ok {
			g = &SpinCoatDay{Date: k.date, Times: k.times}
			groups[k] = g
		}
		g.Sheets += r.Sheets
		g.PreDefects += r.PreDefects()
		g.PreGoodQty += r.PreGoodQty
		g.PostDefects += r.PostDefects()
		g.FinalGoodQty += r.FinalGoodQty
	}

	out := &SpinCoatDailySummary{ImportedAt: importedAt}
	for _, g := range groups {
		g.PreRate = rate(g.PreDefects, g.Sheets)
		g.PostRate = rate(g.PostDefects, g.PreGoodQty)
		out.Days = append(out.Days, *g)
	}
	sort.Slice(out.Days, func(i, j int) bool {
		if out.Days[i].Date != out.Days[j].Date {
			return out.Days[i].Date < out.Days[j].Date
		}
		return out.Days[i].Times < out.Days[j].Times
	})
	return out, nil
}

// HardCoatDay is one coat day with every defect item rated against the
// coated lens count.
type HardCoatDay struct {
	Date       string
	CoatCount  float64
	PassQty    float64
	Items      []MeasureRate
	TotalCount float64
	TotalRate  float64
}

type HardCoatDailySummary struct {
	Days       []HardCoatDay
	ImportedAt *time.Time
}

// HardCoatDailySummary groups hard coat records by coat day, rating
// each defect item and their total against the coated lens count.
func (s *AggregationService) HardCoatDailySummary(ctx context.Context, params *hardcoat.FindParams) (*HardCoatDailySummary, error) {
	records, err := s.opts.HardCoats.List(ctx, params)
	if err != nil {
		return nil, err
	}
	importedAt, err := s.freshness(ctx)
	if err != nil {
		return nil, err
	}

	byDay := map[string][]*hardcoat.Record{}
	for _, r := range records {
		if r.CoatDate == nil {
			continue
		}
		day := r.CoatDate.Format(dayLayout)
		byDay[day] = append(byDay[day], r)
	}
	var order []string
	for day := range byDay {
		order = append(order, day)
	}
	sort.Strings(order)

	out := &HardCoatDailySummary{ImportedAt: importedAt}
	for _, day := range order {
		d := HardCoatDay{Date: day}
		counts := make(map[string]float64, len(hardcoat.Measures))
		for _, r := range byDay[day] {
			d.CoatCount += r.CoatCount
			d.PassQty += r.PassQty
			for _, m := range hardcoat.Measures {
				counts[m.ID] += m.Value(r)
			}
		}
		for _, m := range hardcoat.Measures {
			d.Items = append(d.Items, MeasureRate{
				ID:    m.ID,
				Label: m.Label,
				Count: counts[m.ID],
				Rate:  rate(counts[m.ID], d.CoatCount),
			})
			d.TotalCount += counts[m.ID]
		}
		d.TotalRate = rate(d.TotalCount, d.CoatCount)
		out.Days = append(out.Days, d)
	}
	return out, nil
}

// HardCoatTrendPoint is one coat day and run with one item's rate.
type HardCoatTrendPoint struct {
	Date      string
	Times     float64
	CoatCount float64
	Count     float64
	Rate      float64
}

type HardCoatItemTrend struct {
	ItemID     string
	ItemLabel  string
	Points     []HardCoatTrendPoint
	ImportedAt *time.Time
}

// HardCoatItemTrendReport tracks one defect item by coat day and run
// count. The item id resolves through the measure table, never into SQL.
func (s *AggregationService) HardCoatItemTrendReport(ctx context.Context, itemID string, params *hardcoat.FindParams) (*HardCoatItemTrend, error) {
	measure, ok := hardcoat.MeasureByID(itemID)
	if !ok {
		return nil, ErrUnknownCoatMeasure.WithDetails("%q", itemID)
	}
	records, err := s.opts.HardCoats.List(ctx, params)
	if err != nil {
		return nil, err
	}
	importedAt, err := s.freshness(ctx)
	if err != nil {
		return nil, err
	}

	type key struct {
		date  string
		times float64
	}
	groups := map[key]*HardCoatTrendPoint{}
	for _, r := range records {
		if r.CoatDate == nil {
			continue
		}
		k := key{date: r.CoatDate.Format(dayLayout), times: r.Times}
		g, ok := groups[k]
		if !ok {
			g = &HardCoatTrendPoint{Date: k.date, Times: k.times}
			groups[k] = g
		}
		g.CoatCount += r.CoatCount
		g.Count += measure.Value(r)
	}

	out := &HardCoatItemTrend{ItemID: measure.ID, ItemLabel: measure.Label, ImportedAt: importedAt}
	for _, g := range groups {
		g.Rate = rate(g.Count, g.CoatCount)
		out.Points = append(out.Points, *g)
	}
	sort.Slice(out.Points, func(i, j int) bool {
		if out.Points[i].Date != out.Points[j].Date {
			return out.Points[i].Date < out.Points[j].Date
		}
		return out.Points[i].Times < out.Points[j].Times
	})
	return out, nil
}

// HardCoatTimesTrendReport tracks the total defect rate by coat day and
// run count.
func (s *AggregationService) HardCoatTimesTrendReport(ctx context.Context, params *hardcoat.FindParams) (*HardCoatItemTrend, error) {
	records, err := s.opts.HardCoats.List(ctx, params)
	if err != nil {
		return nil, err
	}
	importedAt, err := s.freshness(ctx)
	if err != nil {
		return nil, err
	}

	type key struct {
		date  string
		times float64
	}
	groups := map[key]*HardCoatTrendPoint{}
	for _, r := range records {
		if r.CoatDate == nil {
			continue
		}
		k := key{date: r.CoatDate.Format(dayLayout), times: r.Times}
		g, ok := groups[k]
		if !ok {
			g = &HardCoatTrendPoint{Date: k.date, Times: k.times}
			groups[k] = g
		}
		g.CoatCount += r.CoatCount
		g.Count += r.TotalDefects()
	}

	out := &HardCoatItemTrend{ItemID: "total", ItemLabel: "不良合計", ImportedAt: importedAt}
	for _, g := range groups {
		g.Rate = rate(g.Count, g.CoatCount)
		out.Points = append(out.Points, *g)
	}
	sort.Slice(out.Points, func(i, j int) bool {
		if out.Points[i].Date != out.Points[j].Date {
			return out.Points[i].Date < out.Points[j].Date
		}
		return out.Points[i].Times < out.Points[j].Times
	})
	return out, nil
}
