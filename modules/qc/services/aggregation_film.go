package services

import (
	"context"
	"sort"
	"time"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/filmcut"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/filmprocess"
)

// MeasureRate is one process defect item with its summed count and rate.
type MeasureRate struct {
	ID    string
	Label string
	Count float64
	Rate  float64
}

type FilmCutReport struct {
	TotalInput float64
	TotalGood  float64
	TotalPass  float64
	// CutItems are rated against input, WashItems against cut-stage good.
	CutItems   []MeasureRate
	WashItems  []MeasureRate
	ImportedAt *time.Time
}

// FilmCutReport rates the cutting and washing defect items over the
// matching film cut records. The excluded calibration monomer and cut
// menu never contribute. When either denominator is zero every rate
// reads zero.
func (s *AggregationService) FilmCutReport(ctx context.Context, params *filmcut.FindParams) (*FilmCutReport, error) {
	records, err := s.opts.FilmCuts.List(ctx, params)
	if err != nil {
		return nil, err
	}
	importedAt, err := s.freshness(ctx)
	if err != nil {
		return nil, err
	}

	out := &FilmCutReport{ImportedAt: importedAt}
	cutCounts := make(map[string]float64, len(filmcut.CutMeasures))
	washCounts := make(map[string]float64, len(filmcut.WashMeasures))
	for _, r := range records {
		if r.Excluded() {
			continue
		}
		out.TotalInput += r.InputQty
		out.TotalGood += r.GoodQty
		out.TotalPass += r.PassQty
		for _, m := range filmcut.CutMeasures {
			cutCounts[m.ID] += m.Value(r)
		}
		for _, m := range filmcut.WashMeasures {
			washCounts[m.ID] += m.Value(r)
		}
	}

	rated := out.TotalInput > 0 && out.TotalGood > 0
	for _, m := range filmcut.CutMeasures {
		item := MeasureRate{ID: m.ID, Label: m.Label, Count: cutCounts[m.ID]}
		if rated {
			item.Rate = rate(item.Count, out.TotalInput)
		}
		out.CutItems = append(out.CutItems, item)
	}
	for _, m := range filmcut.WashMeasures {
		item := MeasureRate{ID: m.ID, Label: m.Label, Count: washCounts[m.ID]}
		if rated {
			item.Rate = rate(item.Count, out.TotalGood)
		}
		out.WashItems = append(out.WashItems, item)
	}
	return out, nil
}

// MonomerYield is the through-stage yield of one film cut monomer code.
type MonomerYield struct {
	Monomer      int
	InputQty     float64
	GoodQty      float64
	PassQty      float64
	GoodPerInput float64
	PassPerGood  float64
	PassPerInput float64
}

type MonomerYieldReport struct {
	Items      []MonomerYield
	ImportedAt *time.Time
}

// MonomerYieldReport sums input, good and pass quantities per monomer
// code over the matching film cut records.
func (s *AggregationService) MonomerYieldReport(ctx context.Context, params *filmcut.FindParams) (*MonomerYieldReport, error) {
	records, err := s.opts.FilmCuts.List(ctx, params)
	if err != nil {
		return nil, err
	}
	importedAt, err := s.freshness(ctx)
	if err != nil {
		return nil, err
	}

	groups := map[int]*MonomerYield{}
	for _, r := range records {
		if r.Excluded() || r.Monomer == nil {
			continue
		}
		g, ok := groups[*r.Monomer]
		if !ok {
			g = &MonomerYield{Monomer: *r.Monomer}
			groups[*r.Monomer] = g
		}
		g.InputQty += r.InputQty
		g.GoodQty += r.GoodQty
		g.PassQty += r.PassQty
	}

	out := &MonomerYieldReport{ImportedAt: importedAt}
	for _, g := range groups {
		g.GoodPerInput = rate(g.GoodQty, g.InputQty)
		g.PassPerGood = rate(g.PassQty, g.GoodQty)
		g.PassPerInput = rate(g.PassQty, g.InputQty)
		out.Items = append(out.Items, *g)
	}
	sort.Slice(out.Items, func(i, j int) bool { return out.Items[i].Monomer < out.Items[j].Monomer })
	return out, nil
}

// CrossCell is one color-by-curve cell of the pass quantity table.
type CrossCell struct {
	Color   int
	Curve   int
	PassQty float64
}

type PassQtyCrossTable struct {
	// Colors and Curves hold the occurring axis codes in ascending
	// order. Records without both codes are left out.
	Colors     []int
	Curves     []int
	Cells      []CrossCell
	RowTotals  map[int]float64
	ColTotals  map[int]float64
	GrandTotal float64
	ImportedAt *time.Time
}

// PassQtyCrossTableReport tabulates summed pass quantity by film color
// and film curve.
func (s *AggregationService) PassQtyCrossTableReport(ctx context.Context, params *filmcut.FindParams) (*PassQtyCrossTable, error) {
	records, err := s.opts.FilmCuts.List(ctx, params)
	if err != nil {
		return nil, err
	}
	importedAt, err := s.freshness(ctx)
	if err != nil {
		return nil, err
	}

	out := &PassQtyCrossTable{
		RowTotals:  map[int]float64{},
		ColTotals:  map[int]float64{},
		ImportedAt: importedAt,
	}
	cells := map[[2]int]float64{}
	for _, r := range records {
		if r.Excluded() || r.Color == nil || r.FilmCurve == nil {
			continue
		}
		cells[[2]int{*r.Color, *r.FilmCurve}] += r.PassQty
		out.RowTotals[*r.Color] += r.PassQty
		out.ColTotals[*r.FilmCurve] += r.PassQty
		out.GrandTotal += r.PassQty
	}
	for color := range out.RowTotals {
		out.Colors = append(out.Colors, color)
	}
	for curve := range out.ColTotals {
		out.Curves = append(out.Curves, curve)
	}
	sort.Ints(out.Colors)
	sort.Ints(out.Curves)
	for k, qty := range cells {
		out.Cells = append(out.Cells, CrossCell{Color: k[0], Curve: k[1], PassQty: qty})
	}
	sort.Slice(out.Cells, func(i, j int) bool {
		if out.Cells[i].Color != out.Cells[j].Color {
			return out.Cells[i].Color < out.Cells[j].Color
		}
		return out.Cells[i].Curve < out.Cells[j].Curve
	})
	return out, nil
}

type FilmProcessReport struct {
	TotalSheets      float64
	TotalPrimaryGood float64
	TotalGraded      float64
	// PrimaryItems are rated against processed sheets, SecondaryItems
	// against the primary good quantity, grades against graded total.
	PrimaryItems   []MeasureRate
	SecondaryItems []MeasureRate
	GradeARate     float64
	GradeBRate     float64
	GradeCRate     float64
	// Yield is graded output over processed sheets.
	Yield      float64
	ImportedAt *time.Time
}

// FilmProcessReport rates the dye-stage defect items and the grade
// split over the matching film process records.
func (s *AggregationService) FilmProcessReport(ctx context.Context, params *filmprocess.FindParams) (*FilmProcessReport, error) {
	records, err := s.opts.FilmProcess.List(ctx, params)
	if err != nil {
		return nil, err
	}
	importedAt, err := s.freshness(ctx)
	if err != nil {
		return nil, err
	}

	out := &FilmProcessReport{ImportedAt: importedAt}
	primary := make(map[string]float64, len(filmprocess.PrimaryMeasures))
	secondary := make(map[string]float64, len(filmprocess.SecondaryMeasures))
	var gradeA, gradeB, gradeC float64
	for _, r := range records {
		out.TotalSheets += r.ProcessedSheets
		out.TotalPrimaryGood += r.PrimaryGoodQty
		out.TotalGraded += r.GradedQty()
		gradeA += r.GradeA
		gradeB += r.GradeB
		gradeC += r.GradeC
		for _, m := range filmprocess.PrimaryMeasures {
			primary[m.ID] += m.Value(r)
		}
		for _, m := range filmprocess.SecondaryMeasures {
			secondary[m.ID] += m.Value(r)
		}
	}

	for _, m := range filmprocess.PrimaryMeasures {
		out.PrimaryItems = append(out.PrimaryItems, MeasureRate{
			ID:    m.ID,
			Label: m.Label,
			Count: primary[m.ID],
			Rate:  rate(primary[m.ID], out.TotalSheets),
		})
	}
	for _, m := range filmprocess.SecondaryMeasures {
		out.SecondaryItems = append(out.SecondaryItems, MeasureRate{
			ID:    m.ID,
			Label: m.Label,
			Count: secondary[m.ID],
			Rate:  rate(secondary[m.ID], out.TotalPrimaryGood),
		})
	}
	out.GradeARate = rate(gradeA, out.TotalGraded)
	out.GradeBRate = rate(gradeB, out.TotalGraded)
	out.GradeCRate = rate(gradeC, out.TotalGraded)
	out.Yield = rate(out.TotalGraded, out.TotalSheets)
	return out, nil
}

// FilmProcessDay is one inspection day's merged primary and secondary
// rate map.
type FilmProcessDay struct {
	Date  string
	Rates map[string]float64
}

type FilmProcessTrend struct {
	Days       []FilmProcessDay
	ImportedAt *time.Time
}

// FilmProcessTrend reports per-day defect rates over the days
// preceding asOf. Days without records are skipped.
func (s *AggregationService) FilmProcessTrend(ctx context.Context, asOf time.Time, days int) (*FilmProcessTrend, error) {
	from := asOf.AddDate(0, 0, -days)
	records, err := s.opts.FilmProcess.List(ctx, &filmprocess.FindParams{
		InspectFrom: &from,
		InspectTo:   &asOf,
	})
	if err != nil {
		return nil, err
	}
	importedAt, err := s.freshness(ctx)
	if err != nil {
		return nil, err
	}

	byDay := map[string][]*filmprocess.Record{}
	for _, r := range records {
		if r.InspectDate == nil {
			continue
		}
		day := r.InspectDate.Format(dayLayout)
		byDay[day] = append(byDay[day], r)
	}

	out := &FilmProcessTrend{ImportedAt: importedAt}
	var order []string
	for day := range byDay {
		order = append(order, day)
	}
	sort.Strings(order)
	for _, day := range order {
		var sheets, primaryGood float64
		primary := map[string]float64{}
		secondary := map[string]float64{}
		for _, r := range byDay[day] {
			sheets += r.ProcessedSheets
			primaryGood += r.PrimaryGoodQty
			for _, m := range filmprocess.PrimaryMeasures {
				primary[m.ID] += m.Value(r)
			}
			for _, m := range filmprocess.SecondaryMeasures {
				secondary[m.ID] += m.Value(r)
			}
		}
		rates := map[string]float64{}
		for _, m := range filmprocess.PrimaryMeasures {
			rates[m.ID] = rate(primary[m.ID], sheets)
		}
		for _, m := range filmprocess.SecondaryMeasures {
			rates[m.ID] = rate(secondary[m.ID], primaryGood)
		}
		out.Days = append(out.Days, FilmProcessDay{Date: day, Rates: rates})
	}
	return out, nil
}
