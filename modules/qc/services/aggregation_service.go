package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/filmcut"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/filmprocess"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/hardcoat"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/instruction"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/lot"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/spincoat"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/defect"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/entities/product"
)

// rate returns 100*count/denom rounded to two decimals. A zero
// denominator reads as a zero rate, never as an error.
func rate(count, denom float64) float64 {
	if denom == 0 {
		return 0
	}
	v, _ := decimal.NewFromFloat(count).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromFloat(denom)).
		Round(2).
		Float64()
	return v
}

const dayLayout = "2006-01-02"

type AggregationServiceOptions struct {
	Lots         lot.Repository
	NGDetails    lot.NGDetailRepository
	Instructions instruction.Repository
	Products     product.Repository
	Monomers     product.MonomerRepository
	FilmCuts     filmcut.Repository
	FilmProcess  filmprocess.Repository
	SpinCoats    spincoat.Repository
	HardCoats    hardcoat.Repository
	State        *ImportStateService
	Logger       *logrus.Logger
}

// AggregationService computes the defect-rate reports off the imported
// feeds. Every result carries the shared feed freshness timestamp.
type AggregationService struct {
	opts AggregationServiceOptions
}

func NewAggregationService(opts AggregationServiceOptions) *AggregationService {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &AggregationService{opts: opts}
}

func (s *AggregationService) freshness(ctx context.Context) (*time.Time, error) {
	if s.opts.State == nil {
		return nil, nil
	}
	return s.opts.State.ImportedAt(ctx)
}

// CategoryRate is one reporting category with its summed count and its
// rate against the report's denominator.
type CategoryRate struct {
	ID    string
	Label string
	Count float64
	Rate  float64
}

type DefectSummary struct {
	TotalInject float64
	Items       []CategoryRate
	ImportedAt  *time.Time
}

// DefectSummary folds the raw counters of the matching lots into the
// reporting categories, rated against total injected quantity.
func (s *AggregationService) DefectSummary(ctx context.Context, params *lot.FindParams) (*DefectSummary, error) {
	lots, err := s.opts.Lots.List(ctx, params)
	if err != nil {
		return nil, err
	}
	importedAt, err := s.freshness(ctx)
	if err != nil {
		return nil, err
	}

	var totalInject float64
	counts := make(defect.Counts)
	for _, l := range lots {
		totalInject += l.InjectQty
		for f, v := range l.Defects {
			counts[f] += v
		}
	}

	out := &DefectSummary{TotalInject: totalInject, ImportedAt: importedAt}
	for _, cat := range defect.Categories {
		n := counts.CategoryCount(cat)
		out.Items = append(out.Items, CategoryRate{
			ID:    cat.ID,
			Label: cat.Label,
			Count: n,
			Rate:  rate(n, totalInject),
		})
	}
	return out, nil
}

// TrendPoint is one day of one monomer type.
type TrendPoint struct {
	Date        string
	MonomerType string
	TotalInject float64
	DefectCount float64
	Rate        float64
}

type MonomerDailyTrend struct {
	Points     []TrendPoint
	ImportedAt *time.Time
}

// MonomerDailyTrend groups signed-off lots by second-injection day and
// monomer type and rates the total raw defect count per group.
func (s *AggregationService) MonomerDailyTrend(ctx context.Context, params *lot.FindParams) (*MonomerDailyTrend, error) {
	p := lot.FindParams{}
	if params != nil {
		p = *params
	}
	p.FinalChecked = true

	lots, err := s.opts.Lots.List(ctx, &p)
	if err != nil {
		return nil, err
	}
	importedAt, err := s.freshness(ctx)
	if err != nil {
		return nil, err
	}

	type key struct {
		date string
		mono string
	}
	groups := map[key]*TrendPoint{}
	for _, l := range lots {
		if l.R2Date == nil {
			continue
		}
		k := key{date: l.R2Date.Format(dayLayout), mono: l.MonomerType}
		g, ok := groups[k]
		if !ok {
			g = &TrendPoint{Date: k.date, MonomerType: k.mono}
			groups[k] = g
		}
		g.TotalInject += l.InjectQty
		g.DefectCount += l.TotalDefects()
	}

	out := &MonomerDailyTrend{ImportedAt: importedAt}
	for _, g := range groups {
		g.Rate = rate(g.DefectCount, g.TotalInject)
		out.Points = append(out.Points, *g)
	}
	sort.Slice(out.Points, func(i, j int) bool {
		if out.Points[i].Date != out.Points[j].Date {
			return out.Points[i].Date < out.Points[j].Date
		}
		return out.Points[i].MonomerType < out.Points[j].MonomerType
	})
	return out, nil
}

// DefectItemTrend is MonomerDailyTrend narrowed to one reporting
// category. The category id is resolved through the registry, never
// spliced into SQL.
func (s *AggregationService) DefectItemTrend(ctx context.Context, categoryID string, params *lot.FindParams) (*MonomerDailyTrend, error) {
	cat, err := defect.ByID(categoryID)
	if err != nil {
		return nil, err
	}

	p := lot.FindParams{}
	if params != nil {
		p = *params
	}
	p.FinalChecked = true

	lots, err := s.opts.Lots.List(ctx, &p)
	if err != nil {
		return nil, err
	}
	importedAt, err := s.freshness(ctx)
	if err != nil {
		return nil, err
	}

	type key struct {
		date string
		mono string
	}
	groups := map[key]*TrendPoint{}
	for _, l := range lots {
		if l.R2Date == nil {
			continue
		}
		k := key{date: l.R2Date.Format(dayLayout), mono: l.MonomerType}
		g, ok := groups[k]
		if !ok {
			g = &TrendPoint{Date: k.date, MonomerType: k.mono}
			groups[k] = g
		}
		g.TotalInject += l.InjectQty
		if l.Defects != nil {
			g.DefectCount += l.Defects.CategoryCount(cat)
		}
	}

	out := &MonomerDailyTrend{ImportedAt: importedAt}
	for _, g := range groups {
		g.Rate = rate(g.DefectCount, g.TotalInject)
		out.Points = append(out.Points, *g)
	}
	sort.Slice(out.Points, func(i, j int) bool {
		if out.Points[i].Date != out.Points[j].Date {
			return out.Points[i].Date < out.Points[j].Date
		}
		return out.Points[i].MonomerType < out.Points[j].MonomerType
	})
	return out, nil
}

// HighDefectRate is one category of one monomer type, present only when
// the category actually occurred.
type HighDefectRate struct {
	MonomerType string
	MonomerName string
	Target      *float64
	CategoryID  string
	Label       string
	TotalInject float64
	Count       float64
	Rate        float64
}

type HighDefectRates struct {
	Items      []HighDefectRate
	ImportedAt *time.Time
}

// HighDefectRates flattens every non-zero category per monomer type and
// sorts worst first.
func (s *AggregationService) HighDefectRates(ctx context.Context, params *lot.FindParams) (*HighDefectRates, error) {
	lots, err := s.opts.Lots.List(ctx, params)
	if err != nil {
		return nil, err
	}
	monomers, err := s.monomerIndex(ctx)
	if err != nil {
		return nil, err
	}
	importedAt, err := s.freshness(ctx)
	if err != nil {
		return nil, err
	}

	type group struct {
		inject float64
		counts defect.Counts
	}
	groups := map[string]*group{}
	var order []string
	for _, l := range lots {
		g, ok := groups[l.MonomerType]
		if !ok {
			g = &group{counts: make(defect.Counts)}
			groups[l.MonomerType] = g
			order = append(order, l.MonomerType)
		}
		g.inject += l.InjectQty
		for f, v := range l.Defects {
			g.counts[f] += v
		}
	}
	sort.Strings(order)

	out := &HighDefectRates{ImportedAt: importedAt}
	for _, mono := range order {
		g := groups[mono]
		m := monomers[mono]
		for _, cat := range defect.Categories {
			n := g.counts.CategoryCount(cat)
			if n <= 0 {
				continue
			}
			item := HighDefectRate{
				MonomerType: mono,
				CategoryID:  cat.ID,
				Label:       cat.Label,
				TotalInject: g.inject,
				Count:       n,
				Rate:        rate(n, g.inject),
			}
			if m != nil {
				item.MonomerName = m.Name
				target := m.Target
				item.Target = &target
			}
			out.Items = append(out.Items, item)
		}
	}
	sort.SliceStable(out.Items, func(i, j int) bool {
		return out.Items[i].Rate > out.Items[j].Rate
	})
	return out, nil
}

func (s *AggregationService) monomerIndex(ctx context.Context) (map[string]*product.Monomer, error) {
	monomers, err := s.opts.Monomers.List(ctx)
	if err != nil {
		return nil, err
	}
	byType := make(map[string]*product.Monomer, len(monomers))
	for _, m := range monomers {
		byType[m.Type] = m
	}
	return byType, nil
}

// TopDefect is one of the leading categories of a monomer summary.
type TopDefect struct {
	Label string
	Count float64
	Rate  float64
}

// MonomerInspection is the signed-off quality picture of one monomer
// type over a check-date window.
type MonomerInspection struct {
	MonomerType string
	MonomerName string
	Target      float64
	TotalShots  float64
	GoodCount   float64
	DefectCount float64
	GoodRate    float64
	// Difference is good rate minus the monomer's target percentage.
	Difference float64
	TopDefects []TopDefect
}

type MonomerInspectionSummary struct {
	Items      []MonomerInspection
	ImportedAt *time.Time
}

// MonomerInspectionSummary rates each monomer's graded output against
// its injected quantity over a final-check window and lists the five
// heaviest categories. Monomers with no signed-off volume are dropped.
func (s *AggregationService) MonomerInspectionSummary(ctx context.Context, checkFrom, checkTo *time.Time) (*MonomerInspectionSummary, error) {
	monomers, err := s.opts.Monomers.List(ctx)
	if err != nil {
		return nil, err
	}
	lots, err := s.opts.Lots.List(ctx, &lot.FindParams{
		CheckFrom:    checkFrom,
		CheckTo:      checkTo,
		FinalChecked: true,
	})
	if err != nil {
		return nil, err
	}
	importedAt, err := s.freshness(ctx)
	if err != nil {
		return nil, err
	}

	type group struct {
		inject float64
		good   float64
		counts defect.Counts
	}
	groups := map[string]*group{}
	for _, l := range lots {
		g, ok := groups[l.MonomerType]
		if !ok {
			g = &group{counts: make(defect.Counts)}
			groups[l.MonomerType] = g
		}
		g.inject += l.InjectQty
		g.good += l.GoodQty()
		for f, v := range l.Defects {
			g.counts[f] += v
		}
	}

	out := &MonomerInspectionSummary{ImportedAt: importedAt}
	for _, m := range monomers {
		g, ok := groups[m.Type]
		if !ok || g.inject == 0 {
			continue
		}

		var top []TopDefect
		for _, cat := range defect.Categories {
			n := g.counts.CategoryCount(cat)
			if n <= 0 {
				continue
			}
			top = append(top, TopDefect{Label: cat.Label, Count: n, Rate: rate(n, g.inject)})
		}
		sort.SliceStable(top, func(i, j int) bool { return top[i].Count > top[j].Count })
		if len(top) > 5 {
			top = top[:5]
		}

		goodRate := rate(g.good, g.inject)
		out.Items = append(out.Items, MonomerInspection{
			MonomerType: m.Type,
			MonomerName: m.Name,
			Target:      m.Target,
			TotalShots:  g.inject,
			GoodCount:   g.good,
			DefectCount: g.inject - g.good,
			GoodRate:    goodRate,
			Difference:  goodRate - m.Target,
			TopDefects:  top,
		})
	}
	sort.SliceStable(out.Items, func(i, j int) bool {
		return out.Items[i].GoodRate > out.Items[j].GoodRate
	})
	return out, nil
}

// StageProgress is the per-monomer count of lots past each stage.
type StageProgress struct {
	MonomerType string
	MonomerName string
	TotalLots   int
	R1Injected  int
	R2Injected  int
	Released    int
	Annealed    int
	Checked1st  int
	Checked2nd  int
	Checked3rd  int
}

// AllChecked reports whether every lot of the group passed third
// inspection.
func (p StageProgress) AllChecked() bool {
	return p.TotalLots > 0 && p.Checked3rd == p.TotalLots
}

type StageProgressReport struct {
	Items      []StageProgress
	ImportedAt *time.Time
}

// StageProgressReport counts, per monomer type, how many matching lots
// carry each stage sign-off. Monomers with no lots still appear.
func (s *AggregationService) StageProgressReport(ctx context.Context, params *lot.FindParams) (*StageProgressReport, error) {
	monomers, err := s.opts.Monomers.List(ctx)
	if err != nil {
		return nil, err
	}
	lots, err := s.opts.Lots.List(ctx, params)
	if err != nil {
		return nil, err
	}
	importedAt, err := s.freshness(ctx)
	if err != nil {
		return nil, err
	}

	groups := map[string]*StageProgress{}
	out := &StageProgressReport{ImportedAt: importedAt}
	for _, m := range monomers {
		p := &StageProgress{MonomerType: m.Type, MonomerName: m.Name}
		groups[m.Type] = p
	}
	for _, l := range lots {
		p, ok := groups[l.MonomerType]
		if !ok {
			continue
		}
		p.TotalLots++
		if l.R1Injector != nil {
			p.R1Injected++
		}
		if l.R2Injector != nil {
			p.R2Injected++
		}
		if l.ReleaseBy != nil {
			p.Released++
		}
		if l.AnnealBy != nil {
			p.Annealed++
		}
		if l.Chk1By != nil {
			p.Checked1st++
		}
		if l.Chk2By != nil {
			p.Checked2nd++
		}
		if l.Chk3By != nil {
			p.Checked3rd++
		}
	}
	for _, m := range monomers {
		out.Items = append(out.Items, *groups[m.Type])
	}
	return out, nil
}

// MonomerAchievement compares ordered, targeted and produced quantities
// for one monomer type.
type MonomerAchievement struct {
	MonomerName     string
	Target          float64
	InstructedQty   float64
	TargetQty       float64
	InjectedQty     float64
	GoodQty         float64
	GoodPerOrdered  float64
	GoodPerInjected float64
}

type MonomerAchievementReport struct {
	Items      []MonomerAchievement
	ImportedAt *time.Time
}

// MonomerAchievementReport joins production instructions to lots on
// product and first-injection day. Only groups whose every lot passed
// final check contribute, so in-flight days never deflate the yield.
func (s *AggregationService) MonomerAchievementReport(ctx context.Context, from, to *time.Time) (*MonomerAchievementReport, error) {
	instructions, err := s.opts.Instructions.List(ctx)
	if err != nil {
		return nil, err
	}
	lots, err := s.opts.Lots.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	monomers, err := s.opts.Monomers.List(ctx)
	if err != nil {
		return nil, err
	}
	importedAt, err := s.freshness(ctx)
	if err != nil {
		return nil, err
	}

	type groupKey struct {
		productID string
		date      string
		mono      string
	}
	type group struct {
		sjiQty  float64
		inject  float64
		good    float64
		lots    int
		checked int
	}

	instrQty := map[[2]string]float64{}
	for _, in := range instructions {
		if from != nil && in.Date.Before(*from) {
			continue
		}
		if to != nil && in.Date.After(*to) {
			continue
		}
		instrQty[[2]string{in.ProductID, in.Date.Format(dayLayout)}] = in.Qty
	}

	groups := map[groupKey]*group{}
	for _, l := range lots {
		if l.R1InDate == nil {
			continue
		}
		day := l.R1InDate.Format(dayLayout)
		qty, ok := instrQty[[2]string{l.ProductID, day}]
		if !ok {
			continue
		}
		k := groupKey{productID: l.ProductID, date: day, mono: l.MonomerType}
		g, ok := groups[k]
		if !ok {
			g = &group{sjiQty: qty}
			groups[k] = g
		}
		g.inject += l.InjectQty
		g.good += l.GoodQty()
		g.lots++
		if l.CheckDate != nil {
			g.checked++
		}
	}

	type monoTotal struct {
		sji    float64
		inject float64
		good   float64
	}
	totals := map[string]*monoTotal{}
	for k, g := range groups {
		if g.lots == 0 || g.checked != g.lots {
			continue
		}
		t, ok := totals[k.mono]
		if !ok {
			t = &monoTotal{}
			totals[k.mono] = t
		}
		t.sji += g.sjiQty
		t.inject += g.inject
		t.good += g.good
	}

	out := &MonomerAchievementReport{ImportedAt: importedAt}
	for _, m := range monomers {
		t, ok := totals[m.Type]
		if !ok {
			continue
		}
		out.Items = append(out.Items, MonomerAchievement{
			MonomerName:     m.Name,
			Target:          m.Target,
			InstructedQty:   t.sji,
			TargetQty:       t.sji * m.Target / 100,
			InjectedQty:     t.inject,
			GoodQty:         t.good,
			GoodPerOrdered:  rate(t.good, t.sji),
			GoodPerInjected: rate(t.good, t.inject),
		})
	}
	return out, nil
}

// ColorTransDetail is one follow-up inspection line: a lot that failed
// on color or transmittance, joined to its re-inspection record.
type ColorTransDetail struct {
	LotNo       string
	ProductID   string
	ProductName string
	// Kind is NGColor or NGTrans.
	Kind        int
	CheckDate   *time.Time
	DefectCount float64
	InspectQty  float64
	NGQty       float64
	// NGRate is nil until a re-inspection quantity was recorded.
	NGRate *float64
	Note   string
}

type ColorTransDetailReport struct {
	Items      []ColorTransDetail
	ImportedAt *time.Time
}

// ColorTransDetailReport lists lots with color or transmittance defects
// inside a first-injection window, joined to their re-inspection
// details, newest check first.
func (s *AggregationService) ColorTransDetailReport(ctx context.Context, r1From, r1To *time.Time) (*ColorTransDetailReport, error) {
	lots, err := s.opts.Lots.List(ctx, &lot.FindParams{R1From: r1From, R1To: r1To})
	if err != nil {
		return nil, err
	}
	details, err := s.opts.NGDetails.List(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.opts.Products.List(ctx)
	if err != nil {
		return nil, err
	}
	importedAt, err := s.freshness(ctx)
	if err != nil {
		return nil, err
	}

	productByID := make(map[string]*product.Product, len(products))
	for _, p := range products {
		productByID[p.ID] = p
	}
	detailByKey := make(map[[2]any]*lot.NGDetail, len(details))
	for _, d := range details {
		detailByKey[[2]any{d.LotNo, d.NGID}] = d
	}

	out := &ColorTransDetailReport{ImportedAt: importedAt}
	add := func(l *lot.Record, kind int, count float64) {
		p := productByID[l.ProductID]
		item := ColorTransDetail{
			LotNo:       l.LotNo,
			ProductID:   l.ProductID,
			Kind:        kind,
			CheckDate:   l.CheckDate,
			DefectCount: count,
		}
		if p != nil {
			item.ProductName = p.Name
		}
		if d, ok := detailByKey[[2]any{l.LotNo, kind}]; ok {
			item.InspectQty = d.InspectQty
			item.NGQty = d.NGQty
			item.Note = d.Note
			if d.InspectQty > 0 {
				r := rate(d.NGQty, d.InspectQty)
				item.NGRate = &r
			}
		}
		out.Items = append(out.Items, item)
	}

	for _, l := range lots {
		p := productByID[l.ProductID]
		if n := l.DefectCount(defect.FieldColorDef); n > 0 && p != nil && p.Color != "" {
			add(l, lot.NGColor, n)
		}
		if n := l.DefectCount(defect.FieldTransDef); n > 0 {
			add(l, lot.NGTrans, n)
		}
	}
	sort.SliceStable(out.Items, func(i, j int) bool {
		a, b := out.Items[i], out.Items[j]
		switch {
		case a.CheckDate == nil && b.CheckDate != nil:
			return false
		case a.CheckDate != nil && b.CheckDate == nil:
			return true
		case a.CheckDate != nil && b.CheckDate != nil && !a.CheckDate.Equal(*b.CheckDate):
			return a.CheckDate.After(*b.CheckDate)
		}
		if a.LotNo != b.LotNo {
			return a.LotNo < b.LotNo
		}
		return a.Kind < b.Kind
	})
	return out, nil
}

type IncompleteInspectionReport struct {
	Lots       []*lot.Record
	ImportedAt *time.Time
}

// IncompleteInspections lists released lots still waiting on third
// inspection, oldest first.
func (s *AggregationService) IncompleteInspections(ctx context.Context, asOf time.Time) (*IncompleteInspectionReport, error) {
	lots, err := s.opts.Lots.IncompleteInspections(ctx, asOf)
	if err != nil {
		return nil, err
	}
	importedAt, err := s.freshness(ctx)
	if err != nil {
		return nil, err
	}
	return &IncompleteInspectionReport{Lots: lots, ImportedAt: importedAt}, nil
}
