// Package filmcut is the film cutting and washing quality record. Rows
// are keyed by the full production context of a cutting run, so a
// re-imported feed overwrites in place.
package filmcut

import (
	"context"
	"time"
)

// Classification codes analytics always exclude.
const (
	ExcludedMonomer = 8
	ExcludedCutMenu = 62
)

type Record struct {
	ID int64

	CutDate      *time.Time
	R1InjectDate *time.Time
	Monomer      *int
	AnnealNo     float64
	CutMachineNo float64
	Item         *int
	CutMenu      *int
	FilmProcDate *time.Time
	CRFilm       float64
	HeatProcDate *time.Time
	FilmCurve    *int
	Color        *int

	InputQty float64

	CutForeign float64
	CutWrinkle float64
	CutWave    float64
	CutErr     float64
	CutCrack   float64
	CutScratch float64
	CutOthers  float64

	GoodQty float64

	WashWrinkle float64
	WashScratch float64
	WashForeign float64
	WashAcetone float64
	WashErr     float64
	WashCutErr  float64
	WashOthers  float64

	PassQty float64
	Month   float64
}

// CutDefects sums the cutting-stage counters.
func (r *Record) CutDefects() float64 {
	return r.CutForeign + r.CutWrinkle + r.CutWave + r.CutErr +
		r.CutCrack + r.CutScratch + r.CutOthers
}

// WashDefects sums the washing-stage counters.
func (r *Record) WashDefects() float64 {
	return r.WashWrinkle + r.WashScratch + r.WashForeign + r.WashAcetone +
		r.WashErr + r.WashCutErr + r.WashOthers
}

// Excluded reports whether the row belongs to the monomer or menu that
// analytics leave out.
func (r *Record) Excluded() bool {
	return (r.Monomer != nil && *r.Monomer == ExcludedMonomer) ||
		(r.CutMenu != nil && *r.CutMenu == ExcludedCutMenu)
}

// Measure is one reported defect item with its display label.
type Measure struct {
	ID    string
	Label string
	Value func(*Record) float64
}

// CutMeasures are rated against the input quantity.
var CutMeasures = []Measure{
	{ID: "cut_foreign", Label: "カットブツ", Value: func(r *Record) float64 { return r.CutForeign }},
	{ID: "cut_wrinkle", Label: "カットシワ", Value: func(r *Record) float64 { return r.CutWrinkle }},
	{ID: "cut_wave", Label: "カットウエーブ", Value: func(r *Record) float64 { return r.CutWave }},
	{ID: "cut_err", Label: "カットミス", Value: func(r *Record) float64 { return r.CutErr }},
	{ID: "cut_crack", Label: "カットサケ", Value: func(r *Record) float64 { return r.CutCrack }},
	{ID: "cut_scratch", Label: "カットキズ", Value: func(r *Record) float64 { return r.CutScratch }},
	{ID: "cut_others", Label: "カットその他", Value: func(r *Record) float64 { return r.CutOthers }},
}

// WashMeasures are rated against the cutting-stage good quantity.
var WashMeasures = []Measure{
	{ID: "wash_wrinkle", Label: "洗浄シワ", Value: func(r *Record) float64 { return r.WashWrinkle }},
	{ID: "wash_scratch", Label: "洗浄キズ", Value: func(r *Record) float64 { return r.WashScratch }},
	{ID: "wash_foreign", Label: "洗浄イブツ", Value: func(r *Record) float64 { return r.WashForeign }},
	{ID: "wash_acetone", Label: "洗浄アセトン", Value: func(r *Record) float64 { return r.WashAcetone }},
	{ID: "wash_err", Label: "洗浄ミス", Value: func(r *Record) float64 { return r.WashErr }},
	{ID: "wash_cut_err", Label: "洗浄カットミス", Value: func(r *Record) float64 { return r.WashCutErr }},
	{ID: "wash_others", Label: "洗浄その他", Value: func(r *Record) float64 { return r.WashOthers }},
}

// FindParams filters film cut listings. Nil pointers are wildcards.
type FindParams struct {
	CutFrom      *time.Time
	CutTo        *time.Time
	Month        *float64
	R1InjectDate *time.Time
	Monomer      *int
	AnnealNo     *float64
	CutMachineNo *float64
	Item         *int
	CutMenu      *int
	FilmProcDate *time.Time
	CRFilm       *float64
	HeatProcDate *time.Time
	FilmCurve    *int
	Color        *int
}

type Repository interface {
	List(ctx context.Context, params *FindParams) ([]*Record, error)
	// Save overwrites the record matching the natural key, inserting
	// when no match exists. Multiple matches resolve to the oldest row.
	Save(ctx context.Context, record *Record) error
}
