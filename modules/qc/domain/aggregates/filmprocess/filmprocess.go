// Package filmprocess is the film processing inspection record: primary
// inspection rated against processed sheets, secondary inspection rated
// against primary good output, plus the A/B/C grading.
package filmprocess

import (
	"context"
	"time"
)

type Record struct {
	ID int64

	InspectDate *time.Time
	ProcessDate *time.Time
	Color       *int
	PVALotNo    float64
	Note        string
	FilmCurve   *int

	ProcessedSheets float64

	WrinkleA      float64
	WrinkleB      float64
	Tear          float64
	Foreign       float64
	Fiber         float64
	Scratch       float64
	Hole          float64
	PrimaryOthers float64

	PrimaryGoodQty float64

	ColorFade      float64
	ColorIrregular float64
	DyeStreak      float64
	Dirt           float64
	Others         float64

	GradeA float64
	GradeB float64
	GradeC float64
}

// GradedQty is the total sheets that received a grade.
func (r *Record) GradedQty() float64 {
	return r.GradeA + r.GradeB + r.GradeC
}

type Measure struct {
	ID    string
	Label string
	Value func(*Record) float64
}

// PrimaryMeasures are rated against the processed sheet count.
var PrimaryMeasures = []Measure{
	{ID: "wrinkle_a", Label: "シワA", Value: func(r *Record) float64 { return r.WrinkleA }},
	{ID: "wrinkle_b", Label: "シワB", Value: func(r *Record) float64 { return r.WrinkleB }},
	{ID: "tear", Label: "裂け", Value: func(r *Record) float64 { return r.Tear }},
	{ID: "foreign", Label: "ブツ", Value: func(r *Record) float64 { return r.Foreign }},
	{ID: "fiber", Label: "繊維", Value: func(r *Record) float64 { return r.Fiber }},
	{ID: "scratch", Label: "キズ", Value: func(r *Record) float64 { return r.Scratch }},
	{ID: "hole", Label: "穴", Value: func(r *Record) float64 { return r.Hole }},
	{ID: "primary_others", Label: "その他", Value: func(r *Record) float64 { return r.PrimaryOthers }},
}

// SecondaryMeasures are rated against the primary good quantity.
var SecondaryMeasures = []Measure{
	{ID: "color_fade", Label: "色抜け", Value: func(r *Record) float64 { return r.ColorFade }},
	{ID: "color_irregular", Label: "色ムラ", Value: func(r *Record) float64 { return r.ColorIrregular }},
	{ID: "dye_streak", Label: "染スジ", Value: func(r *Record) float64 { return r.DyeStreak }},
	{ID: "dirt", Label: "汚れ", Value: func(r *Record) float64 { return r.Dirt }},
	{ID: "others", Label: "その他", Value: func(r *Record) float64 { return r.Others }},
}

type FindParams struct {
	InspectFrom *time.Time
	InspectTo   *time.Time
	ProcessDate *time.Time
	Color       *int
	PVALotNo    *float64
	FilmCurve   *int
}

type Repository interface {
	List(ctx context.Context, params *FindParams) ([]*Record, error)
	Save(ctx context.Context, record *Record) error
}
