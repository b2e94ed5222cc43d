// Package hardcoat is the hard coating inspection record. All defect
// items, pre-cure and transmission/projection checks alike, are rated
// against the coat count.
package hardcoat

import (
	"context"
	"time"
)

type Record struct {
	ID int64

	CoatDate *time.Time
	Times    float64
	Type     int
	Base     float64
	AddPower float64
	LR       string
	Color    int

	CoatCount float64

	PreForeign float64
	PreDrop    float64
	PreChip    float64
	PreStreak  float64
	PreOthers  float64

	TransBaseFail  float64
	TransForeign   float64
	TransInclusion float64
	TransScratch   float64
	TransCoatFail  float64
	TransDrop      float64
	TransStreak    float64
	TransDirt      float64
	TransChip      float64

	ProjBase    float64
	ProjForeign float64
	ProjDust    float64
	ProjScratch float64
	ProjDrop    float64
	ProjChip    float64
	ProjStreak  float64

	PassQty float64
}

type Measure struct {
	ID    string
	Label string
	Value func(*Record) float64
}

// Measures lists every defect item in report order.
var Measures = []Measure{
	{ID: "pre_foreign", Label: "硬化前ブツ", Value: func(r *Record) float64 { return r.PreForeign }},
	{ID: "pre_drop", Label: "硬化前タレ", Value: func(r *Record) float64 { return r.PreDrop }},
	{ID: "pre_chip", Label: "硬化前カケ", Value: func(r *Record) float64 { return r.PreChip }},
	{ID: "pre_streak", Label: "硬化前スジ", Value: func(r *Record) float64 { return r.PreStreak }},
	{ID: "pre_others", Label: "硬化前その他", Value: func(r *Record) float64 { return r.PreOthers }},
	{ID: "trans_base_fail", Label: "透過基材不良", Value: func(r *Record) float64 { return r.TransBaseFail }},
	{ID: "trans_foreign", Label: "透過ブツ", Value: func(r *Record) float64 { return r.TransForeign }},
	{ID: "trans_inclusion", Label: "透過イブツ", Value: func(r *Record) float64 { return r.TransInclusion }},
	{ID: "trans_scratch", Label: "透過キズ", Value: func(r *Record) float64 { return r.TransScratch }},
	{ID: "trans_coat_fail", Label: "透過コート不良", Value: func(r *Record) float64 { return r.TransCoatFail }},
	{ID: "trans_drop", Label: "透過タレ", Value: func(r *Record) float64 { return r.TransDrop }},
	{ID: "trans_streak", Label: "透過スジ", Value: func(r *Record) float64 { return r.TransStreak }},
	{ID: "trans_dirt", Label: "透過汚れ", Value: func(r *Record) float64 { return r.TransDirt }},
	{ID: "trans_chip", Label: "透過カケ", Value: func(r *Record) float64 { return r.TransChip }},
	{ID: "proj_base", Label: "投影基材", Value: func(r *Record) float64 { return r.ProjBase }},
	{ID: "proj_foreign", Label: "投影ブツ", Value: func(r *Record) float64 { return r.ProjForeign }},
	{ID: "proj_dust", Label: "投影ごみ", Value: func(r *Record) float64 { return r.ProjDust }},
	{ID: "proj_scratch", Label: "投影キズ", Value: func(r *Record) float64 { return r.ProjScratch }},
	{ID: "proj_drop", Label: "投影タレ", Value: func(r *Record) float64 { return r.ProjDrop }},
	{ID: "proj_chip", Label: "投影カケ", Value: func(r *Record) float64 { return r.ProjChip }},
	{ID: "proj_streak", Label: "投影スジ", Value: func(r *Record) float64 { return r.ProjStreak }},
}

var measuresByID = func() map[string]Measure {
	m := make(map[string]Measure, len(Measures))
	for _, item := range Measures {
		m[item.ID] = item
	}
	return m
}()

// MeasureByID resolves one defect item. The second return reports
// whether the id is known.
func MeasureByID(id string) (Measure, bool) {
	m, ok := measuresByID[id]
	return m, ok
}

// TotalDefects sums every defect item on the record.
func (r *Record) TotalDefects() float64 {
	var sum float64
	for _, m := range Measures {
		sum += m.Value(r)
	}
	return sum
}

type FindParams struct {
	CoatFrom *time.Time
	CoatTo   *time.Time
	Type     *int
	Color    *int
}

type Repository interface {
	List(ctx context.Context, params *FindParams) ([]*Record, error)
	Save(ctx context.Context, record *Record) error
}
