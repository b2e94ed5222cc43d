// Package spincoat is the spin coating inspection record: pre-cure
// inspection rated against coated sheets, post-cure inspection rated
// against the pre-cure good output.
package spincoat

import (
	"context"
	"time"
)

type Record struct {
	ID int64

	CoatDate    *time.Time
	Instruction float64
	BranchNo    string
	Type        int
	Name1       int
	Name2       string
	RefIndex    float64
	CoatColor   int
	Machine     float64
	Times       float64
	Sheets      float64

	PreBlackDust float64
	PreWhiteDust float64
	PreEdgeFail  float64
	PreCoatFail  float64
	PreDarkSpot  float64
	PreSnail     float64
	PreMist      float64
	PreWrinkle   float64
	PreBarrelBub float64
	PreStick     float64
	PreTrouble   float64
	PreBaseFail  float64

	PreGoodQty float64
	PreNote    string

	PostInspectDate *time.Time
	PostScratch     float64
	PostCoatFail    float64
	PostSnail       float64
	PostDarkSpot    float64
	PostWrinkle     float64
	PostBubble      float64
	PostEdgeFail    float64
	PostWhiteDust   float64
	PostBlackDust   float64
	PostStick       float64
	PostPrimerStick float64
	PostBaseFail    float64
	PostOthers      float64

	FinalGoodQty float64
}

type Measure struct {
	ID    string
	Label string
	Value func(*Record) float64
}

// PreMeasures are rated against the coated sheet count.
var PreMeasures = []Measure{
	{ID: "pre_black_dust", Label: "硬化前黒ブツ", Value: func(r *Record) float64 { return r.PreBlackDust }},
	{ID: "pre_white_dust", Label: "硬化前白ブツ", Value: func(r *Record) float64 { return r.PreWhiteDust }},
	{ID: "pre_edge_fail", Label: "硬化前外周不良", Value: func(r *Record) float64 { return r.PreEdgeFail }},
	{ID: "pre_coat_fail", Label: "硬化前コート不良", Value: func(r *Record) float64 { return r.PreCoatFail }},
	{ID: "pre_dark_spot", Label: "硬化前ダークスポット", Value: func(r *Record) float64 { return r.PreDarkSpot }},
	{ID: "pre_snail", Label: "硬化前スネイル", Value: func(r *Record) float64 { return r.PreSnail }},
	{ID: "pre_mist", Label: "硬化前ミスト", Value: func(r *Record) float64 { return r.PreMist }},
	{ID: "pre_wrinkle", Label: "硬化前シワ", Value: func(r *Record) float64 { return r.PreWrinkle }},
	{ID: "pre_barrel_bub", Label: "硬化前バレル泡", Value: func(r *Record) float64 { return r.PreBarrelBub }},
	{ID: "pre_stick", Label: "硬化前付着物", Value: func(r *Record) float64 { return r.PreStick }},
	{ID: "pre_trouble", Label: "硬化前トラブル不", Value: func(r *Record) float64 { return r.PreTrouble }},
	{ID: "pre_base_fail", Label: "硬化前基材不良", Value: func(r *Record) float64 { return r.PreBaseFail }},
}

// PostMeasures are rated against the pre-cure good quantity.
var PostMeasures = []Measure{
	{ID: "post_scratch", Label: "硬化後キズ", Value: func(r *Record) float64 { return r.PostScratch }},
	{ID: "post_coat_fail", Label: "硬化後コート不良", Value: func(r *Record) float64 { return r.PostCoatFail }},
	{ID: "post_snail", Label: "硬化後スネイル", Value: func(r *Record) float64 { return r.PostSnail }},
	{ID: "post_dark_spot", Label: "硬化後ダークスポット", Value: func(r *Record) float64 { return r.PostDarkSpot }},
	{ID: "post_wrinkle", Label: "硬化後シワ", Value: func(r *Record) float64 { return r.PostWrinkle }},
	{ID: "post_bubble", Label: "硬化後泡", Value: func(r *Record) float64 { return r.PostBubble }},
	{ID: "post_edge_fail", Label: "硬化後外周不良", Value: func(r *Record) float64 { return r.PostEdgeFail }},
	{ID: "post_white_dust", Label: "硬化後白ブツ", Value: func(r *Record) float64 { return r.PostWhiteDust }},
	{ID: "post_black_dust", Label: "硬化後黒ブツ", Value: func(r *Record) float64 { return r.PostBlackDust }},
	{ID: "post_stick", Label: "硬化後付着物", Value: func(r *Record) float64 { return r.PostStick }},
	{ID: "post_primer_stick", Label: "硬化後プライマー付着跡", Value: func(r *Record) float64 { return r.PostPrimerStick }},
	{ID: "post_base_fail", Label: "硬化後基材不良", Value: func(r *Record) float64 { return r.PostBaseFail }},
	{ID: "post_others", Label: "硬化後その他", Value: func(r *Record) float64 { return r.PostOthers }},
}

// PreDefects sums the pre-cure counters.
func (r *Record) PreDefects() float64 {
	var sum float64
	for _, m := range PreMeasures {
		sum += m.Value(r)
	}
	return sum
}

// PostDefects sums the post-cure counters.
func (r *Record) PostDefects() float64 {
	var sum float64
	for _, m := range PostMeasures {
		sum += m.Value(r)
	}
	return sum
}

type FindParams struct {
	CoatFrom  *time.Time
	CoatTo    *time.Time
	Type      *int
	CoatColor *int
}

type Repository interface {
	List(ctx context.Context, params *FindParams) ([]*Record, error)
	Save(ctx context.Context, record *Record) error
}
