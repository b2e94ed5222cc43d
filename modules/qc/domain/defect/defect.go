// Package defect is the declarative registry of lens defect categories.
// Every aggregation entry point that touches lot defect counters goes
// through this table, so the category set, its display labels and the
// per-category raw counter composition live in exactly one place.
package defect

import "github.com/hikari-opt/lens-qc/pkg/serrors"

// Field identifies one raw defect counter on a production lot record.
// The value doubles as the physical column name in prd_record.
type Field string

const (
	FieldRollMiss  Field = "roll_miss"
	FieldR1BubChk  Field = "r1_bub_chk"
	FieldCurlIns   Field = "curl_ins"
	FieldFilmFltCk Field = "film_flt_ck"
	FieldLeak      Field = "leak"
	FieldFilmPull  Field = "film_pull"
	FieldFilmNgCk  Field = "film_ng_ck"
	FieldR2BubRek  Field = "r2_bub_rek"
	FieldCrack     Field = "crack"
	FieldTearRls   Field = "tear_rls"
	FieldTear      Field = "tear"
	FieldPeel      Field = "peel"
	FieldChip      Field = "chip"
	FieldPolyCrk   Field = "poly_crk"
	FieldMoldScr   Field = "mold_scr"
	FieldLensScr   Field = "lens_scr"
	FieldR1Bubble  Field = "r1_bubble"
	FieldR2Bubble  Field = "r2_bubble"
	FieldDefect    Field = "defect"
	FieldElution   Field = "elution"
	FieldHaze      Field = "haze"
	FieldCurl      Field = "curl"
	FieldFilmFloat Field = "film_float"
	FieldR1Defect  Field = "r1_defect"
	FieldFilmNg    Field = "film_ng"
	FieldForeign   Field = "foreign_matter"
	FieldCutWaste  Field = "cut_waste"
	FieldFiber     Field = "fiber"
	FieldMoldDirt  Field = "mold_dirt"
	FieldFilmDirt  Field = "film_dirt"
	FieldAxis1st   Field = "axis_1st"
	FieldStripe1st Field = "stripe_1st"
	FieldEdgeDef   Field = "edge_defect"
	FieldEcc1st    Field = "ecc_1st"
	FieldWashDrop  Field = "wash_drop"
	FieldUnknown   Field = "unknown"
	FieldOther1    Field = "other_1"
	FieldOther2    Field = "other_2"
	FieldEccDef    Field = "ecc_defect"
	FieldDrop      Field = "drop"
	FieldCountErr  Field = "count_err"
	FieldOther1st  Field = "other_1st"
	FieldPeel2nd   Field = "peel_2nd"
	FieldStripe2nd Field = "stripe_2nd"
	FieldSuction   Field = "suction"
	FieldMold2nd   Field = "mold_2nd"
	FieldFilm2nd   Field = "film_2nd"
	FieldDefect2nd Field = "defect_2nd"
	FieldOther2nd  Field = "other_2nd"
	FieldAxisDef   Field = "axis_def"
	FieldFilm3rd   Field = "film_3rd"
	FieldColorDef  Field = "color_def"
	FieldTransDef  Field = "trans_def"
	FieldCurveDef  Field = "curve_def"
	FieldCenThDef  Field = "cen_th_def"
	FieldDiamDef   Field = "diam_def"
	FieldR1ThDef   Field = "r1_th_def"
	FieldEcc3rd    Field = "ecc_3rd"
	FieldEdgeDef3  Field = "edge_def_3"
	FieldAxis3rd   Field = "axis_3rd"
	FieldOther3rd  Field = "other_3rd"
)

// Fields lists every raw counter in the physical column order of the
// primary feed. Total defect sums run over this slice.
var Fields = []Field{
	FieldRollMiss, FieldR1BubChk, FieldCurlIns, FieldFilmFltCk, FieldLeak,
	FieldFilmPull, FieldFilmNgCk, FieldR2BubRek, FieldCrack, FieldTearRls,
	FieldTear, FieldPeel, FieldChip, FieldPolyCrk, FieldMoldScr,
	FieldLensScr, FieldR1Bubble, FieldR2Bubble, FieldDefect, FieldElution,
	FieldHaze, FieldCurl, FieldFilmFloat, FieldR1Defect, FieldFilmNg,
	FieldForeign, FieldCutWaste, FieldFiber, FieldMoldDirt, FieldFilmDirt,
	FieldAxis1st, FieldStripe1st, FieldEdgeDef, FieldEcc1st, FieldWashDrop,
	FieldUnknown, FieldOther1, FieldOther2, FieldEccDef, FieldDrop,
	FieldCountErr, FieldOther1st, FieldPeel2nd, FieldStripe2nd, FieldSuction,
	FieldMold2nd, FieldFilm2nd, FieldDefect2nd, FieldOther2nd, FieldAxisDef,
	FieldFilm3rd, FieldColorDef, FieldTransDef, FieldCurveDef, FieldCenThDef,
	FieldDiamDef, FieldR1ThDef, FieldEcc3rd, FieldEdgeDef3, FieldAxis3rd,
	FieldOther3rd,
}

// Category groups the raw counters reported on one line of the defect
// summary. First, second and third inspection variants of the same
// physical defect fold into a single category.
type Category struct {
	ID     string
	Label  string
	Fields []Field
}

// Categories is the reporting taxonomy, in display order.
var Categories = []Category{
	{ID: "roll_miss", Label: "巻きミス", Fields: []Field{FieldRollMiss}},
	{ID: "leak", Label: "モレ", Fields: []Field{FieldLeak}},
	{ID: "film_pull", Label: "膜ひっぱり", Fields: []Field{FieldFilmPull}},
	{ID: "crack", Label: "ワレ", Fields: []Field{FieldCrack}},
	{ID: "tear", Label: "チギレ", Fields: []Field{FieldTear, FieldTearRls}},
	{ID: "peel", Label: "ハガレ", Fields: []Field{FieldPeel, FieldPeel2nd}},
	{ID: "chip", Label: "カケ", Fields: []Field{FieldChip}},
	{ID: "poly_crk", Label: "重合ワレ", Fields: []Field{FieldPolyCrk}},
	{ID: "mold_scr", Label: "型キズ", Fields: []Field{FieldMoldScr, FieldMold2nd}},
	{ID: "lens_scr", Label: "レンズキズ", Fields: []Field{FieldLensScr}},
	{ID: "r1_bubble", Label: "R1泡", Fields: []Field{FieldR1Bubble, FieldR1BubChk}},
	{ID: "r2_bubble", Label: "R2泡", Fields: []Field{FieldR2Bubble, FieldR2BubRek}},
	{ID: "defect", Label: "ブツ", Fields: []Field{FieldDefect, FieldDefect2nd}},
	{ID: "elution", Label: "溶出", Fields: []Field{FieldElution}},
	{ID: "haze", Label: "モヤ", Fields: []Field{FieldHaze}},
	{ID: "curl", Label: "カール", Fields: []Field{FieldCurl, FieldCurlIns}},
	{ID: "film_float", Label: "膜浮き", Fields: []Field{FieldFilmFloat, FieldFilmFltCk, FieldFilm3rd}},
	{ID: "r1_defect", Label: "R1不良", Fields: []Field{FieldR1Defect}},
	{ID: "film_ng", Label: "膜不良", Fields: []Field{FieldFilmNg, FieldFilmNgCk, FieldFilm2nd}},
	{ID: "foreign", Label: "イブツ", Fields: []Field{FieldForeign}},
	{ID: "cut_waste", Label: "カットくず", Fields: []Field{FieldCutWaste}},
	{ID: "fiber", Label: "センイ", Fields: []Field{FieldFiber}},
	{ID: "mold_dirt", Label: "モールド汚れ", Fields: []Field{FieldMoldDirt}},
	{ID: "film_dirt", Label: "膜汚れ", Fields: []Field{FieldFilmDirt, FieldEdgeDef3}},
	{ID: "axis_1st", Label: "片軸", Fields: []Field{FieldAxis1st, FieldAxis3rd}},
	{ID: "stripe_1st", Label: "脈理", Fields: []Field{FieldStripe1st, FieldStripe2nd}},
	{ID: "edge_defect", Label: "コバスリ不良", Fields: []Field{FieldEdgeDef}},
	{ID: "wash_drop", Label: "洗浄落下", Fields: []Field{FieldWashDrop}},
	{ID: "unknown", Label: "不明", Fields: []Field{FieldUnknown}},
	{ID: "other_1", Label: "その他", Fields: []Field{FieldOther1, FieldOther2, FieldOther3rd, FieldOther2nd, FieldOther1st}},
	{ID: "ecc_defect", Label: "偏心不良", Fields: []Field{FieldEccDef, FieldEcc3rd, FieldEcc1st}},
	{ID: "drop", Label: "落下", Fields: []Field{FieldDrop}},
	{ID: "count_err", Label: "員数違い", Fields: []Field{FieldCountErr}},
	{ID: "suction", Label: "吸い込み", Fields: []Field{FieldSuction}},
	{ID: "axis_def", Label: "軸不良", Fields: []Field{FieldAxisDef}},
	{ID: "color_def", Label: "カラー不良", Fields: []Field{FieldColorDef}},
	{ID: "trans_def", Label: "透過率不良", Fields: []Field{FieldTransDef}},
	{ID: "curve_def", Label: "カーブ不良", Fields: []Field{FieldCurveDef}},
	{ID: "cen_th_def", Label: "中心厚不良", Fields: []Field{FieldCenThDef}},
	{ID: "diam_def", Label: "径不良", Fields: []Field{FieldDiamDef}},
	{ID: "r1_th_def", Label: "R1厚み不良", Fields: []Field{FieldR1ThDef}},
}

// ErrUnknownCategory is returned for category ids outside the registry.
var ErrUnknownCategory = serrors.NewError("QC_UNKNOWN_DEFECT", "unknown defect category", "")

var categoriesByID = func() map[string]Category {
	m := make(map[string]Category, len(Categories))
	for _, c := range Categories {
		m[c.ID] = c
	}
	return m
}()

// ByID resolves a category id. Unknown ids come back as a typed error
// instead of being interpolated into SQL.
func ByID(id string) (Category, error) {
	c, ok := categoriesByID[id]
	if !ok {
		return Category{}, ErrUnknownCategory.WithDetails("%q", id)
	}
	return c, nil
}

// Counts holds raw counter values keyed by field. Absent fields read as
// zero, so sparse rows and fully populated rows sum the same way.
type Counts map[Field]float64

func (c Counts) Get(f Field) float64 {
	return c[f]
}

func (c Counts) Set(f Field, v float64) {
	c[f] = v
}

// CategoryCount sums the raw counters contributing to cat.
func (c Counts) CategoryCount(cat Category) float64 {
	var sum float64
	for _, f := range cat.Fields {
		sum += c[f]
	}
	return sum
}

// Total sums every raw counter. Injected and graded quantities are not
// counters and never appear here.
func (c Counts) Total() float64 {
	var sum float64
	for _, f := range Fields {
		sum += c[f]
	}
	return sum
}

// Clone returns an independent copy.
func (c Counts) Clone() Counts {
	out := make(Counts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
