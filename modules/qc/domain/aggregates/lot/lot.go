// Package lot is the production lot record aggregate. One row tracks a
// lot from R1 injection through final inspection, including every raw
// defect counter reported along the way.
package lot

import (
	"time"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/defect"
)

type Record struct {
	LotNo       string
	ProductID   string
	MonomerType string

	R1InDate     *time.Time
	R1Tank       *int
	R2Tank       *int
	MonomerBatch string
	R2Injector   *int
	FilmDate     *time.Time
	R1Injector   *int
	InjectQty    float64

	Defects defect.Counts
	AGrade  float64
	BGrade  float64

	R1InComment    string
	R1ChkComment   string
	R2InComment    string
	ReleaseComment string

	ReleaseBy *int
	AnnealBy  *int
	Chk1By    *int
	Chk2By    *int
	Chk3By    *int

	R1GoodCnt  float64
	AnnealTank *int

	// Stage-owned fields. The primary feed never overwrites these on
	// re-import; only the matching stage code writes them.
	R2Date      *time.Time
	R2Qty       *float64
	ReleaseDate *time.Time
	CheckDate   *time.Time
	R2JudgeDate *time.Time
	AnnealDate  *time.Time
	Chk1Date    *time.Time
	Chk2Date    *time.Time
	R1JudgeDate *time.Time
	R1CheckDate *time.Time
	R2Timestamp *time.Time
}

// DefectCount reads one raw counter, treating a nil map as all zeros.
func (r *Record) DefectCount(f defect.Field) float64 {
	if r.Defects == nil {
		return 0
	}
	return r.Defects.Get(f)
}

// TotalDefects sums every raw counter on the record.
func (r *Record) TotalDefects() float64 {
	if r.Defects == nil {
		return 0
	}
	return r.Defects.Total()
}

// GoodQty is the graded output of the lot.
func (r *Record) GoodQty() float64 {
	return r.AGrade + r.BGrade
}

// FinalChecked reports whether third inspection has signed the lot off.
func (r *Record) FinalChecked() bool {
	return r.Chk3By != nil
}

// Stage identifies which process step a stage feed row reports. Each
// stage owns a fixed column set on the record.
type Stage int

const (
	StageR1Polymerize Stage = iota + 1
	StageR1Inspect
	StageR2Inject
	StageR2Polymerize
	StageRelease
	StageAnneal
	StageFirstInspect
	StageSecondInspect
	StageFinalCheck
)

// StageUpdate writes one stage's column set onto a record. A nil Date
// or R2Timestamp clears the stored value, matching a blank or
// unparseable feed cell.
type StageUpdate struct {
	Stage       Stage
	Date        *time.Time
	R2Qty       float64
	R2Timestamp *time.Time
}

// Apply writes the stage's column set onto the record.
func (u StageUpdate) Apply(r *Record) {
	switch u.Stage {
	case StageR1Polymerize:
		r.R1JudgeDate = u.Date
	case StageR1Inspect:
		r.R1CheckDate = u.Date
	case StageR2Inject:
		qty := u.R2Qty
		r.R2Date = u.Date
		r.R2Qty = &qty
		r.R2Timestamp = u.R2Timestamp
	case StageR2Polymerize:
		r.R2JudgeDate = u.Date
	case StageRelease:
		r.ReleaseDate = u.Date
	case StageAnneal:
		r.AnnealDate = u.Date
	case StageFirstInspect:
		r.Chk1Date = u.Date
	case StageSecondInspect:
		r.Chk2Date = u.Date
	case StageFinalCheck:
		r.CheckDate = u.Date
	}
}
