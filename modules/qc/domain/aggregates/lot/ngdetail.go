package lot

import "context"

// NG detail item ids.
const (
	NGColor = 1
	NGTrans = 2
)

// NGDetail is the film inspection follow-up recorded per lot and defect
// item: how many lenses were re-inspected and how many failed.
type NGDetail struct {
	LotNo      string
	NGID       int
	InspectQty float64
	NGQty      float64
	Note       string
}

type NGDetailRepository interface {
	List(ctx context.Context) ([]*NGDetail, error)
	Save(ctx context.Context, detail *NGDetail) error
}
