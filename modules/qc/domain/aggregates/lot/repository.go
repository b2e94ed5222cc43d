package lot

import (
	"context"
	"time"
)

// FindParams filters lot listings. Date ranges are inclusive; an
// inverted range simply matches nothing.
type FindParams struct {
	R1From    *time.Time
	R1To      *time.Time
	CheckFrom *time.Time
	CheckTo   *time.Time
	R2From    *time.Time
	R2To      *time.Time

	ProductID   string
	MonomerType string
	R1Injector  *int
	R2Injector  *int

	// FinalChecked keeps only lots whose third inspection is signed off.
	FinalChecked bool
}

type Repository interface {
	GetByLot(ctx context.Context, lotNo string) (*Record, error)
	List(ctx context.Context, params *FindParams) ([]*Record, error)
	// Upsert inserts the record or, when the lot already exists,
	// overwrites everything except the stage-owned fields.
	Upsert(ctx context.Context, record *Record) error
	// ApplyStage writes one stage field set onto an existing lot and
	// returns the number of rows touched. A missing lot is zero rows,
	// not an error.
	ApplyStage(ctx context.Context, lotNo string, update StageUpdate) (int64, error)
	Delete(ctx context.Context, lotNo string) error
	// IncompleteInspections lists lots released at least two days
	// before asOf, injected within the preceding two weeks, and still
	// waiting on third inspection, oldest first.
	IncompleteInspections(ctx context.Context, asOf time.Time) ([]*Record, error)
}
