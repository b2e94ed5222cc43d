package services

import (
	"context"
	"time"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/entities/importstate"
	"github.com/hikari-opt/lens-qc/pkg/composables"
)

// ImportStateService exposes the feed-freshness timestamp the reports
// stamp next to their figures.
type ImportStateService struct {
	repo importstate.Repository
}

func NewImportStateService(repo importstate.Repository) *ImportStateService {
	return &ImportStateService{repo: repo}
}

// ImportedAt returns when the primary lot feed was last imported, or
// nil when it never was.
func (s *ImportStateService) ImportedAt(ctx context.Context) (*time.Time, error) {
	state, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	return state.ImportedAt, nil
}

// Touch records at as the latest primary feed import time.
func (s *ImportStateService) Touch(ctx context.Context, at time.Time) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		return s.repo.SetImportedAt(txCtx, at)
	})
}
