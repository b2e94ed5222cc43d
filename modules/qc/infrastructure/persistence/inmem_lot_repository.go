package persistence

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/lot"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/defect"
)

// InMemLotRepository keeps lots in a map. It mirrors the SQL semantics,
// including stage-field preservation on upsert, and backs service tests
// that do not need a database.
type InMemLotRepository struct {
	mu   sync.RWMutex
	lots map[string]*lot.Record
}

func NewInMemLotRepository() *InMemLotRepository {
	return &InMemLotRepository{lots: map[string]*lot.Record{}}
}

func cloneLot(r *lot.Record) *lot.Record {
	c := *r
	if r.Defects != nil {
		c.Defects = r.Defects.Clone()
	} else {
		c.Defects = make(defect.Counts)
	}
	return &c
}

func (m *InMemLotRepository) GetByLot(_ context.Context, lotNo string) (*lot.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.lots[lotNo]
	if !ok {
		return nil, fmt.Errorf("lot: %s: %w", lotNo, ErrLotNotFound)
	}
	return cloneLot(r), nil
}

func (m *InMemLotRepository) Upsert(_ context.Context, record *lot.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := cloneLot(record)
	if existing, ok := m.lots[record.LotNo]; ok {
		next.R2Date = existing.R2Date
		next.R2Qty = existing.R2Qty
		next.ReleaseDate = existing.ReleaseDate
		next.CheckDate = existing.CheckDate
		next.R2JudgeDate = existing.R2JudgeDate
		next.AnnealDate = existing.AnnealDate
		next.Chk1Date = existing.Chk1Date
		next.Chk2Date = existing.Chk2Date
		next.R1JudgeDate = existing.R1JudgeDate
		next.R1CheckDate = existing.R1CheckDate
		next.R2Timestamp = existing.R2Timestamp
	}
	m.lots[record.LotNo] = next
	return nil
}

func (m *InMemLotRepository) ApplyStage(_ context.Context, lotNo string, update lot.StageUpdate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if update.Stage == 0 {
		return 0, nil
	}
	r, ok := m.lots[lotNo]
	if !ok {
		return 0, nil
	}
	update.Apply(r)
	return 1, nil
}

func (m *InMemLotRepository) Delete(_ context.Context, lotNo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lots, lotNo)
	return nil
}

func inRange(d *time.Time, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	if d == nil {
		return false
	}
	if from != nil && d.Before(*from) {
		return false
	}
	if to != nil && d.After(*to) {
		return false
	}
	return true
}

func (m *InMemLotRepository) List(_ context.Context, params *lot.FindParams) ([]*lot.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*lot.Record, 0, len(m.lots))
	for _, r := range m.lots {
		if params != nil {
			if !inRange(r.R1InDate, params.R1From, params.R1To) {
				continue
			}
			if !inRange(r.CheckDate, params.CheckFrom, params.CheckTo) {
				continue
			}
			if !inRange(r.R2Date, params.R2From, params.R2To) {
				continue
			}
			if params.ProductID != "" && r.ProductID != params.ProductID {
				continue
			}
			if params.MonomerType != "" && r.MonomerType != params.MonomerType {
				continue
			}
			if params.R1Injector != nil && (r.R1Injector == nil || *r.R1Injector != *params.R1Injector) {
				continue
			}
			if params.R2Injector != nil && (r.R2Injector == nil || *r.R2Injector != *params.R2Injector) {
				continue
			}
			if params.FinalChecked && !r.FinalChecked() {
				continue
			}
		}
		out = append(out, cloneLot(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LotNo < out[j].LotNo })
	return out, nil
}

func (m *InMemLotRepository) IncompleteInspections(_ context.Context, asOf time.Time) ([]*lot.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	earliest := asOf.AddDate(0, 0, -14)
	latest := asOf.AddDate(0, 0, -2)
	out := make([]*lot.Record, 0)
	for _, r := range m.lots {
		if r.Chk3By != nil || r.ReleaseBy == nil {
			continue
		}
		if r.R1InDate == nil || r.R1InDate.Before(earliest) {
			continue
		}
		if r.ReleaseDate == nil || r.ReleaseDate.After(latest) {
			continue
		}
		out = append(out, cloneLot(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].R1InDate.Before(*out[j].R1InDate) })
	return out, nil
}
