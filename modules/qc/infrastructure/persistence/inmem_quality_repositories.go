package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/filmcut"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/filmprocess"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/hardcoat"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/instruction"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/aggregates/spincoat"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/entities/importstate"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/entities/product"
	"github.com/hikari-opt/lens-qc/modules/qc/domain/entities/refcode"
)

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func sameCode(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func matchDate(d *time.Time, want *time.Time) bool {
	return want == nil || (d != nil && d.Equal(*want))
}

func matchCode(c *int, want *int) bool {
	return want == nil || (c != nil && *c == *want)
}

// InMemFilmCutRepository mirrors the natural-key save of the SQL
// repository: first match in insertion order wins.
type InMemFilmCutRepository struct {
	mu      sync.RWMutex
	records []*filmcut.Record
	nextID  int64
}

func NewInMemFilmCutRepository() *InMemFilmCutRepository {
	return &InMemFilmCutRepository{nextID: 1}
}

func (m *InMemFilmCutRepository) Save(_ context.Context, record *filmcut.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records {
		if sameDate(existing.CutDate, record.CutDate) &&
			sameDate(existing.R1InjectDate, record.R1InjectDate) &&
			sameCode(existing.Monomer, record.Monomer) &&
			existing.AnnealNo == record.AnnealNo &&
			existing.CutMachineNo == record.CutMachineNo &&
			sameCode(existing.Item, record.Item) &&
			sameCode(existing.CutMenu, record.CutMenu) &&
			sameDate(existing.FilmProcDate, record.FilmProcDate) &&
			existing.CRFilm == record.CRFilm &&
			sameDate(existing.HeatProcDate, record.HeatProcDate) &&
			sameCode(existing.FilmCurve, record.FilmCurve) &&
			sameCode(existing.Color, record.Color) {
			id := existing.ID
			*existing = *record
			existing.ID = id
			record.ID = id
			return nil
		}
	}
	stored := *record
	stored.ID = m.nextID
	record.ID = m.nextID
	m.nextID++
	m.records = append(m.records, &stored)
	return nil
}

func (m *InMemFilmCutRepository) List(_ context.Context, params *filmcut.FindParams) ([]*filmcut.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*filmcut.Record, 0, len(m.records))
	for _, r := range m.records {
		if params != nil {
			if !inRange(r.CutDate, params.CutFrom, params.CutTo) {
				continue
			}
			if params.Month != nil && r.Month != *params.Month {
				continue
			}
			if !matchDate(r.R1InjectDate, params.R1InjectDate) {
				continue
			}
			if !matchCode(r.Monomer, params.Monomer) {
				continue
			}
			if params.AnnealNo != nil && r.AnnealNo != *params.AnnealNo {
				continue
			}
			if params.CutMachineNo != nil && r.CutMachineNo != *params.CutMachineNo {
				continue
			}
			if !matchCode(r.Item, params.Item) {
				continue
			}
			if !matchCode(r.CutMenu, params.CutMenu) {
				continue
			}
			if !matchDate(r.FilmProcDate, params.FilmProcDate) {
				continue
			}
			if params.CRFilm != nil && r.CRFilm != *params.CRFilm {
				continue
			}
			if !matchDate(r.HeatProcDate, params.HeatProcDate) {
				continue
			}
			if !matchCode(r.FilmCurve, params.FilmCurve) {
				continue
			}
			if !matchCode(r.Color, params.Color) {
				continue
			}
		}
		copied := *r
		out = append(out, &copied)
	}
	return out, nil
}

type InMemFilmProcessRepository struct {
	mu      sync.RWMutex
	records []*filmprocess.Record
	nextID  int64
}

func NewInMemFilmProcessRepository() *InMemFilmProcessRepository {
	return &InMemFilmProcessRepository{nextID: 1}
}

func (m *InMemFilmProcessRepository) Save(_ context.Context, record *filmprocess.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records {
		if sameDate(existing.InspectDate, record.InspectDate) &&
			sameDate(existing.ProcessDate, record.ProcessDate) &&
			sameCode(existing.Color, record.Color) &&
			existing.PVALotNo == record.PVALotNo &&
			existing.Note == record.Note &&
			sameCode(existing.FilmCurve, record.FilmCurve) {
			id := existing.ID
			*existing = *record
			existing.ID = id
			record.ID = id
			return nil
		}
	}
	stored := *record
	stored.ID = m.nextID
	record.ID = m.nextID
	m.nextID++
	m.records = append(m.records, &stored)
	return nil
}

func (m *InMemFilmProcessRepository) List(_ context.Context, params *filmprocess.FindParams) ([]*filmprocess.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*filmprocess.Record, 0, len(m.records))
	for _, r := range m.records {
		if params != nil {
			if !inRange(r.InspectDate, params.InspectFrom, params.InspectTo) {
				continue
			}
			if !matchDate(r.ProcessDate, params.ProcessDate) {
				continue
			}
			if !matchCode(r.Color, params.Color) {
				continue
			}
			if params.PVALotNo != nil && r.PVALotNo != *params.PVALotNo {
				continue
			}
			if !matchCode(r.FilmCurve, params.FilmCurve) {
				continue
			}
		}
		copied := *r
		out = append(out, &copied)
	}
	return out, nil
}

type InMemSpinCoatRepository struct {
	mu      sync.RWMutex
	records []*spincoat.Record
	nextID  int64
}

func NewInMemSpinCoatRepository() *InMemSpinCoatRepository {
	return &InMemSpinCoatRepository{nextID: 1}
}

func (m *InMemSpinCoatRepository) Save(_ context.Context, record *spincoat.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records {
		if sameDate(existing.CoatDate, record.CoatDate) &&
			existing.Instruction == record.Instruction &&
			existing.BranchNo == record.BranchNo &&
			existing.Type == record.Type &&
			existing.Name1 == record.Name1 &&
			existing.RefIndex == record.RefIndex &&
			existing.CoatColor == record.CoatColor &&
			existing.Times == record.Times {
			id := existing.ID
			*existing = *record
			existing.ID = id
			record.ID = id
			return nil
		}
	}
	stored := *record
	stored.ID = m.nextID
	record.ID = m.nextID
	m.nextID++
	m.records = append(m.records, &stored)
	return nil
}

func (m *InMemSpinCoatRepository) List(_ context.Context, params *spincoat.FindParams) ([]*spincoat.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*spincoat.Record, 0, len(m.records))
	for _, r := range m.records {
		if params != nil {
			if !inRange(r.CoatDate, params.CoatFrom, params.CoatTo) {
				continue
			}
			if params.Type != nil && r.Type != *params.Type {
				continue
			}
			if params.CoatColor != nil && r.CoatColor != *params.CoatColor {
				continue
			}
		}
		copied := *r
		out = append(out, &copied)
	}
	return out, nil
}

type InMemHardCoatRepository struct {
	mu      sync.RWMutex
	records []*hardcoat.Record
	nextID  int64
}

func NewInMemHardCoatRepository() *InMemHardCoatRepository {
	return &InMemHardCoatRepository{nextID: 1}
}

func (m *InMemHardCoatRepository) Save(_ context.Context, record *hardcoat.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records {
		if sameDate(existing.CoatDate, record.CoatDate) &&
			existing.Times == record.Times &&
			existing.Type == record.Type &&
			existing.Base == record.Base &&
			existing.AddPower == record.AddPower &&
			existing.LR == record.LR &&
			existing.Color == record.Color {
			id := existing.ID
			*existing = *record
			existing.ID = id
			record.ID = id
			return nil
		}
	}
	stored := *record
	stored.ID = m.nextID
	record.ID = m.nextID
	m.nextID++
	m.records = append(m.records, &stored)
	return nil
}

func (m *InMemHardCoatRepository) List(_ context.Context, params *hardcoat.FindParams) ([]*hardcoat.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*hardcoat.Record, 0, len(m.records))
	for _, r := range m.records {
		if params != nil {
			if !inRange(r.CoatDate, params.CoatFrom, params.CoatTo) {
				continue
			}
			if params.Type != nil && r.Type != *params.Type {
				continue
			}
			if params.Color != nil && r.Color != *params.Color {
				continue
			}
		}
		copied := *r
		out = append(out, &copied)
	}
	return out, nil
}

type InMemInstructionRepository struct {
	mu      sync.RWMutex
	records map[string]*instruction.Record
}

func NewInMemInstructionRepository() *InMemInstructionRepository {
	return &InMemInstructionRepository{records: map[string]*instruction.Record{}}
}

func instructionKey(r *instruction.Record) string {
	return r.ProductID + "|" + r.Date.Format("2006-01-02")
}

func (m *InMemInstructionRepository) CreateIfAbsent(_ context.Context, record *instruction.Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := instructionKey(record)
	if _, ok := m.records[key]; ok {
		return false, nil
	}
	stored := *record
	m.records[key] = &stored
	return true, nil
}

func (m *InMemInstructionRepository) List(_ context.Context) ([]*instruction.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*instruction.Record, 0, len(m.records))
	for _, r := range m.records {
		copied := *r
		out = append(out, &copied)
	}
	return out, nil
}

type InMemRefCodeRepository struct {
	mu    sync.RWMutex
	codes []refcode.Code
}

func NewInMemRefCodeRepository(codes ...refcode.Code) *InMemRefCodeRepository {
	return &InMemRefCodeRepository{codes: codes}
}

func (m *InMemRefCodeRepository) List(_ context.Context, domain refcode.Domain) ([]refcode.Code, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]refcode.Code, 0)
	for _, c := range m.codes {
		if c.Domain == domain {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *InMemRefCodeRepository) GetAll(_ context.Context) ([]refcode.Code, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]refcode.Code, len(m.codes))
	copy(out, m.codes)
	return out, nil
}

func (m *InMemRefCodeRepository) Save(_ context.Context, code refcode.Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.codes {
		if c.Domain == code.Domain && c.ID == code.ID {
			m.codes[i] = code
			return nil
		}
	}
	m.codes = append(m.codes, code)
	return nil
}

type InMemProductRepository struct {
	mu       sync.RWMutex
	products map[string]*product.Product
}

func NewInMemProductRepository(products ...*product.Product) *InMemProductRepository {
	m := &InMemProductRepository{products: map[string]*product.Product{}}
	for _, p := range products {
		copied := *p
		m.products[p.ID] = &copied
	}
	return m
}

func (m *InMemProductRepository) GetByID(_ context.Context, id string) (*product.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *InMemProductRepository) List(_ context.Context) ([]*product.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*product.Product, 0, len(m.products))
	for _, p := range m.products {
		copied := *p
		out = append(out, &copied)
	}
	return out, nil
}

func (m *InMemProductRepository) Save(_ context.Context, p *product.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *p
	m.products[p.ID] = &copied
	return nil
}

type InMemMonomerRepository struct {
	mu       sync.RWMutex
	monomers map[string]*product.Monomer
}

func NewInMemMonomerRepository(monomers ...*product.Monomer) *InMemMonomerRepository {
	m := &InMemMonomerRepository{monomers: map[string]*product.Monomer{}}
	for _, mono := range monomers {
		copied := *mono
		m.monomers[mono.Type] = &copied
	}
	return m
}

func (m *InMemMonomerRepository) List(_ context.Context) ([]*product.Monomer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*product.Monomer, 0, len(m.monomers))
	for _, mono := range m.monomers {
		copied := *mono
		out = append(out, &copied)
	}
	return out, nil
}

func (m *InMemMonomerRepository) Save(_ context.Context, mono *product.Monomer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *mono
	m.monomers[mono.Type] = &copied
	return nil
}

type InMemWorkerRepository struct {
	workers []*product.Worker
}

func NewInMemWorkerRepository(workers ...*product.Worker) *InMemWorkerRepository {
	return &InMemWorkerRepository{workers: workers}
}

func (m *InMemWorkerRepository) List(_ context.Context) ([]*product.Worker, error) {
	return m.workers, nil
}

type InMemMachineRepository struct {
	machines []*product.Machine
}

func NewInMemMachineRepository(machines ...*product.Machine) *InMemMachineRepository {
	return &InMemMachineRepository{machines: machines}
}

func (m *InMemMachineRepository) List(_ context.Context) ([]*product.Machine, error) {
	return m.machines, nil
}

type InMemImportStateRepository struct {
	mu         sync.RWMutex
	importedAt *time.Time
}

func NewInMemImportStateRepository() *InMemImportStateRepository {
	return &InMemImportStateRepository{}
}

func (m *InMemImportStateRepository) Get(_ context.Context) (*importstate.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &importstate.State{ImportedAt: m.importedAt}, nil
}

func (m *InMemImportStateRepository) SetImportedAt(_ context.Context, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.importedAt = &at
	return nil
}
