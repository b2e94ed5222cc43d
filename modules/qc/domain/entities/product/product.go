// Package product holds the master dimensions the lot feeds resolve
// against: products, monomers, workers and machines.
package product

import "context"

type Product struct {
	ID             string
	Kind           *int
	MonomerType    string
	Name           string
	Color          string
	PolymerizeDays *int
}

// Monomer carries the per-monomer yield target in percent.
type Monomer struct {
	Type   string
	Name   string
	Target float64
}

type Worker struct {
	ID   int
	Name string
}

type Machine struct {
	ID   int
	Name string
}

type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]*Product, error)
	Save(ctx context.Context, p *Product) error
}

type MonomerRepository interface {
	List(ctx context.Context) ([]*Monomer, error)
	Save(ctx context.Context, m *Monomer) error
}

type WorkerRepository interface {
	List(ctx context.Context) ([]*Worker, error)
}

type MachineRepository interface {
	List(ctx context.Context) ([]*Machine, error)
}
