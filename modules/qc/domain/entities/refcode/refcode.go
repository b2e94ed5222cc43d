// Package refcode models the shared classification table: each row maps a
// (domain, code) pair to a display name. Feeds carry the names; persistence
// stores the codes.
package refcode

import "context"

// Domain is the classification namespace a code belongs to.
type Domain string

const (
	DomainCutItem       Domain = "MITM"
	DomainCutMenu       Domain = "MCUT"
	DomainMonomer       Domain = "MMNO"
	DomainFilmCurve     Domain = "MCRB"
	DomainFilmColor     Domain = "MCLR"
	DomainSpinCoatType  Domain = "SPKD"
	DomainSpinCoatName  Domain = "SPNM"
	DomainSpinCoatColor Domain = "SPCL"
	DomainHardCoatType  Domain = "HCKD"
	DomainHardCoatColor Domain = "HCCL"
)

type Code struct {
	Domain Domain
	ID     int
	Name   string
}

type Repository interface {
	List(ctx context.Context, domain Domain) ([]Code, error)
	GetAll(ctx context.Context) ([]Code, error)
	Save(ctx context.Context, code Code) error
}

// Resolver is an in-memory name-to-code index loaded once per import run.
type Resolver struct {
	byName map[Domain]map[string]int
}

func NewResolver(codes []Code) *Resolver {
	r := &Resolver{byName: map[Domain]map[string]int{}}
	for _, c := range codes {
		m, ok := r.byName[c.Domain]
		if !ok {
			m = map[string]int{}
			r.byName[c.Domain] = m
		}
		m[c.Name] = c.ID
	}
	return r
}

// Resolve maps a feed name to its code. The second return reports whether
// the name is known in the domain.
func (r *Resolver) Resolve(domain Domain, name string) (int, bool) {
	id, ok := r.byName[domain][name]
	return id, ok
}
