package thermo

import (
	"fmt"
	"sort"
)

// Registry resolves species by id. It is read-only once built and safe for
// concurrent use.
type Registry struct {
	species map[string]SaturationPropertySource
	ids     []string
}

func NewRegistry(sources ...SaturationPropertySource) (*Registry, error) {
	r := &Registry{species: make(map[string]SaturationPropertySource, len(sources))}
	for _, src := range sources {
		if _, dup := r.species[src.ID()]; dup {
			return nil, fmt.Errorf("registry: duplicate species %q", src.ID())
		}
		r.species[src.ID()] = src
		r.ids = append(r.ids, src.ID())
	}
	sort.Strings(r.ids)
	return r, nil
}

// RegistryFromConstants builds a Species per catalog entry.
func RegistryFromConstants(catalog []Constants) (*Registry, error) {
	sources := make([]SaturationPropertySource, 0, len(catalog))
	for _, c := range catalog {
		s, err := NewSpecies(c)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return NewRegistry(sources...)
}

func (r *Registry) Get(id string) (SaturationPropertySource, error) {
	src, ok := r.species[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSpeciesNotFound, id)
	}
	return src, nil
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

func (r *Registry) Len() int { return len(r.ids) }
