package modules

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateKind is returned when a set receives two factories for one kind.
	ErrDuplicateKind = errors.New("duplicate module kind")
	// ErrUnknownKind is returned when selecting a kind the set does not contain.
	ErrUnknownKind = errors.New("unknown module kind")
)

// Factory creates a fresh module instance in its zero state.
type Factory func() Module

// Set is an ordered list of module factories with unique kinds.
type Set struct {
	factories []Factory
	kinds     []Kind
	index     map[Kind]int
}

// NewSet creates a set from factories, preserving their order.
func NewSet(factories ...Factory) (*Set, error) {
	set := &Set{
		factories: make([]Factory, 0, len(factories)),
		kinds:     make([]Kind, 0, len(factories)),
		index:     make(map[Kind]int, len(factories)),
	}

	for _, factory := range factories {
		kind := factory().Kind()
		if _, exists := set.index[kind]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKind, kind)
		}

		set.index[kind] = len(set.factories)
		set.factories = append(set.factories, factory)
		set.kinds = append(set.kinds, kind)
	}

	return set, nil
}

// DefaultSet returns every built-in module in report order.
func DefaultSet() *Set {
	set, err := NewSet(
		func() Module { return NewBasicStats("") },
		func() Module { return NewPerBaseQuality() },
		func() Module { return NewPerSequenceQuality() },
		func() Module { return NewPerBaseContent() },
		func() Module { return NewPerBaseGC() },
		func() Module { return NewPerSequenceGC() },
		func() Module { return NewNContent() },
		func() Module { return NewLengthDistribution() },
	)
	if err != nil {
		panic(err) // built-in kinds are unique.
	}

	return set
}

// Kinds returns the kinds in set order.
func (s *Set) Kinds() []Kind {
	return append([]Kind(nil), s.kinds...)
}

// Select returns a new set restricted to the named kinds, in set order.
func (s *Set) Select(names []string) (*Set, error) {
	wanted := make(map[Kind]bool, len(names))

	for _, name := range names {
		kind := Kind(strings.TrimSpace(name))
		if _, ok := s.index[kind]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
		}

		wanted[kind] = true
	}

	selected := make([]Factory, 0, len(wanted))

	for i, kind := range s.kinds {
		if wanted[kind] {
			selected = append(selected, s.factories[i])
		}
	}

	return NewSet(selected...)
}

// New creates one fresh instance of every module, in set order.
func (s *Set) New() []Module {
	mods := make([]Module, len(s.factories))
	for i, factory := range s.factories {
		mods[i] = factory()
	}

	return mods
}

// NewAggregates creates one fresh aggregatable instance per kind.
func (s *Set) NewAggregates() (map[Kind]Aggregatable, error) {
	aggs := make(map[Kind]Aggregatable, len(s.factories))

	for i, factory := range s.factories {
		agg, ok := factory().(Aggregatable)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotAggregatable, s.kinds[i])
		}

		aggs[s.kinds[i]] = agg
	}

	return aggs, nil
}
