package batch

import (
	"fmt"

	"github.com/Sumatoshi-tech/seqstat/pkg/modules"
	"github.com/Sumatoshi-tech/seqstat/pkg/report"
)

// Session collects merges from every file group of a batch. Its module map is fixed at
// construction; each aggregate serializes its own merges.
type Session struct {
	Identity report.Identity
	Target   Target

	kinds []modules.Kind
	aggs  map[modules.Kind]modules.Aggregatable
}

// NewSession creates one fresh aggregate per kind of set and names the aggregate report.
func NewSession(set *modules.Set, files []string, name, dir string) (*Session, error) {
	target, err := AggregateTarget(files, name, dir)
	if err != nil {
		return nil, err
	}

	aggs, err := set.NewAggregates()
	if err != nil {
		return nil, fmt.Errorf("create aggregates: %w", err)
	}

	for _, agg := range aggs {
		if aware, ok := agg.(modules.SourceAware); ok {
			aware.BindSource(target.Name)
		}
	}

	return &Session{
		Identity: report.Identity{Name: target.Name, Files: append([]string(nil), files...)},
		Target:   target,
		kinds:    set.Kinds(),
		aggs:     aggs,
	}, nil
}

// Merge folds one group's module into the aggregate of the same kind.
func (s *Session) Merge(m modules.Module) error {
	agg, ok := s.aggs[m.Kind()]
	if !ok {
		return fmt.Errorf("%w: no aggregate for %s", modules.ErrKindMismatch, m.Kind())
	}

	err := agg.MergeFrom(m)
	if err != nil {
		return fmt.Errorf("merge %s: %w", m.Kind(), err)
	}

	return nil
}

// Modules returns the aggregates in set order.
func (s *Session) Modules() []modules.Module {
	out := make([]modules.Module, 0, len(s.kinds))
	for _, kind := range s.kinds {
		out = append(out, s.aggs[kind])
	}

	return out
}
