package modules

import (
	"slices"
	"strconv"
	"sync"

	"github.com/Sumatoshi-tech/seqstat/pkg/sequence"
)

// positionCounts holds per-position counts of each called base.
type positionCounts struct {
	g, a, t, c []int64
}

func (p *positionCounts) add(bases []byte) {
	n := len(bases)
	p.g, p.a, p.t, p.c = grow(p.g, n), grow(p.a, n), grow(p.t, n), grow(p.c, n)

	for i, base := range bases {
		switch base {
		case 'G':
			p.g[i]++
		case 'A':
			p.a[i]++
		case 'T':
			p.t[i]++
		case 'C':
			p.c[i]++
		}
	}
}

func (p *positionCounts) clone() positionCounts {
	return positionCounts{
		g: slices.Clone(p.g),
		a: slices.Clone(p.a),
		t: slices.Clone(p.t),
		c: slices.Clone(p.c),
	}
}

func (p *positionCounts) merge(other positionCounts) {
	p.g = addInto(p.g, other.g)
	p.a = addInto(p.a, other.a)
	p.t = addInto(p.t, other.t)
	p.c = addInto(p.c, other.c)
}

// share returns n as a percentage of all called bases at position i.
func (p *positionCounts) share(i int, n int64) float64 {
	total := p.g[i] + p.a[i] + p.t[i] + p.c[i]
	if total == 0 {
		return 0
	}

	return float64(n) * percent / float64(total)
}

func formatShare(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// PerBaseContent tracks the share of each base at every read position.
type PerBaseContent struct {
	mu     sync.Mutex
	counts positionCounts
}

// NewPerBaseContent creates an empty PerBaseContent module.
func NewPerBaseContent() *PerBaseContent { return &PerBaseContent{} }

// Kind returns KindPerBaseContent.
func (p *PerBaseContent) Kind() Kind { return KindPerBaseContent }

// Name returns the display name.
func (p *PerBaseContent) Name() string { return "Per base sequence content" }

// Description returns a human-readable description.
func (p *PerBaseContent) Description() string {
	return "Shows the relative amounts of each base at each position in a sequencing run"
}

// IgnoresFiltered is true.
func (p *PerBaseContent) IgnoresFiltered() bool { return true }

// Update counts each called base by position. N and other codes are not counted.
func (p *PerBaseContent) Update(rec *sequence.Record) {
	p.counts.add(rec.Bases)
}

// Reset clears all positions.
func (p *PerBaseContent) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.counts = positionCounts{}
}

func (p *PerBaseContent) snapshot() positionCounts {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.counts.clone()
}

// MergeFrom adds other's per-position counts.
func (p *PerBaseContent) MergeFrom(other Module) error {
	src, err := checkMerge(p, other)
	if err != nil {
		return err
	}

	counts := src.snapshot()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.counts.merge(counts)

	return nil
}

// Render returns the G, A, T and C percentages per position.
func (p *PerBaseContent) Render() Result {
	counts := p.snapshot()

	rows := make([][]string, 0, len(counts.g))
	shares := map[string][]float64{
		"g": make([]float64, 0, len(counts.g)),
		"a": make([]float64, 0, len(counts.g)),
		"t": make([]float64, 0, len(counts.g)),
		"c": make([]float64, 0, len(counts.g)),
	}

	for i := range counts.g {
		g, a := counts.share(i, counts.g[i]), counts.share(i, counts.a[i])
		t, c := counts.share(i, counts.t[i]), counts.share(i, counts.c[i])

		shares["g"] = append(shares["g"], g)
		shares["a"] = append(shares["a"], a)
		shares["t"] = append(shares["t"], t)
		shares["c"] = append(shares["c"], c)

		rows = append(rows, []string{strconv.Itoa(i + 1), formatShare(g), formatShare(a), formatShare(t), formatShare(c)})
	}

	return Result{
		Kind:    KindPerBaseContent,
		Name:    p.Name(),
		Status:  StatusPass,
		Columns: []string{"Base", "G", "A", "T", "C"},
		Rows:    rows,
		Values:  map[string]any{"percent": shares},
	}
}

// PerBaseGC tracks the GC share of called bases at every read position.
type PerBaseGC struct {
	mu     sync.Mutex
	counts positionCounts
}

// NewPerBaseGC creates an empty PerBaseGC module.
func NewPerBaseGC() *PerBaseGC { return &PerBaseGC{} }

// Kind returns KindPerBaseGC.
func (p *PerBaseGC) Kind() Kind { return KindPerBaseGC }

// Name returns the display name.
func (p *PerBaseGC) Name() string { return "Per base GC content" }

// Description returns a human-readable description.
func (p *PerBaseGC) Description() string {
	return "Shows the GC content of the bases at each position in a sequencing run"
}

// IgnoresFiltered is true.
func (p *PerBaseGC) IgnoresFiltered() bool { return true }

// Update counts each called base by position.
func (p *PerBaseGC) Update(rec *sequence.Record) {
	p.counts.add(rec.Bases)
}

// Reset clears all positions.
func (p *PerBaseGC) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.counts = positionCounts{}
}

func (p *PerBaseGC) snapshot() positionCounts {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.counts.clone()
}

// MergeFrom adds other's per-position counts.
func (p *PerBaseGC) MergeFrom(other Module) error {
	src, err := checkMerge(p, other)
	if err != nil {
		return err
	}

	counts := src.snapshot()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.counts.merge(counts)

	return nil
}

// Render returns the GC percentage per position.
func (p *PerBaseGC) Render() Result {
	counts := p.snapshot()

	rows := make([][]string, 0, len(counts.g))
	shares := make([]float64, 0, len(counts.g))

	for i := range counts.g {
		gc := counts.share(i, counts.g[i]+counts.c[i])

		shares = append(shares, gc)
		rows = append(rows, []string{strconv.Itoa(i + 1), formatShare(gc)})
	}

	return Result{
		Kind:    KindPerBaseGC,
		Name:    p.Name(),
		Status:  StatusPass,
		Columns: []string{"Base", "%GC"},
		Rows:    rows,
		Values:  map[string]any{"gc_percent": shares},
	}
}
