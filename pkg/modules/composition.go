package modules

import (
	"maps"
	"slices"
	"strconv"
	"sync"

	"github.com/Sumatoshi-tech/seqstat/pkg/sequence"
)

// PerSequenceGC is a histogram of per-read GC content in whole percent.
type PerSequenceGC struct {
	mu     sync.Mutex
	counts [percent + 1]int64
}

// NewPerSequenceGC creates an empty PerSequenceGC module.
func NewPerSequenceGC() *PerSequenceGC { return &PerSequenceGC{} }

// Kind returns KindPerSequenceGC.
func (p *PerSequenceGC) Kind() Kind { return KindPerSequenceGC }

// Name returns the display name.
func (p *PerSequenceGC) Name() string { return "Per sequence GC content" }

// Description returns a human-readable description.
func (p *PerSequenceGC) Description() string {
	return "Shows the distribution of GC contents for whole sequences"
}

// IgnoresFiltered is true.
func (p *PerSequenceGC) IgnoresFiltered() bool { return true }

// Update bins the read by GC percent. Reads without any A/C/G/T are skipped.
func (p *PerSequenceGC) Update(rec *sequence.Record) {
	var gc, atgc int

	for _, base := range rec.Bases {
		switch base {
		case 'G', 'C':
			gc++
			atgc++
		case 'A', 'T':
			atgc++
		}
	}

	if atgc == 0 {
		return
	}

	p.counts[gc*percent/atgc]++
}

// Reset clears the histogram.
func (p *PerSequenceGC) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.counts = [percent + 1]int64{}
}

func (p *PerSequenceGC) snapshot() [percent + 1]int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.counts
}

// MergeFrom adds other's histogram.
func (p *PerSequenceGC) MergeFrom(other Module) error {
	src, err := checkMerge(p, other)
	if err != nil {
		return err
	}

	counts := src.snapshot()

	p.mu.Lock()
	defer p.mu.Unlock()

	for i, n := range counts {
		p.counts[i] += n
	}

	return nil
}

// Render returns the count of reads per GC percent.
func (p *PerSequenceGC) Render() Result {
	counts := p.snapshot()

	rows := make([][]string, 0, len(counts))
	for gc, n := range counts {
		rows = append(rows, []string{strconv.Itoa(gc), strconv.FormatInt(n, 10)})
	}

	return Result{
		Kind:    KindPerSequenceGC,
		Name:    p.Name(),
		Status:  StatusPass,
		Columns: []string{"GC Content", "Count"},
		Rows:    rows,
		Values:  map[string]any{"counts": counts[:]},
	}
}

// NContent tracks the share of N calls at every read position.
type NContent struct {
	mu     sync.Mutex
	ns     []int64
	totals []int64
}

// NewNContent creates an empty NContent module.
func NewNContent() *NContent { return &NContent{} }

// Kind returns KindNContent.
func (n *NContent) Kind() Kind { return KindNContent }

// Name returns the display name.
func (n *NContent) Name() string { return "Per base N content" }

// Description returns a human-readable description.
func (n *NContent) Description() string {
	return "Shows the percentage of bases at each position which are not being called"
}

// IgnoresFiltered is true.
func (n *NContent) IgnoresFiltered() bool { return true }

// Update counts N calls per position.
func (n *NContent) Update(rec *sequence.Record) {
	n.ns = grow(n.ns, len(rec.Bases))
	n.totals = grow(n.totals, len(rec.Bases))

	for i, base := range rec.Bases {
		n.totals[i]++

		if base == 'N' {
			n.ns[i]++
		}
	}
}

// Reset clears all positions.
func (n *NContent) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.ns, n.totals = nil, nil
}

func (n *NContent) snapshot() (ns, totals []int64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return slices.Clone(n.ns), slices.Clone(n.totals)
}

// MergeFrom adds other's per-position counts.
func (n *NContent) MergeFrom(other Module) error {
	src, err := checkMerge(n, other)
	if err != nil {
		return err
	}

	ns, totals := src.snapshot()

	n.mu.Lock()
	defer n.mu.Unlock()

	n.ns = addInto(n.ns, ns)
	n.totals = addInto(n.totals, totals)

	return nil
}

// Render returns the N percentage per position.
func (n *NContent) Render() Result {
	ns, totals := n.snapshot()

	rows := make([][]string, 0, len(ns))
	shares := make([]float64, 0, len(ns))

	for i := range ns {
		share := 0.0
		if totals[i] > 0 {
			share = float64(ns[i]) * percent / float64(totals[i])
		}

		shares = append(shares, share)
		rows = append(rows, []string{strconv.Itoa(i + 1), strconv.FormatFloat(share, 'f', 2, 64)})
	}

	return Result{
		Kind:    KindNContent,
		Name:    n.Name(),
		Status:  StatusPass,
		Columns: []string{"Base", "N-Count"},
		Rows:    rows,
		Values:  map[string]any{"n_percent": shares},
	}
}

// LengthDistribution counts reads per length.
type LengthDistribution struct {
	mu     sync.Mutex
	counts map[int]int64
}

// NewLengthDistribution creates an empty LengthDistribution module.
func NewLengthDistribution() *LengthDistribution {
	return &LengthDistribution{counts: make(map[int]int64)}
}

// Kind returns KindLengthDistribution.
func (l *LengthDistribution) Kind() Kind { return KindLengthDistribution }

// Name returns the display name.
func (l *LengthDistribution) Name() string { return "Sequence Length Distribution" }

// Description returns a human-readable description.
func (l *LengthDistribution) Description() string {
	return "Shows the distribution of sequence length over all sequences"
}

// IgnoresFiltered is true.
func (l *LengthDistribution) IgnoresFiltered() bool { return true }

// Update counts the read length.
func (l *LengthDistribution) Update(rec *sequence.Record) {
	l.counts[rec.Len()]++
}

// Reset clears the distribution.
func (l *LengthDistribution) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counts = make(map[int]int64)
}

func (l *LengthDistribution) snapshot() map[int]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return cloneCounts(l.counts)
}

// MergeFrom adds other's length counts.
func (l *LengthDistribution) MergeFrom(other Module) error {
	src, err := checkMerge(l, other)
	if err != nil {
		return err
	}

	counts := src.snapshot()

	l.mu.Lock()
	defer l.mu.Unlock()

	for length, n := range counts {
		l.counts[length] += n
	}

	return nil
}

// Render returns the count per length, ascending.
func (l *LengthDistribution) Render() Result {
	counts := l.snapshot()

	lengths := make(map[string]int64, len(counts))
	rows := make([][]string, 0, len(counts))

	for _, length := range sortedKeys(counts) {
		key := strconv.Itoa(length)
		lengths[key] = counts[length]
		rows = append(rows, []string{key, strconv.FormatInt(counts[length], 10)})
	}

	return Result{
		Kind:    KindLengthDistribution,
		Name:    l.Name(),
		Status:  StatusPass,
		Columns: []string{"Length", "Count"},
		Rows:    rows,
		Values:  map[string]any{"counts": lengths},
	}
}

// grow extends s with zeros to at least n elements.
func grow(s []int64, n int) []int64 {
	if len(s) >= n {
		return s
	}

	return append(s, make([]int64, n-len(s))...)
}

// addInto adds src element-wise into dst, growing dst as needed.
func addInto(dst, src []int64) []int64 {
	dst = grow(dst, len(src))
	for i, v := range src {
		dst[i] += v
	}

	return dst
}

func cloneCounts(m map[int]int64) map[int]int64 {
	return maps.Clone(m)
}

func sortedKeys(m map[int]int64) []int {
	return slices.Sorted(maps.Keys(m))
}
