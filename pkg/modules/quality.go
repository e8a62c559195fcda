package modules

import (
	"slices"
	"strconv"
	"sync"

	"github.com/Sumatoshi-tech/seqstat/pkg/sequence"
)

// PerBaseQuality tracks the mean quality code at every read position.
type PerBaseQuality struct {
	mu     sync.Mutex
	sums   []int64
	counts []int64
	lowest byte
}

// NewPerBaseQuality creates an empty PerBaseQuality module.
func NewPerBaseQuality() *PerBaseQuality {
	return &PerBaseQuality{lowest: noQualitySeen}
}

// Kind returns KindPerBaseQuality.
func (p *PerBaseQuality) Kind() Kind { return KindPerBaseQuality }

// Name returns the display name.
func (p *PerBaseQuality) Name() string { return "Per base sequence quality" }

// Description returns a human-readable description.
func (p *PerBaseQuality) Description() string {
	return "Shows the mean quality value across each base position in the read"
}

// IgnoresFiltered is true.
func (p *PerBaseQuality) IgnoresFiltered() bool { return true }

// Update adds the read's quality codes to the per-position sums.
func (p *PerBaseQuality) Update(rec *sequence.Record) {
	p.sums = grow(p.sums, len(rec.Quality))
	p.counts = grow(p.counts, len(rec.Quality))

	for i, q := range rec.Quality {
		p.sums[i] += int64(q)
		p.counts[i]++

		if q < p.lowest {
			p.lowest = q
		}
	}
}

// Reset clears all positions.
func (p *PerBaseQuality) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sums, p.counts, p.lowest = nil, nil, noQualitySeen
}

func (p *PerBaseQuality) snapshot() (sums, counts []int64, lowest byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return slices.Clone(p.sums), slices.Clone(p.counts), p.lowest
}

// MergeFrom adds other's per-position sums.
func (p *PerBaseQuality) MergeFrom(other Module) error {
	src, err := checkMerge(p, other)
	if err != nil {
		return err
	}

	sums, counts, lowest := src.snapshot()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.sums = addInto(p.sums, sums)
	p.counts = addInto(p.counts, counts)
	p.lowest = min(p.lowest, lowest)

	return nil
}

// Render returns the mean Phred score per position.
func (p *PerBaseQuality) Render() Result {
	sums, counts, lowest := p.snapshot()
	offset := float64(qualityOffset(lowest))

	rows := make([][]string, 0, len(sums))
	means := make([]float64, 0, len(sums))

	for i := range sums {
		mean := 0.0
		if counts[i] > 0 {
			mean = float64(sums[i])/float64(counts[i]) - offset
		}

		means = append(means, mean)
		rows = append(rows, []string{strconv.Itoa(i + 1), strconv.FormatFloat(mean, 'f', 2, 64)})
	}

	return Result{
		Kind:    KindPerBaseQuality,
		Name:    p.Name(),
		Status:  StatusPass,
		Columns: []string{"Base", "Mean"},
		Rows:    rows,
		Values:  map[string]any{"mean": means, "encoding": encodingName(lowest)},
	}
}

// PerSequenceQuality is a histogram of per-read mean quality.
type PerSequenceQuality struct {
	mu     sync.Mutex
	counts map[int]int64
	lowest byte
}

// NewPerSequenceQuality creates an empty PerSequenceQuality module.
func NewPerSequenceQuality() *PerSequenceQuality {
	return &PerSequenceQuality{counts: make(map[int]int64), lowest: noQualitySeen}
}

// Kind returns KindPerSequenceQuality.
func (p *PerSequenceQuality) Kind() Kind { return KindPerSequenceQuality }

// Name returns the display name.
func (p *PerSequenceQuality) Name() string { return "Per sequence quality scores" }

// Description returns a human-readable description.
func (p *PerSequenceQuality) Description() string {
	return "Shows the distribution of average quality scores for whole sequences"
}

// IgnoresFiltered is true.
func (p *PerSequenceQuality) IgnoresFiltered() bool { return true }

// Update adds the read's mean quality code to the histogram. Reads without qualities are skipped.
func (p *PerSequenceQuality) Update(rec *sequence.Record) {
	if len(rec.Quality) == 0 {
		return
	}

	var sum int

	for _, q := range rec.Quality {
		sum += int(q)

		if q < p.lowest {
			p.lowest = q
		}
	}

	p.counts[sum/len(rec.Quality)]++
}

// Reset clears the histogram.
func (p *PerSequenceQuality) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.counts, p.lowest = make(map[int]int64), noQualitySeen
}

func (p *PerSequenceQuality) snapshot() (map[int]int64, byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return cloneCounts(p.counts), p.lowest
}

// MergeFrom adds other's histogram.
func (p *PerSequenceQuality) MergeFrom(other Module) error {
	src, err := checkMerge(p, other)
	if err != nil {
		return err
	}

	counts, lowest := src.snapshot()

	p.mu.Lock()
	defer p.mu.Unlock()

	for q, n := range counts {
		p.counts[q] += n
	}

	p.lowest = min(p.lowest, lowest)

	return nil
}

// Render returns the histogram keyed by Phred score.
func (p *PerSequenceQuality) Render() Result {
	counts, lowest := p.snapshot()
	offset := qualityOffset(lowest)

	scores := make(map[string]int64, len(counts))
	rows := make([][]string, 0, len(counts))

	for _, code := range sortedKeys(counts) {
		score := strconv.Itoa(code - offset)
		scores[score] = counts[code]
		rows = append(rows, []string{score, strconv.FormatInt(counts[code], 10)})
	}

	return Result{
		Kind:    KindPerSequenceQuality,
		Name:    p.Name(),
		Status:  StatusPass,
		Columns: []string{"Quality", "Count"},
		Rows:    rows,
		Values:  map[string]any{"counts": scores},
	}
}
