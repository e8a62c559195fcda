package modules

import (
	"strconv"
	"sync"

	"github.com/Sumatoshi-tech/seqstat/pkg/sequence"
)

// File type labels reported by BasicStats.
const (
	FileTypeConventional = "Conventional base calls"
	FileTypeColorspace   = "Colorspace converted to bases"
)

const percent = 100

// SourceAware is implemented by modules that report the name of the source they read.
type SourceAware interface {
	BindSource(name string)
}

// BasicStatsSnapshot is a copy of the BasicStats counters.
type BasicStatsSnapshot struct {
	Name          string
	FileType      string
	Processed     int64
	Filtered      int64
	MinLength     int
	MaxLength     int
	G, A, T, C, N int64
	LowestQuality byte
}

// GCPercent is floor(100*(G+C)/(A+T+G+C)), or 0 when no A/T/G/C base was seen.
func (s BasicStatsSnapshot) GCPercent() int64 {
	total := s.A + s.T + s.G + s.C
	if total == 0 {
		return 0
	}

	return (s.G + s.C) * percent / total
}

// LengthRange renders the length as "n" when all reads share one length, else "min-max".
func (s BasicStatsSnapshot) LengthRange() string {
	if s.MinLength == s.MaxLength {
		return strconv.Itoa(s.MinLength)
	}

	return strconv.Itoa(s.MinLength) + "-" + strconv.Itoa(s.MaxLength)
}

// BasicStats counts reads, filtered reads, length range, base composition and the lowest
// quality code, from which the quality encoding is inferred.
type BasicStats struct {
	mu    sync.Mutex
	state BasicStatsSnapshot
}

// NewBasicStats creates a BasicStats module. An empty name is filled in from the source.
func NewBasicStats(name string) *BasicStats {
	b := &BasicStats{}
	b.Reset()
	b.state.Name = name

	return b
}

// Kind returns KindBasicStats.
func (b *BasicStats) Kind() Kind { return KindBasicStats }

// Name returns the display name.
func (b *BasicStats) Name() string { return "Basic Statistics" }

// Description returns a human-readable description.
func (b *BasicStats) Description() string {
	return "Calculates some basic statistics about the file"
}

// IgnoresFiltered is false: filtered reads are counted.
func (b *BasicStats) IgnoresFiltered() bool { return false }

// BindSource records the source name unless one was set at construction.
func (b *BasicStats) BindSource(name string) {
	if b.state.Name == "" {
		b.state.Name = name
	}
}

// Update folds one read into the counters.
func (b *BasicStats) Update(rec *sequence.Record) {
	st := &b.state

	if rec.Filtered {
		st.Filtered++

		return
	}

	st.Processed++

	length := rec.Len()

	if st.Processed == 1 {
		st.MinLength = length
		st.MaxLength = length

		if st.FileType == "" {
			st.FileType = FileTypeConventional
			if rec.IsColorspace() {
				st.FileType = FileTypeColorspace
			}
		}
	} else {
		st.MinLength = min(st.MinLength, length)
		st.MaxLength = max(st.MaxLength, length)
	}

	for _, base := range rec.Bases {
		switch base {
		case 'G':
			st.G++
		case 'A':
			st.A++
		case 'T':
			st.T++
		case 'C':
			st.C++
		case 'N':
			st.N++
		}
	}

	for _, q := range rec.Quality {
		if q < st.LowestQuality {
			st.LowestQuality = q
		}
	}
}

// Reset clears every counter but keeps the bound name.
func (b *BasicStats) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = BasicStatsSnapshot{Name: b.state.Name, LowestQuality: noQualitySeen}
}

// Snapshot returns a copy of the current counters.
func (b *BasicStats) Snapshot() BasicStatsSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// MergeFrom adds other's counters to this module.
func (b *BasicStats) MergeFrom(other Module) error {
	src, err := checkMerge(b, other)
	if err != nil {
		return err
	}

	in := src.Snapshot()

	b.mu.Lock()
	defer b.mu.Unlock()

	st := &b.state

	// A side without processed reads carries no length information.
	if in.Processed > 0 {
		if st.Processed == 0 {
			st.MinLength = in.MinLength
			st.MaxLength = in.MaxLength
		} else {
			st.MinLength = min(st.MinLength, in.MinLength)
			st.MaxLength = max(st.MaxLength, in.MaxLength)
		}
	}

	if st.FileType == "" {
		st.FileType = in.FileType
	}

	st.Processed += in.Processed
	st.Filtered += in.Filtered
	st.G += in.G
	st.A += in.A
	st.T += in.T
	st.C += in.C
	st.N += in.N
	st.LowestQuality = min(st.LowestQuality, in.LowestQuality)

	return nil
}

// Render returns the measure/value table.
func (b *BasicStats) Render() Result {
	st := b.Snapshot()
	encoding := encodingName(st.LowestQuality)

	return Result{
		Kind:    KindBasicStats,
		Name:    b.Name(),
		Status:  StatusPass,
		Columns: []string{"Measure", "Value"},
		Rows: [][]string{
			{"Filename", st.Name},
			{"File type", st.FileType},
			{"Encoding", encoding},
			{"Total Sequences", strconv.FormatInt(st.Processed, 10)},
			{"Filtered Sequences", strconv.FormatInt(st.Filtered, 10)},
			{"Sequence length", st.LengthRange()},
			{"%GC", strconv.FormatInt(st.GCPercent(), 10)},
		},
		Values: map[string]any{
			"filename":           st.Name,
			"file_type":          st.FileType,
			"encoding":           encoding,
			"total_sequences":    st.Processed,
			"filtered_sequences": st.Filtered,
			"min_length":         st.MinLength,
			"max_length":         st.MaxLength,
			"sequence_length":    st.LengthRange(),
			"gc_percent":         st.GCPercent(),
			"base_counts": map[string]int64{
				"G": st.G, "A": st.A, "T": st.T, "C": st.C, "N": st.N,
			},
		},
	}
}
