// Package sequence provides sequence records and the sources that stream them.
package sequence

import (
	"errors"
	"io"
)

// Sentinel errors for sequence sources.
var (
	// ErrDecode is returned when a record cannot be parsed from its backing file.
	ErrDecode = errors.New("sequence decode failed")
	// ErrNoFiles is returned when a source is requested for an empty file list.
	ErrNoFiles = errors.New("no input files")
)

// Record is a single sequencing read. Records are not modified after a Source produces them.
type Record struct {
	// ID is the read identifier without the leading '@' or '>'.
	ID []byte

	// Bases holds the base calls. For colorspace reads these are the decoded bases.
	Bases []byte

	// Quality holds one quality code per base. Empty for FASTA input.
	Quality []byte

	// Colorspace holds the raw color calls when the read was colorspace encoded.
	Colorspace []byte

	// Filtered marks a read excluded from statistics by the instrument's filter.
	Filtered bool
}

// Len returns the number of bases in the read.
func (r *Record) Len() int {
	return len(r.Bases)
}

// IsColorspace reports whether the read was decoded from colorspace.
func (r *Record) IsColorspace() bool {
	return r.Colorspace != nil
}

// Source is a single-pass, non-restartable stream of records from one logical input.
type Source interface {
	// Next returns the next record, or io.EOF once the source is exhausted.
	Next() (*Record, error)

	// Name is the display name of the source.
	Name() string

	// Files lists the backing input files in read order.
	Files() []string

	// PercentComplete is an estimate of progress. It is allowed to exceed 100.
	PercentComplete() int

	// Close releases the backing files.
	Close() error
}

// OpenOptions control how input files are decoded.
type OpenOptions struct {
	// Casava marks reads whose header carries the ":Y:" filter flag as filtered.
	Casava bool
}

// Opener builds a Source over an ordered list of files.
type Opener func(files []string, opts OpenOptions) (Source, error)

// Drain reads the remaining records from src, calling fn for each one.
// It returns nil when the source is exhausted.
func Drain(src Source, fn func(*Record)) error {
	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		fn(rec)
	}
}
