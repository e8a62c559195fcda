package modules

import (
	"errors"
	"fmt"
)

// ErrUnknownEncoding is returned when no Phred encoding matches the lowest quality code.
var ErrUnknownEncoding = errors.New("unknown quality encoding")

// noQualitySeen is the lowest-quality sentinel before any quality code has been read.
const noQualitySeen byte = 126

const (
	sangerOffset   = 33
	illuminaOffset = 64
)

// Encoding is a FASTQ quality encoding inferred from the lowest code seen.
type Encoding struct {
	Name   string
	Offset int
}

// PhredEncodingFor infers the quality encoding from the lowest quality code in a file.
func PhredEncodingFor(lowest byte) (Encoding, error) {
	switch {
	case lowest < sangerOffset:
		return Encoding{}, fmt.Errorf("%w: no encoding uses codes below 33 (lowest was %d)", ErrUnknownEncoding, lowest)
	case lowest < illuminaOffset:
		return Encoding{Name: "Sanger / Illumina 1.9", Offset: sangerOffset}, nil
	case lowest == illuminaOffset+1:
		return Encoding{Name: "Illumina 1.3", Offset: illuminaOffset}, nil
	case lowest <= noQualitySeen:
		return Encoding{Name: "Illumina 1.5", Offset: illuminaOffset}, nil
	default:
		return Encoding{}, fmt.Errorf("%w: no encoding uses codes above 126 (lowest was %d)", ErrUnknownEncoding, lowest)
	}
}

// encodingName renders the encoding for a report, never failing.
func encodingName(lowest byte) string {
	enc, err := PhredEncodingFor(lowest)
	if err != nil {
		return "Unknown"
	}

	return enc.Name
}

// qualityOffset returns the offset to subtract from raw quality codes, defaulting to Sanger.
func qualityOffset(lowest byte) int {
	enc, err := PhredEncodingFor(lowest)
	if err != nil {
		return sangerOffset
	}

	return enc.Offset
}
