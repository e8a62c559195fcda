package sequence

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// sniffBytes is how much decoded input is inspected to detect colorspace FASTQ.
const sniffBytes = 8192

// Colorspace FASTQ parse errors.
var (
	errCSHeader  = errors.New("colorspace fastq: header line must start with '@'")
	errCSPlus    = errors.New("colorspace fastq: separator line must start with '+'")
	errCSQuality = errors.New("colorspace fastq: quality length must match the color calls")
	errCSTrunc   = errors.New("colorspace fastq: truncated record")
)

// isColorspaceFastq reports whether head starts with a FASTQ record whose sequence line
// is a primer base followed by color calls.
func isColorspaceFastq(head []byte) bool {
	if len(head) == 0 || head[0] != '@' {
		return false
	}

	_, rest, ok := bytes.Cut(head, []byte{'\n'})
	if !ok {
		return false
	}

	line, _, _ := bytes.Cut(rest, []byte{'\n'})

	return isColorspace(bytes.TrimRight(line, "\r"))
}

// csFastqReader parses four-line colorspace FASTQ. SOLiD files carry one quality code
// per color, so the primer has none; some converters add a placeholder code for it.
type csFastqReader struct {
	r *bufio.Reader
}

func (c *csFastqReader) line() ([]byte, error) {
	raw, err := c.r.ReadBytes('\n')
	if len(raw) == 0 && err != nil {
		return nil, err //nolint:wrapcheck // io.EOF is a sentinel for the caller.
	}

	return bytes.TrimRight(raw, "\r\n"), nil
}

// read returns the next record, or io.EOF at a clean end of input.
func (c *csFastqReader) read(opts OpenOptions) (*Record, error) {
	header, err := c.line()
	for err == nil && len(header) == 0 {
		header, err = c.line()
	}

	if err != nil {
		return nil, err
	}

	if header[0] != '@' {
		return nil, errCSHeader
	}

	fields := make([][]byte, 0, 3)

	for range 3 {
		next, lineErr := c.line()
		if errors.Is(lineErr, io.EOF) {
			return nil, errCSTrunc
		}

		if lineErr != nil {
			return nil, fmt.Errorf("read colorspace fastq: %w", lineErr)
		}

		fields = append(fields, next)
	}

	colors, plus, qual := fields[0], fields[1], fields[2]

	if len(plus) == 0 || plus[0] != '+' {
		return nil, errCSPlus
	}

	calls := len(colors) - 1

	switch len(qual) {
	case calls:
	case calls + 1:
		qual = qual[1:]
	default:
		return nil, fmt.Errorf("%w: %d colors, %d quality codes", errCSQuality, calls, len(qual))
	}

	name := header[1:]
	id, _, _ := bytes.Cut(name, []byte{' '})

	return &Record{
		ID:         bytes.Clone(id),
		Bases:      DecodeColorspace(colors),
		Quality:    bytes.Clone(qual),
		Colorspace: bytes.Clone(colors),
		Filtered:   opts.Casava && bytes.Contains(name, casavaFilteredMarker),
	}, nil
}
