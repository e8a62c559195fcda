package sequence

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/xopen"
)

// sampleRecords is the number of records read before the total record count is estimated.
const sampleRecords = 1000

const percentScale = 100

var casavaFilteredMarker = []byte(":Y:")

// FileSource streams FASTA/FASTQ records from one or more files, in order.
// Compression is detected from magic bytes (gzip, bzip2, xz, zstd); ".lz4" files are
// decoded by name.
type FileSource struct {
	files []string
	opts  OpenOptions
	name  string

	totalBytes    int64
	consumedBytes int64
	records       int64
	estimated     int64

	idx     int
	file    *os.File
	counter *countingReader
	decoded *xopen.Reader
	reader  *fastx.Reader
	cs      *csFastqReader
}

// Open is the default Opener. It checks that every file can be opened before returning.
func Open(files []string, opts OpenOptions) (Source, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	var total int64

	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		total += info.Size()
	}

	src := &FileSource{
		files:      append([]string(nil), files...),
		opts:       opts,
		name:       filepath.Base(files[0]),
		totalBytes: total,
	}

	openErr := src.openCurrent()
	if openErr != nil {
		return nil, openErr
	}

	return src, nil
}

// Name returns the base name of the first backing file.
func (s *FileSource) Name() string { return s.name }

// Files returns the backing files.
func (s *FileSource) Files() []string { return s.files }

// Next returns the next record across all backing files.
func (s *FileSource) Next() (*Record, error) {
	for {
		if !s.isOpen() {
			if s.idx >= len(s.files) {
				return nil, io.EOF
			}

			err := s.openCurrent()
			if err != nil {
				return nil, err
			}
		}

		rec, err := s.readRecord()
		if errors.Is(err, io.EOF) {
			s.closeCurrent()
			s.idx++

			continue
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrDecode, s.files[s.idx], err)
		}

		s.records++
		if s.records == sampleRecords {
			s.estimate()
		}

		return rec, nil
	}
}

func (s *FileSource) isOpen() bool {
	return s.reader != nil || s.cs != nil
}

func (s *FileSource) readRecord() (*Record, error) {
	if s.cs != nil {
		return s.cs.read(s.opts)
	}

	raw, err := s.reader.Read()
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped with the file name by Next.
	}

	return s.convert(raw), nil
}

// PercentComplete estimates progress. Before the sampling window closes it is the share
// of bytes read; afterwards it is records read against the estimated total, which
// overshoots 100 when the estimate was low.
func (s *FileSource) PercentComplete() int {
	if s.totalBytes == 0 {
		return 0
	}

	if s.estimated > 0 {
		return int(s.records * percentScale / s.estimated)
	}

	return int(s.bytesRead() * percentScale / s.totalBytes)
}

// Close releases the currently open file, if any.
func (s *FileSource) Close() error {
	s.closeCurrent()
	s.idx = len(s.files)

	return nil
}

func (s *FileSource) estimate() {
	read := s.bytesRead()
	if read == 0 {
		return
	}

	perRecord := read / s.records
	if perRecord == 0 {
		perRecord = 1
	}

	s.estimated = max(s.totalBytes/perRecord, 1)
}

func (s *FileSource) bytesRead() int64 {
	read := s.consumedBytes
	if s.counter != nil {
		read += s.counter.n
	}

	return read
}

func (s *FileSource) openCurrent() error {
	if s.isOpen() {
		return nil
	}

	path := s.files[s.idx]

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	counter := &countingReader{r: file}

	var stream io.Reader = counter
	if strings.HasSuffix(strings.ToLower(path), ".lz4") {
		stream = lz4.NewReader(counter)
	}

	decoded, err := xopen.Buf(stream)
	if err != nil {
		file.Close()

		return fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}

	s.file = file
	s.counter = counter
	s.decoded = decoded

	head, _ := decoded.Peek(sniffBytes)
	if isColorspaceFastq(head) {
		s.cs = &csFastqReader{r: decoded.Reader}

		return nil
	}

	reader, err := fastx.NewReaderFromIO(seq.Unlimit, decoded, fastx.DefaultIDRegexp)
	if err != nil {
		decoded.Close()
		file.Close()
		s.file, s.counter, s.decoded = nil, nil, nil

		return fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}

	s.reader = reader

	return nil
}

func (s *FileSource) closeCurrent() {
	if !s.isOpen() {
		return
	}

	if s.reader != nil {
		s.reader.Close()
	}

	s.decoded.Close()
	s.file.Close()

	s.consumedBytes += s.counter.n
	s.reader = nil
	s.cs = nil
	s.decoded = nil
	s.counter = nil
	s.file = nil
}

// convert copies a parsed record: the fastx reader reuses its buffers between reads.
// Base calls are upper-cased so soft-masked input counts like any other.
func (s *FileSource) convert(raw *fastx.Record) *Record {
	rec := &Record{
		ID:      bytes.Clone(raw.ID),
		Quality: bytes.Clone(raw.Seq.Qual),
	}

	bases := raw.Seq.Seq
	if isColorspace(bases) {
		rec.Colorspace = bytes.Clone(bases)
		rec.Bases = DecodeColorspace(bases)
	} else {
		rec.Bases = bytes.ToUpper(bases)
	}

	if s.opts.Casava && bytes.Contains(raw.Name, casavaFilteredMarker) {
		rec.Filtered = true
	}

	return rec
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)

	return n, err //nolint:wrapcheck // io.Reader contract requires the raw error.
}
