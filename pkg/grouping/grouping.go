// Package grouping partitions input files into groups analysed as one logical source.
package grouping

import (
	"log/slog"
	"path/filepath"
	"regexp"
)

// Group is an ordered, non-empty list of files read as one source.
type Group struct {
	Files []string
}

// First returns the first file of the group.
func (g Group) First() string { return g.Files[0] }

// Last returns the last file of the group.
func (g Group) Last() string { return g.Files[len(g.Files)-1] }

// Name returns the base name of the first file.
func (g Group) Name() string { return filepath.Base(g.First()) }

// Grouper partitions a flat file list into ordered groups.
type Grouper interface {
	Group(files []string) []Group
}

// Singletons puts every file in its own group, keeping input order.
type Singletons struct{}

// Group implements Grouper.
func (Singletons) Group(files []string) []Group {
	groups := make([]Group, 0, len(files))
	for _, f := range files {
		groups = append(groups, Group{Files: []string{f}})
	}

	return groups
}

// casavaChunk matches the chunk suffix Casava appends to split output files.
var casavaChunk = regexp.MustCompile(`^(.+)_\d{3}\.(?:fastq|fq)(?:\.gz)?$`)

// Casava groups the chunked files Casava writes for one sample/lane/read
// (S1_L001_R1_001.fastq.gz, S1_L001_R1_002.fastq.gz, ...) under their shared basename.
// Groups are ordered by first appearance; files within a group keep input order.
// Files that do not follow the naming scheme are kept as singleton groups.
type Casava struct {
	Logger *slog.Logger
}

// Group implements Grouper.
func (c Casava) Group(files []string) []Group {
	groups := make([]Group, 0, len(files))
	index := make(map[string]int)

	for _, f := range files {
		base, ok := CasavaBasename(f)
		if !ok {
			c.logger().Warn("file name does not follow the casava naming scheme, analysing on its own", "file", f)

			groups = append(groups, Group{Files: []string{f}})

			continue
		}

		key := filepath.Join(filepath.Dir(f), base)
		if i, seen := index[key]; seen {
			groups[i].Files = append(groups[i].Files, f)

			continue
		}

		index[key] = len(groups)
		groups = append(groups, Group{Files: []string{f}})
	}

	return groups
}

func (c Casava) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}

	return slog.Default()
}

// CasavaBasename strips the chunk number and extension from a Casava file name.
func CasavaBasename(path string) (string, bool) {
	m := casavaChunk.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return "", false
	}

	return m[1], true
}
