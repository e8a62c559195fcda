package sequence

import (
	"path/filepath"
	"strings"
)

// ReportSuffix is appended to the stripped input name to form a report path.
const ReportSuffix = "_fastqc.zip"

// knownExtensions are removed from input names, outermost first, in any combination.
var knownExtensions = []string{
	".gz", ".bz2", ".xz", ".zst", ".lz4",
	".txt", ".fastq", ".fq", ".fasta", ".fa", ".sam", ".bam",
}

// StripKnownExtensions removes every trailing known extension from name.
// "reads.fastq.gz" and "reads.txt.bz2" both become "reads".
func StripKnownExtensions(name string) string {
	for {
		stripped := false

		for _, ext := range knownExtensions {
			if len(name) > len(ext) && strings.HasSuffix(strings.ToLower(name), ext) {
				name = name[:len(name)-len(ext)]
				stripped = true
			}
		}

		if !stripped {
			return name
		}
	}
}

// ReportPath returns the report location for an input file. When outDir is empty the
// report is placed next to the input.
func ReportPath(input, outDir string) string {
	dir := outDir
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Dir(input)
	}

	return filepath.Join(dir, StripKnownExtensions(filepath.Base(input))+ReportSuffix)
}
