package batch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Sumatoshi-tech/seqstat/pkg/sequence"
)

const aggregatePrefix = "AggregatedResults_"

// Target is where the aggregate report is written.
type Target struct {
	Name string
	Dir  string
}

// Path returns the aggregate report path: <Dir>/<Name> plus the report suffix.
func (t Target) Path() string {
	return filepath.Join(t.Dir, t.Name+sequence.ReportSuffix)
}

// AggregateTarget names the aggregate report for a batch. An explicit name or directory is used
// verbatim; blank values count as absent. The default directory is the parent of the first file
// and the default name is AggregatedResults_<first>_to_<last> over the file base names.
func AggregateTarget(files []string, name, dir string) (Target, error) {
	if len(files) == 0 {
		return Target{}, fmt.Errorf("aggregate target: %w", ErrNoFiles)
	}

	if strings.TrimSpace(dir) == "" {
		dir = filepath.Dir(files[0])
	}

	if strings.TrimSpace(name) == "" {
		name = aggregatePrefix + filepath.Base(files[0]) + "_to_" + filepath.Base(files[len(files)-1])
	}

	return Target{Name: name, Dir: dir}, nil
}
