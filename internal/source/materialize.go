package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dnys1/sqlite3build/internal/output"
)

// IntermediateFile is the name of the materialized source inside the
// output directory.
const IntermediateFile = "sqlite3.c"

// Materializer drains a Source into the intermediate file inside the
// build's output directory.
type Materializer struct {
	OutDir string
}

// Materialize writes the full source text to OutDir/sqlite3.c and
// returns the file's path. The bytes are written to a temporary file
// which is renamed into place once fully flushed, so a failed build
// never leaves a partial file that a retry could mistake for a
// complete one. The source's dependency, if any, is recorded in out.
func (m Materializer) Materialize(src Source, out *output.Output) (string, error) {
	r, err := src.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()

	path := filepath.Join(m.OutDir, IntermediateFile)
	tmp, err := os.CreateTemp(m.OutDir, IntermediateFile+".tmp*")
	if err != nil {
		return "", fmt.Errorf("failed to create intermediate file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}

	if dep := src.Dependency(); dep != "" {
		out.AddDependency(dep)
	}
	return path, nil
}
