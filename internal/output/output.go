// Package output accumulates and persists the metadata produced by one
// build: the files whose change must invalidate it and the asset the
// compile step produced.
package output

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// File is the name of the persisted build output inside the output
// directory.
const File = "build_output.json"

// Asset describes one library produced by the compile step.
type Asset struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	File     string `json:"file"`
	OS       string `json:"os"`
	LinkMode string `json:"link_mode"`
}

// Output collects the result of one build. It is created empty when
// orchestration starts, appended to while the build runs, and written
// exactly once at the end. It is not safe for concurrent use; each
// in-flight build owns its own Output.
type Output struct {
	Dependencies []string `json:"dependencies"`
	Assets       []Asset  `json:"assets"`

	seen map[string]bool
}

// New returns an empty Output.
func New() *Output {
	return &Output{seen: make(map[string]bool)}
}

// AddDependency records a file whose change invalidates the build.
// Duplicates are ignored; first-insertion order is kept.
func (o *Output) AddDependency(path string) {
	if o.seen == nil {
		o.seen = make(map[string]bool)
	}
	if o.seen[path] {
		return
	}
	o.seen[path] = true
	o.Dependencies = append(o.Dependencies, path)
}

// AddAsset records a produced asset.
func (o *Output) AddAsset(a Asset) {
	o.Assets = append(o.Assets, a)
}

// Write persists the output as JSON into dir.
func (o *Output) Write(dir string) error {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, File), data, 0o644)
}
