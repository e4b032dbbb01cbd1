package build

import (
	"context"

	"github.com/dnys1/sqlite3build/internal/compile"
	"github.com/dnys1/sqlite3build/internal/output"
)

// mockCompiler records the spec it was invoked with.
type mockCompiler struct {
	root  string
	spec  compile.Spec
	calls int
	err   error
}

func (m *mockCompiler) Compile(_ context.Context, packageRoot string, spec compile.Spec) (output.Asset, error) {
	m.root = packageRoot
	m.spec = spec
	m.calls++
	if m.err != nil {
		return output.Asset{}, m.err
	}
	return output.Asset{
		ID:       spec.AssetID,
		Name:     spec.Name,
		File:     "/tmp/libsqlite3.so",
		OS:       "linux",
		LinkMode: "dynamic",
	}, nil
}
