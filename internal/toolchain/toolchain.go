// Package toolchain turns a compile spec into a single C compiler
// invocation producing a shared library.
package toolchain

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/dnys1/sqlite3build/internal/compile"
	"github.com/dnys1/sqlite3build/internal/config"
	"github.com/dnys1/sqlite3build/internal/output"
)

// Compiler consumes a compile spec and produces an asset descriptor.
type Compiler interface {
	Compile(ctx context.Context, packageRoot string, spec compile.Spec) (output.Asset, error)
}

// CC invokes a cc-compatible driver once to build a shared library
// from the spec's sources. Source paths are resolved relative to the
// package root, not the output directory.
type CC struct {
	Bin    string // compiler driver, default "cc"
	OutDir string
	OS     config.OS
	DryRun bool
	Stdout io.Writer
	Stderr io.Writer
}

var _ Compiler = (*CC)(nil)

// NewCC returns a CC writing its artifact into outDir.
func NewCC(outDir string, targetOS config.OS, dryRun bool) *CC {
	return &CC{Bin: "cc", OutDir: outDir, OS: targetOS, DryRun: dryRun}
}

// Compile runs the compiler with the spec's defines, flags and sources.
// On a dry run the invocation is skipped and only the descriptor of the
// asset that a real build would produce is returned.
func (c *CC) Compile(ctx context.Context, packageRoot string, spec compile.Spec) (output.Asset, error) {
	file, err := filepath.Abs(filepath.Join(c.OutDir, libName(spec.Name, c.OS)))
	if err != nil {
		return output.Asset{}, err
	}
	asset := output.Asset{
		ID:       spec.AssetID,
		Name:     spec.Name,
		File:     file,
		OS:       string(c.OS),
		LinkMode: "dynamic",
	}
	if c.DryRun {
		return asset, nil
	}

	if err := c.run(ctx, packageRoot, c.args(spec, file)); err != nil {
		return output.Asset{}, fmt.Errorf("failed to compile %s: %w", spec.Name, err)
	}
	return asset, nil
}

func (c *CC) args(spec compile.Spec, outFile string) []string {
	args := []string{"-shared", "-fPIC"}
	for _, d := range spec.Defines {
		args = append(args, d.Arg())
	}
	args = append(args, spec.Flags...)
	args = append(args, spec.Sources...)
	args = append(args, "-o", outFile)
	return args
}

func (c *CC) run(ctx context.Context, dir string, args []string) error {
	bin := c.Bin
	if bin == "" {
		bin = "cc"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return cmd.Run()
}

// libName returns the platform's shared library file name.
func libName(name string, targetOS config.OS) string {
	switch targetOS {
	case config.Windows:
		return name + ".dll"
	case config.MacOS, config.IOS:
		return "lib" + name + ".dylib"
	}
	return "lib" + name + ".so"
}
