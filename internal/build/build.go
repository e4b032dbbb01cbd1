// Package build sequences one sqlite3 build: source materialization,
// compile spec construction, the compiler invocation and output
// persistence.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dnys1/sqlite3build/internal/compile"
	"github.com/dnys1/sqlite3build/internal/config"
	"github.com/dnys1/sqlite3build/internal/output"
	"github.com/dnys1/sqlite3build/internal/source"
	"github.com/dnys1/sqlite3build/internal/toolchain"
)

// LibraryName is the name the produced library is requested under.
const LibraryName = "sqlite3"

// AssetID identifies the produced asset to the embedding build system.
const AssetID = "package:sqlite3/sqlite3.c"

// Builder runs builds. The stages of one build execute strictly
// sequentially; the first failing stage aborts the build and its error
// propagates unchanged to the caller. A Builder assumes at most one
// build runs per output directory at a time and takes no locks.
type Builder struct {
	cfg      *config.Config
	compiler toolchain.Compiler
	log      *slog.Logger
}

// NewBuilder returns a Builder for one configuration. The logger is an
// explicit dependency of the build rather than process-global state.
func NewBuilder(cfg *config.Config, compiler toolchain.Compiler, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{cfg: cfg, compiler: compiler, log: log}
}

// Run executes one build and returns the persisted output.
func (b *Builder) Run(ctx context.Context) (*output.Output, error) {
	cfg := b.cfg

	// Configuration errors surface before any file I/O.
	opts, err := source.OptionsFrom(cfg)
	if err != nil {
		return nil, err
	}
	b.log.Debug("resolved source strategy", "strategy", opts.Strategy)

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	out := output.New()
	src := source.For(opts, cfg.PackageRoot)
	path, err := source.Materializer{OutDir: cfg.OutDir}.Materialize(src, out)
	if err != nil {
		return nil, err
	}
	b.log.Info("materialized source", "strategy", opts.Strategy, "path", path)

	// The compiler facility resolves sources relative to the package
	// root, not the output directory.
	rel, err := filepath.Rel(cfg.PackageRoot, path)
	if err != nil {
		return nil, err
	}
	defines, flags := compile.Matrix(compile.Context{
		OS:       cfg.TargetOS,
		Mode:     cfg.Mode,
		DryRun:   cfg.DryRun,
		Strategy: opts.Strategy,
	})
	spec := compile.Spec{
		Name:    LibraryName,
		AssetID: AssetID,
		Sources: []string{rel},
		Defines: defines,
		Flags:   flags,
	}
	b.log.Debug("built compile spec", "defines", len(spec.Defines), "flags", spec.Flags)

	asset, err := b.compiler.Compile(ctx, cfg.PackageRoot, spec)
	if err != nil {
		return nil, err
	}
	b.log.Info("compiled", "asset", asset.File, "dry_run", cfg.DryRun)

	out.AddAsset(asset)
	if err := out.Write(cfg.OutDir); err != nil {
		return nil, fmt.Errorf("failed to write build output: %w", err)
	}
	return out, nil
}
