// Package source resolves how the sqlite3 source text is obtained and
// materializes it into the intermediate file consumed by the compile
// step.
package source

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dnys1/sqlite3build/internal/config"
)

// Strategy names how the source bytes are obtained.
type Strategy string

const (
	// Vendored decompresses the amalgamation bundled with the package.
	Vendored Strategy = "vendored"
	// URL fetches the amalgamation from a configured location.
	URL Strategy = "url"
	// System compiles a stub that links against the system-provided
	// sqlite3 library.
	System Strategy = "system"
)

// VendoredArchive is the package-relative path of the bundled,
// gzip-compressed amalgamation.
const VendoredArchive = "assets/sqlite3.c.gz"

// systemStub is the whole source text for the System strategy. It makes
// the produced binary declare a dynamic dependency on the platform's
// sqlite3 instead of embedding one.
const systemStub = "#include <sqlite3.h>\n"

var strategies = []Strategy{Vendored, URL, System}

var (
	// ErrUnknownStrategy reports a sqlite3.source value outside the
	// closed strategy set.
	ErrUnknownStrategy = errors.New("unknown sqlite3.source")
	// ErrMissingURL reports a url strategy without a sqlite3.url option.
	ErrMissingURL = errors.New("sqlite3.source is \"url\" but no sqlite3.url option was given")
	// ErrNotImplemented reports selection of the url strategy, which is
	// currently unsupported.
	ErrNotImplemented = errors.New("sqlite3.source \"url\" is not implemented")
)

// ParseStrategy resolves a configured strategy name. An empty name
// resolves to the Vendored default; a name outside the closed set is a
// configuration error, never silently defaulted.
func ParseStrategy(name string) (Strategy, error) {
	if name == "" {
		return Vendored, nil
	}
	for _, s := range strategies {
		if name == string(s) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q (must be one of %s)", ErrUnknownStrategy, name, strategyNames())
}

func strategyNames() string {
	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// Options combines a resolved strategy with its strategy-specific
// parameters. URL is non-nil iff Strategy is URL.
type Options struct {
	Strategy Strategy
	URL      *url.URL
}

// OptionsFrom resolves the source options of a build configuration.
// For strategies other than URL the sqlite3.url option is ignored even
// if present.
func OptionsFrom(cfg *config.Config) (Options, error) {
	strategy, err := ParseStrategy(cfg.Option(config.OptionSource))
	if err != nil {
		return Options{}, err
	}
	opts := Options{Strategy: strategy}
	if strategy == URL {
		raw := cfg.Option(config.OptionURL)
		if raw == "" {
			return Options{}, ErrMissingURL
		}
		u, err := url.Parse(raw)
		if err != nil {
			return Options{}, fmt.Errorf("invalid sqlite3.url: %w", err)
		}
		opts.URL = u
	}
	return opts, nil
}

// A Source produces the bytes of a compilable sqlite3 translation unit.
type Source interface {
	// Open returns a reader over the source text. The caller closes it.
	Open() (io.ReadCloser, error)
	// Dependency returns the path of a file whose change invalidates
	// the build, or "" if the source has no external dependency.
	Dependency() string
}

// For maps resolved options to the Source implementing them.
func For(opts Options, packageRoot string) Source {
	switch opts.Strategy {
	case URL:
		return urlSource{url: opts.URL}
	case System:
		return systemSource{}
	default:
		return vendoredSource{archive: filepath.Join(packageRoot, filepath.FromSlash(VendoredArchive))}
	}
}

// vendoredSource lazily decompresses the bundled amalgamation.
type vendoredSource struct {
	archive string
}

func (s vendoredSource) Open() (io.ReadCloser, error) {
	f, err := os.Open(s.archive)
	if err != nil {
		return nil, fmt.Errorf("failed to open vendored archive: %w", err)
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read vendored archive %s: %w", s.archive, err)
	}
	return &gzipReadCloser{zr: zr, f: f}, nil
}

func (s vendoredSource) Dependency() string { return s.archive }

type gzipReadCloser struct {
	zr *gzip.Reader
	f  *os.File
}

func (r *gzipReadCloser) Read(p []byte) (int, error) { return r.zr.Read(p) }

func (r *gzipReadCloser) Close() error {
	err := r.zr.Close()
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// urlSource is a placeholder: downloading the amalgamation is not
// supported yet, and selecting it must fail before any file is written.
type urlSource struct {
	url *url.URL
}

func (s urlSource) Open() (io.ReadCloser, error) {
	return nil, fmt.Errorf("%w (requested %s)", ErrNotImplemented, s.url)
}

func (s urlSource) Dependency() string { return "" }

// systemSource synthesizes a one-line include of the system header.
type systemSource struct{}

func (systemSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(systemStub)), nil
}

func (systemSource) Dependency() string { return "" }
