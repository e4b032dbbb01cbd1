package source

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dnys1/sqlite3build/internal/config"
	"github.com/dnys1/sqlite3build/internal/output"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Strategy
		wantErr bool
	}{
		{name: "absent defaults to vendored", in: "", want: Vendored},
		{name: "vendored", in: "vendored", want: Vendored},
		{name: "url", in: "url", want: URL},
		{name: "system", in: "system", want: System},
		{name: "unknown", in: "bogus", wantErr: true},
		{name: "case exact", in: "Vendored", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownStrategy) {
					t.Fatalf("ParseStrategy(%q) error = %v, want ErrUnknownStrategy", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStrategy(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseStrategy(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseStrategyErrorNamesValueAndAllowedSet(t *testing.T) {
	_, err := ParseStrategy("bogus")
	if err == nil {
		t.Fatal("ParseStrategy(\"bogus\") succeeded")
	}
	for _, want := range []string{"bogus", "vendored", "url", "system"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func cfgWithOptions(opts map[string]string) *config.Config {
	return &config.Config{
		TargetOS:    config.Linux,
		Mode:        config.Release,
		OutDir:      "/tmp/out",
		PackageRoot: "/tmp/pkg",
		Options:     opts,
	}
}

func TestOptionsFrom(t *testing.T) {
	t.Run("url requires sqlite3.url", func(t *testing.T) {
		_, err := OptionsFrom(cfgWithOptions(map[string]string{config.OptionSource: "url"}))
		if !errors.Is(err, ErrMissingURL) {
			t.Errorf("error = %v, want ErrMissingURL", err)
		}
	})

	t.Run("url parsed", func(t *testing.T) {
		opts, err := OptionsFrom(cfgWithOptions(map[string]string{
			config.OptionSource: "url",
			config.OptionURL:    "https://example.com/sqlite3.c",
		}))
		if err != nil {
			t.Fatalf("OptionsFrom: %v", err)
		}
		if opts.URL == nil || opts.URL.Host != "example.com" {
			t.Errorf("URL = %v, want host example.com", opts.URL)
		}
	})

	t.Run("unparsable url", func(t *testing.T) {
		_, err := OptionsFrom(cfgWithOptions(map[string]string{
			config.OptionSource: "url",
			config.OptionURL:    "://not-a-url",
		}))
		if err == nil {
			t.Error("OptionsFrom succeeded with unparsable url")
		}
	})

	t.Run("url ignored for other strategies", func(t *testing.T) {
		opts, err := OptionsFrom(cfgWithOptions(map[string]string{
			config.OptionSource: "system",
			config.OptionURL:    "://not-a-url",
		}))
		if err != nil {
			t.Fatalf("OptionsFrom: %v", err)
		}
		if opts.URL != nil {
			t.Errorf("URL = %v, want nil", opts.URL)
		}
	})
}

// writeArchive gzips content to the vendored archive path under root.
func writeArchive(t *testing.T, root string, content []byte) string {
	t.Helper()
	archive := filepath.Join(root, filepath.FromSlash(VendoredArchive))
	if err := os.MkdirAll(filepath.Dir(archive), 0o755); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(archive, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return archive
}

func TestMaterializeVendored(t *testing.T) {
	root := t.TempDir()
	outDir := t.TempDir()
	content := []byte("/* amalgamation */\nint sqlite3_dummy;\n")
	archive := writeArchive(t, root, content)

	out := output.New()
	src := For(Options{Strategy: Vendored}, root)
	path, err := Materializer{OutDir: outDir}.Materialize(src, out)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("materialized file = %q, want %q", got, content)
	}

	deps := out.Dependencies
	if len(deps) != 1 || deps[0] != archive {
		t.Errorf("Dependencies = %v, want exactly [%s]", deps, archive)
	}

	// A second materialization must not duplicate the dependency.
	if _, err := (Materializer{OutDir: outDir}).Materialize(For(Options{Strategy: Vendored}, root), out); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(out.Dependencies) != 1 {
		t.Errorf("Dependencies = %v, want archive recorded once", out.Dependencies)
	}
}

func TestMaterializeSystemStub(t *testing.T) {
	outDir := t.TempDir()
	out := output.New()
	path, err := Materializer{OutDir: outDir}.Materialize(For(Options{Strategy: System}, "/nonexistent"), out)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "#include <sqlite3.h>\n"; string(got) != want {
		t.Errorf("stub = %q, want %q", got, want)
	}
	if len(out.Dependencies) != 0 {
		t.Errorf("Dependencies = %v, want none", out.Dependencies)
	}
}

func TestMaterializeURLNotImplemented(t *testing.T) {
	outDir := t.TempDir()
	opts, err := OptionsFrom(cfgWithOptions(map[string]string{
		config.OptionSource: "url",
		config.OptionURL:    "https://example.com/sqlite3.c",
	}))
	if err != nil {
		t.Fatalf("OptionsFrom: %v", err)
	}

	_, err = Materializer{OutDir: outDir}.Materialize(For(opts, "/nonexistent"), output.New())
	if !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("error = %v, want ErrNotImplemented", err)
	}

	// The failure must surface before any file is written.
	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("output dir has %d entries, want none", len(entries))
	}
}

func TestMaterializeLeavesNoPartialFile(t *testing.T) {
	root := t.TempDir()
	outDir := t.TempDir()
	// Truncated gzip stream: decompression fails mid-copy.
	archive := filepath.Join(root, filepath.FromSlash(VendoredArchive))
	if err := os.MkdirAll(filepath.Dir(archive), 0o755); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(bytes.Repeat([]byte("sqlite"), 4096)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(archive, buf.Bytes()[:buf.Len()/2], 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Materializer{OutDir: outDir}.Materialize(For(Options{Strategy: Vendored}, root), output.New())
	if err == nil {
		t.Fatal("Materialize succeeded on truncated archive")
	}
	if _, err := os.Stat(filepath.Join(outDir, IntermediateFile)); !os.IsNotExist(err) {
		t.Errorf("intermediate file left behind after failure (stat err = %v)", err)
	}
}

func TestVendoredOpenRoundTrip(t *testing.T) {
	root := t.TempDir()
	content := []byte("int main() { return 0; }\n")
	writeArchive(t, root, content)

	src := For(Options{Strategy: Vendored}, root)
	r, err := src.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("decompressed = %q, want %q", got, content)
	}
}
