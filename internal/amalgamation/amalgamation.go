// Package amalgamation refreshes the vendored sqlite3 amalgamation:
// it downloads a release archive from sqlite.org, extracts the single
// sqlite3.c translation unit and recompresses it to the fixed bundled
// path under the package root.
package amalgamation

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/dnys1/sqlite3build/internal/source"
)

// minVersion is the oldest release the build hook can use: FTS5, which
// the define matrix always enables, shipped in 3.9.0.
const minVersion = "v3.9.0"

// ReleaseNumber converts a "3.x.y" version to the 7-digit release
// number sqlite.org names its downloads after (3.46.1 -> "3460100").
func ReleaseNumber(version string) (string, error) {
	v := "v" + version
	if !semver.IsValid(v) || semver.Canonical(v) != v || semver.Prerelease(v) != "" {
		return "", fmt.Errorf("invalid sqlite3 version: %q", version)
	}
	if semver.Compare(v, minVersion) < 0 {
		return "", fmt.Errorf("sqlite3 version %s is too old (need %s or newer)", version, strings.TrimPrefix(minVersion, "v"))
	}
	parts := strings.SplitN(version, ".", 3)
	minor, _ := strconv.Atoi(parts[1])
	patch, _ := strconv.Atoi(parts[2])
	return fmt.Sprintf("%s%02d%02d00", parts[0], minor, patch), nil
}

// DownloadURL returns the sqlite.org location of a release archive.
// sqlite.org shards downloads by release year.
func DownloadURL(version string, year int) (string, error) {
	num, err := ReleaseNumber(version)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://sqlite.org/%d/sqlite-amalgamation-%s.zip", year, num), nil
}

// Vendorer downloads and vendors amalgamation releases.
type Vendorer struct {
	Client  *http.Client
	BaseURL string // overrides the sqlite.org download location, for tests
}

// Vendor fetches the amalgamation for version and writes it, gzipped,
// to the bundled archive path under packageRoot. The archive is
// written via a temporary file and renamed into place.
func (v *Vendorer) Vendor(ctx context.Context, version string, year int, packageRoot string) error {
	url, err := DownloadURL(version, year)
	if err != nil {
		return err
	}
	if v.BaseURL != "" {
		url = v.BaseURL + "/" + path.Base(url)
	}

	data, err := v.fetch(ctx, url)
	if err != nil {
		return err
	}
	src, err := extractSource(data)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", url, err)
	}

	archive := filepath.Join(packageRoot, filepath.FromSlash(source.VendoredArchive))
	if err := os.MkdirAll(filepath.Dir(archive), 0o755); err != nil {
		return err
	}
	return writeGzip(archive, src)
}

func (v *Vendorer) fetch(ctx context.Context, url string) ([]byte, error) {
	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download amalgamation: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// extractSource finds the sqlite3.c member of a release archive.
func extractSource(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if path.Base(f.Name) != "sqlite3.c" {
			continue
		}
		r, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	}
	return nil, fmt.Errorf("no sqlite3.c member in archive")
}

func writeGzip(dest string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	zw := gzip.NewWriter(tmp)
	if _, err := zw.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
