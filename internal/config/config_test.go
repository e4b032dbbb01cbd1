package config

import (
	"strings"
	"testing"
)

func validConfig() string {
	return `{
		"target_os": "linux",
		"build_mode": "release",
		"dry_run": false,
		"out_dir": "/tmp/out",
		"package_root": "/tmp/pkg",
		"options": {"sqlite3.source": "vendored"}
	}`
}

func TestLoad(t *testing.T) {
	cfg, err := Load("", []byte(validConfig()), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TargetOS != Linux {
		t.Errorf("TargetOS = %q, want %q", cfg.TargetOS, Linux)
	}
	if cfg.Mode != Release {
		t.Errorf("Mode = %q, want %q", cfg.Mode, Release)
	}
	if got := cfg.Option(OptionSource); got != "vendored" {
		t.Errorf("Option(%q) = %q, want %q", OptionSource, got, "vendored")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	environ := []string{"SQLITE3_SOURCE=system", "SQLITE3_URL=https://example.com/sqlite3.c"}
	cfg, err := Load("", []byte(validConfig()), environ)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Option(OptionSource); got != "system" {
		t.Errorf("Option(%q) = %q, want %q", OptionSource, got, "system")
	}
	if got := cfg.Option(OptionURL); got != "https://example.com/sqlite3.c" {
		t.Errorf("Option(%q) = %q, want env override", OptionURL, got)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "unknown os",
			mutate:  func(s string) string { return strings.Replace(s, `"linux"`, `"plan9"`, 1) },
			wantErr: "unsupported target os",
		},
		{
			name:    "unknown mode",
			mutate:  func(s string) string { return strings.Replace(s, `"release"`, `"profile"`, 1) },
			wantErr: "unsupported build mode",
		},
		{
			name:    "missing out dir",
			mutate:  func(s string) string { return strings.Replace(s, `"/tmp/out"`, `""`, 1) },
			wantErr: "missing out_dir",
		},
		{
			name:    "missing package root",
			mutate:  func(s string) string { return strings.Replace(s, `"/tmp/pkg"`, `""`, 1) },
			wantErr: "missing package_root",
		},
		{
			name:    "malformed json",
			mutate:  func(s string) string { return s[:20] },
			wantErr: "failed to parse build config",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("", []byte(tt.mutate(validConfig())), nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseOS(t *testing.T) {
	for _, name := range []string{"android", "fuchsia", "ios", "linux", "macos", "windows"} {
		if _, err := ParseOS(name); err != nil {
			t.Errorf("ParseOS(%q): %v", name, err)
		}
	}
	if _, err := ParseOS("dos"); err == nil {
		t.Error("ParseOS(\"dos\") succeeded, want error")
	}
}
