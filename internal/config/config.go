// Package config loads and validates the configuration of a single
// build-hook invocation.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
)

// Option keys understood by this hook. Unknown keys in the option map
// are ignored.
const (
	OptionSource = "sqlite3.source"
	OptionURL    = "sqlite3.url"
)

// OS is the operating system the library is built for.
type OS string

const (
	Android OS = "android"
	Fuchsia OS = "fuchsia"
	IOS     OS = "ios"
	Linux   OS = "linux"
	MacOS   OS = "macos"
	Windows OS = "windows"
)

var oses = map[OS]bool{
	Android: true,
	Fuchsia: true,
	IOS:     true,
	Linux:   true,
	MacOS:   true,
	Windows: true,
}

// ParseOS validates an OS name against the closed set of supported
// operating systems.
func ParseOS(name string) (OS, error) {
	if v := OS(name); oses[v] {
		return v, nil
	}
	return "", fmt.Errorf("unsupported target os: %q", name)
}

// Mode is the build mode of an invocation.
type Mode string

const (
	Debug   Mode = "debug"
	Release Mode = "release"
)

// ParseMode validates a build mode name.
func ParseMode(name string) (Mode, error) {
	switch m := Mode(name); m {
	case Debug, Release:
		return m, nil
	}
	return "", fmt.Errorf("unsupported build mode: %q (must be %q or %q)", name, Debug, Release)
}

// Config is the externally supplied configuration of one build.
// It is never mutated after Load returns.
type Config struct {
	TargetOS    OS                `json:"target_os"`
	Mode        Mode              `json:"build_mode"`
	DryRun      bool              `json:"dry_run"`
	OutDir      string            `json:"out_dir"`
	PackageRoot string            `json:"package_root"`
	Options     map[string]string `json:"options"`
}

// overrides are option values taken from the process environment.
// They win over the option map of the configuration file.
type overrides struct {
	Source string `env:"SQLITE3_SOURCE"`
	URL    string `env:"SQLITE3_URL"`
}

// Load reads and validates a build configuration from either provided
// data or a file path. If data is non-nil, it is used directly and the
// file parameter is ignored. Option values from environ (in the form
// returned by os.Environ) override values from the option map.
func Load(file string, data []byte, environ []string) (*Config, error) {
	var reader io.Reader

	if data != nil {
		reader = bytes.NewBuffer(data)
	} else {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		reader = f
	}

	var c Config
	if err := json.NewDecoder(reader).Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to parse build config: %w", err)
	}

	var o overrides
	err := env.ParseWithOptions(&o, env.Options{
		Environment: env.ToMap(environ),
	})
	if err != nil {
		return nil, err
	}
	if o.Source != "" {
		c.setOption(OptionSource, o.Source)
	}
	if o.URL != "" {
		c.setOption(OptionURL, o.URL)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) setOption(key, value string) {
	if c.Options == nil {
		c.Options = make(map[string]string)
	}
	c.Options[key] = value
}

// Validate checks the enumeration fields and required paths.
func (c *Config) Validate() error {
	if _, err := ParseOS(string(c.TargetOS)); err != nil {
		return err
	}
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.OutDir == "" {
		return fmt.Errorf("missing out_dir in build config")
	}
	if c.PackageRoot == "" {
		return fmt.Errorf("missing package_root in build config")
	}
	return nil
}

// Option returns the value of an option key, or "" if unset.
func (c *Config) Option(key string) string {
	return c.Options[key]
}
