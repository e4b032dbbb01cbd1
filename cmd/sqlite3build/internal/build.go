package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dnys1/sqlite3build/internal/build"
	"github.com/dnys1/sqlite3build/internal/config"
	"github.com/dnys1/sqlite3build/internal/toolchain"
)

var (
	buildConfigPath string
	buildVerbose    bool

	buildTargetOS string
	buildMode     string
	buildDryRun   bool
	buildOut      string
	buildRoot     string
	buildSource   string
	buildURL      string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run one native sqlite3 build",
	Long: `Build materializes the sqlite3 source according to the configured
strategy, compiles it and writes the build output metadata into the
output directory. Configuration comes from a JSON config file, flags
for ad-hoc runs, and SQLITE3_SOURCE/SQLITE3_URL environment overrides.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildConfigPath, "config", "c", "", "Path to a JSON build config file")
	buildCmd.Flags().BoolVarP(&buildVerbose, "verbose", "v", false, "Enable verbose build output")
	buildCmd.Flags().StringVar(&buildTargetOS, "os", "linux", "Target operating system")
	buildCmd.Flags().StringVar(&buildMode, "mode", "release", "Build mode (debug or release)")
	buildCmd.Flags().BoolVar(&buildDryRun, "dry-run", false, "Validate and plan without producing a usable binary")
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "out", "Output directory")
	buildCmd.Flags().StringVar(&buildRoot, "root", ".", "Package root directory")
	buildCmd.Flags().StringVar(&buildSource, "source", "", "Source strategy (vendored, url or system)")
	buildCmd.Flags().StringVar(&buildURL, "url", "", "Amalgamation URL for the url strategy")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadBuildConfig()
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if buildVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	compiler := toolchain.NewCC(cfg.OutDir, cfg.TargetOS, cfg.DryRun)
	builder := build.NewBuilder(cfg, compiler, logger)
	if _, err := builder.Run(context.Background()); err != nil {
		return fmt.Errorf("failed to build: %w", err)
	}
	return nil
}

// loadBuildConfig reads the config file when one is given; otherwise
// the flag values form the configuration. Environment overrides apply
// in both cases.
func loadBuildConfig() (*config.Config, error) {
	if buildConfigPath != "" {
		cfg, err := config.Load(buildConfigPath, nil, os.Environ())
		if err != nil {
			return nil, fmt.Errorf("failed to load build config %s: %w", buildConfigPath, err)
		}
		return cfg, nil
	}

	data, err := configFromFlags()
	if err != nil {
		return nil, err
	}
	return config.Load("", data, os.Environ())
}

func configFromFlags() ([]byte, error) {
	targetOS, err := config.ParseOS(buildTargetOS)
	if err != nil {
		return nil, err
	}
	mode, err := config.ParseMode(buildMode)
	if err != nil {
		return nil, err
	}
	options := map[string]string{}
	if buildSource != "" {
		options[config.OptionSource] = buildSource
	}
	if buildURL != "" {
		options[config.OptionURL] = buildURL
	}
	return json.Marshal(&config.Config{
		TargetOS:    targetOS,
		Mode:        mode,
		DryRun:      buildDryRun,
		OutDir:      buildOut,
		PackageRoot: buildRoot,
		Options:     options,
	})
}
