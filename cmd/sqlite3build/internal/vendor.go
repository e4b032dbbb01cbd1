package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dnys1/sqlite3build/internal/amalgamation"
)

var (
	vendorVersion string
	vendorYear    int
	vendorRoot    string
)

var vendorCmd = &cobra.Command{
	Use:   "vendor",
	Short: "Refresh the bundled sqlite3 amalgamation",
	Long: `Vendor downloads a sqlite3 amalgamation release from sqlite.org and
stores it, gzip-compressed, at the bundled archive path under the
package root.`,
	RunE: runVendor,
}

func init() {
	vendorCmd.Flags().StringVar(&vendorVersion, "version", "", "sqlite3 release version, e.g. 3.46.1")
	vendorCmd.Flags().IntVar(&vendorYear, "year", time.Now().Year(), "Release year used in the sqlite.org download path")
	vendorCmd.Flags().StringVar(&vendorRoot, "root", ".", "Package root directory")
	vendorCmd.MarkFlagRequired("version")
	rootCmd.AddCommand(vendorCmd)
}

func runVendor(cmd *cobra.Command, args []string) error {
	v := &amalgamation.Vendorer{}
	if err := v.Vendor(context.Background(), vendorVersion, vendorYear, vendorRoot); err != nil {
		return fmt.Errorf("failed to vendor sqlite3 %s: %w", vendorVersion, err)
	}
	fmt.Printf("vendored sqlite3 %s\n", vendorVersion)
	return nil
}
