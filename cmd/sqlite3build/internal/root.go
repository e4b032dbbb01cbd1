package internal

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sqlite3build",
	Short: "sqlite3build compiles a native sqlite3 for an embedding package",
	Long: `sqlite3build resolves where the sqlite3 source comes from, computes the
platform- and mode-dependent compiler configuration, compiles the library
and records the resulting build metadata.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatal(err)
	}
}
