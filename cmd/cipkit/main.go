// cipkit is a CLI around the cipkit branch-and-bound solver: it reads integer
// programs from TOML files and solves them.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cipkit",
	Short: "branch-and-bound solver for constraint integer programs",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
