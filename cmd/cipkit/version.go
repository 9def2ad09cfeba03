package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cipkit/cipkit"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "prints the cipkit version",
	Run: func(*cobra.Command, []string) {
		fmt.Printf("cipkit v%s\n", cipkit.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
