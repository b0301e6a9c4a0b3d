package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"changelens/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(stdout, version.Full())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
