package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "relaygate %s\n", version)
		fmt.Fprintf(out, "Commit: %s\n", commit)
		fmt.Fprintf(out, "Go: %s\n", runtime.Version())
	},
}
