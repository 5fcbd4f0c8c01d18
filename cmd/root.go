package cmd

import (
	"fmt"
	"os"

	"unframe/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "unframe",
	Short: "Unframe is a gallery sound archive service.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
