// Package main provides the entry point for the applycrawl CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for applycrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "applycrawl",
		Short: "Find university application pages by focused crawling",
		Long: `applycrawl crawls university websites looking for undergraduate
application pages. It prioritizes admission-related URLs, paces requests
per domain, and reports the pages where an applicant can actually apply.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
