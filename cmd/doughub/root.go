package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for doughub.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doughub",
		Short: "Question extraction and validation pipeline for saved HTML pages",
		Long: `doughub extracts question records (vignette, stem, answer choices, images)
from saved HTML pages of question banks and validates every extraction through
six stages: fixture immutability, input contract, schema, content against the
golden set, persistence round trip and rendering safety.

Malformed fixtures tagged in the manifest are expected to fail the input
contract; any other fatal stage is reported as a regression.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewDigestCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
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
