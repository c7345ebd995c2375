// Command rdfc canonicalizes RDF datasets (URDNA2015) from the command line.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/geoknoesis/rdf-canon/cmd/rdfc/canoncmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "rdfc",
		Short:         "RDF dataset canonicalization",
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	rootCmd.AddCommand(canoncmd.Cmd())

	if err := rootCmd.Execute(); err != nil {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		logger.Error("rdfc failed", "component", "rdfc", "error", err)
		os.Exit(1)
	}
}
