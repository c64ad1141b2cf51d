package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deadlift-coach/api/internal/analysis"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		pretty  bool
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "normalize [file]",
		Short: "Normalize a model's deadlift critique into structured JSON",
		Long: `Reads the raw text a model returned for a deadlift video, from a file or stdin,
and prints the structured analysis: overall score, per-phase assessments,
recommendations and safety notes.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			raw, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			log := zap.NewNop()
			if verbose {
				if log, err = zap.NewDevelopment(); err != nil {
					return err
				}
				defer func() { _ = log.Sync() }()
			}

			res := analysis.NewNormalizer(log).Normalize(string(raw))
			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(res)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log parse decisions to stderr")
	return cmd
}
