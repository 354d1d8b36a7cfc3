package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docinsight/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process the input directory in outline, rank or both modes",
	Long: "Batch entry point: outlines every supported document in the input directory (mode outline), " +
		"ranks their sections for a persona (mode rank), or both. In mode both the ranking step is " +
		"skipped when no persona and job are given. The exit code reflects the worse of the two runs.",
	Args: cobra.NoArgs,
	RunE: runRunCmd,
}

var runMode string

func init() {
	runCmd.Flags().StringVar(&runMode, "mode", "both", "Processing mode: outline, rank or both")
	addQueryFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func runRunCmd(cmd *cobra.Command, _ []string) error {
	mode := strings.ToLower(runMode)
	if mode != "outline" && mode != "rank" && mode != "both" {
		return fmt.Errorf("invalid --mode %q: want outline, rank or both", runMode)
	}
	a, err := newApp(cmd, os.Stderr)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var outlineErr, rankErr error
	if mode == "outline" || mode == "both" {
		sources, err := collectSources(nil, a.cfg.InputDir)
		if err != nil {
			return err
		}
		outlineErr = a.outline(ctx, sources)
		if pipeline.ExitCode(outlineErr) == 1 {
			return outlineErr
		}
	}

	if mode == "rank" || mode == "both" {
		query, paths, err := resolveQuery(nil, a.cfg.InputDir)
		if err != nil {
			return err
		}
		switch {
		case query.Persona != "" && query.Job != "":
			sources, err := collectSources(paths, a.cfg.InputDir)
			if err != nil {
				return err
			}
			rankErr = a.rank(ctx, sources, query)
		case mode == "rank":
			return errors.New("persona and job are required (use --persona/--job or --request)")
		default:
			a.log.Info("skipping ranking, persona and job not given")
		}
	}
	return combine(outlineErr, rankErr)
}

// combine keeps the more severe of two run errors.
func combine(a, b error) error {
	if pipeline.ExitCode(b) == 1 {
		return b
	}
	var ea, eb *pipeline.ExitError
	switch {
	case !errors.As(a, &ea):
		return b
	case !errors.As(b, &eb):
		return a
	}
	if pipeline.Worst(ea.Status, eb.Status) == eb.Status {
		return b
	}
	return a
}
