package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/pipeline"
	"github.com/dgallion1/docinsight/internal/report"
)

var rankCmd = &cobra.Command{
	Use:   "rank [files...]",
	Short: "Rank document sections by relevance to a persona and job",
	Long: "Scores every section of every document against the persona and job to be done, and " +
		"writes the top sections with a refined excerpt each to persona_ranking.json. The persona " +
		"and job come from --persona/--job or a challenge1b_input.json style --request file. " +
		"The batch runs under the ranking time budget (60s by default).",
	RunE: runRankCmd,
}

var (
	rankPersona string
	rankJob     string
	rankTopK    int
	rankRequest string
)

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&rankPersona, "persona", "", "Persona, e.g. \"Investment Analyst\"")
	cmd.Flags().StringVar(&rankJob, "job", "", "Job to be done")
	cmd.Flags().IntVarP(&rankTopK, "top-k", "k", 0, "Number of sections to return (1-100, default from config)")
	cmd.Flags().StringVar(&rankRequest, "request", "", "Request JSON with persona.role, job_to_be_done.task and documents[].filename")
}

func init() {
	addQueryFlags(rankCmd)
	rootCmd.AddCommand(rankCmd)
}

func runRankCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, os.Stderr)
	if err != nil {
		return err
	}
	query, paths, err := resolveQuery(args, a.cfg.InputDir)
	if err != nil {
		return err
	}
	if query.Persona == "" || query.Job == "" {
		return errors.New("persona and job are required (use --persona/--job or --request)")
	}
	sources, err := collectSources(paths, a.cfg.InputDir)
	if err != nil {
		return err
	}
	return a.rank(cmd.Context(), sources, query)
}

// resolveQuery merges the request file, if any, with the flags. Flags win; explicit file
// arguments replace the request's document list.
func resolveQuery(args []string, dir string) (doctree.PersonaQuery, []string, error) {
	var (
		query doctree.PersonaQuery
		paths []string
		err   error
	)
	if rankRequest != "" {
		query, paths, err = loadRankInput(rankRequest, dir)
		if err != nil {
			return query, nil, err
		}
	}
	if rankPersona != "" {
		query.Persona = rankPersona
	}
	if rankJob != "" {
		query.Job = rankJob
	}
	if len(args) > 0 {
		paths = args
	}
	return query, paths, nil
}

func (a *app) rank(ctx context.Context, sources []pipeline.Source, query doctree.PersonaQuery) error {
	res := a.runner.Rank(ctx, sources, query, rankTopK)
	path, err := report.WriteRanking(a.cfg.OutputDir, res)
	if err != nil {
		return err
	}
	a.log.Info("ranking written", "run_id", res.RunID, "path", path, "sections", len(res.Sections),
		"degraded", res.Degraded, "status", res.Status().String())
	return res.Err()
}
