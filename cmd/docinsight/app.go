package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docinsight/internal/config"
	"github.com/dgallion1/docinsight/internal/doctree"
	"github.com/dgallion1/docinsight/internal/embed"
	"github.com/dgallion1/docinsight/internal/parser"
	"github.com/dgallion1/docinsight/internal/pipeline"
)

// app holds what every subcommand needs, built once from config and flags.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	embedder *embed.Instrumented
	runner   *pipeline.Runner
}

// loadConfig layers the persistent flags over config.Load and validates the result.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("embed-provider") {
		cfg.Embed.Provider = embedProvider
	}
	if flags.Changed("workers") {
		cfg.WorkerCount = workers
	}
	if flags.Changed("input") {
		cfg.InputDir = inputDir
	}
	if flags.Changed("output") {
		cfg.OutputDir = outputDir
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newApp(cmd *cobra.Command, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	emb, err := embed.New(cfg.EmbedderConfig(), embed.NewStats(time.Hour), log)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(pipeline.ParserDecoder{Options: cfg.ParserOptions()}, emb, cfg.RunnerOptions(), log)
	return &app{cfg: cfg, log: log, embedder: emb, runner: runner}, nil
}

// collectSources turns explicit paths into sources, or lists the supported files of dir
// in name order when no paths are given.
func collectSources(paths []string, dir string) ([]pipeline.Source, error) {
	if len(paths) > 0 {
		sources := make([]pipeline.Source, len(paths))
		for i, p := range paths {
			sources[i] = pipeline.Source{Path: p}
		}
		return sources, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && parser.IsSupportedExtension(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	sources := make([]pipeline.Source, len(names))
	for i, n := range names {
		sources[i] = pipeline.Source{Path: filepath.Join(dir, n)}
	}
	return sources, nil
}

// rankInput is the challenge1b_input.json request format.
type rankInput struct {
	Persona struct {
		Role string `json:"role"`
	} `json:"persona"`
	JobToBeDone struct {
		Task string `json:"task"`
	} `json:"job_to_be_done"`
	Documents []struct {
		Filename string `json:"filename"`
		Title    string `json:"title"`
	} `json:"documents"`
}

// loadRankInput reads a request file. Document file names resolve against dir.
func loadRankInput(path, dir string) (doctree.PersonaQuery, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return doctree.PersonaQuery{}, nil, fmt.Errorf("read request: %w", err)
	}
	var in rankInput
	if err := json.Unmarshal(data, &in); err != nil {
		return doctree.PersonaQuery{}, nil, fmt.Errorf("parse request %s: %w", path, err)
	}
	var paths []string
	for _, d := range in.Documents {
		if d.Filename == "" {
			continue
		}
		if filepath.IsAbs(d.Filename) {
			paths = append(paths, d.Filename)
		} else {
			paths = append(paths, filepath.Join(dir, d.Filename))
		}
	}
	return doctree.PersonaQuery{Persona: in.Persona.Role, Job: in.JobToBeDone.Task}, paths, nil
}
