// Command docinsight extracts document outlines and ranks document sections for a persona.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dgallion1/docinsight/internal/pipeline"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "docinsight",
	Short: "Document outline extraction and persona-driven section ranking",
	Long: "docinsight recovers the title and H1/H2/H3 outline of PDF (and Markdown, HTML, DOCX, text) " +
		"documents, and ranks their sections by relevance to a persona and the job they need done.\n\n" +
		"Exit codes: 0 complete, 1 usage or configuration error, 2 some documents skipped, " +
		"3 time budget exceeded, 4 no valid input.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configPath    string
	logLevel      string
	embedProvider string
	workers       int
	inputDir      string
	outputDir     string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML config file (default $DOCINSIGHT_CONFIG)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&embedProvider, "embed-provider", "", "Embedding provider: ollama, hash or none")
	pf.IntVar(&workers, "workers", 0, "Documents processed in parallel (default: number of CPUs)")
	pf.StringVarP(&inputDir, "input", "i", "", "Input directory (default \"input\")")
	pf.StringVarP(&outputDir, "output", "o", "", "Output directory (default \"output\")")
	rootCmd.Version = version
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(pipeline.ExitCode(err))
}
