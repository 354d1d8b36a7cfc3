package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docinsight/internal/api"
	"github.com/dgallion1/docinsight/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Serves POST /api/outline, POST /api/rank (asynchronous jobs) and GET /api/stats/embed.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var servePort string

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd, os.Stdout)
	if err != nil {
		return err
	}
	if servePort != "" {
		a.cfg.Port = servePort
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	orch := pipeline.NewOrchestrator(a.runner, a.cfg.WorkerCount, a.cfg.MaxQueueSize, a.cfg.JobTTL, a.log)
	orch.Start(ctx)

	srv := api.NewServer(orch, a.embedder, a.log, a.cfg)
	httpServer := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		<-ctx.Done()
		a.log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	a.log.Info("starting docinsight", "port", a.cfg.Port, "embed_provider", a.embedder.Name(),
		"auth", a.cfg.APIKey != "")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		a.log.Error("server error", "error", err)
		return err
	}
	return nil
}
