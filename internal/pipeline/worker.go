package pipeline

import (
	"context"
	"log/slog"
)

// Worker processes queued ranking jobs.
type Worker struct {
	runner *Runner
	log    *slog.Logger
}

func NewWorker(runner *Runner, log *slog.Logger) *Worker {
	return &Worker{runner: runner, log: log}
}

// Process runs the ranking batch for a job and records its result.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "documents", len(job.Filenames))

	job.SetStatus(StatusRunning, "ranking")
	log.Info("job started")

	res := w.runner.Rank(ctx, job.Sources(), job.Query, job.TopK)
	job.Finish(res)

	log.Info("job finished",
		"run_id", res.RunID,
		"status", res.Status().String(),
		"sections", len(res.Sections),
		"degraded", res.Degraded,
	)
}
