// Package pipeline wires the loader, worker pool, post-processing and result
// sink into a single verification run.
package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/williampepple1/booksource-verifier/internal/checker"
	"github.com/williampepple1/booksource-verifier/internal/config"
	"github.com/williampepple1/booksource-verifier/internal/io"
	"github.com/williampepple1/booksource-verifier/internal/metrics"
	"github.com/williampepple1/booksource-verifier/internal/postprocess"
	"github.com/williampepple1/booksource-verifier/internal/stats"
	"github.com/williampepple1/booksource-verifier/internal/worker"
	"github.com/williampepple1/booksource-verifier/pkg/models"
)

// Report is everything a run produced
type Report struct {
	Summary    stats.Summary
	Results    models.ResultSet
	OutputFile string
}

// Runner executes one verification run
type Runner struct {
	Config  *config.AppConfig
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Reader  *io.SourceReader
	Pool    *worker.Pool
	Writer  *io.ResultWriter
}

// New creates a runner. The HTTP client is shared by the loader and the
// checker; m may be nil.
func New(cfg *config.AppConfig, logger *slog.Logger, client *http.Client, chk checker.Checker, m *metrics.Metrics) *Runner {
	reader := io.NewSourceReader(client, logger)
	reader.Metrics = m

	pool := worker.NewPool(cfg.Workers, chk, logger)
	pool.Metrics = m

	return &Runner{
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
		Reader:  reader,
		Pool:    pool,
		Writer:  io.NewResultWriter(logger),
	}
}

// Run loads, checks, post-processes and saves the book sources. A failed
// save is returned as a *io.SaveError together with the complete report.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	r.Logger.Info("Processing book sources")

	sources := r.Reader.Load(ctx, r.Config.Path)
	results := r.Pool.Dispatch(ctx, sources)
	results, duplicates, filtered := r.postProcess(results)

	summary := stats.Summarize(results).WithElapsed(time.Since(start))
	summary.DedupEnabled = bool(r.Config.Dedup)
	summary.DuplicateCount = duplicates
	summary.FilteredCount = filtered
	r.Logger.Info("Processing finished",
		"total", summary.Total,
		"valid", summary.Valid,
		"invalid", summary.Invalid,
		"success_rate", summary.SuccessRatePercent,
	)

	report := Report{Summary: summary, Results: results}
	path, err := r.Writer.Save(results.Good, r.Config.OutPath)
	if err != nil {
		r.Metrics.SaveFailed()
		r.Logger.Error("Failed to save valid book sources", "error", err)
		return report, err
	}
	report.OutputFile = path
	return report, nil
}

// postProcess dedups the good set, then filters both sets with the same
// predicate. Filtered unreachable sources are dropped from the report too.
func (r *Runner) postProcess(rs models.ResultSet) (models.ResultSet, int, int) {
	duplicates := 0
	if r.Config.Dedup {
		r.Logger.Info("Removing duplicate book sources")
		rs.Good, duplicates = postprocess.Dedup(rs.Good)
		r.Metrics.Deduplicated(duplicates)
		r.Logger.Info("Removed duplicate book sources", "count", duplicates)
	}

	filtered := 0
	if r.Config.Filter {
		r.Logger.Info("Filtering book sources by keyword")
		f := postprocess.NewFilter(r.Config.KeywordsToFilter, bool(r.Config.ExactKeywordMatch), r.Logger)

		var goodRemoved, errorRemoved int
		rs.Good, goodRemoved = f.Apply(rs.Good)
		rs.Error, errorRemoved = f.Apply(rs.Error)
		r.Metrics.Filtered("good", goodRemoved)
		r.Metrics.Filtered("error", errorRemoved)

		filtered = goodRemoved + errorRemoved
		r.Logger.Info("Filtered book sources", "good", goodRemoved, "error", errorRemoved)
	}
	return rs, duplicates, filtered
}
