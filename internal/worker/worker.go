package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/williampepple1/booksource-verifier/internal/checker"
	"github.com/williampepple1/booksource-verifier/internal/metrics"
	"github.com/williampepple1/booksource-verifier/pkg/models"
)

// ProgressFunc receives the number of finished checks out of total. It is
// called from the collecting goroutine only.
type ProgressFunc func(done, total int)

// Pool checks book sources on a fixed number of worker goroutines
type Pool struct {
	Workers  int
	Checker  checker.Checker
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Progress ProgressFunc
}

// NewPool creates a new worker pool. Fewer than one worker is raised to one.
func NewPool(workers int, c checker.Checker, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		Workers: workers,
		Checker: c,
		Logger:  logger,
	}
}

// Dispatch checks every source exactly once and partitions them by verdict.
// It returns after all workers have exited. Results are in completion order.
func (p *Pool) Dispatch(ctx context.Context, sources []models.BookSource) models.ResultSet {
	workers := max(p.Workers, 1)
	jobs := make(chan models.BookSource, len(sources))
	results := make(chan models.CheckResult, workers)
	wg := &sync.WaitGroup{}

	for _, source := range sources {
		jobs <- source
	}
	close(jobs) // Close the jobs channel to signal workers that no more jobs are coming

	p.Logger.Info("Checking book sources", "count", len(sources), "workers", workers)
	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go p.worker(ctx, w, jobs, results, wg)
	}

	// Close the results channel when all workers are done
	go func() {
		wg.Wait()
		close(results)
	}()

	rs := models.ResultSet{
		Good:  make([]models.BookSource, 0, len(sources)),
		Error: make([]models.BookSource, 0),
	}
	done := 0
	for result := range results {
		done++
		if result.Reachable {
			rs.Good = append(rs.Good, result.Source)
		} else {
			rs.Error = append(rs.Error, result.Source)
		}
		if p.Progress != nil {
			p.Progress(done, len(sources))
		}
	}

	p.Logger.Info("Finished checking book sources", "good", len(rs.Good), "error", len(rs.Error))
	return rs
}

// worker checks sources from the jobs channel and sends results to the results channel
func (p *Pool) worker(ctx context.Context, id int, jobs <-chan models.BookSource, results chan<- models.CheckResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for source := range jobs {
		p.Metrics.CheckStarted()
		result := p.Checker.Check(ctx, source)
		p.Metrics.CheckFinished(result.Reachable, result.Duration)

		p.Logger.Debug("Checked book source",
			"worker", id,
			"name", source.Name(),
			"url", source.URL(),
			"reachable", result.Reachable,
			"status", result.StatusCode,
			"title", result.Title,
			"error", result.Err,
			"duration", result.Duration,
		)
		results <- result
	}
}
