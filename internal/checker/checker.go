package checker

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/williampepple1/booksource-verifier/internal/config"
	"github.com/williampepple1/booksource-verifier/pkg/models"
)

// Checker decides whether a single book source is reachable.
// Check never fails: every problem is folded into Reachable=false.
type Checker interface {
	Check(ctx context.Context, source models.BookSource) models.CheckResult
	Close() error
}

// CheckFunc adapts a plain function to the Checker interface
type CheckFunc func(ctx context.Context, source models.BookSource) models.CheckResult

// Check calls f
func (f CheckFunc) Check(ctx context.Context, source models.BookSource) models.CheckResult {
	return f(ctx, source)
}

// Close is a no-op
func (f CheckFunc) Close() error { return nil }

// New creates a checker based on the configuration. The HTTP client is
// shared by all workers and is only used by the HTTP checker.
func New(config *config.AppConfig, client *http.Client, logger *slog.Logger) Checker {
	if config.Browser.Enabled {
		logger.Info("Using headless browser checker", "headless", config.Browser.Headless)
		return NewBrowserChecker(config)
	}
	return NewHTTPChecker(config, client)
}
