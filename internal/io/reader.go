package io

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/williampepple1/booksource-verifier/internal/metrics"
	"github.com/williampepple1/booksource-verifier/pkg/models"
)

const (
	// maxRemoteBytes bounds the size of a downloaded source list
	maxRemoteBytes = 64 << 20
	// DefaultFetchTimeout bounds the download of a remote source list
	DefaultFetchTimeout = 2 * time.Minute
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SourceReader reads book source lists from local files or URLs
type SourceReader struct {
	Client *http.Client
	// FetchTimeout replaces the client's per-check timeout for the list
	// download. Zero means DefaultFetchTimeout.
	FetchTimeout time.Duration
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

// NewSourceReader creates a new source reader using the shared HTTP client
func NewSourceReader(client *http.Client, logger *slog.Logger) *SourceReader {
	return &SourceReader{
		Client:       client,
		FetchTimeout: DefaultFetchTimeout,
		Logger:       logger,
	}
}

// IsRemote reports whether src is fetched over HTTP(S)
func IsRemote(src string) bool {
	s := strings.ToLower(strings.TrimSpace(src))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Load returns the sources found at src. Failures are logged and yield an
// empty list, so a run can still report zero processed sources.
func (r *SourceReader) Load(ctx context.Context, src string) []models.BookSource {
	r.Logger.Info("Loading book sources", "source", src)
	sources, err := r.ReadSources(ctx, src)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			r.Metrics.LoadFailed(loadErr.Cause)
		}
		r.Logger.Error("Failed to load book sources", "source", src, "error", err)
		return []models.BookSource{}
	}
	r.Metrics.Loaded(len(sources))
	r.Logger.Info("Loaded book sources", "count", len(sources))
	return sources
}

// ReadSources reads and decodes the source list at src. Errors are *LoadError.
func (r *SourceReader) ReadSources(ctx context.Context, src string) ([]models.BookSource, error) {
	src = strings.TrimSpace(src)
	var data []byte
	var err error
	if IsRemote(src) {
		data, err = r.fetch(ctx, src)
	} else {
		data, err = readFile(src)
	}
	if err != nil {
		return nil, err
	}

	sources, err := DecodeSources(data)
	if err != nil {
		return nil, &LoadError{Source: src, Cause: CauseDecode, Err: err}
	}
	return sources, nil
}

func (r *SourceReader) fetch(ctx context.Context, url string) ([]byte, error) {
	timeout := r.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// same transport, but only the context deadline bounds the download
	client := *r.Client
	client.Timeout = 0

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &LoadError{Source: url, Cause: CauseNetwork, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &LoadError{Source: url, Cause: CauseNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &LoadError{Source: url, Cause: CauseNetwork, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBytes+1))
	if err != nil {
		return nil, &LoadError{Source: url, Cause: CauseNetwork, Err: err}
	}
	if len(data) > maxRemoteBytes {
		return nil, &LoadError{Source: url, Cause: CauseNetwork, Err: fmt.Errorf("response exceeds %d bytes", maxRemoteBytes)}
	}
	return data, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, &LoadError{Source: path, Cause: CauseNotFound, Err: err}
	case err != nil:
		return nil, &LoadError{Source: path, Cause: CauseRead, Err: err}
	}
	return data, nil
}

// DecodeSources parses a JSON array of book source objects. A panic inside
// the record codec is returned as an error.
func DecodeSources(data []byte) (sources []models.BookSource, err error) {
	defer func() {
		if r := recover(); r != nil {
			sources, err = nil, fmt.Errorf("decoding book sources: %v", r)
		}
	}()

	data = bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(data) == 0 || data[0] != '[' {
		return nil, errors.New("expected a JSON array of book sources")
	}

	if err := json.Unmarshal(data, &sources); err != nil {
		return nil, err
	}
	return sources, nil
}
