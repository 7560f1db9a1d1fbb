package checker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/williampepple1/booksource-verifier/internal/config"
	"github.com/williampepple1/booksource-verifier/internal/extraction"
	"github.com/williampepple1/booksource-verifier/pkg/models"
)

const (
	// maxTitleBytes bounds how much of a page is parsed for its title
	maxTitleBytes = 1 << 20
	// maxDrainBytes bounds how much of an unread body is discarded so the
	// connection can go back to the pool
	maxDrainBytes = 64 << 10
)

// HTTPChecker checks a source with a single GET request
type HTTPChecker struct {
	Client    *http.Client
	Timeout   time.Duration
	Extractor *extraction.Extractor
}

// NewHTTPChecker creates a new HTTP checker around the shared client
func NewHTTPChecker(config *config.AppConfig, client *http.Client) *HTTPChecker {
	c := &HTTPChecker{
		Client:  client,
		Timeout: config.RequestTimeout(),
	}
	if config.CaptureTitle {
		c.Extractor = extraction.NewExtractor()
	}
	return c
}

// Check fetches the source URL once. The source is reachable iff the final
// response status is exactly 200.
func (c *HTTPChecker) Check(ctx context.Context, source models.BookSource) (result models.CheckResult) {
	start := time.Now()
	result.Source = source
	defer func() {
		if r := recover(); r != nil {
			result.Reachable = false
			result.Err = fmt.Sprintf("panic during check: %v", r)
		}
		result.Duration = time.Since(start)
	}()

	url := strings.TrimSpace(source.URL())
	if url == "" {
		result.Err = "missing " + models.KeyURL
		return result
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Err = err.Error()
		return result
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		result.Err = describe(err)
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.Reachable = resp.StatusCode == http.StatusOK
	if !result.Reachable {
		result.Err = fmt.Sprintf("received non-200 status code: %d", resp.StatusCode)
	}

	if result.Reachable && c.Extractor != nil && isHTML(resp.Header.Get("Content-Type")) {
		// a broken page body does not change the verdict
		if title, err := c.Extractor.TitleFromReader(io.LimitReader(resp.Body, maxTitleBytes)); err == nil {
			result.Title = title
		}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	return result
}

// Close releases idle pooled connections
func (c *HTTPChecker) Close() error {
	c.Client.CloseIdleConnections()
	return nil
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

func describe(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout: " + err.Error()
	}
	return err.Error()
}
