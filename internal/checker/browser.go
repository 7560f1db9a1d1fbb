package checker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/williampepple1/booksource-verifier/internal/config"
	"github.com/williampepple1/booksource-verifier/pkg/models"
)

// BrowserChecker checks sources by navigating a headless browser to them.
// One browser process serves the whole run, each check opens its own tab.
type BrowserChecker struct {
	Config       *config.BrowserConfig
	Timeout      time.Duration
	CaptureTitle bool

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	startOnce sync.Once
	startErr  error
}

// NewBrowserChecker creates a new browser checker. The browser is started
// lazily on the first check.
func NewBrowserChecker(config *config.AppConfig) *BrowserChecker {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Browser.Headless),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.UserAgent(config.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	return &BrowserChecker{
		Config:        &config.Browser,
		Timeout:       config.RequestTimeout(),
		CaptureTitle:  config.CaptureTitle,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}
}

func (b *BrowserChecker) start() error {
	b.startOnce.Do(func() {
		if err := chromedp.Run(b.browserCtx); err != nil {
			b.startErr = fmt.Errorf("start browser: %w", err)
		}
	})
	return b.startErr
}

// Check navigates to the source URL. The source is reachable iff the main
// document was served with status 200.
func (b *BrowserChecker) Check(ctx context.Context, source models.BookSource) (result models.CheckResult) {
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
	if err := b.start(); err != nil {
		result.Err = err.Error()
		return result
	}

	// Create a new tab
	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.Timeout+time.Duration(b.Config.WaitTime))
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var mu sync.Mutex
	var status int64
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		e, ok := ev.(*network.EventResponseReceived)
		if !ok || e.Type != network.ResourceTypeDocument || e.Response == nil {
			return
		}
		mu.Lock()
		// redirects do not emit responseReceived, so the first document is the landing page
		if status == 0 {
			status = e.Response.Status
		}
		mu.Unlock()
	})

	var title string
	tasks := []chromedp.Action{
		network.Enable(),
		chromedp.Navigate(url),
	}
	if b.Config.WaitTime > 0 {
		tasks = append(tasks, chromedp.Sleep(time.Duration(b.Config.WaitTime)))
	}
	if b.CaptureTitle {
		tasks = append(tasks, chromedp.Title(&title))
	}

	err := chromedp.Run(tabCtx, tasks...)

	mu.Lock()
	result.StatusCode = int(status)
	mu.Unlock()

	if err != nil {
		result.Err = err.Error()
		return result
	}

	result.Reachable = result.StatusCode == 200
	if !result.Reachable {
		result.Err = fmt.Sprintf("received non-200 status code: %d", result.StatusCode)
		return result
	}
	result.Title = strings.TrimSpace(title)
	return result
}

// Close shuts the browser down
func (b *BrowserChecker) Close() error {
	b.browserCancel()
	b.allocCancel()
	return nil
}
