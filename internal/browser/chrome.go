package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Options configures a Chrome session.
type Options struct {
	Headless      bool
	UserAgent     string
	Timeout       time.Duration // bound on each navigation or element operation
	SettleTime    time.Duration // wait after a load for scripts to render
	ExecPath      string        // Chrome binary; empty uses chromedp's lookup
	Logger        *zap.Logger
	ExtraAllocOpt []chromedp.ExecAllocatorOption
}

// ChromeSession is a Session backed by a Chrome tab driven over the DevTools protocol.
type ChromeSession struct {
	ctx         context.Context // tab context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	opts        Options
	log         *zap.Logger
}

// NewChromeSession starts a browser and opens one tab.
// Requires Chrome/Chromium to be installed on the system.
func NewChromeSession(opts Options) (*ChromeSession, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1280, 900),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	allocOpts = append(allocOpts, opts.ExtraAllocOpt...)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// Run with no actions launches the browser.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	logger.Debug("Browser started", zap.Bool("headless", opts.Headless))

	return &ChromeSession{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		opts:        opts,
		log:         logger,
	}, nil
}

// run executes actions in the tab, bounded by the operation timeout and by ctx.
func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(s.ctx, s.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(opCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate loads url, waits for the body and then for the settle time.
func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	opCtx, cancel := context.WithTimeout(s.ctx, s.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var resp *network.Response
	resp, err := chromedp.RunResponse(opCtx, chromedp.Navigate(url))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &NavigationError{URL: url, Cause: err}
	}
	if resp != nil && resp.Status >= 400 {
		return &NavigationError{URL: url, StatusCode: int(resp.Status)}
	}

	if err := chromedp.Run(opCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &NavigationError{URL: url, Cause: err}
	}

	if s.opts.SettleTime > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.opts.SettleTime):
		}
	}

	s.log.Debug("Navigated", zap.String("url", url))
	return nil
}

// Location returns the current document URL.
func (s *ChromeSession) Location(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

// HTML returns the outer HTML of the document element.
func (s *ChromeSession) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page HTML: %w", err)
	}
	return html, nil
}

// Fill focuses the element, clears it and types value.
func (s *ChromeSession) Fill(ctx context.Context, selector, value string) error {
	err := s.run(ctx,
		chromedp.Focus(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return &ElementError{Action: "fill", Selector: selector, Cause: err}
	}
	return nil
}

// Click clicks the element once it is visible.
func (s *ChromeSession) Click(ctx context.Context, selector string) error {
	if err := s.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return &ElementError{Action: "click", Selector: selector, Cause: err}
	}
	return nil
}

// Check clicks a checkbox only when it is not already checked.
func (s *ChromeSession) Check(ctx context.Context, selector string) error {
	var checked bool
	script := fmt.Sprintf(`(() => { const el = document.querySelector(%q); return !!(el && el.checked); })()`, selector)
	if err := s.run(ctx, chromedp.Evaluate(script, &checked)); err != nil {
		return &ElementError{Action: "check", Selector: selector, Cause: err}
	}
	if checked {
		return nil
	}
	if err := s.run(ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return &ElementError{Action: "check", Selector: selector, Cause: err}
	}
	return nil
}

// Close shuts the tab and the browser process.
func (s *ChromeSession) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancelTab()
	s.cancelAlloc()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}
