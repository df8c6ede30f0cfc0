package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const (
	// TitleMarker appears once the event detail screen has rendered.
	TitleMarker = `[class*="EventDetailOverviewScreen_title"]`

	SettleTimeout = 30 * time.Second
	MarkerTimeout = 10 * time.Second
)

// RenderOptions configures a RenderFetcher. Zero values use the defaults.
type RenderOptions struct {
	// ExecPath is the Chrome binary. Empty lets chromedp search for one.
	ExecPath      string
	UserAgent     string
	Marker        string
	SettleTimeout time.Duration
	MarkerTimeout time.Duration
}

// RenderFetcher loads a page in headless Chrome and returns the DOM after
// scripts have run. Every Fetch starts and tears down its own browser.
type RenderFetcher struct {
	opts RenderOptions
}

// NewRenderFetcher creates a RenderFetcher.
func NewRenderFetcher(opts RenderOptions) *RenderFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = UserAgent
	}
	if opts.Marker == "" {
		opts.Marker = TitleMarker
	}
	if opts.SettleTimeout <= 0 {
		opts.SettleTimeout = SettleTimeout
	}
	if opts.MarkerTimeout <= 0 {
		opts.MarkerTimeout = MarkerTimeout
	}
	return &RenderFetcher{opts: opts}
}

// Fetch implements Fetcher. It waits for the network to go idle, then for the
// marker element, each bounded by its own timeout.
func (f *RenderFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(f.opts.UserAgent),
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	if f.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(f.opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	// The first Run starts the browser. It must not use a context with a
	// deadline, or the browser is killed when that deadline passes.
	if err := chromedp.Run(tabCtx); err != nil {
		return "", &FetchError{Kind: Network, URL: rawURL, Err: fmt.Errorf("starting browser: %w", err)}
	}

	var (
		mu        sync.Mutex
		docLoader cdp.LoaderID
		docStatus int64
		idleOnce  sync.Once
		idle      = make(chan struct{})
	)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if e.Type != network.ResourceTypeDocument || e.Response == nil {
				return
			}
			mu.Lock()
			if docLoader == "" {
				docLoader = e.LoaderID
				docStatus = e.Response.Status
			}
			mu.Unlock()
		case *page.EventLifecycleEvent:
			if e.Name != "networkIdle" {
				return
			}
			mu.Lock()
			ours := docLoader != "" && e.LoaderID == docLoader
			mu.Unlock()
			if ours {
				idleOnce.Do(func() { close(idle) })
			}
		}
	})

	navCtx, cancelNav := context.WithTimeout(tabCtx, f.opts.SettleTimeout)
	defer cancelNav()

	err := chromedp.Run(navCtx,
		network.Enable(),
		page.SetLifecycleEventsEnabled(true),
		chromedp.Navigate(rawURL),
	)
	if err != nil {
		return "", f.fail(ctx, navCtx, Timeout, rawURL, fmt.Errorf("navigating: %w", err))
	}

	mu.Lock()
	status := docStatus
	mu.Unlock()
	if status >= 400 {
		return "", &FetchError{Kind: Status, URL: rawURL, StatusCode: int(status)}
	}

	select {
	case <-idle:
	case <-navCtx.Done():
		return "", f.fail(ctx, navCtx, Timeout, rawURL, fmt.Errorf("waiting for network idle: %w", navCtx.Err()))
	}

	markerCtx, cancelMarker := context.WithTimeout(tabCtx, f.opts.MarkerTimeout)
	defer cancelMarker()

	if err := chromedp.Run(markerCtx, chromedp.WaitReady(f.opts.Marker, chromedp.ByQuery)); err != nil {
		return "", f.fail(ctx, markerCtx, ContentNotRendered, rawURL, fmt.Errorf("waiting for %s: %w", f.opts.Marker, err))
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", &FetchError{Kind: Network, URL: rawURL, Err: fmt.Errorf("reading document: %w", err)}
	}

	return html, nil
}

// fail classifies err: if the step's own deadline expired the failure is of
// kind onDeadline, otherwise it is a network failure or the caller's timeout.
func (f *RenderFetcher) fail(parent, step context.Context, onDeadline FetchErrorKind, rawURL string, err error) error {
	switch {
	case parent.Err() != nil:
		kind := Network
		if errors.Is(parent.Err(), context.DeadlineExceeded) {
			kind = Timeout
		}
		return &FetchError{Kind: kind, URL: rawURL, Err: err}
	case errors.Is(step.Err(), context.DeadlineExceeded):
		if onDeadline == ContentNotRendered {
			err = fmt.Errorf("%w: %v", ErrContentNotRendered, err)
		}
		return &FetchError{Kind: onDeadline, URL: rawURL, Err: err}
	default:
		return &FetchError{Kind: Network, URL: rawURL, Err: err}
	}
}
