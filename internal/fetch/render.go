package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/sync/semaphore"

	"github.com/submarine-osint/submarine/internal/models"
)

// Render is tier D: a headless browser shared by all pipelines in a worker.
// The browser launches lazily on first use; most runs never reach tier D.
type Render struct {
	logger  *slog.Logger
	sem     *semaphore.Weighted
	timeout time.Duration
	ua      string

	once     sync.Once
	browser  *rod.Browser
	launch   *launcher.Launcher
	startErr error
}

// RenderOptions tune tier D. Zero values select defaults.
type RenderOptions struct {
	UserAgent string
	Timeout   time.Duration
	MaxPages  int64
}

// NewRender builds the tier D fetcher without starting a browser.
func NewRender(logger *slog.Logger, opts RenderOptions) *Render {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUA
	}
	if opts.Timeout <= 0 {
		opts.Timeout = TimeoutTierD
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = ConcurrentD
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Render{
		logger:  logger.With("component", "render"),
		sem:     semaphore.NewWeighted(opts.MaxPages),
		timeout: opts.Timeout,
		ua:      opts.UserAgent,
	}
}

// start launches and connects the browser once.
func (r *Render) start() error {
	r.once.Do(func() {
		l := launcher.New().
			Headless(true).
			Set("disable-gpu").
			Set("no-sandbox").
			Set("disable-dev-shm-usage").
			Set("disable-background-networking").
			Set("window-size", "1920,1080").
			Set("lang", "en-US,en")

		u, err := l.Launch()
		if err != nil {
			r.startErr = fmt.Errorf("launch browser: %w", err)
			return
		}
		browser := rod.New().ControlURL(u)
		if err := browser.Connect(); err != nil {
			r.startErr = fmt.Errorf("connect browser: %w", err)
			return
		}
		r.launch = l
		r.browser = browser
		r.logger.Info("headless browser started")
	})
	return r.startErr
}

// Fetch renders one page and returns its post-load HTML.
func (r *Render) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	if err := r.start(); err != nil {
		return nil, err
	}
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	page, err := r.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: r.ua}); err != nil {
		r.logger.Warn("set user agent failed", "error", err)
	}
	if err := page.Navigate(rawURL); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}
	if len(html) < MinBodyBytes {
		return nil, fmt.Errorf("%s: %d bytes: %w", rawURL, len(html), ErrTooSmall)
	}

	return &Response{
		URL:         rawURL,
		Status:      200,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(html),
		Source:      models.SourceRender,
	}, nil
}

// Close shuts the browser down if it was started.
func (r *Render) Close() {
	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			r.logger.Warn("browser close failed", "error", err)
		}
	}
	if r.launch != nil {
		r.launch.Cleanup()
	}
}
