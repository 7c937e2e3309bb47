// Package headless renders pages in a headless Chrome session via chromedp.
package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/receptionist-onboarding/internal/crawler"
)

// DefaultUserAgent is a current desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"

// DefaultFallbackPaths are tried in order after the configured exec path and
// chromedp's own discovery.
var DefaultFallbackPaths = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/snap/bin/chromium",
}

// Config controls the behavior of the renderer.
type Config struct {
	ExecPath       string
	FallbackPaths  []string
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	IdleTimeout    time.Duration
	DOMTimeout     time.Duration
	SettleDelay    time.Duration
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = 1366
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = 900
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 8 * time.Second
	}
	if c.DOMTimeout <= 0 {
		c.DOMTimeout = 20 * time.Second
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	if c.FallbackPaths == nil {
		c.FallbackPaths = DefaultFallbackPaths
	}
	return c
}

// Renderer implements crawler.Renderer with one browser process per instance.
type Renderer struct {
	cfg           Config
	logger        *zap.Logger
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	closeOnce     sync.Once
}

// Factory returns a crawler.RendererFactory that launches a fresh browser per crawl.
func Factory(cfg Config, logger *zap.Logger) crawler.RendererFactory {
	return func(ctx context.Context) (crawler.Renderer, error) {
		return New(ctx, cfg, logger)
	}
}

// New launches a browser. Each candidate binary is tried in order; when none starts,
// the error wraps crawler.ErrBrowserUnavailable.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Renderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	var lastErr error
	for _, candidate := range execCandidates(cfg) {
		if candidate != "" {
			resolved, err := exec.LookPath(candidate)
			if err != nil {
				lastErr = err
				continue
			}
			candidate = resolved
		}
		r, err := launch(ctx, cfg, candidate, logger)
		if err == nil {
			logger.Debug("browser launched", zap.String("exec_path", displayPath(candidate)))
			return r, nil
		}
		lastErr = err
		logger.Warn("browser launch failed", zap.String("exec_path", displayPath(candidate)), zap.Error(err))
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("launch browser: %w", ctx.Err())
	}
	return nil, fmt.Errorf("%w: %v", crawler.ErrBrowserUnavailable, lastErr)
}

// execCandidates lists the configured path, chromedp's default discovery (""),
// then the fallbacks, without duplicates.
func execCandidates(cfg Config) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(p string) {
		key := filepath.Clean(p)
		if p == "" {
			key = ""
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	if cfg.ExecPath != "" {
		add(cfg.ExecPath)
	}
	add("")
	for _, p := range cfg.FallbackPaths {
		if strings.TrimSpace(p) != "" {
			add(p)
		}
	}
	return out
}

func displayPath(p string) string {
	if p == "" {
		return "default"
	}
	return p
}

func launch(ctx context.Context, cfg Config, execPath string, logger *zap.Logger) (*Renderer, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	// The browser outlives individual requests; only Close tears it down.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}
	return &Renderer{
		cfg:           cfg,
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close tears down the browser process. It is safe to call more than once.
func (r *Renderer) Close() error {
	if r == nil {
		return nil
	}
	r.closeOnce.Do(func() {
		r.browserCancel()
		r.allocCancel()
	})
	return nil
}

// Render navigates to rawURL in a new tab and returns the rendered DOM, title, and
// visible text.
func (r *Renderer) Render(ctx context.Context, rawURL string) (crawler.RenderedPage, error) {
	if r.browserCtx.Err() != nil {
		return crawler.RenderedPage{}, fmt.Errorf("%w: browser session closed", crawler.ErrBrowserUnavailable)
	}

	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()
	stopForward := forwardCancel(ctx, cancelTab)
	defer stopForward()

	meta := newResponseMeta()
	chromedp.ListenTarget(tabCtx, meta.captureEvent)

	if err := chromedp.Run(tabCtx, r.setupAction()); err != nil {
		return crawler.RenderedPage{}, fmt.Errorf("tab setup: %w", err)
	}
	if err := r.navigate(tabCtx, rawURL); err != nil {
		return crawler.RenderedPage{}, err
	}

	var (
		html     string
		title    string
		finalURL string
		text     string
	)
	actions := chromedp.Tasks{
		chromedp.Sleep(r.cfg.SettleDelay),
		chromedp.Location(&finalURL),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Evaluate(visibleTextScript, &text),
	}
	if err := chromedp.Run(tabCtx, actions); err != nil {
		return crawler.RenderedPage{}, fmt.Errorf("capture page: %w", err)
	}

	status, responseURL := meta.snapshot()
	if status == 0 {
		status = http.StatusOK
	}
	if finalURL == "" {
		finalURL = responseURL
	}
	if finalURL == "" {
		finalURL = rawURL
	}
	return crawler.RenderedPage{
		URL:         rawURL,
		FinalURL:    finalURL,
		Title:       strings.TrimSpace(title),
		HTML:        html,
		VisibleText: text,
		StatusCode:  status,
	}, nil
}

func (r *Renderer) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if err := emulation.SetUserAgentOverride(r.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		err := emulation.SetDeviceMetricsOverride(int64(r.cfg.ViewportWidth), int64(r.cfg.ViewportHeight), 1, false).Do(ctx)
		if err != nil {
			return fmt.Errorf("set viewport: %w", err)
		}
		if err := page.SetLifecycleEventsEnabled(true).Do(ctx); err != nil {
			return fmt.Errorf("enable lifecycle events: %w", err)
		}
		return nil
	})
}

// navStrategy waits for one lifecycle event after navigating.
type navStrategy struct {
	event   string
	timeout time.Duration
}

func (r *Renderer) strategies() []navStrategy {
	return []navStrategy{
		{event: "networkIdle", timeout: r.cfg.IdleTimeout},
		{event: "DOMContentLoaded", timeout: r.cfg.DOMTimeout},
	}
}

// navigate tries each strategy in order. Only a timeout moves on to the next one;
// any other error is returned immediately.
func (r *Renderer) navigate(tabCtx context.Context, rawURL string) error {
	var lastErr error
	for _, s := range r.strategies() {
		err := r.navigateOnce(tabCtx, rawURL, s)
		if err == nil {
			return nil
		}
		if !errors.Is(err, context.DeadlineExceeded) || tabCtx.Err() != nil {
			return err
		}
		r.logger.Debug("navigation strategy timed out",
			zap.String("url", rawURL), zap.String("wait_for", s.event), zap.Duration("timeout", s.timeout))
		lastErr = err
	}
	return lastErr
}

type lifecycleEvent struct {
	loaderID cdp.LoaderID
	name     string
}

func (r *Renderer) navigateOnce(tabCtx context.Context, rawURL string, s navStrategy) error {
	attemptCtx, cancel := context.WithTimeout(tabCtx, s.timeout)
	defer cancel()

	events := make(chan lifecycleEvent, 64)
	chromedp.ListenTarget(attemptCtx, func(ev any) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok {
			select {
			case events <- lifecycleEvent{loaderID: e.LoaderID, name: e.Name}:
			default:
			}
		}
	})

	err := chromedp.Run(attemptCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, loaderID, errorText, _, err := page.Navigate(rawURL).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("page load error %s", errorText)
		}
		for {
			select {
			case ev := <-events:
				if ev.name == s.event && (loaderID == "" || ev.loaderID == loaderID) {
					return nil
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}))
	if err != nil {
		return fmt.Errorf("navigate (%s): %w", s.event, err)
	}
	return nil
}

type responseMeta struct {
	mu     sync.RWMutex
	status int
	url    string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

// capture keeps the last document response, which is the final hop of a redirect chain.
func (m *responseMeta) capture(event *network.EventResponseReceived) {
	if event.Type != network.ResourceTypeDocument || event.Response == nil {
		return
	}
	m.mu.Lock()
	m.status = int(event.Response.Status)
	m.url = event.Response.URL
	m.mu.Unlock()
}

func (m *responseMeta) captureEvent(ev any) {
	if resp, ok := ev.(*network.EventResponseReceived); ok {
		m.capture(resp)
	}
}

func (m *responseMeta) snapshot() (int, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status, m.url
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
