package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/receptionist-onboarding/internal/detector"
	"github.com/JakeFAU/receptionist-onboarding/internal/metrics"
	"github.com/JakeFAU/receptionist-onboarding/internal/policy/ratelimit"
	"github.com/JakeFAU/receptionist-onboarding/internal/textnorm"
)

const (
	// DefaultFanOutCap bounds how many links a single page may enqueue.
	DefaultFanOutCap = 50
	// DefaultQueueCap bounds the total number of queued tasks.
	DefaultQueueCap = 400
	// DefaultMaxPages applies when a request does not set a page budget.
	DefaultMaxPages = 25
	// DefaultMaxDepth applies when a request does not set a depth bound.
	DefaultMaxDepth = 2
)

// Config holds the engine-wide crawl settings. Per-run bounds live on Request.
type Config struct {
	FanOutCap         int
	QueueCap          int
	PolitenessDelay   time.Duration
	ChunkSize         int
	ChunkOverlap      int
	PriorityPatterns  []string
	BookingSignatures []detector.Signature
}

func (c Config) withDefaults() Config {
	if c.FanOutCap <= 0 {
		c.FanOutCap = DefaultFanOutCap
	}
	if c.QueueCap <= 0 {
		c.QueueCap = DefaultQueueCap
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = textnorm.DefaultChunkSize
		if c.ChunkOverlap == 0 {
			c.ChunkOverlap = textnorm.DefaultChunkOverlap
		}
	}
	return c
}

// Engine runs bounded, priority-aware crawls of a single site. Every Crawl call
// builds its own frontier; host politeness is shared across calls.
type Engine struct {
	cfg        Config
	open       RendererFactory
	sitemap    SitemapSource
	pages      PageSink
	chunks     ChunkSink
	classifier *LinkClassifier
	detector   *detector.Detector
	hosts      *ratelimit.Limiter
	logger     *zap.Logger
}

// NewEngine wires an Engine. sitemap, pages, and chunks may be nil.
func NewEngine(
	cfg Config,
	open RendererFactory,
	sitemap SitemapSource,
	pages PageSink,
	chunks ChunkSink,
	logger *zap.Logger,
) (*Engine, error) {
	if open == nil {
		return nil, errors.New("renderer factory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	classifier, err := NewLinkClassifier(cfg.PriorityPatterns)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:        cfg,
		open:       open,
		sitemap:    sitemap,
		pages:      pages,
		chunks:     chunks,
		classifier: classifier,
		detector:   detector.New(cfg.BookingSignatures),
		hosts:      ratelimit.New(ratelimit.Config{Interval: cfg.PolitenessDelay}),
		logger:     logger,
	}, nil
}

// crawlRun is the state of one Crawl invocation.
type crawlRun struct {
	base     *url.URL
	req      Request
	queue    *frontierQueue
	seen     map[string]struct{}
	visited  map[string]struct{}
	booking  detector.Set
	result   Result
	renderer Renderer
}

// Crawl walks the site breadth-first from req.BaseURL. Seeds are the base URL at
// depth 0, then forced paths and sitemap URLs at depth 1. It stops when the queue is
// empty or req.MaxPages pages have been rendered. Per-page failures are skipped; only
// an invalid base URL or ErrBrowserUnavailable abort the crawl.
func (e *Engine) Crawl(ctx context.Context, req Request) (Result, error) {
	base, err := ParseBaseURL(req.BaseURL)
	if err != nil {
		return Result{}, err
	}
	if req.MaxPages <= 0 {
		req.MaxPages = DefaultMaxPages
	}
	if req.MaxDepth < 0 {
		req.MaxDepth = 0
	}

	renderer, err := e.open(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("open renderer: %w", err)
	}
	defer func() {
		if cerr := renderer.Close(); cerr != nil {
			e.logger.Warn("renderer close failed", zap.Error(cerr))
		}
	}()

	run := &crawlRun{
		base:     base,
		req:      req,
		queue:    newFrontierQueue(e.cfg.QueueCap),
		seen:     make(map[string]struct{}),
		visited:  make(map[string]struct{}),
		booking:  detector.Set{},
		renderer: renderer,
	}
	e.seed(ctx, run)

	for len(run.result.Pages) < req.MaxPages {
		task, ok := run.queue.Pop()
		if !ok {
			break
		}
		if _, done := run.visited[task.URL]; done || task.Depth > req.MaxDepth {
			continue
		}
		if err := ctx.Err(); err != nil {
			return e.finish(run), fmt.Errorf("crawl interrupted: %w", err)
		}
		run.visited[task.URL] = struct{}{}
		if err := e.process(ctx, run, task); err != nil {
			return e.finish(run), err
		}
	}
	return e.finish(run), nil
}

func (e *Engine) finish(run *crawlRun) Result {
	run.result.BookingProviders = run.booking.Sorted()
	e.logger.Info("crawl finished",
		zap.String("base_url", run.base.String()),
		zap.Int("pages", len(run.result.Pages)),
		zap.Int("failed", run.result.FailedPages),
		zap.Int("duplicates", run.result.DuplicatePages),
		zap.Int("chunks", run.result.ChunksCreated),
		zap.Strings("booking_providers", run.result.BookingProviders),
	)
	return run.result
}

func (e *Engine) seed(ctx context.Context, run *crawlRun) {
	// The base URL sits in the priority tier so it renders ahead of forced paths.
	e.enqueue(run, run.base.String(), 0, true)
	for _, forced := range run.req.ForcedPaths {
		abs, ok := ResolveHref(run.base, forced)
		if !ok {
			e.logger.Debug("skipping forced path", zap.String("path", forced))
			continue
		}
		e.enqueue(run, abs, 1, true)
	}
	if e.sitemap == nil {
		return
	}
	urls, err := e.sitemap.URLs(ctx, run.base.String())
	if err != nil {
		e.logger.Warn("sitemap unavailable", zap.String("base_url", run.base.String()), zap.Error(err))
		return
	}
	for _, u := range urls {
		e.enqueue(run, u, 1, false)
	}
}

// enqueue normalizes rawURL, applies the host and exclude filters, and pushes it
// unless it was already seen or the queue is full.
func (e *Engine) enqueue(run *crawlRun, rawURL string, depth int, priority bool) bool {
	normalized, err := NormalizeURL(rawURL)
	if err != nil || !SameHost(run.base, normalized) {
		return false
	}
	if IsExcluded(normalized, run.req.ExcludePaths) {
		return false
	}
	if _, dup := run.seen[normalized]; dup {
		return false
	}
	if !run.queue.Push(Task{URL: normalized, Depth: depth, Priority: priority}) {
		return false
	}
	run.seen[normalized] = struct{}{}
	return true
}

// process renders one task. Only ErrBrowserUnavailable and context errors from the
// politeness wait are returned; everything else is a per-page failure.
func (e *Engine) process(ctx context.Context, run *crawlRun, task Task) error {
	if err := e.hosts.Wait(ctx, task.URL); err != nil {
		return fmt.Errorf("politeness wait: %w", err)
	}

	logger := e.logger.With(zap.String("url", task.URL), zap.Int("depth", task.Depth))
	rendered, err := run.renderer.Render(ctx, task.URL)
	if err != nil {
		if errors.Is(err, ErrBrowserUnavailable) {
			return err
		}
		e.pageFailed(run, logger, task, err)
		return nil
	}
	if rendered.StatusCode != 0 && (rendered.StatusCode < 200 || rendered.StatusCode > 299) {
		e.pageFailed(run, logger, task, fmt.Errorf("http status %d", rendered.StatusCode))
		return nil
	}

	linkBase := task.URL
	if rendered.FinalURL != "" && SameHost(run.base, rendered.FinalURL) {
		if final, err := NormalizeURL(rendered.FinalURL); err == nil {
			if _, done := run.visited[final]; done && final != task.URL {
				run.result.DuplicatePages++
				metrics.ObservePage(task.URL, "duplicate")
				logger.Debug("redirected to a crawled page", zap.String("final_url", final))
				return nil
			}
			linkBase = final
			run.visited[final] = struct{}{}
			run.seen[final] = struct{}{}
		}
	}

	var links []Link
	discover := task.Depth < run.req.MaxDepth && len(run.result.Pages)+1 < run.req.MaxPages
	if discover {
		links, err = e.classifier.Extract(run.base, linkBase, rendered.HTML)
		if err != nil {
			e.pageFailed(run, logger, task, fmt.Errorf("extract links: %w", err))
			return nil
		}
	}

	page := Page{
		BusinessID:       run.req.BusinessID,
		URL:              task.URL,
		Depth:            task.Depth,
		Title:            rendered.Title,
		HTML:             rendered.HTML,
		VisibleText:      rendered.VisibleText,
		StatusCode:       rendered.StatusCode,
		BookingProviders: e.detector.Detect(task.URL, rendered.HTML),
	}
	run.booking.Add(page.BookingProviders...)
	run.result.Pages = append(run.result.Pages, page)
	metrics.ObservePage(task.URL, "ok")

	if e.pages != nil {
		if err := e.pages.StorePage(ctx, page); err != nil {
			logger.Warn("store page failed", zap.Error(err))
		}
	}
	e.publishChunks(ctx, run, logger, page)

	added := 0
	for _, link := range links {
		if added >= e.cfg.FanOutCap || run.queue.Full() {
			break
		}
		if e.enqueue(run, link.URL, task.Depth+1, link.Priority) {
			added++
		}
	}
	logger.Debug("page crawled", zap.Int("links_found", len(links)), zap.Int("links_enqueued", added))
	return nil
}

func (e *Engine) pageFailed(run *crawlRun, logger *zap.Logger, task Task, err error) {
	run.result.FailedPages++
	metrics.ObservePage(task.URL, "failed")
	logger.Warn("page skipped", zap.Error(err))
}

func (e *Engine) publishChunks(ctx context.Context, run *crawlRun, logger *zap.Logger, page Page) {
	if e.chunks == nil {
		return
	}
	texts := textnorm.Chunk(page.VisibleText, e.cfg.ChunkSize, e.cfg.ChunkOverlap)
	if len(texts) == 0 {
		return
	}
	chunks := make([]Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = Chunk{
			BusinessID: run.req.BusinessID,
			URL:        page.URL,
			Title:      page.Title,
			Index:      i,
			Text:       text,
		}
	}
	if err := e.chunks.PublishChunks(ctx, chunks); err != nil {
		logger.Warn("publish chunks failed", zap.Error(err))
		return
	}
	run.result.ChunksCreated += len(chunks)
	metrics.ObserveChunks(page.URL, len(chunks))
}
