package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRenderer struct {
	mu     sync.Mutex
	pages  map[string]RenderedPage
	errs   map[string]error
	calls  []string
	closed bool
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{pages: map[string]RenderedPage{}, errs: map[string]error{}}
}

func (f *fakeRenderer) add(url, title, html string) {
	f.pages[url] = RenderedPage{URL: url, FinalURL: url, Title: title, HTML: html, VisibleText: title, StatusCode: 200}
}

func (f *fakeRenderer) Render(_ context.Context, rawURL string) (RenderedPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rawURL)
	if err, ok := f.errs[rawURL]; ok {
		return RenderedPage{}, err
	}
	if p, ok := f.pages[rawURL]; ok {
		return p, nil
	}
	return RenderedPage{URL: rawURL, FinalURL: rawURL, StatusCode: 404}, nil
}

func (f *fakeRenderer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeRenderer) factory() RendererFactory {
	return func(context.Context) (Renderer, error) { return f, nil }
}

type staticSitemap []string

func (s staticSitemap) URLs(context.Context, string) ([]string, error) { return s, nil }

type recordingSinks struct {
	mu     sync.Mutex
	pages  []Page
	chunks []Chunk
}

func (r *recordingSinks) StorePage(_ context.Context, p Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = append(r.pages, p)
	return nil
}

func (r *recordingSinks) PublishChunks(_ context.Context, c []Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, c...)
	return nil
}

func anchors(paths ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, p := range paths {
		fmt.Fprintf(&b, `<a href="%s">%s</a>`, p, strings.Trim(p, "/"))
	}
	b.WriteString("</body></html>")
	return b.String()
}

func newTestEngine(t *testing.T, cfg Config, r *fakeRenderer, sitemap SitemapSource, sinks *recordingSinks) *Engine {
	t.Helper()
	var pages PageSink
	var chunks ChunkSink
	if sinks != nil {
		pages, chunks = sinks, sinks
	}
	e, err := NewEngine(cfg, r.factory(), sitemap, pages, chunks, zap.NewNop())
	require.NoError(t, err)
	return e
}

func TestCrawl_PageBudgetWithLinkFarm(t *testing.T) {
	t.Parallel()

	r := newFakeRenderer()
	var paths []string
	for i := 0; i < 50; i++ {
		p := fmt.Sprintf("/stranka-%d", i)
		paths = append(paths, p)
		r.add("https://salon.cz"+p, p, anchors(paths...))
	}
	r.add("https://salon.cz", "Salon", anchors(paths...))

	e := newTestEngine(t, Config{}, r, nil, nil)
	res, err := e.Crawl(context.Background(), Request{BaseURL: "https://salon.cz/", MaxDepth: 3, MaxPages: 5})
	require.NoError(t, err)
	require.Len(t, res.Pages, 5)
	require.LessOrEqual(t, len(r.calls), 5)
	require.True(t, r.closed)
}

func TestCrawl_NoDuplicateRenders(t *testing.T) {
	t.Parallel()

	r := newFakeRenderer()
	r.add("https://salon.cz", "Home", anchors("/a", "/b", "/a/", "/#top", "/a#x"))
	r.add("https://salon.cz/a", "A", anchors("/", "/b", "/a"))
	r.add("https://salon.cz/b", "B", anchors("/", "/a", "/b/"))

	e := newTestEngine(t, Config{}, r, staticSitemap{"https://salon.cz/a/", "https://salon.cz/b"}, nil)
	res, err := e.Crawl(context.Background(), Request{BaseURL: "https://salon.cz", MaxDepth: 5, MaxPages: 20})
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, c := range r.calls {
		require.False(t, seen[c], "rendered twice: %s", c)
		seen[c] = true
	}
	require.Len(t, res.Pages, 3)
}

func TestCrawl_RedirectToCrawledPageIsNotEmitted(t *testing.T) {
	t.Parallel()

	r := newFakeRenderer()
	r.add("https://salon.cz", "Home", anchors("/kontakt", "/old"))
	r.add("https://salon.cz/kontakt", "Kontakt", anchors("/"))
	r.pages["https://salon.cz/old"] = RenderedPage{
		URL:         "https://salon.cz/old",
		FinalURL:    "https://salon.cz/",
		Title:       "Home",
		HTML:        anchors("/novinky"),
		VisibleText: "Home",
		StatusCode:  200,
	}
	r.add("https://salon.cz/novinky", "Novinky", anchors("/"))
	sinks := &recordingSinks{}

	e := newTestEngine(t, Config{}, r, nil, sinks)
	res, err := e.Crawl(context.Background(), Request{BaseURL: "https://salon.cz", MaxDepth: 3, MaxPages: 10})
	require.NoError(t, err)

	var urls []string
	for _, p := range res.Pages {
		urls = append(urls, p.URL)
	}
	require.Equal(t, []string{"https://salon.cz", "https://salon.cz/kontakt"}, urls)
	require.Equal(t, 1, res.DuplicatePages)
	require.Zero(t, res.FailedPages)
	require.Len(t, sinks.pages, 2)
	require.NotContains(t, r.calls, "https://salon.cz/novinky")
}

func TestCrawl_PriorityLinkDequeuesFirst(t *testing.T) {
	t.Parallel()

	r := newFakeRenderer()
	r.add("https://salon.cz", "Home", `<a href="/galerie">Galerie</a><a href="/tym">Tým</a><a href="/kontakt">Kontakt</a>`)
	r.add("https://salon.cz/galerie", "Galerie", "")
	r.add("https://salon.cz/tym", "Tým", "")
	r.add("https://salon.cz/kontakt", "Kontakt", "")

	e := newTestEngine(t, Config{}, r, nil, nil)
	_, err := e.Crawl(context.Background(), Request{BaseURL: "https://salon.cz", MaxDepth: 1, MaxPages: 10})
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://salon.cz",
		"https://salon.cz/kontakt",
		"https://salon.cz/galerie",
		"https://salon.cz/tym",
	}, r.calls)
}

func TestCrawl_SeedingOrderAndExcludes(t *testing.T) {
	t.Parallel()

	r := newFakeRenderer()
	r.add("https://salon.cz", "Home", "")
	r.add("https://salon.cz/cenik", "Ceník", "")
	r.add("https://salon.cz/o-nas", "O nás", "")

	sitemap := staticSitemap{
		"https://salon.cz/o-nas",
		"https://salon.cz/blog/clanek",
		"https://jiny-web.cz/kontakt",
		"https://salon.cz/cenik/",
	}
	e := newTestEngine(t, Config{}, r, sitemap, nil)
	res, err := e.Crawl(context.Background(), Request{
		BaseURL:      "https://salon.cz",
		MaxDepth:     1,
		MaxPages:     10,
		ForcedPaths:  []string{"/cenik"},
		ExcludePaths: []string{"/blog"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"https://salon.cz", "https://salon.cz/cenik", "https://salon.cz/o-nas"}, r.calls)
	require.Len(t, res.Pages, 3)
	require.Equal(t, 1, res.Pages[1].Depth)
}

func TestCrawl_FailuresAreSkippedAndNotCounted(t *testing.T) {
	t.Parallel()

	r := newFakeRenderer()
	r.add("https://salon.cz", "Home", anchors("/rozbita", "/chybi", "/ok", "/dalsi"))
	r.errs["https://salon.cz/rozbita"] = errors.New("navigation timeout")
	r.add("https://salon.cz/ok", "OK", "")
	r.add("https://salon.cz/dalsi", "Další", "")

	e := newTestEngine(t, Config{}, r, nil, nil)
	res, err := e.Crawl(context.Background(), Request{BaseURL: "https://salon.cz", MaxDepth: 1, MaxPages: 3})
	require.NoError(t, err)
	require.Len(t, res.Pages, 3)
	require.Equal(t, 2, res.FailedPages)
	for _, p := range res.Pages {
		require.NotEqual(t, "https://salon.cz/rozbita", p.URL)
		require.NotEqual(t, "https://salon.cz/chybi", p.URL)
	}
}

func TestCrawl_BrowserUnavailableAborts(t *testing.T) {
	t.Parallel()

	r := newFakeRenderer()
	r.add("https://salon.cz", "Home", anchors("/a"))
	r.errs["https://salon.cz/a"] = fmt.Errorf("launch: %w", ErrBrowserUnavailable)

	e := newTestEngine(t, Config{}, r, nil, nil)
	res, err := e.Crawl(context.Background(), Request{BaseURL: "https://salon.cz", MaxDepth: 1, MaxPages: 5})
	require.ErrorIs(t, err, ErrBrowserUnavailable)
	require.Len(t, res.Pages, 1)
	require.True(t, r.closed)

	failing, err := NewEngine(Config{}, func(context.Context) (Renderer, error) {
		return nil, ErrBrowserUnavailable
	}, nil, nil, nil, nil)
	require.NoError(t, err)
	_, err = failing.Crawl(context.Background(), Request{BaseURL: "https://salon.cz"})
	require.ErrorIs(t, err, ErrBrowserUnavailable)
}

func TestCrawl_InvalidBaseURL(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, Config{}, newFakeRenderer(), nil, nil)
	_, err := e.Crawl(context.Background(), Request{BaseURL: "ftp://salon.cz"})
	require.ErrorIs(t, err, ErrInvalidBaseURL)
}

func TestCrawl_QueueCapBoundsFrontier(t *testing.T) {
	t.Parallel()

	r := newFakeRenderer()
	var paths []string
	for i := 0; i < 50; i++ {
		paths = append(paths, fmt.Sprintf("/p%d", i))
	}
	r.add("https://salon.cz", "Home", anchors(paths...))
	for _, p := range paths {
		r.add("https://salon.cz"+p, p, "")
	}

	e := newTestEngine(t, Config{QueueCap: 10, FanOutCap: 20}, r, nil, nil)
	res, err := e.Crawl(context.Background(), Request{BaseURL: "https://salon.cz", MaxDepth: 1, MaxPages: 100})
	require.NoError(t, err)
	require.Len(t, res.Pages, 11)
}

func TestCrawl_SinksAndBookingProviders(t *testing.T) {
	t.Parallel()

	r := newFakeRenderer()
	r.add("https://salon.cz", "Home", anchors("/rezervace"))
	r.pages["https://salon.cz/rezervace"] = RenderedPage{
		URL:         "https://salon.cz/rezervace",
		FinalURL:    "https://salon.cz/rezervace",
		Title:       "Rezervace",
		HTML:        `<script src="https://widget.reservio.com/embed.js"></script>`,
		VisibleText: strings.Repeat("Objednejte se online. ", 20),
		StatusCode:  200,
	}
	sinks := &recordingSinks{}

	e := newTestEngine(t, Config{ChunkSize: 100, ChunkOverlap: 10}, r, nil, sinks)
	res, err := e.Crawl(context.Background(), Request{BusinessID: "biz-1", BaseURL: "https://salon.cz", MaxDepth: 1, MaxPages: 5})
	require.NoError(t, err)
	require.Equal(t, []string{"reservio"}, res.BookingProviders)
	require.Len(t, sinks.pages, 2)
	require.Equal(t, []string{"reservio"}, sinks.pages[1].BookingProviders)
	require.Greater(t, res.ChunksCreated, 1)
	require.Len(t, sinks.chunks, res.ChunksCreated)
	for _, c := range sinks.chunks {
		require.Equal(t, "biz-1", c.BusinessID)
	}
}
