package crawler

import "errors"

// ErrBrowserUnavailable signals that no browser binary could be launched. It is
// configuration-fatal: the whole crawl aborts rather than skipping a page.
var ErrBrowserUnavailable = errors.New("browser unavailable")

// ErrInvalidBaseURL is returned when the crawl seed is not an absolute http(s) URL.
var ErrInvalidBaseURL = errors.New("invalid base url")

// Task is one frontier entry. URL is already normalized.
type Task struct {
	URL      string
	Depth    int
	Priority bool
}

// RenderedPage is what a Renderer returns for a single navigation.
type RenderedPage struct {
	URL         string
	FinalURL    string
	Title       string
	HTML        string
	VisibleText string
	StatusCode  int
}

// Page is a successfully crawled page. Pages are never mutated after the frontier emits them.
type Page struct {
	BusinessID       string   `json:"business_id,omitempty"`
	URL              string   `json:"url"`
	Depth            int      `json:"depth"`
	Title            string   `json:"title"`
	HTML             string   `json:"-"`
	VisibleText      string   `json:"-"`
	StatusCode       int      `json:"status_code"`
	BookingProviders []string `json:"booking_providers,omitempty"`
}

// Request captures the per-invocation crawl bounds.
type Request struct {
	BusinessID   string
	BaseURL      string
	MaxDepth     int
	MaxPages     int
	ExcludePaths []string
	ForcedPaths  []string
}

// Result is returned by Engine.Crawl.
type Result struct {
	Pages            []Page
	BookingProviders []string
	ChunksCreated    int
	FailedPages      int
	// DuplicatePages counts renders that redirected to a page already crawled this run.
	DuplicatePages int
}

// Link is an in-domain link discovered on a page.
type Link struct {
	URL      string
	Text     string
	Priority bool
}

// Chunk is a slice of visible page text handed to the downstream indexer.
type Chunk struct {
	BusinessID string `json:"business_id,omitempty"`
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
}
