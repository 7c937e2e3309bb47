package crawler

import "context"

// Renderer fetches and JS-renders one URL at a time. A Renderer owns a browser
// session and must be closed on every exit path.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (RenderedPage, error)
	Close() error
}

// RendererFactory opens a fresh Renderer for a single crawl.
type RendererFactory func(ctx context.Context) (Renderer, error)

// SitemapSource lists URLs advertised by a site's /sitemap.xml.
type SitemapSource interface {
	URLs(ctx context.Context, baseURL string) ([]string, error)
}

// PageSink persists crawled pages.
type PageSink interface {
	StorePage(ctx context.Context, page Page) error
}

// ChunkSink receives text chunks for downstream indexing.
type ChunkSink interface {
	PublishChunks(ctx context.Context, chunks []Chunk) error
}
