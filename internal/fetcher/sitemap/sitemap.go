// Package sitemap reads a site's /sitemap.xml with gocolly.
package sitemap

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
)

// Config controls collector behavior.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxURLs     int
	MaxSitemaps int
}

// Fetcher implements crawler.SitemapSource using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxURLs <= 0 {
		cfg.MaxURLs = 200
	}
	if cfg.MaxSitemaps <= 0 {
		cfg.MaxSitemaps = 5
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	return &Fetcher{cfg: cfg, baseCollector: c}
}

// result gathers URLs across the root sitemap and any nested sitemaps.
type result struct {
	mu       sync.Mutex
	urls     []string
	seen     map[string]struct{}
	sitemaps int
	rootErr  error
	rootURL  string
	status   int
}

// URLs returns page URLs listed in baseURL's /sitemap.xml, following a sitemap
// index one level deep. A missing sitemap is not an error.
func (f *Fetcher) URLs(ctx context.Context, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Hostname() == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	sitemapURL := (&url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/sitemap.xml"}).String()

	res := &result{seen: map[string]struct{}{}, rootURL: sitemapURL}
	collector := f.buildCollector(base, res)
	runErr := runCollector(ctx, collector, sitemapURL)
	if ctx.Err() != nil {
		return nil, runErr
	}

	res.mu.Lock()
	defer res.mu.Unlock()
	if res.rootErr != nil {
		if res.status == http.StatusNotFound || res.status == http.StatusGone {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch sitemap: %w", res.rootErr)
	}
	if runErr != nil {
		return nil, runErr
	}
	return res.urls, nil
}

func (f *Fetcher) buildCollector(base *url.URL, res *result) *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.AllowedDomains = []string{base.Hostname()}

	collector.OnXML("//urlset/url/loc", func(e *colly.XMLElement) {
		loc := strings.TrimSpace(e.Text)
		if loc == "" {
			return
		}
		res.mu.Lock()
		defer res.mu.Unlock()
		if len(res.urls) >= f.cfg.MaxURLs {
			return
		}
		if _, dup := res.seen[loc]; dup {
			return
		}
		res.seen[loc] = struct{}{}
		res.urls = append(res.urls, loc)
	})

	collector.OnXML("//sitemapindex/sitemap/loc", func(e *colly.XMLElement) {
		loc := strings.TrimSpace(e.Text)
		res.mu.Lock()
		if loc == "" || res.sitemaps >= f.cfg.MaxSitemaps {
			res.mu.Unlock()
			return
		}
		res.sitemaps++
		res.mu.Unlock()
		// Nested sitemaps on other hosts are rejected by AllowedDomains.
		_ = e.Request.Visit(loc)
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r == nil || r.Request == nil || r.Request.URL.String() != res.rootURL {
			return
		}
		res.mu.Lock()
		res.rootErr = err
		res.status = r.StatusCode
		res.mu.Unlock()
	})
	return collector
}

func runCollector(ctx context.Context, collector *colly.Collector, target string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("sitemap fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("sitemap visit failed: %w", err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
	}
}
