package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/receptionist-onboarding/internal/textnorm"
)

// DefaultPriorityPatterns match folded anchor text or URL paths of pages that tend
// to carry contact, booking, pricing, or service information.
var DefaultPriorityPatterns = []string{
	`kontakt|contact|spojeni`,
	`rezervac|rezervov|objedna|booking|book-online|reservation`,
	`cenik|cennik|pricing|prices|price-list`,
	`sluzby|services|nabidka|procedury`,
}

// LinkClassifier extracts same-host links from HTML and tags high-value ones as priority.
type LinkClassifier struct {
	priority []*regexp.Regexp
}

// NewLinkClassifier compiles the given priority patterns, falling back to
// DefaultPriorityPatterns when none are supplied.
func NewLinkClassifier(patterns []string) (*LinkClassifier, error) {
	if len(patterns) == 0 {
		patterns = DefaultPriorityPatterns
	}
	c := &LinkClassifier{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile priority pattern %q: %w", p, err)
		}
		c.priority = append(c.priority, re)
	}
	return c, nil
}

// ExtractLinks runs the default classifier.
func ExtractLinks(base *url.URL, pageURL, html string) ([]Link, error) {
	c, err := NewLinkClassifier(nil)
	if err != nil {
		return nil, err
	}
	return c.Extract(base, pageURL, html)
}

// Extract returns the deduplicated in-domain links found on the page, in document
// order. Cross-host links, including third-party booking widgets, are dropped.
func (c *LinkClassifier) Extract(base *url.URL, pageURL, html string) ([]Link, error) {
	current, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := current.Parse(strings.TrimSpace(href)); err == nil {
			current = b
		}
	}

	var links []Link
	index := make(map[string]int)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		abs, ok := ResolveHref(current, href)
		if !ok || !SameHost(base, abs) {
			return
		}
		text := textnorm.Line(s.Text())
		if text == "" {
			text = textnorm.Line(s.AttrOr("title", s.AttrOr("aria-label", "")))
		}
		priority := c.IsPriority(abs, text)
		if i, seen := index[abs]; seen {
			if priority && !links[i].Priority {
				links[i].Priority = true
			}
			return
		}
		index[abs] = len(links)
		links = append(links, Link{URL: abs, Text: text, Priority: priority})
	})
	return links, nil
}

// IsPriority reports whether the anchor text or URL path matches a priority pattern.
func (c *LinkClassifier) IsPriority(rawURL, anchorText string) bool {
	candidates := []string{textnorm.Fold(anchorText)}
	if u, err := url.Parse(rawURL); err == nil {
		p, _ := url.PathUnescape(u.Path)
		candidates = append(candidates, textnorm.Fold(p))
	}
	for _, re := range c.priority {
		for _, s := range candidates {
			if s != "" && re.MatchString(s) {
				return true
			}
		}
	}
	return false
}
