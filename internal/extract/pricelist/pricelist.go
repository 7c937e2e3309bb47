// Package pricelist reads service names, durations, and prices from price-list pages.
package pricelist

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/receptionist-onboarding/internal/extract/dom"
	"github.com/JakeFAU/receptionist-onboarding/internal/profile"
	"github.com/JakeFAU/receptionist-onboarding/internal/textnorm"
)

const (
	maxNameLength        = 120
	maxDescriptionLength = 300
)

var pathRe = regexp.MustCompile(`cenik|cennik|pricing|prices|price-list|services`)

// itemSelectors are tried in order; the first that yields a service wins.
var itemSelectors = []string{
	`[class*="price-list"] li, [class*="pricelist"] li, [class*="cenik"] li`,
	`[class*="price-item"], [class*="pricing-item"], [class*="service-item"], [class*="cenik-item"]`,
	`table tr`,
	`li`,
}

var (
	nameSelector  = `h1, h2, h3, h4, h5, h6, strong, b, [class*="name"], [class*="title"], [class*="nazev"]`
	priceSelector = `[class*="price"], [class*="cena"], [class*="right"], [style*="right"], [align="right"], strong, b`
	descSelector  = `p, [class*="desc"], [class*="popis"], small`
)

const number = `\d{1,3}(?:[ \x{00a0}.]\d{3})+|\d+`

var (
	// A dot followed by three digits groups thousands ("1.200"); one or two digits are a fraction ("12.50").
	priceRe = regexp.MustCompile(`(?i)(` + number + `)(?:[,.](\d{1,2}))?\s*(?:[-–—]\s*(` + number + `)(?:[,.]\d{1,2})?\s*)?(?:,-\s*)?(kč|kc|czk|€|eur|,-)`)
	// Longer units first: RE2 alternation is leftmost-first.
	durationRe = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:[-–—]\s*\d+(?:[.,]\d+)?\s*)?(minutes|minuty|minut|mins|min|hodiny|hodina|hodin|hod|hours|hour|hrs|hr|h)(?:\b|$)`)
)

// IsPriceListURL reports whether the page path looks like a price list.
func IsPriceListURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	p, err := url.PathUnescape(u.EscapedPath())
	if err != nil {
		p = u.Path
	}
	return pathRe.MatchString(textnorm.Fold(p))
}

// ExtractIfPriceListPage returns the services listed on a price-list page and nil
// for any other page.
func ExtractIfPriceListPage(rawURL, rawHTML string) []profile.Service {
	if !IsPriceListURL(rawURL) {
		return nil
	}
	doc, err := dom.Parse(rawHTML)
	if err != nil {
		return nil
	}
	for _, selector := range itemSelectors {
		if services := extractItems(doc.Find(selector)); len(services) > 0 {
			return services
		}
	}
	return nil
}

func extractItems(items *goquery.Selection) []profile.Service {
	var out []profile.Service
	seen := map[string]bool{}
	items.Each(func(_ int, item *goquery.Selection) {
		svc, ok := parseItem(item)
		if !ok {
			return
		}
		key := textnorm.Fold(svc.Name)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, svc)
	})
	return out
}

// parseItem reads one list item. Items with neither a duration nor a price are
// category headers and are rejected.
func parseItem(item *goquery.Selection) (profile.Service, bool) {
	// Nested lists belong to their own items.
	if item.Find("li, tr").Length() > 0 {
		return profile.Service{}, false
	}
	text := spacedText(item)
	if text == "" {
		return profile.Service{}, false
	}

	var svc profile.Service
	svc.DurationMinutes = ParseDuration(text)
	svc.PriceFrom, svc.PriceTo = itemPrice(item, text)
	if svc.DurationMinutes == nil && svc.PriceFrom == nil {
		return profile.Service{}, false
	}

	svc.Name = itemName(item, text)
	if svc.Name == "" || len([]rune(svc.Name)) > maxNameLength {
		return profile.Service{}, false
	}
	svc.Slug = textnorm.Slug(svc.Name)
	svc.Description = itemDescription(item, svc.Name)
	return svc, true
}

func itemName(item *goquery.Selection, text string) string {
	if goquery.NodeName(item) == "tr" {
		if cell := item.Find("td, th").First(); cell.Length() > 0 {
			if name := cleanName(dom.Line(cell)); name != "" {
				return name
			}
		}
	}
	var name string
	item.Find(nameSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name = cleanName(dom.Line(s))
		return name == ""
	})
	if name != "" {
		return name
	}
	return cleanName(text)
}

// cleanName strips price and duration phrases; pure price text yields "".
func cleanName(s string) string {
	s = priceRe.ReplaceAllString(s, " ")
	s = durationRe.ReplaceAllString(s, " ")
	s = strings.Trim(textnorm.Line(s), " -–—:·|/.,")
	if !strings.ContainsFunc(s, isLetter) {
		return ""
	}
	return s
}

func isLetter(r rune) bool {
	return r > 127 || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

func itemDescription(item *goquery.Selection, name string) string {
	var desc string
	item.Find(descSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v := dom.Line(s)
		if v == "" || v == name || priceRe.MatchString(v) || durationRe.MatchString(v) {
			return true
		}
		desc = v
		return false
	})
	if len([]rune(desc)) > maxDescriptionLength {
		return ""
	}
	return desc
}

// itemPrice prefers a dedicated price slot and falls back to the whole item text.
// For table rows the last cell is the slot.
func itemPrice(item *goquery.Selection, text string) (*float64, *float64) {
	if goquery.NodeName(item) == "tr" {
		if from, to := ParsePrice(dom.Line(item.Find("td, th").Last())); from != nil {
			return from, to
		}
	}
	var from, to *float64
	item.Find(priceSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		from, to = ParsePrice(dom.Line(s))
		return from == nil
	})
	if from != nil {
		return from, to
	}
	return ParsePrice(text)
}

// ParsePrice reads "450 Kč", "1 200 Kč", "12.50 €", "350,-", or a range such as "300–500 Kč".
// PriceTo is set only for ranges.
func ParsePrice(s string) (*float64, *float64) {
	m := priceRe.FindStringSubmatch(s)
	if m == nil {
		return nil, nil
	}
	from, ok := amount(m[1], m[2])
	if !ok {
		return nil, nil
	}
	if m[3] == "" {
		return profile.FloatPtr(from), nil
	}
	to, ok := amount(m[3], "")
	if !ok || to < from {
		return profile.FloatPtr(from), nil
	}
	return profile.FloatPtr(from), profile.FloatPtr(to)
}

func amount(whole, fraction string) (float64, bool) {
	whole = strings.NewReplacer(" ", "", "\u00a0", "", ".", "").Replace(whole)
	if fraction != "" {
		whole += "." + fraction
	}
	v, err := strconv.ParseFloat(whole, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// ParseDuration reads "60 min", "1,5 h", or "2 hodiny" as minutes. Ranges keep the lower bound.
func ParseDuration(s string) *int {
	m := durationRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil || v <= 0 {
		return nil
	}
	if unit := strings.ToLower(m[2]); strings.HasPrefix(unit, "h") {
		v *= 60
	}
	minutes := int(math.Round(v))
	if minutes <= 0 {
		return nil
	}
	return profile.IntPtr(minutes)
}

// spacedText joins every text node of sel with spaces so adjacent inline elements
// do not run together.
func spacedText(sel *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return textnorm.Line(strings.Join(parts, " "))
}
