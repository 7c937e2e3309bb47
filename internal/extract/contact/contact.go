// Package contact extracts a business phone, email, and address from crawled pages.
package contact

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/receptionist-onboarding/internal/crawler"
	"github.com/JakeFAU/receptionist-onboarding/internal/extract/dom"
	"github.com/JakeFAU/receptionist-onboarding/internal/extract/locale"
	"github.com/JakeFAU/receptionist-onboarding/internal/extract/structured"
	"github.com/JakeFAU/receptionist-onboarding/internal/textnorm"
)

// Kind names a contact field.
type Kind string

// Contact fields.
const (
	KindPhone   Kind = "phone"
	KindEmail   Kind = "email"
	KindAddress Kind = "address"
)

// Strategy names how a candidate was found, in priority order.
type Strategy string

// Extraction strategies.
const (
	StrategyStructured Strategy = "structured"
	StrategyLink       Strategy = "link"
	StrategyText       Strategy = "text"
	StrategyDOM        Strategy = "dom"
	StrategySummary    Strategy = "summary"
)

// structuredScore marks structured-data addresses as fully trusted.
const structuredScore = 100

// Candidate is one extracted value with its provenance.
type Candidate struct {
	Value     string   `json:"value"`
	Kind      Kind     `json:"kind"`
	Strategy  Strategy `json:"strategy"`
	SourceURL string   `json:"source_url"`
	Score     int      `json:"score"`
}

// Result is the reduced contact data for a page or a whole crawl.
type Result struct {
	Phone   string
	Email   string
	Address string
	Sources map[Kind]Candidate
	// Cities lists the known cities mentioned, in order of first appearance.
	Cities []string
}

// AddressIsSummary reports whether Address is a multi-city summary rather than a street address.
func (r Result) AddressIsSummary() bool {
	return r.Sources[KindAddress].Strategy == StrategySummary
}

func (r *Result) set(c Candidate) {
	if r.Sources == nil {
		r.Sources = map[Kind]Candidate{}
	}
	r.Sources[c.Kind] = c
	switch c.Kind {
	case KindPhone:
		r.Phone = c.Value
	case KindEmail:
		r.Email = c.Value
	case KindAddress:
		r.Address = c.Value
	}
}

// Extractor runs the contact strategies with a given locale.
type Extractor struct {
	locale       *locale.Locale
	placeholders []string
}

// New returns an Extractor. A nil locale selects locale.Default.
func New(l *locale.Locale) *Extractor {
	if l == nil {
		l = locale.Default()
	}
	return &Extractor{locale: l, placeholders: DefaultPlaceholderDomains}
}

var defaultExtractor = New(nil)

// ExtractFromPage runs the default extractor over one page.
func ExtractFromPage(html, pageURL string) Result {
	return defaultExtractor.ExtractFromPage(html, pageURL)
}

// ExtractFromPages runs the default extractor over a crawl.
func ExtractFromPages(pages []crawler.Page) Result {
	return defaultExtractor.ExtractFromPages(pages)
}

// ExtractFromPage extracts contact data from raw HTML. Text is derived from the DOM.
func (e *Extractor) ExtractFromPage(html, pageURL string) Result {
	return e.extract(html, "", pageURL)
}

func (e *Extractor) extract(html, visibleText, pageURL string) Result {
	doc, _ := dom.Parse(html)
	text := visibleText
	if text == "" && doc != nil {
		text = dom.BodyText(doc)
	}

	var data structured.Data
	if doc != nil {
		data = structured.FromDocument(doc)
	}

	var r Result
	r.Cities = e.locale.CitiesIn(text)
	if c, ok := e.phone(doc, data, text, pageURL); ok {
		r.set(c)
	}
	if c, ok := e.email(doc, data, text, pageURL); ok {
		r.set(c)
	}
	if c, ok := e.address(doc, data, text, r.Cities, pageURL); ok {
		r.set(c)
	}
	return r
}

func (e *Extractor) phone(doc *goquery.Document, data structured.Data, text, pageURL string) (Candidate, bool) {
	cand := Candidate{Kind: KindPhone, SourceURL: pageURL}
	if v := NormalizePhone(data.Telephone, e.locale.CountryCode); v != "" {
		cand.Value, cand.Strategy = v, StrategyStructured
		return cand, true
	}
	if doc != nil {
		var found string
		doc.Find(`a[href^="tel:"], a[href^="TEL:"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			found = NormalizePhone(href[len("tel:"):], e.locale.CountryCode)
			return found == ""
		})
		if found != "" {
			cand.Value, cand.Strategy = found, StrategyLink
			return cand, true
		}
	}
	if v := e.phoneFromText(text); v != "" {
		cand.Value, cand.Strategy = v, StrategyText
		return cand, true
	}
	return Candidate{}, false
}

var phoneLabels = []string{"tel", "telefon", "mobil", "phone", "volejte", "zavolejte", "gsm"}

var nonPhoneContext = []string{"ico", "ic", "dic", "ucet", "uctu", "iban", "account", "bic", "swift", "banka", "bankovni", "spojeni", "bank", "banking"}

// phoneFromText prefers numbers on labelled lines, then any number.
func (e *Extractor) phoneFromText(text string) string {
	lines := textnorm.Lines(text)
	for _, labelled := range []bool{true, false} {
		for _, line := range lines {
			if labelled && locale.CountWords(line, phoneLabels) == 0 {
				continue
			}
			if locale.CountWords(line, nonPhoneContext) > 0 {
				continue
			}
			for _, m := range findPhones(line) {
				if v := NormalizePhone(m, e.locale.CountryCode); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

func (e *Extractor) email(doc *goquery.Document, data structured.Data, text, pageURL string) (Candidate, bool) {
	cand := Candidate{Kind: KindEmail, SourceURL: pageURL}
	if v := CleanEmail(data.Email, e.placeholders); v != "" {
		cand.Value, cand.Strategy = v, StrategyStructured
		return cand, true
	}
	if doc != nil {
		var found string
		doc.Find(`a[href^="mailto:"], a[href^="MAILTO:"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			found = CleanEmail(href[len("mailto:"):], e.placeholders)
			return found == ""
		})
		if found != "" {
			cand.Value, cand.Strategy = found, StrategyLink
			return cand, true
		}
	}
	for _, m := range findEmails(text) {
		if v := CleanEmail(m, e.placeholders); v != "" {
			cand.Value, cand.Strategy = v, StrategyText
			return cand, true
		}
	}
	return Candidate{}, false
}

// address applies structured data, scored text candidates, DOM proximity, and the
// multi-city summary, in that order. A low-confidence guess is returned last.
func (e *Extractor) address(
	doc *goquery.Document,
	data structured.Data,
	text string,
	cities []string,
	pageURL string,
) (Candidate, bool) {
	cand := Candidate{Kind: KindAddress, SourceURL: pageURL}
	if data.Address != "" {
		cand.Value, cand.Strategy, cand.Score = data.Address, StrategyStructured, structuredScore
		return cand, true
	}

	threshold := e.locale.AddressThreshold
	textBest, textOK := best(textAddressCandidates(e.locale, text))
	if textOK && textBest.score >= threshold {
		cand.Value, cand.Strategy, cand.Score = textBest.value, StrategyText, textBest.score
		return cand, true
	}
	domBest, domOK := best(e.domAddressCandidates(doc))
	if domOK && domBest.score >= threshold {
		cand.Value, cand.Strategy, cand.Score = domBest.value, StrategyDOM, domBest.score
		return cand, true
	}
	if len(cities) >= 2 {
		cand.Value, cand.Strategy = Summary(cities), StrategySummary
		return cand, true
	}

	var guess addressCandidate
	var strategy Strategy
	if textOK && textBest.score > 0 && HasDigit(textBest.value) {
		guess, strategy = textBest, StrategyText
	}
	if domOK && domBest.score > guess.score && HasDigit(domBest.value) {
		guess, strategy = domBest, StrategyDOM
	}
	if guess.value == "" {
		return Candidate{}, false
	}
	cand.Value, cand.Strategy, cand.Score = guess.value, strategy, guess.score
	return cand, true
}

// Summary is the literal multi-city address used when no single address is trustworthy.
func Summary(cities []string) string {
	return strings.Join(cities, ", ")
}

const domProximityBonus = 3

var mapLinkSelector = strings.Join([]string{
	`a[href*="maps.google"]`, `a[href*="google.com/maps"]`, `a[href*="goo.gl/maps"]`,
	`a[href*="maps.app.goo.gl"]`, `a[href*="mapy.cz"]`, `a[href*="mapy.com"]`,
}, ", ")

var addressLabelRe = regexp.MustCompile(`^(adresa|kde nas najdete|najdete nas|provozovna|address|location)\s*:?$`)

// domAddressCandidates looks at address-like elements: <address>, map links,
// address classes, and the sibling that follows a short address label.
func (e *Extractor) domAddressCandidates(doc *goquery.Document) []addressCandidate {
	if doc == nil {
		return nil
	}
	var blocks []string
	doc.Find(`address, [class*="address"], [class*="adresa"], [itemprop="address"]`).Each(func(_ int, s *goquery.Selection) {
		blocks = append(blocks, dom.Text(s))
	})
	doc.Find(mapLinkSelector).Each(func(_ int, s *goquery.Selection) {
		blocks = append(blocks, dom.Text(s))
	})
	doc.Find("h2, h3, h4, h5, strong, b, dt, th, span, p").Each(func(_ int, s *goquery.Selection) {
		label := textnorm.Fold(dom.Line(s))
		if len(label) > 30 || !addressLabelRe.MatchString(label) {
			return
		}
		if next := s.Next(); next.Length() > 0 {
			blocks = append(blocks, dom.Text(next))
		}
	})

	var out []addressCandidate
	for _, block := range blocks {
		lines := textnorm.Lines(block)
		if len(lines) == 0 {
			continue
		}
		value := trimAddress(strings.Join(lines, ", "))
		if n := len([]rune(value)); n < 8 || n > 120 || !HasDigit(value) {
			continue
		}
		score := shapeScore(e.locale, value) + domProximityBonus
		if locale.ContainsAny(block, e.locale.LegalKeywords) {
			score -= 4
		}
		out = append(out, addressCandidate{value: value, score: score})
	}
	return out
}

var (
	contactPageRe = regexp.MustCompile(`kontakt|contact|spojeni`)
	aboutPageRe   = regexp.MustCompile(`o-nas|o nas|about|o-salonu|o-studiu|kdo-jsme`)
)

func pageRank(p crawler.Page) int {
	s := textnorm.Fold(p.URL + " " + p.Title)
	switch {
	case contactPageRe.MatchString(s):
		return 0
	case aboutPageRe.MatchString(s):
		return 1
	default:
		return 2
	}
}

// ExtractFromPages merges per-page results. Contact pages are read first, then about
// pages, then the rest in crawl order; the first value found wins, except that a
// high-confidence address replaces a low-confidence one. It stops once every field
// is resolved with confidence. When no trusted address exists and two or more
// cities appear across the pages, the address is the multi-city summary.
func (e *Extractor) ExtractFromPages(pages []crawler.Page) Result {
	ordered := append([]crawler.Page(nil), pages...)
	sort.SliceStable(ordered, func(i, j int) bool { return pageRank(ordered[i]) < pageRank(ordered[j]) })

	var merged Result
	seenCity := map[string]bool{}
	threshold := e.locale.AddressThreshold
	for _, p := range ordered {
		r := e.extract(p.HTML, p.VisibleText, p.URL)
		for _, c := range r.Cities {
			if !seenCity[c] {
				seenCity[c] = true
				merged.Cities = append(merged.Cities, c)
			}
		}
		for _, kind := range []Kind{KindPhone, KindEmail} {
			if c, ok := r.Sources[kind]; ok && merged.Sources[kind].Value == "" {
				merged.set(c)
			}
		}
		if c, ok := r.Sources[KindAddress]; ok && c.Strategy != StrategySummary {
			cur := merged.Sources[KindAddress]
			if cur.Value == "" || (cur.Score < threshold && c.Score >= threshold) {
				merged.set(c)
			}
		}
		if merged.Phone != "" && merged.Email != "" && merged.Sources[KindAddress].Score >= threshold {
			break
		}
	}

	if merged.Sources[KindAddress].Score < threshold && len(merged.Cities) >= 2 {
		merged.set(Candidate{
			Value:    Summary(merged.Cities),
			Kind:     KindAddress,
			Strategy: StrategySummary,
		})
	}
	return merged
}
