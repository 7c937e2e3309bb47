// Package brand picks the business name from the page signals of a crawl.
package brand

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/receptionist-onboarding/internal/crawler"
	"github.com/JakeFAU/receptionist-onboarding/internal/extract/dom"
	"github.com/JakeFAU/receptionist-onboarding/internal/extract/locale"
	"github.com/JakeFAU/receptionist-onboarding/internal/extract/structured"
	"github.com/JakeFAU/receptionist-onboarding/internal/textnorm"
)

// Source names where a candidate came from.
type Source string

// Candidate sources, in collection order.
const (
	SourceStructured Source = "structured"
	SourceSiteName   Source = "site_name"
	SourceHeader     Source = "header"
	SourceLogo       Source = "logo"
	SourceTitle      Source = "title"
	SourceOracle     Source = "oracle"
)

const maxCandidateLength = 120

// Candidate is a scored business name.
type Candidate struct {
	Name   string `json:"name"`
	Source Source `json:"source"`
	Score  int    `json:"score"`
}

// Input is what the selector looks at.
type Input struct {
	Pages      []crawler.Page
	BaseURL    string
	OracleName string
}

type scoreInput struct {
	name          string
	folded        string
	words         []string
	domainTokens  []string
	domainCompact string
	genericWords  []string
}

// rule is one scoring predicate. match returns how many times the weight applies.
type rule struct {
	name   string
	weight int
	match  func(in scoreInput) int
}

func boolCount(b bool) int {
	if b {
		return 1
	}
	return 0
}

var trademarkRe = regexp.MustCompile(`[™®©℠]`)

var rules = []rule{
	{"domain_token", 35, func(in scoreInput) int { return boolCount(matchesDomain(in)) }},
	{"trademark", 25, func(in scoreInput) int { return boolCount(trademarkRe.MatchString(in.name)) }},
	{"short", 10, func(in scoreInput) int {
		return boolCount(len(in.words) <= 3 && len([]rune(in.name)) <= 30)
	}},
	{"long", -25, func(in scoreInput) int { return boolCount(len([]rune(in.name)) > 60) }},
	{"generic_word", -12, func(in scoreInput) int { return locale.CountWords(in.name, in.genericWords) }},
	{"mixed_case", 8, func(in scoreInput) int { return boolCount(mixedCase(in.name)) }},
	{"many_words", -10, func(in scoreInput) int { return boolCount(len(in.words) >= 4) }},
}

// Selector scores names for one locale.
type Selector struct {
	locale *locale.Locale
}

// New returns a Selector. A nil locale selects locale.Default.
func New(l *locale.Locale) *Selector {
	if l == nil {
		l = locale.Default()
	}
	return &Selector{locale: l}
}

var defaultSelector = New(nil)

// Select runs the default selector.
func Select(in Input) Candidate { return defaultSelector.Select(in) }

// Score runs the default scoring table.
func Score(name, baseURL string) int { return defaultSelector.Score(name, baseURL) }

// IsGeneric reports whether name scores below the default threshold.
func IsGeneric(name, baseURL string) bool { return defaultSelector.IsGeneric(name, baseURL) }

// Score sums the weights of every rule that matches name.
func (s *Selector) Score(name, baseURL string) int {
	name = textnorm.Line(name)
	if name == "" {
		return 0
	}
	tokens, compact := domainTokens(baseURL, s.locale.GenericIndustryWords)
	in := scoreInput{
		name:          name,
		folded:        textnorm.Fold(name),
		words:         strings.Fields(name),
		domainTokens:  tokens,
		domainCompact: compact,
		genericWords:  s.locale.GenericIndustryWords,
	}
	total := 0
	for _, r := range rules {
		total += r.weight * r.match(in)
	}
	return total
}

// IsGeneric reports whether name is empty or scores below the locale threshold.
func (s *Selector) IsGeneric(name, baseURL string) bool {
	if textnorm.Line(name) == "" {
		return true
	}
	return s.Score(name, baseURL) < s.locale.GenericNameThreshold
}

// Select collects candidates and returns the highest-scoring one; ties go to the
// earlier candidate.
func (s *Selector) Select(in Input) Candidate {
	var best Candidate
	found := false
	for _, c := range s.candidates(in) {
		c.Score = s.Score(c.Name, in.BaseURL)
		if !found || c.Score > best.Score {
			best, found = c, true
		}
	}
	return best
}

func (s *Selector) candidates(in Input) []Candidate {
	var out []Candidate
	seen := map[string]bool{}
	add := func(name string, src Source) {
		name = strings.Trim(textnorm.Line(name), " |-–—·:")
		if name == "" || len([]rune(name)) > maxCandidateLength {
			return
		}
		key := textnorm.Fold(name)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, Candidate{Name: name, Source: src})
	}

	for _, p := range homeFirst(in.Pages) {
		doc, err := dom.Parse(p.HTML)
		if err != nil {
			continue
		}
		data := structured.FromDocument(doc)
		add(data.Name, SourceStructured)
		add(data.SiteName, SourceSiteName)
		headerAnchors(doc).Each(func(_ int, sel *goquery.Selection) {
			add(dom.Line(sel), SourceHeader)
		})
		logoImages(doc).Each(func(_ int, sel *goquery.Selection) {
			alt, _ := sel.Attr("alt")
			add(alt, SourceLogo)
		})
		title := p.Title
		if title == "" {
			title = dom.Line(doc.Find("title").First())
		}
		for _, seg := range titleSegments(title) {
			add(seg, SourceTitle)
		}
	}
	add(in.OracleName, SourceOracle)
	return out
}

// homeFirst moves the shallowest page to the front, keeping crawl order otherwise.
func homeFirst(pages []crawler.Page) []crawler.Page {
	if len(pages) == 0 {
		return nil
	}
	home := 0
	for i, p := range pages {
		if p.Depth < pages[home].Depth {
			home = i
		}
	}
	out := make([]crawler.Page, 0, len(pages))
	out = append(out, pages[home])
	out = append(out, pages[:home]...)
	return append(out, pages[home+1:]...)
}

func headerAnchors(doc *goquery.Document) *goquery.Selection {
	return doc.Find(`header a[href="/"], header a[href="./"], a[class*="logo"], a[class*="brand"], .navbar-brand`).
		FilterFunction(func(_ int, s *goquery.Selection) bool {
			text := dom.Line(s)
			return text != "" && len([]rune(text)) <= 60
		})
}

func logoImages(doc *goquery.Document) *goquery.Selection {
	return doc.Find(`img[class*="logo"][alt], img[src*="logo"][alt], [class*="logo"] img[alt], header img[alt]`)
}

var titleSeparators = regexp.MustCompile(`\s+[|\-–—·:]\s+|\s*[|·]\s*`)

func titleSegments(title string) []string {
	title = textnorm.Line(title)
	if title == "" {
		return nil
	}
	return titleSeparators.Split(title, -1)
}

// domainTokens splits the registrable part of the host into words, dropping short
// and generic ones. compact is the whole label without separators.
func domainTokens(baseURL string, generic []string) ([]string, string) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return nil, ""
	}
	labels := strings.Split(strings.TrimPrefix(strings.ToLower(u.Hostname()), "www."), ".")
	if len(labels) > 1 {
		labels = labels[:len(labels)-1]
	}
	label := labels[len(labels)-1]
	var tokens []string
	for _, t := range strings.FieldsFunc(label, func(r rune) bool { return !unicode.IsLetter(r) }) {
		if len(t) >= 3 && locale.CountWords(t, generic) == 0 {
			tokens = append(tokens, t)
		}
	}
	compact := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, label)
	if len(compact) < 4 || len(tokens) == 0 {
		compact = ""
	}
	return tokens, compact
}

func matchesDomain(in scoreInput) bool {
	if in.domainCompact != "" {
		nameCompact := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, in.folded)
		if strings.Contains(nameCompact, in.domainCompact) {
			return true
		}
	}
	return locale.CountWords(in.folded, in.domainTokens) > 0
}

func mixedCase(s string) bool {
	var upper, lower bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		}
	}
	return upper && lower
}
