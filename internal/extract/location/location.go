// Package location turns the addresses and city signals of a crawl into a short,
// canonical list of business branches.
package location

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/receptionist-onboarding/internal/crawler"
	"github.com/JakeFAU/receptionist-onboarding/internal/detector"
	"github.com/JakeFAU/receptionist-onboarding/internal/extract/contact"
	"github.com/JakeFAU/receptionist-onboarding/internal/extract/dom"
	"github.com/JakeFAU/receptionist-onboarding/internal/extract/locale"
	"github.com/JakeFAU/receptionist-onboarding/internal/profile"
	"github.com/JakeFAU/receptionist-onboarding/internal/textnorm"
)

const maxHeadingName = 60

// Input is everything the resolver looks at.
type Input struct {
	Pages            []crawler.Page
	ProfileAddress   string
	BookingProviders []string
}

// Resolver builds location lists for one locale.
type Resolver struct {
	locale *locale.Locale
}

// New returns a Resolver. A nil locale selects locale.Default.
func New(l *locale.Locale) *Resolver {
	if l == nil {
		l = locale.Default()
	}
	return &Resolver{locale: l}
}

var defaultResolver = New(nil)

// Resolve runs the default resolver.
func Resolve(in Input) []profile.Location {
	return defaultResolver.Resolve(in)
}

type candidate struct {
	address string
	city    string
	base    bool
}

type signal struct {
	city string
	name string
}

// Resolve applies the branch rules: several addresses give one location per
// address, a single address shared by several named branches gives one location
// per name, and with no usable address the names and then the profile address are
// used alone. Each city keeps one canonical address and the list is capped.
func (r *Resolver) Resolve(in Input) []profile.Location {
	addresses := r.addressCandidates(in)
	signals := r.signals(in.Pages)

	var locs []profile.Location
	switch {
	case len(addresses) > 1:
		for _, c := range r.canonical(addresses) {
			locs = append(locs, profile.Location{Name: nameFor(c.city, signals), Address: c.address})
		}
	case len(addresses) == 1 && len(signals) > 1:
		for _, s := range signals {
			locs = append(locs, profile.Location{Name: s.name, Address: addresses[0].address})
		}
	case len(addresses) == 1:
		c := addresses[0]
		locs = append(locs, profile.Location{Name: nameFor(c.city, signals), Address: c.address})
	case len(signals) > 0:
		for _, s := range signals {
			locs = append(locs, profile.Location{Name: s.name})
		}
	case r.valid(in.ProfileAddress):
		locs = append(locs, profile.Location{Address: textnorm.Line(in.ProfileAddress)})
	}

	if limit := r.locale.MaxLocations; limit > 0 && len(locs) > limit {
		locs = locs[:limit]
	}
	r.attachProviders(locs, in)
	return locs
}

// addressCandidates returns the valid, distinct addresses: the profile address
// first, then those found in page text in crawl order.
func (r *Resolver) addressCandidates(in Input) []candidate {
	var out []candidate
	seen := map[string]bool{}
	add := func(addr string, base bool) {
		addr = textnorm.Line(addr)
		if !r.valid(addr) {
			return
		}
		key := contact.AddressKey(addr)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, candidate{address: addr, city: r.locale.CityOf(addr), base: base})
	}
	add(in.ProfileAddress, true)
	for _, p := range in.Pages {
		for _, addr := range contact.FindAddresses(pageText(p)) {
			add(addr, false)
		}
	}
	return out
}

// valid keeps address-shaped strings only, which also rejects multi-city summaries.
func (r *Resolver) valid(addr string) bool {
	n := len([]rune(addr))
	return n >= 8 && n <= 120 &&
		contact.HasDigit(addr) &&
		r.locale.CityOf(addr) != "" &&
		!locale.ContainsAny(addr, r.locale.JunkTokens)
}

// canonical keeps one address per city, in order of first appearance.
func (r *Resolver) canonical(cands []candidate) []candidate {
	var order []string
	byCity := map[string]candidate{}
	for _, c := range cands {
		cur, ok := byCity[c.city]
		if !ok {
			order = append(order, c.city)
			byCity[c.city] = c
			continue
		}
		if r.better(c, cur) {
			byCity[c.city] = c
		}
	}
	out := make([]candidate, 0, len(order))
	for _, city := range order {
		out = append(out, byCity[city])
	}
	return out
}

// better orders same-city candidates: the profile base, then a subdivision-qualified
// address, then the shorter one, then alphabetical.
func (r *Resolver) better(a, b candidate) bool {
	if a.base != b.base {
		return a.base
	}
	sa, sb := subdivided(a), subdivided(b)
	if sa != sb {
		return sa
	}
	la, lb := len([]rune(a.address)), len([]rune(b.address))
	if la != lb {
		return la < lb
	}
	return a.address < b.address
}

// subdivided reports a district qualifier after the city, such as "Praha 2" or "Brno-střed".
func subdivided(c candidate) bool {
	if c.city == "" {
		return false
	}
	re := regexp.MustCompile(regexp.QuoteMeta(textnorm.Fold(c.city)) + `(?:\s+\d{1,2}\b|\s*-\s*[a-z])`)
	return re.MatchString(textnorm.Fold(c.address))
}

// signals collects city signals from URL paths and h1-h3 headings, one per city.
// A heading that names the city is used as the branch name; otherwise the city is.
func (r *Resolver) signals(pages []crawler.Page) []signal {
	var out []signal
	index := map[string]int{}
	add := func(city, name string, fromHeading bool) {
		if i, ok := index[city]; ok {
			if fromHeading && out[i].name == city {
				out[i].name = name
			}
			return
		}
		index[city] = len(out)
		out = append(out, signal{city: city, name: name})
	}
	for _, p := range pages {
		for _, city := range r.locale.CitiesIn(pathWords(p.URL)) {
			add(city, city, false)
		}
		doc, err := dom.Parse(p.HTML)
		if err != nil {
			continue
		}
		doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
			heading := dom.Line(s)
			if heading == "" || len([]rune(heading)) > maxHeadingName {
				return
			}
			for _, city := range r.locale.CitiesIn(heading) {
				add(city, heading, true)
			}
		})
	}
	return out
}

func nameFor(city string, signals []signal) string {
	for _, s := range signals {
		if s.city == city {
			return s.name
		}
	}
	return city
}

// attachProviders gives each location the providers seen on pages whose URL path
// names the location's city. A single location gets every provider.
func (r *Resolver) attachProviders(locs []profile.Location, in Input) {
	if len(locs) == 1 {
		set := detector.Set{}
		set.Add(in.BookingProviders...)
		for _, p := range in.Pages {
			set.Add(p.BookingProviders...)
		}
		if len(set) > 0 {
			locs[0].BookingProviders = set.Sorted()
		}
		return
	}
	for i := range locs {
		city := r.locale.CityOf(locs[i].Name + " " + locs[i].Address)
		if city == "" {
			continue
		}
		set := detector.Set{}
		for _, p := range in.Pages {
			if len(p.BookingProviders) == 0 {
				continue
			}
			for _, c := range r.locale.CitiesIn(pathWords(p.URL)) {
				if c == city {
					set.Add(p.BookingProviders...)
				}
			}
		}
		if len(set) > 0 {
			locs[i].BookingProviders = set.Sorted()
		}
	}
}

// pathWords turns "/pobocky/brno-stred" into "pobocky brno stred".
func pathWords(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	p, err := url.PathUnescape(u.EscapedPath())
	if err != nil {
		p = u.Path
	}
	return strings.NewReplacer("/", " ", "-", " ", "_", " ", ".", " ").Replace(p)
}

func pageText(p crawler.Page) string {
	if p.VisibleText != "" {
		return p.VisibleText
	}
	doc, err := dom.Parse(p.HTML)
	if err != nil {
		return ""
	}
	return dom.BodyText(doc)
}
