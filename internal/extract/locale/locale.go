// Package locale carries the language- and country-specific word lists and
// thresholds that the extractors are tuned with.
package locale

import (
	"regexp"
	"sort"
	"strings"

	"github.com/JakeFAU/receptionist-onboarding/internal/textnorm"
)

// Locale is the tunable vocabulary of the extractors. Only relative precedence
// between rules is fixed in code; the lists and numbers live here.
type Locale struct {
	CountryCode          string
	Cities               []string
	CityAliases          map[string][]string
	AddressLabels        []string
	LegalKeywords        []string
	JunkTokens           []string
	GenericIndustryWords []string
	GenericAdjectives    []string
	AddressThreshold     int
	GenericNameThreshold int
	MaxLocations         int

	cityPatterns []cityPattern
}

type cityPattern struct {
	name string
	re   *regexp.Regexp
}

// Default returns the built-in Czech locale.
func Default() *Locale {
	l := &Locale{
		CountryCode: "420",
		Cities: []string{
			"Praha", "Brno", "Ostrava", "Plzeň", "Liberec", "Olomouc", "České Budějovice",
			"Hradec Králové", "Ústí nad Labem", "Pardubice", "Zlín", "Havířov", "Kladno",
			"Most", "Opava", "Frýdek-Místek", "Karviná", "Jihlava", "Teplice", "Děčín",
			"Karlovy Vary", "Chomutov", "Jablonec nad Nisou", "Mladá Boleslav", "Prostějov",
			"Přerov", "Česká Lípa", "Třebíč", "Třinec", "Tábor", "Znojmo", "Kolín", "Příbram",
			"Cheb", "Písek", "Trutnov", "Kroměříž", "Říčany", "Beroun", "Benešov",
		},
		CityAliases: map[string][]string{
			"Praha":            {"Praze", "Prahy", "Prague"},
			"Brno":             {"Brně", "Brna"},
			"Ostrava":          {"Ostravě", "Ostravy"},
			"Plzeň":            {"Plzni", "Plzně", "Pilsen"},
			"Liberec":          {"Liberci"},
			"Olomouc":          {"Olomouci"},
			"České Budějovice": {"Českých Budějovicích"},
			"Hradec Králové":   {"Hradci Králové"},
			"Pardubice":        {"Pardubicích"},
			"Zlín":             {"Zlíně"},
		},
		AddressLabels: []string{
			"adresa", "kde nás najdete", "najdete nás", "provozovna", "pobočka", "kontakt",
			"address", "location", "visit us", "salon se nachází",
		},
		LegalKeywords: []string{
			"ičo", "ič:", "dič", "sídlo", "sídlem", "zapsán", "zapsaná", "obchodním rejstříku",
			"spisová značka", "fakturační", "registered office", "company id", "vat id",
		},
		JunkTokens: []string{
			"kč", "czk", "€", "$", "eur", "sleva", "akce", "zdarma", "cookies", "newsletter",
			"copyright", "©", "všechna práva", "gdpr", "dárkový poukaz", "voucher",
		},
		GenericIndustryWords: []string{
			"salon", "kadeřnictví", "kadeřnický", "kosmetika", "kosmetický", "kosmetické",
			"studio", "beauty", "hair", "barber", "barbershop", "nails", "nehty", "spa",
			"masáže", "wellness", "centrum", "klinika", "clinic", "úvod", "domů", "home",
			"vítejte", "welcome", "rezervace", "online", "ceník", "kontakt", "služby",
		},
		GenericAdjectives: []string{
			"klasický", "klasická", "klasické", "luxusní", "základní", "kompletní",
			"profesionální", "exkluzivní", "speciální", "tradiční", "premium", "basic",
			"classic", "deluxe",
		},
		AddressThreshold:     4,
		GenericNameThreshold: 10,
		MaxLocations:         5,
	}
	l.Compile()
	return l
}

// Compile prepares the city matchers. It must be called after the lists change.
func (l *Locale) Compile() {
	l.cityPatterns = l.cityPatterns[:0]
	for _, city := range l.Cities {
		forms := append([]string{city}, l.CityAliases[city]...)
		alts := make([]string, 0, len(forms))
		for _, f := range forms {
			if folded := textnorm.Fold(f); folded != "" {
				alts = append(alts, regexp.QuoteMeta(folded))
			}
		}
		if len(alts) == 0 {
			continue
		}
		// Longer forms first so "prahy" does not lose to a shorter prefix.
		sort.Slice(alts, func(i, j int) bool { return len(alts[i]) > len(alts[j]) })
		re := regexp.MustCompile(`(?:^|[^a-z0-9])(?:` + strings.Join(alts, "|") + `)(?:[^a-z0-9]|$)`)
		l.cityPatterns = append(l.cityPatterns, cityPattern{name: city, re: re})
	}
}

func (l *Locale) patterns() []cityPattern {
	if len(l.cityPatterns) == 0 && len(l.Cities) > 0 {
		l.Compile()
	}
	return l.cityPatterns
}

// CitiesIn returns the canonical names of the known cities mentioned in text,
// ordered by first appearance.
func (l *Locale) CitiesIn(text string) []string {
	folded := textnorm.Fold(text)
	type hit struct {
		name string
		pos  int
	}
	var hits []hit
	for _, p := range l.patterns() {
		if loc := p.re.FindStringIndex(folded); loc != nil {
			hits = append(hits, hit{name: p.name, pos: loc[0]})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}

// CityOf returns the first known city mentioned in text, or "".
func (l *Locale) CityOf(text string) string {
	if cities := l.CitiesIn(text); len(cities) > 0 {
		return cities[0]
	}
	return ""
}

// ContainsAny reports whether the folded text contains any folded token.
func ContainsAny(text string, tokens []string) bool {
	return CountAny(text, tokens) > 0
}

// CountAny counts how many distinct tokens occur in the folded text.
func CountAny(text string, tokens []string) int {
	folded := textnorm.Fold(text)
	n := 0
	for _, t := range tokens {
		if ft := textnorm.Fold(t); ft != "" && strings.Contains(folded, ft) {
			n++
		}
	}
	return n
}

// CountWords counts how many tokens occur in text as whole words.
func CountWords(text string, tokens []string) int {
	words := map[string]struct{}{}
	for _, w := range strings.FieldsFunc(textnorm.Fold(text), isWordSep) {
		words[w] = struct{}{}
	}
	n := 0
	for _, t := range tokens {
		if _, ok := words[textnorm.Fold(t)]; ok {
			n++
		}
	}
	return n
}

func isWordSep(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
}
