// Package detector recognises third-party booking widgets embedded in pages.
package detector

import (
	"sort"
	"strings"
)

// Generic is reported when a page looks like it embeds a booking widget that
// none of the known fingerprints match.
const Generic = "generic"

// Signature maps a provider id to the lower-cased substrings that identify it.
type Signature struct {
	Provider string
	Markers  []string
}

// DefaultSignatures is the built-in fingerprint table.
var DefaultSignatures = []Signature{
	{Provider: "reservio", Markers: []string{"reservio.com", "reservio.cz", "widget.reservio"}},
	{Provider: "bookio", Markers: []string{"bookio.com", "services.bookio"}},
	{Provider: "calendly", Markers: []string{"calendly.com", "assets.calendly"}},
	{Provider: "simplybook", Markers: []string{"simplybook.me", "simplybook.it", "simplybook.cz"}},
	{Provider: "fresha", Markers: []string{"fresha.com", "shedul.com"}},
	{Provider: "booksy", Markers: []string{"booksy.com", "booksy.net"}},
	{Provider: "setmore", Markers: []string{"setmore.com"}},
	{Provider: "acuityscheduling", Markers: []string{"acuityscheduling.com"}},
	{Provider: "treatwell", Markers: []string{"treatwell.", "widget.treatwell"}},
	{Provider: "noona", Markers: []string{"noona.is", "noona.app"}},
	{Provider: "reservanto", Markers: []string{"reservanto.cz", "reservanto.com"}},
	{Provider: "mylocalsalon", Markers: []string{"mylocalsalon.", "mylocal.salon"}},
}

var genericTokens = []string{"booking", "rezervace", "rezervovat", "objednavka", "reservation"}

// Detector matches pages against a signature table.
type Detector struct {
	signatures []Signature
}

// New returns a Detector for the given table, or DefaultSignatures when empty.
func New(signatures []Signature) *Detector {
	if len(signatures) == 0 {
		signatures = DefaultSignatures
	}
	return &Detector{signatures: signatures}
}

// Detect returns the sorted provider ids whose fingerprints occur in the URL or HTML.
// Several providers may match one page. Generic is returned only when nothing
// specific matched but the page carries an iframe and a booking token.
func (d *Detector) Detect(pageURL, html string) []string {
	haystack := strings.ToLower(pageURL + "\n" + html)
	var found []string
	for _, sig := range d.signatures {
		for _, marker := range sig.Markers {
			if strings.Contains(haystack, marker) {
				found = append(found, sig.Provider)
				break
			}
		}
	}
	if len(found) == 0 && strings.Contains(haystack, "<iframe") {
		for _, tok := range genericTokens {
			if strings.Contains(haystack, tok) {
				return []string{Generic}
			}
		}
	}
	sort.Strings(found)
	return found
}

// DetectBookingProviders runs the default table.
func DetectBookingProviders(pageURL, html string) []string {
	return defaultDetector.Detect(pageURL, html)
}

var defaultDetector = New(nil)

// Set accumulates provider ids across a crawl.
type Set map[string]struct{}

// Add inserts ids into the set.
func (s Set) Add(ids ...string) {
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
}

// Sorted returns the ids in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
