package contact

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/JakeFAU/receptionist-onboarding/internal/extract/locale"
	"github.com/JakeFAU/receptionist-onboarding/internal/textnorm"
)

var (
	// "Vinohradská 12", "Náměstí Svobody 12/3a", "nám. Míru 5"
	streetRe = regexp.MustCompile(`(?:\p{Lu}|nám\.|ul\.|tř\.)[\p{L}.'\-]*(?:\s+[\p{L}][\p{L}.'\-]*){0,4}\s+\d{1,4}(?:/\d{1,4})?[a-zA-Z]?\b`)
	// "120 00 Praha 2", "60200 Brno"
	postalCityRe = regexp.MustCompile(`\b\d{3}\s?\d{2}\s+\p{Lu}[\p{L}\-]+(?:\s+(?:\p{L}[\p{L}\-]*|\d{1,2}))?(?:\s+(?:\p{L}[\p{L}\-]*|\d{1,2}))?`)
	postalRe     = regexp.MustCompile(`\b\d{3}\s?\d{2}\b`)
	digitRe      = regexp.MustCompile(`\d`)
)

// addressCandidate is an address-shaped substring with its confidence score.
type addressCandidate struct {
	value string
	score int
}

// FindAddresses returns the distinct address-shaped substrings of text, in order.
func FindAddresses(text string) []string {
	var out []string
	seen := map[string]bool{}
	lines := textnorm.Lines(text)
	for i := range lines {
		for _, v := range addressesOnLine(lines, i) {
			key := AddressKey(v)
			if !seen[key] {
				seen[key] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// addressesOnLine returns the address candidates starting on lines[i]. A street line
// followed by a "postal code + city" line is joined into one address.
func addressesOnLine(lines []string, i int) []string {
	line := lines[i]
	var out []string
	if loc := streetIndex(line); loc != nil {
		v := strings.TrimRight(line[loc[0]:], " ,;")
		if !postalRe.MatchString(v) && i+1 < len(lines) {
			if m := postalCityRe.FindString(lines[i+1]); m != "" && strings.HasPrefix(lines[i+1], m) {
				v = v + ", " + m
			}
		}
		out = append(out, trimAddress(v))
		return out
	}
	if m := postalCityRe.FindString(line); m != "" {
		// Skip the postal line already joined to a street on the previous line.
		if i > 0 && streetIndex(lines[i-1]) != nil && !postalRe.MatchString(lines[i-1]) && strings.HasPrefix(line, m) {
			return nil
		}
		out = append(out, trimAddress(m))
	}
	return out
}

// streetIndex locates a street and house number on line. A match inside the
// "postal code + city" part, such as "Praha 2", is not a street.
func streetIndex(line string) []int {
	street := streetRe.FindStringIndex(line)
	if street == nil {
		return nil
	}
	if postal := postalCityRe.FindStringIndex(line); postal != nil && postal[0] <= street[0] {
		return nil
	}
	return street
}

func trimAddress(v string) string {
	v = textnorm.Line(v)
	if r := []rune(v); len(r) > 120 {
		v = string(r[:120])
	}
	return strings.TrimRight(v, " ,;-")
}

// AddressKey normalizes an address for deduplication.
func AddressKey(v string) string {
	f := textnorm.Fold(v)
	return strings.Join(strings.FieldsFunc(f, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}

// HasDigit reports whether s contains a digit.
func HasDigit(s string) bool { return digitRe.MatchString(s) }

// scoreAddress rates a candidate on lines[i] using its own shape and the label or
// legal keywords on the same line and the two lines before it.
func scoreAddress(l *locale.Locale, value string, lines []string, i int) int {
	score := shapeScore(l, value)
	from := i - 2
	if from < 0 {
		from = 0
	}
	context := strings.Join(lines[from:i+1], "\n")
	if locale.ContainsAny(context, l.AddressLabels) {
		score += 3
	}
	if locale.ContainsAny(context, l.LegalKeywords) {
		score -= 4
	}
	return score
}

func shapeScore(l *locale.Locale, value string) int {
	score := 0
	if streetIndex(value) != nil {
		score += 2
	}
	if postalRe.MatchString(value) {
		score += 2
	}
	if l.CityOf(value) != "" {
		score++
	}
	if locale.ContainsAny(value, l.JunkTokens) {
		score -= 3
	}
	return score
}

func textAddressCandidates(l *locale.Locale, text string) []addressCandidate {
	var out []addressCandidate
	lines := textnorm.Lines(text)
	for i := range lines {
		for _, v := range addressesOnLine(lines, i) {
			if n := len([]rune(v)); n < 8 || n > 120 {
				continue
			}
			out = append(out, addressCandidate{value: v, score: scoreAddress(l, v, lines, i)})
		}
	}
	return out
}

// best returns the highest-scoring candidate; ties keep document order.
func best(cands []addressCandidate) (addressCandidate, bool) {
	var top addressCandidate
	found := false
	for _, c := range cands {
		if !found || c.score > top.score {
			top, found = c, true
		}
	}
	return top, found
}
