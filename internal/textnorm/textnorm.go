// Package textnorm cleans, folds, and chunks page text.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultChunkSize is the target chunk length in runes.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the number of runes repeated between neighbouring chunks.
	DefaultChunkOverlap = 100
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\p{Zs}]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
	nonSlug         = regexp.MustCompile(`[^a-z0-9]+`)
	invisible       = strings.NewReplacer("\u200b", "", "\u200c", "", "\u200d", "", "\ufeff", "", "\u00ad", "")
)

// Clean collapses whitespace runs, drops zero-width characters, and trims each line.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	s = invisible.Replace(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = horizontalSpace.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Line collapses all whitespace, newlines included, into single spaces.
func Line(s string) string {
	return strings.Join(strings.Fields(invisible.Replace(s)), " ")
}

// Lines returns the non-empty cleaned lines of s.
func Lines(s string) []string {
	var out []string
	for _, line := range strings.Split(Clean(s), "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// StripDiacritics removes combining marks, so "Pánský střih" becomes "Pansky strih".
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold lower-cases s and strips diacritics; it is the comparison form used by matchers.
func Fold(s string) string {
	return strings.ToLower(StripDiacritics(Line(s)))
}

// Slug returns a URL-safe identifier built from the folded form of s.
func Slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(Fold(s), "-"), "-")
}

// Chunk splits text into pieces of roughly size runes, breaking on whitespace and
// repeating overlap runes of context between neighbours.
func Chunk(text string, size, overlap int) []string {
	text = Clean(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	words := strings.Fields(text)
	var (
		chunks  []string
		current []string
		length  int
	)
	for _, w := range words {
		wl := len([]rune(w))
		if length > 0 && length+1+wl > size {
			chunks = append(chunks, strings.Join(current, " "))
			current, length = tail(current, overlap)
		}
		if length > 0 {
			length++
		}
		current = append(current, w)
		length += wl
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// tail keeps the trailing words of a chunk whose combined length fits in overlap.
func tail(words []string, overlap int) ([]string, int) {
	if overlap == 0 {
		return nil, 0
	}
	length := 0
	start := len(words)
	for i := len(words) - 1; i >= 0; i-- {
		wl := len([]rune(words[i]))
		if length+wl+1 > overlap {
			break
		}
		length += wl + 1
		start = i
	}
	kept := append([]string(nil), words[start:]...)
	if len(kept) == 0 {
		return nil, 0
	}
	return kept, length - 1
}
