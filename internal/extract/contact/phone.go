package contact

import (
	"regexp"
	"strings"
)

var (
	// International numbers with an explicit prefix, e.g. "+420 608 744 774" or "00420608744774".
	intlPhoneRe = regexp.MustCompile(`(?:\+|\b00)\d{1,3}[\s.\-/]?\(?\d{2,4}\)?(?:[\s.\-/]?\d{2,4}){2,3}\b`)
	// Bare local numbers in 3-3-3 groups, e.g. "608 744 774".
	localPhoneRe = regexp.MustCompile(`\b\d{3}[\s.\-]?\d{3}[\s.\-]?\d{3}\b`)
	nonDigitRe   = regexp.MustCompile(`\D`)
)

// NormalizePhone converts a raw phone string to "+<country code><digits>". Bare
// nine-digit numbers get defaultCountryCode. It returns "" for anything that does
// not look like a callable number.
func NormalizePhone(raw, defaultCountryCode string) string {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "tel:"))
	if raw == "" {
		return ""
	}
	plus := strings.HasPrefix(raw, "+")
	digits := nonDigitRe.ReplaceAllString(raw, "")
	if !plus && strings.HasPrefix(digits, "00") {
		plus = true
		digits = digits[2:]
	}
	cc := nonDigitRe.ReplaceAllString(defaultCountryCode, "")
	switch {
	case plus:
	case len(digits) == 9 && cc != "":
		digits = cc + digits
	case cc != "" && strings.HasPrefix(digits, cc) && len(digits) == len(cc)+9:
	default:
		return ""
	}
	if len(digits) < 8 || len(digits) > 15 {
		return ""
	}
	return "+" + digits
}

// findPhones returns phone-shaped substrings of text, international ones first.
func findPhones(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, re := range []*regexp.Regexp{intlPhoneRe, localPhoneRe} {
		for _, m := range re.FindAllString(text, -1) {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}
