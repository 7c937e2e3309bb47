package contact

import (
	"regexp"
	"strings"
)

var (
	emailRe      = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,24}\b`)
	obfuscatedAt = regexp.MustCompile(`(?i)\s*(?:\(at\)|\[at\]|\{at\}|\(zavinac\)|\(zavináč\)|\[zavináč\])\s*`)
	obfuscatedDt = regexp.MustCompile(`(?i)\s*(?:\(dot\)|\[dot\]|\(tečka\)|\[tečka\])\s*`)
)

// DefaultPlaceholderDomains are never accepted as business addresses.
var DefaultPlaceholderDomains = []string{
	"example.com", "example.org", "domain.com", "email.com", "yourdomain.com", "sentry.io",
	"sentry-next.wixpress.com", "wixpress.com", "mysite.com", "test.com", "company.com",
}

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".avif", ".bmp"}

// CleanEmail lower-cases an address and rejects placeholders and asset names
// such as "logo@2x.png".
func CleanEmail(raw string, placeholders []string) string {
	e := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "mailto:")))
	if i := strings.IndexByte(e, '?'); i >= 0 {
		e = e[:i]
	}
	e = strings.Trim(e, ".,;:")
	if !emailRe.MatchString(e) || emailRe.FindString(e) != e {
		return ""
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(e, ext) {
			return ""
		}
	}
	domain := e[strings.LastIndexByte(e, '@')+1:]
	for _, p := range placeholders {
		if domain == p || strings.HasSuffix(domain, "."+p) {
			return ""
		}
	}
	return e
}

func findEmails(text string) []string {
	text = obfuscatedAt.ReplaceAllString(text, "@")
	text = obfuscatedDt.ReplaceAllString(text, ".")
	return emailRe.FindAllString(text, -1)
}
