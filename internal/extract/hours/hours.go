// Package hours parses opening hours from structured data and free text.
package hours

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/JakeFAU/receptionist-onboarding/internal/extract/structured"
	"github.com/JakeFAU/receptionist-onboarding/internal/profile"
	"github.com/JakeFAU/receptionist-onboarding/internal/textnorm"
)

// dayTokens maps folded day names and abbreviations (Czech and English) to weekdays.
var dayTokens = map[string]profile.Weekday{
	"po": profile.Monday, "pon": profile.Monday, "pondeli": profile.Monday, "mo": profile.Monday, "mon": profile.Monday, "monday": profile.Monday,
	"ut": profile.Tuesday, "ute": profile.Tuesday, "utery": profile.Tuesday, "tu": profile.Tuesday, "tue": profile.Tuesday, "tuesday": profile.Tuesday,
	"st": profile.Wednesday, "str": profile.Wednesday, "streda": profile.Wednesday, "we": profile.Wednesday, "wed": profile.Wednesday, "wednesday": profile.Wednesday,
	"ct": profile.Thursday, "ctv": profile.Thursday, "ctvrtek": profile.Thursday, "th": profile.Thursday, "thu": profile.Thursday, "thursday": profile.Thursday,
	"pa": profile.Friday, "pat": profile.Friday, "patek": profile.Friday, "fr": profile.Friday, "fri": profile.Friday, "friday": profile.Friday,
	"so": profile.Saturday, "sob": profile.Saturday, "sobota": profile.Saturday, "sa": profile.Saturday, "sat": profile.Saturday, "saturday": profile.Saturday,
	"ne": profile.Sunday, "ned": profile.Sunday, "nedele": profile.Sunday, "su": profile.Sunday, "sun": profile.Sunday, "sunday": profile.Sunday,
}

var (
	dayAlt   = dayAlternation()
	timePart = `(\d{1,2})(?:[:.](\d{2}))?`
	// "po-pa 9:00-18:00", "pondeli: 9.00 - 17.30", "mo,we 10-14"
	lineRe = regexp.MustCompile(`(?:^|[^a-z])(` + dayAlt + `)\.?(?:\s*(?:-|–|—|az|to)\s*(` + dayAlt + `)\.?)?` +
		`((?:\s*[,/&a]\s*(?:` + dayAlt + `)\.?)*)\s*:?\s*` + timePart + `\s*(?:-|–|—|az|to)\s*` + timePart)
	extraDayRe = regexp.MustCompile(dayAlt)
)

func dayAlternation() string {
	keys := make([]string, 0, len(dayTokens))
	for k := range dayTokens {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	return `(?:` + strings.Join(keys, "|") + `)\b`
}

// FromStructured converts schema.org hours into per-day intervals. Only days with
// both open and close times are returned.
func FromStructured(d structured.Data) []profile.DayHours {
	days := map[profile.Weekday]profile.DayHours{}
	for _, spec := range d.HoursSpecs {
		open, okOpen := Clock(spec.Opens)
		closeAt, okClose := Clock(spec.Closes)
		if !okOpen || !okClose {
			continue
		}
		for _, raw := range spec.Days {
			if day, ok := parseDay(raw); ok {
				days[day] = profile.DayHours{Weekday: day, Open: open, Close: closeAt}
			}
		}
	}
	for _, line := range d.OpeningHours {
		for _, h := range FromText(line) {
			if _, set := days[h.Weekday]; !set {
				days[h.Weekday] = h
			}
		}
	}
	return sorted(days)
}

// FromText finds "day[-day] open-close" patterns in free text. The first interval
// seen for a day wins.
func FromText(text string) []profile.DayHours {
	days := map[profile.Weekday]profile.DayHours{}
	for _, line := range textnorm.Lines(text) {
		folded := textnorm.Fold(line)
		for _, m := range lineRe.FindAllStringSubmatch(folded, -1) {
			open, okOpen := clockParts(m[4], m[5])
			closeAt, okClose := clockParts(m[6], m[7])
			if !okOpen || !okClose || open >= closeAt {
				continue
			}
			for _, day := range expandDays(m[1], m[2], m[3]) {
				if _, set := days[day]; !set {
					days[day] = profile.DayHours{Weekday: day, Open: open, Close: closeAt}
				}
			}
		}
	}
	return sorted(days)
}

func expandDays(start, end, extra string) []profile.Weekday {
	from, ok := dayTokens[start]
	if !ok {
		return nil
	}
	out := []profile.Weekday{from}
	if to, ok := dayTokens[end]; ok && end != "" {
		out = out[:0]
		for d := from; ; d = d%7 + 1 {
			out = append(out, d)
			if d == to || len(out) == 7 {
				break
			}
		}
	}
	for _, tok := range extraDayRe.FindAllString(extra, -1) {
		if d, ok := dayTokens[tok]; ok {
			out = append(out, d)
		}
	}
	return out
}

func parseDay(raw string) (profile.Weekday, bool) {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		raw = raw[i+1:]
	}
	d, ok := dayTokens[textnorm.Fold(raw)]
	return d, ok
}

// Clock normalizes "9:00", "9.00", "09:00:00", or "9" to "HH:MM". It reports false
// for anything that is not a time of day, such as "closed".
func Clock(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	parts := strings.SplitN(strings.ReplaceAll(raw, ".", ":"), ":", 3)
	if len(parts) < 2 {
		return clockParts(raw, "")
	}
	return clockParts(parts[0], parts[1])
}

func clockParts(hour, minute string) (string, bool) {
	h, err := strconv.Atoi(hour)
	if err != nil || h < 0 || h > 24 {
		return "", false
	}
	m := 0
	if minute != "" {
		m, err = strconv.Atoi(minute)
		if err != nil || m < 0 || m > 59 {
			return "", false
		}
	}
	if h == 24 && m != 0 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", h, m), true
}

func sorted(days map[profile.Weekday]profile.DayHours) []profile.DayHours {
	out := make([]profile.DayHours, 0, len(days))
	for _, h := range days {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Weekday < out[j].Weekday })
	return out
}
