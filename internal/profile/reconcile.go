package profile

import (
	"sort"
	"strings"

	"github.com/JakeFAU/receptionist-onboarding/internal/detector"
	"github.com/JakeFAU/receptionist-onboarding/internal/extract/brand"
	"github.com/JakeFAU/receptionist-onboarding/internal/extract/contact"
	"github.com/JakeFAU/receptionist-onboarding/internal/extract/locale"
	"github.com/JakeFAU/receptionist-onboarding/internal/textnorm"
)

// oracleAddressRatio is how much longer an oracle address must be to replace a
// vague deterministic one.
const oracleAddressRatio = 1.5

// Contact is the deterministic contact result of a crawl.
type Contact struct {
	Phone            string
	Email            string
	Address          string
	AddressIsSummary bool
}

// Input is the draft handed to the reconciler.
type Input struct {
	BusinessID       string
	Website          string
	Contact          Contact
	Oracle           Guess
	Name             string
	StructuredHours  []DayHours
	TextHours        []DayHours
	DOMServices      []Service
	Locations        []Location
	BookingProviders []string
	Existing         *Profile
}

// Reconciler merges a draft into the stored profile. It is pure: the same input
// always yields the same profile.
type Reconciler struct {
	locale *locale.Locale
	names  *brand.Selector
}

// NewReconciler returns a Reconciler. A nil locale selects locale.Default.
func NewReconciler(l *locale.Locale) *Reconciler {
	if l == nil {
		l = locale.Default()
	}
	return &Reconciler{locale: l, names: brand.New(l)}
}

// Reconcile applies the field precedence rules and the coalesce rule: a non-empty
// existing value is never replaced by an empty one.
func (r *Reconciler) Reconcile(in Input) Profile {
	var p Profile
	if in.Existing != nil {
		p = clone(*in.Existing)
	}
	p.BusinessID = coalesce(in.BusinessID, p.BusinessID)
	p.Website = coalesce(in.Website, p.Website)

	oraclePhone := contact.NormalizePhone(in.Oracle.Phone, r.locale.CountryCode)
	p.Phone = coalesce(in.Contact.Phone, oraclePhone, p.Phone)
	oracleEmail := contact.CleanEmail(in.Oracle.Email, contact.DefaultPlaceholderDomains)
	p.Email = coalesce(in.Contact.Email, oracleEmail, p.Email)

	p.Address = r.address(in, p.Address)
	p.Name = r.name(coalesce(in.Name, in.Oracle.Name), p.Name, p.Website)
	p.Hours = mergeHours(p.Hours, pickHours(in.StructuredHours, in.TextHours, in.Oracle.OpeningHours))
	p.Services = r.mergeServices(p.Services, r.combineServices(in.DOMServices, in.Oracle.Services))
	if len(in.Locations) > 0 {
		p.Locations = in.Locations
	}

	providers := detector.Set{}
	providers.Add(p.BookingProviders...)
	providers.Add(in.BookingProviders...)
	if len(providers) > 0 {
		p.BookingProviders = providers.Sorted()
	}
	return p
}

// address prefers the deterministic value unless the oracle's is clearly more
// specific. A vague result never displaces a specific stored address.
func (r *Reconciler) address(in Input, existing string) string {
	det := textnorm.Line(in.Contact.Address)
	oracle := textnorm.Line(in.Oracle.Address)
	vague := det == "" || in.Contact.AddressIsSummary || !contact.HasDigit(det)

	chosen := det
	if oracle != "" && contact.HasDigit(oracle) && vague &&
		float64(len([]rune(oracle))) >= oracleAddressRatio*float64(len([]rune(det))) {
		chosen = oracle
	}
	if chosen == "" {
		return existing
	}
	if !contact.HasDigit(chosen) && contact.HasDigit(existing) {
		return existing
	}
	return chosen
}

// name keeps the stored name unless it scores as generic and the new one scores higher.
func (r *Reconciler) name(candidate, existing, website string) string {
	candidate = textnorm.Line(candidate)
	if existing == "" || candidate == "" {
		return coalesce(existing, candidate)
	}
	if candidate == existing || !r.names.IsGeneric(existing, website) {
		return existing
	}
	if r.names.Score(candidate, website) > r.names.Score(existing, website) {
		return candidate
	}
	return existing
}

// pickHours takes the first source with at least one valid day.
func pickHours(sources ...[]DayHours) []DayHours {
	for _, src := range sources {
		var valid []DayHours
		for _, h := range src {
			if h.Valid() {
				valid = append(valid, h)
			}
		}
		if len(valid) > 0 {
			return valid
		}
	}
	return nil
}

// mergeHours overlays the new days on the stored ones by weekday.
func mergeHours(existing, updates []DayHours) []DayHours {
	if len(updates) == 0 {
		return existing
	}
	byDay := map[Weekday]DayHours{}
	for _, h := range existing {
		byDay[h.Weekday] = h
	}
	for _, h := range updates {
		byDay[h.Weekday] = h
	}
	out := make([]DayHours, 0, len(byDay))
	for _, h := range byDay {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Weekday < out[j].Weekday })
	return out
}

// ServiceKey folds a service name and drops leading generic adjectives, so
// "Klasický pánský střih" and "pánský střih" share a key.
func (r *Reconciler) ServiceKey(name string) string {
	words := strings.Fields(textnorm.Fold(name))
	adjectives := map[string]bool{}
	for _, a := range r.locale.GenericAdjectives {
		adjectives[textnorm.Fold(a)] = true
	}
	for len(words) > 1 && adjectives[words[0]] {
		words = words[1:]
	}
	return strings.Join(words, " ")
}

// combineServices merges DOM and oracle services by key. DOM numeric fields win
// when present; the oracle fills the gaps.
func (r *Reconciler) combineServices(domServices, oracleServices []Service) []Service {
	var out []Service
	index := map[string]int{}
	add := func(s Service, fromDOM bool) {
		s.Name = textnorm.Line(s.Name)
		key := r.ServiceKey(s.Name)
		if key == "" {
			return
		}
		s.Slug = textnorm.Slug(key)
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, s)
			return
		}
		cur := &out[i]
		if fromDOM {
			overlayNumbers(cur, s)
		} else {
			fillNumbers(cur, s)
		}
		cur.Description = coalesce(cur.Description, s.Description)
		cur.IsCore = cur.IsCore || s.IsCore
	}
	for _, s := range domServices {
		add(s, true)
	}
	for _, s := range oracleServices {
		add(s, false)
	}
	return out
}

// mergeServices upserts the new services onto the stored ones by slug. Stored
// services not seen this time are kept, and a stored Bookable flag always survives.
func (r *Reconciler) mergeServices(existing, updates []Service) []Service {
	if len(updates) == 0 {
		return existing
	}
	out := make([]Service, 0, len(existing)+len(updates))
	index := map[string]int{}
	for _, s := range existing {
		slug := s.Slug
		if slug == "" {
			slug = textnorm.Slug(r.ServiceKey(s.Name))
			s.Slug = slug
		}
		index[slug] = len(out)
		out = append(out, s)
	}
	for _, s := range updates {
		i, ok := index[s.Slug]
		if !ok {
			index[s.Slug] = len(out)
			out = append(out, s)
			continue
		}
		prev := out[i]
		merged := s
		merged.Name = coalesce(s.Name, prev.Name)
		merged.Description = coalesce(s.Description, prev.Description)
		fillNumbers(&merged, prev)
		merged.IsCore = s.IsCore || prev.IsCore
		merged.Bookable = prev.Bookable
		out[i] = merged
	}
	return out
}

// overlayNumbers copies every numeric field src has onto dst.
func overlayNumbers(dst *Service, src Service) {
	if src.DurationMinutes != nil {
		dst.DurationMinutes = src.DurationMinutes
	}
	if src.PriceFrom != nil {
		dst.PriceFrom = src.PriceFrom
	}
	if src.PriceTo != nil {
		dst.PriceTo = src.PriceTo
	}
}

// fillNumbers copies numeric fields from src only where dst has none.
func fillNumbers(dst *Service, src Service) {
	if dst.DurationMinutes == nil {
		dst.DurationMinutes = src.DurationMinutes
	}
	if dst.PriceFrom == nil {
		dst.PriceFrom = src.PriceFrom
	}
	if dst.PriceTo == nil {
		dst.PriceTo = src.PriceTo
	}
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// clone copies p deeply enough that reconciling never mutates the caller's profile.
func clone(p Profile) Profile {
	p.Services = append([]Service(nil), p.Services...)
	p.Hours = append([]DayHours(nil), p.Hours...)
	p.Locations = append([]Location(nil), p.Locations...)
	p.BookingProviders = append([]string(nil), p.BookingProviders...)
	return p
}
