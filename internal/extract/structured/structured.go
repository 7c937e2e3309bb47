// Package structured reads schema.org business metadata embedded in a page,
// from JSON-LD blocks first and microdata second.
package structured

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/receptionist-onboarding/internal/extract/dom"
	"github.com/JakeFAU/receptionist-onboarding/internal/textnorm"
)

// HoursSpec is one schema.org OpeningHoursSpecification.
type HoursSpec struct {
	Days   []string
	Opens  string
	Closes string
}

// Data is the business metadata found on one page.
type Data struct {
	Name         string
	SiteName     string
	Telephone    string
	Email        string
	Address      string
	URL          string
	OpeningHours []string
	HoursSpecs   []HoursSpec
}

// Empty reports whether nothing was found.
func (d Data) Empty() bool {
	return d.Name == "" && d.SiteName == "" && d.Telephone == "" && d.Email == "" &&
		d.Address == "" && len(d.OpeningHours) == 0 && len(d.HoursSpecs) == 0
}

var businessTypes = []string{
	"organization", "localbusiness", "hairsalon", "beautysalon", "dayspa", "healthandbeautybusiness",
	"nailsalon", "healthclub", "medicalbusiness", "store", "professionalservice", "corporation",
	"sportsactivitylocation", "exercisegym", "physician", "dentist",
}

// Parse reads the metadata from raw HTML. Parse errors yield an empty Data.
func Parse(rawHTML string) Data {
	doc, err := dom.Parse(rawHTML)
	if err != nil {
		return Data{}
	}
	return FromDocument(doc)
}

// FromDocument reads the metadata from a parsed document.
func FromDocument(doc *goquery.Document) Data {
	var d Data
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var raw any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &raw); err != nil {
			return
		}
		for _, obj := range flatten(raw) {
			if isBusiness(obj) {
				merge(&d, fromObject(obj))
			}
		}
	})
	merge(&d, fromMicrodata(doc))
	if v, ok := doc.Find(`meta[property="og:site_name"]`).Attr("content"); ok {
		d.SiteName = textnorm.Line(v)
	}
	return d
}

// flatten walks arrays and @graph containers and returns every JSON object.
func flatten(v any) []map[string]any {
	switch t := v.(type) {
	case []any:
		var out []map[string]any
		for _, item := range t {
			out = append(out, flatten(item)...)
		}
		return out
	case map[string]any:
		out := []map[string]any{t}
		if g, ok := t["@graph"]; ok {
			out = append(out, flatten(g)...)
		}
		return out
	}
	return nil
}

func isBusiness(obj map[string]any) bool {
	for _, typ := range stringsOf(obj["@type"]) {
		typ = strings.ToLower(typ)
		for _, bt := range businessTypes {
			if typ == bt {
				return true
			}
		}
	}
	_, hasPhone := obj["telephone"]
	_, hasAddress := obj["address"]
	return hasPhone && hasAddress
}

func fromObject(obj map[string]any) Data {
	d := Data{
		Name:         textnorm.Line(firstString(obj["name"])),
		Telephone:    textnorm.Line(firstString(obj["telephone"])),
		Email:        strings.TrimPrefix(textnorm.Line(firstString(obj["email"])), "mailto:"),
		URL:          firstString(obj["url"]),
		Address:      addressOf(obj["address"]),
		OpeningHours: stringsOf(obj["openingHours"]),
	}
	for _, spec := range flatten(obj["openingHoursSpecification"]) {
		d.HoursSpecs = append(d.HoursSpecs, HoursSpec{
			Days:   stringsOf(spec["dayOfWeek"]),
			Opens:  firstString(spec["opens"]),
			Closes: firstString(spec["closes"]),
		})
	}
	return d
}

func addressOf(v any) string {
	switch t := v.(type) {
	case string:
		return textnorm.Line(t)
	case []any:
		if len(t) > 0 {
			return addressOf(t[0])
		}
	case map[string]any:
		street := textnorm.Line(firstString(t["streetAddress"]))
		postal := textnorm.Line(firstString(t["postalCode"]))
		city := textnorm.Line(firstString(t["addressLocality"]))
		tail := strings.TrimSpace(postal + " " + city)
		switch {
		case street != "" && tail != "":
			return street + ", " + tail
		case street != "":
			return street
		default:
			return tail
		}
	}
	return ""
}

func fromMicrodata(doc *goquery.Document) Data {
	var d Data
	d.Telephone = textnorm.Line(propValue(doc.Find(`[itemprop="telephone"]`).First()))
	d.Email = strings.TrimPrefix(textnorm.Line(propValue(doc.Find(`[itemprop="email"]`).First())), "mailto:")
	street := dom.Line(doc.Find(`[itemprop="streetAddress"]`).First())
	postal := dom.Line(doc.Find(`[itemprop="postalCode"]`).First())
	city := dom.Line(doc.Find(`[itemprop="addressLocality"]`).First())
	if street != "" {
		d.Address = street
		if tail := strings.TrimSpace(postal + " " + city); tail != "" {
			d.Address += ", " + tail
		}
	}
	doc.Find(`[itemprop="openingHours"]`).Each(func(_ int, s *goquery.Selection) {
		if v := textnorm.Line(propValue(s)); v != "" {
			d.OpeningHours = append(d.OpeningHours, v)
		}
	})
	return d
}

func propValue(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	if v, ok := s.Attr("content"); ok {
		return v
	}
	if v, ok := s.Attr("href"); ok && (strings.HasPrefix(v, "tel:") || strings.HasPrefix(v, "mailto:")) {
		return strings.TrimPrefix(strings.TrimPrefix(v, "tel:"), "mailto:")
	}
	return dom.Line(s)
}

// merge fills empty fields of dst from src; the first source wins.
func merge(dst *Data, src Data) {
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.SiteName == "" {
		dst.SiteName = src.SiteName
	}
	if dst.Telephone == "" {
		dst.Telephone = src.Telephone
	}
	if dst.Email == "" {
		dst.Email = src.Email
	}
	if dst.Address == "" {
		dst.Address = src.Address
	}
	if dst.URL == "" {
		dst.URL = src.URL
	}
	if len(dst.OpeningHours) == 0 {
		dst.OpeningHours = src.OpeningHours
	}
	if len(dst.HoursSpecs) == 0 {
		dst.HoursSpecs = src.HoursSpecs
	}
}

func firstString(v any) string {
	if s := stringsOf(v); len(s) > 0 {
		return s[0]
	}
	return ""
}

func stringsOf(v any) []string {
	switch t := v.(type) {
	case string:
		if t = strings.TrimSpace(t); t != "" {
			return []string{t}
		}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, stringsOf(item)...)
		}
		return out
	case map[string]any:
		// {"@id": "https://schema.org/Monday"} style references.
		if id, ok := t["@id"].(string); ok {
			return []string{id}
		}
		if name, ok := t["name"].(string); ok {
			return []string{name}
		}
	}
	return nil
}
