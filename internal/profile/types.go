// Package profile reconciles extracted business data into a stored profile.
package profile

import (
	"errors"
	"time"
)

// ErrNotFound is returned by Store.Load when no profile exists for the business.
var ErrNotFound = errors.New("profile not found")

// Weekday is an ISO weekday, Monday = 1 through Sunday = 7.
type Weekday int

// ISO weekdays.
const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Valid reports whether d is within Monday..Sunday.
func (d Weekday) Valid() bool { return d >= Monday && d <= Sunday }

// DayHours holds one day's opening interval as "HH:MM" strings.
type DayHours struct {
	Weekday Weekday `json:"weekday"`
	Open    string  `json:"open"`
	Close   string  `json:"close"`
}

// Valid reports whether both ends of the interval are present.
func (h DayHours) Valid() bool {
	return h.Weekday.Valid() && h.Open != "" && h.Close != ""
}

// Service is one item of the price list.
type Service struct {
	Name            string   `json:"name"`
	Slug            string   `json:"slug"`
	Description     string   `json:"description,omitempty"`
	DurationMinutes *int     `json:"duration_minutes,omitempty"`
	PriceFrom       *float64 `json:"price_from,omitempty"`
	PriceTo         *float64 `json:"price_to,omitempty"`
	IsCore          bool     `json:"is_core"`
	Bookable        bool     `json:"bookable"`
}

// Location is one branch of the business.
type Location struct {
	Name             string   `json:"name"`
	Address          string   `json:"address"`
	BookingProviders []string `json:"booking_providers,omitempty"`
}

// Profile is the stored business record.
type Profile struct {
	BusinessID       string     `json:"business_id"`
	Name             string     `json:"name"`
	Address          string     `json:"address"`
	Phone            string     `json:"phone"`
	Email            string     `json:"email"`
	Website          string     `json:"website"`
	Services         []Service  `json:"services"`
	Hours            []DayHours `json:"hours"`
	Locations        []Location `json:"locations"`
	BookingProviders []string   `json:"booking_providers"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Guess is the oracle's unverified structured reading of the site text.
type Guess struct {
	Name         string
	Address      string
	Phone        string
	Email        string
	OpeningHours []DayHours
	Services     []Service
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }
