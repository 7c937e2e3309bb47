package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/receptionist-onboarding/internal/profile"
)

// ProfileStore keeps business profiles in a map keyed by business id.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]profile.Profile
}

// NewProfileStore creates an empty ProfileStore.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[string]profile.Profile)}
}

// Load returns a copy of the stored profile or profile.ErrNotFound.
func (s *ProfileStore) Load(_ context.Context, businessID string) (*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[businessID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", profile.ErrNotFound, businessID)
	}
	out := copyProfile(p)
	return &out, nil
}

// Save replaces the stored profile.
func (s *ProfileStore) Save(_ context.Context, p *profile.Profile) error {
	if p == nil || p.BusinessID == "" {
		return fmt.Errorf("save profile: business id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.BusinessID] = copyProfile(*p)
	return nil
}

func copyProfile(p profile.Profile) profile.Profile {
	p.Services = append([]profile.Service(nil), p.Services...)
	p.Hours = append([]profile.DayHours(nil), p.Hours...)
	p.Locations = append([]profile.Location(nil), p.Locations...)
	p.BookingProviders = append([]string(nil), p.BookingProviders...)
	return p
}
