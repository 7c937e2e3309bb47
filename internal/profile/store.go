package profile

import "context"

// Store persists profiles. Save is an idempotent upsert: the profile by business id,
// services by (business id, slug), hours by (business id, weekday).
type Store interface {
	Load(ctx context.Context, businessID string) (*Profile, error)
	Save(ctx context.Context, p *Profile) error
}
