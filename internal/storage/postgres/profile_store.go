package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/receptionist-onboarding/internal/profile"
)

// ProfileStore implements profile.Store. Save upserts the profile by business id,
// services by (business id, slug) and hours by (business id, weekday), so saving
// the same profile twice leaves the tables unchanged.
type ProfileStore struct {
	db DB
}

// NewProfileStore wraps db.
func NewProfileStore(db DB) (*ProfileStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &ProfileStore{db: db}, nil
}

const (
	selectProfile = `SELECT name, address, phone, email, website, locations, booking_providers, updated_at
FROM business_profiles WHERE business_id = $1`
	selectServices = `SELECT slug, name, description, duration_minutes, price_from, price_to, is_core, bookable
FROM business_services WHERE business_id = $1 ORDER BY slug`
	selectHours = `SELECT weekday, open_time, close_time
FROM business_hours WHERE business_id = $1 ORDER BY weekday`

	upsertProfile = `INSERT INTO business_profiles (
	business_id, name, address, phone, email, website, locations, booking_providers, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (business_id) DO UPDATE SET
	name = EXCLUDED.name,
	address = EXCLUDED.address,
	phone = EXCLUDED.phone,
	email = EXCLUDED.email,
	website = EXCLUDED.website,
	locations = EXCLUDED.locations,
	booking_providers = EXCLUDED.booking_providers,
	updated_at = EXCLUDED.updated_at`

	// bookable is owned by the operator once the row exists.
	upsertService = `INSERT INTO business_services (
	business_id, slug, name, description, duration_minutes, price_from, price_to, is_core, bookable
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (business_id, slug) DO UPDATE SET
	name = EXCLUDED.name,
	description = EXCLUDED.description,
	duration_minutes = EXCLUDED.duration_minutes,
	price_from = EXCLUDED.price_from,
	price_to = EXCLUDED.price_to,
	is_core = EXCLUDED.is_core`

	upsertHours = `INSERT INTO business_hours (business_id, weekday, open_time, close_time)
VALUES ($1,$2,$3,$4)
ON CONFLICT (business_id, weekday) DO UPDATE SET
	open_time = EXCLUDED.open_time,
	close_time = EXCLUDED.close_time`
)

// Load reads the profile with its services and hours.
func (s *ProfileStore) Load(ctx context.Context, businessID string) (*profile.Profile, error) {
	p := profile.Profile{BusinessID: businessID}
	var locations, providers []byte
	err := s.db.QueryRow(ctx, selectProfile, businessID).Scan(
		&p.Name,
		&p.Address,
		&p.Phone,
		&p.Email,
		&p.Website,
		&locations,
		&providers,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", profile.ErrNotFound, businessID)
	}
	if err != nil {
		return nil, fmt.Errorf("select profile: %w", err)
	}
	if err := decodeJSON(locations, &p.Locations); err != nil {
		return nil, fmt.Errorf("decode locations: %w", err)
	}
	if err := decodeJSON(providers, &p.BookingProviders); err != nil {
		return nil, fmt.Errorf("decode booking providers: %w", err)
	}
	if p.Services, err = s.loadServices(ctx, businessID); err != nil {
		return nil, err
	}
	if p.Hours, err = s.loadHours(ctx, businessID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProfileStore) loadServices(ctx context.Context, businessID string) ([]profile.Service, error) {
	rows, err := s.db.Query(ctx, selectServices, businessID)
	if err != nil {
		return nil, fmt.Errorf("select services: %w", err)
	}
	defer rows.Close()

	var out []profile.Service
	for rows.Next() {
		var svc profile.Service
		if err := rows.Scan(
			&svc.Slug,
			&svc.Name,
			&svc.Description,
			&svc.DurationMinutes,
			&svc.PriceFrom,
			&svc.PriceTo,
			&svc.IsCore,
			&svc.Bookable,
		); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		out = append(out, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}
	return out, nil
}

func (s *ProfileStore) loadHours(ctx context.Context, businessID string) ([]profile.DayHours, error) {
	rows, err := s.db.Query(ctx, selectHours, businessID)
	if err != nil {
		return nil, fmt.Errorf("select hours: %w", err)
	}
	defer rows.Close()

	var out []profile.DayHours
	for rows.Next() {
		var (
			h   profile.DayHours
			day int
		)
		if err := rows.Scan(&day, &h.Open, &h.Close); err != nil {
			return nil, fmt.Errorf("scan hours: %w", err)
		}
		h.Weekday = profile.Weekday(day)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hours: %w", err)
	}
	return out, nil
}

// Save upserts p and its children in one transaction.
func (s *ProfileStore) Save(ctx context.Context, p *profile.Profile) (err error) {
	if p == nil || p.BusinessID == "" {
		return fmt.Errorf("save profile: business id is required")
	}
	locations, err := encodeJSON(p.Locations)
	if err != nil {
		return fmt.Errorf("encode locations: %w", err)
	}
	providers, err := encodeJSON(p.BookingProviders)
	if err != nil {
		return fmt.Errorf("encode booking providers: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, upsertProfile,
		p.BusinessID, p.Name, p.Address, p.Phone, p.Email, p.Website, locations, providers, p.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	for _, svc := range p.Services {
		if _, err = tx.Exec(ctx, upsertService,
			p.BusinessID, svc.Slug, svc.Name, svc.Description, svc.DurationMinutes, svc.PriceFrom, svc.PriceTo, svc.IsCore, svc.Bookable,
		); err != nil {
			return fmt.Errorf("upsert service %s: %w", svc.Slug, err)
		}
	}
	for _, h := range p.Hours {
		if !h.Valid() {
			continue
		}
		if _, err = tx.Exec(ctx, upsertHours, p.BusinessID, int(h.Weekday), h.Open, h.Close); err != nil {
			return fmt.Errorf("upsert hours %d: %w", h.Weekday, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func encodeJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return []byte("[]"), nil
	}
	return data, nil
}

func decodeJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
