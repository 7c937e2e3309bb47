package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/JakeFAU/receptionist-onboarding/internal/profile"
)

// ProfileStore implements profile.Store with the same upsert keys as the
// Postgres store.
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore returns a ProfileStore on d.
func NewProfileStore(d *DB) *ProfileStore {
	return &ProfileStore{db: d.db}
}

// Load reads the profile with its services and hours.
func (s *ProfileStore) Load(ctx context.Context, businessID string) (*profile.Profile, error) {
	p := profile.Profile{BusinessID: businessID}
	var locations, providers string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, address, phone, email, website, locations, booking_providers, updated_at
		 FROM business_profiles WHERE business_id = ?`, businessID,
	).Scan(&p.Name, &p.Address, &p.Phone, &p.Email, &p.Website, &locations, &providers, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: profile %s: %w", businessID, profile.ErrNotFound)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: select profile %s", businessID)
	}
	if err := json.Unmarshal([]byte(locations), &p.Locations); err != nil {
		return nil, eris.Wrap(err, "sqlite: decode locations")
	}
	if err := json.Unmarshal([]byte(providers), &p.BookingProviders); err != nil {
		return nil, eris.Wrap(err, "sqlite: decode booking providers")
	}
	if p.Services, err = s.services(ctx, businessID); err != nil {
		return nil, err
	}
	if p.Hours, err = s.hours(ctx, businessID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProfileStore) services(ctx context.Context, businessID string) ([]profile.Service, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slug, name, description, duration_minutes, price_from, price_to, is_core, bookable
		 FROM business_services WHERE business_id = ? ORDER BY slug`, businessID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: select services")
	}
	defer rows.Close()

	var out []profile.Service
	for rows.Next() {
		var (
			svc      profile.Service
			duration sql.NullInt64
			from, to sql.NullFloat64
		)
		if err := rows.Scan(&svc.Slug, &svc.Name, &svc.Description, &duration, &from, &to, &svc.IsCore, &svc.Bookable); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan service")
		}
		if duration.Valid {
			svc.DurationMinutes = profile.IntPtr(int(duration.Int64))
		}
		if from.Valid {
			svc.PriceFrom = profile.FloatPtr(from.Float64)
		}
		if to.Valid {
			svc.PriceTo = profile.FloatPtr(to.Float64)
		}
		out = append(out, svc)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate services")
}

func (s *ProfileStore) hours(ctx context.Context, businessID string) ([]profile.DayHours, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT weekday, open_time, close_time FROM business_hours WHERE business_id = ? ORDER BY weekday`, businessID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: select hours")
	}
	defer rows.Close()

	var out []profile.DayHours
	for rows.Next() {
		var h profile.DayHours
		if err := rows.Scan(&h.Weekday, &h.Open, &h.Close); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan hours")
		}
		out = append(out, h)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate hours")
}

// Save upserts p, its services and its hours in one transaction. The bookable
// flag of an existing service row is never overwritten.
func (s *ProfileStore) Save(ctx context.Context, p *profile.Profile) (err error) {
	if p == nil || p.BusinessID == "" {
		return eris.New("sqlite: business id is required")
	}
	locations, err := jsonArray(p.Locations)
	if err != nil {
		return err
	}
	providers, err := jsonArray(p.BookingProviders)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO business_profiles (business_id, name, address, phone, email, website, locations, booking_providers, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (business_id) DO UPDATE SET
			name = excluded.name, address = excluded.address, phone = excluded.phone,
			email = excluded.email, website = excluded.website, locations = excluded.locations,
			booking_providers = excluded.booking_providers, updated_at = excluded.updated_at`,
		p.BusinessID, p.Name, p.Address, p.Phone, p.Email, p.Website, locations, providers, updated,
	); err != nil {
		return eris.Wrap(err, "sqlite: upsert profile")
	}
	for _, svc := range p.Services {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO business_services (business_id, slug, name, description, duration_minutes, price_from, price_to, is_core, bookable)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (business_id, slug) DO UPDATE SET
				name = excluded.name, description = excluded.description,
				duration_minutes = excluded.duration_minutes, price_from = excluded.price_from,
				price_to = excluded.price_to, is_core = excluded.is_core`,
			p.BusinessID, svc.Slug, svc.Name, svc.Description, svc.DurationMinutes, svc.PriceFrom, svc.PriceTo, svc.IsCore, svc.Bookable,
		); err != nil {
			return eris.Wrapf(err, "sqlite: upsert service %s", svc.Slug)
		}
	}
	for _, h := range p.Hours {
		if !h.Valid() {
			continue
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO business_hours (business_id, weekday, open_time, close_time) VALUES (?, ?, ?, ?)
			 ON CONFLICT (business_id, weekday) DO UPDATE SET open_time = excluded.open_time, close_time = excluded.close_time`,
			p.BusinessID, int(h.Weekday), h.Open, h.Close,
		); err != nil {
			return eris.Wrapf(err, "sqlite: upsert hours %d", h.Weekday)
		}
	}
	if err = tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit")
	}
	return nil
}

func jsonArray(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal")
	}
	if string(data) == "null" {
		return "[]", nil
	}
	return string(data), nil
}
