package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/receptionist-onboarding/internal/onboarding"
	"github.com/JakeFAU/receptionist-onboarding/internal/profile"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "onboarder.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	require.NoError(t, db.Ping(context.Background()))
	return db
}

func TestProfileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewProfileStore(openTestDB(t))
	ctx := context.Background()

	_, err := store.Load(ctx, "biz-1")
	require.ErrorIs(t, err, profile.ErrNotFound)

	p := &profile.Profile{
		BusinessID: "biz-1",
		Name:       "Salon Ivy",
		Address:    "Vinohradská 12, 120 00 Praha",
		Phone:      "+420608744774",
		Services: []profile.Service{
			{Name: "Střih", Slug: "strih", DurationMinutes: profile.IntPtr(45), PriceFrom: profile.FloatPtr(450), Bookable: true},
			{Name: "Foukaná", Slug: "foukana"},
		},
		Hours: []profile.DayHours{
			{Weekday: profile.Monday, Open: "09:00", Close: "18:00"},
			{Weekday: profile.Sunday},
		},
		Locations:        []profile.Location{{Name: "Praha", Address: "Vinohradská 12, 120 00 Praha"}},
		BookingProviders: []string{"reservio"},
		UpdatedAt:        time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, p))
	require.NoError(t, store.Save(ctx, p))

	loaded, err := store.Load(ctx, "biz-1")
	require.NoError(t, err)
	require.Equal(t, "Salon Ivy", loaded.Name)
	require.Equal(t, "+420608744774", loaded.Phone)
	require.Equal(t, p.Locations, loaded.Locations)
	require.Equal(t, []string{"reservio"}, loaded.BookingProviders)
	require.Len(t, loaded.Services, 2)
	require.Equal(t, "foukana", loaded.Services[0].Slug)
	require.Nil(t, loaded.Services[0].DurationMinutes)
	require.Equal(t, 45, *loaded.Services[1].DurationMinutes)
	require.Equal(t, []profile.DayHours{{Weekday: profile.Monday, Open: "09:00", Close: "18:00"}}, loaded.Hours)
	require.True(t, loaded.UpdatedAt.Equal(p.UpdatedAt))
}

func TestProfileStoreKeepsStoredBookable(t *testing.T) {
	t.Parallel()

	store := NewProfileStore(openTestDB(t))
	ctx := context.Background()

	first := &profile.Profile{BusinessID: "biz-1", Services: []profile.Service{{Name: "Střih", Slug: "strih", Bookable: true}}}
	require.NoError(t, store.Save(ctx, first))

	second := &profile.Profile{BusinessID: "biz-1", Services: []profile.Service{{Name: "Střih", Slug: "strih", PriceFrom: profile.FloatPtr(500)}}}
	require.NoError(t, store.Save(ctx, second))

	loaded, err := store.Load(ctx, "biz-1")
	require.NoError(t, err)
	require.Len(t, loaded.Services, 1)
	require.True(t, loaded.Services[0].Bookable)
	require.Equal(t, 500.0, *loaded.Services[0].PriceFrom)
}

func TestJobStoreLifecycle(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	store := NewJobStore(openTestDB(t), fixedClock{t: now})
	ctx := context.Background()

	require.NoError(t, store.CreateJob(ctx, onboarding.Job{
		ID:        "job-1",
		Submitted: now,
		Request:   onboarding.Request{BusinessID: "biz-1", URL: "https://salon.cz"},
	}))
	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, onboarding.JobStatusQueued, job.Status)
	require.Nil(t, job.Started)
	require.Nil(t, job.Summary)

	require.NoError(t, store.UpdateJobStatus(ctx, "job-1", onboarding.JobStatusRunning, "", "", nil))
	require.NoError(t, store.UpdateJobStatus(ctx, "job-1", onboarding.JobStatusSucceeded, "", "",
		&onboarding.Summary{PagesCrawled: 4, BookingProviders: []string{"reservio"}}))

	job, err = store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, onboarding.JobStatusSucceeded, job.Status)
	require.Equal(t, "https://salon.cz", job.Request.URL)
	require.Equal(t, 4, job.Summary.PagesCrawled)
	require.NotNil(t, job.Started)
	require.NotNil(t, job.Finished)

	_, err = store.GetJob(ctx, "missing")
	require.ErrorIs(t, err, onboarding.ErrJobNotFound)
	err = store.UpdateJobStatus(ctx, "missing", onboarding.JobStatusRunning, "", "", nil)
	require.ErrorIs(t, err, onboarding.ErrJobNotFound)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }
