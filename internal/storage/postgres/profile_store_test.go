package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/receptionist-onboarding/internal/profile"
)

func TestProfileStoreSaveUpsertsEverything(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewProfileStore(mock)
	require.NoError(t, err)

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	p := &profile.Profile{
		BusinessID: "biz-1",
		Name:       "Salon Ivy",
		Phone:      "+420608744774",
		Website:    "https://salon-ivy.cz",
		Services: []profile.Service{
			{Name: "Střih", Slug: "strih", DurationMinutes: profile.IntPtr(45), PriceFrom: profile.FloatPtr(450), Bookable: true},
		},
		Hours: []profile.DayHours{
			{Weekday: profile.Monday, Open: "09:00", Close: "18:00"},
			{Weekday: profile.Tuesday},
		},
		BookingProviders: []string{"reservio"},
		UpdatedAt:        now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO business_profiles").
		WithArgs("biz-1", "Salon Ivy", "", "+420608744774", "", "https://salon-ivy.cz", []byte("[]"), []byte(`["reservio"]`), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO business_services").
		WithArgs("biz-1", "strih", "Střih", "", profile.IntPtr(45), profile.FloatPtr(450), (*float64)(nil), false, true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO business_hours").
		WithArgs("biz-1", 1, "09:00", "18:00").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, store.Save(context.Background(), p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileStoreSaveRollsBackOnError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewProfileStore(mock)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO business_profiles").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err = store.Save(context.Background(), &profile.Profile{BusinessID: "biz-1"})
	require.ErrorContains(t, err, "upsert profile")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileStoreLoad(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewProfileStore(mock)
	require.NoError(t, err)

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT name, address").
		WithArgs("biz-1").
		WillReturnRows(mock.NewRows([]string{"name", "address", "phone", "email", "website", "locations", "booking_providers", "updated_at"}).
			AddRow("Salon Ivy", "Vinohradská 12, Praha", "+420608744774", "", "https://salon-ivy.cz",
				[]byte(`[{"name":"Praha","address":"Vinohradská 12, Praha"}]`), []byte(`["reservio"]`), now))
	mock.ExpectQuery("SELECT slug, name").
		WithArgs("biz-1").
		WillReturnRows(mock.NewRows([]string{"slug", "name", "description", "duration_minutes", "price_from", "price_to", "is_core", "bookable"}).
			AddRow("strih", "Střih", "", profile.IntPtr(45), profile.FloatPtr(450), (*float64)(nil), false, true))
	mock.ExpectQuery("SELECT weekday").
		WithArgs("biz-1").
		WillReturnRows(mock.NewRows([]string{"weekday", "open_time", "close_time"}).
			AddRow(1, "09:00", "18:00"))

	p, err := store.Load(context.Background(), "biz-1")
	require.NoError(t, err)
	require.Equal(t, "Salon Ivy", p.Name)
	require.Equal(t, []string{"reservio"}, p.BookingProviders)
	require.Len(t, p.Locations, 1)
	require.Len(t, p.Services, 1)
	require.True(t, p.Services[0].Bookable)
	require.Equal(t, 45, *p.Services[0].DurationMinutes)
	require.Equal(t, []profile.DayHours{{Weekday: profile.Monday, Open: "09:00", Close: "18:00"}}, p.Hours)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileStoreLoadNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewProfileStore(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT name, address").
		WithArgs("biz-404").
		WillReturnError(pgx.ErrNoRows)

	_, err = store.Load(context.Background(), "biz-404")
	require.ErrorIs(t, err, profile.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateExecutesSchema(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS business_profiles").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, Migrate(context.Background(), mock))
	require.NoError(t, mock.ExpectationsWereMet())
}
