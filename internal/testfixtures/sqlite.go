package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/gencare-scheduler/internal/persistence"
	"github.com/example/gencare-scheduler/internal/persistence/sqlite"
	"github.com/example/gencare-scheduler/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a temporary SQLite storage
// instance for integration-style persistence tests.
type SQLiteHarness struct {
	Storage      *sqlite.Storage
	Users        persistence.UserRepository
	Sessions     persistence.SessionRepository
	Schedules    persistence.WeeklyScheduleRepository
	Overrides    persistence.OverrideRepository
	Appointments persistence.AppointmentRepository

	tb      testing.TB
	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a temporary database file. The harness
// registers its own cleanup with tb, so calling Close is optional.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	config := migration.TempFileTestSQLiteConfig(filepath.Join(tb.TempDir(), "scheduler.db"))
	storage, err := sqlite.OpenWithConfig(config, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:      storage,
		Users:        storage,
		Sessions:     storage,
		Schedules:    storage,
		Overrides:    storage,
		Appointments: storage,
		tb:           tb,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedUsers inserts the supplied user fixtures.
func (h *SQLiteHarness) SeedUsers(users ...UserFixture) {
	h.tb.Helper()
	for _, user := range users {
		if err := h.Users.CreateUser(context.Background(), user.Persistence()); err != nil {
			h.tb.Fatalf("seed user %s: %v", user.ID, err)
		}
	}
}

// SeedWeeklySchedules inserts the supplied weekly templates.
func (h *SQLiteHarness) SeedWeeklySchedules(schedules ...WeeklyScheduleFixture) {
	h.tb.Helper()
	for _, schedule := range schedules {
		if err := h.Schedules.CreateWeeklySchedule(context.Background(), schedule.Persistence()); err != nil {
			h.tb.Fatalf("seed weekly schedule %s: %v", schedule.ID, err)
		}
	}
}

// SeedOverrides inserts the supplied per-date overrides.
func (h *SQLiteHarness) SeedOverrides(overrides ...OverrideFixture) {
	h.tb.Helper()
	for _, override := range overrides {
		if err := h.Overrides.CreateOverride(context.Background(), override.Persistence()); err != nil {
			h.tb.Fatalf("seed override %s: %v", override.ID, err)
		}
	}
}

// SeedAppointments inserts the supplied bookings.
func (h *SQLiteHarness) SeedAppointments(appointments ...AppointmentFixture) {
	h.tb.Helper()
	for _, appointment := range appointments {
		if err := h.Appointments.CreateAppointment(context.Background(), appointment.Persistence()); err != nil {
			h.tb.Fatalf("seed appointment %s: %v", appointment.ID, err)
		}
	}
}
