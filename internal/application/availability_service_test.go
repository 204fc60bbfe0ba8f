package application

import (
	"context"
	"errors"
	"testing"
)

type availabilityFixture struct {
	schedules *scheduleRepoStub
	overrides *overrideRepoStub
	appts     *appointmentRepoStub
	cache     *cacheStub
	metrics   *metricsStub
	svc       *AvailabilityService
}

func newAvailabilityFixture() availabilityFixture {
	f := availabilityFixture{
		schedules: newScheduleRepoStub(),
		overrides: newOverrideRepoStub(),
		appts:     newAppointmentRepoStub(),
		cache:     newCacheStub(),
		metrics:   newMetricsStub(),
	}
	f.svc = NewAvailabilityService(f.schedules, f.overrides, f.appts, defaultDirectory(), Hooks{Cache: f.cache, Metrics: f.metrics})
	return f
}

func TestAvailabilityService_DayAvailability(t *testing.T) {
	t.Parallel()

	t.Run("uses the template of the containing week", func(t *testing.T) {
		t.Parallel()

		f := newAvailabilityFixture()
		f.schedules.byID["s1"] = standardWeek("s1", "consultant-1", "2024-01-08")
		f.appts.seed(
			Appointment{ID: "a1", ConsultantID: "consultant-1", CustomerID: "customer-1", AppointmentDate: date("2024-01-10"), Start: tod("09:00"), End: tod("10:00"), Status: AppointmentConfirmed},
			Appointment{ID: "a2", ConsultantID: "consultant-1", CustomerID: "customer-1", AppointmentDate: date("2024-01-10"), Start: tod("10:00"), End: tod("11:00"), Status: AppointmentCancelled},
		)

		day, err := f.svc.DayAvailability(context.Background(), DayAvailabilityParams{Principal: customerPrincipal, ConsultantID: "consultant-1", Date: "2024-01-10"})
		if err != nil {
			t.Fatalf("DayAvailability failed: %v", err)
		}

		if !day.IsWorkingDay || day.Source != "template" {
			t.Fatalf("unexpected resolution %#v", day)
		}
		// 09-12 and 13-17 in hour slots minus the confirmed 09:00 booking.
		if day.TotalSlots != 6 || len(day.AvailableSlots) != 6 {
			t.Fatalf("expected 6 slots, got %d", day.TotalSlots)
		}
		if day.AvailableSlots[0].Start != tod("10:00") {
			t.Fatalf("expected cancelled booking to leave 10:00 free, got %v", day.AvailableSlots[0])
		}
		if day.AvailableSlots[2].Start != tod("13:00") {
			t.Fatalf("expected first post-break slot at 13:00, got %v", day.AvailableSlots[2])
		}
	})

	t.Run("prefers overrides", func(t *testing.T) {
		t.Parallel()

		f := newAvailabilityFixture()
		f.schedules.byID["s1"] = standardWeek("s1", "consultant-1", "2024-01-08")
		f.overrides.byID["o1"] = Override{ID: "o1", ConsultantID: "consultant-1", OverrideDate: date("2024-01-10"), Reason: "holiday"}
		f.overrides.byID["o2"] = Override{ID: "o2", ConsultantID: "consultant-1", OverrideDate: date("2024-01-13"), IsAvailable: true, Start: todPtr("10:00"), End: todPtr("12:00"), Reason: "saturday clinic"}

		off, err := f.svc.DayAvailability(context.Background(), DayAvailabilityParams{Principal: customerPrincipal, ConsultantID: "consultant-1", Date: "2024-01-10"})
		if err != nil {
			t.Fatalf("DayAvailability failed: %v", err)
		}
		if off.IsWorkingDay || off.Source != "override" || off.TotalSlots != 0 || off.AvailableSlots == nil {
			t.Fatalf("expected unavailable override day, got %#v", off)
		}

		saturday, err := f.svc.DayAvailability(context.Background(), DayAvailabilityParams{Principal: customerPrincipal, ConsultantID: "consultant-1", Date: "2024-01-13"})
		if err != nil {
			t.Fatalf("DayAvailability failed: %v", err)
		}
		if !saturday.IsWorkingDay || saturday.TotalSlots != 2 {
			t.Fatalf("expected override to use template duration, got %#v", saturday)
		}
	})

	t.Run("override only days default to thirty minute slots", func(t *testing.T) {
		t.Parallel()

		f := newAvailabilityFixture()
		f.overrides.byID["o1"] = Override{ID: "o1", ConsultantID: "consultant-1", OverrideDate: date("2024-02-01"), IsAvailable: true, Start: todPtr("09:00"), End: todPtr("10:00"), Reason: "extra"}

		day, err := f.svc.DayAvailability(context.Background(), DayAvailabilityParams{Principal: customerPrincipal, ConsultantID: "consultant-1", Date: "2024-02-01"})
		if err != nil {
			t.Fatalf("DayAvailability failed: %v", err)
		}
		if day.TotalSlots != 2 {
			t.Fatalf("expected two 30 minute slots, got %d", day.TotalSlots)
		}
	})

	t.Run("reports missing schedules as not found", func(t *testing.T) {
		t.Parallel()

		f := newAvailabilityFixture()
		_, err := f.svc.DayAvailability(context.Background(), DayAvailabilityParams{Principal: customerPrincipal, ConsultantID: "consultant-1", Date: "2024-01-10"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := f.svc.DayAvailability(context.Background(), DayAvailabilityParams{Principal: customerPrincipal, ConsultantID: "nobody", Date: "2024-01-10"}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound for unknown consultant, got %v", err)
		}
	})

	t.Run("serves repeated lookups from cache", func(t *testing.T) {
		t.Parallel()

		f := newAvailabilityFixture()
		f.schedules.byID["s1"] = standardWeek("s1", "consultant-1", "2024-01-08")
		params := DayAvailabilityParams{Principal: customerPrincipal, ConsultantID: "consultant-1", Date: "2024-01-10"}

		first, err := f.svc.DayAvailability(context.Background(), params)
		if err != nil {
			t.Fatalf("first lookup failed: %v", err)
		}
		calls := f.appts.listCalls
		second, err := f.svc.DayAvailability(context.Background(), params)
		if err != nil {
			t.Fatalf("second lookup failed: %v", err)
		}
		if f.appts.listCalls != calls {
			t.Fatalf("expected cached lookup to skip storage")
		}
		if second.TotalSlots != first.TotalSlots {
			t.Fatalf("expected cached result to match")
		}
		if f.metrics.lookups["day:true"] != 1 || f.metrics.lookups["day:false"] != 1 {
			t.Fatalf("unexpected lookup metrics %#v", f.metrics.lookups)
		}
	})

	t.Run("falls back to storage when the cache fails", func(t *testing.T) {
		t.Parallel()

		f := newAvailabilityFixture()
		f.schedules.byID["s1"] = standardWeek("s1", "consultant-1", "2024-01-08")
		f.cache.loadErr = errors.New("redis down")

		if _, err := f.svc.DayAvailability(context.Background(), DayAvailabilityParams{Principal: customerPrincipal, ConsultantID: "consultant-1", Date: "2024-01-10"}); err != nil {
			t.Fatalf("expected cache failure to be tolerated, got %v", err)
		}
		if len(f.cache.entries) != 0 {
			t.Fatalf("expected no cache write after a failed read, got %d entries", len(f.cache.entries))
		}
	})

	t.Run("does not serve a view computed before a concurrent booking", func(t *testing.T) {
		t.Parallel()

		f := newAvailabilityFixture()
		f.schedules.byID["s1"] = standardWeek("s1", "consultant-1", "2024-01-08")
		f.appts.afterList = func() {
			f.appts.afterList = nil
			f.appts.seed(Appointment{ID: "a1", ConsultantID: "consultant-1", CustomerID: "customer-1", AppointmentDate: date("2024-01-10"), Start: tod("09:00"), End: tod("10:00"), Status: AppointmentConfirmed})
			if err := f.cache.InvalidateConsultant(context.Background(), "consultant-1"); err != nil {
				t.Errorf("invalidate failed: %v", err)
			}
		}
		params := DayAvailabilityParams{Principal: customerPrincipal, ConsultantID: "consultant-1", Date: "2024-01-10"}

		first, err := f.svc.DayAvailability(context.Background(), params)
		if err != nil {
			t.Fatalf("first lookup failed: %v", err)
		}
		if first.TotalSlots != 7 {
			t.Fatalf("expected the pre-booking view to have 7 slots, got %d", first.TotalSlots)
		}

		second, err := f.svc.DayAvailability(context.Background(), params)
		if err != nil {
			t.Fatalf("second lookup failed: %v", err)
		}
		if f.appts.listCalls != 2 {
			t.Fatalf("expected the stale view to be recomputed, got %d listings", f.appts.listCalls)
		}
		if second.TotalSlots != 6 {
			t.Fatalf("expected the booking to be visible, got %d slots", second.TotalSlots)
		}
	})

	t.Run("validates the date", func(t *testing.T) {
		t.Parallel()

		f := newAvailabilityFixture()
		_, err := f.svc.DayAvailability(context.Background(), DayAvailabilityParams{Principal: customerPrincipal, ConsultantID: "consultant-1", Date: "tomorrow"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestAvailabilityService_WeeklyAvailability(t *testing.T) {
	t.Parallel()

	t.Run("aggregates the week honouring overrides", func(t *testing.T) {
		t.Parallel()

		f := newAvailabilityFixture()
		f.schedules.byID["s1"] = standardWeek("s1", "consultant-1", "2024-01-08")
		f.overrides.byID["o1"] = Override{ID: "o1", ConsultantID: "consultant-1", OverrideDate: date("2024-01-12"), Reason: "training"}
		f.appts.seed(
			Appointment{ID: "a1", ConsultantID: "consultant-1", CustomerID: "customer-1", AppointmentDate: date("2024-01-08"), Start: tod("09:00"), End: tod("10:00"), Status: AppointmentPending},
			Appointment{ID: "a2", ConsultantID: "consultant-1", CustomerID: "ghost", AppointmentDate: date("2024-01-09"), Start: tod("14:00"), End: tod("15:00"), Status: AppointmentConfirmed},
		)

		week, err := f.svc.WeeklyAvailability(context.Background(), WeeklyAvailabilityParams{Principal: customerPrincipal, ConsultantID: "consultant-1", WeekStartDate: "2024-01-08"})
		if err != nil {
			t.Fatalf("WeeklyAvailability failed: %v", err)
		}

		if len(week.Days) != 7 {
			t.Fatalf("expected seven days, got %d", len(week.Days))
		}
		if week.Days[0].DayOfWeek != "monday" || week.Days[6].DayOfWeek != "sunday" {
			t.Fatalf("expected Monday to Sunday ordering")
		}
		if friday := week.Days[4]; friday.IsWorkingDay || friday.Source != "override" {
			t.Fatalf("expected friday override to disable the day, got %#v", friday)
		}
		if week.Summary.TotalWorkingDays != 4 {
			t.Fatalf("expected 4 working days, got %d", week.Summary.TotalWorkingDays)
		}
		if week.Summary.TotalBookedSlots != 2 || week.Summary.TotalAvailableSlots != 4*7-2 {
			t.Fatalf("unexpected summary %#v", week.Summary)
		}
		monday := week.Days[0]
		if monday.WorkingHours == nil || monday.WorkingHours.BreakStart == nil || *monday.WorkingHours.BreakStart != tod("12:00") {
			t.Fatalf("expected working hours with break, got %#v", monday.WorkingHours)
		}
		if len(monday.BookedAppointments) != 1 || monday.BookedAppointments[0].CustomerName != "Cass Customer" {
			t.Fatalf("unexpected monday bookings %#v", monday.BookedAppointments)
		}
		if got := week.Days[1].BookedAppointments[0].CustomerName; got != "Unknown" {
			t.Fatalf("expected unresolved customer to be Unknown, got %q", got)
		}
	})

	t.Run("requires a monday", func(t *testing.T) {
		t.Parallel()

		f := newAvailabilityFixture()
		_, err := f.svc.WeeklyAvailability(context.Background(), WeeklyAvailabilityParams{Principal: customerPrincipal, ConsultantID: "consultant-1", WeekStartDate: "2024-01-10"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if vErr.FieldErrors["week_start_date"] != "week_start_date must be a Monday" {
			t.Fatalf("unexpected message %#v", vErr.FieldErrors)
		}
	})

	t.Run("requires a template for the week", func(t *testing.T) {
		t.Parallel()

		f := newAvailabilityFixture()
		_, err := f.svc.WeeklyAvailability(context.Background(), WeeklyAvailabilityParams{Principal: customerPrincipal, ConsultantID: "consultant-1", WeekStartDate: "2024-01-08"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("requires authentication", func(t *testing.T) {
		t.Parallel()

		f := newAvailabilityFixture()
		_, err := f.svc.WeeklyAvailability(context.Background(), WeeklyAvailabilityParams{ConsultantID: "consultant-1", WeekStartDate: "2024-01-08"})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}
