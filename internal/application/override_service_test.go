package application

import (
	"context"
	"errors"
	"testing"
)

func newOverrideFixture() (*OverrideService, *overrideRepoStub, *cacheStub) {
	repo := newOverrideRepoStub()
	cache := newCacheStub()
	svc := NewOverrideService(repo, defaultDirectory(), Hooks{Cache: cache}, sequentialIDs("override"), fixedClock())
	return svc, repo, cache
}

func TestOverrideService_CreateOverride(t *testing.T) {
	t.Parallel()

	t.Run("persists an available override", func(t *testing.T) {
		t.Parallel()

		svc, repo, cache := newOverrideFixture()
		override, err := svc.CreateOverride(context.Background(), CreateOverrideParams{
			Principal: staffPrincipal,
			Input: OverrideInput{
				ConsultantID: "consultant-1",
				OverrideDate: "2024-01-10",
				IsAvailable:  true,
				StartTime:    strPtr("13:00"),
				EndTime:      strPtr("18:00"),
				Reason:       " late shift ",
			},
		})
		if err != nil {
			t.Fatalf("CreateOverride failed: %v", err)
		}
		if override.Reason != "late shift" || *override.Start != tod("13:00") {
			t.Fatalf("unexpected override %#v", override)
		}
		if override.CreatedBy.Name != "Sam Staff" {
			t.Fatalf("unexpected created_by %#v", override.CreatedBy)
		}
		if _, ok := repo.byID[override.ID]; !ok {
			t.Fatalf("expected override to be stored")
		}
		if len(cache.invalidated) != 1 {
			t.Fatalf("expected cache invalidation")
		}
	})

	t.Run("drops times from unavailable overrides", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newOverrideFixture()
		override, err := svc.CreateOverride(context.Background(), CreateOverrideParams{
			Principal: adminPrincipal,
			Input: OverrideInput{
				ConsultantID: "consultant-1",
				OverrideDate: "2024-01-10",
				StartTime:    strPtr("09:00"),
				EndTime:      strPtr("10:00"),
				Reason:       "holiday",
			},
		})
		if err != nil {
			t.Fatalf("CreateOverride failed: %v", err)
		}
		if override.Start != nil || override.End != nil {
			t.Fatalf("expected times to be cleared, got %#v", override)
		}
	})

	t.Run("validates fields", func(t *testing.T) {
		t.Parallel()

		cases := []struct {
			name  string
			input OverrideInput
			field string
		}{
			{name: "missing reason", input: OverrideInput{ConsultantID: "consultant-1", OverrideDate: "2024-01-10"}, field: "reason"},
			{name: "missing times", input: OverrideInput{ConsultantID: "consultant-1", OverrideDate: "2024-01-10", IsAvailable: true, Reason: "x"}, field: "start_time"},
			{name: "bad time", input: OverrideInput{ConsultantID: "consultant-1", OverrideDate: "2024-01-10", IsAvailable: true, StartTime: strPtr("9am"), EndTime: strPtr("10:00"), Reason: "x"}, field: "start_time"},
			{name: "inverted", input: OverrideInput{ConsultantID: "consultant-1", OverrideDate: "2024-01-10", IsAvailable: true, StartTime: strPtr("11:00"), EndTime: strPtr("10:00"), Reason: "x"}, field: "end_time"},
			{name: "bad date", input: OverrideInput{ConsultantID: "consultant-1", OverrideDate: "2024-13-01", Reason: "x"}, field: "override_date"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				svc, _, _ := newOverrideFixture()
				_, err := svc.CreateOverride(context.Background(), CreateOverrideParams{Principal: staffPrincipal, Input: tc.input})
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("expected validation error, got %v", err)
				}
				if _, ok := vErr.FieldErrors[tc.field]; !ok {
					t.Fatalf("expected %s error, got %#v", tc.field, vErr.FieldErrors)
				}
			})
		}
	})

	t.Run("is restricted to staff", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newOverrideFixture()
		_, err := svc.CreateOverride(context.Background(), CreateOverrideParams{Principal: consultantPrincipal, Input: OverrideInput{ConsultantID: "consultant-1"}})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("reports one override per date", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newOverrideFixture()
		input := OverrideInput{ConsultantID: "consultant-1", OverrideDate: "2024-01-10", Reason: "sick"}
		if _, err := svc.CreateOverride(context.Background(), CreateOverrideParams{Principal: staffPrincipal, Input: input}); err != nil {
			t.Fatalf("first CreateOverride failed: %v", err)
		}
		_, err := svc.CreateOverride(context.Background(), CreateOverrideParams{Principal: staffPrincipal, Input: input})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})
}

func TestOverrideService_UpdateAndDelete(t *testing.T) {
	t.Parallel()

	svc, repo, cache := newOverrideFixture()
	repo.byID["o1"] = Override{ID: "o1", ConsultantID: "consultant-1", OverrideDate: date("2024-01-10"), Reason: "holiday"}

	available := true
	updated, err := svc.UpdateOverride(context.Background(), UpdateOverrideParams{
		Principal:  staffPrincipal,
		OverrideID: "o1",
		Patch: OverridePatch{
			IsAvailable: &available,
			StartTime:   strPtr("10:00"),
			EndTime:     strPtr("12:00"),
			BreakStart:  strPtr(""),
		},
	})
	if err != nil {
		t.Fatalf("UpdateOverride failed: %v", err)
	}
	if !updated.IsAvailable || *updated.End != tod("12:00") || updated.Reason != "holiday" {
		t.Fatalf("unexpected update %#v", updated)
	}

	if _, err := svc.GetOverride(context.Background(), customerPrincipal, "o1"); err != nil {
		t.Fatalf("expected reads to be open, got %v", err)
	}

	overrides, err := svc.ListConsultantOverrides(context.Background(), ListOverridesParams{Principal: customerPrincipal, ConsultantID: "consultant-1", StartDate: "2024-01-01", EndDate: "2024-01-31"})
	if err != nil || len(overrides) != 1 {
		t.Fatalf("expected one override, got %d (%v)", len(overrides), err)
	}

	if err := svc.DeleteOverride(context.Background(), consultantPrincipal, "o1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := svc.DeleteOverride(context.Background(), staffPrincipal, "o1"); err != nil {
		t.Fatalf("DeleteOverride failed: %v", err)
	}
	if err := svc.DeleteOverride(context.Background(), staffPrincipal, "o1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(cache.invalidated) != 2 {
		t.Fatalf("expected two invalidations, got %#v", cache.invalidated)
	}
}
