package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/example/gencare-scheduler/internal/persistence"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	user := persistence.User{
		ID:           "user1",
		Email:        "  Test@Example.com ",
		DisplayName:  "Test User",
		Role:         "consultant",
		PasswordHash: "hashed_password",
		CreatedAt:    testTime,
		UpdatedAt:    testTime,
	}
	if err := storage.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	byID, err := storage.GetUser(ctx, "user1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if byID.Email != "test@example.com" {
		t.Errorf("expected normalized email, got %q", byID.Email)
	}
	if byID.Role != "consultant" || !byID.CreatedAt.Equal(testTime) {
		t.Errorf("unexpected user: %+v", byID)
	}

	byEmail, err := storage.GetUserByEmail(ctx, "TEST@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail.ID != "user1" {
		t.Errorf("expected user1, got %s", byEmail.ID)
	}
}

func TestUserRepository_Errors(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	seedUser(t, storage, "user1", "customer")

	duplicate := persistence.User{ID: "user2", Email: "user1@example.com", DisplayName: "Dup", Role: "customer", PasswordHash: "x", CreatedAt: testTime, UpdatedAt: testTime}
	if err := storage.CreateUser(ctx, duplicate); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for email reuse, got %v", err)
	}

	badRole := persistence.User{ID: "user3", Email: "x@example.com", DisplayName: "X", Role: "wizard", PasswordHash: "x", CreatedAt: testTime, UpdatedAt: testTime}
	if err := storage.CreateUser(ctx, badRole); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for unknown role, got %v", err)
	}

	if _, err := storage.GetUser(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := storage.UpdateUser(ctx, persistence.User{ID: "missing", PasswordHash: "x", Role: "customer", UpdatedAt: testTime}); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}

func TestUserRepository_GetUsersAndList(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	seedUser(t, storage, "a", "customer")
	seedUser(t, storage, "b", "consultant")
	seedUser(t, storage, "c", "staff")

	users, err := storage.GetUsers(ctx, []string{"c", "a", "zzz"})
	if err != nil {
		t.Fatalf("GetUsers failed: %v", err)
	}
	if len(users) != 2 || users[0].ID != "a" || users[1].ID != "c" {
		t.Fatalf("unexpected batch result: %+v", users)
	}

	empty, err := storage.GetUsers(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty result for no ids, got %v %v", empty, err)
	}

	all, err := storage.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 users, got %d", len(all))
	}
}

func TestUserRepository_DeleteUser(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	seedUser(t, storage, "free", "customer")
	seedUser(t, storage, "busy", "consultant")

	if err := storage.CreateWeeklySchedule(ctx, persistence.WeeklySchedule{
		ID:                  "ws1",
		ConsultantID:        "busy",
		WeekStartDate:       mustDate(t, "2024-01-15"),
		WeekEndDate:         mustDate(t, "2024-01-21"),
		DefaultSlotDuration: 30,
		CreatedBy:           persistence.Actor{UserID: "busy", Role: "consultant", Name: "Busy"},
		CreatedAt:           testTime,
		UpdatedAt:           testTime,
	}); err != nil {
		t.Fatalf("CreateWeeklySchedule failed: %v", err)
	}

	if err := storage.DeleteUser(ctx, "free"); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if err := storage.DeleteUser(ctx, "free"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if err := storage.DeleteUser(ctx, "busy"); !errors.Is(err, persistence.ErrInUse) {
		t.Fatalf("expected ErrInUse for referenced user, got %v", err)
	}
}
