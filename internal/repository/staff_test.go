package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/sorianoB28/big-feelings-toolkit-app/internal/model"
)

func TestListStaffOrdering(t *testing.T) {
	pool := openTestDB(t)
	resetTestDB(t, pool)
	fx := seedFixture(t, pool)
	store := newTestStore(pool)
	ctx := context.Background()

	staff, err := store.ListStaff(ctx, fx.coach1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	// Admin first, then coach, then teachers by name. Inactive accounts stay
	// in the list so admins can see them.
	wantEmails := []string{
		"admin@district.org",
		"coach@district.org",
		"teacher1@district.org",
		"teacher2@district.org",
		"inactive@district.org",
	}
	if len(staff) != len(wantEmails) {
		t.Fatalf("expected %d staff, got %d", len(wantEmails), len(staff))
	}
	for i, item := range staff {
		if item.Email != wantEmails[i] {
			t.Fatalf("position %d: expected %s, got %s", i, wantEmails[i], item.Email)
		}
	}
	if staff[0].Role != model.RoleAdmin || staff[1].Role != model.RoleSELCoach {
		t.Fatalf("unexpected role ordering: %q, %q", staff[0].Role, staff[1].Role)
	}
	if staff[4].IsActive {
		t.Fatalf("expected inactive account to be reported inactive")
	}

	// The list never crosses schools.
	staff, err = store.ListStaff(ctx, fx.admin2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(staff) != 1 || staff[0].Email != "admin2@district.org" {
		t.Fatalf("unexpected school2 staff list: %+v", staff)
	}
}

func TestGetStaffProfile(t *testing.T) {
	pool := openTestDB(t)
	resetTestDB(t, pool)
	fx := seedFixture(t, pool)
	store := newTestStore(pool)
	ctx := context.Background()

	profile, err := store.GetStaffProfileByID(ctx, fx.teacher1)
	if err != nil {
		t.Fatalf("expected profile, got %v", err)
	}
	if profile.Email != "teacher1@district.org" || profile.Role != model.RoleTeacher {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if profile.SchoolName == nil || *profile.SchoolName != "Oakestown Intermediate School" {
		t.Fatalf("expected school name to resolve, got %v", profile.SchoolName)
	}

	if _, err := store.GetStaffProfileByID(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
