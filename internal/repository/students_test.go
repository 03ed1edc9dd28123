package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/sorianoB28/big-feelings-toolkit-app/internal/model"
)

func studentNames(items []model.StudentListItem) []string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.DisplayName)
	}
	return names
}

func sameNames(got []model.StudentListItem, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i, item := range got {
		if item.DisplayName != want[i] {
			return false
		}
	}
	return true
}

func TestListStudentsScoping(t *testing.T) {
	pool := openTestDB(t)
	resetTestDB(t, pool)
	fx := seedFixture(t, pool)
	store := newTestStore(pool)
	ctx := context.Background()

	// Admins and coaches see the whole school, ordered by display name.
	for _, actor := range []string{fx.admin1, fx.coach1} {
		students, err := store.ListStudents(ctx, actor, "")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if !sameNames(students, "Avery Brooks", "Morgan Diaz", "Riley Chen") {
			t.Fatalf("unexpected school-wide list: %v", studentNames(students))
		}
	}

	// teacher1 created Morgan and teaches Avery's homeroom; Riley is out of
	// reach.
	students, err := store.ListStudents(ctx, fx.teacher1, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !sameNames(students, "Avery Brooks", "Morgan Diaz") {
		t.Fatalf("unexpected teacher1 list: %v", studentNames(students))
	}

	// teacher2 only reaches Riley through the homeroom assignment.
	students, err = store.ListStudents(ctx, fx.teacher2, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !sameNames(students, "Riley Chen") {
		t.Fatalf("unexpected teacher2 list: %v", studentNames(students))
	}

	// The other school's admin never sees school1 students.
	students, err = store.ListStudents(ctx, fx.admin2, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !sameNames(students, "Jordan Lake") {
		t.Fatalf("unexpected admin2 list: %v", studentNames(students))
	}

	if _, err := store.ListStudents(ctx, fx.inactive, ""); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive for inactive actor, got %v", err)
	}
}

func TestListStudentsSearch(t *testing.T) {
	pool := openTestDB(t)
	resetTestDB(t, pool)
	fx := seedFixture(t, pool)
	store := newTestStore(pool)
	ctx := context.Background()

	students, err := store.ListStudents(ctx, fx.admin1, "mor")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !sameNames(students, "Morgan Diaz") {
		t.Fatalf("unexpected name search result: %v", studentNames(students))
	}

	// Search also matches the grade column.
	students, err = store.ListStudents(ctx, fx.admin1, "5th")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !sameNames(students, "Morgan Diaz") {
		t.Fatalf("unexpected grade search result: %v", studentNames(students))
	}

	// Narrowing applies before search: teacher2 cannot surface Morgan.
	students, err = store.ListStudents(ctx, fx.teacher2, "mor")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(students) != 0 {
		t.Fatalf("expected empty result, got %v", studentNames(students))
	}
}

func TestGetStudentTenantIsolation(t *testing.T) {
	pool := openTestDB(t)
	resetTestDB(t, pool)
	fx := seedFixture(t, pool)
	store := newTestStore(pool)
	ctx := context.Background()

	detail, err := store.GetStudentByID(ctx, fx.admin1, fx.s1)
	if err != nil {
		t.Fatalf("expected admin read to succeed, got %v", err)
	}
	if detail.DisplayName != "Avery Brooks" || detail.SchoolID != fx.school1 {
		t.Fatalf("unexpected detail %+v", detail)
	}
	if detail.HomeroomClassroomName == nil || *detail.HomeroomClassroomName != "Room 101" {
		t.Fatalf("expected homeroom name to resolve, got %v", detail.HomeroomClassroomName)
	}

	// Cross-school reads look like the row does not exist.
	if _, err := store.GetStudentByID(ctx, fx.admin2, fx.s1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound across schools, got %v", err)
	}
	// Same school, outside the teacher's narrowed view.
	if _, err := store.GetStudentByID(ctx, fx.teacher2, fx.s2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound outside teacher scope, got %v", err)
	}
	if _, err := store.GetStudentByID(ctx, fx.admin1, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing id, got %v", err)
	}
}

func TestCreateStudent(t *testing.T) {
	pool := openTestDB(t)
	resetTestDB(t, pool)
	fx := seedFixture(t, pool)
	store := newTestStore(pool)
	ctx := context.Background()

	grade := "4th"
	// teacher1 may assign another teacher's classroom as long as it belongs
	// to the same school.
	id, err := store.CreateStudent(ctx, fx.teacher1, model.StudentInput{
		DisplayName:         " Jamie R. ",
		Grade:               &grade,
		HomeroomClassroomID: &fx.class2,
		Active:              true,
	})
	if err != nil {
		t.Fatalf("expected create to succeed, got %v", err)
	}

	detail, err := store.GetStudentByID(ctx, fx.teacher1, id)
	if err != nil {
		t.Fatalf("expected creator to read the student back, got %v", err)
	}
	if detail.DisplayName != "Jamie R." {
		t.Fatalf("expected trimmed display name, got %q", detail.DisplayName)
	}
	if detail.CreatedByUserID == nil || *detail.CreatedByUserID != fx.teacher1 {
		t.Fatalf("expected creator stamp, got %v", detail.CreatedByUserID)
	}
	if detail.SchoolID != fx.school1 {
		t.Fatalf("expected student in actor's school, got %s", detail.SchoolID)
	}

	// teacher2 reaches the new student through the homeroom assignment.
	if _, err := store.GetStudentByID(ctx, fx.teacher2, id); err != nil {
		t.Fatalf("expected homeroom teacher to read the student, got %v", err)
	}

	// Classroom in another school is rejected.
	_, err = store.CreateStudent(ctx, fx.teacher1, model.StudentInput{
		DisplayName:         "Casey Park",
		HomeroomClassroomID: &fx.class3,
		Active:              true,
	})
	if !errors.Is(err, ErrInvalidClassroom) {
		t.Fatalf("expected ErrInvalidClassroom for other school, got %v", err)
	}

	missing := uuid.NewString()
	_, err = store.CreateStudent(ctx, fx.teacher1, model.StudentInput{
		DisplayName:         "Casey Park",
		HomeroomClassroomID: &missing,
		Active:              true,
	})
	if !errors.Is(err, ErrInvalidClassroom) {
		t.Fatalf("expected ErrInvalidClassroom for missing classroom, got %v", err)
	}

	var validationErr *model.ValidationError
	_, err = store.CreateStudent(ctx, fx.teacher1, model.StudentInput{DisplayName: "   "})
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for blank name, got %v", err)
	}
}

func TestUpdateStudent(t *testing.T) {
	pool := openTestDB(t)
	resetTestDB(t, pool)
	fx := seedFixture(t, pool)
	store := newTestStore(pool)
	ctx := context.Background()

	notes := "prefers the quiet corner during reset time"
	// Full replace: grade and homeroom are cleared when omitted.
	err := store.UpdateStudent(ctx, fx.admin1, fx.s1, model.StudentInput{
		DisplayName: "Avery Brooks",
		Notes:       &notes,
		Active:      false,
	})
	if err != nil {
		t.Fatalf("expected update to succeed, got %v", err)
	}

	detail, err := store.GetStudentByID(ctx, fx.admin1, fx.s1)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if detail.Grade != nil || detail.HomeroomClassroomID != nil {
		t.Fatalf("expected grade and homeroom cleared, got %+v", detail)
	}
	if detail.Notes == nil || *detail.Notes != notes {
		t.Fatalf("expected notes update, got %v", detail.Notes)
	}
	if detail.Active {
		t.Fatalf("expected student marked inactive")
	}

	// Out-of-scope updates fail as not found and change nothing.
	err = store.UpdateStudent(ctx, fx.admin2, fx.s2, model.StudentInput{
		DisplayName: "Hijacked",
		Active:      true,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound across schools, got %v", err)
	}
	err = store.UpdateStudent(ctx, fx.teacher2, fx.s2, model.StudentInput{
		DisplayName: "Hijacked",
		Active:      true,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound outside teacher scope, got %v", err)
	}
	detail, err = store.GetStudentByID(ctx, fx.admin1, fx.s2)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if detail.DisplayName != "Morgan Diaz" {
		t.Fatalf("expected rejected update to leave the row alone, got %q", detail.DisplayName)
	}
}

func TestListClassroomOptions(t *testing.T) {
	pool := openTestDB(t)
	resetTestDB(t, pool)
	fx := seedFixture(t, pool)
	store := newTestStore(pool)
	ctx := context.Background()

	options, err := store.ListClassroomOptions(ctx, fx.teacher1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(options) != 1 || options[0].ID != fx.class1 {
		t.Fatalf("expected teacher's own classroom only, got %+v", options)
	}

	options, err = store.ListClassroomOptions(ctx, fx.admin1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(options) != 2 || options[0].Name != "Room 101" || options[1].Name != "Room 102" {
		t.Fatalf("expected both school1 classrooms in name order, got %+v", options)
	}

	options, err = store.ListClassroomOptions(ctx, fx.admin2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(options) != 1 || options[0].ID != fx.class3 {
		t.Fatalf("expected school2 classroom only, got %+v", options)
	}
}
