package model

import (
	"errors"
	"strings"
	"testing"
)

func strptr(s string) *string { return &s }

func TestStudentInputNormalize(t *testing.T) {
	in := StudentInput{
		DisplayName:         "  Jamie R. ",
		Grade:               strptr("  "),
		HomeroomClassroomID: strptr(" 9a1f1d1e-0000-4000-8000-000000000001 "),
		Notes:               strptr(" quiet in the mornings "),
	}.Normalize()

	if in.DisplayName != "Jamie R." {
		t.Fatalf("expected trimmed display name, got %q", in.DisplayName)
	}
	if in.Grade != nil {
		t.Fatalf("expected blank grade to become nil")
	}
	if in.HomeroomClassroomID == nil || *in.HomeroomClassroomID != "9a1f1d1e-0000-4000-8000-000000000001" {
		t.Fatalf("expected trimmed classroom id")
	}
	if in.Notes == nil || *in.Notes != "quiet in the mornings" {
		t.Fatalf("expected trimmed notes")
	}
}

func TestStudentInputValidate(t *testing.T) {
	valid := StudentInput{DisplayName: "Jamie R.", Grade: strptr("4th"), Active: true}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}

	cases := []struct {
		name  string
		input StudentInput
		field string
	}{
		{"empty name", StudentInput{DisplayName: ""}, "display_name"},
		{"long name", StudentInput{DisplayName: strings.Repeat("a", 121)}, "display_name"},
		{"long grade", StudentInput{DisplayName: "Jamie", Grade: strptr(strings.Repeat("g", 21))}, "grade"},
		{"long notes", StudentInput{DisplayName: "Jamie", Notes: strptr(strings.Repeat("n", 2001))}, "notes"},
		{"bad classroom id", StudentInput{DisplayName: "Jamie", HomeroomClassroomID: strptr("not-a-uuid")}, "homeroom_classroom_id"},
	}
	for _, tc := range cases {
		err := tc.input.Validate()
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
		if validationErr.Field != tc.field {
			t.Fatalf("%s: expected field %q, got %q", tc.name, tc.field, validationErr.Field)
		}
	}
}

func TestStaffInputValidate(t *testing.T) {
	valid := StaffInput{
		Name:     "Dana Whitfield",
		Email:    "Dana@District.ORG",
		Role:     RoleSELCoach,
		Password: "temporary-pass",
	}.Normalize()
	if valid.Email != "dana@district.org" {
		t.Fatalf("expected normalized email, got %q", valid.Email)
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}

	cases := []struct {
		name  string
		input StaffInput
		field string
	}{
		{"empty name", StaffInput{Email: "a@b.org", Role: RoleAdmin, Password: "longenough"}, "name"},
		{"bad email", StaffInput{Name: "Dana", Email: "not-an-email", Role: RoleAdmin, Password: "longenough"}, "email"},
		{"no tld", StaffInput{Name: "Dana", Email: "dana@district", Role: RoleAdmin, Password: "longenough"}, "email"},
		{"bad role", StaffInput{Name: "Dana", Email: "a@b.org", Role: Role("student"), Password: "longenough"}, "role"},
		{"short password", StaffInput{Name: "Dana", Email: "a@b.org", Role: RoleAdmin, Password: "short"}, "password"},
		{"long password", StaffInput{Name: "Dana", Email: "a@b.org", Role: RoleAdmin, Password: strings.Repeat("p", 129)}, "password"},
	}
	for _, tc := range cases {
		err := tc.input.Normalize().Validate()
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
		if validationErr.Field != tc.field {
			t.Fatalf("%s: expected field %q, got %q", tc.name, tc.field, validationErr.Field)
		}
	}
}

func TestEmailDomain(t *testing.T) {
	cases := map[string]string{
		"dana@district.org":  "district.org",
		"dana@District.ORG":  "district.org",
		"no-at-sign":         "",
		"trailing@":          "",
		"multi@part@last.io": "last.io",
	}
	for input, expect := range cases {
		if got := EmailDomain(input); got != expect {
			t.Fatalf("EmailDomain(%q): expected %q, got %q", input, expect, got)
		}
	}
}
