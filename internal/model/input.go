package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidationError reports a field-level problem with submitted input. It is
// recoverable at the action boundary and safe to show to staff.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StudentInput is the full set of mutable student fields. Updates replace all
// of them; there is no partial patch.
type StudentInput struct {
	DisplayName         string
	Grade               *string
	HomeroomClassroomID *string
	Notes               *string
	Active              bool
}

// Normalize trims text fields and converts blank optionals to nil.
func (in StudentInput) Normalize() StudentInput {
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Grade = normalizeOptional(in.Grade)
	in.HomeroomClassroomID = normalizeOptional(in.HomeroomClassroomID)
	in.Notes = normalizeOptional(in.Notes)
	return in
}

func (in StudentInput) Validate() error {
	if len(in.DisplayName) < 1 || len(in.DisplayName) > 120 {
		return &ValidationError{Field: "display_name", Message: "required, 120 characters or less"}
	}
	if in.Grade != nil && len(*in.Grade) > 20 {
		return &ValidationError{Field: "grade", Message: "20 characters or less"}
	}
	if in.Notes != nil && len(*in.Notes) > 2000 {
		return &ValidationError{Field: "notes", Message: "2000 characters or less"}
	}
	if in.HomeroomClassroomID != nil {
		if _, err := uuid.Parse(*in.HomeroomClassroomID); err != nil {
			return &ValidationError{Field: "homeroom_classroom_id", Message: "invalid classroom id"}
		}
	}
	return nil
}

// StaffInput describes a new staff account created by an admin.
type StaffInput struct {
	Name     string
	Email    string
	Role     Role
	Password string
}

func (in StaffInput) Normalize() StaffInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	in.Password = strings.TrimSpace(in.Password)
	return in
}

func (in StaffInput) Validate() error {
	if len(in.Name) < 1 || len(in.Name) > 120 {
		return &ValidationError{Field: "name", Message: "required, 120 characters or less"}
	}
	if !validEmail(in.Email) {
		return &ValidationError{Field: "email", Message: "a valid email address is required"}
	}
	if _, ok := ParseRole(string(in.Role)); !ok {
		return &ValidationError{Field: "role", Message: "must be teacher, sel_coach, or admin"}
	}
	if len(in.Password) < 8 || len(in.Password) > 128 {
		return &ValidationError{Field: "password", Message: "must be between 8 and 128 characters"}
	}
	return nil
}

// NormalizeEmail lowercases and trims; all email comparisons in the system go
// through this.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// EmailDomain returns the part after "@", lowercased, or "" when the address
// has no domain.
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at < 1 || at != strings.LastIndex(email, "@") {
		return false
	}
	domain := email[at+1:]
	if strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	dot := strings.LastIndex(domain, ".")
	return dot > 0 && dot < len(domain)-1
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
