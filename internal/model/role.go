package model

import "strings"

// Role is the closed set of staff roles. Stored role values are parsed at the
// storage boundary; anything outside the set is a data-integrity failure, not
// a value that circulates as a plain string.
type Role string

const (
	RoleTeacher  Role = "teacher"
	RoleSELCoach Role = "sel_coach"
	RoleAdmin    Role = "admin"
)

func ParseRole(value string) (Role, bool) {
	switch Role(strings.TrimSpace(strings.ToLower(value))) {
	case RoleTeacher:
		return RoleTeacher, true
	case RoleSELCoach:
		return RoleSELCoach, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

func (r Role) String() string {
	return string(r)
}
