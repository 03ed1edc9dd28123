package model

import "time"

type User struct {
	ID           string
	SchoolID     *string
	Email        string
	Name         *string
	Role         Role
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuthenticatedUser is the identity handed to the session layer after a
// successful credential check. It never carries the password hash.
type AuthenticatedUser struct {
	ID    string
	Email string
	Name  *string
	Role  Role
}

// AccessScope is the per-request capability snapshot derived from the acting
// user's row. It is recomputed fresh for every repository operation and never
// cached across requests.
type AccessScope struct {
	ActorID  string
	SchoolID string
	Role     Role
}

type School struct {
	ID           string
	Name         string
	DistrictName *string
}

type Classroom struct {
	ID        string
	SchoolID  string
	TeacherID *string
	Name      string
}

type ClassroomOption struct {
	ID   string
	Name string
}

type StudentListItem struct {
	ID                    string
	DisplayName           string
	Grade                 *string
	HomeroomClassroomID   *string
	HomeroomClassroomName *string
	Active                bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type StudentDetail struct {
	StudentListItem
	SchoolID        string
	CreatedByUserID *string
	Notes           *string
}

type StaffListItem struct {
	ID        string
	Name      *string
	Email     string
	Role      Role
	IsActive  bool
	CreatedAt time.Time
}

// StaffProfile is the detail view for the signed-in user, including the
// school name resolved through a left join.
type StaffProfile struct {
	ID         string
	Name       *string
	Email      string
	Role       Role
	SchoolName *string
}

type RefreshSession struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
	UserAgent *string
	IPAddress *string
}
