package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/sorianoB28/big-feelings-toolkit-app/internal/model"
)

// ListStaff returns every staff account in the actor's school, admins first,
// then coaches, then teachers, each group ordered by name then email
// case-insensitively.
func (s *Store) ListStaff(ctx context.Context, actorUserID string) ([]model.StaffListItem, error) {
	scope, err := s.GetAccessScope(ctx, actorUserID)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, email, role, is_active, created_at
		FROM users
		WHERE school_id = $1
		ORDER BY
			CASE role
				WHEN 'admin' THEN 1
				WHEN 'sel_coach' THEN 2
				ELSE 3
			END,
			lower(coalesce(name, '')),
			lower(email)
	`, scope.SchoolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var staff []model.StaffListItem
	for rows.Next() {
		var (
			item    model.StaffListItem
			rawRole string
		)
		if err := rows.Scan(&item.ID, &item.Name, &item.Email, &rawRole, &item.IsActive, &item.CreatedAt); err != nil {
			return nil, err
		}
		role, ok := model.ParseRole(rawRole)
		if !ok {
			return nil, ErrInvalidRole
		}
		item.Role = role
		staff = append(staff, item)
	}
	return staff, rows.Err()
}

// GetStaffProfileByID loads the signed-in user's own profile, including the
// school name when one is assigned.
func (s *Store) GetStaffProfileByID(ctx context.Context, userID string) (model.StaffProfile, error) {
	var (
		profile model.StaffProfile
		rawRole string
	)
	row := s.pool.QueryRow(ctx, `
		SELECT u.id, u.name, u.email, u.role, s.name AS school_name
		FROM users u
		LEFT JOIN schools s ON s.id = u.school_id
		WHERE u.id = $1
	`, userID)
	err := row.Scan(&profile.ID, &profile.Name, &profile.Email, &rawRole, &profile.SchoolName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.StaffProfile{}, ErrNotFound
		}
		return model.StaffProfile{}, err
	}

	role, ok := model.ParseRole(rawRole)
	if !ok {
		return model.StaffProfile{}, ErrInvalidRole
	}
	profile.Role = role
	return profile, nil
}
