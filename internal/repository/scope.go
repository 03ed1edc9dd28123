package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/sorianoB28/big-feelings-toolkit-app/internal/model"
)

// GetAccessScope derives the actor's {school, role} capability snapshot from
// a fresh read of the user row, never from session claims, so a
// just-deactivated or reassigned account is blocked even while its token is
// still valid.
func (s *Store) GetAccessScope(ctx context.Context, actorUserID string) (model.AccessScope, error) {
	var (
		schoolID *string
		rawRole  string
		active   bool
	)
	row := s.pool.QueryRow(ctx, `
		SELECT school_id, role, is_active
		FROM users
		WHERE id = $1
	`, actorUserID)
	if err := row.Scan(&schoolID, &rawRole, &active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.AccessScope{}, ErrAccountInactive
		}
		return model.AccessScope{}, err
	}

	if !active {
		return model.AccessScope{}, ErrAccountInactive
	}
	if schoolID == nil || *schoolID == "" {
		return model.AccessScope{}, ErrMissingSchool
	}
	role, ok := model.ParseRole(rawRole)
	if !ok {
		return model.AccessScope{}, ErrInvalidRole
	}

	return model.AccessScope{
		ActorID:  actorUserID,
		SchoolID: *schoolID,
		Role:     role,
	}, nil
}
