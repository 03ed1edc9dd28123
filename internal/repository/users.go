package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/sorianoB28/big-feelings-toolkit-app/internal/crypto"
	"github.com/sorianoB28/big-feelings-toolkit-app/internal/model"
)

// FindUserByEmail looks a user up case-insensitively. A stored role outside
// the known set returns ErrInvalidRole: the row cannot be safely interpreted.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	normalized := model.NormalizeEmail(email)
	if normalized == "" {
		return model.User{}, pgx.ErrNoRows
	}

	var (
		user    model.User
		rawRole string
	)
	row := s.pool.QueryRow(ctx, `
		SELECT id, school_id, email, name, role, password_hash, is_active, created_at, updated_at
		FROM users
		WHERE lower(email) = $1
	`, normalized)
	err := row.Scan(
		&user.ID,
		&user.SchoolID,
		&user.Email,
		&user.Name,
		&rawRole,
		&user.PasswordHash,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return model.User{}, err
	}

	role, ok := model.ParseRole(rawRole)
	if !ok {
		return model.User{}, ErrInvalidRole
	}
	user.Role = role
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	var (
		user    model.User
		rawRole string
	)
	row := s.pool.QueryRow(ctx, `
		SELECT id, school_id, email, name, role, password_hash, is_active, created_at, updated_at
		FROM users
		WHERE id = $1
	`, userID)
	err := row.Scan(
		&user.ID,
		&user.SchoolID,
		&user.Email,
		&user.Name,
		&rawRole,
		&user.PasswordHash,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return model.User{}, err
	}

	role, ok := model.ParseRole(rawRole)
	if !ok {
		return model.User{}, ErrInvalidRole
	}
	user.Role = role
	return user, nil
}

// VerifyCredentials checks a staff sign-in attempt. An inactive account is
// only reported as such when the password matches; otherwise the attempt
// fails as plain invalid credentials.
func (s *Store) VerifyCredentials(ctx context.Context, email, password string) (model.AuthenticatedUser, error) {
	normalized := model.NormalizeEmail(email)
	if normalized == "" || password == "" {
		return model.AuthenticatedUser{}, ErrInvalidCredentials
	}
	if !s.emailDomainAllowed(normalized) {
		return model.AuthenticatedUser{}, ErrDomainNotAllowed
	}

	user, err := s.FindUserByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.AuthenticatedUser{}, ErrInvalidCredentials
		}
		return model.AuthenticatedUser{}, err
	}

	if err := crypto.CheckPassword(user.PasswordHash, password); err != nil {
		return model.AuthenticatedUser{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return model.AuthenticatedUser{}, ErrInactiveAccount
	}

	return model.AuthenticatedUser{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}, nil
}

// ChangePassword rotates a user's password hash after re-checking the current
// one. The row is locked for the duration so either the new hash lands or
// nothing changes.
func (s *Store) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var (
			hash   string
			active bool
		)
		row := tx.QueryRow(ctx, `
			SELECT password_hash, is_active
			FROM users
			WHERE id = $1
			FOR UPDATE
		`, userID)
		if err := row.Scan(&hash, &active); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAccountUnavailable
			}
			return err
		}
		if !active {
			return ErrAccountUnavailable
		}

		if err := crypto.CheckPassword(hash, currentPassword); err != nil {
			return ErrIncorrectPassword
		}

		newHash, err := crypto.HashPassword(newPassword, s.bcryptCost)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE users
			SET password_hash = $1, updated_at = now()
			WHERE id = $2
		`, newHash, userID)
		return err
	})
}

// CreateStaffUser inserts a new active staff account in the given school.
// The duplicate check and insert run in one transaction; the unique index on
// lower(email) backstops concurrent creation, surfacing as ErrDuplicateEmail.
func (s *Store) CreateStaffUser(ctx context.Context, schoolID string, input model.StaffInput) (string, error) {
	input = input.Normalize()
	if err := input.Validate(); err != nil {
		return "", err
	}
	if !s.emailDomainAllowed(input.Email) {
		return "", ErrDomainNotAllowed
	}

	hash, err := crypto.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return "", err
	}

	var id string
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		var existing string
		err := tx.QueryRow(ctx, `
			SELECT id FROM users WHERE lower(email) = $1
		`, input.Email).Scan(&existing)
		if err == nil {
			return ErrDuplicateEmail
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		return tx.QueryRow(ctx, `
			INSERT INTO users (school_id, email, name, role, password_hash, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, true, now(), now())
			RETURNING id
		`, schoolID, input.Email, input.Name, string(input.Role), hash).Scan(&id)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicateEmail
		}
		return "", err
	}
	return id, nil
}

// CountUsers reports the total number of user rows; the seed tool uses it to
// detect a fresh install.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&count)
	return count, err
}

func (s *Store) emailDomainAllowed(email string) bool {
	if len(s.allowedDomains) == 0 {
		return true
	}
	domain := model.EmailDomain(email)
	if domain == "" {
		return false
	}
	for _, allowed := range s.allowedDomains {
		if domain == allowed {
			return true
		}
	}
	return false
}
