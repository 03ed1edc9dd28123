package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sorianoB28/big-feelings-toolkit-app/internal/crypto"
)

// Store is the authorization-scoped data access layer over the relational
// schema. Every student/staff read or write resolves the acting user's
// access scope fresh from storage before touching tenant data.
type Store struct {
	pool           *pgxpool.Pool
	bcryptCost     int
	allowedDomains []string
}

type Options struct {
	// BcryptCost for new password hashes; zero means the package default.
	BcryptCost int
	// AllowedEmailDomains restricts sign-in and staff creation when
	// non-empty.
	AllowedEmailDomains []string
}

func NewStore(pool *pgxpool.Pool, opts Options) *Store {
	cost := opts.BcryptCost
	if cost == 0 {
		cost = crypto.DefaultBcryptCost
	}
	return &Store{
		pool:           pool,
		bcryptCost:     cost,
		allowedDomains: opts.AllowedEmailDomains,
	}
}

// withTx runs fn in a transaction, rolling back on any error. Check-then-write
// sequences go through here so concurrent mutations cannot interleave between
// the check and the write.
func (s *Store) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
