// Seed bootstraps a school and its first admin account. It is idempotent:
// rerunning realigns the admin row with the configured school, role, and
// active flag instead of duplicating it.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/sorianoB28/big-feelings-toolkit-app/internal/config"
	"github.com/sorianoB28/big-feelings-toolkit-app/internal/crypto"
	"github.com/sorianoB28/big-feelings-toolkit-app/internal/db"
	"github.com/sorianoB28/big-feelings-toolkit-app/internal/model"
)

func main() {
	cfg := config.Load()

	schoolName := getenvDefault("SEED_SCHOOL_NAME", "Oakestown Intermediate School")
	districtName := getenvDefault("SEED_DISTRICT_NAME", "Grandville Public Schools")
	adminEmail := model.NormalizeEmail(requireEnv("SEED_ADMIN_EMAIL"))
	adminName := requireEnv("SEED_ADMIN_NAME")
	adminPassword := requireEnv("SEED_ADMIN_PASSWORD")

	if !strings.Contains(adminEmail, "@") {
		log.Fatalf("SEED_ADMIN_EMAIL must be a valid email address")
	}
	if len(adminPassword) < 8 {
		log.Fatalf("SEED_ADMIN_PASSWORD must be at least 8 characters")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connection failed: %v", err)
	}
	defer pool.Close()

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		log.Fatalf("begin failed: %v", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	schoolID, created, err := ensureSchool(ctx, tx, schoolName, districtName)
	if err != nil {
		log.Fatalf("school seed failed: %v", err)
	}
	if created {
		log.Printf("created school %q (%s)", schoolName, schoolID)
	} else {
		log.Printf("reusing school %q (%s)", schoolName, schoolID)
	}

	if err := ensureAdmin(ctx, tx, cfg.BcryptCost, schoolID, adminEmail, adminName, adminPassword); err != nil {
		log.Fatalf("admin seed failed: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("commit failed: %v", err)
	}
	log.Printf("seed complete")
}

func ensureSchool(ctx context.Context, tx pgx.Tx, name, district string) (string, bool, error) {
	var id string
	err := tx.QueryRow(ctx, `
		SELECT id FROM schools WHERE lower(name) = lower($1)
	`, name).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO schools (name, district_name, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		RETURNING id
	`, name, district).Scan(&id)
	return id, true, err
}

func ensureAdmin(ctx context.Context, tx pgx.Tx, bcryptCost int, schoolID, email, name, password string) error {
	var (
		id        string
		rowSchool *string
		rowRole   string
		rowActive bool
		rowName   *string
	)
	err := tx.QueryRow(ctx, `
		SELECT id, school_id, role, is_active, name
		FROM users
		WHERE lower(email) = lower($1)
	`, email).Scan(&id, &rowSchool, &rowRole, &rowActive, &rowName)

	switch {
	case err == nil:
		log.Printf("admin user already exists: %s (%s)", email, id)
		aligned := rowSchool != nil && *rowSchool == schoolID &&
			rowRole == string(model.RoleAdmin) &&
			rowActive &&
			rowName != nil && *rowName == name
		if aligned {
			return nil
		}
		_, err = tx.Exec(ctx, `
			UPDATE users
			SET school_id = $1, name = $2, role = 'admin', is_active = true, updated_at = now()
			WHERE id = $3
		`, schoolID, name, id)
		if err == nil {
			log.Printf("realigned existing admin user: %s", email)
		}
		return err

	case errors.Is(err, pgx.ErrNoRows):
		hash, err := crypto.HashPassword(password, bcryptCost)
		if err != nil {
			return err
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO users (school_id, email, name, role, password_hash, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, 'admin', $4, true, now(), now())
			RETURNING id
		`, schoolID, email, name, hash).Scan(&id)
		if err == nil {
			log.Printf("created admin user: %s (%s)", email, id)
		}
		return err

	default:
		return err
	}
}

func requireEnv(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		log.Fatalf("missing required environment variable: %s", key)
	}
	return value
}

func getenvDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
