package db

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"fieldpay/internal/domain/auth"
	"fieldpay/internal/domain/payroll"
	"fieldpay/internal/platform/config"
	"fieldpay/internal/platform/logging"
	"fieldpay/internal/platform/querier"
)

// DefaultCommissionTypes are created with zero rates; an admin sets the real percentages.
var DefaultCommissionTypes = []string{"A", "B", "C"}

// Seed is idempotent: existing rows are never overwritten.
func Seed(ctx context.Context, db querier.Querier, cfg config.Config, logger ...*zap.Logger) error {
	log := logging.Named("db.seed", logger...)

	if err := auth.NewStore(db).SyncRolePermissions(ctx); err != nil {
		return fmt.Errorf("seed role permissions: %w", err)
	}
	if err := ensureCommissionTypes(ctx, db); err != nil {
		return fmt.Errorf("seed commission types: %w", err)
	}
	if err := ensureBookTiers(ctx, db); err != nil {
		return fmt.Errorf("seed book tiers: %w", err)
	}
	created, err := ensureAdminUser(ctx, db, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	if created {
		log.Info("admin user seeded", zap.String("email", cfg.SeedAdminEmail))
	}
	return nil
}

func ensureCommissionTypes(ctx context.Context, db querier.Querier) error {
	for _, code := range DefaultCommissionTypes {
		if _, err := db.Exec(ctx, `
      INSERT INTO commission_structures (type_code, own_rate_percent, office_rate_percent)
      VALUES ($1, 0, 0)
      ON CONFLICT (type_code) DO NOTHING
    `, code); err != nil {
			return err
		}
	}
	return nil
}

func ensureBookTiers(ctx context.Context, db querier.Querier) error {
	for _, term := range payroll.DefaultBookTerms {
		if _, err := db.Exec(ctx, `
      INSERT INTO book_tiers (term, amount) VALUES ($1, 0)
      ON CONFLICT (term) DO NOTHING
    `, float64(term)); err != nil {
			return err
		}
	}
	return nil
}

func ensureAdminUser(ctx context.Context, db querier.Querier, email, password string) (bool, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return false, nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	tag, err := db.Exec(ctx, `
    INSERT INTO users (email, password_hash, role)
    VALUES ($1, $2, $3)
    ON CONFLICT (email) DO NOTHING
  `, strings.ToLower(strings.TrimSpace(email)), hash, auth.RoleAdmin)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
