package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"quotewall/internal/config"
	"quotewall/internal/middleware"

	"gorm.io/gorm"
)

// Values of DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// schemaPlan is what ApplySchema will do for a configuration.
type schemaPlan struct {
	mode string
	sql  bool
	auto bool
}

// SchemaStatus is a read-only report for `migrate status`.
type SchemaStatus struct {
	Mode        string
	Environment string
	SQL         bool
	AutoMigrate bool
	Applied     []int
	Pending     []Migration
}

// sharedEnvironment is true where AutoMigrate must not touch the schema implicitly.
func sharedEnvironment(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

func planSchema(cfg *config.Config) (schemaPlan, error) {
	plan := schemaPlan{mode: strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))}
	if plan.mode == "" {
		plan.mode = SchemaModeHybrid
	}
	shared := sharedEnvironment(cfg.Env)

	switch plan.mode {
	case SchemaModeSQL:
		plan.sql = true
	case SchemaModeHybrid:
		plan.sql = true
		plan.auto = !shared
	case SchemaModeAuto:
		if shared && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("DB_SCHEMA_MODE=auto in %q requires DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.auto = true
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.mode)
	}
	return plan, nil
}

// ApplySchema runs SQL migrations and/or AutoMigrate as DB_SCHEMA_MODE dictates.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}

	if plan.sql {
		n, err := NewMigrator(db).Up(ctx)
		if err != nil {
			return err
		}
		middleware.Logger.InfoContext(ctx, "SQL migrations up to date", slog.Int("applied", n))
	}

	if plan.auto {
		if plan.mode == SchemaModeAuto && sharedEnvironment(cfg.Env) {
			middleware.Logger.Warn("AutoMigrate enabled in a shared environment", slog.String("env", cfg.Env))
		}
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// GetSchemaStatus reports the plan and the migration history without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{
		Mode:        plan.mode,
		Environment: cfg.Env,
		SQL:         plan.sql,
		AutoMigrate: plan.auto,
	}

	m := NewMigrator(db)
	if status.Applied, err = m.Applied(ctx); err != nil {
		return nil, err
	}
	if status.Pending, err = m.Pending(ctx); err != nil {
		return nil, err
	}
	return status, nil
}
