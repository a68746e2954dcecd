// Package bootstrap wires the process-wide runtime shared by the server and the CLI tools.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"quotewall/internal/cache"
	"quotewall/internal/config"
	"quotewall/internal/database"
	"quotewall/internal/middleware"
	"quotewall/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SkipSchema connects without running migrations, for schema tooling.
	SkipSchema bool
	// SeedDemo loads the demo preset in development when the database has no projects.
	SeedDemo bool
}

// InitRuntime connects to DB and Redis and optionally prepares the schema and demo data.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: !opts.SkipSchema})
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.SeedDemo {
		if err := seedDemo(ctx, cfg, db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

func seedDemo(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg.Env != "development" {
		return nil
	}
	var projects int64
	if err := db.WithContext(ctx).Table("projects").Count(&projects).Error; err != nil {
		return err
	}
	if projects > 0 {
		return nil
	}

	middleware.Logger.InfoContext(ctx, "empty development database, loading demo preset",
		slog.String("preset", seed.DemoPreset.Name))
	return seed.NewSeeder(db, seed.Options{PublicBaseURL: cfg.AppURL}).ApplyPreset(ctx, seed.DemoPreset)
}
