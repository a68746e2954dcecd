// Command migrate inspects and changes the Quotewall database schema.
//
//	migrate up             apply pending SQL migrations
//	migrate auto           run GORM AutoMigrate over every persistent model
//	migrate status         print the schema plan and migration history
//	migrate down <version> revert one applied migration
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"

	"quotewall/internal/bootstrap"
	"quotewall/internal/config"
	"quotewall/internal/database"

	"gorm.io/gorm"
)

var errUsage = errors.New("usage: migrate <up|auto|status|down> [version]")

func main() {
	flag.Parse()
	if err := run(flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := context.Background()
	db, _, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SkipSchema: true})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	switch args[0] {
	case "up":
		n, err := database.NewMigrator(db).Up(ctx)
		if err != nil {
			return err
		}
		log.Printf("%d migration(s) applied", n)
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return err
		}
		log.Println("AutoMigrate complete")
	case "status":
		return printStatus(ctx, db, cfg)
	case "down":
		if len(args) < 2 {
			return errUsage
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		if err := database.NewMigrator(db).Down(ctx, version); err != nil {
			return err
		}
		log.Printf("migration %06d reverted", version)
	default:
		return errUsage
	}
	return nil
}

func printStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("env:          %s\n", status.Environment)
	fmt.Printf("mode:         %s (sql=%t automigrate=%t)\n", status.Mode, status.SQL, status.AutoMigrate)
	fmt.Printf("applied:      %v\n", status.Applied)
	if len(status.Pending) == 0 {
		fmt.Println("pending:      none")
		return nil
	}
	for _, m := range status.Pending {
		fmt.Printf("pending:      %s\n", m.String())
	}
	return nil
}
