package database

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"quotewall/internal/middleware"

	"gorm.io/gorm"
)

// appliedMigration is a row of schema_migrations.
type appliedMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	Checksum  string    `gorm:"size:64;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (appliedMigration) TableName() string {
	return "schema_migrations"
}

// Migrator applies versioned SQL migrations and keeps their history in schema_migrations.
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

// NewMigrator returns a Migrator over the embedded migrations.
func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{db: db, migrations: migrations}
}

func (m *Migrator) history(ctx context.Context) ([]appliedMigration, error) {
	tx := m.db.WithContext(ctx)
	if !tx.Migrator().HasTable(&appliedMigration{}) {
		return nil, nil
	}
	var rows []appliedMigration
	if err := tx.Order("version ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	return rows, nil
}

// Applied returns the applied versions in ascending order.
func (m *Migrator) Applied(ctx context.Context) ([]int, error) {
	rows, err := m.history(ctx)
	if err != nil {
		return nil, err
	}
	versions := make([]int, 0, len(rows))
	for _, r := range rows {
		versions = append(versions, r.Version)
	}
	return versions, nil
}

// Pending returns the migrations not yet applied, in version order.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	rows, err := m.history(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[int]bool, len(rows))
	for _, r := range rows {
		done[r.Version] = true
	}
	var pending []Migration
	for _, mig := range m.migrations {
		if !done[mig.Version] {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Up applies every pending migration, each in its own transaction, and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.db.WithContext(ctx).AutoMigrate(&appliedMigration{}); err != nil {
		return 0, fmt.Errorf("ensure schema_migrations: %w", err)
	}
	rows, err := m.history(ctx)
	if err != nil {
		return 0, err
	}
	if err := verifyHistory(rows, m.migrations); err != nil {
		return 0, err
	}

	pending, err := m.Pending(ctx)
	if err != nil {
		return 0, err
	}
	for i, mig := range pending {
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.UpScript).Error; err != nil {
				return err
			}
			return tx.Create(&appliedMigration{Version: mig.Version, Name: mig.Name, Checksum: mig.Checksum}).Error
		})
		if err != nil {
			return i, fmt.Errorf("apply migration %s: %w", mig.String(), err)
		}
		middleware.Logger.InfoContext(ctx, "Migration applied", slog.String("migration", mig.String()))
	}
	return len(pending), nil
}

// Down reverts an applied migration and removes it from the history.
func (m *Migrator) Down(ctx context.Context, version int) error {
	var target *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == version {
			target = &m.migrations[i]
		}
	}
	if target == nil {
		return fmt.Errorf("migration %06d does not exist", version)
	}

	applied, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	if i := sort.SearchInts(applied, version); i == len(applied) || applied[i] != version {
		return fmt.Errorf("migration %s has not been applied", target.String())
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(target.DownScript).Error; err != nil {
			return err
		}
		return tx.Where("version = ?", version).Delete(&appliedMigration{}).Error
	})
	if err != nil {
		return fmt.Errorf("revert migration %s: %w", target.String(), err)
	}
	middleware.Logger.InfoContext(ctx, "Migration reverted", slog.String("migration", target.String()))
	return nil
}

// verifyHistory rejects a database whose history names versions this build does not ship
// or whose applied scripts were edited afterwards.
func verifyHistory(rows []appliedMigration, known []Migration) error {
	byVersion := make(map[int]Migration, len(known))
	for _, mig := range known {
		byVersion[mig.Version] = mig
	}

	var unknown, edited []string
	for _, r := range rows {
		mig, ok := byVersion[r.Version]
		switch {
		case !ok:
			unknown = append(unknown, fmt.Sprintf("%06d", r.Version))
		case r.Checksum != "" && r.Checksum != mig.Checksum:
			edited = append(edited, mig.String())
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("schema_migrations lists versions missing from this build: %s", strings.Join(unknown, ", "))
	}
	if len(edited) > 0 {
		return fmt.Errorf("applied migrations were modified afterwards: %s", strings.Join(edited, ", "))
	}
	return nil
}
