// Package testutil provides shared databases and fixtures for backend tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"quotewall/internal/database"
	"quotewall/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewSQLiteDB returns a migrated in-memory database private to the test. The shared cache and
// a single pooled connection let concurrent goroutines see one database and serialize writes.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:quotewall_test_%d?mode=memory&cache=shared&_busy_timeout=5000", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// NewRedis starts a miniredis server and returns it with a connected client.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// Tenant is a project created with its default widget config and collect link.
type Tenant struct {
	Project models.Project
	Widget  models.WidgetConfig
	Link    models.CollectLink
}

// CreateTenant inserts a project owned by ownerID with an empty allow-list and an active collect link.
func CreateTenant(t testing.TB, db *gorm.DB, slug, ownerID string) *Tenant {
	t.Helper()

	tenant := &Tenant{
		Project: models.Project{Name: "Project " + slug, Slug: slug, OwnerID: ownerID},
	}
	require.NoError(t, db.Create(&tenant.Project).Error)
	require.NoError(t, db.Create(&models.ProjectMember{
		ProjectID: tenant.Project.ID,
		MemberID:  ownerID,
		Role:      models.MemberRoleOwner,
	}).Error)

	tenant.Widget = models.WidgetConfig{ProjectID: tenant.Project.ID}
	require.NoError(t, db.Create(&tenant.Widget).Error)

	tenant.Link = models.CollectLink{
		ProjectID:       tenant.Project.ID,
		Slug:            slug,
		ThankYouMessage: models.DefaultThankYouMessage,
	}
	require.NoError(t, db.Create(&tenant.Link).Error)
	require.NoError(t, db.Model(&tenant.Link).Update("is_active", true).Error)
	tenant.Link.IsActive = true

	return tenant
}

// AddMember grants memberID the role on the tenant's project.
func AddMember(t testing.TB, db *gorm.DB, projectID uuid.UUID, memberID string, role models.MemberRole) {
	t.Helper()
	require.NoError(t, db.Create(&models.ProjectMember{ProjectID: projectID, MemberID: memberID, Role: role}).Error)
}

// TokenOption adjusts a fixture token before insert.
type TokenOption func(*models.CollectionToken)

func WithExpiry(at time.Time) TokenOption {
	return func(tok *models.CollectionToken) {
		at = at.UTC()
		tok.ExpiresAt = &at
	}
}

func WithCreator(memberID string) TokenOption {
	return func(tok *models.CollectionToken) {
		tok.CreatedByID = memberID
		tok.CreatedBy = memberID + "@example.com"
	}
}

func Used() TokenOption {
	return func(tok *models.CollectionToken) { tok.Used = true }
}

func Cancelled() TokenOption {
	return func(tok *models.CollectionToken) { tok.Cancelled = true }
}

// CreateToken inserts a collection token with the given string for projectID.
func CreateToken(t testing.TB, db *gorm.DB, projectID uuid.UUID, token string, opts ...TokenOption) *models.CollectionToken {
	t.Helper()
	tok := &models.CollectionToken{
		Token:       token,
		ProjectID:   projectID,
		CreatedBy:   "owner@example.com",
		CreatedByID: "owner",
	}
	for _, opt := range opts {
		opt(tok)
	}
	require.NoError(t, db.Create(tok).Error)
	return tok
}

// CreateTestimonial inserts a testimonial directly, bypassing token consumption.
func CreateTestimonial(t testing.TB, db *gorm.DB, projectID uuid.UUID, name string, approved bool, createdAt time.Time) *models.Testimonial {
	t.Helper()
	rating := 5
	tm := &models.Testimonial{
		ProjectID:    projectID,
		CustomerName: name,
		Rating:       &rating,
		Text:         "A wonderful experience from start to finish",
		CreatedAt:    createdAt.UTC(),
	}
	require.NoError(t, db.Create(tm).Error)
	if approved {
		require.NoError(t, db.Model(tm).Update("is_approved", true).Error)
		tm.IsApproved = true
	}
	return tm
}
