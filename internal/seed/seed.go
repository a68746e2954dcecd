package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"quotewall/internal/middleware"
	"quotewall/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Seeder populates a database with demo projects.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder creates a seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, opts)}
}

// Counts says how much random data Seed generates per project.
type Counts struct {
	Projects     int
	Testimonials int
	Tokens       int
}

// ClearAll deletes every row the application owns, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	middleware.Logger.InfoContext(ctx, "clearing existing data")
	tables := []interface{}{
		&models.Testimonial{},
		&models.CollectionToken{},
		&models.CollectLink{},
		&models.WidgetConfig{},
		&models.ProjectMember{},
		&models.Project{},
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error; err != nil {
				return fmt.Errorf("clear %T: %w", table, err)
			}
		}
		return nil
	})
}

// Seed creates random projects owned by ownerID. Roughly two thirds of the testimonials are
// approved and one in five of those is featured.
func (s *Seeder) Seed(ctx context.Context, ownerID string, counts Counts) error {
	preset := Preset{Name: "random"}
	for i := 0; i < counts.Projects; i++ {
		approved := counts.Testimonials * 2 / 3
		preset.Projects = append(preset.Projects, ProjectPreset{
			Slug:   fmt.Sprintf("%s-%d", strings.ToLower(gofakeit.LetterN(6)), i+1),
			Owner:  ownerID,
			Active: true,
			Testimonials: TestimonialCounts{
				Approved: approved - approved/5,
				Featured: approved / 5,
				Pending:  counts.Testimonials - approved,
			},
			Tokens: counts.Tokens,
		})
	}
	return s.ApplyPreset(ctx, preset)
}

// ApplyPreset creates every project the preset describes.
func (s *Seeder) ApplyPreset(ctx context.Context, preset Preset) error {
	f := s.factory
	for _, p := range preset.Projects {
		details, err := f.CreateProject(ctx, p.Name, p.Slug, p.Owner)
		if err != nil {
			return fmt.Errorf("project %q: %w", p.Slug, err)
		}
		id := details.Project.ID

		if p.Active {
			if err := f.OpenCollectLink(ctx, id); err != nil {
				return fmt.Errorf("project %q: open collect link: %w", p.Slug, err)
			}
		}
		if len(p.AllowedDomains) > 0 {
			if err := f.AllowDomains(ctx, id, p.AllowedDomains); err != nil {
				return fmt.Errorf("project %q: %w", p.Slug, err)
			}
		}

		batches := []struct {
			n                  int
			approved, featured bool
		}{
			{p.Testimonials.Featured, true, true},
			{p.Testimonials.Approved, true, false},
			{p.Testimonials.Pending, false, false},
		}
		for _, b := range batches {
			for i := 0; i < b.n; i++ {
				if _, err := f.CreateTestimonial(ctx, id, p.Owner, b.approved, b.featured); err != nil {
					return fmt.Errorf("project %q: testimonial: %w", p.Slug, err)
				}
			}
		}

		for i := 0; i < p.Tokens; i++ {
			if _, err := f.IssueToken(ctx, id, p.Owner); err != nil {
				return fmt.Errorf("project %q: token: %w", p.Slug, err)
			}
		}

		middleware.Logger.InfoContext(ctx, "seeded project",
			slog.String("slug", p.Slug),
			slog.String("project_id", id.String()),
			slog.Int("testimonials", p.Testimonials.total()),
			slog.Int("open_tokens", p.Tokens))
	}
	return nil
}
