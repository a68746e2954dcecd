// Package seed provides helpers to create demo data for the application database.
// These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"quotewall/internal/models"
	"quotewall/internal/repository"
	"quotewall/internal/service"
	"quotewall/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Options tune how factories spread generated data.
type Options struct {
	// DryRun builds entities without persisting them.
	DryRun bool
	// MaxDays bounds how far back testimonial timestamps are spread.
	MaxDays int
	// PublicBaseURL is used for the collection links of issued tokens.
	PublicBaseURL string
}

// Factory builds domain entities and persists them through the same services the API uses,
// so seeded data obeys every rule live data does.
type Factory struct {
	db           *gorm.DB
	opts         Options
	rnd          *rand.Rand
	projects     *service.ProjectService
	tokens       *service.TokenService
	testimonials repository.TestimonialRepository
	links        repository.CollectLinkRepository
	widgets      repository.WidgetRepository
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	if opts.PublicBaseURL == "" {
		opts.PublicBaseURL = "http://localhost:3000"
	}

	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)
	f := &Factory{
		db:   db,
		opts: opts,
		// #nosec G404: acceptable for seeding
		rnd: rand.New(rand.NewSource(seed)),
	}
	if db != nil {
		f.projects = service.NewProjectService(repository.NewProjectRepository(db))
		f.tokens = service.NewTokenService(repository.NewTokenRepository(db), opts.PublicBaseURL, nil)
		f.testimonials = repository.NewTestimonialRepository(db)
		f.links = repository.NewCollectLinkRepository(db)
		f.widgets = repository.NewWidgetRepository(db)
	}
	return f
}

// BuildTestimonial returns a testimonial payload that passes submission validation.
func (f *Factory) BuildTestimonial() validation.TestimonialPayload {
	rating := 3 + f.rnd.Intn(3)
	p := validation.TestimonialPayload{
		CustomerName: gofakeit.Name(),
		Rating:       &rating,
		Text:         f.quote(),
	}
	if f.rnd.Intn(3) > 0 {
		p.CustomerTitle = gofakeit.JobTitle()
		p.CustomerCompany = gofakeit.Company()
	}
	if f.rnd.Intn(2) == 0 {
		p.CustomerAvatarURL = fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID())
	}
	return p
}

func (f *Factory) quote() string {
	openers := []string{
		"Working with %s has been %s.",
		"%s made our onboarding %s.",
		"I recommend %s to anyone, the support was %s.",
	}
	text := fmt.Sprintf(openers[f.rnd.Intn(len(openers))], gofakeit.Company(), gofakeit.AdjectiveDescriptive())
	return strings.TrimSpace(text + " " + gofakeit.Sentence(10+f.rnd.Intn(10)))
}

// createdAt spreads timestamps over the last MaxDays days.
func (f *Factory) createdAt() time.Time {
	back := time.Duration(f.rnd.Intn(f.opts.MaxDays))*24*time.Hour +
		time.Duration(f.rnd.Intn(24))*time.Hour +
		time.Duration(f.rnd.Intn(60))*time.Minute
	return time.Now().UTC().Add(-back)
}

// CreateProject provisions a project with its widget and collect link.
func (f *Factory) CreateProject(ctx context.Context, name, slug, ownerID string) (*service.ProjectDetails, error) {
	if name == "" {
		name = gofakeit.Company()
	}
	if f.opts.DryRun {
		return &service.ProjectDetails{Project: &models.Project{ID: uuid.New(), Name: name, Slug: slug, OwnerID: ownerID}}, nil
	}
	return f.projects.Create(ctx, service.CreateProjectInput{Name: truncate(name, 50), Slug: slug, OwnerID: ownerID})
}

// OpenCollectLink activates the project's collection page.
func (f *Factory) OpenCollectLink(ctx context.Context, projectID uuid.UUID) error {
	if f.opts.DryRun {
		return nil
	}
	link, err := f.links.GetByProject(ctx, projectID)
	if err != nil {
		return err
	}
	if link.IsActive {
		return nil
	}
	_, err = f.links.Toggle(ctx, projectID)
	return err
}

// AllowDomains replaces the project's widget allow-list with the canonical form of domains.
func (f *Factory) AllowDomains(ctx context.Context, projectID uuid.UUID, domains []string) error {
	canonical := make([]string, 0, len(domains))
	for _, d := range domains {
		origin, err := validation.CanonicalOrigin(d)
		if err != nil {
			return fmt.Errorf("allowed domain %q: %w", d, err)
		}
		canonical = append(canonical, origin)
	}
	if f.opts.DryRun {
		return nil
	}
	_, err := f.widgets.SetAllowedDomains(ctx, projectID, canonical)
	return err
}

// IssueToken creates an unused collection token.
func (f *Factory) IssueToken(ctx context.Context, projectID uuid.UUID, ownerID string) (*models.CollectionToken, error) {
	if f.opts.DryRun {
		return &models.CollectionToken{ID: uuid.New(), ProjectID: projectID, Token: gofakeit.LetterN(32)}, nil
	}
	return f.tokens.Issue(ctx, service.IssueTokenInput{
		ProjectID:   projectID,
		Description: "For " + gofakeit.Name(),
		CreatedBy:   ownerID,
		CreatedByID: ownerID,
	})
}

// CreateTestimonial submits a generated testimonial through a freshly issued token, then applies
// the moderation flags.
func (f *Factory) CreateTestimonial(ctx context.Context, projectID uuid.UUID, ownerID string, approved, featured bool) (*models.Testimonial, error) {
	payload := f.BuildTestimonial().Normalize()
	t := &models.Testimonial{
		ProjectID:         projectID,
		CustomerName:      payload.CustomerName,
		CustomerTitle:     payload.CustomerTitle,
		CustomerCompany:   payload.CustomerCompany,
		CustomerAvatarURL: payload.CustomerAvatarURL,
		Rating:            payload.Rating,
		Text:              payload.Text,
		CreatedAt:         f.createdAt(),
	}
	if f.opts.DryRun {
		t.ID = uuid.New()
		t.IsApproved, t.IsFeatured = approved, featured
		return t, nil
	}

	token, err := f.IssueToken(ctx, projectID, ownerID)
	if err != nil {
		return nil, err
	}
	tokenID := token.ID
	t.TokenID = &tokenID
	if err := f.testimonials.CreateWithTokenConsumption(ctx, t, token.ID, time.Now().UTC()); err != nil {
		return nil, err
	}

	if approved {
		if t, err = f.testimonials.ToggleApproved(ctx, projectID, t.ID); err != nil {
			return nil, err
		}
	}
	if featured {
		if t, err = f.testimonials.ToggleFeatured(ctx, projectID, t.ID); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
