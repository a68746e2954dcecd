package repository

import (
	"context"
	"time"

	"quotewall/internal/models"
	"quotewall/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TestimonialCursor is the position after the last testimonial of a page, newest first.
type TestimonialCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// TestimonialQuery selects one page of a project's testimonials.
type TestimonialQuery struct {
	ProjectID uuid.UUID
	Filter    models.TestimonialFilter
	Limit     int
	After     *TestimonialCursor
}

// TestimonialRepository defines persistence operations for testimonials.
type TestimonialRepository interface {
	CreateWithTokenConsumption(ctx context.Context, testimonial *models.Testimonial, tokenID uuid.UUID, now time.Time) error
	GetByID(ctx context.Context, projectID, id uuid.UUID) (*models.Testimonial, error)
	List(ctx context.Context, q TestimonialQuery) ([]models.Testimonial, error)
	ListApproved(ctx context.Context, projectID uuid.UUID) ([]models.Testimonial, error)
	ToggleApproved(ctx context.Context, projectID, id uuid.UUID) (*models.Testimonial, error)
	ToggleFeatured(ctx context.Context, projectID, id uuid.UUID) (*models.Testimonial, error)
}

type testimonialRepository struct {
	db *gorm.DB
}

// NewTestimonialRepository returns a new TestimonialRepository implementation.
func NewTestimonialRepository(db *gorm.DB) TestimonialRepository {
	return &testimonialRepository{db: db}
}

// CreateWithTokenConsumption consumes tokenID and inserts testimonial in one transaction.
// Either both happen or neither does. A token that is no longer consumable, or that already
// produced a testimonial, yields ErrTokenNotConsumable and leaves no row behind.
func (r *testimonialRepository) CreateWithTokenConsumption(ctx context.Context, testimonial *models.Testimonial, tokenID uuid.UUID, now time.Time) error {
	testimonial.TokenID = &tokenID
	testimonial.IsApproved = false
	testimonial.IsFeatured = false

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := consumeToken(tx, tokenID, now); err != nil {
			return err
		}

		defer observability.TrackQuery("insert", "testimonials")()
		if err := tx.Create(testimonial).Error; err != nil {
			if IsUniqueViolation(err) {
				return ErrTokenNotConsumable
			}
			return models.NewInternalError(err)
		}
		return nil
	})
}

func (r *testimonialRepository) GetByID(ctx context.Context, projectID, id uuid.UUID) (*models.Testimonial, error) {
	var t models.Testimonial
	err := r.db.WithContext(ctx).
		Where("id = ? AND project_id = ?", id, projectID).
		First(&t).Error
	if err != nil {
		return nil, notFoundOr(err, "Testimonial", id)
	}
	return &t, nil
}

// List returns up to q.Limit testimonials ordered by created_at then id, both descending.
func (r *testimonialRepository) List(ctx context.Context, q TestimonialQuery) ([]models.Testimonial, error) {
	defer observability.TrackQuery("select", "testimonials")()

	query := r.db.WithContext(ctx).Where("project_id = ?", q.ProjectID)
	switch q.Filter {
	case models.TestimonialFilterApproved:
		query = query.Where("is_approved = ?", true)
	case models.TestimonialFilterPending:
		query = query.Where("is_approved = ?", false)
	case models.TestimonialFilterFeatured:
		query = query.Where("is_featured = ?", true)
	}
	if q.After != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", q.After.CreatedAt, q.After.CreatedAt, q.After.ID)
	}

	var out []models.Testimonial
	if err := query.Order("created_at DESC").Order("id DESC").Limit(q.Limit).Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

// ListApproved returns every approved testimonial of a project. Ordering is the renderer's job.
func (r *testimonialRepository) ListApproved(ctx context.Context, projectID uuid.UUID) ([]models.Testimonial, error) {
	defer observability.TrackQuery("select", "testimonials")()
	var out []models.Testimonial
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND is_approved = ?", projectID, true).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *testimonialRepository) ToggleApproved(ctx context.Context, projectID, id uuid.UUID) (*models.Testimonial, error) {
	return r.toggle(ctx, projectID, id, "is_approved")
}

func (r *testimonialRepository) ToggleFeatured(ctx context.Context, projectID, id uuid.UUID) (*models.Testimonial, error) {
	return r.toggle(ctx, projectID, id, "is_featured")
}

// toggle flips a boolean column in place, so two concurrent toggles never collapse into one.
func (r *testimonialRepository) toggle(ctx context.Context, projectID, id uuid.UUID, column string) (*models.Testimonial, error) {
	var out models.Testimonial
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Testimonial{}).
			Where("id = ? AND project_id = ?", id, projectID).
			Update(column, gorm.Expr("NOT "+column))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("id = ?", id).First(&out).Error
	})
	if err != nil {
		return nil, notFoundOr(err, "Testimonial", id)
	}
	return &out, nil
}

