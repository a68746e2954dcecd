package repository

import (
	"context"

	"quotewall/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CollectLinkRepository defines persistence operations for collect links.
type CollectLinkRepository interface {
	GetByProject(ctx context.Context, projectID uuid.UUID) (*models.CollectLink, error)
	GetBySlug(ctx context.Context, slug string) (*models.CollectLink, error)
	Toggle(ctx context.Context, projectID uuid.UUID) (*models.CollectLink, error)
}

type collectLinkRepository struct {
	db *gorm.DB
}

// NewCollectLinkRepository returns a new CollectLinkRepository implementation.
func NewCollectLinkRepository(db *gorm.DB) CollectLinkRepository {
	return &collectLinkRepository{db: db}
}

func (r *collectLinkRepository) GetByProject(ctx context.Context, projectID uuid.UUID) (*models.CollectLink, error) {
	var link models.CollectLink
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).First(&link).Error; err != nil {
		return nil, notFoundOr(err, "CollectLink", projectID)
	}
	return &link, nil
}

func (r *collectLinkRepository) GetBySlug(ctx context.Context, slug string) (*models.CollectLink, error) {
	var link models.CollectLink
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&link).Error; err != nil {
		return nil, notFoundOr(err, "CollectLink", slug)
	}
	return &link, nil
}

// Toggle flips is_active and returns the updated link.
func (r *collectLinkRepository) Toggle(ctx context.Context, projectID uuid.UUID) (*models.CollectLink, error) {
	var link models.CollectLink
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CollectLink{}).
			Where("project_id = ?", projectID).
			Update("is_active", gorm.Expr("NOT is_active"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("project_id = ?", projectID).First(&link).Error
	})
	if err != nil {
		return nil, notFoundOr(err, "CollectLink", projectID)
	}
	return &link, nil
}
