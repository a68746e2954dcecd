package repository

import (
	"context"

	"quotewall/internal/models"
	"quotewall/internal/observability"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WidgetRepository defines persistence operations for widget configs.
type WidgetRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.WidgetConfig, error)
	GetByProject(ctx context.Context, projectID uuid.UUID) (*models.WidgetConfig, error)
	Update(ctx context.Context, cfg *models.WidgetConfig) error
	SetAllowedDomains(ctx context.Context, projectID uuid.UUID, domains []string) (*models.WidgetConfig, error)
}

type widgetRepository struct {
	db *gorm.DB
}

// NewWidgetRepository returns a new WidgetRepository implementation.
func NewWidgetRepository(db *gorm.DB) WidgetRepository {
	return &widgetRepository{db: db}
}

// GetByID looks a widget up by its public id.
func (r *widgetRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WidgetConfig, error) {
	defer observability.TrackQuery("select", "widget_configs")()
	var cfg models.WidgetConfig
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&cfg).Error; err != nil {
		return nil, notFoundOr(err, "Widget", id)
	}
	return &cfg, nil
}

func (r *widgetRepository) GetByProject(ctx context.Context, projectID uuid.UUID) (*models.WidgetConfig, error) {
	var cfg models.WidgetConfig
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).First(&cfg).Error; err != nil {
		return nil, notFoundOr(err, "Widget", projectID)
	}
	return &cfg, nil
}

// Update writes the display settings of cfg. The allow-list and ownership are left untouched.
func (r *widgetRepository) Update(ctx context.Context, cfg *models.WidgetConfig) error {
	res := r.db.WithContext(ctx).
		Model(&models.WidgetConfig{}).
		Where("id = ? AND project_id = ?", cfg.ID, cfg.ProjectID).
		Updates(map[string]interface{}{
			"primary_color":    cfg.PrimaryColor,
			"background_color": cfg.BackgroundColor,
			"text_color":       cfg.TextColor,
			"display_layout":   cfg.DisplayLayout,
			"display_order":    cfg.DisplayOrder,
			"show_rating":      cfg.ShowRating,
			"show_avatar":      cfg.ShowAvatar,
			"grid_columns":     cfg.GridColumns,
			"grid_gap":         cfg.GridGap,
			"auto_play":        cfg.AutoPlay,
			"speed_ms":         cfg.SpeedMs,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Widget", cfg.ID)
	}
	return nil
}

func (r *widgetRepository) SetAllowedDomains(ctx context.Context, projectID uuid.UUID, domains []string) (*models.WidgetConfig, error) {
	var cfg models.WidgetConfig
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).First(&cfg).Error; err != nil {
			return err
		}
		cfg.AllowedDomains = datatypes.JSONSlice[string](domains)
		return tx.Model(&cfg).Update("allowed_domains", cfg.AllowedDomains).Error
	})
	if err != nil {
		return nil, notFoundOr(err, "Widget", projectID)
	}
	return &cfg, nil
}
