package repository

import (
	"context"
	"time"

	"quotewall/internal/models"
	"quotewall/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TokenStats are aggregate counts over a project's collection tokens.
// Active tokens are consumable now; Expired counts unused, uncancelled tokens past expiry.
type TokenStats struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Used      int64 `json:"used"`
	Cancelled int64 `json:"cancelled"`
	Expired   int64 `json:"expired"`
}

// TokenRepository defines persistence operations for collection tokens.
type TokenRepository interface {
	Create(ctx context.Context, token *models.CollectionToken) error
	GetByToken(ctx context.Context, token string) (*models.CollectionToken, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.CollectionToken, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.CollectionToken, error)
	Stats(ctx context.Context, projectID uuid.UUID, now time.Time) (*TokenStats, error)
	Consume(ctx context.Context, id uuid.UUID, now time.Time) error
	Cancel(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository returns a new TokenRepository implementation.
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

// Create inserts token. Unique violations are returned unwrapped so callers can retry.
func (r *tokenRepository) Create(ctx context.Context, token *models.CollectionToken) error {
	defer observability.TrackQuery("insert", "collection_tokens")()
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return models.NewInternalError(err)
	}
	return nil
}

// GetByToken resolves a token string together with its project, which validation needs for the slug check.
func (r *tokenRepository) GetByToken(ctx context.Context, token string) (*models.CollectionToken, error) {
	defer observability.TrackQuery("select", "collection_tokens")()
	var t models.CollectionToken
	if err := r.db.WithContext(ctx).Preload("Project").Where("token = ?", token).First(&t).Error; err != nil {
		return nil, notFoundOr(err, "CollectionToken", "")
	}
	return &t, nil
}

func (r *tokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CollectionToken, error) {
	var t models.CollectionToken
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, notFoundOr(err, "CollectionToken", id)
	}
	return &t, nil
}

// ListByProject returns the project's tokens newest first, with the project preloaded for link building.
func (r *tokenRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.CollectionToken, error) {
	defer observability.TrackQuery("select", "collection_tokens")()
	var tokens []models.CollectionToken
	err := r.db.WithContext(ctx).
		Preload("Project").
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&tokens).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tokens, nil
}

func (r *tokenRepository) Stats(ctx context.Context, projectID uuid.UUID, now time.Time) (*TokenStats, error) {
	defer observability.TrackQuery("aggregate", "collection_tokens")()
	var stats TokenStats
	err := r.db.WithContext(ctx).
		Model(&models.CollectionToken{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN used = ? AND cancelled = ? AND (expires_at IS NULL OR expires_at > ?) THEN 1 ELSE 0 END), 0) AS active,
			COALESCE(SUM(CASE WHEN used = ? THEN 1 ELSE 0 END), 0) AS used,
			COALESCE(SUM(CASE WHEN cancelled = ? THEN 1 ELSE 0 END), 0) AS cancelled,
			COALESCE(SUM(CASE WHEN used = ? AND cancelled = ? AND expires_at IS NOT NULL AND expires_at <= ? THEN 1 ELSE 0 END), 0) AS expired`,
			false, false, now, true, true, false, false, now).
		Where("project_id = ?", projectID).
		Scan(&stats).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &stats, nil
}

// Consume flips used in a single conditional update. Zero affected rows means another request
// got there first or the token stopped being consumable; it is reported as ErrTokenNotConsumable.
func (r *tokenRepository) Consume(ctx context.Context, id uuid.UUID, now time.Time) error {
	return consumeToken(r.db.WithContext(ctx), id, now)
}

func consumeToken(db *gorm.DB, id uuid.UUID, now time.Time) error {
	defer observability.TrackQuery("consume", "collection_tokens")()
	res := db.Model(&models.CollectionToken{}).
		Where("id = ? AND used = ? AND cancelled = ? AND (expires_at IS NULL OR expires_at > ?)", id, false, false, now).
		Updates(map[string]interface{}{"used": true, "used_at": now})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTokenNotConsumable
	}
	return nil
}

// Cancel sets cancelled on a token that is neither used nor already cancelled. It reports
// whether a row changed; callers re-read the token to tell the two no-op cases apart.
func (r *tokenRepository) Cancel(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	defer observability.TrackQuery("cancel", "collection_tokens")()
	res := r.db.WithContext(ctx).
		Model(&models.CollectionToken{}).
		Where("id = ? AND used = ? AND cancelled = ?", id, false, false).
		Updates(map[string]interface{}{"cancelled": true, "cancelled_at": now})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}
