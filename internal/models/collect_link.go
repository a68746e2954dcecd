package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultThankYouMessage is shown after a successful submission unless the project overrides it.
const DefaultThankYouMessage = "Thank you for sharing your experience"

// CollectLink is the project's public collection page. While inactive the page accepts no
// submissions regardless of token state.
type CollectLink struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"project_id"`
	Slug            string    `gorm:"size:50;not null;uniqueIndex" json:"slug"`
	IsActive        bool      `gorm:"not null;default:false" json:"is_active"`
	ThankYouMessage string    `gorm:"size:500" json:"thank_you_message"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (CollectLink) TableName() string {
	return "collect_links"
}

// BeforeCreate assigns a UUID when the caller did not.
func (l *CollectLink) BeforeCreate(_ *gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
