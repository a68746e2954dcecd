package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TokenStatus is the outcome of checking a collection token on the public page.
// Everything except TokenStatusValid is an expected, user-facing rejection.
type TokenStatus string

const (
	// TokenStatusValid means the token may be consumed.
	TokenStatusValid TokenStatus = "valid"
	// TokenStatusInvalid means no token string was supplied.
	TokenStatusInvalid TokenStatus = "invalid"
	// TokenStatusNotFound means the token string does not resolve to a record.
	TokenStatusNotFound TokenStatus = "not-found"
	// TokenStatusCancelled means a member revoked the token.
	TokenStatusCancelled TokenStatus = "cancelled"
	// TokenStatusUsed means the token already produced a testimonial.
	TokenStatusUsed TokenStatus = "used"
	// TokenStatusExpired means expires_at is in the past.
	TokenStatusExpired TokenStatus = "expired"
	// TokenStatusMismatch means the token belongs to another project than the page it was opened on.
	TokenStatusMismatch TokenStatus = "mismatch"
	// TokenStatusClosed means the project's collect link is switched off.
	TokenStatusClosed TokenStatus = "closed"
)

// CollectionToken is a single-use capability that lets one customer submit one testimonial.
// Used and Cancelled are terminal and never reset; expiry is derived at read time.
type CollectionToken struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Token       string     `gorm:"size:64;not null;uniqueIndex" json:"token"`
	ProjectID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	Project     *Project   `gorm:"foreignKey:ProjectID" json:"-"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	CreatedBy   string     `gorm:"size:255;not null" json:"created_by"`
	CreatedByID string     `gorm:"size:191;not null;index" json:"created_by_id"`
	Used        bool       `gorm:"not null;default:false" json:"used"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	Cancelled   bool       `gorm:"not null;default:false" json:"cancelled"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (CollectionToken) TableName() string {
	return "collection_tokens"
}

// BeforeCreate assigns a UUID when the caller did not.
func (t *CollectionToken) BeforeCreate(_ *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// IsExpired reports whether the token's expiry has passed at now.
func (t *CollectionToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && !t.ExpiresAt.After(now)
}

// IsConsumable reports whether the token can still be exchanged for a testimonial.
func (t *CollectionToken) IsConsumable(now time.Time) bool {
	return !t.Used && !t.Cancelled && !t.IsExpired(now)
}
