package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TestimonialFilter narrows the dashboard testimonial list.
type TestimonialFilter string

const (
	TestimonialFilterAll      TestimonialFilter = "all"
	TestimonialFilterApproved TestimonialFilter = "approved"
	TestimonialFilterPending  TestimonialFilter = "pending"
	TestimonialFilterFeatured TestimonialFilter = "featured"
)

// Testimonial is a customer quote. Public submissions always start unapproved and unfeatured.
type Testimonial struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	TokenID           *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"token_id,omitempty"`
	CustomerName      string     `gorm:"size:100;not null" json:"customer_name"`
	CustomerTitle     string     `gorm:"size:100" json:"customer_title,omitempty"`
	CustomerCompany   string     `gorm:"size:100" json:"customer_company,omitempty"`
	CustomerAvatarURL string     `gorm:"size:2048" json:"customer_avatar_url,omitempty"`
	Rating            *int       `json:"rating,omitempty"`
	Text              string     `gorm:"type:text;not null" json:"text"`
	IsApproved        bool       `gorm:"not null;default:false" json:"is_approved"`
	IsFeatured        bool       `gorm:"not null;default:false" json:"is_featured"`
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Testimonial) TableName() string {
	return "testimonials"
}

// BeforeCreate assigns a UUID when the caller did not.
func (t *Testimonial) BeforeCreate(_ *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
