package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DisplayLayout selects how the widget arranges testimonials.
type DisplayLayout string

const (
	DisplayLayoutList     DisplayLayout = "list"
	DisplayLayoutGrid     DisplayLayout = "grid"
	DisplayLayoutCarousel DisplayLayout = "carousel"
)

// Valid reports whether l is a known layout.
func (l DisplayLayout) Valid() bool {
	switch l {
	case DisplayLayoutList, DisplayLayoutGrid, DisplayLayoutCarousel:
		return true
	}
	return false
}

// DisplayOrder selects the createdAt sort direction of the widget.
type DisplayOrder string

const (
	DisplayOrderNewest DisplayOrder = "newest"
	DisplayOrderOldest DisplayOrder = "oldest"
)

// Valid reports whether o is a known order.
func (o DisplayOrder) Valid() bool {
	return o == DisplayOrderNewest || o == DisplayOrderOldest
}

// WidgetConfig holds a project's embed settings. Its ID is the public widget id.
// Unset (nil or empty) fields fall back to defaults when the widget is rendered.
// AutoPlay and SpeedMs are persisted for the editor; the renderer ignores them.
type WidgetConfig struct {
	ID              uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID       uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex" json:"project_id"`
	PrimaryColor    string                      `gorm:"size:32" json:"primary_color"`
	BackgroundColor string                      `gorm:"size:32" json:"background_color"`
	TextColor       string                      `gorm:"size:32" json:"text_color"`
	DisplayLayout   DisplayLayout               `gorm:"type:varchar(16)" json:"display_layout"`
	DisplayOrder    DisplayOrder                `gorm:"type:varchar(16)" json:"display_order"`
	ShowRating      *bool                       `json:"show_rating"`
	ShowAvatar      *bool                       `json:"show_avatar"`
	GridColumns     *int                        `json:"grid_columns"`
	GridGap         *int                        `json:"grid_gap"`
	AutoPlay        bool                        `gorm:"not null;default:false" json:"auto_play"`
	SpeedMs         int                         `gorm:"not null;default:0" json:"speed_ms"`
	AllowedDomains  datatypes.JSONSlice[string] `gorm:"not null" json:"allowed_domains"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (WidgetConfig) TableName() string {
	return "widget_configs"
}

// BeforeCreate assigns a UUID and an empty allow-list when the caller did not.
func (w *WidgetConfig) BeforeCreate(_ *gorm.DB) error {
	ensureID(&w.ID)
	if w.AllowedDomains == nil {
		w.AllowedDomains = datatypes.JSONSlice[string]{}
	}
	return nil
}
