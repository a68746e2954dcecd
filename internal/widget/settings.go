package widget

import (
	"quotewall/internal/models"
	"quotewall/internal/validation"
)

// Bounds for the grid settings.
const (
	MinGridColumns = 1
	MaxGridColumns = 6
	MinGridGap     = 0
	MaxGridGap     = 48
)

// Settings is a WidgetConfig with every default applied and every bound enforced.
type Settings struct {
	PrimaryColor    string               `json:"primary_color"`
	BackgroundColor string               `json:"background_color"`
	TextColor       string               `json:"text_color"`
	Layout          models.DisplayLayout `json:"display_layout"`
	Order           models.DisplayOrder  `json:"display_order"`
	ShowRating      bool                 `json:"show_rating"`
	ShowAvatar      bool                 `json:"show_avatar"`
	GridColumns     int                  `json:"grid_columns"`
	GridGap         int                  `json:"grid_gap"`
}

// Defaults are the settings of a freshly provisioned widget.
var Defaults = Settings{
	PrimaryColor:    "#3B82F6",
	BackgroundColor: "#FFFFFF",
	TextColor:       "#000000",
	Layout:          models.DisplayLayoutList,
	Order:           models.DisplayOrderNewest,
	ShowRating:      true,
	ShowAvatar:      true,
	GridColumns:     3,
	GridGap:         16,
}

// Resolve is the single place where stored widget settings get their defaults.
// Unknown enum values and unsafe colors fall back to the default as well.
func Resolve(cfg models.WidgetConfig) Settings {
	s := Defaults

	if validation.IsColor(cfg.PrimaryColor) {
		s.PrimaryColor = cfg.PrimaryColor
	}
	if validation.IsColor(cfg.BackgroundColor) {
		s.BackgroundColor = cfg.BackgroundColor
	}
	if validation.IsColor(cfg.TextColor) {
		s.TextColor = cfg.TextColor
	}
	if cfg.DisplayLayout.Valid() {
		s.Layout = cfg.DisplayLayout
	}
	if cfg.DisplayOrder.Valid() {
		s.Order = cfg.DisplayOrder
	}
	if cfg.ShowRating != nil {
		s.ShowRating = *cfg.ShowRating
	}
	if cfg.ShowAvatar != nil {
		s.ShowAvatar = *cfg.ShowAvatar
	}
	if cfg.GridColumns != nil {
		s.GridColumns = Clamp(*cfg.GridColumns, MinGridColumns, MaxGridColumns)
	}
	if cfg.GridGap != nil {
		s.GridGap = Clamp(*cfg.GridGap, MinGridGap, MaxGridGap)
	}

	return s
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DefaultConfig returns a WidgetConfig carrying Defaults explicitly, used when provisioning a project.
func DefaultConfig() models.WidgetConfig {
	d := Defaults
	return models.WidgetConfig{
		PrimaryColor:    d.PrimaryColor,
		BackgroundColor: d.BackgroundColor,
		TextColor:       d.TextColor,
		DisplayLayout:   d.Layout,
		DisplayOrder:    d.Order,
		ShowRating:      &d.ShowRating,
		ShowAvatar:      &d.ShowAvatar,
		GridColumns:     &d.GridColumns,
		GridGap:         &d.GridGap,
	}
}
