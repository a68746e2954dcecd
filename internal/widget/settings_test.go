package widget

import (
	"testing"

	"quotewall/internal/models"

	"github.com/stretchr/testify/assert"
)

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int { return &v }

func TestResolve_ZeroConfigUsesDefaults(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Defaults, Resolve(models.WidgetConfig{}))
}

func TestResolve_DefaultConfigRoundTrips(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Defaults, Resolve(DefaultConfig()))
}

func TestResolve_AppliesStoredValues(t *testing.T) {
	t.Parallel()

	s := Resolve(models.WidgetConfig{
		PrimaryColor:    "#ff0066",
		BackgroundColor: "black",
		TextColor:       "#eee",
		DisplayLayout:   models.DisplayLayoutGrid,
		DisplayOrder:    models.DisplayOrderOldest,
		ShowRating:      boolPtr(false),
		ShowAvatar:      boolPtr(false),
		GridColumns:     intPtr(2),
		GridGap:         intPtr(0),
	})

	assert.Equal(t, Settings{
		PrimaryColor:    "#ff0066",
		BackgroundColor: "black",
		TextColor:       "#eee",
		Layout:          models.DisplayLayoutGrid,
		Order:           models.DisplayOrderOldest,
		ShowRating:      false,
		ShowAvatar:      false,
		GridColumns:     2,
		GridGap:         0,
	}, s)
}

func TestResolve_ClampsAndRejectsUnsafeValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     models.WidgetConfig
		columns int
		gap     int
	}{
		{"columns below", models.WidgetConfig{GridColumns: intPtr(0)}, 1, 16},
		{"columns above", models.WidgetConfig{GridColumns: intPtr(9)}, 6, 16},
		{"gap below", models.WidgetConfig{GridGap: intPtr(-5)}, 3, 0},
		{"gap above", models.WidgetConfig{GridGap: intPtr(100)}, 3, 48},
		{"bounds kept", models.WidgetConfig{GridColumns: intPtr(6), GridGap: intPtr(48)}, 6, 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Resolve(tt.cfg)
			assert.Equal(t, tt.columns, s.GridColumns)
			assert.Equal(t, tt.gap, s.GridGap)
		})
	}

	s := Resolve(models.WidgetConfig{
		PrimaryColor:  "red; background: url(https://evil)",
		TextColor:     "rgb(0,0,0)",
		DisplayLayout: "masonry",
		DisplayOrder:  "random",
	})
	assert.Equal(t, Defaults.PrimaryColor, s.PrimaryColor)
	assert.Equal(t, Defaults.TextColor, s.TextColor)
	assert.Equal(t, models.DisplayLayoutList, s.Layout)
	assert.Equal(t, models.DisplayOrderNewest, s.Order)
}
