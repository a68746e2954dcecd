package widget

import (
	"strings"
	"testing"
	"time"

	"quotewall/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

func testimonial(name, text string, age time.Duration) models.Testimonial {
	return models.Testimonial{
		CustomerName: name,
		Text:         text,
		CreatedAt:    baseTime.Add(-age),
	}
}

// positions returns the order in which markers appear in html.
func positions(t *testing.T, html string, markers ...string) []string {
	t.Helper()
	type hit struct {
		marker string
		at     int
	}
	hits := make([]hit, 0, len(markers))
	for _, m := range markers {
		at := strings.Index(html, m)
		require.GreaterOrEqual(t, at, 0, "marker %q not rendered", m)
		hits = append(hits, hit{m, at})
	}
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].at < hits[j-1].at; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.marker
	}
	return out
}

func TestRender_EmptyState(t *testing.T) {
	t.Parallel()

	html, err := Render(nil, Defaults)
	require.NoError(t, err)
	assert.Contains(t, html, EmptyMessage)
	assert.NotContains(t, html, "<figure")
	assert.True(t, strings.HasPrefix(html, "<div data-quotewall-widget"))
}

func TestRender_OrderFlipReverses(t *testing.T) {
	t.Parallel()

	items := []models.Testimonial{
		testimonial("Ann Alpha", "quote-alpha text", 2*time.Hour),
		testimonial("Bob Beta", "quote-beta text", 30*time.Minute),
		testimonial("Cy Gamma", "quote-gamma text", 5*time.Hour),
	}
	markers := []string{"quote-alpha", "quote-beta", "quote-gamma"}

	newest := Defaults
	newest.Order = models.DisplayOrderNewest
	oldest := Defaults
	oldest.Order = models.DisplayOrderOldest

	htmlNewest, err := Render(items, newest)
	require.NoError(t, err)
	htmlOldest, err := Render(items, oldest)
	require.NoError(t, err)

	gotNewest := positions(t, htmlNewest, markers...)
	gotOldest := positions(t, htmlOldest, markers...)

	assert.Equal(t, []string{"quote-beta", "quote-alpha", "quote-gamma"}, gotNewest)
	assert.Equal(t, []string{"quote-gamma", "quote-alpha", "quote-beta"}, gotOldest)

	again, err := Render(items, newest)
	require.NoError(t, err)
	assert.Equal(t, htmlNewest, again)
}

func TestSort_StableForEqualTimestamps(t *testing.T) {
	t.Parallel()

	items := []models.Testimonial{
		testimonial("First", "one", 0),
		testimonial("Second", "two", 0),
		testimonial("Third", "three", time.Hour),
	}

	newest := Sort(items, models.DisplayOrderNewest)
	assert.Equal(t, "First", newest[0].CustomerName)
	assert.Equal(t, "Second", newest[1].CustomerName)
	assert.Equal(t, "Third", newest[2].CustomerName)

	oldest := Sort(items, models.DisplayOrderOldest)
	assert.Equal(t, "Third", oldest[0].CustomerName)
	assert.Equal(t, "First", oldest[1].CustomerName)
	assert.Equal(t, "Second", oldest[2].CustomerName)

	assert.Equal(t, "First", items[0].CustomerName, "input must not be reordered")
}

func TestRender_Layouts(t *testing.T) {
	t.Parallel()

	items := []models.Testimonial{testimonial("Ann Alpha", "a fine product", 0)}

	grid := Defaults
	grid.Layout = models.DisplayLayoutGrid
	grid.GridColumns = 4
	grid.GridGap = 24
	html, err := Render(items, grid)
	require.NoError(t, err)
	assert.Contains(t, html, "display: grid; grid-template-columns: repeat(4, minmax(0, 1fr)); gap: 24px;")

	for _, layout := range []models.DisplayLayout{models.DisplayLayoutList, models.DisplayLayoutCarousel} {
		s := Defaults
		s.Layout = layout
		s.GridGap = 8
		html, err := Render(items, s)
		require.NoError(t, err)
		assert.Contains(t, html, "display: flex; flex-direction: column; gap: 8px;", layout)
		assert.NotContains(t, html, "grid-template-columns", layout)
	}
}

func TestRender_Stars(t *testing.T) {
	t.Parallel()

	rated := testimonial("Ann Alpha", "a fine product", 0)
	three := 3
	rated.Rating = &three
	unrated := testimonial("Bob Beta", "another product", time.Hour)

	html, err := Render([]models.Testimonial{rated, unrated}, Defaults)
	require.NoError(t, err)

	filled := `<span style="color: #3B82F6;">&#9733;</span>`
	empty := `<span style="color: #000000; opacity: 0.25;">&#9733;</span>`
	assert.Equal(t, 3, strings.Count(html, filled))
	assert.Equal(t, 2, strings.Count(html, empty))
	assert.Equal(t, 1, strings.Count(html, "out of 5 stars"))
	assert.Contains(t, html, `aria-label="3 out of 5 stars"`)

	hidden := Defaults
	hidden.ShowRating = false
	html, err = Render([]models.Testimonial{rated}, hidden)
	require.NoError(t, err)
	assert.NotContains(t, html, "&#9733;")
}

func TestRender_AvatarAndByline(t *testing.T) {
	t.Parallel()

	withImage := testimonial("Jane Doe", "a fine product", 0)
	withImage.CustomerAvatarURL = "https://cdn.example.com/jane.png"
	withImage.CustomerTitle = "CEO"
	withImage.CustomerCompany = "Acme"
	noImage := testimonial("mary jane watson", "another product", time.Hour)

	html, err := Render([]models.Testimonial{withImage, noImage}, Defaults)
	require.NoError(t, err)

	assert.Contains(t, html, `<object data="https://cdn.example.com/jane.png"`)
	assert.Contains(t, html, `>JD</span></object>`)
	assert.Contains(t, html, `<span aria-hidden="true"`)
	assert.Contains(t, html, `>MJ</span>`)
	assert.Contains(t, html, `Jane Doe</strong><span style="opacity: 0.75;">, CEO, Acme</span>`)
	assert.Contains(t, html, `mary jane watson</strong></span>`)

	noAvatars := Defaults
	noAvatars.ShowAvatar = false
	html, err = Render([]models.Testimonial{withImage}, noAvatars)
	require.NoError(t, err)
	assert.NotContains(t, html, "<object")
	assert.NotContains(t, html, ">JD<")
}

func TestRender_InlinesColorsAndEscapesContent(t *testing.T) {
	t.Parallel()

	s := Defaults
	s.PrimaryColor = "#ff0066"
	s.BackgroundColor = "#111111"

	evil := testimonial("<b>Mallory</b>", `<script>alert("x")</script> nice`, 0)
	evil.CustomerAvatarURL = "javascript:alert(1)"

	html, err := Render([]models.Testimonial{evil}, s)
	require.NoError(t, err)

	assert.Contains(t, html, "border-left: 4px solid #ff0066; border-radius: 8px; background-color: #111111;")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.NotContains(t, html, "<b>Mallory</b>")
	assert.NotContains(t, html, "javascript:")
	assert.NotContains(t, html, "<link")
	assert.NotContains(t, html, "class=")
}

func TestInitials(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Jane Doe":         "JD",
		"jane doe":         "JD",
		"Cher":             "C",
		"mary jane watson": "MJ",
		"  spaced   out  ": "SO",
		"élodie durand":    "ÉD",
		"":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Initials(in), in)
	}
}
