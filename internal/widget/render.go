package widget

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"quotewall/internal/models"
)

// EmptyMessage is rendered instead of an empty container.
const EmptyMessage = "No testimonials yet"

const maxStars = 5

// The fragment is injected into a sandboxed iframe, so every style is inline and nothing
// depends on script execution. Avatar images use <object> so the initials inside it show
// when the image fails to load.
var fragmentTemplate = template.Must(template.New("widget").Parse(
	`<div data-quotewall-widget="" style="{{.WrapperStyle}}">` +
		`{{if not .Items}}<p style="{{.EmptyStyle}}">{{.EmptyMessage}}</p>` +
		`{{else}}<div style="{{.ContainerStyle}}">` +
		`{{range .Items}}<figure style="{{$.CardStyle}}">` +
		`{{if .Stars}}<div role="img" aria-label="{{.Rating}} out of 5 stars" style="{{$.StarsStyle}}">` +
		`{{range .Stars}}<span style="{{.}}">&#9733;</span>{{end}}</div>{{end}}` +
		`<blockquote style="{{$.QuoteStyle}}">&ldquo;{{.Text}}&rdquo;</blockquote>` +
		`<figcaption style="{{$.CaptionStyle}}">` +
		`{{if .ShowAvatar}}{{if .AvatarURL}}<object data="{{.AvatarURL}}" aria-label="{{.Name}}" style="{{$.AvatarStyle}}">` +
		`<span style="{{$.InitialsStyle}}">{{.Initials}}</span></object>` +
		`{{else}}<span aria-hidden="true" style="{{$.InitialsStyle}}">{{.Initials}}</span>{{end}}{{end}}` +
		`<span><strong style="{{$.NameStyle}}">{{.Name}}</strong>` +
		`{{if .Byline}}<span style="{{$.BylineStyle}}">, {{.Byline}}</span>{{end}}</span>` +
		`</figcaption></figure>{{end}}</div>{{end}}</div>`,
))

type fragmentView struct {
	Items        []itemView
	EmptyMessage string

	WrapperStyle   template.CSS
	EmptyStyle     template.CSS
	ContainerStyle template.CSS
	CardStyle      template.CSS
	StarsStyle     template.CSS
	QuoteStyle     template.CSS
	CaptionStyle   template.CSS
	AvatarStyle    template.CSS
	InitialsStyle  template.CSS
	NameStyle      template.CSS
	BylineStyle    template.CSS
}

type itemView struct {
	Rating     int
	Stars      []template.CSS
	Text       string
	ShowAvatar bool
	AvatarURL  string
	Initials   string
	Name       string
	Byline     string
}

// Sort orders testimonials by CreatedAt, newest or oldest first. Ties keep their input order.
// The input slice is not modified.
func Sort(testimonials []models.Testimonial, order models.DisplayOrder) []models.Testimonial {
	sorted := make([]models.Testimonial, len(testimonials))
	copy(sorted, testimonials)

	sort.SliceStable(sorted, func(i, j int) bool {
		if order == models.DisplayOrderOldest {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return sorted
}

// Render produces the widget HTML for testimonials under s. It sorts by s.Order itself;
// filtering to approved testimonials is the caller's job. Carousel renders as a list.
// Colors in s must already be safe, which Resolve guarantees.
func Render(testimonials []models.Testimonial, s Settings) (string, error) {
	emptyStyle := css("margin: 0; padding: 24px 16px; text-align: center; border-radius: 8px; background-color: %s; color: %s; opacity: 0.7;",
		s.BackgroundColor, s.TextColor)
	cardStyle := css("margin: 0; padding: 12px 16px; border-left: 4px solid %s; border-radius: 8px; background-color: %s;",
		s.PrimaryColor, s.BackgroundColor)

	view := fragmentView{
		EmptyMessage:   EmptyMessage,
		WrapperStyle:   css("box-sizing: border-box; width: 100%%; font-family: system-ui, -apple-system, sans-serif; color: %s;", s.TextColor),
		EmptyStyle:     emptyStyle,
		ContainerStyle: containerStyle(s),
		CardStyle:      cardStyle,
		StarsStyle:     css("margin-bottom: 6px; font-size: 16px; line-height: 1; letter-spacing: 2px;"),
		QuoteStyle:     css("margin: 0 0 8px 0; font-style: italic; line-height: 1.5; color: %s;", s.TextColor),
		CaptionStyle:   css("display: flex; align-items: center; gap: 8px; font-size: 0.9em; color: %s;", s.TextColor),
		AvatarStyle:    css("display: block; width: 36px; height: 36px; border-radius: 50%%; overflow: hidden; object-fit: cover; flex-shrink: 0;"),
		InitialsStyle:  initialsStyle(s),
		NameStyle:      css("font-weight: 600;"),
		BylineStyle:    css("opacity: 0.75;"),
	}

	for _, t := range Sort(testimonials, s.Order) {
		item := itemView{
			Text:       t.Text,
			ShowAvatar: s.ShowAvatar,
			AvatarURL:  t.CustomerAvatarURL,
			Initials:   Initials(t.CustomerName),
			Name:       t.CustomerName,
			Byline:     byline(t),
		}
		if s.ShowRating && t.Rating != nil {
			item.Rating = Clamp(*t.Rating, 0, maxStars)
			item.Stars = stars(item.Rating, s)
		}
		view.Items = append(view.Items, item)
	}

	var buf bytes.Buffer
	if err := fragmentTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render widget: %w", err)
	}
	return buf.String(), nil
}

func containerStyle(s Settings) template.CSS {
	if s.Layout == models.DisplayLayoutGrid {
		return css("display: grid; grid-template-columns: repeat(%d, minmax(0, 1fr)); gap: %dpx;", s.GridColumns, s.GridGap)
	}
	return css("display: flex; flex-direction: column; gap: %dpx;", s.GridGap)
}

func initialsStyle(s Settings) template.CSS {
	return css("display: inline-flex; align-items: center; justify-content: center; width: 36px; height: 36px; "+
		"border-radius: 50%%; flex-shrink: 0; font-size: 14px; font-weight: 600; color: %s; background-color: %s;",
		s.BackgroundColor, s.PrimaryColor)
}

// stars returns one style per star: filled ones in the primary color, the rest in a faded text color.
func stars(rating int, s Settings) []template.CSS {
	out := make([]template.CSS, maxStars)
	for i := range out {
		if i < rating {
			out[i] = css("color: %s;", s.PrimaryColor)
		} else {
			out[i] = css("color: %s; opacity: 0.25;", s.TextColor)
		}
	}
	return out
}

func byline(t models.Testimonial) string {
	parts := make([]string, 0, 2)
	if t.CustomerTitle != "" {
		parts = append(parts, t.CustomerTitle)
	}
	if t.CustomerCompany != "" {
		parts = append(parts, t.CustomerCompany)
	}
	return strings.Join(parts, ", ")
}

// Initials returns the uppercased first letter of up to the first two space-separated name tokens.
func Initials(name string) string {
	var b strings.Builder
	n := 0
	for _, token := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(token)
		b.WriteRune(unicode.ToUpper(r))
		n++
		if n == 2 {
			break
		}
	}
	return b.String()
}

// css builds an inline style from a format whose arguments are validated colors or integers.
func css(format string, args ...any) template.CSS {
	return template.CSS(fmt.Sprintf(format, args...))
}
