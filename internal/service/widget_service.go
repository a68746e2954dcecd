package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"quotewall/internal/cache"
	"quotewall/internal/featureflags"
	"quotewall/internal/middleware"
	"quotewall/internal/models"
	"quotewall/internal/notifications"
	"quotewall/internal/observability"
	"quotewall/internal/repository"
	"quotewall/internal/validation"
	"quotewall/internal/widget"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

const maxAllowedDomains = 50

// The public widget endpoint answers with these and nothing more specific.
var (
	errWidgetNotFound  = &models.AppError{Code: models.CodeNotFound, Message: "Widget not found"}
	errWidgetForbidden = models.NewForbiddenError("Domain not authorized")
)

// UpdateWidgetInput replaces the display settings of a widget. Empty colors and enums, and nil
// pointers, mean "use the default".
type UpdateWidgetInput struct {
	PrimaryColor    string               `json:"primary_color"`
	BackgroundColor string               `json:"background_color"`
	TextColor       string               `json:"text_color"`
	DisplayLayout   models.DisplayLayout `json:"display_layout"`
	DisplayOrder    models.DisplayOrder  `json:"display_order"`
	ShowRating      *bool                `json:"show_rating"`
	ShowAvatar      *bool                `json:"show_avatar"`
	GridColumns     *int                 `json:"grid_columns"`
	GridGap         *int                 `json:"grid_gap"`
	AutoPlay        bool                 `json:"auto_play"`
	SpeedMs         int                  `json:"speed_ms"`
}

// WidgetView is the stored config plus what the renderer will actually use.
type WidgetView struct {
	Config    *models.WidgetConfig `json:"config"`
	Effective widget.Settings      `json:"effective"`
}

// WidgetService serves embeddable widget markup and manages widget settings.
type WidgetService struct {
	widgets      repository.WidgetRepository
	testimonials repository.TestimonialRepository
	flags        *featureflags.Manager
	notifier     *notifications.Notifier
	htmlTTL      time.Duration
	renders      singleflight.Group
}

// NewWidgetService wires a WidgetService. htmlTTL bounds how long rendered markup is reused;
// zero disables the markup cache.
func NewWidgetService(
	widgets repository.WidgetRepository,
	testimonials repository.TestimonialRepository,
	flags *featureflags.Manager,
	notifier *notifications.Notifier,
	htmlTTL time.Duration,
) *WidgetService {
	return &WidgetService{
		widgets:      widgets,
		testimonials: testimonials,
		flags:        flags,
		notifier:     notifier,
		htmlTTL:      htmlTTL,
	}
}

// Content returns the rendered widget for an embedding page. claimedDomain is whatever the page
// reports about itself; origin is the request's Origin header, consulted only when the
// widget_origin_check flag is on. Unknown widgets and unauthorized domains get generic errors.
func (s *WidgetService) Content(ctx context.Context, widgetID uuid.UUID, claimedDomain, origin string) (string, error) {
	span, ctx := observability.StartSpan(ctx, "widget.content", attribute.String("widget.id", widgetID.String()))
	defer span.End()

	html, outcome, err := s.content(ctx, widgetID, claimedDomain, origin)
	observability.WidgetRequests.WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("widget.outcome", outcome))
	if err != nil {
		if outcome == "error" {
			span.Fail(err)
		}
		return "", err
	}
	return html, nil
}

func (s *WidgetService) content(ctx context.Context, widgetID uuid.UUID, claimedDomain, origin string) (string, string, error) {
	// Read before any load so that an invalidation racing this request orphans what it caches.
	gen, cacheable := cache.WidgetGeneration(ctx, widgetID)

	cfg, err := s.config(ctx, widgetID, gen, cacheable)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return "", "not_found", errWidgetNotFound
		}
		return "", "error", err
	}

	if !widget.IsAuthorized(cfg.AllowedDomains, claimedDomain) {
		middleware.Logger.DebugContext(ctx, "widget domain rejected",
			slog.String("widget_id", widgetID.String()), slog.String("domain", claimedDomain))
		return "", "forbidden", errWidgetForbidden
	}
	if origin != "" && s.flags.Enabled(featureflags.WidgetOriginCheck, cfg.ProjectID.String()) &&
		!widget.IsAuthorized(cfg.AllowedDomains, origin) {
		middleware.Logger.DebugContext(ctx, "widget origin rejected",
			slog.String("widget_id", widgetID.String()), slog.String("origin", origin))
		return "", "forbidden", errWidgetForbidden
	}

	var html string
	if cacheable && cache.GetJSON(ctx, cache.WidgetHTMLKey(widgetID, gen), &html) {
		return html, "cache_hit", nil
	}

	// Concurrent misses of one generation share a render. The render must not die with
	// whichever request happened to start it.
	key := fmt.Sprintf("%s:%d:%t", widgetID, gen, cacheable)
	shared, err, _ := s.renders.Do(key, func() (any, error) {
		detached := context.WithoutCancel(ctx)
		html, err := s.render(detached, cfg)
		if err == nil && cacheable {
			cache.SetJSON(detached, cache.WidgetHTMLKey(widgetID, gen), html, s.htmlTTL)
		}
		return html, err
	})
	if err != nil {
		return "", "error", err
	}
	return shared.(string), "rendered", nil
}

func (s *WidgetService) render(ctx context.Context, cfg *models.WidgetConfig) (string, error) {
	approved, err := s.testimonials.ListApproved(ctx, cfg.ProjectID)
	if err != nil {
		return "", err
	}

	start := time.Now()
	html, err := widget.Render(approved, widget.Resolve(*cfg))
	observability.WidgetRenderDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return html, nil
}

// config is the lookup of a widget by its public id, cached under generation gen.
func (s *WidgetService) config(ctx context.Context, widgetID uuid.UUID, gen int64, cacheable bool) (*models.WidgetConfig, error) {
	if !cacheable {
		return s.widgets.GetByID(ctx, widgetID)
	}
	var cfg models.WidgetConfig
	err := cache.Aside(ctx, cache.WidgetConfigKey(widgetID, gen), &cfg, cache.WidgetConfigTTL, func() error {
		found, err := s.widgets.GetByID(ctx, widgetID)
		if err != nil {
			return err
		}
		cfg = *found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetConfig returns the project's widget with its effective settings.
func (s *WidgetService) GetConfig(ctx context.Context, projectID uuid.UUID) (*WidgetView, error) {
	cfg, err := s.widgets.GetByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &WidgetView{Config: cfg, Effective: widget.Resolve(*cfg)}, nil
}

// UpdateConfig validates and stores new display settings. Grid values outside their bounds
// are clamped rather than rejected.
func (s *WidgetService) UpdateConfig(ctx context.Context, projectID uuid.UUID, in UpdateWidgetInput) (*WidgetView, error) {
	if fields := validateWidgetInput(in); fields != nil {
		return nil, models.NewFieldValidationError(fields)
	}

	cfg, err := s.widgets.GetByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	cfg.PrimaryColor = in.PrimaryColor
	cfg.BackgroundColor = in.BackgroundColor
	cfg.TextColor = in.TextColor
	cfg.DisplayLayout = in.DisplayLayout
	cfg.DisplayOrder = in.DisplayOrder
	cfg.ShowRating = in.ShowRating
	cfg.ShowAvatar = in.ShowAvatar
	cfg.GridColumns = clampPtr(in.GridColumns, widget.MinGridColumns, widget.MaxGridColumns)
	cfg.GridGap = clampPtr(in.GridGap, widget.MinGridGap, widget.MaxGridGap)
	cfg.AutoPlay = in.AutoPlay
	cfg.SpeedMs = in.SpeedMs

	if err := s.widgets.Update(ctx, cfg); err != nil {
		return nil, err
	}
	cache.InvalidateWidget(ctx, cfg.ID)
	s.notifier.PublishBestEffort(ctx, notifications.NewEvent(notifications.EventWidgetUpdated, projectID,
		map[string]string{"widget_id": cfg.ID.String()}))

	return &WidgetView{Config: cfg, Effective: widget.Resolve(*cfg)}, nil
}

func validateWidgetInput(in UpdateWidgetInput) map[string]string {
	fields := make(map[string]string)
	colors := map[string]string{
		"primary_color":    in.PrimaryColor,
		"background_color": in.BackgroundColor,
		"text_color":       in.TextColor,
	}
	for field, value := range colors {
		if value != "" && !validation.IsColor(value) {
			fields[field] = "Must be a hex color or a CSS color name"
		}
	}
	if in.DisplayLayout != "" && !in.DisplayLayout.Valid() {
		fields["display_layout"] = "Must be one of list, grid, carousel"
	}
	if in.DisplayOrder != "" && !in.DisplayOrder.Valid() {
		fields["display_order"] = "Must be one of newest, oldest"
	}
	if in.SpeedMs < 0 {
		fields["speed_ms"] = "Must not be negative"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func clampPtr(v *int, lo, hi int) *int {
	if v == nil {
		return nil
	}
	clamped := widget.Clamp(*v, lo, hi)
	return &clamped
}

// GetAllowedDomains returns the widget's allow-list.
func (s *WidgetService) GetAllowedDomains(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	cfg, err := s.widgets.GetByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	domains := []string(cfg.AllowedDomains)
	if domains == nil {
		domains = []string{}
	}
	return domains, nil
}

// SetAllowedDomains replaces the allow-list. Every entry must be an absolute http(s) URL; entries
// are stored as scheme://host[:port] with duplicates removed, first occurrence winning.
func (s *WidgetService) SetAllowedDomains(ctx context.Context, projectID uuid.UUID, domains []string) ([]string, error) {
	if len(domains) > maxAllowedDomains {
		return nil, models.NewFieldValidationError(map[string]string{
			"allowed_domains": fmt.Sprintf("At most %d domains are allowed", maxAllowedDomains),
		})
	}

	fields := make(map[string]string)
	seen := make(map[string]bool, len(domains))
	canonical := make([]string, 0, len(domains))
	for i, raw := range domains {
		origin, err := validation.CanonicalOrigin(raw)
		if err != nil {
			fields[fmt.Sprintf("allowed_domains[%d]", i)] = err.Error()
			continue
		}
		if seen[origin] {
			continue
		}
		seen[origin] = true
		canonical = append(canonical, origin)
	}
	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields)
	}

	cfg, err := s.widgets.SetAllowedDomains(ctx, projectID, canonical)
	if err != nil {
		return nil, err
	}
	cache.InvalidateWidget(ctx, cfg.ID)
	s.notifier.PublishBestEffort(ctx, notifications.NewEvent(notifications.EventWidgetUpdated, projectID,
		map[string]interface{}{"widget_id": cfg.ID.String(), "allowed_domains": canonical}))
	return canonical, nil
}
