package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"quotewall/internal/cache"
	"quotewall/internal/middleware"
	"quotewall/internal/models"
	"quotewall/internal/notifications"
	"quotewall/internal/observability"
	"quotewall/internal/repository"
	"quotewall/internal/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultTestimonialPageSize = 20
	maxTestimonialPageSize     = 50
)

// SubmitInput is one public submission.
type SubmitInput struct {
	Token       string
	ProjectSlug string
	Payload     validation.TestimonialPayload
}

// SubmitResult reports how a submission ended. Testimonial is set only on success; FieldErrors
// only when the token was valid but the payload was not.
type SubmitResult struct {
	Status          models.TokenStatus
	FieldErrors     map[string]string
	Testimonial     *models.Testimonial
	ThankYouMessage string
}

// Accepted reports whether a testimonial was created.
func (r *SubmitResult) Accepted() bool {
	return r.Testimonial != nil
}

// ListTestimonialsInput selects a page of testimonials for the dashboard.
type ListTestimonialsInput struct {
	ProjectID uuid.UUID
	Filter    models.TestimonialFilter
	Limit     int
	Cursor    string
}

// TestimonialPage is one page of testimonials. NextCursor is empty on the last page.
type TestimonialPage struct {
	Items      []models.Testimonial `json:"items"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

// TestimonialService ingests public submissions and handles moderation.
type TestimonialService struct {
	tokens       *TokenService
	links        *CollectLinkService
	testimonials repository.TestimonialRepository
	widgets      repository.WidgetRepository
	notifier     *notifications.Notifier
}

func NewTestimonialService(
	tokens *TokenService,
	links *CollectLinkService,
	testimonials repository.TestimonialRepository,
	widgets repository.WidgetRepository,
	notifier *notifications.Notifier,
) *TestimonialService {
	return &TestimonialService{
		tokens:       tokens,
		links:        links,
		testimonials: testimonials,
		widgets:      widgets,
		notifier:     notifier,
	}
}

// Submit validates the token, checks the collection page is open, validates the payload and then
// consumes the token and stores the testimonial atomically. Rejections are reported in the result;
// the error is reserved for infrastructure failures.
func (s *TestimonialService) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	span, ctx := observability.StartSpan(ctx, "testimonial.submit", attribute.String("project.slug", in.ProjectSlug))
	defer span.End()

	result, err := s.submit(ctx, in)
	if err != nil {
		span.Fail(err)
		observability.TestimonialSubmissions.WithLabelValues("error").Inc()
		return nil, err
	}

	outcome := string(result.Status)
	switch {
	case result.Accepted():
		outcome = "accepted"
	case result.FieldErrors != nil:
		outcome = "invalid_payload"
	}
	span.SetAttributes(attribute.String("submission.outcome", outcome))
	observability.TestimonialSubmissions.WithLabelValues(outcome).Inc()
	return result, nil
}

func (s *TestimonialService) submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	v, err := s.tokens.Validate(ctx, in.Token, in.ProjectSlug)
	if err != nil {
		return nil, err
	}
	if !v.Valid() {
		return &SubmitResult{Status: v.Status}, nil
	}

	link, err := s.links.open(ctx, in.ProjectSlug)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return &SubmitResult{Status: models.TokenStatusClosed}, nil
	}

	payload := in.Payload.Normalize()
	if fields := validation.ValidateTestimonial(payload); fields != nil {
		return &SubmitResult{Status: models.TokenStatusValid, FieldErrors: fields}, nil
	}

	testimonial := &models.Testimonial{
		ProjectID:         v.Token.ProjectID,
		CustomerName:      payload.CustomerName,
		CustomerTitle:     payload.CustomerTitle,
		CustomerCompany:   payload.CustomerCompany,
		CustomerAvatarURL: payload.CustomerAvatarURL,
		Rating:            payload.Rating,
		Text:              payload.Text,
	}
	err = s.testimonials.CreateWithTokenConsumption(ctx, testimonial, v.Token.ID, s.tokens.now())
	if errors.Is(err, repository.ErrTokenNotConsumable) {
		return s.lostRace(ctx, in)
	}
	if err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "testimonial submitted",
		slog.String("testimonial_id", testimonial.ID.String()),
		slog.String("project_id", testimonial.ProjectID.String()),
	)
	s.notifier.PublishBestEffort(ctx, notifications.NewEvent(notifications.EventTestimonialSubmitted, testimonial.ProjectID,
		map[string]string{"testimonial_id": testimonial.ID.String(), "token_id": v.Token.ID.String()}))

	return &SubmitResult{
		Status:          models.TokenStatusValid,
		Testimonial:     testimonial,
		ThankYouMessage: link.ThankYouMessage,
	}, nil
}

// lostRace reports why the token stopped being consumable between validation and the write.
func (s *TestimonialService) lostRace(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	v, err := s.tokens.Validate(ctx, in.Token, in.ProjectSlug)
	if err != nil {
		return nil, err
	}
	status := v.Status
	if status == models.TokenStatusValid {
		// The token already produced a testimonial even though the flag read says otherwise.
		status = models.TokenStatusUsed
	}
	middleware.Logger.InfoContext(ctx, "submission lost consume race", slog.String("status", string(status)))
	return &SubmitResult{Status: status}, nil
}

// List returns a page of testimonials newest first.
func (s *TestimonialService) List(ctx context.Context, in ListTestimonialsInput) (*TestimonialPage, error) {
	filter := in.Filter
	switch filter {
	case "":
		filter = models.TestimonialFilterAll
	case models.TestimonialFilterAll, models.TestimonialFilterApproved, models.TestimonialFilterPending, models.TestimonialFilterFeatured:
	default:
		return nil, models.NewValidationError("filter must be one of all, approved, pending, featured")
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultTestimonialPageSize
	}
	if limit > maxTestimonialPageSize {
		limit = maxTestimonialPageSize
	}

	q := repository.TestimonialQuery{ProjectID: in.ProjectID, Filter: filter, Limit: limit + 1}
	if in.Cursor != "" {
		after, err := DecodeCursor(in.Cursor)
		if err != nil {
			return nil, models.NewValidationError("Invalid cursor")
		}
		q.After = after
	}

	items, err := s.testimonials.List(ctx, q)
	if err != nil {
		return nil, err
	}

	page := &TestimonialPage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		last := page.Items[limit-1]
		page.NextCursor = EncodeCursor(repository.TestimonialCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	if page.Items == nil {
		page.Items = []models.Testimonial{}
	}
	return page, nil
}

// ToggleApproved flips approval. Approval changes what the widget shows, so its markup is dropped.
func (s *TestimonialService) ToggleApproved(ctx context.Context, projectID, testimonialID uuid.UUID) (*models.Testimonial, error) {
	t, err := s.testimonials.ToggleApproved(ctx, projectID, testimonialID)
	if err != nil {
		return nil, err
	}
	s.invalidateWidget(ctx, projectID)
	s.notifier.PublishBestEffort(ctx, notifications.NewEvent(notifications.EventTestimonialApproved, projectID,
		map[string]interface{}{"testimonial_id": t.ID.String(), "is_approved": t.IsApproved}))
	return t, nil
}

// ToggleFeatured flips the featured flag.
func (s *TestimonialService) ToggleFeatured(ctx context.Context, projectID, testimonialID uuid.UUID) (*models.Testimonial, error) {
	t, err := s.testimonials.ToggleFeatured(ctx, projectID, testimonialID)
	if err != nil {
		return nil, err
	}
	s.invalidateWidget(ctx, projectID)
	s.notifier.PublishBestEffort(ctx, notifications.NewEvent(notifications.EventTestimonialFeatured, projectID,
		map[string]interface{}{"testimonial_id": t.ID.String(), "is_featured": t.IsFeatured}))
	return t, nil
}

func (s *TestimonialService) invalidateWidget(ctx context.Context, projectID uuid.UUID) {
	cfg, err := s.widgets.GetByProject(ctx, projectID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "widget lookup for cache invalidation failed",
			slog.String("project_id", projectID.String()), slog.String("error", err.Error()))
		return
	}
	cache.InvalidateWidget(ctx, cfg.ID)
}

// EncodeCursor makes an opaque page cursor.
func EncodeCursor(c repository.TestimonialCursor) string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + "|" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a cursor made by EncodeCursor.
func DecodeCursor(s string) (*repository.TestimonialCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	nanos, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil, fmt.Errorf("malformed cursor")
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, err
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	return &repository.TestimonialCursor{CreatedAt: time.Unix(0, n).UTC(), ID: parsedID}, nil
}
