package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"quotewall/internal/middleware"
	"quotewall/internal/models"
	"quotewall/internal/notifications"
	"quotewall/internal/observability"
	"quotewall/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	tokenBytes           = 32
	maxIssueAttempts     = 3
	maxDescriptionLength = 500
)

// Dashboard states of a token. Expired is derived, never stored.
const (
	TokenStateActive    = "active"
	TokenStateUsed      = "used"
	TokenStateCancelled = "cancelled"
	TokenStateExpired   = "expired"
)

// TokenValidation is the outcome of Validate. Token is set whenever the token string resolved
// to a record, so callers can report on it even when it is not usable.
type TokenValidation struct {
	Status models.TokenStatus
	Token  *models.CollectionToken
}

// Valid reports whether the token may be consumed.
func (v TokenValidation) Valid() bool {
	return v.Status == models.TokenStatusValid
}

// IssueTokenInput describes a new collection token.
type IssueTokenInput struct {
	ProjectID   uuid.UUID
	Description string
	ExpiresAt   *time.Time
	CreatedBy   string
	CreatedByID string
}

// CancelTokenInput identifies the token to cancel and who is asking.
type CancelTokenInput struct {
	ProjectID uuid.UUID
	TokenID   uuid.UUID
	MemberID  string
	Role      models.MemberRole
}

// TokenView is a token as the dashboard lists it.
type TokenView struct {
	models.CollectionToken
	State string `json:"state"`
	URL   string `json:"url"`
}

// TokenService is the single authority over collection token state.
type TokenService struct {
	tokens   repository.TokenRepository
	baseURL  string
	notifier *notifications.Notifier
	now      func() time.Time
	generate func() (string, error)
}

// NewTokenService wires a TokenService. publicBaseURL prefixes collection links.
func NewTokenService(tokens repository.TokenRepository, publicBaseURL string, notifier *notifications.Notifier) *TokenService {
	return &TokenService{
		tokens:   tokens,
		baseURL:  strings.TrimRight(publicBaseURL, "/"),
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		generate: generateToken,
	}
}

// generateToken returns 256 random bits, base64url encoded without padding.
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Validate checks token for the collection page of projectSlug. Checks run in a fixed order:
// missing, not found, cancelled, used, expired, project mismatch. The error is reserved for
// infrastructure failures.
func (s *TokenService) Validate(ctx context.Context, token, projectSlug string) (TokenValidation, error) {
	span, ctx := observability.StartSpan(ctx, "token.validate", attribute.String("project.slug", projectSlug))
	defer span.End()

	result, err := s.validate(ctx, token, projectSlug)
	if err != nil {
		span.Fail(err)
		return TokenValidation{}, err
	}
	span.SetAttributes(attribute.String("token.status", string(result.Status)))
	observability.TokenValidations.WithLabelValues(string(result.Status)).Inc()
	return result, nil
}

func (s *TokenService) validate(ctx context.Context, token, projectSlug string) (TokenValidation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenValidation{Status: models.TokenStatusInvalid}, nil
	}

	t, err := s.tokens.GetByToken(ctx, token)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return TokenValidation{Status: models.TokenStatusNotFound}, nil
		}
		return TokenValidation{}, err
	}

	return TokenValidation{Status: tokenStatus(t, projectSlug, s.now()), Token: t}, nil
}

func tokenStatus(t *models.CollectionToken, projectSlug string, now time.Time) models.TokenStatus {
	switch {
	case t.Cancelled:
		return models.TokenStatusCancelled
	case t.Used:
		return models.TokenStatusUsed
	case t.IsExpired(now):
		return models.TokenStatusExpired
	case t.Project == nil || t.Project.Slug != projectSlug:
		return models.TokenStatusMismatch
	default:
		return models.TokenStatusValid
	}
}

// Consume marks the token used if it is still consumable. It returns
// repository.ErrTokenNotConsumable when another request won or the token lapsed.
// It is the standalone form of the conditional update Submit runs inside the
// ingestion transaction (TestimonialRepository.CreateWithTokenConsumption);
// both go through the same statement, so either path closes the other.
func (s *TokenService) Consume(ctx context.Context, tokenID uuid.UUID) error {
	return s.tokens.Consume(ctx, tokenID, s.now())
}

// Cancel revokes an unused token. Owners and admins may cancel any token of the project,
// members only their own. Cancelling twice succeeds; cancelling a used token does not.
func (s *TokenService) Cancel(ctx context.Context, in CancelTokenInput) (*models.CollectionToken, error) {
	t, err := s.tokens.GetByID(ctx, in.TokenID)
	if err != nil {
		return nil, err
	}
	if t.ProjectID != in.ProjectID {
		return nil, models.NewNotFoundError("CollectionToken", in.TokenID)
	}
	if !in.Role.CanManageAll() && t.CreatedByID != in.MemberID {
		observability.TokenCancellations.WithLabelValues("forbidden").Inc()
		return nil, models.NewForbiddenError("Only the token's creator or a project admin can cancel it")
	}

	now := s.now()
	changed := false
	if !t.Cancelled && !t.Used {
		changed, err = s.tokens.Cancel(ctx, t.ID, now)
		if err != nil {
			return nil, err
		}
		if !changed {
			// Lost a race with a submission or another cancel; the stored state decides.
			if t, err = s.tokens.GetByID(ctx, in.TokenID); err != nil {
				return nil, err
			}
		}
	}

	switch {
	case changed:
		t.Cancelled = true
		t.CancelledAt = &now
		observability.TokenCancellations.WithLabelValues("cancelled").Inc()
		middleware.Logger.InfoContext(ctx, "collection token cancelled",
			slog.String("token_id", t.ID.String()), slog.String("project_id", t.ProjectID.String()))
		s.notifier.PublishBestEffort(ctx, notifications.NewEvent(notifications.EventTokenCancelled, t.ProjectID,
			map[string]string{"token_id": t.ID.String()}))
		return t, nil
	case t.Cancelled:
		observability.TokenCancellations.WithLabelValues("noop").Inc()
		return t, nil
	default:
		observability.TokenCancellations.WithLabelValues("rejected").Inc()
		return nil, models.NewInvalidStateError("A used token cannot be cancelled")
	}
}

// Issue creates a token for a project. A nil ExpiresAt means the token never expires.
func (s *TokenService) Issue(ctx context.Context, in IssueTokenInput) (*models.CollectionToken, error) {
	description := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return nil, models.NewFieldValidationError(map[string]string{
			"description": fmt.Sprintf("Description must be at most %d characters", maxDescriptionLength),
		})
	}
	now := s.now()
	var expiresAt *time.Time
	if in.ExpiresAt != nil {
		if !in.ExpiresAt.After(now) {
			return nil, models.NewFieldValidationError(map[string]string{"expires_at": "Expiry must be in the future"})
		}
		utc := in.ExpiresAt.UTC()
		expiresAt = &utc
	}
	createdBy := strings.TrimSpace(in.CreatedBy)
	if createdBy == "" {
		createdBy = in.CreatedByID
	}

	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		value, err := s.generate()
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		t := &models.CollectionToken{
			Token:       value,
			ProjectID:   in.ProjectID,
			Description: description,
			CreatedBy:   createdBy,
			CreatedByID: in.CreatedByID,
			ExpiresAt:   expiresAt,
		}
		err = s.tokens.Create(ctx, t)
		if err == nil {
			observability.TokensIssued.Inc()
			s.notifier.PublishBestEffort(ctx, notifications.NewEvent(notifications.EventTokenIssued, t.ProjectID,
				map[string]string{"token_id": t.ID.String()}))
			return t, nil
		}
		if !repository.IsUniqueViolation(err) {
			return nil, err
		}
		middleware.Logger.WarnContext(ctx, "collection token collision, retrying", slog.Int("attempt", attempt))
	}
	return nil, models.NewInternalError(errors.New("could not generate a unique collection token"))
}

// List returns the project's tokens newest first with their state and collection link.
func (s *TokenService) List(ctx context.Context, projectID uuid.UUID) ([]TokenView, error) {
	tokens, err := s.tokens.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]TokenView, 0, len(tokens))
	for _, t := range tokens {
		view := TokenView{CollectionToken: t, State: TokenState(&t, now)}
		if t.Project != nil {
			view.URL = s.CollectionURL(t.Project.Slug, t.Token)
		}
		out = append(out, view)
	}
	return out, nil
}

// Stats returns aggregate token counts for a project.
func (s *TokenService) Stats(ctx context.Context, projectID uuid.UUID) (*repository.TokenStats, error) {
	return s.tokens.Stats(ctx, projectID, s.now())
}

// CollectionURL builds the public link a customer opens to submit a testimonial.
func (s *TokenService) CollectionURL(slug, token string) string {
	return s.baseURL + "/c/" + url.PathEscape(slug) + "?token=" + url.QueryEscape(token)
}

// TokenState classifies a token for the dashboard.
func TokenState(t *models.CollectionToken, now time.Time) string {
	switch {
	case t.Used:
		return TokenStateUsed
	case t.Cancelled:
		return TokenStateCancelled
	case t.IsExpired(now):
		return TokenStateExpired
	default:
		return TokenStateActive
	}
}
