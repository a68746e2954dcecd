package service

import (
	"context"

	"quotewall/internal/cache"
	"quotewall/internal/models"
	"quotewall/internal/notifications"
	"quotewall/internal/repository"

	"github.com/google/uuid"
)

// CollectPage is what the public collection page needs to render itself.
type CollectPage struct {
	Status          models.TokenStatus `json:"status"`
	ProjectName     string             `json:"project_name,omitempty"`
	ThankYouMessage string             `json:"thank_you_message,omitempty"`
}

// CollectLinkService manages the project-wide switch for the public collection page.
type CollectLinkService struct {
	links    repository.CollectLinkRepository
	tokens   *TokenService
	notifier *notifications.Notifier
}

func NewCollectLinkService(links repository.CollectLinkRepository, tokens *TokenService, notifier *notifications.Notifier) *CollectLinkService {
	return &CollectLinkService{links: links, tokens: tokens, notifier: notifier}
}

func (s *CollectLinkService) Get(ctx context.Context, projectID uuid.UUID) (*models.CollectLink, error) {
	return s.links.GetByProject(ctx, projectID)
}

// Toggle switches the page on or off.
func (s *CollectLinkService) Toggle(ctx context.Context, projectID uuid.UUID) (*models.CollectLink, error) {
	link, err := s.links.Toggle(ctx, projectID)
	if err != nil {
		return nil, err
	}
	cache.InvalidateCollectLink(ctx, link.Slug)
	s.notifier.PublishBestEffort(ctx, notifications.NewEvent(notifications.EventCollectLinkToggled, projectID,
		map[string]bool{"is_active": link.IsActive}))
	return link, nil
}

// bySlug is a cached lookup used on every public page view and submission.
func (s *CollectLinkService) bySlug(ctx context.Context, slug string) (*models.CollectLink, error) {
	var link models.CollectLink
	err := cache.Aside(ctx, cache.CollectLinkKey(slug), &link, cache.CollectLinkTTL, func() error {
		found, err := s.links.GetBySlug(ctx, slug)
		if err != nil {
			return err
		}
		link = *found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// open returns the link of projectSlug when it accepts submissions, or nil when it is closed.
func (s *CollectLinkService) open(ctx context.Context, projectSlug string) (*models.CollectLink, error) {
	link, err := s.bySlug(ctx, projectSlug)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !link.IsActive {
		return nil, nil
	}
	return link, nil
}

// PublicPage reports the state of the collection page for a token. Token failures take
// precedence; a valid token on a switched-off page reports closed.
func (s *CollectLinkService) PublicPage(ctx context.Context, slug, token string) (*CollectPage, error) {
	v, err := s.tokens.Validate(ctx, token, slug)
	if err != nil {
		return nil, err
	}
	if !v.Valid() {
		return &CollectPage{Status: v.Status}, nil
	}

	link, err := s.open(ctx, slug)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return &CollectPage{Status: models.TokenStatusClosed}, nil
	}

	page := &CollectPage{Status: models.TokenStatusValid, ThankYouMessage: link.ThankYouMessage}
	if v.Token.Project != nil {
		page.ProjectName = v.Token.Project.Name
	}
	return page, nil
}
