package service

import (
	"context"
	"log/slog"
	"strings"

	"quotewall/internal/middleware"
	"quotewall/internal/models"
	"quotewall/internal/repository"
	"quotewall/internal/validation"
	"quotewall/internal/widget"

	"github.com/google/uuid"
)

// CreateProjectInput describes a new project. OwnerID is the creating member.
type CreateProjectInput struct {
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	OwnerID string `json:"-"`
}

// ProjectDetails is a freshly provisioned project with everything created alongside it.
type ProjectDetails struct {
	Project     *models.Project      `json:"project"`
	Widget      *models.WidgetConfig `json:"widget"`
	CollectLink *models.CollectLink  `json:"collect_link"`
}

// ProjectService manages tenants and their memberships.
type ProjectService struct {
	projects repository.ProjectRepository
}

func NewProjectService(projects repository.ProjectRepository) *ProjectService {
	return &ProjectService{projects: projects}
}

// Create provisions a project with a default widget and an inactive collect link.
func (s *ProjectService) Create(ctx context.Context, in CreateProjectInput) (*ProjectDetails, error) {
	name := strings.TrimSpace(in.Name)
	slug := strings.TrimSpace(in.Slug)

	fields := make(map[string]string)
	if err := validation.ValidateProjectName(name); err != nil {
		fields["name"] = err.Error()
	}
	if err := validation.ValidateProjectSlug(slug); err != nil {
		fields["slug"] = err.Error()
	}
	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields)
	}
	if in.OwnerID == "" {
		return nil, models.NewUnauthorizedError("A member is required to create a project")
	}

	project := &models.Project{Name: name, Slug: slug, OwnerID: in.OwnerID}
	cfg := widget.DefaultConfig()
	link := &models.CollectLink{ThankYouMessage: models.DefaultThankYouMessage}
	if err := s.projects.CreateWithDefaults(ctx, project, &cfg, link); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "project created",
		slog.String("project_id", project.ID.String()), slog.String("slug", project.Slug))
	return &ProjectDetails{Project: project, Widget: &cfg, CollectLink: link}, nil
}

// ListForMember returns every membership of a member with its project.
func (s *ProjectService) ListForMember(ctx context.Context, memberID string) ([]models.ProjectMember, error) {
	return s.projects.ListForMember(ctx, memberID)
}

// Membership returns the member's role in a project. Non-members get NotFound so project ids
// cannot be probed.
func (s *ProjectService) Membership(ctx context.Context, projectID uuid.UUID, memberID string) (*models.ProjectMember, error) {
	if memberID == "" {
		return nil, models.NewNotFoundError("Project", projectID)
	}
	return s.projects.GetMembership(ctx, projectID, memberID)
}

// AddMember grants a member a role in a project.
func (s *ProjectService) AddMember(ctx context.Context, projectID uuid.UUID, memberID string, role models.MemberRole) (*models.ProjectMember, error) {
	switch role {
	case models.MemberRoleAdmin, models.MemberRoleMember:
	default:
		return nil, models.NewValidationError("role must be admin or member")
	}
	member := &models.ProjectMember{ProjectID: projectID, MemberID: memberID, Role: role}
	if err := s.projects.AddMember(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}
