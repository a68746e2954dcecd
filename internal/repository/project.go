package repository

import (
	"context"

	"quotewall/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectRepository defines persistence operations for projects and memberships.
type ProjectRepository interface {
	CreateWithDefaults(ctx context.Context, project *models.Project, widget *models.WidgetConfig, link *models.CollectLink) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	GetBySlug(ctx context.Context, slug string) (*models.Project, error)
	ListForMember(ctx context.Context, memberID string) ([]models.ProjectMember, error)
	GetMembership(ctx context.Context, projectID uuid.UUID, memberID string) (*models.ProjectMember, error)
	AddMember(ctx context.Context, member *models.ProjectMember) error
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository returns a new ProjectRepository implementation.
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

// CreateWithDefaults inserts the project, the owner's membership, the widget config and the
// collect link in one transaction. A taken slug surfaces as a Conflict error.
func (r *projectRepository) CreateWithDefaults(ctx context.Context, project *models.Project, widget *models.WidgetConfig, link *models.CollectLink) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		owner := models.ProjectMember{
			ProjectID: project.ID,
			MemberID:  project.OwnerID,
			Role:      models.MemberRoleOwner,
		}
		if err := tx.Create(&owner).Error; err != nil {
			return err
		}

		widget.ProjectID = project.ID
		if err := tx.Create(widget).Error; err != nil {
			return err
		}

		link.ProjectID = project.ID
		link.Slug = project.Slug
		return tx.Create(link).Error
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return models.NewConflictError("Project slug is already taken")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *projectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFoundOr(err, "Project", id)
	}
	return &p, nil
}

func (r *projectRepository) GetBySlug(ctx context.Context, slug string) (*models.Project, error) {
	var p models.Project
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&p).Error; err != nil {
		return nil, notFoundOr(err, "Project", slug)
	}
	return &p, nil
}

// ListForMember returns the member's memberships with their projects, oldest project first.
func (r *projectRepository) ListForMember(ctx context.Context, memberID string) ([]models.ProjectMember, error) {
	var memberships []models.ProjectMember
	err := r.db.WithContext(ctx).
		Preload("Project").
		Where("member_id = ?", memberID).
		Order("created_at ASC").
		Find(&memberships).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return memberships, nil
}

func (r *projectRepository) GetMembership(ctx context.Context, projectID uuid.UUID, memberID string) (*models.ProjectMember, error) {
	var m models.ProjectMember
	err := r.db.WithContext(ctx).
		Preload("Project").
		Where("project_id = ? AND member_id = ?", projectID, memberID).
		First(&m).Error
	if err != nil {
		return nil, notFoundOr(err, "Project", projectID)
	}
	return &m, nil
}

func (r *projectRepository) AddMember(ctx context.Context, member *models.ProjectMember) error {
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		if IsUniqueViolation(err) {
			return models.NewConflictError("Member already belongs to the project")
		}
		return models.NewInternalError(err)
	}
	return nil
}
