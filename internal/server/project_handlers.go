package server

import (
	"strings"

	"quotewall/internal/middleware"
	"quotewall/internal/models"
	"quotewall/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AddMemberRequest grants another member access to a project.
type AddMemberRequest struct {
	MemberID string            `json:"member_id"`
	Role     models.MemberRole `json:"role"`
}

// CreateProject godoc
// @Summary Create a project
// @Description Creates a project owned by the caller along with its widget and an inactive collect link.
// @Tags projects
// @Accept json
// @Produce json
// @Param request body service.CreateProjectInput true "Project"
// @Success 201 {object} service.ProjectDetails
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /projects [post]
func (s *Server) CreateProject(c *fiber.Ctx) error {
	var in service.CreateProjectInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	in.OwnerID = middleware.MemberID(c)

	details, err := s.projectService.Create(c.UserContext(), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(details)
}

// ListProjects godoc
// @Summary List my projects
// @Description Lists every project the caller is a member of, with the caller's role.
// @Tags projects
// @Produce json
// @Success 200 {array} models.ProjectMember
// @Security BearerAuth
// @Router /projects [get]
func (s *Server) ListProjects(c *fiber.Ctx) error {
	memberships, err := s.projectService.ListForMember(c.UserContext(), middleware.MemberID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	if memberships == nil {
		memberships = []models.ProjectMember{}
	}
	return c.JSON(memberships)
}

// AddProjectMember godoc
// @Summary Add a project member
// @Tags projects
// @Accept json
// @Produce json
// @Param projectId path string true "Project ID"
// @Param request body AddMemberRequest true "Member"
// @Success 201 {object} models.ProjectMember
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /projects/{projectId}/members [post]
func (s *Server) AddProjectMember(c *fiber.Ctx) error {
	if !memberRole(c).CanManageAll() {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Only owners and admins can add members"))
	}

	var req AddMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	req.MemberID = strings.TrimSpace(req.MemberID)
	if req.MemberID == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewFieldValidationError(map[string]string{"member_id": "member_id is required"}))
	}

	member, err := s.projectService.AddMember(c.UserContext(), projectID(c), req.MemberID, req.Role)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(member)
}
