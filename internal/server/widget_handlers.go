package server

import (
	"quotewall/internal/models"
	"quotewall/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AllowedDomainsRequest replaces a widget's domain allow-list.
type AllowedDomainsRequest struct {
	Domains []string `json:"domains"`
}

// AllowedDomainsResponse lists the domains allowed to embed a widget.
type AllowedDomainsResponse struct {
	Domains []string `json:"domains"`
}

// GetWidget godoc
// @Summary Get widget settings
// @Description Returns the stored widget settings and the values the renderer will use.
// @Tags widget
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 200 {object} service.WidgetView
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /projects/{projectId}/widget [get]
func (s *Server) GetWidget(c *fiber.Ctx) error {
	view, err := s.widgetService.GetConfig(c.UserContext(), projectID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(view)
}

// UpdateWidget godoc
// @Summary Update widget settings
// @Description Replaces the widget's display settings. Empty values fall back to defaults.
// @Tags widget
// @Accept json
// @Produce json
// @Param projectId path string true "Project ID"
// @Param request body service.UpdateWidgetInput true "Settings"
// @Success 200 {object} service.WidgetView
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /projects/{projectId}/widget [put]
func (s *Server) UpdateWidget(c *fiber.Ctx) error {
	var in service.UpdateWidgetInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	view, err := s.widgetService.UpdateConfig(c.UserContext(), projectID(c), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(view)
}

// GetAllowedDomains godoc
// @Summary Get allowed widget domains
// @Tags widget
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 200 {object} AllowedDomainsResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /projects/{projectId}/widget/domains [get]
func (s *Server) GetAllowedDomains(c *fiber.Ctx) error {
	domains, err := s.widgetService.GetAllowedDomains(c.UserContext(), projectID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(AllowedDomainsResponse{Domains: domains})
}

// SetAllowedDomains godoc
// @Summary Replace allowed widget domains
// @Description Stores the canonical form of each origin. An empty list blocks every embed.
// @Tags widget
// @Accept json
// @Produce json
// @Param projectId path string true "Project ID"
// @Param request body AllowedDomainsRequest true "Domains"
// @Success 200 {object} AllowedDomainsResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /projects/{projectId}/widget/domains [put]
func (s *Server) SetAllowedDomains(c *fiber.Ctx) error {
	var req AllowedDomainsRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	domains, err := s.widgetService.SetAllowedDomains(c.UserContext(), projectID(c), req.Domains)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(AllowedDomainsResponse{Domains: domains})
}
