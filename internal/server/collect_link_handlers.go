package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetCollectLink godoc
// @Summary Get the collect link
// @Tags collect-link
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 200 {object} models.CollectLink
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /projects/{projectId}/collect-link [get]
func (s *Server) GetCollectLink(c *fiber.Ctx) error {
	link, err := s.collectLinkService.Get(c.UserContext(), projectID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(link)
}

// ToggleCollectLink godoc
// @Summary Open or close the collection page
// @Description Flips whether the public collection page accepts submissions.
// @Tags collect-link
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 200 {object} models.CollectLink
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /projects/{projectId}/collect-link/toggle [post]
func (s *Server) ToggleCollectLink(c *fiber.Ctx) error {
	link, err := s.collectLinkService.Toggle(c.UserContext(), projectID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(link)
}
