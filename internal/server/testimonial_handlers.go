package server

import (
	"context"

	"quotewall/internal/models"
	"quotewall/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ListTestimonials godoc
// @Summary List testimonials
// @Description Pages through the project's testimonials, newest first.
// @Tags testimonials
// @Produce json
// @Param projectId path string true "Project ID"
// @Param filter query string false "all, approved, pending or featured"
// @Param limit query int false "Page size (max 50)"
// @Param cursor query string false "Cursor from the previous page"
// @Success 200 {object} service.TestimonialPage
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /projects/{projectId}/testimonials [get]
func (s *Server) ListTestimonials(c *fiber.Ctx) error {
	page, err := s.testimonialService.List(c.UserContext(), service.ListTestimonialsInput{
		ProjectID: projectID(c),
		Filter:    models.TestimonialFilter(c.Query("filter")),
		Limit:     c.QueryInt("limit", 0),
		Cursor:    c.Query("cursor"),
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}

// ToggleTestimonialApproved godoc
// @Summary Toggle testimonial approval
// @Description Flips the approved flag. Approved testimonials appear in the widget.
// @Tags testimonials
// @Produce json
// @Param projectId path string true "Project ID"
// @Param testimonialId path string true "Testimonial ID"
// @Success 200 {object} models.Testimonial
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /projects/{projectId}/testimonials/{testimonialId}/approve [post]
func (s *Server) ToggleTestimonialApproved(c *fiber.Ctx) error {
	return s.toggleTestimonial(c, s.testimonialService.ToggleApproved)
}

// ToggleTestimonialFeatured godoc
// @Summary Toggle testimonial featuring
// @Tags testimonials
// @Produce json
// @Param projectId path string true "Project ID"
// @Param testimonialId path string true "Testimonial ID"
// @Success 200 {object} models.Testimonial
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /projects/{projectId}/testimonials/{testimonialId}/feature [post]
func (s *Server) ToggleTestimonialFeatured(c *fiber.Ctx) error {
	return s.toggleTestimonial(c, s.testimonialService.ToggleFeatured)
}

type testimonialToggle func(ctx context.Context, projectID, testimonialID uuid.UUID) (*models.Testimonial, error)

func (s *Server) toggleTestimonial(c *fiber.Ctx, toggle testimonialToggle) error {
	id, err := parseUUID(c, "testimonialId")
	if err != nil {
		return nil
	}
	t, err := toggle(c.UserContext(), projectID(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(t)
}
