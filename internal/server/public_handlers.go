package server

import (
	"strings"

	"quotewall/internal/models"
	"quotewall/internal/service"
	"quotewall/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SubmitTestimonialRequest is the body of a public testimonial submission.
type SubmitTestimonialRequest struct {
	Token             string `json:"token"`
	CustomerName      string `json:"customer_name"`
	CustomerTitle     string `json:"customer_title"`
	CustomerCompany   string `json:"customer_company"`
	CustomerAvatarURL string `json:"customer_avatar_url"`
	Rating            *int   `json:"rating"`
	Text              string `json:"text"`
}

// SubmitTestimonialResponse is returned once a testimonial was stored.
type SubmitTestimonialResponse struct {
	Status          models.TokenStatus  `json:"status"`
	Testimonial     *models.Testimonial `json:"testimonial"`
	ThankYouMessage string              `json:"thank_you_message,omitempty"`
}

// TokenRejection explains why a submission was turned away.
type TokenRejection struct {
	Status models.TokenStatus `json:"status"`
	Code   string             `json:"code"`
	Error  string             `json:"error"`
}

// WidgetContentRequest identifies a widget and the page asking for it.
type WidgetContentRequest struct {
	WidgetID string `json:"widget_id" query:"widget_id"`
	Domain   string `json:"domain" query:"domain"`
}

// WidgetContentResponse carries the rendered widget fragment.
type WidgetContentResponse struct {
	HTML string `json:"html"`
}

// GetCollectPage godoc
// @Summary Get collection page state
// @Description Reports whether the collection page for a project can accept the given token. Always 200.
// @Tags public
// @Produce json
// @Param slug path string true "Project slug"
// @Param token query string false "Collection token"
// @Success 200 {object} service.CollectPage
// @Failure 500 {object} models.ErrorResponse
// @Router /public/collect/{slug} [get]
func (s *Server) GetCollectPage(c *fiber.Ctx) error {
	page, err := s.collectLinkService.PublicPage(c.UserContext(), c.Params("slug"), c.Query("token"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}

// SubmitTestimonial godoc
// @Summary Submit a testimonial
// @Description Consumes a single-use collection token and stores the testimonial in one step.
// @Tags public
// @Accept json
// @Produce json
// @Param slug path string true "Project slug"
// @Param request body SubmitTestimonialRequest true "Submission"
// @Success 201 {object} SubmitTestimonialResponse
// @Failure 400 {object} TokenRejection
// @Failure 403 {object} TokenRejection
// @Failure 404 {object} TokenRejection
// @Failure 410 {object} TokenRejection
// @Failure 422 {object} models.ErrorResponse
// @Router /public/collect/{slug} [post]
func (s *Server) SubmitTestimonial(c *fiber.Ctx) error {
	var req SubmitTestimonialRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.testimonialService.Submit(c.UserContext(), service.SubmitInput{
		Token:       req.Token,
		ProjectSlug: c.Params("slug"),
		Payload: validation.TestimonialPayload{
			CustomerName:      req.CustomerName,
			CustomerTitle:     req.CustomerTitle,
			CustomerCompany:   req.CustomerCompany,
			CustomerAvatarURL: req.CustomerAvatarURL,
			Rating:            req.Rating,
			Text:              req.Text,
		},
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	switch {
	case result.Accepted():
		return c.Status(fiber.StatusCreated).JSON(SubmitTestimonialResponse{
			Status:          result.Status,
			Testimonial:     result.Testimonial,
			ThankYouMessage: result.ThankYouMessage,
		})
	case result.FieldErrors != nil:
		return models.RespondWithError(c, fiber.StatusUnprocessableEntity,
			models.NewFieldValidationError(result.FieldErrors))
	default:
		status, rejection := rejectSubmission(result.Status)
		return c.Status(status).JSON(rejection)
	}
}

func rejectSubmission(status models.TokenStatus) (int, TokenRejection) {
	r := TokenRejection{Status: status}
	switch status {
	case models.TokenStatusInvalid:
		r.Code, r.Error = models.CodeValidation, "A collection token is required"
		return fiber.StatusBadRequest, r
	case models.TokenStatusNotFound, models.TokenStatusMismatch:
		r.Code, r.Error = models.CodeNotFound, "Collection link not found"
		return fiber.StatusNotFound, r
	case models.TokenStatusClosed:
		r.Code, r.Error = models.CodeForbidden, "This collection page is not accepting testimonials"
		return fiber.StatusForbidden, r
	default:
		r.Code, r.Error = models.CodeInvalidState, "This collection link is no longer usable"
		return fiber.StatusGone, r
	}
}

// GetWidgetContent godoc
// @Summary Get widget content
// @Description Renders approved testimonials for an embedding page on an allowed domain.
// @Tags public
// @Produce json
// @Param widget_id query string true "Widget ID"
// @Param domain query string true "Embedding page domain"
// @Success 200 {object} WidgetContentResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /public/widgets/content [get]
func (s *Server) GetWidgetContent(c *fiber.Ctx) error {
	var req WidgetContentRequest
	if err := c.QueryParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid query parameters"))
	}
	return s.widgetContent(c, req)
}

// PostWidgetContent godoc
// @Summary Get widget content
// @Description Same as the GET variant with the parameters in a JSON body.
// @Tags public
// @Accept json
// @Produce json
// @Param request body WidgetContentRequest true "Widget request"
// @Success 200 {object} WidgetContentResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /public/widgets/content [post]
func (s *Server) PostWidgetContent(c *fiber.Ctx) error {
	var req WidgetContentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	return s.widgetContent(c, req)
}

func (s *Server) widgetContent(c *fiber.Ctx, req WidgetContentRequest) error {
	widgetID, err := uuid.Parse(strings.TrimSpace(req.WidgetID))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid widget ID"))
	}

	html, err := s.widgetService.Content(c.UserContext(), widgetID, req.Domain, c.Get(fiber.HeaderOrigin))
	if err != nil {
		return respondServiceError(c, err)
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(WidgetContentResponse{HTML: html})
}
