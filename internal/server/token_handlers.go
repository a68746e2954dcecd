package server

import (
	"time"

	"quotewall/internal/middleware"
	"quotewall/internal/models"
	"quotewall/internal/service"

	"github.com/gofiber/fiber/v2"
)

// IssueTokenRequest describes a token to issue. ExpiresAt is RFC 3339; omit it for no expiry.
type IssueTokenRequest struct {
	Description string     `json:"description"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// ListTokens godoc
// @Summary List collection tokens
// @Description Lists the project's collection tokens, newest first, with state and collection URL.
// @Tags tokens
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 200 {array} service.TokenView
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /projects/{projectId}/tokens [get]
func (s *Server) ListTokens(c *fiber.Ctx) error {
	tokens, err := s.tokenService.List(c.UserContext(), projectID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(tokens)
}

// GetTokenStats godoc
// @Summary Collection token statistics
// @Tags tokens
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 200 {object} repository.TokenStats
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /projects/{projectId}/tokens/stats [get]
func (s *Server) GetTokenStats(c *fiber.Ctx) error {
	stats, err := s.tokenService.Stats(c.UserContext(), projectID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(stats)
}

// IssueToken godoc
// @Summary Issue a collection token
// @Description Creates a single-use token and returns it with its public collection URL.
// @Tags tokens
// @Accept json
// @Produce json
// @Param projectId path string true "Project ID"
// @Param request body IssueTokenRequest true "Token"
// @Success 201 {object} service.TokenView
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /projects/{projectId}/tokens [post]
func (s *Server) IssueToken(c *fiber.Ctx) error {
	var req IssueTokenRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	}

	t, err := s.tokenService.Issue(c.UserContext(), service.IssueTokenInput{
		ProjectID:   projectID(c),
		Description: req.Description,
		ExpiresAt:   req.ExpiresAt,
		CreatedBy:   middleware.MemberName(c),
		CreatedByID: middleware.MemberID(c),
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(service.TokenView{
		CollectionToken: *t,
		State:           service.TokenStateActive,
		URL:             s.tokenService.CollectionURL(projectSlug(c), t.Token),
	})
}

// CancelToken godoc
// @Summary Cancel a collection token
// @Description Revokes an unused token. Cancelling an already cancelled token succeeds.
// @Tags tokens
// @Produce json
// @Param projectId path string true "Project ID"
// @Param tokenId path string true "Token ID"
// @Success 200 {object} models.CollectionToken
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /projects/{projectId}/tokens/{tokenId}/cancel [post]
func (s *Server) CancelToken(c *fiber.Ctx) error {
	tokenID, err := parseUUID(c, "tokenId")
	if err != nil {
		return nil
	}

	t, err := s.tokenService.Cancel(c.UserContext(), service.CancelTokenInput{
		ProjectID: projectID(c),
		TokenID:   tokenID,
		MemberID:  middleware.MemberID(c),
		Role:      memberRole(c),
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(t)
}
