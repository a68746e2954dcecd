package server

import (
	"errors"
	"log/slog"
	"strings"
	"unicode"

	"quotewall/internal/middleware"
	"quotewall/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Locals set by ProjectAccess.
const (
	localProjectID   = "projectID"
	localProjectSlug = "projectSlug"
	localMemberRole  = "memberRole"
)

// parseUUID extracts a route parameter by name as a UUID.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func parseUUID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return uuid.Nil, errResponseWritten
	}
	return id, nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "tokenId" -> "token ID", "testimonialId" -> "testimonial ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// respondServiceError writes err with the status its code maps to. Server-side
// failures are logged with the request context before the generic body goes out.
func respondServiceError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
		if !models.HasCode(err, models.CodeInternal) {
			err = models.NewInternalError(err)
		}
	}
	return models.RespondWithError(c, status, err)
}

// projectID returns the project resolved by ProjectAccess.
func projectID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(localProjectID).(uuid.UUID)
	return id
}

func projectSlug(c *fiber.Ctx) string {
	slug, _ := c.Locals(localProjectSlug).(string)
	return slug
}

// memberRole returns the caller's role in the current project.
func memberRole(c *fiber.Ctx) models.MemberRole {
	role, _ := c.Locals(localMemberRole).(models.MemberRole)
	return role
}

// ProjectAccess resolves :projectId and the caller's membership in it. Projects the
// caller does not belong to are reported as missing.
func (s *Server) ProjectAccess() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseUUID(c, "projectId")
		if err != nil {
			return nil
		}

		member, err := s.projectService.Membership(c.UserContext(), id, middleware.MemberID(c))
		if err != nil {
			return respondServiceError(c, err)
		}

		c.Locals(localProjectID, id)
		c.Locals(localMemberRole, member.Role)
		if member.Project != nil {
			c.Locals(localProjectSlug, member.Project.Slug)
		}
		return c.Next()
	}
}
