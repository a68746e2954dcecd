package middleware

import (
	"errors"
	"strings"

	"quotewall/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// LocalMemberName holds the display snapshot (name, else email) of the authenticated member.
const LocalMemberName = "memberName"

// AuthConfig describes how dashboard session tokens from the external auth provider are verified.
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
	// AllowQueryToken accepts ?token= for websocket upgrades, which cannot set headers.
	AllowQueryToken bool
}

// MemberClaims is the subset of provider claims we rely on.
type MemberClaims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

var errMissingToken = errors.New("authorization header required")

// AuthRequired verifies the bearer token and stores the member id and display name in locals.
func AuthRequired(cfg AuthConfig) fiber.Handler {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(opts...)

	return func(c *fiber.Ctx) error {
		raw, err := bearerToken(c, cfg.AllowQueryToken)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(err.Error()))
		}

		claims := &MemberClaims{}
		token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(cfg.Secret), nil
		})
		if err != nil || !token.Valid {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError("Invalid or expired token"))
		}
		if strings.TrimSpace(claims.Subject) == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError("Invalid token structure - missing subject"))
		}

		display := claims.Name
		if display == "" {
			display = claims.Email
		}
		if display == "" {
			display = claims.Subject
		}

		c.Locals(LocalMemberID, claims.Subject)
		c.Locals(LocalMemberName, display)
		c.SetUserContext(WithLocals(c, c.UserContext()))

		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx, allowQuery bool) (string, error) {
	if allowQuery {
		if token := c.Query("token"); token != "" {
			return token, nil
		}
	}

	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", errMissingToken
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}

// MemberID returns the authenticated member id, or "" on public routes.
func MemberID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalMemberID).(string)
	return id
}

// MemberName returns the display snapshot of the authenticated member.
func MemberName(c *fiber.Ctx) string {
	name, _ := c.Locals(LocalMemberName).(string)
	return name
}
