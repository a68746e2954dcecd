package server

import (
	"errors"
	"log/slog"

	"quotewall/internal/middleware"
	"quotewall/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ProjectEvents godoc
// @Summary Live project events
// @Description Upgrades to a websocket that streams the project's events (submissions, moderation, settings changes).
// @Tags events
// @Param projectId path string true "Project ID"
// @Param token query string false "Bearer token, for clients that cannot set headers"
// @Success 101
// @Failure 404 {object} models.ErrorResponse
// @Failure 426 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /projects/{projectId}/events [get]
func (s *Server) ProjectEvents() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		id, _ := conn.Locals(localProjectID).(uuid.UUID)
		memberID, _ := conn.Locals(middleware.LocalMemberID).(string)

		client, err := s.hub.Register(id, memberID, conn)
		if err != nil {
			middleware.Logger.Warn("event subscription refused",
				slog.String("project_id", id.String()), slog.String("error", err.Error()))
			msg := "subscription refused"
			if errors.Is(err, notifications.ErrProjectLimit) {
				msg = "too many subscribers for this project"
			}
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+msg+`"}`))
			_ = conn.Close()
			return
		}

		middleware.Logger.Debug("event subscriber connected",
			slog.String("project_id", id.String()), slog.String("member_id", memberID))

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if s.hub == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "live events are unavailable"})
		}
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return upgrade(c)
	}
}
