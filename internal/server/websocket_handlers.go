package server

import (
	"linkshelf/internal/middleware"
	"linkshelf/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketUpgrade redeems the ?ticket= query parameter and only lets authenticated
// upgrade requests through.
func (s *Server) WebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return models.RespondWithError(c, fiber.StatusUpgradeRequired,
				models.NewValidationError("websocket upgrade required"))
		}
		if s.hub == nil {
			return models.RespondWithError(c, fiber.StatusServiceUnavailable,
				&models.AppError{Code: models.CodeUnavailable, Message: "realtime is disabled", Retryable: true})
		}

		userID, err := s.authService.ConsumeWSTicket(c.UserContext(), c.Query("ticket"))
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		c.Locals("userID", userID)
		return c.Next()
	}
}

// WebsocketHandler handles GET /api/ws. Each connection receives the caller's
// notification events as JSON text frames.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok || userID == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket register failed", "user_id", userID, "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		// fiber's websocket handler must block until the connection is done
		go client.WritePump()
		client.ReadPump()
	})
}
