package gateway

import (
	"log/slog"

	"github.com/eleven-am/proctor-backend/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	hub    *Hub
	logger *slog.Logger
}

func NewHandler(hub *Hub, logger *slog.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/dashboard/ws", h.handleWebSocket)
}

// @Summary      Dashboard stream
// @Description  Upgrades to a websocket that pushes alert, attempt, health and session events
// @Tags         dashboard
// @Router       /dashboard/ws [get]
func (h *Handler) handleWebSocket(c echo.Context) error {
	ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return err
	}

	conn := newConn(shared.NewID("dash_"), ws, h.logger)
	h.hub.register(conn)

	ctx := c.Request().Context()
	go conn.writePump(ctx)
	conn.readPump(ctx)

	h.hub.unregister(conn.id)
	return nil
}
