package monitor

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/eleven-am/proctor-backend/internal/camera"
	"github.com/eleven-am/proctor-backend/internal/dto"
	"github.com/eleven-am/proctor-backend/internal/session"
	"github.com/eleven-am/proctor-backend/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	manager *Manager
	store   *session.Store
	logger  *slog.Logger
}

func NewHandler(manager *Manager, store *session.Store, logger *slog.Logger) *Handler {
	return &Handler{manager: manager, store: store, logger: logger}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/monitor/sessions", h.StartSession)
	g.DELETE("/monitor/sessions/:id", h.EndSession)
	g.POST("/monitor/sessions/:id/camera/switch", h.SwitchCamera)
	g.GET("/monitor/sessions", h.ListSessions)
	g.GET("/monitor/sessions/:id", h.GetSession)
	g.GET("/monitor/sessions/:id/snapshot", h.Snapshot)
	g.GET("/monitor/ice-servers", h.ICEServers)
	g.GET("/monitor/exams/:examId/metrics", h.ExamMetrics)
}

// @Summary      Start a session
// @Description  Opens a proctoring session from the student's WebRTC offer and returns the answer
// @Tags         monitor
// @Accept       json
// @Produce      json
// @Success      201  {object}  dto.StartSessionResponse
// @Failure      400  {object}  shared.APIError
// @Failure      503  {object}  shared.APIError
// @Router       /monitor/sessions [post]
func (h *Handler) StartSession(c echo.Context) error {
	var req dto.StartSessionRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	if req.StudentID == "" || req.ExamID == "" || req.Offer == "" {
		return shared.BadRequest("missing_fields", "student_id, exam_id and offer are required")
	}

	result, err := h.manager.StartSession(c.Request().Context(), StartRequest{
		StudentID:   req.StudentID,
		StudentName: req.StudentName,
		ExamID:      req.ExamID,
		Offer:       req.Offer,
	})
	if err != nil {
		h.logger.Error("failed to start session", "error", err, "student_id", req.StudentID)
		return shared.ServiceUnavailable("session_failed", "failed to start proctoring session")
	}

	return c.JSON(http.StatusCreated, dto.StartSessionResponse{
		SessionID: result.SessionID,
		Answer:    result.Answer,
	})
}

// @Summary      End a session
// @Description  Closes the peer connection and marks the session ended
// @Tags         monitor
// @Success      204  "No Content"
// @Failure      404  {object}  shared.APIError
// @Router       /monitor/sessions/{id} [delete]
func (h *Handler) EndSession(c echo.Context) error {
	if err := h.manager.EndSession(c.Param("id"), "ended_by_proctor"); err != nil {
		return shared.NotFound("session_not_found", "session not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// @Summary      Switch camera
// @Description  Moves the session to another video input device
// @Tags         monitor
// @Success      204  "No Content"
// @Failure      404  {object}  shared.APIError
// @Failure      409  {object}  shared.APIError
// @Router       /monitor/sessions/{id}/camera/switch [post]
func (h *Handler) SwitchCamera(c echo.Context) error {
	err := h.manager.SwitchCamera(c.Request().Context(), c.Param("id"))
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case err == shared.ErrNotFound:
		return shared.NotFound("session_not_found", "session not found")
	case err == camera.ErrOnlyOneDevice:
		return shared.Conflict("only_one_device", camera.UserMessage(err))
	default:
		h.logger.Error("camera switch failed", "error", err, "session_id", c.Param("id"))
		return shared.BadRequest("switch_failed", camera.UserMessage(err))
	}
}

// @Summary      List sessions
// @Description  Lists active sessions, optionally scoped to one exam
// @Tags         monitor
// @Produce      json
// @Param        exam_id  query  string  false  "exam to filter by"
// @Success      200  {array}  session.Session
// @Failure      500  {object}  shared.APIError
// @Router       /monitor/sessions [get]
func (h *Handler) ListSessions(c echo.Context) error {
	sessions, err := h.store.GetActiveSessions(c.Request().Context(), c.QueryParam("exam_id"))
	if err != nil {
		h.logger.Error("failed to list sessions", "error", err)
		return shared.InternalError("list_failed", "failed to list sessions")
	}
	if sessions == nil {
		sessions = []*session.Session{}
	}
	return c.JSON(http.StatusOK, sessions)
}

// @Summary      Get a session
// @Tags         monitor
// @Produce      json
// @Success      200  {object}  session.Session
// @Failure      404  {object}  shared.APIError
// @Router       /monitor/sessions/{id} [get]
func (h *Handler) GetSession(c echo.Context) error {
	sess, err := h.store.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return shared.NotFound("session_not_found", "session not found")
	}
	return c.JSON(http.StatusOK, sess)
}

// @Summary      Session snapshot
// @Description  Returns the most recent JPEG still from the session's camera
// @Tags         monitor
// @Produce      image/jpeg
// @Failure      404  {object}  shared.APIError
// @Router       /monitor/sessions/{id}/snapshot [get]
func (h *Handler) Snapshot(c echo.Context) error {
	s, ok := h.manager.GetSession(c.Param("id"))
	if !ok {
		return shared.NotFound("session_not_found", "session not found")
	}

	frame := s.CaptureFrame()
	if frame == nil {
		return shared.NotFound("no_frame", "no frame available yet")
	}
	return c.Blob(http.StatusOK, "image/jpeg", frame.Data)
}

// @Summary      ICE servers
// @Description  Returns the ICE servers the student client should use
// @Tags         monitor
// @Produce      json
// @Success      200  {array}  monitor.ICEServerConfig
// @Router       /monitor/ice-servers [get]
func (h *Handler) ICEServers(c echo.Context) error {
	servers := h.manager.rtc.ICEServers()
	if servers == nil {
		servers = []ICEServerConfig{}
	}
	return c.JSON(http.StatusOK, servers)
}

// @Summary      Exam metrics
// @Description  Returns hourly session and violation counters for an exam
// @Tags         monitor
// @Produce      json
// @Param        hours  query  int  false  "trailing window, default 24"
// @Success      200  {array}  session.Metrics
// @Failure      500  {object}  shared.APIError
// @Router       /monitor/exams/{examId}/metrics [get]
func (h *Handler) ExamMetrics(c echo.Context) error {
	hours, _ := strconv.Atoi(c.QueryParam("hours"))
	if hours <= 0 {
		hours = 24
	}

	metrics, err := h.store.GetMetrics(c.Request().Context(), c.Param("examId"), hours)
	if err != nil {
		h.logger.Error("failed to read metrics", "error", err)
		return shared.InternalError("metrics_failed", "failed to read metrics")
	}
	if metrics == nil {
		metrics = []*session.Metrics{}
	}
	return c.JSON(http.StatusOK, metrics)
}
