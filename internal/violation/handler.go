package violation

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/eleven-am/proctor-backend/internal/dto"
	"github.com/eleven-am/proctor-backend/internal/shared"
	"github.com/labstack/echo/v4"
)

// Ingestor routes a violation through the full pipeline: tracker, archive
// and the dashboard feed. The monitor package provides the production
// implementation.
type Ingestor interface {
	Ingest(ctx context.Context, studentID, examID string, ev Event, raw []string) View
}

type Handler struct {
	tracker  *Tracker
	archive  *Archive
	ingestor Ingestor
	logger   *slog.Logger
}

func NewHandler(tracker *Tracker, archive *Archive, ingestor Ingestor, logger *slog.Logger) *Handler {
	return &Handler{
		tracker:  tracker,
		archive:  archive,
		ingestor: ingestor,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/exams/:examId/students/:studentId/attempts", h.GetAttempts)
	g.POST("/exams/:examId/students/:studentId/attempts/reset", h.ResetAttempts)
	g.PUT("/exams/:examId/students/:studentId/attempts/limit", h.SetAttemptLimit)
	g.POST("/exams/:examId/students/:studentId/violations", h.ReportViolation)
	g.GET("/exams/:examId/violations", h.ListExamViolations)
	g.GET("/exams/:examId/students/:studentId/violations", h.ListStudentViolations)
}

// @Summary      Get attempt state
// @Description  Returns the violation counters and recent history for a student in an exam
// @Tags         violations
// @Produce      json
// @Success      200  {object}  violation.View
// @Router       /exams/{examId}/students/{studentId}/attempts [get]
func (h *Handler) GetAttempts(c echo.Context) error {
	studentID, examID := c.Param("studentId"), c.Param("examId")

	view, ok := h.tracker.Get(studentID, examID)
	if !ok {
		// No violations yet is a valid state, not a 404.
		view = View{
			StudentID:    studentID,
			ExamID:       examID,
			MaxAttempts:  h.tracker.maxAttempts,
			AttemptsLeft: h.tracker.maxAttempts,
			History:      []Event{},
		}
	}
	return c.JSON(http.StatusOK, view)
}

// @Summary      Reset attempts
// @Description  Zeroes the counters and clears history for a student in an exam
// @Tags         violations
// @Produce      json
// @Success      200  {object}  violation.View
// @Router       /exams/{examId}/students/{studentId}/attempts/reset [post]
func (h *Handler) ResetAttempts(c echo.Context) error {
	studentID, examID := c.Param("studentId"), c.Param("examId")

	view := h.tracker.Reset(studentID, examID)
	h.logger.Info("attempts reset", "student_id", studentID, "exam_id", examID)
	return c.JSON(http.StatusOK, view)
}

// @Summary      Set attempt limit
// @Description  Adjusts the maximum violation count for a student in an exam
// @Tags         violations
// @Accept       json
// @Produce      json
// @Success      200  {object}  violation.View
// @Failure      400  {object}  shared.APIError
// @Router       /exams/{examId}/students/{studentId}/attempts/limit [put]
func (h *Handler) SetAttemptLimit(c echo.Context) error {
	var req dto.SetAttemptLimitRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	if req.MaxAttempts < MinMaxAttempts || req.MaxAttempts > MaxMaxAttempts {
		return shared.BadRequest("invalid_limit", "maxAttempts must be between 1 and 50")
	}

	view := h.tracker.SetMaxAttempts(c.Param("studentId"), c.Param("examId"), req.MaxAttempts)
	return c.JSON(http.StatusOK, view)
}

// @Summary      Report a violation
// @Description  Records a manual violation flagged by a proctor
// @Tags         violations
// @Accept       json
// @Produce      json
// @Success      201  {object}  violation.View
// @Failure      400  {object}  shared.APIError
// @Router       /exams/{examId}/students/{studentId}/violations [post]
func (h *Handler) ReportViolation(c echo.Context) error {
	var req dto.ReportViolationRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	if req.Message == "" {
		return shared.BadRequest("missing_message", "message is required")
	}

	severity := Severity(req.Severity)
	if req.Severity == "" {
		severity = SeverityHigh
	}
	if !severity.Valid() {
		return shared.BadRequest("invalid_severity", "severity must be low, medium, high or critical")
	}

	vType := req.Type
	if vType == "" {
		vType = TypeGeneric
	}

	ev := Event{
		Timestamp:  time.Now(),
		Type:       vType,
		Severity:   severity,
		Message:    req.Message,
		Source:     SourceManual,
		Confidence: req.Confidence,
	}

	view := h.ingestor.Ingest(c.Request().Context(), c.Param("studentId"), c.Param("examId"), ev, nil)
	return c.JSON(http.StatusCreated, view)
}

// @Summary      List exam violations
// @Description  Returns archived violations for an exam, newest first
// @Tags         violations
// @Produce      json
// @Success      200  {array}  violation.Record
// @Failure      500  {object}  shared.APIError
// @Router       /exams/{examId}/violations [get]
func (h *Handler) ListExamViolations(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	records, err := h.archive.ListByExam(c.Request().Context(), c.Param("examId"), limit)
	if err != nil {
		h.logger.Error("failed to list violations", "error", err, "exam_id", c.Param("examId"))
		return shared.InternalError("list_failed", "failed to list violations")
	}
	return c.JSON(http.StatusOK, records)
}

// @Summary      List student violations
// @Description  Returns archived violations for a student in an exam, newest first
// @Tags         violations
// @Produce      json
// @Success      200  {array}  violation.Record
// @Failure      500  {object}  shared.APIError
// @Router       /exams/{examId}/students/{studentId}/violations [get]
func (h *Handler) ListStudentViolations(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	records, err := h.archive.ListByStudent(c.Request().Context(), c.Param("examId"), c.Param("studentId"), limit)
	if err != nil {
		h.logger.Error("failed to list violations", "error", err,
			"exam_id", c.Param("examId"), "student_id", c.Param("studentId"))
		return shared.InternalError("list_failed", "failed to list violations")
	}
	return c.JSON(http.StatusOK, records)
}
