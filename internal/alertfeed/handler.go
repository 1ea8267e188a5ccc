package alertfeed

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/eleven-am/proctor-backend/internal/shared"
	"github.com/eleven-am/proctor-backend/internal/violation"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	feed   *Feed
	logger *slog.Logger
}

func NewHandler(feed *Feed, logger *slog.Logger) *Handler {
	return &Handler{feed: feed, logger: logger}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/alerts", h.List)
	g.GET("/alerts/first", h.First)
	g.GET("/alerts/stats", h.Stats)
	g.GET("/alerts/export", h.Export)
	g.DELETE("/alerts", h.ClearAll)
	g.DELETE("/alerts/students/:studentId", h.ClearStudent)
}

func filterFromQuery(c echo.Context) Filter {
	return Filter{
		Severity: violation.Severity(c.QueryParam("severity")),
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("search"),
		Window:   c.QueryParam("window"),
	}
}

// @Summary      List alerts
// @Description  Returns the alert feed, optionally filtered and reordered
// @Tags         alerts
// @Produce      json
// @Param        severity  query  string  false  "low, medium, high or critical"
// @Param        category  query  string  false  "all, violation, face, object or system"
// @Param        search    query  string  false  "substring match on name, message or type"
// @Param        window    query  string  false  "5m, 30m, 60m, today or all"
// @Param        order     query  string  false  "newest (default) or oldest"
// @Success      200  {array}  alertfeed.Alert
// @Router       /alerts [get]
func (h *Handler) List(c echo.Context) error {
	filter := filterFromQuery(c)
	if filter.Severity != "" && !filter.Severity.Valid() {
		return shared.BadRequest("invalid_severity", "severity must be low, medium, high or critical")
	}

	alerts := filter.Apply(h.feed.All(), time.Now())
	SortByOrder(alerts, c.QueryParam("order"))
	return c.JSON(http.StatusOK, alerts)
}

// @Summary      First alert
// @Description  Returns the oldest alert still retained in the feed
// @Tags         alerts
// @Produce      json
// @Success      200  {object}  alertfeed.Alert
// @Failure      404  {object}  shared.APIError
// @Router       /alerts/first [get]
func (h *Handler) First(c echo.Context) error {
	alert, ok := h.feed.FirstAlert()
	if !ok {
		return shared.NotFound("feed_empty", "no alerts in the feed")
	}
	return c.JSON(http.StatusOK, alert)
}

// @Summary      Alert statistics
// @Description  Returns feed totals, per-severity and per-type counts and a 24h histogram
// @Tags         alerts
// @Produce      json
// @Success      200  {object}  alertfeed.Stats
// @Router       /alerts/stats [get]
func (h *Handler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, ComputeStats(h.feed.All(), time.Now()))
}

// @Summary      Export alerts
// @Description  Downloads the (optionally filtered) feed as CSV
// @Tags         alerts
// @Produce      text/csv
// @Param        order  query  string  false  "newest (default) or oldest"
// @Success      200  {string}  string
// @Failure      500  {object}  shared.APIError
// @Router       /alerts/export [get]
func (h *Handler) Export(c echo.Context) error {
	alerts := filterFromQuery(c).Apply(h.feed.All(), time.Now())
	SortByOrder(alerts, c.QueryParam("order"))

	var buf bytes.Buffer
	if err := ExportCSV(&buf, alerts); err != nil {
		h.logger.Error("csv export failed", "error", err)
		return shared.InternalError("export_failed", "failed to export alerts")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="alerts.csv"`)
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

// @Summary      Clear all alerts
// @Description  Empties the alert feed
// @Tags         alerts
// @Success      204  "No Content"
// @Router       /alerts [delete]
func (h *Handler) ClearAll(c echo.Context) error {
	h.feed.ClearAll()
	h.logger.Info("alert feed cleared")
	return c.NoContent(http.StatusNoContent)
}

// @Summary      Clear student alerts
// @Description  Removes all alerts for one student from the feed
// @Tags         alerts
// @Success      204  "No Content"
// @Router       /alerts/students/{studentId} [delete]
func (h *Handler) ClearStudent(c echo.Context) error {
	removed := h.feed.ClearStudent(c.Param("studentId"))
	h.logger.Info("student alerts cleared", "student_id", c.Param("studentId"), "removed", removed)
	return c.NoContent(http.StatusNoContent)
}
