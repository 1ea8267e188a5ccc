package bootstrap

import (
	"log/slog"
	"os"

	"github.com/eleven-am/proctor-backend/internal/alertfeed"
	"github.com/eleven-am/proctor-backend/internal/detection"
	"github.com/eleven-am/proctor-backend/internal/gateway"
	"github.com/eleven-am/proctor-backend/internal/health"
	"github.com/eleven-am/proctor-backend/internal/monitor"
	"github.com/eleven-am/proctor-backend/internal/session"
	"github.com/eleven-am/proctor-backend/internal/violation"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const version = "1.0.0"

type HandlerParams struct {
	fx.In

	ViolationHandler *violation.Handler
	AlertHandler     *alertfeed.Handler
	GatewayHandler   *gateway.Handler
	MonitorHandler   *monitor.Handler
	HealthHandler    *health.Handler
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	api := e.Group("/v1")

	params.ViolationHandler.RegisterRoutes(api)
	params.AlertHandler.RegisterRoutes(api)
	params.MonitorHandler.RegisterRoutes(api)
	params.GatewayHandler.RegisterRoutes(api)

	params.HealthHandler.RegisterRoutes(e)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

func ProvideViolationHandler(tracker *violation.Tracker, archive *violation.Archive, pipeline *monitor.Pipeline, logger *slog.Logger) *violation.Handler {
	return violation.NewHandler(tracker, archive, pipeline, logger.With("handler", "violation"))
}

func ProvideAlertHandler(feed *alertfeed.Feed, logger *slog.Logger) *alertfeed.Handler {
	return alertfeed.NewHandler(feed, logger.With("handler", "alertfeed"))
}

func ProvideGatewayHandler(hub *gateway.Hub, logger *slog.Logger) *gateway.Handler {
	return gateway.NewHandler(hub, logger.With("handler", "gateway"))
}

func ProvideMonitorHandler(manager *monitor.Manager, store *session.Store, logger *slog.Logger) *monitor.Handler {
	return monitor.NewHandler(manager, store, logger.With("handler", "monitor"))
}

func ProvideHealthHandler(db *gorm.DB, redisClient *redis.Client, detector *detection.HealthMonitor, manager *monitor.Manager, hub *gateway.Hub) *health.Handler {
	return health.NewHandler(db, redisClient, detector, manager, hub, version)
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideViolationHandler,
		ProvideAlertHandler,
		ProvideGatewayHandler,
		ProvideMonitorHandler,
		ProvideHealthHandler,
	),
	fx.Invoke(RegisterRoutes),
)
