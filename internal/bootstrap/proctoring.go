package bootstrap

import (
	"context"
	"log/slog"

	"github.com/eleven-am/proctor-backend/internal/alertfeed"
	"github.com/eleven-am/proctor-backend/internal/detection"
	"github.com/eleven-am/proctor-backend/internal/gateway"
	"github.com/eleven-am/proctor-backend/internal/monitor"
	"github.com/eleven-am/proctor-backend/internal/session"
	"github.com/eleven-am/proctor-backend/internal/violation"
	"go.uber.org/fx"
)

func ProvideTracker(cfg *Config, logger *slog.Logger) *violation.Tracker {
	return violation.NewTracker(violation.TrackerConfig{
		MaxAttempts:  cfg.MaxAttempts,
		HistoryLimit: cfg.HistoryLimit,
		Logger:       logger.With("component", "tracker"),
	})
}

func ProvideFeed(cfg *Config, logger *slog.Logger) *alertfeed.Feed {
	return alertfeed.NewFeed(alertfeed.FeedConfig{
		Capacity: cfg.FeedCapacity,
		Logger:   logger.With("component", "alertfeed"),
	})
}

func ProvideHub(logger *slog.Logger) *gateway.Hub {
	return gateway.NewHub(logger.With("component", "hub"))
}

func ProvideDetectionClient(cfg *Config) *detection.Client {
	return detection.NewClient(detection.Config{
		DetectorURL: cfg.DetectorURL,
		Timeout:     cfg.DetectorTimeout,
	})
}

func ProvideHealthMonitor(client *detection.Client, cfg *Config, logger *slog.Logger) *detection.HealthMonitor {
	return detection.NewHealthMonitor(detection.HealthMonitorConfig{
		Prober:   client,
		Interval: cfg.HealthCheckInterval,
		Logger:   logger.With("component", "detector-health"),
	})
}

func ProvideRTC(cfg *Config) (*monitor.RTC, error) {
	rtcConfig := monitor.RTCConfig{ICEServers: cfg.RTCICEServers}
	rtcConfig.PortRange.Min = cfg.RTCPortMin
	rtcConfig.PortRange.Max = cfg.RTCPortMax
	return monitor.NewRTC(rtcConfig)
}

func ProvidePipeline(tracker *violation.Tracker, archive *violation.Archive, feed *alertfeed.Feed, hub *gateway.Hub, store *session.Store, health *detection.HealthMonitor, logger *slog.Logger) *monitor.Pipeline {
	return monitor.NewPipeline(monitor.PipelineConfig{
		Tracker: tracker,
		Archive: archive,
		Feed:    feed,
		Hub:     hub,
		Store:   store,
		Health:  health,
		Logger:  logger.With("component", "pipeline"),
	})
}

func ProvideManager(rtc *monitor.RTC, client *detection.Client, health *detection.HealthMonitor, pipeline *monitor.Pipeline, store *session.Store, hub *gateway.Hub, cfg *Config, logger *slog.Logger) *monitor.Manager {
	return monitor.NewManager(monitor.ManagerConfig{
		RTC:            rtc,
		Client:         client,
		Health:         health,
		Pipeline:       pipeline,
		Store:          store,
		Hub:            hub,
		SampleInterval: cfg.SampleInterval,
		ReadyTimeout:   cfg.CameraReadyTimeout,
		Logger:         logger.With("component", "monitor"),
	})
}

// StartProctoring ties the long-running pieces to the fx lifecycle: the
// detector health loop, the pipeline event loop, and session teardown.
func StartProctoring(lc fx.Lifecycle, health *detection.HealthMonitor, pipeline *monitor.Pipeline, manager *monitor.Manager) {
	runCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			health.Start(runCtx)
			go pipeline.Run(runCtx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			health.Stop()
			manager.Shutdown()
			return nil
		},
	})
}

var ProctoringModule = fx.Options(
	fx.Provide(
		ProvideTracker,
		ProvideFeed,
		ProvideHub,
		ProvideDetectionClient,
		ProvideHealthMonitor,
		ProvideRTC,
		ProvidePipeline,
		ProvideManager,
	),
	fx.Invoke(StartProctoring),
)
