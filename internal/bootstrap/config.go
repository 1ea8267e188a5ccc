package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eleven-am/proctor-backend/internal/monitor"
)

type Config struct {
	ServerAddr string
	LogLevel   string

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DetectorURL     string
	DetectorTimeout time.Duration

	SampleInterval      time.Duration
	HealthCheckInterval time.Duration
	CameraReadyTimeout  time.Duration

	MaxAttempts  int
	HistoryLimit int
	FeedCapacity int

	RTCICEServers []monitor.ICEServerConfig
	RTCPortMin    int
	RTCPortMax    int
}

func LoadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		DatabaseDSN: getEnv("DATABASE_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		DetectorURL:     getEnv("DETECTOR_URL", "http://localhost:5000"),
		DetectorTimeout: getEnvDuration("DETECTOR_TIMEOUT", 30*time.Second),

		SampleInterval:      getEnvDuration("SAMPLE_INTERVAL", 5*time.Second),
		HealthCheckInterval: getEnvDuration("HEALTH_CHECK_INTERVAL", 30*time.Second),
		CameraReadyTimeout:  getEnvDuration("CAMERA_READY_TIMEOUT", 5*time.Second),

		MaxAttempts:  getEnvInt("MAX_ATTEMPTS", 10),
		HistoryLimit: getEnvInt("HISTORY_LIMIT", 20),
		FeedCapacity: getEnvInt("FEED_CAPACITY", 200),

		RTCICEServers: parseICEServers(getEnv("RTC_ICE_SERVERS", "stun:stun.l.google.com:19302")),
		RTCPortMin:    getEnvInt("RTC_PORT_MIN", 10000),
		RTCPortMax:    getEnvInt("RTC_PORT_MAX", 20000),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseICEServers(envValue string) []monitor.ICEServerConfig {
	if envValue == "" {
		return []monitor.ICEServerConfig{{URLs: []string{"stun:stun.l.google.com:19302"}}}
	}

	var servers []monitor.ICEServerConfig
	for _, url := range strings.Split(envValue, ",") {
		url = strings.TrimSpace(url)
		if url != "" {
			servers = append(servers, monitor.ICEServerConfig{URLs: []string{url}})
		}
	}

	if len(servers) == 0 {
		return []monitor.ICEServerConfig{{URLs: []string{"stun:stun.l.google.com:19302"}}}
	}

	return servers
}
