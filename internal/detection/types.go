package detection

import "time"

const (
	DefaultTimeout        = 30 * time.Second
	DefaultSampleInterval = 5 * time.Second
	DefaultHealthInterval = 30 * time.Second
)

type Config struct {
	DetectorURL    string
	Timeout        time.Duration
	SampleInterval time.Duration
	HealthInterval time.Duration
}

// Result is one detector verdict for one frame. The field names follow the
// detector's wire format.
type Result struct {
	FaceDetected         bool     `json:"faceDetected"`
	SuspiciousActivities []string `json:"suspiciousActivities"`
	Confidence           float64  `json:"confidence"`
}

type ServerHealth struct {
	Available     bool      `json:"available"`
	LastCheckedAt time.Time `json:"last_checked_at"`
}
