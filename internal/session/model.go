package session

import (
	"strconv"
	"time"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
	StatusError  Status = "error"
)

// Session is one live proctoring session, registered in redis so every
// backend instance sees the same roster.
type Session struct {
	ID           string    `json:"id"`
	StudentID    string    `json:"student_id"`
	StudentName  string    `json:"student_name"`
	ExamID       string    `json:"exam_id"`
	Status       Status    `json:"status"`
	CameraState  string    `json:"camera_state"`
	StartedAt    time.Time `json:"started_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

func (s *Session) RedisKey() string {
	return "proctor:session:" + s.ID
}

// Metrics is the per-exam hourly counter row read back from redis.
type Metrics struct {
	ExamID       string `json:"exam_id"`
	Date         string `json:"date"`
	Hour         int    `json:"hour"`
	Sessions     int64  `json:"sessions"`
	Violations   int64  `json:"violations"`
	FramesOK     int64  `json:"frames_ok"`
	FramesFailed int64  `json:"frames_failed"`
	Depletions   int64  `json:"depletions"`
}

func MetricsRedisKey(examID, date string, hour int) string {
	return "exam:" + examID + ":metrics:" + date + ":" + strconv.Itoa(hour)
}
