package violation

import (
	"time"

	"github.com/eleven-am/proctor-backend/internal/shared"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

type Source string

const (
	SourceAuto   Source = "auto"
	SourceManual Source = "manual"
	SourceSystem Source = "system"
)

// Detection types produced by the classifier and accepted from manual
// reports.
const (
	TypeMultipleFaces    = "multiple_faces"
	TypeNoFace           = "no_face"
	TypeGazeAway         = "gaze_away"
	TypeSuspiciousObject = "suspicious_object"
	TypeTabSwitch        = "tab_switch"
	TypeAudio            = "audio_detection"
	TypeGesture          = "gesture"
	TypeScreenshot       = "screenshot"
	TypeGeneric          = "violation"
)

// Event is immutable once created; it only ever gets appended to an
// aggregate's history.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       string    `json:"type"`
	Severity   Severity  `json:"severity"`
	Message    string    `json:"message"`
	Source     Source    `json:"source"`
	Confidence float64   `json:"confidence,omitempty"`
}

// Attempts is the per (student, exam) aggregate. AttemptsLeft is always
// derived from the two counters, never stored.
type Attempts struct {
	StudentID       string
	ExamID          string
	CurrentAttempts int
	MaxAttempts     int
	History         []Event

	depleted bool
}

func (a *Attempts) AttemptsLeft() int {
	left := a.MaxAttempts - a.CurrentAttempts
	if left < 0 {
		return 0
	}
	return left
}

// View is the read-only snapshot handed to callers and serialized for the
// dashboard.
type View struct {
	StudentID       string  `json:"student_id"`
	ExamID          string  `json:"exam_id"`
	CurrentAttempts int     `json:"currentAttempts"`
	MaxAttempts     int     `json:"maxAttempts"`
	AttemptsLeft    int     `json:"attemptsLeft"`
	History         []Event `json:"history"`
}

func (a *Attempts) view() View {
	history := make([]Event, len(a.History))
	copy(history, a.History)
	return View{
		StudentID:       a.StudentID,
		ExamID:          a.ExamID,
		CurrentAttempts: a.CurrentAttempts,
		MaxAttempts:     a.MaxAttempts,
		AttemptsLeft:    a.AttemptsLeft(),
		History:         history,
	}
}

// Record is the archived form of an Event, written best-effort to postgres
// for the audit surface.
type Record struct {
	ID            string             `gorm:"primaryKey" json:"id"`
	StudentID     string             `gorm:"not null;index" json:"student_id"`
	ExamID        string             `gorm:"not null;index" json:"exam_id"`
	Type          string             `gorm:"not null;index" json:"type"`
	Severity      Severity           `gorm:"not null" json:"severity"`
	Message       string             `json:"message"`
	Source        Source             `gorm:"not null" json:"source"`
	Confidence    float64            `json:"confidence,omitempty"`
	RawActivities shared.StringSlice `gorm:"type:text" json:"raw_activities,omitempty"`
	OccurredAt    time.Time          `gorm:"not null;index" json:"occurred_at"`
	CreatedAt     time.Time          `json:"created_at"`
}
