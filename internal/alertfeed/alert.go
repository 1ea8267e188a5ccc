package alertfeed

import (
	"time"

	"github.com/eleven-am/proctor-backend/internal/shared"
	"github.com/eleven-am/proctor-backend/internal/violation"
)

type Kind string

const (
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindDanger  Kind = "danger"
)

// TypeSystem marks alerts about the proctoring pipeline itself rather
// than student behavior.
const TypeSystem = "system"

// Alert is one entry in the dashboard feed. Kind drives the visual
// treatment; Type is the detection category the alert came from.
type Alert struct {
	ID          string             `json:"id"`
	StudentID   string             `json:"student_id"`
	StudentName string             `json:"student_name"`
	Kind        Kind               `json:"kind"`
	Type        string             `json:"type"`
	Message     string             `json:"message"`
	Severity    violation.Severity `json:"severity"`
	Timestamp   time.Time          `json:"timestamp"`
	Confidence  float64            `json:"confidence,omitempty"`
	Source      violation.Source   `json:"source"`
}

// FromViolation builds the feed entry for a violation event.
func FromViolation(studentID, studentName string, ev violation.Event) Alert {
	return Alert{
		ID:          shared.NewID("alrt_"),
		StudentID:   studentID,
		StudentName: studentName,
		Kind:        kindFor(ev.Severity),
		Type:        ev.Type,
		Message:     ev.Message,
		Severity:    ev.Severity,
		Timestamp:   ev.Timestamp,
		Confidence:  ev.Confidence,
		Source:      ev.Source,
	}
}

// FromSystem builds a pipeline-status entry, such as a detector outage.
func FromSystem(message string, degraded bool, ts time.Time) Alert {
	kind := KindInfo
	severity := violation.SeverityLow
	if degraded {
		kind = KindWarning
		severity = violation.SeverityMedium
	}
	return Alert{
		ID:        shared.NewID("alrt_"),
		Kind:      kind,
		Type:      TypeSystem,
		Message:   message,
		Severity:  severity,
		Timestamp: ts,
		Source:    violation.SourceSystem,
	}
}

func kindFor(s violation.Severity) Kind {
	switch s {
	case violation.SeverityCritical, violation.SeverityHigh:
		return KindDanger
	case violation.SeverityMedium:
		return KindWarning
	default:
		return KindInfo
	}
}
