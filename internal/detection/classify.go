package detection

import (
	"strings"
	"time"

	"github.com/eleven-am/proctor-backend/internal/violation"
)

type rule struct {
	keywords []string
	vType    string
	severity violation.Severity
}

// Rules are checked in order; the first keyword hit wins. The detector's
// activity strings are free-form, so matching is substring-based on the
// lowercased text.
var classifyRules = []rule{
	{[]string{"multiple face", "multiple people", "second person"}, violation.TypeMultipleFaces, violation.SeverityHigh},
	{[]string{"no face", "face not"}, violation.TypeNoFace, violation.SeverityMedium},
	{[]string{"phone", "mobile"}, violation.TypeSuspiciousObject, violation.SeverityCritical},
	{[]string{"book", "notes", "paper"}, violation.TypeSuspiciousObject, violation.SeverityHigh},
	{[]string{"looking away", "gaze", "looking down", "looking left", "looking right"}, violation.TypeGazeAway, violation.SeverityMedium},
	{[]string{"tab"}, violation.TypeTabSwitch, violation.SeverityMedium},
	{[]string{"audio", "voice", "speech", "talking"}, violation.TypeAudio, violation.SeverityMedium},
	{[]string{"gesture"}, violation.TypeGesture, violation.SeverityMedium},
	{[]string{"screenshot", "screen capture"}, violation.TypeScreenshot, violation.SeverityHigh},
}

// Classify turns a detector verdict into violation events. An empty slice
// means the frame was clean.
func Classify(res *Result, ts time.Time) []violation.Event {
	if res == nil {
		return nil
	}

	var events []violation.Event
	sawNoFace := false

	for _, activity := range res.SuspiciousActivities {
		vType, severity := classifyActivity(activity)
		if vType == violation.TypeNoFace {
			sawNoFace = true
		}
		events = append(events, violation.Event{
			Timestamp:  ts,
			Type:       vType,
			Severity:   severity,
			Message:    activity,
			Source:     violation.SourceAuto,
			Confidence: res.Confidence,
		})
	}

	if !res.FaceDetected && !sawNoFace {
		events = append(events, violation.Event{
			Timestamp:  ts,
			Type:       violation.TypeNoFace,
			Severity:   violation.SeverityMedium,
			Message:    "No face detected in frame",
			Source:     violation.SourceAuto,
			Confidence: res.Confidence,
		})
	}

	return events
}

func classifyActivity(activity string) (string, violation.Severity) {
	lower := strings.ToLower(activity)
	for _, r := range classifyRules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.vType, r.severity
			}
		}
	}
	return violation.TypeGeneric, violation.SeverityMedium
}
