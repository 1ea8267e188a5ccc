package detection

import (
	"testing"
	"time"

	"github.com/eleven-am/proctor-backend/internal/violation"
)

func TestClassifyActivity(t *testing.T) {
	cases := []struct {
		activity string
		wantType string
		wantSev  violation.Severity
	}{
		{"Multiple faces detected", violation.TypeMultipleFaces, violation.SeverityHigh},
		{"no face visible", violation.TypeNoFace, violation.SeverityMedium},
		{"mobile phone in frame", violation.TypeSuspiciousObject, violation.SeverityCritical},
		{"open book on desk", violation.TypeSuspiciousObject, violation.SeverityHigh},
		{"student looking away from screen", violation.TypeGazeAway, violation.SeverityMedium},
		{"gaze off-screen", violation.TypeGazeAway, violation.SeverityMedium},
		{"tab switch detected", violation.TypeTabSwitch, violation.SeverityMedium},
		{"background voice detected", violation.TypeAudio, violation.SeverityMedium},
		{"hand gesture", violation.TypeGesture, violation.SeverityMedium},
		{"screenshot attempt", violation.TypeScreenshot, violation.SeverityHigh},
		{"something unrecognized", violation.TypeGeneric, violation.SeverityMedium},
	}

	for _, tc := range cases {
		t.Run(tc.activity, func(t *testing.T) {
			vType, sev := classifyActivity(tc.activity)
			if vType != tc.wantType {
				t.Errorf("type = %s, want %s", vType, tc.wantType)
			}
			if sev != tc.wantSev {
				t.Errorf("severity = %s, want %s", sev, tc.wantSev)
			}
		})
	}
}

func TestClassify_CleanFrame(t *testing.T) {
	res := &Result{FaceDetected: true}
	if events := Classify(res, time.Now()); len(events) != 0 {
		t.Errorf("clean frame should yield no events, got %d", len(events))
	}
}

func TestClassify_NoFaceImplied(t *testing.T) {
	res := &Result{FaceDetected: false, Confidence: 0.5}
	events := Classify(res, time.Now())

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != violation.TypeNoFace {
		t.Errorf("expected no_face, got %s", events[0].Type)
	}
	if events[0].Source != violation.SourceAuto {
		t.Errorf("expected auto source, got %s", events[0].Source)
	}
}

func TestClassify_NoFaceNotDuplicated(t *testing.T) {
	res := &Result{
		FaceDetected:         false,
		SuspiciousActivities: []string{"no face detected"},
	}
	events := Classify(res, time.Now())

	count := 0
	for _, ev := range events {
		if ev.Type == violation.TypeNoFace {
			count++
		}
	}
	if count != 1 {
		t.Errorf("no_face should be reported once, got %d", count)
	}
}

func TestClassify_MultipleActivities(t *testing.T) {
	ts := time.Now()
	res := &Result{
		FaceDetected:         true,
		SuspiciousActivities: []string{"phone visible", "looking away"},
		Confidence:           0.9,
	}
	events := Classify(res, ts)

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	for _, ev := range events {
		if ev.Confidence != 0.9 {
			t.Errorf("confidence should carry over, got %f", ev.Confidence)
		}
		if !ev.Timestamp.Equal(ts) {
			t.Error("timestamp should carry over")
		}
	}
}

func TestClassify_Nil(t *testing.T) {
	if events := Classify(nil, time.Now()); events != nil {
		t.Error("nil result should yield nil")
	}
}
