package alertfeed

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/eleven-am/proctor-backend/internal/violation"
)

func TestExportCSV_Header(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportCSV(&buf, nil); err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}

	want := "Student Name,Alert Type,Message,Severity,Timestamp,Confidence,Source\n"
	if buf.String() != want {
		t.Errorf("header = %q, want %q", buf.String(), want)
	}
}

func TestExportCSV_QuotedFieldsRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	alerts := []Alert{{
		StudentName: `Ada "The Countess" Lovelace`,
		Type:        violation.TypeSuspiciousObject,
		Message:     "phone, visible on desk\nsecond line",
		Severity:    violation.SeverityCritical,
		Timestamp:   ts,
		Confidence:  0.875,
		Source:      violation.SourceAuto,
	}}

	var buf bytes.Buffer
	if err := ExportCSV(&buf, alerts); err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("exported CSV must parse back: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus 1 row, got %d", len(rows))
	}

	row := rows[1]
	if row[0] != `Ada "The Countess" Lovelace` {
		t.Errorf("quoted name did not round-trip: %q", row[0])
	}
	if row[2] != "phone, visible on desk\nsecond line" {
		t.Errorf("message with comma and newline did not round-trip: %q", row[2])
	}
	if row[4] != ts.Format(time.RFC3339) {
		t.Errorf("timestamp = %q, want RFC3339", row[4])
	}
	if row[5] != "0.88" {
		t.Errorf("confidence should render with two decimals, got %q", row[5])
	}
}

func TestExportCSV_RowPerAlert(t *testing.T) {
	alerts := []Alert{
		makeAlert("stu-1", "a", violation.SeverityLow),
		makeAlert("stu-2", "b", violation.SeverityHigh),
	}

	var buf bytes.Buffer
	if err := ExportCSV(&buf, alerts); err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse export: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("expected header plus 2 rows, got %d", len(rows))
	}
}
