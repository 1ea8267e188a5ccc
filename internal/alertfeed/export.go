package alertfeed

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

var csvHeader = []string{"Student Name", "Alert Type", "Message", "Severity", "Timestamp", "Confidence", "Source"}

// ExportCSV writes the alerts in the dashboard's download format. The
// column order is part of the report contract consumed downstream.
func ExportCSV(w io.Writer, alerts []Alert) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, a := range alerts {
		record := []string{
			a.StudentName,
			a.Type,
			a.Message,
			string(a.Severity),
			a.Timestamp.Format(time.RFC3339),
			strconv.FormatFloat(a.Confidence, 'f', 2, 64),
			string(a.Source),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
