package dto

// ReportViolationRequest is a manual violation flagged by a proctor from
// the dashboard.
type ReportViolationRequest struct {
	Type       string  `json:"type"`
	Message    string  `json:"message"`
	Severity   string  `json:"severity,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// SetAttemptLimitRequest adjusts the violation ceiling for one student in
// one exam.
type SetAttemptLimitRequest struct {
	MaxAttempts int `json:"maxAttempts"`
}
