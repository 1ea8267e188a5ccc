package dto

// StartSessionRequest opens a proctoring session: the student's identity
// plus their WebRTC offer.
type StartSessionRequest struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	ExamID      string `json:"exam_id"`
	Offer       string `json:"offer"`
}

type StartSessionResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}
