package dto

import "time"

// AssignTestRequest pre-creates an attempt ledger for a candidate.
type AssignTestRequest struct {
	TestID      uint `json:"test_id" binding:"required"`
	CandidateID uint `json:"candidate_id" binding:"required"`
}

// OpenTestRequest identifies the candidate opening (or resuming) a test.
type OpenTestRequest struct {
	CandidateID uint `json:"candidate_id" binding:"required"`
}

// SubmitTestRequest carries a candidate's answers, keyed by question id.
// StartTime is the client's recollection of when it started, in unix
// milliseconds; the server-recorded start takes precedence whenever one exists.
type SubmitTestRequest struct {
	CandidateID uint            `json:"candidate_id" binding:"required"`
	Answers     map[uint]string `json:"answers"`
	StartTime   *int64          `json:"start_time"`
}

// OpenTestResponse is either an in-progress attempt with the test content, or
// the stored terminal result when the candidate has already finished.
type OpenTestResponse struct {
	Status           string            `json:"status"`
	AlreadyCompleted bool              `json:"already_completed"`
	Closed           bool              `json:"closed"` // deadline passed; submission will expire
	Score            *float64          `json:"score,omitempty"`
	StartedAt        *time.Time        `json:"started_at,omitempty"`
	FinishedAt       *time.Time        `json:"finished_at,omitempty"`
	RemainingSeconds *int64            `json:"remaining_seconds,omitempty"`
	Test             *CandidateTestDTO `json:"test,omitempty"`
}

// SubmitTestResponse reports the terminal outcome of a submission.
type SubmitTestResponse struct {
	AttemptID    uint    `json:"attempt_id"`
	Status       string  `json:"status"` // passed, failed or expired
	Score        float64 `json:"score"`
	CorrectCount int     `json:"correct_count"`
	Message      string  `json:"message"`
}

// AnswerResponseDTO is one recorded answer within an attempt detail.
type AnswerResponseDTO struct {
	QuestionID uint   `json:"question_id"`
	Prompt     string `json:"prompt,omitempty"`
	Value      string `json:"value"`
}

// AttemptSummaryDTO lists one attempt without its answers.
type AttemptSummaryDTO struct {
	ID          uint       `json:"id"`
	CandidateID uint       `json:"candidate_id"`
	TestID      uint       `json:"test_id"`
	TestTitle   string     `json:"test_title,omitempty"`
	Status      string     `json:"status"`
	Score       float64    `json:"score"`
	AssignedAt  *time.Time `json:"assigned_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// AttemptDetailDTO is the full audit view of one attempt.
type AttemptDetailDTO struct {
	ID          uint                `json:"id"`
	CandidateID uint                `json:"candidate_id"`
	TestID      uint                `json:"test_id"`
	TestTitle   string              `json:"test_title,omitempty"`
	Status      string              `json:"status"`
	Score       float64             `json:"score"`
	AssignedAt  *time.Time          `json:"assigned_at,omitempty"`
	StartedAt   *time.Time          `json:"started_at,omitempty"`
	FinishedAt  *time.Time          `json:"finished_at,omitempty"`
	Answers     []AnswerResponseDTO `json:"answers,omitempty"`
}

// ReminderResponseDTO confirms a reminder event was emitted.
type ReminderResponseDTO struct {
	AttemptID     uint   `json:"attempt_id"`
	CandidateID   uint   `json:"candidate_id"`
	TestTitle     string `json:"test_title"`
	RemainingTime string `json:"remaining_time"`
	Message       string `json:"message"`
}
