package dto

import "time"

// QuestionCreateDTO is used within TestCreateDTO for admin test creation.
type QuestionCreateDTO struct {
	Prompt        string   `json:"prompt" binding:"required"`
	Options       []string `json:"options" binding:"required,min=2"`
	CorrectAnswer string   `json:"correct_answer" binding:"required"`
	OrderInTest   int      `json:"order_in_test" binding:"required,min=1"`
}

// TestCreateDTO is for admin to create a new test with all its questions.
type TestCreateDTO struct {
	Title           string              `json:"title" binding:"required"`
	Description     string              `json:"description,omitempty"`
	DurationMinutes int                 `json:"duration_minutes" binding:"required,gt=0"`
	MinScore        float64             `json:"min_score" binding:"gte=0,lte=20"`
	JobPostingID    *uint               `json:"job_posting_id"`
	Questions       []QuestionCreateDTO `json:"questions" binding:"required,min=1,dive"`
}

// TestUpdateDTO updates test metadata. Questions are not edited through this
// path; edits never retroactively rescore existing attempts.
type TestUpdateDTO struct {
	Title           string  `json:"title" binding:"required"`
	Description     string  `json:"description,omitempty"`
	DurationMinutes int     `json:"duration_minutes" binding:"required,gt=0"`
	MinScore        float64 `json:"min_score" binding:"gte=0,lte=20"`
	JobPostingID    *uint   `json:"job_posting_id"`
}

// QuestionResponseDTO is the admin view of a question, correct answer included.
type QuestionResponseDTO struct {
	ID            uint     `json:"id"`
	TestID        uint     `json:"test_id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	OrderInTest   int      `json:"order_in_test"`
}

// CandidateQuestionDTO is the candidate view of a question. The correct answer
// is deliberately absent.
type CandidateQuestionDTO struct {
	ID          uint     `json:"id"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	OrderInTest int      `json:"order_in_test"`
}

// TestResponseDTO is the admin view of a full test.
type TestResponseDTO struct {
	ID              uint                  `json:"id"`
	Title           string                `json:"title"`
	Description     string                `json:"description,omitempty"`
	DurationMinutes int                   `json:"duration_minutes"`
	MinScore        float64               `json:"min_score"`
	JobPostingID    *uint                 `json:"job_posting_id,omitempty"`
	Questions       []QuestionResponseDTO `json:"questions,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

// CandidateTestDTO is the test as presented to a candidate taking it.
type CandidateTestDTO struct {
	ID              uint                   `json:"id"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description,omitempty"`
	DurationMinutes int                    `json:"duration_minutes"`
	JobPostingID    *uint                  `json:"job_posting_id,omitempty"`
	Questions       []CandidateQuestionDTO `json:"questions,omitempty"`
}

// TestSummaryDTO is used for listing tests.
type TestSummaryDTO struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	MinScore        float64   `json:"min_score"`
	JobPostingID    *uint     `json:"job_posting_id,omitempty"`
	QuestionCount   int       `json:"question_count"`
	CreatedAt       time.Time `json:"created_at"`
}
