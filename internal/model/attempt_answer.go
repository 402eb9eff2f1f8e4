package model

import (
	"time"

	"gorm.io/gorm"
)

// AttemptAnswer records the value a candidate submitted for one question.
// Answers are keyed by question id rather than position, so reordering a
// test's questions can never shift which answer counts against which question.
type AttemptAnswer struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	TestAttemptID uint           `json:"test_attempt_id" gorm:"not null;index"`
	QuestionID    uint           `json:"question_id" gorm:"not null;index"`
	Value         string         `json:"value" gorm:"type:text"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}
