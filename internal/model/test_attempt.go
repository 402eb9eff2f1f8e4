package model

import (
	"time"

	"gorm.io/gorm"
)

// Attempt lifecycle states. Assigned and in_progress are the only states a
// write may leave; passed, failed and expired are sinks.
const (
	StatusAssigned   = "assigned"
	StatusInProgress = "in_progress"
	StatusPassed     = "passed"
	StatusFailed     = "failed"
	StatusExpired    = "expired"
)

// RunningStatuses are the non-terminal states. Conditional updates guard on
// this list so a terminal row is never written twice.
func RunningStatuses() []string {
	return []string{StatusAssigned, StatusInProgress}
}

func IsTerminalStatus(status string) bool {
	switch status {
	case StatusPassed, StatusFailed, StatusExpired:
		return true
	}
	return false
}

// TestAttempt is the ledger of one candidate's single pass through one test.
// At most one row exists per (candidate, test) pair, enforced by the composite
// unique index.
type TestAttempt struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	CandidateID uint            `json:"candidate_id" gorm:"not null;uniqueIndex:idx_candidate_test"`
	TestID      uint            `json:"test_id" gorm:"not null;uniqueIndex:idx_candidate_test"`
	Test        Test            `json:"test,omitempty" gorm:"foreignKey:TestID"`
	Status      string          `json:"status" gorm:"not null;default:'assigned';index"`
	Score       float64         `json:"score"` // 0-20, meaningful only once terminal
	Answers     []AttemptAnswer `json:"answers,omitempty" gorm:"foreignKey:TestAttemptID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	AssignedAt  *time.Time      `json:"assigned_at,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (a *TestAttempt) IsTerminal() bool {
	return IsTerminalStatus(a.Status)
}

// Deadline is the instant after which a submission is forced to expired.
// Nil until the attempt has been started.
func (a *TestAttempt) Deadline(test *Test) *time.Time {
	if a.StartedAt == nil {
		return nil
	}
	d := a.StartedAt.Add(test.Duration())
	return &d
}
