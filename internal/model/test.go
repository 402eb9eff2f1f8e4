package model

import (
	"time"

	"gorm.io/gorm"
)

type Test struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	Title           string         `json:"title" gorm:"not null;uniqueIndex"`
	Description     string         `json:"description,omitempty"`
	DurationMinutes int            `json:"duration_minutes" gorm:"not null"`
	MinScore        float64        `json:"min_score" gorm:"not null;default:0"` // passing threshold on the 0-20 scale
	JobPostingID    *uint          `json:"job_posting_id,omitempty" gorm:"index"`
	Questions       []Question     `json:"questions,omitempty" gorm:"foreignKey:TestID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// Duration is the time a candidate has between starting and submitting.
func (t *Test) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}
