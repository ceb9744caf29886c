package models

import (
	"time"

	"gorm.io/datatypes"
)

// Questionnaire result delivery statuses.
const (
	QuestionnaireStatusPending = "pending"
	QuestionnaireStatusSent    = "sent"
	QuestionnaireStatusFailed  = "failed"
)

// QuestionnaireResult persists a scored questionnaire and its delivery state.
type QuestionnaireResult struct {
	ID            uint                               `gorm:"primaryKey" json:"id"`
	ReferenceID   string                             `gorm:"size:64;uniqueIndex" json:"reference_id"`
	Name          string                             `gorm:"size:128;not null" json:"name"`
	Email         string                             `gorm:"size:160;not null;index" json:"email"`
	Phone         string                             `gorm:"size:32" json:"phone"`
	Answers       datatypes.JSONType[map[int]string] `gorm:"type:json" json:"answers"`
	Positive      datatypes.JSONType[map[int]bool]   `gorm:"type:json" json:"positive"`
	AnsweredCount int                                `gorm:"not null" json:"answered_count"`
	ScorePercent  int                                `gorm:"not null;index" json:"score_percent"`
	GradeLetter   string                             `gorm:"size:2;not null;index" json:"grade_letter"`
	GradeLabel    string                             `gorm:"size:64;not null" json:"grade_label"`
	Status        string                             `gorm:"size:32;not null;index" json:"status"`
	FailureReason string                             `gorm:"type:text" json:"failure_reason,omitempty"`
	Attempts      int                                `gorm:"not null;default:0" json:"attempts"`
	Checksum      string                             `gorm:"size:128;index" json:"-"`
	DeliveredAt   *time.Time                         `json:"delivered_at"`
	CreatedAt     time.Time                          `json:"created_at"`
	UpdatedAt     time.Time                          `json:"updated_at"`

	// OperatorNotifiedAt is set once the operator report went out, even if the respondent copy failed.
	OperatorNotifiedAt *time.Time `json:"operator_notified_at,omitempty"`
}
