package models

import (
	"time"

	"gorm.io/gorm"
)

type Survey struct {
	gorm.Model
	Title       string             `gorm:"index"`
	IsActive    bool               `gorm:"default:true"`
	Questions   []SurveyQuestion   `gorm:"constraint:OnDelete:CASCADE"`
	Submissions []SurveySubmission `gorm:"constraint:OnDelete:CASCADE"`
}

type SurveyQuestion struct {
	gorm.Model
	SurveyID     uint
	QuestionText string
	Order        int
}

type SurveySubmission struct {
	gorm.Model
	SurveyID     uint
	IPAddress    string
	Device       string
	Browser      string
	OS           string
	Location     string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	OverallScore float64 `gorm:"default:0"`
	// Path to the full session recording in the media store.
	VideoPath string
	Responses []QuestionResponse `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE"`
}

type QuestionResponse struct {
	gorm.Model
	SubmissionID uint    `gorm:"index:idx_submission_question,unique"`
	QuestionID   uint    `gorm:"index:idx_submission_question,unique"`
	Answer       bool
	FaceDetected bool    `gorm:"default:true"`
	FaceScore    float64
	// Path to the face snapshot in the media store.
	SnapshotPath string
}
