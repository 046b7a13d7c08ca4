package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReviewStatus string

const (
	ReviewPending     ReviewStatus = "PENDING"
	ReviewReviewed    ReviewStatus = "REVIEWED"
	ReviewShortlisted ReviewStatus = "SHORTLISTED"
	ReviewRejected    ReviewStatus = "REJECTED"
)

// ValidReviewStatus reports whether s is a review status an employer may set.
func ValidReviewStatus(s ReviewStatus) bool {
	switch s {
	case ReviewReviewed, ReviewShortlisted, ReviewRejected:
		return true
	}
	return false
}

// StepScore is one entry of a result's per-step breakdown.
type StepScore struct {
	StepID   uint     `json:"step_id"`
	Position int      `json:"position"`
	Weight   float64  `json:"weight"`
	Score    *float64 `json:"score,omitempty"`
	Feedback string   `json:"feedback,omitempty"`
}

// RubricScore is an employer's manual score for one rubric criterion.
type RubricScore struct {
	Criterion string  `json:"criterion"`
	Score     float64 `json:"score"`
}

// Result is the finalized scored outcome of a completed (or abandoned)
// session. Created exactly once per session; only review status, employer
// feedback and manual rubric scores are mutable afterwards.
type Result struct {
	ID               uint                              `gorm:"primarykey" json:"id"`
	SessionID        uint                              `json:"session_id" gorm:"not null;uniqueIndex"`
	SimulationID     uint                              `json:"simulation_id" gorm:"not null;index"`
	Simulation       Simulation                        `json:"simulation,omitempty" gorm:"foreignKey:SimulationID"`
	CandidateID      uint                              `json:"candidate_id" gorm:"not null;index"`
	OverallScore     float64                           `json:"overall_score"`
	Breakdown        datatypes.JSONType[[]StepScore]   `json:"breakdown"`
	FeedbackSummary  string                            `json:"feedback_summary,omitempty" gorm:"type:text"`
	Strengths        datatypes.JSONSlice[string]       `json:"strengths,omitempty"`
	Improvements     datatypes.JSONSlice[string]       `json:"improvements,omitempty"`
	ReviewStatus     ReviewStatus                      `json:"review_status" gorm:"default:'PENDING';index"`
	EmployerFeedback string                            `json:"employer_feedback,omitempty" gorm:"type:text"`
	ManualScores     datatypes.JSONType[[]RubricScore] `json:"manual_scores,omitempty"`
	CreatedAt        time.Time                         `json:"created_at"`
	UpdatedAt        time.Time                         `json:"updated_at"`
	DeletedAt        gorm.DeletedAt                    `gorm:"index" json:"-"`
}
