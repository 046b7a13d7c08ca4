package dto

import "time"

type StepScoreDTO struct {
	StepID   uint     `json:"step_id"`
	Position int      `json:"position"`
	Weight   float64  `json:"weight"`
	Score    *float64 `json:"score,omitempty"`
	Feedback string   `json:"feedback,omitempty"`
}

type RubricScoreDTO struct {
	Criterion string  `json:"criterion" binding:"required"`
	Score     float64 `json:"score"`
}

type ResultResponse struct {
	ID               uint             `json:"id"`
	SessionID        uint             `json:"session_id"`
	SimulationID     uint             `json:"simulation_id"`
	CandidateID      uint             `json:"candidate_id"`
	OverallScore     float64          `json:"overall_score"`
	Breakdown        []StepScoreDTO   `json:"breakdown"`
	FeedbackSummary  string           `json:"feedback_summary,omitempty"`
	Strengths        []string         `json:"strengths,omitempty"`
	Improvements     []string         `json:"improvements,omitempty"`
	ReviewStatus     string           `json:"review_status"`
	EmployerFeedback string           `json:"employer_feedback,omitempty"`
	ManualScores     []RubricScoreDTO `json:"manual_scores,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

type ReviewStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type EmployerFeedbackRequest struct {
	Feedback     string           `json:"feedback" binding:"required"`
	ManualScores []RubricScoreDTO `json:"manual_scores,omitempty" binding:"omitempty,dive"`
}
