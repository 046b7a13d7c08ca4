package dto

import "time"

type AnswerContentDTO struct {
	Text     string `json:"text,omitempty"`
	Selected string `json:"selected,omitempty"`
}

type SubmitStepRequest struct {
	Answer           AnswerContentDTO `json:"answer" binding:"required"`
	TimeSpentSeconds int              `json:"time_spent_seconds"`
}

type SubmissionResponse struct {
	ID               uint             `json:"id"`
	SessionID        uint             `json:"session_id"`
	StepID           uint             `json:"step_id"`
	Answer           AnswerContentDTO `json:"answer"`
	TimeSpentSeconds int              `json:"time_spent_seconds"`
	SubmittedAt      time.Time        `json:"submitted_at"`
	Score            *float64         `json:"score,omitempty"`
	Feedback         string           `json:"feedback,omitempty"`
	ScoringState     string           `json:"scoring_state"`
}

type ReportViolationRequest struct {
	Type string `json:"type" binding:"required"`
}

type IntegrityFlagResponse struct {
	ID         uint      `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
}

type SessionResponse struct {
	ID             uint                    `json:"id"`
	InvitationID   uint                    `json:"invitation_id"`
	SimulationID   uint                    `json:"simulation_id"`
	CandidateID    uint                    `json:"candidate_id"`
	StartedAt      time.Time               `json:"started_at"`
	ExpiresAt      time.Time               `json:"expires_at"`
	CurrentStep    int                     `json:"current_step"`
	Status         string                  `json:"status"`
	Steps          []StepResponse          `json:"steps,omitempty"`
	Submissions    []SubmissionResponse    `json:"submissions,omitempty"`
	IntegrityFlags []IntegrityFlagResponse `json:"integrity_flags,omitempty"`
}
