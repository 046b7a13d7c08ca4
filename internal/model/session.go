package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "ACTIVE"
	SessionCompleted SessionStatus = "COMPLETED"
	SessionAbandoned SessionStatus = "ABANDONED"
)

// AssessmentSession is one candidate's live, time-boxed attempt at a
// Simulation. ExpiresAt is fixed at start time and never changes. No
// transition leaves COMPLETED or ABANDONED.
type AssessmentSession struct {
	ID             uint             `gorm:"primarykey" json:"id"`
	InvitationID   uint             `json:"invitation_id" gorm:"not null;index"`
	SimulationID   uint             `json:"simulation_id" gorm:"not null;index"`
	Simulation     Simulation       `json:"simulation,omitempty" gorm:"foreignKey:SimulationID"`
	CandidateID    uint             `json:"candidate_id" gorm:"not null;index"`
	StartedAt      time.Time        `json:"started_at" gorm:"not null"`
	ExpiresAt      time.Time        `json:"expires_at" gorm:"not null"`
	CurrentStep    int              `json:"current_step"`
	Status         SessionStatus    `json:"status" gorm:"default:'ACTIVE';index"`
	Submissions    []StepSubmission `json:"submissions,omitempty" gorm:"foreignKey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	IntegrityFlags []IntegrityFlag  `json:"integrity_flags,omitempty" gorm:"foreignKey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	DeletedAt      gorm.DeletedAt   `gorm:"index" json:"-"`
}

// Expired reports whether the wall-clock deadline has passed. Status is
// compared at read time; there is no active timer.
func (s *AssessmentSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

type ScoringState string

const (
	ScoringPending ScoringState = "PENDING"
	ScoringScored  ScoringState = "SCORED"
	ScoringFailed  ScoringState = "FAILED"
)

// AnswerContent is the candidate's answer payload. Text carries free-form
// answers (free text, code review, document analysis, chat transcripts),
// Selected carries the multiple-choice option.
type AnswerContent struct {
	Text     string `json:"text,omitempty"`
	Selected string `json:"selected,omitempty"`
}

// StepSubmission is one candidate answer to one Step within a session.
// The unique index on (session_id, step_id) serializes concurrent submits;
// resubmission overwrites only while the session is ACTIVE and the step has
// not been scored. Attempt counts how many times the answer was recorded:
// every overwrite bumps it, and an async score only attaches to the attempt
// it was dispatched for.
type StepSubmission struct {
	ID               uint                              `gorm:"primarykey" json:"id"`
	SessionID        uint                              `json:"session_id" gorm:"not null;uniqueIndex:idx_submission_session_step"`
	StepID           uint                              `json:"step_id" gorm:"not null;uniqueIndex:idx_submission_session_step"`
	Step             Step                              `json:"step,omitempty" gorm:"foreignKey:StepID"`
	Answer           datatypes.JSONType[AnswerContent] `json:"answer"`
	TimeSpentSeconds int                               `json:"time_spent_seconds"`
	SubmittedAt      time.Time                         `json:"submitted_at"`
	Attempt          uint                              `json:"attempt" gorm:"not null;default:1"`
	Score            *float64                          `json:"score,omitempty"`
	Feedback         string                            `json:"feedback,omitempty" gorm:"type:text"`
	ScoringState     ScoringState                      `json:"scoring_state" gorm:"default:'PENDING'"`
	CreatedAt        time.Time                         `json:"created_at"`
	UpdatedAt        time.Time                         `json:"updated_at"`
}

type IntegrityFlagType string

const (
	FlagTabSwitch      IntegrityFlagType = "TAB_SWITCH"
	FlagCopyPaste      IntegrityFlagType = "COPY_PASTE"
	FlagUnexpectedExit IntegrityFlagType = "UNEXPECTED_EXIT"
)

// ValidIntegrityFlagType reports whether t is a known violation type.
func ValidIntegrityFlagType(t IntegrityFlagType) bool {
	switch t {
	case FlagTabSwitch, FlagCopyPaste, FlagUnexpectedExit:
		return true
	}
	return false
}

// IntegrityFlag is an append-only record of suspicious behavior during a
// session. Flags are advisory; they never block the attempt.
type IntegrityFlag struct {
	ID         uint              `gorm:"primarykey" json:"id"`
	SessionID  uint              `json:"session_id" gorm:"not null;index"`
	Type       IntegrityFlagType `json:"type" gorm:"not null"`
	OccurredAt time.Time         `json:"occurred_at"`
	CreatedAt  time.Time         `json:"created_at"`
}
