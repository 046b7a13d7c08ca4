package model

import (
	"time"

	"gorm.io/gorm"
)

type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "PENDING"
	InvitationAccepted  InvitationStatus = "ACCEPTED"
	InvitationCompleted InvitationStatus = "COMPLETED"
	InvitationExpired   InvitationStatus = "EXPIRED"
)

// Invitation authorizes one candidate e-mail to attempt one Simulation.
// Legal transitions: PENDING→ACCEPTED→COMPLETED, and PENDING/ACCEPTED→EXPIRED
// once ExpiresAt elapses. Nothing leaves COMPLETED or EXPIRED.
//
// There is no separate "in progress" status: an invitation is in progress
// when it is ACCEPTED and an AssessmentSession exists for it. That derived
// rule lives here so call sites do not re-invent it.
type Invitation struct {
	ID           uint             `gorm:"primarykey" json:"id"`
	SimulationID uint             `json:"simulation_id" gorm:"not null;index"`
	Simulation   Simulation       `json:"simulation,omitempty" gorm:"foreignKey:SimulationID"`
	Email        string           `json:"email" gorm:"not null;index"`
	Token        string           `json:"-" gorm:"not null;uniqueIndex"`
	CandidateID  *uint            `json:"candidate_id,omitempty" gorm:"index"`
	Status       InvitationStatus `json:"status" gorm:"default:'PENDING';index"`
	SentAt       time.Time        `json:"sent_at"`
	ExpiresAt    time.Time        `json:"expires_at" gorm:"not null"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	DeletedAt    gorm.DeletedAt   `gorm:"index" json:"-"`
}

// Expireable reports whether the invitation would move to EXPIRED at now.
func (i *Invitation) Expireable(now time.Time) bool {
	return (i.Status == InvitationPending || i.Status == InvitationAccepted) && i.ExpiresAt.Before(now)
}
