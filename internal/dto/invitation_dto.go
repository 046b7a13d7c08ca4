package dto

import "time"

type InviteRequest struct {
	Emails []string `json:"emails" binding:"required,min=1"`
}

type InvalidEmail struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// InviteReport lists the invitations created and, separately, every
// address that failed validation. A bad address never fails the batch.
type InviteReport struct {
	Invited []InvitationResponse `json:"invited"`
	Invalid []InvalidEmail       `json:"invalid,omitempty"`
}

type AcceptInvitationRequest struct {
	Token string `json:"token" binding:"required"`
}

type InvitationResponse struct {
	ID           uint      `json:"id"`
	SimulationID uint      `json:"simulation_id"`
	Email        string    `json:"email"`
	Status       string    `json:"status"`
	SentAt       time.Time `json:"sent_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}
