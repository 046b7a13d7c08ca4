package service

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/henokg/talentsim/internal/apperr"
	"github.com/henokg/talentsim/internal/dto"
	"github.com/henokg/talentsim/internal/model"
	"github.com/henokg/talentsim/internal/notifier"
	"github.com/henokg/talentsim/internal/repository"
	"github.com/rs/zerolog/log"
)

// InvitationService manages per-candidate authorizations to attempt a
// simulation.
type InvitationService interface {
	Invite(employerID, simulationID uint, req dto.InviteRequest) (*dto.InviteReport, error)
	Accept(candidateID uint, token string) (*dto.InvitationResponse, error)
	Resend(employerID, invitationID uint) (*dto.InvitationResponse, error)
	Delete(employerID, invitationID uint) error
	ListBySimulation(employerID, simulationID uint) ([]dto.InvitationResponse, error)
	// ExpireSweep moves every overdue invitation to EXPIRED. Idempotent;
	// safe to run on a timer.
	ExpireSweep(now time.Time) (int64, error)
}

type invitationService struct {
	invitationRepo repository.InvitationRepository
	simulationRepo repository.SimulationRepository
	notifier       notifier.Notifier
	ttl            time.Duration
	clock          Clock
}

func NewInvitationService(
	invitationRepo repository.InvitationRepository,
	simulationRepo repository.SimulationRepository,
	notif notifier.Notifier,
	ttl time.Duration,
) InvitationService {
	return &invitationService{
		invitationRepo: invitationRepo,
		simulationRepo: simulationRepo,
		notifier:       notif,
		ttl:            ttl,
		clock:          SystemClock,
	}
}

func (s *invitationService) Invite(employerID, simulationID uint, req dto.InviteRequest) (*dto.InviteReport, error) {
	sim, err := s.simulationRepo.FindByID(simulationID)
	if err != nil {
		return nil, apperr.NotFound("simulation %d not found", simulationID)
	}
	if sim.EmployerID != employerID {
		return nil, apperr.Forbidden("simulation %d belongs to another employer", simulationID)
	}
	if sim.Status != model.SimulationPublished {
		return nil, apperr.Conflict("simulation %d must be published before inviting candidates", simulationID)
	}

	now := s.clock()
	report := &dto.InviteReport{}
	for _, email := range req.Emails {
		addr, parseErr := mail.ParseAddress(email)
		if parseErr != nil {
			report.Invalid = append(report.Invalid, dto.InvalidEmail{Email: email, Reason: "not a valid email address"})
			continue
		}

		inv := &model.Invitation{
			SimulationID: sim.ID,
			Email:        addr.Address,
			Token:        uuid.NewString(),
			Status:       model.InvitationPending,
			SentAt:       now,
			ExpiresAt:    now.Add(s.ttl),
		}
		if err := s.invitationRepo.Create(inv); err != nil {
			log.Error().Err(err).Str("email", addr.Address).Uint("simulationID", sim.ID).Msg("Failed to create invitation")
			report.Invalid = append(report.Invalid, dto.InvalidEmail{Email: email, Reason: "could not be saved"})
			continue
		}

		s.notifier.Send(inv.Email, notifier.TemplateInvitation, map[string]string{
			"simulation": sim.Title,
			"token":      inv.Token,
			"expires_at": inv.ExpiresAt.Format(time.RFC3339),
		})
		report.Invited = append(report.Invited, toInvitationResponse(inv))
	}

	log.Info().Uint("simulationID", sim.ID).Int("invited", len(report.Invited)).Int("invalid", len(report.Invalid)).Msg("Invitation batch processed")
	return report, nil
}

// Accept resolves the token and binds the candidate. Concurrent accepts on
// the same PENDING invitation race through a conditional update: exactly
// one binding wins, the loser sees a conflict.
func (s *invitationService) Accept(candidateID uint, token string) (*dto.InvitationResponse, error) {
	inv, err := s.invitationRepo.FindByToken(token)
	if err != nil {
		return nil, apperr.NotFound("invitation not found")
	}

	now := s.clock()
	if inv.Expireable(now) {
		if _, err := s.invitationRepo.ExpireSweep(now); err != nil {
			log.Error().Err(err).Uint("invitationID", inv.ID).Msg("Failed to expire overdue invitation")
		}
		return nil, apperr.Expired("invitation expired at %s", inv.ExpiresAt.Format(time.RFC3339))
	}

	switch inv.Status {
	case model.InvitationExpired, model.InvitationCompleted:
		return nil, apperr.Expired("invitation is no longer usable")
	case model.InvitationAccepted:
		if inv.CandidateID != nil && *inv.CandidateID == candidateID {
			return ptrInvitationResponse(inv), nil
		}
		return nil, apperr.Conflict("invitation already accepted by another candidate")
	}

	rows, err := s.invitationRepo.AcceptIf(inv.ID, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to accept invitation %d: %w", inv.ID, err)
	}
	if rows == 0 {
		// Lost the race: someone else moved it out of PENDING first.
		current, findErr := s.invitationRepo.FindByID(inv.ID)
		if findErr == nil && current.Status == model.InvitationAccepted && current.CandidateID != nil && *current.CandidateID == candidateID {
			return ptrInvitationResponse(current), nil
		}
		return nil, apperr.Conflict("invitation already accepted by another candidate")
	}

	inv.Status = model.InvitationAccepted
	inv.CandidateID = &candidateID
	log.Info().Uint("invitationID", inv.ID).Uint("candidateID", candidateID).Msg("Invitation accepted")
	return ptrInvitationResponse(inv), nil
}

func (s *invitationService) Resend(employerID, invitationID uint) (*dto.InvitationResponse, error) {
	inv, err := s.findOwned(employerID, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.Status != model.InvitationPending {
		return nil, apperr.Conflict("only pending invitations can be resent")
	}

	now := s.clock()
	inv.SentAt = now
	inv.ExpiresAt = now.Add(s.ttl)
	if err := s.invitationRepo.Update(inv); err != nil {
		return nil, fmt.Errorf("failed to resend invitation %d: %w", invitationID, err)
	}

	s.notifier.Send(inv.Email, notifier.TemplateInvitationResend, map[string]string{
		"simulation": inv.Simulation.Title,
		"token":      inv.Token,
		"expires_at": inv.ExpiresAt.Format(time.RFC3339),
	})
	log.Info().Uint("invitationID", invitationID).Msg("Invitation resent")
	return ptrInvitationResponse(inv), nil
}

func (s *invitationService) Delete(employerID, invitationID uint) error {
	if _, err := s.findOwned(employerID, invitationID); err != nil {
		return err
	}

	rows, err := s.invitationRepo.DeleteIfPending(invitationID)
	if err != nil {
		return fmt.Errorf("failed to delete invitation %d: %w", invitationID, err)
	}
	if rows == 0 {
		return apperr.Conflict("only pending invitations can be deleted")
	}
	return nil
}

func (s *invitationService) ListBySimulation(employerID, simulationID uint) ([]dto.InvitationResponse, error) {
	sim, err := s.simulationRepo.FindByID(simulationID)
	if err != nil {
		return nil, apperr.NotFound("simulation %d not found", simulationID)
	}
	if sim.EmployerID != employerID {
		return nil, apperr.Forbidden("simulation %d belongs to another employer", simulationID)
	}

	invs, err := s.invitationRepo.FindAllBySimulation(simulationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	responses := make([]dto.InvitationResponse, 0, len(invs))
	for i := range invs {
		responses = append(responses, toInvitationResponse(&invs[i]))
	}
	return responses, nil
}

func (s *invitationService) ExpireSweep(now time.Time) (int64, error) {
	rows, err := s.invitationRepo.ExpireSweep(now)
	if err != nil {
		return 0, fmt.Errorf("invitation expiry sweep failed: %w", err)
	}
	if rows > 0 {
		log.Info().Int64("expired", rows).Msg("Invitation expiry sweep")
	}
	return rows, nil
}

func (s *invitationService) findOwned(employerID, invitationID uint) (*model.Invitation, error) {
	inv, err := s.invitationRepo.FindByID(invitationID)
	if err != nil {
		return nil, apperr.NotFound("invitation %d not found", invitationID)
	}
	if inv.Simulation.EmployerID != employerID {
		return nil, apperr.Forbidden("invitation %d belongs to another employer", invitationID)
	}
	return inv, nil
}

func ptrInvitationResponse(inv *model.Invitation) *dto.InvitationResponse {
	resp := toInvitationResponse(inv)
	return &resp
}
