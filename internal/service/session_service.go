package service

import (
	"context"
	"fmt"
	"time"

	"github.com/henokg/talentsim/internal/apperr"
	"github.com/henokg/talentsim/internal/dto"
	"github.com/henokg/talentsim/internal/llm"
	"github.com/henokg/talentsim/internal/model"
	"github.com/henokg/talentsim/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SessionService drives a candidate through a live attempt. Sessions move
// ACTIVE→COMPLETED or ACTIVE→ABANDONED and never leave a terminal state.
// Expiry is a wall-clock deadline checked lazily on every read: the first
// read past the deadline transitions the session to ABANDONED.
type SessionService interface {
	Start(candidateID, invitationID uint) (*dto.SessionResponse, error)
	Get(candidateID, sessionID uint) (*dto.SessionResponse, error)
	SubmitStep(candidateID, sessionID, stepID uint, req dto.SubmitStepRequest) (*dto.SubmissionResponse, error)
	ReportViolation(candidateID, sessionID uint, req dto.ReportViolationRequest) error
	Complete(candidateID, sessionID uint) (*dto.ResultResponse, error)
	// ExpireSweep reaps every overdue ACTIVE session, aggregating whatever
	// was answered. Idempotent; safe to run on a timer.
	ExpireSweep(now time.Time) (int, error)
}

type sessionService struct {
	sessionRepo    repository.SessionRepository
	submissionRepo repository.SubmissionRepository
	invitationRepo repository.InvitationRepository
	simulationRepo repository.SimulationRepository
	scoring        ScoringService
	gateway        llm.Gateway
	db             *gorm.DB
	clock          Clock
	// syncScoring makes AI dispatch run inline instead of in a goroutine.
	// Only tests set it.
	syncScoring bool
}

func NewSessionService(
	sessionRepo repository.SessionRepository,
	submissionRepo repository.SubmissionRepository,
	invitationRepo repository.InvitationRepository,
	simulationRepo repository.SimulationRepository,
	scoring ScoringService,
	gateway llm.Gateway,
	db *gorm.DB,
) SessionService {
	return &sessionService{
		sessionRepo:    sessionRepo,
		submissionRepo: submissionRepo,
		invitationRepo: invitationRepo,
		simulationRepo: simulationRepo,
		scoring:        scoring,
		gateway:        gateway,
		db:             db,
		clock:          SystemClock,
	}
}

func (s *sessionService) Start(candidateID, invitationID uint) (*dto.SessionResponse, error) {
	inv, err := s.invitationRepo.FindByID(invitationID)
	if err != nil {
		return nil, apperr.NotFound("invitation %d not found", invitationID)
	}

	now := s.clock()
	if inv.Expireable(now) {
		if _, err := s.invitationRepo.ExpireSweep(now); err != nil {
			log.Error().Err(err).Uint("invitationID", invitationID).Msg("Failed to expire overdue invitation")
		}
		return nil, apperr.Expired("invitation expired at %s", inv.ExpiresAt.Format(time.RFC3339))
	}
	if inv.Status != model.InvitationAccepted {
		return nil, apperr.Conflict("invitation %d is %s, expected ACCEPTED", invitationID, inv.Status)
	}
	if inv.CandidateID == nil || *inv.CandidateID != candidateID {
		return nil, apperr.Forbidden("invitation %d is bound to another candidate", invitationID)
	}

	sim, err := s.simulationRepo.FindByIDWithSteps(inv.SimulationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load simulation %d: %w", inv.SimulationID, err)
	}

	prior, err := s.sessionRepo.FindAllByInvitation(invitationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions for invitation %d: %w", invitationID, err)
	}
	terminal := 0
	for i := range prior {
		existing := &prior[i]
		if existing.Status == model.SessionActive && existing.Expired(now) {
			s.reap(existing.ID)
			terminal++
			continue
		}
		if existing.Status == model.SessionActive {
			return nil, apperr.Conflict("an active session already exists for invitation %d", invitationID)
		}
		terminal++
	}
	if terminal > 0 {
		// allowRetake grants exactly one extra attempt after a terminal
		// first one; without it a second start is rejected outright.
		if !sim.AllowRetake {
			return nil, apperr.Conflict("invitation %d has already been attempted", invitationID)
		}
		if terminal >= 2 {
			return nil, apperr.Conflict("invitation %d has used its retake", invitationID)
		}
	}

	session := &model.AssessmentSession{
		InvitationID: invitationID,
		SimulationID: sim.ID,
		CandidateID:  candidateID,
		StartedAt:    now,
		ExpiresAt:    now.Add(time.Duration(sim.DurationMinutes) * time.Minute),
		Status:       model.SessionActive,
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, fmt.Errorf("failed to create session for invitation %d: %w", invitationID, err)
	}

	session.Simulation = *sim
	log.Info().Uint("sessionID", session.ID).Uint("invitationID", invitationID).Time("expiresAt", session.ExpiresAt).Msg("Assessment session started")
	return toSessionResponse(session), nil
}

// loadOwned fetches the session with details, enforces candidate ownership
// and lazily reaps an expired ACTIVE session before returning it.
func (s *sessionService) loadOwned(candidateID, sessionID uint) (*model.AssessmentSession, error) {
	session, err := s.sessionRepo.FindByIDWithDetails(sessionID)
	if err != nil {
		return nil, apperr.NotFound("session %d not found", sessionID)
	}
	if session.CandidateID != candidateID {
		return nil, apperr.Forbidden("session %d belongs to another candidate", sessionID)
	}

	if session.Status == model.SessionActive && session.Expired(s.clock()) {
		s.reap(session.ID)
		session.Status = model.SessionAbandoned
	}
	return session, nil
}

// reap transitions an overdue ACTIVE session to ABANDONED and aggregates
// whatever was answered into a Result. The conditional update makes
// concurrent reaps settle on a single winner.
func (s *sessionService) reap(sessionID uint) {
	rows, err := s.sessionRepo.MarkAbandonedIf(sessionID)
	if err != nil {
		log.Error().Err(err).Uint("sessionID", sessionID).Msg("Failed to abandon expired session")
		return
	}
	if rows == 0 {
		return
	}
	log.Info().Uint("sessionID", sessionID).Msg("Expired session abandoned")
	if _, err := s.scoring.Aggregate(sessionID); err != nil {
		log.Error().Err(err).Uint("sessionID", sessionID).Msg("Failed to aggregate abandoned session")
	}
}

func (s *sessionService) ExpireSweep(now time.Time) (int, error) {
	ids, err := s.sessionRepo.FindExpiredActiveIDs(now)
	if err != nil {
		return 0, fmt.Errorf("session expiry sweep failed: %w", err)
	}
	for _, id := range ids {
		s.reap(id)
	}
	if len(ids) > 0 {
		log.Info().Int("abandoned", len(ids)).Msg("Session expiry sweep")
	}
	return len(ids), nil
}

func (s *sessionService) Get(candidateID, sessionID uint) (*dto.SessionResponse, error) {
	session, err := s.loadOwned(candidateID, sessionID)
	if err != nil {
		return nil, err
	}
	return toSessionResponse(session), nil
}

func (s *sessionService) SubmitStep(candidateID, sessionID, stepID uint, req dto.SubmitStepRequest) (*dto.SubmissionResponse, error) {
	session, err := s.loadOwned(candidateID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == model.SessionAbandoned {
		return nil, apperr.Expired("session %d expired at %s", sessionID, session.ExpiresAt.Format(time.RFC3339))
	}
	if session.Status != model.SessionActive {
		return nil, apperr.Conflict("session %d is %s; no further submissions", sessionID, session.Status)
	}

	var step *model.Step
	for i := range session.Simulation.Steps {
		if session.Simulation.Steps[i].ID == stepID {
			step = &session.Simulation.Steps[i]
			break
		}
	}
	if step == nil {
		return nil, apperr.NotFound("step %d does not belong to session %d", stepID, sessionID)
	}

	existing, err := s.submissionRepo.FindBySessionAndStep(sessionID, stepID)
	if err != nil {
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}
	if existing != nil && existing.ScoringState == model.ScoringScored {
		return nil, apperr.Conflict("step %d has already been scored", stepID)
	}

	submission := &model.StepSubmission{
		SessionID:        sessionID,
		StepID:           stepID,
		Answer:           datatypes.NewJSONType(model.AnswerContent{Text: req.Answer.Text, Selected: req.Answer.Selected}),
		TimeSpentSeconds: req.TimeSpentSeconds,
		SubmittedAt:      s.clock(),
		Attempt:          1,
		ScoringState:     model.ScoringPending,
	}

	// Multiple choice scores deterministically at submit time; everything
	// else stays PENDING and goes to the AI gateway.
	if step.Type == model.StepMultipleChoice {
		score := 0.0
		if step.CorrectAnswer != nil && req.Answer.Selected == *step.CorrectAnswer {
			score = 100.0
		}
		submission.Score = &score
		submission.ScoringState = model.ScoringScored
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		rows, err := s.submissionRepo.Upsert(submission)
		if err != nil {
			return err
		}
		if rows == 0 {
			// A score attached between the check above and the write.
			return apperr.Conflict("step %d has already been scored", stepID)
		}
		return s.sessionRepo.UpdateCurrentStep(sessionID, step.Position)
	})
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		log.Error().Err(err).Uint("sessionID", sessionID).Uint("stepID", stepID).Msg("Failed to persist submission")
		return nil, fmt.Errorf("failed to persist submission: %w", err)
	}

	// The upsert may have updated an existing row; reload to get its id and
	// current attempt counter.
	persisted, err := s.submissionRepo.FindBySessionAndStep(sessionID, stepID)
	if err != nil || persisted == nil {
		return nil, fmt.Errorf("failed to reload submission: %w", err)
	}

	if submission.ScoringState == model.ScoringPending {
		s.dispatchScoring(persisted.ID, persisted.Attempt, step, submission.Answer.Data())
	}

	return ptrSubmissionResponse(persisted), nil
}

// dispatchScoring sends the answer to the AI gateway without blocking the
// submit response. The attach is keyed to the attempt the answer was
// recorded under, so an evaluation still in flight when the candidate
// resubmits can never grade the newer answer; a failed attempt marks the
// submission FAILED and is not retried automatically.
func (s *sessionService) dispatchScoring(submissionID, attempt uint, step *model.Step, answer model.AnswerContent) {
	score := func() {
		payload := llm.Payload{
			StepType: string(step.Type),
			Prompt:   step.Prompt,
			Answer:   answer.Text,
		}
		if step.Type == model.StepChatPersona {
			payload.Transcript = answer.Text
		}

		evaluation, err := s.gateway.Evaluate(context.Background(), llm.KindSubmissionEvaluation, payload)
		if err != nil {
			// The candidate's answer is already persisted; scoring failure
			// must never undo that.
			log.Error().Err(err).Uint("submissionID", submissionID).Msg("AI scoring failed; submission kept unscored")
			if _, markErr := s.submissionRepo.AttachScoreIf(submissionID, attempt, nil, "", model.ScoringFailed); markErr != nil {
				log.Error().Err(markErr).Uint("submissionID", submissionID).Msg("Failed to mark submission scoring as failed")
			}
			return
		}

		rows, err := s.submissionRepo.AttachScoreIf(submissionID, attempt, &evaluation.Score, evaluation.Feedback, model.ScoringScored)
		if err != nil {
			log.Error().Err(err).Uint("submissionID", submissionID).Msg("Failed to attach AI score")
			return
		}
		if rows == 0 {
			log.Warn().Uint("submissionID", submissionID).Uint("attempt", attempt).Msg("AI score discarded; attempt superseded or no longer pending")
			return
		}
		log.Info().Uint("submissionID", submissionID).Float64("score", evaluation.Score).Msg("Submission scored")
	}

	if s.syncScoring {
		score()
		return
	}
	go score()
}

func (s *sessionService) ReportViolation(candidateID, sessionID uint, req dto.ReportViolationRequest) error {
	flagType := model.IntegrityFlagType(req.Type)
	if !model.ValidIntegrityFlagType(flagType) {
		return apperr.Validation("integrity violation is invalid", fmt.Sprintf("unknown violation type %q", req.Type))
	}

	session, err := s.loadOwned(candidateID, sessionID)
	if err != nil {
		return err
	}
	if session.Status != model.SessionActive {
		return apperr.Conflict("session %d is %s; violations are only recorded while active", sessionID, session.Status)
	}

	flag := &model.IntegrityFlag{
		SessionID:  sessionID,
		Type:       flagType,
		OccurredAt: s.clock(),
	}
	if err := s.sessionRepo.AppendFlag(flag); err != nil {
		return fmt.Errorf("failed to record integrity violation: %w", err)
	}
	// Violations are advisory: log and move on, the attempt continues.
	log.Warn().Uint("sessionID", sessionID).Str("type", req.Type).Msg("Integrity violation recorded")
	return nil
}

func (s *sessionService) Complete(candidateID, sessionID uint) (*dto.ResultResponse, error) {
	session, err := s.loadOwned(candidateID, sessionID)
	if err != nil {
		return nil, err
	}

	switch session.Status {
	case model.SessionCompleted:
		// Candidates double-click "finish"; the second call returns the
		// same Result instead of erroring.
		result, err := s.scoring.Aggregate(sessionID)
		if err != nil {
			return nil, err
		}
		return toResultResponse(result), nil
	case model.SessionAbandoned:
		return nil, apperr.Expired("session %d expired at %s", sessionID, session.ExpiresAt.Format(time.RFC3339))
	}

	if violations := s.outstandingSteps(session); len(violations) > 0 {
		return nil, apperr.Validation("session has unanswered required steps", violations...)
	}

	rows, err := s.sessionRepo.MarkCompletedIf(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to complete session %d: %w", sessionID, err)
	}
	if rows == 0 {
		// Lost a race against a concurrent complete or reap; re-read and
		// fall back to the idempotent path.
		current, findErr := s.sessionRepo.FindByID(sessionID)
		if findErr == nil && current.Status == model.SessionCompleted {
			result, aggErr := s.scoring.Aggregate(sessionID)
			if aggErr != nil {
				return nil, aggErr
			}
			return toResultResponse(result), nil
		}
		return nil, apperr.Conflict("session %d could not be completed", sessionID)
	}

	if _, err := s.invitationRepo.MarkCompletedIf(session.InvitationID); err != nil {
		log.Error().Err(err).Uint("invitationID", session.InvitationID).Msg("Failed to mark invitation completed")
	}

	result, err := s.scoring.Aggregate(sessionID)
	if err != nil {
		return nil, err
	}
	log.Info().Uint("sessionID", sessionID).Msg("Assessment session completed")
	return toResultResponse(result), nil
}

// outstandingSteps lists unanswered steps that still block completion. A
// step with its own time budget stops being required once that budget has
// elapsed since the session started; steps without a budget are always
// required.
func (s *sessionService) outstandingSteps(session *model.AssessmentSession) []string {
	answered := make(map[uint]bool, len(session.Submissions))
	for _, sub := range session.Submissions {
		answered[sub.StepID] = true
	}

	now := s.clock()
	var outstanding []string
	for _, step := range session.Simulation.Steps {
		if answered[step.ID] {
			continue
		}
		if step.TimeLimitMinutes > 0 {
			budgetEnd := session.StartedAt.Add(time.Duration(step.TimeLimitMinutes) * time.Minute)
			if now.After(budgetEnd) {
				continue
			}
		}
		outstanding = append(outstanding, fmt.Sprintf("step %d is unanswered", step.Position))
	}
	return outstanding
}

func ptrSubmissionResponse(sub *model.StepSubmission) *dto.SubmissionResponse {
	resp := toSubmissionResponse(sub)
	return &resp
}
