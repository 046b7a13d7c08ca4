package service

import (
	"fmt"
	"strings"

	"github.com/henokg/talentsim/internal/apperr"
	"github.com/henokg/talentsim/internal/dto"
	"github.com/henokg/talentsim/internal/model"
	"github.com/henokg/talentsim/internal/notifier"
	"github.com/henokg/talentsim/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	strengthScoreFloor   = 75.0
	improvementScoreCeil = 50.0
)

// ScoringService aggregates per-step scores into a Result and handles the
// employer review workflow on top of it.
type ScoringService interface {
	// Aggregate produces the Result for a terminal session. Idempotent:
	// a second call returns the persisted Result unchanged.
	Aggregate(sessionID uint) (*model.Result, error)
	GetSessionResult(candidateID, sessionID uint) (*dto.ResultResponse, error)
	ListBySimulation(employerID, simulationID uint, status *model.ReviewStatus) ([]dto.ResultResponse, error)
	SetReviewStatus(employerID, resultID uint, status model.ReviewStatus) (*dto.ResultResponse, error)
	AttachEmployerFeedback(employerID, resultID uint, req dto.EmployerFeedbackRequest) (*dto.ResultResponse, error)
}

type scoringService struct {
	resultRepo     repository.ResultRepository
	sessionRepo    repository.SessionRepository
	submissionRepo repository.SubmissionRepository
	invitationRepo repository.InvitationRepository
	notifier       notifier.Notifier
	db             *gorm.DB
	clock          Clock
}

func NewScoringService(
	resultRepo repository.ResultRepository,
	sessionRepo repository.SessionRepository,
	submissionRepo repository.SubmissionRepository,
	invitationRepo repository.InvitationRepository,
	notif notifier.Notifier,
	db *gorm.DB,
) ScoringService {
	return &scoringService{
		resultRepo:     resultRepo,
		sessionRepo:    sessionRepo,
		submissionRepo: submissionRepo,
		invitationRepo: invitationRepo,
		notifier:       notif,
		db:             db,
		clock:          SystemClock,
	}
}

func (s *scoringService) Aggregate(sessionID uint) (*model.Result, error) {
	if existing, err := s.resultRepo.FindBySessionID(sessionID); err != nil {
		return nil, fmt.Errorf("failed to look up result for session %d: %w", sessionID, err)
	} else if existing != nil {
		return existing, nil
	}

	session, err := s.sessionRepo.FindByIDWithDetails(sessionID)
	if err != nil {
		return nil, apperr.NotFound("session %d not found", sessionID)
	}
	if session.Status == model.SessionActive {
		return nil, apperr.Conflict("session %d is still active", sessionID)
	}

	submissionsByStep := make(map[uint]*model.StepSubmission, len(session.Submissions))
	for i := range session.Submissions {
		submissionsByStep[session.Submissions[i].StepID] = &session.Submissions[i]
	}

	// Overall score is the weight-normalized average over steps that were
	// actually answered and scored, so a partial attempt still yields a
	// meaningful 0-100 score instead of being dragged down by blanks.
	var breakdown []model.StepScore
	var feedbackParts []string
	var strengths, improvements []string
	weightedSum, scoredWeight := 0.0, 0.0

	for i := range session.Simulation.Steps {
		step := &session.Simulation.Steps[i]
		entry := model.StepScore{StepID: step.ID, Position: step.Position, Weight: step.Weight}

		if sub, ok := submissionsByStep[step.ID]; ok {
			entry.Score = sub.Score
			entry.Feedback = sub.Feedback
			if sub.Score != nil {
				weightedSum += *sub.Score * step.Weight
				scoredWeight += step.Weight
				if *sub.Score >= strengthScoreFloor {
					strengths = append(strengths, fmt.Sprintf("Strong performance on step %d (%.0f/100)", step.Position, *sub.Score))
				} else if *sub.Score < improvementScoreCeil {
					improvements = append(improvements, fmt.Sprintf("Step %d needs work (%.0f/100)", step.Position, *sub.Score))
				}
			}
			if sub.Feedback != "" {
				feedbackParts = append(feedbackParts, fmt.Sprintf("Step %d: %s", step.Position, sub.Feedback))
			}
		} else {
			improvements = append(improvements, fmt.Sprintf("Step %d was not answered", step.Position))
		}
		breakdown = append(breakdown, entry)
	}

	overall := 0.0
	if scoredWeight > 0 {
		overall = weightedSum / scoredWeight
	}

	result := &model.Result{
		SessionID:       session.ID,
		SimulationID:    session.SimulationID,
		CandidateID:     session.CandidateID,
		OverallScore:    overall,
		Breakdown:       datatypes.NewJSONType(breakdown),
		FeedbackSummary: strings.Join(feedbackParts, "\n\n"),
		Strengths:       datatypes.JSONSlice[string](strengths),
		Improvements:    datatypes.JSONSlice[string](improvements),
		ReviewStatus:    model.ReviewPending,
	}

	if err := s.resultRepo.Create(result); err != nil {
		// The unique index on session_id makes creation race-safe: if a
		// concurrent aggregation got there first, return its row.
		if existing, findErr := s.resultRepo.FindBySessionID(sessionID); findErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to persist result for session %d: %w", sessionID, err)
	}

	log.Info().Uint("sessionID", sessionID).Float64("overallScore", overall).Msg("Result aggregated")
	return result, nil
}

func (s *scoringService) GetSessionResult(candidateID, sessionID uint) (*dto.ResultResponse, error) {
	session, err := s.sessionRepo.FindByID(sessionID)
	if err != nil {
		return nil, apperr.NotFound("session %d not found", sessionID)
	}
	if session.CandidateID != candidateID {
		return nil, apperr.Forbidden("session %d belongs to another candidate", sessionID)
	}

	// A result read is a session read too: an overdue ACTIVE session is
	// reaped here so a candidate polling only this endpoint still gets their
	// partial result instead of a permanent 404.
	if session.Status == model.SessionActive && session.Expired(s.clock()) {
		rows, err := s.sessionRepo.MarkAbandonedIf(sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to abandon expired session %d: %w", sessionID, err)
		}
		if rows > 0 {
			if _, err := s.Aggregate(sessionID); err != nil {
				return nil, err
			}
		}
	}

	result, err := s.resultRepo.FindBySessionID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load result for session %d: %w", sessionID, err)
	}
	if result == nil {
		return nil, apperr.NotFound("no result yet for session %d", sessionID)
	}
	return toResultResponse(result), nil
}

func (s *scoringService) ListBySimulation(employerID, simulationID uint, status *model.ReviewStatus) ([]dto.ResultResponse, error) {
	var sim model.Simulation
	if err := s.db.First(&sim, simulationID).Error; err != nil {
		return nil, apperr.NotFound("simulation %d not found", simulationID)
	}
	if sim.EmployerID != employerID {
		return nil, apperr.Forbidden("simulation %d belongs to another employer", simulationID)
	}

	results, err := s.resultRepo.FindAllBySimulation(simulationID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	responses := make([]dto.ResultResponse, 0, len(results))
	for i := range results {
		responses = append(responses, *toResultResponse(&results[i]))
	}
	return responses, nil
}

func (s *scoringService) SetReviewStatus(employerID, resultID uint, status model.ReviewStatus) (*dto.ResultResponse, error) {
	if !model.ValidReviewStatus(status) {
		return nil, apperr.Validation("review status is invalid", fmt.Sprintf("unknown status %q", status))
	}

	result, err := s.findOwned(employerID, resultID)
	if err != nil {
		return nil, err
	}

	// Transitions from PENDING are free: an employer may jump straight to
	// SHORTLISTED without passing through REVIEWED. Repeating a call is a
	// no-op.
	result.ReviewStatus = status
	if err := s.resultRepo.Update(result); err != nil {
		return nil, fmt.Errorf("failed to update review status for result %d: %w", resultID, err)
	}
	log.Info().Uint("resultID", resultID).Str("status", string(status)).Msg("Review status updated")
	return toResultResponse(result), nil
}

func (s *scoringService) AttachEmployerFeedback(employerID, resultID uint, req dto.EmployerFeedbackRequest) (*dto.ResultResponse, error) {
	result, err := s.findOwned(employerID, resultID)
	if err != nil {
		return nil, err
	}

	if len(req.ManualScores) > 0 {
		known := make(map[string]bool)
		for _, criterion := range result.Simulation.Rubric.Data() {
			known[criterion.Criterion] = true
		}
		var violations []string
		scores := make([]model.RubricScore, 0, len(req.ManualScores))
		for _, score := range req.ManualScores {
			if !known[score.Criterion] {
				violations = append(violations, fmt.Sprintf("criterion %q is not part of the rubric", score.Criterion))
				continue
			}
			scores = append(scores, model.RubricScore{Criterion: score.Criterion, Score: score.Score})
		}
		if len(violations) > 0 {
			return nil, apperr.Validation("manual rubric scores are invalid", violations...)
		}
		result.ManualScores = datatypes.NewJSONType(scores)
	}

	result.EmployerFeedback = req.Feedback
	if err := s.resultRepo.Update(result); err != nil {
		return nil, fmt.Errorf("failed to attach feedback to result %d: %w", resultID, err)
	}

	s.notifyCandidate(result)
	return toResultResponse(result), nil
}

// notifyCandidate looks up the candidate's address through the session's
// invitation. Delivery is fire-and-forget.
func (s *scoringService) notifyCandidate(result *model.Result) {
	session, err := s.sessionRepo.FindByID(result.SessionID)
	if err != nil {
		log.Warn().Err(err).Uint("resultID", result.ID).Msg("Could not resolve session for feedback notification")
		return
	}
	inv, err := s.invitationRepo.FindByID(session.InvitationID)
	if err != nil {
		log.Warn().Err(err).Uint("resultID", result.ID).Msg("Could not resolve invitation for feedback notification")
		return
	}
	s.notifier.Send(inv.Email, notifier.TemplateResultFeedback, map[string]string{
		"simulation": result.Simulation.Title,
	})
}

func (s *scoringService) findOwned(employerID, resultID uint) (*model.Result, error) {
	result, err := s.resultRepo.FindByID(resultID)
	if err != nil {
		return nil, apperr.NotFound("result %d not found", resultID)
	}
	if result.Simulation.EmployerID != employerID {
		return nil, apperr.Forbidden("result %d belongs to another employer", resultID)
	}
	return result, nil
}
