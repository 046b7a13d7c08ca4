package service

import (
	"context"
	"fmt"
	"math"

	"github.com/henokg/talentsim/internal/apperr"
	"github.com/henokg/talentsim/internal/dto"
	"github.com/henokg/talentsim/internal/llm"
	"github.com/henokg/talentsim/internal/model"
	"github.com/henokg/talentsim/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	minDurationMinutes = 5
	maxDurationMinutes = 240
	maxTitleLength     = 200
)

// SimulationService manages employer-authored assessment definitions.
type SimulationService interface {
	Create(employerID uint, req dto.CreateSimulationRequest) (*dto.SimulationResponse, error)
	Publish(employerID, id uint) (*dto.SimulationResponse, error)
	Update(employerID, id uint, patch dto.UpdateSimulationRequest) (*dto.SimulationResponse, error)
	Delete(employerID, id uint) error
	Get(employerID, id uint) (*dto.SimulationResponse, error)
	ListByEmployer(employerID uint) ([]dto.SimulationResponse, error)
	GenerateSteps(ctx context.Context, req dto.GenerateStepsRequest) (*dto.GenerateStepsResponse, error)
}

type simulationService struct {
	simulationRepo repository.SimulationRepository
	invitationRepo repository.InvitationRepository
	gateway        llm.Gateway
	db             *gorm.DB
	clock          Clock
}

func NewSimulationService(
	simulationRepo repository.SimulationRepository,
	invitationRepo repository.InvitationRepository,
	gateway llm.Gateway,
	db *gorm.DB,
) SimulationService {
	return &simulationService{
		simulationRepo: simulationRepo,
		invitationRepo: invitationRepo,
		gateway:        gateway,
		db:             db,
		clock:          SystemClock,
	}
}

// validateSimulation collects every violated constraint instead of stopping
// at the first one.
func validateSimulation(sim *model.Simulation) []string {
	var violations []string

	if sim.Title == "" {
		violations = append(violations, "title must not be empty")
	} else if len(sim.Title) > maxTitleLength {
		violations = append(violations, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}

	if sim.DurationMinutes < minDurationMinutes || sim.DurationMinutes > maxDurationMinutes {
		violations = append(violations, fmt.Sprintf("duration must be between %d and %d minutes", minDurationMinutes, maxDurationMinutes))
	}

	if len(sim.Steps) == 0 {
		violations = append(violations, "simulation must have at least one step")
	}
	positions := make(map[int]bool)
	for _, step := range sim.Steps {
		if !model.ValidStepType(step.Type) {
			violations = append(violations, fmt.Sprintf("step %d has unsupported type %q", step.Position, step.Type))
		}
		if step.Prompt == "" {
			violations = append(violations, fmt.Sprintf("step %d must have a prompt", step.Position))
		}
		if step.Weight <= 0 {
			violations = append(violations, fmt.Sprintf("step %d must have a positive weight", step.Position))
		}
		if positions[step.Position] {
			violations = append(violations, fmt.Sprintf("duplicate step position %d", step.Position))
		}
		positions[step.Position] = true

		if step.Type == model.StepMultipleChoice {
			if len(step.Options) < 2 {
				violations = append(violations, fmt.Sprintf("step %d (multiple choice) needs at least two options", step.Position))
			}
			if step.CorrectAnswer == nil {
				violations = append(violations, fmt.Sprintf("step %d (multiple choice) needs a correct answer", step.Position))
			} else {
				found := false
				for _, opt := range step.Options {
					if opt == *step.CorrectAnswer {
						found = true
						break
					}
				}
				if !found {
					violations = append(violations, fmt.Sprintf("step %d correct answer must be one of the options", step.Position))
				}
			}
		}
	}

	rubric := sim.Rubric.Data()
	if len(rubric) == 0 {
		violations = append(violations, "rubric must have at least one criterion")
	} else {
		sum := 0.0
		for _, criterion := range rubric {
			if criterion.Criterion == "" {
				violations = append(violations, "rubric criterion name must not be empty")
			}
			sum += criterion.Weight
		}
		if math.Abs(sum-1.0) > model.RubricWeightTolerance {
			violations = append(violations, fmt.Sprintf("rubric weights must sum to 1.0, got %.3f", sum))
		}
	}

	return violations
}

func stepsFromRequests(reqs []dto.StepRequest) []model.Step {
	steps := make([]model.Step, 0, len(reqs))
	for _, req := range reqs {
		steps = append(steps, model.Step{
			Position:         req.Position,
			Type:             model.StepType(req.Type),
			Prompt:           req.Prompt,
			TimeLimitMinutes: req.TimeLimitMinutes,
			Weight:           req.Weight,
			Options:          datatypes.JSONSlice[string](req.Options),
			CorrectAnswer:    req.CorrectAnswer,
		})
	}
	return steps
}

func rubricFromRequests(reqs []dto.RubricCriterionDTO) []model.RubricCriterion {
	rubric := make([]model.RubricCriterion, 0, len(reqs))
	for _, req := range reqs {
		rubric = append(rubric, model.RubricCriterion{Criterion: req.Criterion, Weight: req.Weight})
	}
	return rubric
}

func (s *simulationService) Create(employerID uint, req dto.CreateSimulationRequest) (*dto.SimulationResponse, error) {
	sim := &model.Simulation{
		EmployerID:        employerID,
		Title:             req.Title,
		Description:       req.Description,
		Difficulty:        req.Difficulty,
		DurationMinutes:   req.DurationMinutes,
		Status:            model.SimulationDraft,
		BlindMode:         req.BlindMode,
		ProctoringEnabled: req.ProctoringEnabled,
		AllowRetake:       req.AllowRetake,
		Rubric:            datatypes.NewJSONType(rubricFromRequests(req.Rubric)),
		Steps:             stepsFromRequests(req.Steps),
	}

	if violations := validateSimulation(sim); len(violations) > 0 {
		return nil, apperr.Validation("simulation is invalid", violations...)
	}

	if err := s.simulationRepo.Create(sim); err != nil {
		log.Error().Err(err).Uint("employerID", employerID).Msg("Failed to create simulation")
		return nil, fmt.Errorf("failed to create simulation: %w", err)
	}
	log.Info().Uint("simulationID", sim.ID).Uint("employerID", employerID).Msg("Simulation created")
	return toSimulationResponse(sim), nil
}

func (s *simulationService) findOwned(employerID, id uint) (*model.Simulation, error) {
	sim, err := s.simulationRepo.FindByIDWithSteps(id)
	if err != nil {
		return nil, apperr.NotFound("simulation %d not found", id)
	}
	if sim.EmployerID != employerID {
		return nil, apperr.Forbidden("simulation %d belongs to another employer", id)
	}
	return sim, nil
}

func (s *simulationService) Publish(employerID, id uint) (*dto.SimulationResponse, error) {
	sim, err := s.findOwned(employerID, id)
	if err != nil {
		return nil, err
	}

	if sim.Status == model.SimulationPublished {
		return toSimulationResponse(sim), nil
	}

	if violations := validateSimulation(sim); len(violations) > 0 {
		return nil, apperr.Validation("simulation cannot be published", violations...)
	}

	sim.Status = model.SimulationPublished
	if err := s.simulationRepo.Update(sim); err != nil {
		return nil, fmt.Errorf("failed to publish simulation %d: %w", id, err)
	}
	log.Info().Uint("simulationID", id).Msg("Simulation published")
	return toSimulationResponse(sim), nil
}

func (s *simulationService) Update(employerID, id uint, patch dto.UpdateSimulationRequest) (*dto.SimulationResponse, error) {
	sim, err := s.findOwned(employerID, id)
	if err != nil {
		return nil, err
	}

	structural := patch.Steps != nil || patch.Rubric != nil || patch.DurationMinutes != nil
	if sim.Status == model.SimulationPublished && structural {
		return nil, apperr.ImmutableState("published simulation %d: steps, rubric and duration are frozen", id)
	}

	if patch.Title != nil {
		sim.Title = *patch.Title
	}
	if patch.Description != nil {
		sim.Description = *patch.Description
	}
	if patch.Difficulty != nil {
		sim.Difficulty = *patch.Difficulty
	}
	if patch.DurationMinutes != nil {
		sim.DurationMinutes = *patch.DurationMinutes
	}
	if patch.BlindMode != nil {
		sim.BlindMode = *patch.BlindMode
	}
	if patch.ProctoringEnabled != nil {
		sim.ProctoringEnabled = *patch.ProctoringEnabled
	}
	if patch.AllowRetake != nil {
		sim.AllowRetake = *patch.AllowRetake
	}
	if patch.Rubric != nil {
		sim.Rubric = datatypes.NewJSONType(rubricFromRequests(*patch.Rubric))
	}

	var replacementSteps []model.Step
	if patch.Steps != nil {
		replacementSteps = stepsFromRequests(*patch.Steps)
		validationCopy := *sim
		validationCopy.Steps = replacementSteps
		if violations := validateSimulation(&validationCopy); len(violations) > 0 {
			return nil, apperr.Validation("simulation update is invalid", violations...)
		}
	} else {
		if violations := validateSimulation(sim); len(violations) > 0 {
			return nil, apperr.Validation("simulation update is invalid", violations...)
		}
	}

	// Step replacement removes the old rows and inserts the new set in one
	// transaction so a partial failure never leaves a mixed step list.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if replacementSteps != nil {
			if err := tx.Where("simulation_id = ?", sim.ID).Delete(&model.Step{}).Error; err != nil {
				return err
			}
			for i := range replacementSteps {
				replacementSteps[i].SimulationID = sim.ID
			}
			if len(replacementSteps) > 0 {
				if err := tx.Create(&replacementSteps).Error; err != nil {
					return err
				}
			}
			sim.Steps = nil
		}
		return tx.Omit("Steps").Save(sim).Error
	})
	if err != nil {
		log.Error().Err(err).Uint("simulationID", id).Msg("Failed to update simulation")
		return nil, fmt.Errorf("failed to update simulation %d: %w", id, err)
	}

	updated, err := s.simulationRepo.FindByIDWithSteps(id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload simulation %d: %w", id, err)
	}
	return toSimulationResponse(updated), nil
}

func (s *simulationService) Delete(employerID, id uint) error {
	sim, err := s.findOwned(employerID, id)
	if err != nil {
		return err
	}

	count, err := s.invitationRepo.CountActiveBySimulation(sim.ID, s.clock())
	if err != nil {
		return fmt.Errorf("failed to count invitations for simulation %d: %w", id, err)
	}
	if count > 0 {
		return apperr.Conflict("simulation %d still has %d live invitations", id, count)
	}

	if err := s.simulationRepo.Delete(sim.ID); err != nil {
		return fmt.Errorf("failed to delete simulation %d: %w", id, err)
	}
	log.Info().Uint("simulationID", id).Msg("Simulation deleted")
	return nil
}

func (s *simulationService) Get(employerID, id uint) (*dto.SimulationResponse, error) {
	sim, err := s.findOwned(employerID, id)
	if err != nil {
		return nil, err
	}
	return toSimulationResponse(sim), nil
}

func (s *simulationService) ListByEmployer(employerID uint) ([]dto.SimulationResponse, error) {
	sims, err := s.simulationRepo.FindAllByEmployer(employerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list simulations: %w", err)
	}
	responses := make([]dto.SimulationResponse, 0, len(sims))
	for i := range sims {
		responses = append(responses, *toSimulationResponse(&sims[i]))
	}
	return responses, nil
}

// GenerateSteps drafts assessment steps for a role description. The result
// is a suggestion for the employer to edit; nothing is persisted here.
func (s *simulationService) GenerateSteps(ctx context.Context, req dto.GenerateStepsRequest) (*dto.GenerateStepsResponse, error) {
	evaluation, err := s.gateway.Evaluate(ctx, llm.KindQuestionGeneration, llm.Payload{Role: req.RoleDescription})
	if err != nil {
		return nil, err
	}
	if len(evaluation.Questions) == 0 {
		return nil, apperr.MalformedResponse("AI returned no questions", nil)
	}

	resp := &dto.GenerateStepsResponse{}
	weight := 1.0 / float64(len(evaluation.Questions))
	for i, question := range evaluation.Questions {
		step := dto.StepRequest{
			Position:         i + 1,
			Type:             question.Type,
			Prompt:           question.Prompt,
			TimeLimitMinutes: question.TimeLimitMinutes,
			Weight:           weight,
			Options:          question.Options,
		}
		if question.CorrectAnswer != "" {
			answer := question.CorrectAnswer
			step.CorrectAnswer = &answer
		}
		resp.Steps = append(resp.Steps, step)
	}
	return resp, nil
}
