package service

import (
	"github.com/henokg/talentsim/internal/dto"
	"github.com/henokg/talentsim/internal/model"
	"github.com/jinzhu/copier"
)

// copier handles the flat fields; the JSON-typed columns and enums are
// mapped by hand because their Go shapes differ from the wire shapes.

func toStepResponse(step *model.Step) dto.StepResponse {
	return dto.StepResponse{
		ID:               step.ID,
		Position:         step.Position,
		Type:             string(step.Type),
		Prompt:           step.Prompt,
		TimeLimitMinutes: step.TimeLimitMinutes,
		Weight:           step.Weight,
		Options:          step.Options,
	}
}

func toSimulationResponse(sim *model.Simulation) *dto.SimulationResponse {
	var resp dto.SimulationResponse
	copier.Copy(&resp, sim)
	resp.Status = string(sim.Status)

	resp.Rubric = make([]dto.RubricCriterionDTO, 0, len(sim.Rubric.Data()))
	for _, c := range sim.Rubric.Data() {
		resp.Rubric = append(resp.Rubric, dto.RubricCriterionDTO{Criterion: c.Criterion, Weight: c.Weight})
	}

	resp.Steps = nil
	for i := range sim.Steps {
		resp.Steps = append(resp.Steps, toStepResponse(&sim.Steps[i]))
	}
	return &resp
}

func toInvitationResponse(inv *model.Invitation) dto.InvitationResponse {
	var resp dto.InvitationResponse
	copier.Copy(&resp, inv)
	resp.Status = string(inv.Status)
	return resp
}

func toSubmissionResponse(sub *model.StepSubmission) dto.SubmissionResponse {
	answer := sub.Answer.Data()
	return dto.SubmissionResponse{
		ID:               sub.ID,
		SessionID:        sub.SessionID,
		StepID:           sub.StepID,
		Answer:           dto.AnswerContentDTO{Text: answer.Text, Selected: answer.Selected},
		TimeSpentSeconds: sub.TimeSpentSeconds,
		SubmittedAt:      sub.SubmittedAt,
		Score:            sub.Score,
		Feedback:         sub.Feedback,
		ScoringState:     string(sub.ScoringState),
	}
}

func toSessionResponse(session *model.AssessmentSession) *dto.SessionResponse {
	var resp dto.SessionResponse
	copier.Copy(&resp, session)
	resp.Status = string(session.Status)

	resp.Steps = nil
	for i := range session.Simulation.Steps {
		resp.Steps = append(resp.Steps, toStepResponse(&session.Simulation.Steps[i]))
	}

	resp.Submissions = nil
	for i := range session.Submissions {
		resp.Submissions = append(resp.Submissions, toSubmissionResponse(&session.Submissions[i]))
	}

	resp.IntegrityFlags = nil
	for _, flag := range session.IntegrityFlags {
		resp.IntegrityFlags = append(resp.IntegrityFlags, dto.IntegrityFlagResponse{
			ID:         flag.ID,
			Type:       string(flag.Type),
			OccurredAt: flag.OccurredAt,
		})
	}
	return &resp
}

func toResultResponse(result *model.Result) *dto.ResultResponse {
	var resp dto.ResultResponse
	copier.Copy(&resp, result)
	resp.ReviewStatus = string(result.ReviewStatus)

	resp.Breakdown = make([]dto.StepScoreDTO, 0, len(result.Breakdown.Data()))
	for _, entry := range result.Breakdown.Data() {
		resp.Breakdown = append(resp.Breakdown, dto.StepScoreDTO{
			StepID:   entry.StepID,
			Position: entry.Position,
			Weight:   entry.Weight,
			Score:    entry.Score,
			Feedback: entry.Feedback,
		})
	}

	resp.Strengths = result.Strengths
	resp.Improvements = result.Improvements

	resp.ManualScores = nil
	for _, score := range result.ManualScores.Data() {
		resp.ManualScores = append(resp.ManualScores, dto.RubricScoreDTO{Criterion: score.Criterion, Score: score.Score})
	}
	return &resp
}
