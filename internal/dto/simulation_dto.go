package dto

import "time"

// ErrorResponse is the uniform error body. Kind is machine-readable;
// Violations lists every failed constraint for validation errors.
type ErrorResponse struct {
	Error      string   `json:"error"`
	Kind       string   `json:"kind,omitempty"`
	Violations []string `json:"violations,omitempty"`
}

type RubricCriterionDTO struct {
	Criterion string  `json:"criterion" binding:"required"`
	Weight    float64 `json:"weight" binding:"required"`
}

type StepRequest struct {
	Position         int      `json:"position" binding:"required"`
	Type             string   `json:"type" binding:"required"`
	Prompt           string   `json:"prompt" binding:"required"`
	TimeLimitMinutes int      `json:"time_limit_minutes"`
	Weight           float64  `json:"weight"`
	Options          []string `json:"options,omitempty"`
	CorrectAnswer    *string  `json:"correct_answer,omitempty"`
}

type CreateSimulationRequest struct {
	Title             string               `json:"title" binding:"required"`
	Description       string               `json:"description"`
	Difficulty        string               `json:"difficulty"`
	DurationMinutes   int                  `json:"duration_minutes" binding:"required"`
	BlindMode         bool                 `json:"blind_mode"`
	ProctoringEnabled bool                 `json:"proctoring_enabled"`
	AllowRetake       bool                 `json:"allow_retake"`
	Rubric            []RubricCriterionDTO `json:"rubric" binding:"required,dive"`
	Steps             []StepRequest        `json:"steps" binding:"required,dive"`
}

// UpdateSimulationRequest replaces exactly the fields it carries. Steps or
// Rubric present on a published simulation is rejected.
type UpdateSimulationRequest struct {
	Title             *string               `json:"title,omitempty"`
	Description       *string               `json:"description,omitempty"`
	Difficulty        *string               `json:"difficulty,omitempty"`
	DurationMinutes   *int                  `json:"duration_minutes,omitempty"`
	BlindMode         *bool                 `json:"blind_mode,omitempty"`
	ProctoringEnabled *bool                 `json:"proctoring_enabled,omitempty"`
	AllowRetake       *bool                 `json:"allow_retake,omitempty"`
	Rubric            *[]RubricCriterionDTO `json:"rubric,omitempty"`
	Steps             *[]StepRequest        `json:"steps,omitempty"`
}

type StepResponse struct {
	ID               uint     `json:"id"`
	Position         int      `json:"position"`
	Type             string   `json:"type"`
	Prompt           string   `json:"prompt"`
	TimeLimitMinutes int      `json:"time_limit_minutes"`
	Weight           float64  `json:"weight"`
	Options          []string `json:"options,omitempty"`
}

type SimulationResponse struct {
	ID                uint                 `json:"id"`
	EmployerID        uint                 `json:"employer_id"`
	Title             string               `json:"title"`
	Description       string               `json:"description,omitempty"`
	Difficulty        string               `json:"difficulty,omitempty"`
	DurationMinutes   int                  `json:"duration_minutes"`
	Status            string               `json:"status"`
	BlindMode         bool                 `json:"blind_mode"`
	ProctoringEnabled bool                 `json:"proctoring_enabled"`
	AllowRetake       bool                 `json:"allow_retake"`
	Rubric            []RubricCriterionDTO `json:"rubric"`
	Steps             []StepResponse       `json:"steps,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
}

type GenerateStepsRequest struct {
	RoleDescription string `json:"role_description" binding:"required"`
}

type GenerateStepsResponse struct {
	Steps []StepRequest `json:"steps"`
}
