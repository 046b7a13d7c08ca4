package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SimulationStatus string

const (
	SimulationDraft     SimulationStatus = "DRAFT"
	SimulationPublished SimulationStatus = "PUBLISHED"
)

// RubricCriterion is one weighted scoring criterion. Weights on a
// simulation's rubric must sum to 1.0 within RubricWeightTolerance.
type RubricCriterion struct {
	Criterion string  `json:"criterion"`
	Weight    float64 `json:"weight"`
}

const RubricWeightTolerance = 0.01

// Simulation is an employer-authored assessment definition. Steps and
// rubric are frozen once the simulation is published; only metadata may
// change after that.
type Simulation struct {
	ID                uint                                  `gorm:"primarykey" json:"id"`
	EmployerID        uint                                  `json:"employer_id" gorm:"not null;index"`
	Title             string                                `json:"title" gorm:"not null"`
	Description       string                                `json:"description,omitempty" gorm:"type:text"`
	Difficulty        string                                `json:"difficulty,omitempty"`
	DurationMinutes   int                                   `json:"duration_minutes" gorm:"not null"`
	Status            SimulationStatus                      `json:"status" gorm:"default:'DRAFT'"`
	BlindMode         bool                                  `json:"blind_mode"`
	ProctoringEnabled bool                                  `json:"proctoring_enabled"`
	AllowRetake       bool                                  `json:"allow_retake"`
	Rubric            datatypes.JSONType[[]RubricCriterion] `json:"rubric"`
	Steps             []Step                                `json:"steps,omitempty" gorm:"foreignKey:SimulationID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt         time.Time                             `json:"created_at"`
	UpdatedAt         time.Time                             `json:"updated_at"`
	DeletedAt         gorm.DeletedAt                        `gorm:"index" json:"-"`
}

type StepType string

const (
	StepFreeText         StepType = "free_text"
	StepCodeReview       StepType = "code_review"
	StepDocumentAnalysis StepType = "document_analysis"
	StepMultipleChoice   StepType = "multiple_choice"
	StepChatPersona      StepType = "ai_chat_persona"
)

// ValidStepType reports whether t is one of the supported step types.
func ValidStepType(t StepType) bool {
	switch t {
	case StepFreeText, StepCodeReview, StepDocumentAnalysis, StepMultipleChoice, StepChatPersona:
		return true
	}
	return false
}

// Step is one question/task unit inside a Simulation. Never shared across
// simulations.
type Step struct {
	ID               uint                        `gorm:"primarykey" json:"id"`
	SimulationID     uint                        `json:"simulation_id" gorm:"not null;index"`
	Position         int                         `json:"position" gorm:"not null"`
	Type             StepType                    `json:"type" gorm:"not null"`
	Prompt           string                      `json:"prompt" gorm:"type:text;not null"`
	TimeLimitMinutes int                         `json:"time_limit_minutes"`
	Weight           float64                     `json:"weight" gorm:"not null"`
	Options          datatypes.JSONSlice[string] `json:"options,omitempty"`
	CorrectAnswer    *string                     `json:"correct_answer,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
	DeletedAt        gorm.DeletedAt              `gorm:"index" json:"-"`
}
