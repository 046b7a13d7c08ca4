package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/henokg/talentsim/config"
	"github.com/henokg/talentsim/internal/apperr"
	"github.com/rs/zerolog/log"
)

// Kind selects the prompt template and expected response shape for one
// gateway call.
type Kind string

const (
	KindSubmissionEvaluation Kind = "submission-evaluation"
	KindQuestionGeneration   Kind = "question-generation"
	KindCareerAdvice         Kind = "career-advice"
	KindChat                 Kind = "chat"
	KindInterviewAnalysis    Kind = "interview-analysis"
)

// Payload carries only the text the prompt needs. The gateway is stateless
// and knows nothing about sessions, invitations or simulations.
type Payload struct {
	StepType   string
	Prompt     string
	Answer     string
	Role       string
	Transcript string
}

// GeneratedStep is one drafted assessment task from a question-generation
// call.
type GeneratedStep struct {
	Type             string   `json:"type"`
	Prompt           string   `json:"prompt"`
	TimeLimitMinutes int      `json:"time_limit_minutes"`
	Options          []string `json:"options,omitempty"`
	CorrectAnswer    string   `json:"correct_answer,omitempty"`
}

// Evaluation is the normalized result of a gateway call. Which fields are
// populated depends on the kind.
type Evaluation struct {
	Score        float64         `json:"score"`
	Feedback     string          `json:"feedback"`
	Strengths    []string        `json:"strengths,omitempty"`
	Improvements []string        `json:"improvements,omitempty"`
	Questions    []GeneratedStep `json:"questions,omitempty"`
	Reply        string          `json:"reply,omitempty"`
}

// Gateway sends templated prompts to exactly one LLM provider and parses
// the JSON response. Provider priority is resolved once at construction;
// there is no fan-out, no retry. Callers decide whether to retry.
type Gateway interface {
	Evaluate(ctx context.Context, kind Kind, payload Payload) (*Evaluation, error)
}

type gateway struct {
	provider Provider
}

// NewGateway resolves the provider chain from config: Groq first, then
// OpenAI, then Gemini. The first configured key wins. With no key at all
// the gateway stays constructed but every call fails with an upstream
// error, mirroring how submissions degrade to unscored.
func NewGateway(cfg *config.Config) (Gateway, error) {
	switch {
	case cfg.AI.GroqAPIKey != "":
		log.Info().Str("provider", "groq").Msg("AI evaluation gateway configured")
		return &gateway{provider: NewGroqProvider(cfg.AI.GroqBaseURL, cfg.AI.GroqAPIKey)}, nil
	case cfg.AI.OpenAIAPIKey != "":
		log.Info().Str("provider", "openai").Msg("AI evaluation gateway configured")
		return &gateway{provider: NewOpenAIProvider(cfg.AI.OpenAIAPIKey)}, nil
	case cfg.AI.GeminiAPIKey != "":
		provider, err := NewGeminiProvider(context.Background(), cfg.AI.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		log.Info().Str("provider", "gemini").Msg("AI evaluation gateway configured")
		return &gateway{provider: provider}, nil
	default:
		log.Warn().Msg("No AI provider API key is set; evaluation calls will fail")
		return &gateway{provider: nil}, nil
	}
}

func (g *gateway) Evaluate(ctx context.Context, kind Kind, payload Payload) (*Evaluation, error) {
	if g.provider == nil {
		return nil, apperr.Upstream("no AI provider configured", nil)
	}

	prompt, err := buildPrompt(kind, payload)
	if err != nil {
		return nil, err
	}

	raw, err := g.provider.Complete(ctx, systemMessageFor(kind), prompt)
	if err != nil {
		log.Error().Err(err).Str("provider", g.provider.Name()).Str("kind", string(kind)).Msg("AI provider call failed")
		return nil, apperr.Upstream("AI provider call failed", err)
	}

	evaluation, err := parseEvaluation(raw)
	if err != nil {
		log.Warn().Err(err).Str("provider", g.provider.Name()).Str("kind", string(kind)).Str("raw", raw).Msg("Failed to parse AI response")
		return nil, apperr.MalformedResponse("AI response was not parseable", err)
	}
	return evaluation, nil
}

// parseEvaluation extracts the JSON object from a raw model response.
// Models occasionally wrap the object in markdown fences or prose, so the
// parser isolates the outermost braces before unmarshalling.
func parseEvaluation(raw string) (*Evaluation, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var evaluation Evaluation
	if err := json.Unmarshal([]byte(text[start:end+1]), &evaluation); err != nil {
		return nil, err
	}

	if evaluation.Score > 100 {
		evaluation.Score = 100
	}
	if evaluation.Score < 0 {
		evaluation.Score = 0
	}
	return &evaluation, nil
}
