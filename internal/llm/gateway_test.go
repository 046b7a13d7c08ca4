package llm

import (
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestParseEvaluation(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantScore float64
		wantErr   bool
	}{
		{
			name:      "plain JSON object",
			raw:       `{"score": 85, "feedback": "good"}`,
			wantScore: 85,
		},
		{
			name:      "markdown fenced",
			raw:       "```json\n{\"score\": 72.5, \"feedback\": \"ok\"}\n```",
			wantScore: 72.5,
		},
		{
			name:      "prose around the object",
			raw:       "Here is my evaluation:\n{\"score\": 60, \"feedback\": \"fair\"} I hope this helps!",
			wantScore: 60,
		},
		{
			name:      "score clamped to 100",
			raw:       `{"score": 120, "feedback": "overenthusiastic"}`,
			wantScore: 100,
		},
		{
			name:      "negative score clamped to 0",
			raw:       `{"score": -5, "feedback": "harsh"}`,
			wantScore: 0,
		},
		{
			name:    "no JSON at all",
			raw:     "I am unable to evaluate this submission.",
			wantErr: true,
		},
		{
			name:    "malformed JSON",
			raw:     `{"score": "eighty"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evaluation, err := parseEvaluation(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseEvaluation(%q) succeeded, want error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseEvaluation(%q): %v", tt.raw, err)
			}
			if evaluation.Score != tt.wantScore {
				t.Errorf("score = %f, want %f", evaluation.Score, tt.wantScore)
			}
		})
	}
}

func TestParseEvaluationNestedFields(t *testing.T) {
	raw := `{"questions": [{"type": "free_text", "prompt": "Explain CAP.", "time_limit_minutes": 10}], "score": 0}`
	evaluation, err := parseEvaluation(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(evaluation.Questions) != 1 || evaluation.Questions[0].Prompt != "Explain CAP." {
		t.Errorf("questions = %+v", evaluation.Questions)
	}
}

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		payload  Payload
		contains []string
	}{
		{
			name:     "free text evaluation",
			kind:     KindSubmissionEvaluation,
			payload:  Payload{StepType: "free_text", Prompt: "Design a queue.", Answer: "Use a ring buffer."},
			contains: []string{"Design a queue.", "Use a ring buffer.", `"score"`},
		},
		{
			name:     "code review criteria",
			kind:     KindSubmissionEvaluation,
			payload:  Payload{StepType: "code_review", Prompt: "func main() {}", Answer: "Missing error handling."},
			contains: []string{"review the code", "prioritization"},
		},
		{
			name:     "chat persona transcript",
			kind:     KindSubmissionEvaluation,
			payload:  Payload{StepType: "ai_chat_persona", Prompt: "Angry customer.", Answer: "transcript text"},
			contains: []string{"transcript", "professionalism"},
		},
		{
			name:     "question generation",
			kind:     KindQuestionGeneration,
			payload:  Payload{Role: "Site reliability engineer"},
			contains: []string{"Site reliability engineer", `"questions"`},
		},
		{
			name:     "chat turn",
			kind:     KindChat,
			payload:  Payload{Prompt: "You are a PM.", Transcript: "Hi there"},
			contains: []string{"You are a PM.", "Hi there", `"reply"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, err := buildPrompt(tt.kind, tt.payload)
			if err != nil {
				t.Fatalf("buildPrompt: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(prompt, want) {
					t.Errorf("prompt missing %q", want)
				}
			}
		})
	}
}

func TestBuildPromptUnknownKind(t *testing.T) {
	if _, err := buildPrompt(Kind("palm-reading"), Payload{}); err == nil {
		t.Fatal("expected error for unsupported kind")
	}
}

func TestSystemMessageFor(t *testing.T) {
	if got := systemMessageFor(KindQuestionGeneration); !strings.Contains(got, "designs realistic") {
		t.Errorf("generation system message = %q", got)
	}
	if got := systemMessageFor(KindSubmissionEvaluation); !strings.Contains(got, "hiring assessor") {
		t.Errorf("evaluation system message = %q", got)
	}
	if got := systemMessageFor(KindChat); !strings.Contains(got, "persona") {
		t.Errorf("chat system message = %q", got)
	}
}

func TestGeminiResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text(`{"score": 80`),
				genai.Text(`, "feedback": "ok"}`),
			}},
		}},
	}
	text, err := geminiResponseText(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"score": 80, "feedback": "ok"}` {
		t.Errorf("text = %q", text)
	}

	if _, err := geminiResponseText(&genai.GenerateContentResponse{}); err == nil {
		t.Error("expected an error for a response with no candidates")
	}
	empty := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Text("")}}}},
	}
	if _, err := geminiResponseText(empty); err == nil {
		t.Error("expected an error for a response with no text content")
	}
}
