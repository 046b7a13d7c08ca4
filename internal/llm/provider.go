package llm

import "context"

// Provider is one configured LLM backend. Providers are interchangeable:
// the gateway sends a system message plus a user prompt and expects raw
// text back. Everything else (prompt templating, response parsing) lives
// in the gateway.
type Provider interface {
	Name() string
	Complete(ctx context.Context, systemMessage, prompt string) (string, error)
}
