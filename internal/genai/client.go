// Package genai provides the client for the generative text service.
//
// The service is an OpenAI-compatible chat completions endpoint (a hosted API
// or a local runtime such as Ollama). The client never assumes structured
// output; callers impose all structure by post-processing.
package genai

import "context"

// Params controls a single completion request.
type Params struct {
	Temperature     float64
	MaxOutputTokens int
}

// Client produces a single text completion for a prompt. Implementations must
// not retry failed calls: a completion costs money, so retrying is a caller
// decision.
type Client interface {
	Complete(ctx context.Context, prompt string, params Params) (string, error)
}
