package llm

import "context"

// Provider is a single-turn chat-completion backend used by the inference
// runner.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req *Request) (*Response, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type Response struct {
	Text       string
	StopReason string
	Usage      Usage
}
