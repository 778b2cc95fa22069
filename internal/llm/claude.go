package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
)

const (
	defaultClaudeModel     = "claude-sonnet-4-5-20250929"
	defaultClaudeMaxTokens = 1024

	anthropicVersionHeader = "2023-06-01"
)

type ClaudeProvider struct {
	client *anthropic.Client
	model  string
}

func NewClaudeProvider(apiKey string, baseURL string, model string) *ClaudeProvider {
	opts := make([]option.RequestOption, 0, 3)
	if v := strings.TrimSpace(apiKey); v != "" {
		opts = append(opts, option.WithAPIKey(v))
	}
	if v := strings.TrimSpace(baseURL); v != "" {
		opts = append(opts, option.WithBaseURL(sdkBaseURL(v)))
	}
	opts = append(opts, option.WithHeader("anthropic-version", anthropicVersionHeader))

	m := strings.TrimSpace(model)
	if m == "" {
		m = defaultClaudeModel
	}

	client := anthropic.NewClient(opts...)
	return &ClaudeProvider{
		client: &client,
		model:  m,
	}
}

func (p *ClaudeProvider) Name() string {
	return "claude"
}

func (p *ClaudeProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	if p == nil || p.client == nil {
		return nil, errors.New("llm: claude: nil client")
	}
	if ctx == nil {
		return nil, errors.New("llm: claude: nil context")
	}
	if req == nil {
		return nil, errors.New("llm: claude: nil request")
	}

	msgs := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, anthropic.MessageParam{
			Role:    toClaudeRole(m.Role),
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(m.Content)},
		})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if system := strings.TrimSpace(req.System); system != "" {
		params.System = []anthropic.TextBlockParam{{
			Text: system,
			Type: "text",
		}}
	}
	if req.Temperature != 0 {
		params.Temperature = param.NewOpt(req.Temperature)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return &Response{
		Text:       sb.String(),
		StopReason: string(msg.StopReason),
		Usage: Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}

func toClaudeRole(role string) anthropic.MessageParamRole {
	if strings.EqualFold(strings.TrimSpace(role), "assistant") {
		return anthropic.MessageParamRoleAssistant
	}
	return anthropic.MessageParamRoleUser
}

// The SDK appends /v1 itself; a configured base URL carrying the suffix
// would double it.
func sdkBaseURL(base string) string {
	base = strings.TrimSpace(strings.TrimRight(base, "/"))
	return strings.TrimSuffix(base, "/v1")
}
