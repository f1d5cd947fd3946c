// Package openaillm implements a second backend of the wascc:llm
// capability: a chat-completion call against the OpenAI API. Loaded under
// a different binding than providers/bedrockllm (same capability_id,
// different binding), it demonstrates that the router keys on the
// (binding, capability_id) pair, not on capability_id alone.
//
// It wraps an openai.Client constructed once via option.WithAPIKey, builds
// a ChatCompletionNewParams request, and maps the SDK's completion/usage
// types to this capability's own small response shape.
package openaillm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ferro-labs/caphost/invocation"
	"github.com/ferro-labs/caphost/plugin"
)

var _ plugin.Provider = (*Provider)(nil)

// CapabilityID is the address this provider registers under.
const CapabilityID = "wascc:llm"

const opComplete = "complete"

const configSchema = `{
	"type": "object",
	"properties": {
		"api_key": {"type": "string"},
		"base_url": {"type": "string"},
		"model": {"type": "string"}
	},
	"required": ["api_key"]
}`

// CompleteRequest is the JSON payload an actor sends for the "complete"
// operation. Shape matches providers/bedrockllm.CompleteRequest so a
// caller can switch bindings without reshaping its payload.
type CompleteRequest struct {
	Prompt      string   `json:"prompt"`
	System      string   `json:"system,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// CompleteResponse is the JSON payload returned for a successful
// "complete" call.
type CompleteResponse struct {
	Text             string `json:"text"`
	FinishReason     string `json:"finish_reason"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// Provider implements the wascc:llm capability against OpenAI. It never
// calls Dispatch: a model-completion capability has no reason to call
// back into an actor.
type Provider struct {
	client openai.Client
	model  string
}

// New builds a Provider authenticated with apiKey, defaulting baseURL to
// the OpenAI default and model to "gpt-4o" if empty.
func New(apiKey, baseURL, model string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openaillm: api_key is required")
	}
	if model == "" {
		model = "gpt-4o"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Provider{client: openai.NewClient(opts...), model: model}, nil
}

func init() {
	plugin.RegisterFactory("openaillm", newFromSettings)
}

func newFromSettings(settings map[string]any) (plugin.Provider, error) {
	apiKey, _ := settings["api_key"].(string)
	baseURL, _ := settings["base_url"].(string)
	model, _ := settings["model"].(string)
	return New(apiKey, baseURL, model)
}

func (p *Provider) Configure(_ plugin.Dispatcher) error {
	return nil
}

func (p *Provider) HandleCall(_ string, operation string, msg []byte) ([]byte, error) {
	if operation != opComplete {
		return nil, fmt.Errorf("wascc:llm: unsupported operation %q", operation)
	}

	var req CompleteRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		return nil, fmt.Errorf("wascc:llm: decode complete request: %w", err)
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    p.model,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	completion, err := p.client.Chat.Completions.New(context.Background(), params)
	if err != nil {
		return nil, fmt.Errorf("wascc:llm: openai chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("wascc:llm: openai returned no choices")
	}

	choice := completion.Choices[0]
	return json.Marshal(CompleteResponse{
		Text:             choice.Message.Content,
		FinishReason:     string(choice.FinishReason),
		PromptTokens:     int(completion.Usage.PromptTokens),
		CompletionTokens: int(completion.Usage.CompletionTokens),
	})
}

func (p *Provider) Descriptor() invocation.CapabilityDescriptor {
	return invocation.CapabilityDescriptor{
		ID:           CapabilityID,
		Name:         "OpenAI LLM",
		Version:      "0.1.0",
		SupportedOps: []string{opComplete},
		ConfigSchema: configSchema,
	}
}

func (p *Provider) Shutdown() error {
	return nil
}
