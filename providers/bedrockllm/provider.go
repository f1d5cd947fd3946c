// Package bedrockllm implements one backend of the wascc:llm capability: a
// text-completion call against AWS Bedrock's InvokeModel API for Anthropic
// Claude models.
//
// It's a thin wrapper over *bedrockruntime.Client, constructed once via
// config.LoadDefaultConfig, with request/response shapes matching the
// Bedrock Anthropic Messages wire format.
package bedrockllm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/ferro-labs/caphost/invocation"
	"github.com/ferro-labs/caphost/plugin"
)

var _ plugin.Provider = (*Provider)(nil)

// CapabilityID is the address this provider registers under. A second
// backend for the same capability id can be loaded under a different
// binding — see providers/openaillm — since the router keys on
// (binding, capability_id), not capability_id alone.
const CapabilityID = "wascc:llm"

const opComplete = "complete"

const configSchema = `{
	"type": "object",
	"properties": {
		"region": {"type": "string"},
		"model_id": {"type": "string"}
	}
}`

// CompleteRequest is the JSON payload an actor sends for the "complete"
// operation.
type CompleteRequest struct {
	Prompt      string   `json:"prompt"`
	System      string   `json:"system,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// CompleteResponse is the JSON payload returned for a successful
// "complete" call.
type CompleteResponse struct {
	Text         string `json:"text"`
	StopReason   string `json:"stop_reason"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

type bedrockAnthropicRequest struct {
	AnthropicVersion string                    `json:"anthropic_version"`
	MaxTokens        int                       `json:"max_tokens"`
	Messages         []bedrockAnthropicMessage `json:"messages"`
	Temperature      *float64                  `json:"temperature,omitempty"`
	System           string                    `json:"system,omitempty"`
}

type bedrockAnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockAnthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Provider implements the wascc:llm capability against Bedrock. It never
// calls Dispatch: a model-completion capability has no reason to call
// back into an actor.
type Provider struct {
	client  *bedrockruntime.Client
	modelID string
}

// New builds a Provider bound to region, defaulting modelID to Claude 3.5
// Sonnet if empty.
func New(region, modelID string) (*Provider, error) {
	if region == "" {
		region = "us-east-1"
	}
	if modelID == "" {
		modelID = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	}
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("bedrockllm: load AWS config: %w", err)
	}
	return &Provider{client: bedrockruntime.NewFromConfig(cfg), modelID: modelID}, nil
}

func init() {
	plugin.RegisterFactory("bedrockllm", newFromSettings)
}

func newFromSettings(settings map[string]any) (plugin.Provider, error) {
	region, _ := settings["region"].(string)
	modelID, _ := settings["model_id"].(string)
	return New(region, modelID)
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

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	bedrockReq := bedrockAnthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        maxTokens,
		Messages:         []bedrockAnthropicMessage{{Role: "user", Content: req.Prompt}},
		Temperature:      req.Temperature,
		System:           req.System,
	}
	body, err := json.Marshal(bedrockReq)
	if err != nil {
		return nil, fmt.Errorf("wascc:llm: marshal bedrock request: %w", err)
	}

	out, err := p.client.InvokeModel(context.Background(), &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("wascc:llm: bedrock invoke: %w", err)
	}

	var bedrockResp bedrockAnthropicResponse
	if err := json.Unmarshal(out.Body, &bedrockResp); err != nil {
		return nil, fmt.Errorf("wascc:llm: unmarshal bedrock response: %w", err)
	}

	var text string
	for _, c := range bedrockResp.Content {
		if c.Type == "text" {
			text += c.Text
		}
	}

	return json.Marshal(CompleteResponse{
		Text:         text,
		StopReason:   bedrockResp.StopReason,
		InputTokens:  bedrockResp.Usage.InputTokens,
		OutputTokens: bedrockResp.Usage.OutputTokens,
	})
}

func (p *Provider) Descriptor() invocation.CapabilityDescriptor {
	return invocation.CapabilityDescriptor{
		ID:           CapabilityID,
		Name:         "Bedrock LLM",
		Version:      "0.1.0",
		SupportedOps: []string{opComplete},
		ConfigSchema: configSchema,
	}
}

func (p *Provider) Shutdown() error {
	return nil
}
