// Package openai provides extract.Extractor and compose.Generator
// implementations backed by the OpenAI Chat Completions API. It translates
// orchestrator inputs into ChatCompletion calls using
// github.com/openai/openai-go and parses the responses back into the generic
// orchestrator structures.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"goa.design/voyage/runtime/trip"
	"goa.design/voyage/runtime/trip/compose"
	"goa.design/voyage/runtime/trip/extract"
	"goa.design/voyage/runtime/trip/plan"
)

// ChatClient captures the subset of the openai-go client used by the adapter.
type ChatClient interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Options configures the OpenAI adapter.
type Options struct {
	Client ChatClient
	Model  string
}

// Client implements extract.Extractor and compose.Generator via the OpenAI
// Chat Completions API.
type Client struct {
	chat  ChatClient
	model string
}

// New builds an OpenAI-backed adapter from the provided options.
func New(opts Options) (*Client, error) {
	if opts.Client == nil {
		return nil, errors.New("openai client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("model is required")
	}
	return &Client{chat: opts.Client, model: opts.Model}, nil
}

// NewFromAPIKey constructs an adapter using the default openai-go HTTP client.
func NewFromAPIKey(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return New(Options{Client: &client.Chat.Completions, Model: model})
}

// Extract implements extract.Extractor.
func (c *Client) Extract(ctx context.Context, conversation []trip.Message, prev *plan.Plan) (extract.Candidate, error) {
	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(extract.SystemPrompt),
			openai.UserMessage(extract.ConversationPayload(conversation, prev)),
		},
	})
	if err != nil {
		return extract.Candidate{}, fmt.Errorf("openai extraction: %w", err)
	}
	text, err := firstChoice(resp)
	if err != nil {
		return extract.Candidate{}, err
	}
	return extract.ParseCandidate([]byte(extract.StripFences(text)))
}

// Generate implements compose.Generator.
func (c *Client) Generate(ctx context.Context, d compose.Directive) (string, error) {
	payload, err := json.Marshal(struct {
		Plan     plan.Plan                     `json:"plan"`
		Sections map[trip.Category][]trip.Item `json:"sections"`
		Packages []compose.Package             `json:"packages,omitempty"`
	}{Plan: d.Plan, Sections: d.Sections, Packages: d.Packages})
	if err != nil {
		return "", err
	}
	system := "You write trip summaries for travelers.\nRules:\n- " + strings.Join(d.Instructions, "\n- ")
	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(string(payload)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai generation: %w", err)
	}
	return firstChoice(resp)
}

func firstChoice(resp *openai.ChatCompletion) (string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("openai: response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
