// Package anthropic provides an extract.Extractor implementation backed by
// the Anthropic Messages API, interchangeable with the OpenAI adapter behind
// the Extractor interface.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"goa.design/voyage/runtime/trip"
	"goa.design/voyage/runtime/trip/extract"
	"goa.design/voyage/runtime/trip/plan"
)

// MessagesClient captures the subset of the Anthropic client used by the
// adapter.
type MessagesClient interface {
	New(ctx context.Context, params sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Options configures the Anthropic adapter.
type Options struct {
	Client    MessagesClient
	Model     string
	MaxTokens int64
}

// Client implements extract.Extractor via the Anthropic Messages API.
type Client struct {
	messages  MessagesClient
	model     string
	maxTokens int64
}

const defaultMaxTokens = 1024

// New builds an Anthropic-backed extractor from the provided options.
func New(opts Options) (*Client, error) {
	if opts.Client == nil {
		return nil, errors.New("anthropic client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("model is required")
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{messages: opts.Client, model: opts.Model, maxTokens: maxTokens}, nil
}

// NewFromAPIKey constructs an adapter using the default Anthropic HTTP client.
func NewFromAPIKey(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(Options{Client: &client.Messages, Model: model})
}

// Extract implements extract.Extractor.
func (c *Client) Extract(ctx context.Context, conversation []trip.Message, prev *plan.Plan) (extract.Candidate, error) {
	msg, err := c.messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []sdk.TextBlockParam{{Text: extract.SystemPrompt}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(extract.ConversationPayload(conversation, prev))),
		},
	})
	if err != nil {
		return extract.Candidate{}, fmt.Errorf("anthropic extraction: %w", err)
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return extract.Candidate{}, errors.New("anthropic: response has no text content")
	}
	return extract.ParseCandidate([]byte(extract.StripFences(b.String())))
}
