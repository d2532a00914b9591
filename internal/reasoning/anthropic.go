package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"go-mas/pkg/template"
)

const defaultAnthropicMaxTokens = 4096

// Anthropic generates through the Anthropic messages API.
type Anthropic struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

func NewAnthropic(model, apiKey string, maxTokens int) (*Anthropic, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is not set")
	}
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_20250514)
	}
	limit := int64(maxTokens)
	if limit <= 0 {
		limit = defaultAnthropicMaxTokens
	}
	return &Anthropic{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.Model(model),
		maxTokens: limit,
	}, nil
}

func (a *Anthropic) Generate(ctx context.Context, text string, inputs map[string]any) (string, error) {
	prompt, err := template.Parse(text, inputs)
	if err != nil {
		return "", err
	}
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("messages: %w", err)
	}
	var out strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			out.WriteString(variant.Text)
		}
	}
	return out.String(), nil
}
