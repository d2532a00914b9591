package reasoning

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	langChainPrompts "github.com/tmc/langchaingo/prompts"
)

// Chain generates through langchaingo LLM chains, one chain per prompt template.
type Chain struct {
	llm       llms.Model
	maxTokens int

	mu     sync.Mutex
	chains map[string]chains.Chain
}

// NewOpenAI builds a Chain on the OpenAI client. maxTokens of zero leaves the
// provider default.
func NewOpenAI(model, token string, maxTokens int) (*Chain, error) {
	opts := []openai.Option{}
	if model != "" {
		opts = append(opts, openai.WithModel(model))
	}
	if token != "" {
		opts = append(opts, openai.WithToken(token))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return NewChain(llm, maxTokens), nil
}

func NewChain(llm llms.Model, maxTokens int) *Chain {
	return &Chain{
		llm:       llm,
		maxTokens: maxTokens,
		chains:    map[string]chains.Chain{},
	}
}

func (c *Chain) Generate(ctx context.Context, text string, inputs map[string]any) (string, error) {
	opts := []chains.ChainCallOption{}
	if c.maxTokens > 0 {
		opts = append(opts, chains.WithMaxTokens(c.maxTokens))
	}
	completion, err := chains.Call(ctx, c.chain(text, inputs), inputs, opts...)
	if err != nil {
		return "", fmt.Errorf("call: %w", err)
	}
	out, ok := completion["text"].(string)
	if !ok {
		return "", fmt.Errorf("call: unexpected completion %v", completion)
	}
	return out, nil
}

func (c *Chain) chain(text string, inputs map[string]any) chains.Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.chains[text]; ok {
		return ch
	}
	vars := make([]string, 0, len(inputs))
	for k := range inputs {
		vars = append(vars, k)
	}
	ch := chains.NewLLMChain(c.llm, langChainPrompts.NewPromptTemplate(text, vars))
	c.chains[text] = ch
	return ch
}
