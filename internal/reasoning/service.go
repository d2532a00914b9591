// Package reasoning talks to the external text-generation service. A Service turns
// a worker's situation into a Decision: either one of the permitted actions with its
// arguments, or a final response.
package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-mas/pkg/data"
	"go-mas/pkg/memory/buffer"
	"go-mas/pkg/prompts"
	"go-mas/pkg/tools"
)

var ErrMalformedDecision = errors.New("reasoning: malformed decision")

// LLM renders a prompt template with inputs and returns the raw completion.
type LLM interface {
	Generate(ctx context.Context, text string, inputs map[string]any) (string, error)
}

// Decider is what the worker action loop needs from the reasoning service.
type Decider interface {
	Decide(ctx context.Context, req Request) (Decision, error)
}

type Request struct {
	Role    string
	Task    string
	Context string
	Actions []tools.Tool
	History *buffer.Memories
}

type Decision struct {
	Action    tools.Tool     `json:"action"`
	Arguments map[string]any `json:"arguments"`
	Reasoning string         `json:"reasoning"`
	Response  string         `json:"response"`
}

// Final reports whether the decision ends the loop instead of asking for an action.
func (d Decision) Final() bool {
	return d.Action == "" || d.Action == tools.Finish
}

type Service struct {
	llm     LLM
	timeout time.Duration
}

func New(llm LLM, timeout time.Duration) *Service {
	return &Service{llm: llm, timeout: timeout}
}

// Generate runs a single completion bounded by the service timeout.
func (s *Service) Generate(ctx context.Context, text string, inputs map[string]any) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	out, err := s.llm.Generate(ctx, text, inputs)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return out, nil
}

func (s *Service) Decide(ctx context.Context, req Request) (Decision, error) {
	history := "[]"
	if req.History != nil {
		history = req.History.String()
	}
	answer, err := s.Generate(ctx, prompts.ActionTemplate, map[string]any{
		"Role":    strings.TrimSpace(req.Role),
		"Task":    req.Task,
		"Context": req.Context,
		"History": history,
		"Actions": describe(req.Actions),
	})
	if err != nil {
		return Decision{}, err
	}
	return ParseDecision(answer)
}

// ParseDecision reads the json block of a model answer. An answer without any json
// is taken as a final textual response.
func ParseDecision(answer string) (Decision, error) {
	match, err := data.SanitizeAnswer(answer)
	if err != nil {
		return Decision{Action: tools.Finish, Response: strings.TrimSpace(answer)}, nil
	}
	res := Decision{}
	if err := json.Unmarshal([]byte(match), &res); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrMalformedDecision, err)
	}
	res.Action = tools.Tool(strings.ToLower(strings.TrimSpace(string(res.Action))))
	if res.Arguments == nil {
		res.Arguments = map[string]any{}
	}
	return res, nil
}

func describe(actions []tools.Tool) string {
	var b strings.Builder
	for _, a := range actions {
		fmt.Fprintf(&b, "\t- %s: %s\n", a, a.Description())
	}
	fmt.Fprintf(&b, "\t- %s: %s\n", tools.Finish, tools.Finish.Description())
	return b.String()
}
