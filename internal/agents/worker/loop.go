package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"go-mas/internal/reasoning"
	"go-mas/pkg/blackboard"
	"go-mas/pkg/logger"
	"go-mas/pkg/memory/buffer"
	"go-mas/pkg/tools"
)

// Action runs one permitted action and returns what the worker observes.
type Action func(ctx context.Context, args map[string]any) (string, error)

// Loop is a bounded decide, act, observe cycle over the reasoning service.
type Loop struct {
	Name    string
	Decider reasoning.Decider
	Role    string
	Actions map[tools.Tool]Action
	// Done is checked after every action and ends the loop once it holds.
	Done func() bool
	// Reflect may reject a final decision; the returned text is fed back as an observation.
	Reflect func(d reasoning.Decision) (string, bool)
}

type LoopResult struct {
	Rounds     int
	Final      string
	Transcript buffer.Memories
}

// Run iterates until the model finishes, Done holds, the service fails, the context
// ends, or inv.MaxRounds rounds have been spent.
func (l *Loop) Run(ctx context.Context, inv Invocation, known string) (LoopResult, error) {
	lg := log.With().Str(logger.AgentNameField, l.Name).Logger()
	budget := NewBudget(inv.MaxRounds)
	res := LoopResult{}

	for {
		res.Rounds = budget.Used()
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := budget.Take(); err != nil {
			lg.Warn().Int(logger.RoundField, budget.Used()).Msg("round budget exhausted")
			return res, err
		}
		round := budget.Used()

		d, err := l.Decider.Decide(ctx, reasoning.Request{
			Role:    l.Role,
			Task:    inv.Task,
			Context: known,
			Actions: inv.Tools,
			History: &res.Transcript,
		})
		if errors.Is(err, reasoning.ErrMalformedDecision) {
			lg.Debug().Int(logger.RoundField, round).Err(err).Msg("malformed decision")
			res.Transcript.Add(buffer.Memory{Question: "decision", Answer: "error: your answer was not valid json, follow the format"})
			continue
		}
		if err != nil {
			res.Rounds = round
			return res, fmt.Errorf("decide: %w", err)
		}

		if d.Final() {
			if l.Reflect != nil {
				if msg, veto := l.Reflect(d); veto {
					lg.Info().Int(logger.RoundField, round).Msg("finish rejected")
					res.Transcript.Add(buffer.Memory{Question: string(tools.Finish), Answer: msg})
					continue
				}
			}
			res.Rounds = round
			res.Final = d.Response
			return res, nil
		}

		observation := l.act(ctx, inv, d)
		lg.Info().Int(logger.RoundField, round).Str(logger.ToolField, string(d.Action)).Msg("action taken")
		res.Transcript.Add(buffer.Memory{Question: describeCall(d), Answer: observation})

		if l.Done != nil && l.Done() {
			res.Rounds = round
			return res, nil
		}
	}
}

func (l *Loop) act(ctx context.Context, inv Invocation, d reasoning.Decision) string {
	action, ok := l.Actions[d.Action]
	if !ok || !tools.Contains(inv.Tools, d.Action) {
		return fmt.Sprintf("error: action %q is not permitted", d.Action)
	}
	out, err := action(ctx, d.Arguments)
	if err != nil {
		return "error: " + err.Error()
	}
	return out
}

func describeCall(d reasoning.Decision) string {
	args, err := json.Marshal(d.Arguments)
	if err != nil {
		return string(d.Action)
	}
	return fmt.Sprintf("%s %s", d.Action, args)
}

// ReadAction reads any topic of the board.
func ReadAction(board *blackboard.Store) Action {
	return func(_ context.Context, args map[string]any) (string, error) {
		ns, _ := args["namespace"].(string)
		if ns == "" {
			return "", errors.New("namespace is required")
		}
		v := board.Read(ns, nil)
		if v == nil {
			return fmt.Sprintf("namespace %q is empty", ns), nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshal: %w", err)
		}
		return string(b), nil
	}
}

// WriteAction replaces the worker's own topic with the payload argument. prepare
// may validate or reshape the payload before it is written.
func WriteAction(board *blackboard.Store, topic string, prepare func(payload any) (any, error)) Action {
	return func(_ context.Context, args map[string]any) (string, error) {
		if ns, _ := args["namespace"].(string); ns != "" && ns != topic {
			return "", fmt.Errorf("you may only write namespace %q", topic)
		}
		payload, ok := args["payload"]
		if !ok || payload == nil {
			return "", errors.New("payload is required")
		}
		if prepare != nil {
			var err error
			if payload, err = prepare(payload); err != nil {
				return "", err
			}
		}
		board.Write(topic, payload, false)
		log.Debug().Str(logger.TopicField, topic).Msg("topic written")
		return fmt.Sprintf("namespace %q written", topic), nil
	}
}
