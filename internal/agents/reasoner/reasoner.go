package reasoner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"go-mas/internal/agents/worker"
	"go-mas/internal/reasoning"
	"go-mas/internal/services/compute"
	"go-mas/pkg/blackboard"
	"go-mas/pkg/logger"
	"go-mas/pkg/models"
	"go-mas/pkg/prompts"
	"go-mas/pkg/tools"
)

const Name = "reasoner"

var ErrNoAnswer = errors.New("reasoning payload has no answer")

type Reasoner struct {
	decider    reasoning.Decider
	calculator compute.Calculator
}

func New(decider reasoning.Decider, calculator compute.Calculator) *Reasoner {
	return &Reasoner{decider: decider, calculator: calculator}
}

func (r *Reasoner) Name() string {
	return Name
}

func (r *Reasoner) Invoke(ctx context.Context, board *blackboard.Store, inv worker.Invocation) worker.Outcome {
	l := log.With().Str(logger.AgentNameField, Name).Logger()
	written := func() bool { return board.Has(blackboard.ReasoningTopic) }

	loop := &worker.Loop{
		Name:    Name,
		Decider: r.decider,
		Role:    prompts.ReasonerRole,
		Actions: map[tools.Tool]worker.Action{
			tools.BlackboardRead:  worker.ReadAction(board),
			tools.BlackboardWrite: worker.WriteAction(board, blackboard.ReasoningTopic, prepare),
			tools.Calculate:       r.calculate,
		},
		Done: written,
		Reflect: func(reasoning.Decision) (string, bool) {
			if written() {
				return "", false
			}
			return prompts.ReasonerReflexion, true
		},
	}

	l.Info().Msg("reasoning...")
	res, err := loop.Run(ctx, inv, known(board))
	if !written() {
		if err == nil {
			err = worker.ErrNotProduced
		}
		l.Error().Err(err).Int(logger.RoundField, res.Rounds).Msg("no reasoning written")
		return worker.Fail(res.Rounds, res.Transcript, fmt.Errorf("reasoner: %w", err))
	}

	if insufficientEvidence(board) {
		l.Info().Msg("evidence is insufficient, lowering confidence")
		board.Write(blackboard.ReasoningTopic, map[string]any{"confidence": string(models.ConfidenceLow)}, true)
	}
	l.Info().Int(logger.RoundField, res.Rounds).Msg("reasoning written")
	return worker.Complete(res.Rounds, res.Transcript)
}

func (r *Reasoner) calculate(ctx context.Context, args map[string]any) (string, error) {
	expr, _ := args["expression"].(string)
	v, err := r.calculator.Evaluate(ctx, expr)
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

// prepare normalizes the model's payload into a ReasoningDocument. Answers that
// are not strings are kept as their JSON text.
func prepare(payload any) (any, error) {
	m, ok := payload.(map[string]any)
	if !ok {
		return nil, errors.New("payload must be an object")
	}
	answer, ok := m["answer"]
	if !ok || answer == nil {
		return nil, ErrNoAnswer
	}
	if _, isString := answer.(string); !isString {
		b, err := json.Marshal(answer)
		if err != nil {
			return nil, fmt.Errorf("answer: %w", err)
		}
		m["answer"] = string(b)
	}
	if strings.TrimSpace(m["answer"].(string)) == "" {
		return nil, ErrNoAnswer
	}

	var doc models.ReasoningDocument
	if err := blackboard.Decode(m, &doc); err != nil {
		return nil, fmt.Errorf("payload does not follow the reasoning format: %w", err)
	}
	doc.Confidence = confidence(doc.Confidence)
	if doc.Citations == nil {
		doc.Citations = []string{}
	}
	if doc.EvidenceUsed == nil {
		doc.EvidenceUsed = []string{}
	}
	return doc, nil
}

func confidence(c models.Confidence) models.Confidence {
	switch v := models.Confidence(strings.ToLower(strings.TrimSpace(string(c)))); v {
	case models.ConfidenceHigh, models.ConfidenceMedium, models.ConfidenceLow:
		return v
	default:
		return models.ConfidenceMedium
	}
}

// insufficientEvidence holds when the plan needed retrieval but nothing usable came back.
func insufficientEvidence(board *blackboard.Store) bool {
	var plan models.PlanDocument
	if err := blackboard.Decode(board.Read(blackboard.PlanTopic, nil), &plan); err != nil {
		return false
	}
	if !plan.TaskType.NeedsRetrieval() {
		return false
	}
	raw := board.Read(blackboard.RetrievalTopic, nil)
	if raw == nil {
		return true
	}
	var doc models.RetrievalDocument
	if err := blackboard.Decode(raw, &doc); err != nil {
		return true
	}
	return doc.Status != models.RetrievalSuccess || len(doc.Results) == 0
}

func known(board *blackboard.Store) string {
	var b strings.Builder
	for _, topic := range []string{blackboard.PlanTopic, blackboard.RetrievalTopic} {
		v := board.Read(topic, nil)
		if v == nil {
			fmt.Fprintf(&b, "%s: not available\n", topic)
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", topic, raw)
	}
	return b.String()
}
