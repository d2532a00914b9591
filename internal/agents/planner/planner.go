package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"go-mas/internal/agents/worker"
	"go-mas/internal/reasoning"
	"go-mas/pkg/blackboard"
	"go-mas/pkg/logger"
	"go-mas/pkg/models"
	"go-mas/pkg/prompts"
	"go-mas/pkg/tools"
)

const Name = "planner"

var ErrAlreadyWritten = errors.New("the plan was already written, finish now")

// Planner turns the raw query into the run's PlanDocument.
type Planner struct {
	decider  reasoning.Decider
	validate *validator.Validate
}

func New(decider reasoning.Decider) *Planner {
	return &Planner{decider: decider, validate: validator.New()}
}

func (p *Planner) Name() string {
	return Name
}

func (p *Planner) Invoke(ctx context.Context, board *blackboard.Store, inv worker.Invocation) worker.Outcome {
	l := log.With().Str(logger.AgentNameField, Name).Logger()
	written := false
	loop := &worker.Loop{
		Name:    Name,
		Decider: p.decider,
		Role:    prompts.PlannerRole,
		Actions: map[tools.Tool]worker.Action{
			tools.BlackboardRead:  worker.ReadAction(board),
			tools.BlackboardWrite: worker.WriteAction(board, blackboard.PlanTopic, p.prepare(inv, &written)),
		},
		Done: func() bool { return written },
	}

	l.Info().Msg("planning...")
	res, err := loop.Run(ctx, inv, known(inv))
	if !board.Has(blackboard.PlanTopic) {
		if err == nil {
			err = worker.ErrNotProduced
		}
		l.Error().Err(err).Int(logger.RoundField, res.Rounds).Msg("no plan written")
		return worker.Fail(res.Rounds, res.Transcript, fmt.Errorf("planner: %w", err))
	}
	l.Info().Int(logger.RoundField, res.Rounds).Msg("plan written")
	return worker.Complete(res.Rounds, res.Transcript)
}

// prepare validates the model's payload as a PlanDocument and fills what it left out.
// Only the first valid plan of an invocation is accepted.
func (p *Planner) prepare(inv worker.Invocation, written *bool) func(payload any) (any, error) {
	return func(payload any) (any, error) {
		if *written {
			return nil, ErrAlreadyWritten
		}
		var plan models.PlanDocument
		if err := blackboard.Decode(payload, &plan); err != nil {
			return nil, fmt.Errorf("payload does not follow the plan format: %w", err)
		}
		plan.TaskType = models.TaskType(strings.ToLower(strings.TrimSpace(string(plan.TaskType))))
		if strings.TrimSpace(plan.Query) == "" {
			plan.Query = inv.Query
		}
		if len(plan.Attachments) == 0 {
			plan.Attachments = inv.Attachments
		}
		if err := p.validate.Struct(plan); err != nil {
			return nil, fmt.Errorf("invalid plan: %w", err)
		}
		*written = true
		return plan, nil
	}
}

func known(inv worker.Invocation) string {
	list := inv.Attachments
	if list == nil {
		list = []string{}
	}
	attachments, _ := json.Marshal(list)
	return fmt.Sprintf("question: %s\nattachments: %s", inv.Query, attachments)
}
