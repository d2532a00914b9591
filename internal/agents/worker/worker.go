// Package worker defines the contract every pipeline stage implements and the
// bounded decide, act, observe loop the model-driven stages share.
package worker

import (
	"context"
	"errors"
	"fmt"

	"go-mas/pkg/blackboard"
	"go-mas/pkg/memory/buffer"
	"go-mas/pkg/models"
	"go-mas/pkg/tools"
)

var (
	ErrRoundsExhausted = errors.New("worker: action rounds exhausted")
	ErrNotProduced     = errors.New("worker: required topic was not written")
)

// Invocation is what a stage hands to its worker. Query and Attachments carry the
// run's original request.
type Invocation struct {
	Task        string
	Query       string
	Attachments []string
	Tools       []tools.Tool
	MaxRounds   int
}

// Outcome is how the invocation ended. Err is set whenever Status is not Completed.
type Outcome struct {
	Status     models.Outcome
	Rounds     int
	Err        error
	Transcript buffer.Memories
}

func (o Outcome) Completed() bool {
	return o.Status == models.Completed
}

type Worker interface {
	Name() string
	Invoke(ctx context.Context, board *blackboard.Store, inv Invocation) Outcome
}

func Complete(rounds int, transcript buffer.Memories) Outcome {
	return Outcome{Status: models.Completed, Rounds: rounds, Transcript: transcript}
}

func Fail(rounds int, transcript buffer.Memories, err error) Outcome {
	return Outcome{Status: models.Aborted, Rounds: rounds, Err: err, Transcript: transcript}
}

// Budget counts action rounds against a hard limit.
type Budget struct {
	limit int
	used  int
}

func NewBudget(limit int) *Budget {
	return &Budget{limit: limit}
}

// Take spends one round.
func (b *Budget) Take() error {
	if b.used >= b.limit {
		return fmt.Errorf("%w after %d rounds", ErrRoundsExhausted, b.used)
	}
	b.used++
	return nil
}

func (b *Budget) Used() int {
	return b.used
}

func (b *Budget) Remaining() int {
	return b.limit - b.used
}
