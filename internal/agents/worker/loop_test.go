package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-mas/internal/reasoning"
	"go-mas/pkg/blackboard"
	"go-mas/pkg/tools"
)

type scripted struct {
	decisions []reasoning.Decision
	errs      []error
	calls     int
	requests  []reasoning.Request
}

func (s *scripted) Decide(_ context.Context, req reasoning.Request) (reasoning.Decision, error) {
	s.requests = append(s.requests, req)
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return reasoning.Decision{}, s.errs[i]
	}
	if i < len(s.decisions) {
		return s.decisions[i], nil
	}
	return reasoning.Decision{Action: tools.BlackboardRead, Arguments: map[string]any{"namespace": "plan"}}, nil
}

func TestBudget(t *testing.T) {
	b := NewBudget(2)
	require.NoError(t, b.Take())
	require.NoError(t, b.Take())
	assert.ErrorIs(t, b.Take(), ErrRoundsExhausted)
	assert.Equal(t, 2, b.Used())
	assert.Equal(t, 0, b.Remaining())
}

func TestLoop_StopsAtRoundLimit(t *testing.T) {
	board := blackboard.New()
	dec := &scripted{}
	l := &Loop{Name: "test", Decider: dec, Actions: map[tools.Tool]Action{tools.BlackboardRead: ReadAction(board)}}

	res, err := l.Run(context.Background(), Invocation{Task: "t", Tools: []tools.Tool{tools.BlackboardRead}, MaxRounds: 4}, "")
	assert.ErrorIs(t, err, ErrRoundsExhausted)
	assert.Equal(t, 4, res.Rounds)
	assert.Equal(t, 4, dec.calls)
	assert.Equal(t, 4, res.Transcript.Len())
}

func TestLoop_WriteThenDone(t *testing.T) {
	board := blackboard.New()
	dec := &scripted{decisions: []reasoning.Decision{
		{Action: tools.Calculate, Arguments: map[string]any{}},
		{Action: tools.BlackboardWrite, Arguments: map[string]any{"namespace": "other", "payload": map[string]any{"a": 1}}},
		{Action: tools.BlackboardWrite, Arguments: map[string]any{"namespace": "reasoning", "payload": map[string]any{"a": 1}}},
	}}
	l := &Loop{
		Name:    "test",
		Decider: dec,
		Actions: map[tools.Tool]Action{
			tools.BlackboardWrite: WriteAction(board, "reasoning", nil),
			tools.Calculate:       func(context.Context, map[string]any) (string, error) { return "", errors.New("unused") },
		},
		Done: func() bool { return board.Has("reasoning") },
	}

	res, err := l.Run(context.Background(), Invocation{Tools: []tools.Tool{tools.BlackboardWrite}, MaxRounds: 10}, "")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rounds)
	assert.Contains(t, res.Transcript.Items[0].Answer, "not permitted")
	assert.Contains(t, res.Transcript.Items[1].Answer, `only write namespace "reasoning"`)
	assert.Equal(t, map[string]any{"a": 1}, board.Read("reasoning", nil))
	// each round sees the transcript of the rounds before it
	assert.Len(t, dec.requests, 3)
}

func TestLoop_ReflectRejectsEarlyFinish(t *testing.T) {
	dec := &scripted{decisions: []reasoning.Decision{
		{Action: tools.Finish, Response: "written"},
		{Action: tools.Finish, Response: "really written"},
	}}
	rejected := 0
	l := &Loop{
		Name:    "test",
		Decider: dec,
		Reflect: func(d reasoning.Decision) (string, bool) {
			if rejected == 0 {
				rejected++
				return "not yet", true
			}
			return "", false
		},
	}

	res, err := l.Run(context.Background(), Invocation{MaxRounds: 5}, "")
	require.NoError(t, err)
	assert.Equal(t, "really written", res.Final)
	assert.Equal(t, 2, res.Rounds)
	assert.Equal(t, "not yet", res.Transcript.Items[0].Answer)
}

func TestLoop_ServiceErrorFails(t *testing.T) {
	boom := errors.New("timeout")
	dec := &scripted{errs: []error{reasoning.ErrMalformedDecision, boom}}
	l := &Loop{Name: "test", Decider: dec}

	res, err := l.Run(context.Background(), Invocation{MaxRounds: 5}, "")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, res.Rounds)
	assert.Equal(t, 1, res.Transcript.Len())
}

func TestLoop_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := &Loop{Name: "test", Decider: &scripted{}}

	_, err := l.Run(ctx, Invocation{MaxRounds: 5}, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadAction(t *testing.T) {
	board := blackboard.New()
	read := ReadAction(board)

	out, err := read(context.Background(), map[string]any{"namespace": "plan"})
	require.NoError(t, err)
	assert.Equal(t, `namespace "plan" is empty`, out)

	board.Write("plan", map[string]any{"task_type": "reasoning"}, false)
	out, err = read(context.Background(), map[string]any{"namespace": "plan"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"task_type": "reasoning"}`, out)

	_, err = read(context.Background(), map[string]any{})
	assert.Error(t, err)
}
