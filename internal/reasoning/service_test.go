package reasoning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-mas/pkg/memory/buffer"
	"go-mas/pkg/prompts"
	"go-mas/pkg/tools"
)

type fakeLLM struct {
	answer string
	err    error
	text   string
	inputs map[string]any
	block  bool
}

func (f *fakeLLM) Generate(ctx context.Context, text string, inputs map[string]any) (string, error) {
	f.text = text
	f.inputs = inputs
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.answer, f.err
}

func TestParseDecision(t *testing.T) {
	d, err := ParseDecision("ok:\n{\"action\": \"Blackboard_Write\", \"arguments\": {\"namespace\": \"plan\", \"payload\": {\"a\": {\"b\": 1}}}, \"reasoning\": \"r\"}")
	require.NoError(t, err)
	assert.Equal(t, tools.BlackboardWrite, d.Action)
	assert.False(t, d.Final())
	assert.Equal(t, "plan", d.Arguments["namespace"])
	assert.Equal(t, map[string]any{"a": map[string]any{"b": float64(1)}}, d.Arguments["payload"])
}

func TestParseDecision_PlainTextIsFinal(t *testing.T) {
	d, err := ParseDecision("  the plan has been written  ")
	require.NoError(t, err)
	assert.True(t, d.Final())
	assert.Equal(t, "the plan has been written", d.Response)
}

func TestParseDecision_Malformed(t *testing.T) {
	_, err := ParseDecision(`{"action": ["not", "a", "string"]}`)
	assert.ErrorIs(t, err, ErrMalformedDecision)
}

func TestService_Decide(t *testing.T) {
	llm := &fakeLLM{answer: `{"action": "finish", "response": "done"}`}
	svc := New(llm, time.Second)
	history := &buffer.Memories{}
	history.Add(buffer.Memory{Question: "q", Answer: "a"})

	d, err := svc.Decide(context.Background(), Request{
		Role:    "  role  ",
		Task:    "task",
		Context: "ctx",
		Actions: []tools.Tool{tools.BlackboardRead},
		History: history,
	})
	require.NoError(t, err)
	assert.True(t, d.Final())
	assert.Equal(t, "done", d.Response)
	assert.Equal(t, prompts.ActionTemplate, llm.text)
	assert.Equal(t, "role", llm.inputs["Role"])
	assert.Contains(t, llm.inputs["Actions"], "blackboard_read")
	assert.Contains(t, llm.inputs["Actions"], "finish")
	assert.Equal(t, `[{"question":"q","answer":"a"}]`, llm.inputs["History"])
}

func TestService_DecideError(t *testing.T) {
	boom := errors.New("boom")
	svc := New(&fakeLLM{err: boom}, 0)
	_, err := svc.Decide(context.Background(), Request{})
	assert.ErrorIs(t, err, boom)
}

func TestService_Timeout(t *testing.T) {
	svc := New(&fakeLLM{block: true}, 10*time.Millisecond)
	_, err := svc.Generate(context.Background(), "x", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
