package reasoning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms/fake"
)

func TestChain_Generate(t *testing.T) {
	llm := fake.NewFakeLLM([]string{`{"action": "finish", "response": "ok"}`, "second"})
	c := NewChain(llm, 256)

	out, err := c.Generate(context.Background(), "Task: {{.Task}}", map[string]any{"Task": "plan"})
	require.NoError(t, err)
	assert.Equal(t, `{"action": "finish", "response": "ok"}`, out)

	out, err = c.Generate(context.Background(), "Task: {{.Task}}", map[string]any{"Task": "again"})
	require.NoError(t, err)
	assert.Equal(t, "second", out)
	assert.Len(t, c.chains, 1)
}
