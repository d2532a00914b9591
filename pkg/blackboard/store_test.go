package blackboard

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WriteMergeUnionsKeys(t *testing.T) {
	s := New()
	s.Write("plan", map[string]any{"a": 1, "b": "x"}, true)
	s.Write("plan", map[string]any{"b": "y", "c": true}, true)
	res := s.Write("plan", map[string]any{"d": nil, "a": 2}, true)

	want := map[string]any{"a": 2, "b": "y", "c": true, "d": nil}
	assert.Equal(t, want, res)
	assert.Equal(t, want, s.Read("plan", nil))
}

func TestStore_WriteReplaces(t *testing.T) {
	s := New()
	s.Write("plan", map[string]any{"a": 1}, true)

	assert.Equal(t, map[string]any{"b": 2}, s.Write("plan", map[string]any{"b": 2}, false))
	// merging a non-map replaces
	assert.Equal(t, "text", s.Write("plan", "text", true))
	// merging a map onto a non-map replaces
	assert.Equal(t, map[string]any{"c": 3}, s.Write("plan", map[string]any{"c": 3}, true))
}

func TestStore_ReadReturnsIndependentCopy(t *testing.T) {
	s := New()
	written := map[string]any{"list": []any{"a", "b"}, "nested": map[string]any{"k": "v"}}
	confirm := s.Write("retrieval", written, false)

	confirm.(map[string]any)["nested"].(map[string]any)["k"] = "changed"
	written["list"].([]any)[0] = "changed"

	first := s.Read("retrieval", nil).(map[string]any)
	assert.Equal(t, map[string]any{"list": []any{"a", "b"}, "nested": map[string]any{"k": "v"}}, first)

	first["list"].([]any)[1] = "mutated"
	first["extra"] = 1

	second := s.Read("retrieval", nil)
	assert.Equal(t, map[string]any{"list": []any{"a", "b"}, "nested": map[string]any{"k": "v"}}, second)
}

func TestStore_ReadDefault(t *testing.T) {
	s := New()
	def := map[string]any{"k": []any{1}}
	got := s.Read("missing", def).(map[string]any)
	assert.Equal(t, def, got)

	got["k"].([]any)[0] = 2
	assert.Equal(t, 1, def["k"].([]any)[0])
	assert.Nil(t, s.Read("missing", nil))
}

func TestStore_ResetAll(t *testing.T) {
	s := New()
	s.Write("plan", map[string]any{"a": 1}, false)
	s.Write("retrieval", "r", false)

	s.Reset()
	assert.Empty(t, s.Snapshot())
	for _, topic := range []string{"plan", "retrieval", "reasoning"} {
		assert.Equal(t, "D", s.Read(topic, "D"))
	}
}

func TestStore_ResetSubset(t *testing.T) {
	s := New()
	s.Write("plan", map[string]any{"a": 1}, false)
	s.Write("retrieval", map[string]any{"status": "success"}, false)

	remaining := s.Delete("plan", "never-written")
	assert.Equal(t, []string{"retrieval"}, remaining)
	assert.False(t, s.Has("plan"))
	assert.Equal(t, map[string]any{"status": "success"}, s.Read("retrieval", nil))
}

func TestStore_DeleteEmptySet(t *testing.T) {
	s := New()
	s.Write("plan", map[string]any{"a": 1}, false)

	var none []string
	assert.Equal(t, []string{"plan"}, s.Delete(none...))
	assert.Equal(t, []string{"plan"}, s.Delete([]string{}...))
	assert.True(t, s.Has("plan"))
}

type doc struct {
	Name  string   `json:"name"`
	Tags  []string `json:"tags"`
	Count int      `json:"count"`
}

func TestStore_SanitizesValues(t *testing.T) {
	s := New()
	ch := make(chan int)

	got := s.Write("misc", map[string]any{
		"struct": doc{Name: "n", Tags: []string{"a"}, Count: 2},
		"ptr":    &doc{Name: "p"},
		"bytes":  []byte("raw"),
		"err":    errors.New("boom"),
		"ints":   map[int]string{1: "one"},
		"strs":   []string{"x", "y"},
		"chan":   ch,
		"nilptr": (*doc)(nil),
	}, false).(map[string]any)

	assert.Equal(t, map[string]any{"name": "n", "tags": []any{"a"}, "count": float64(2)}, got["struct"])
	assert.Equal(t, map[string]any{"name": "p", "tags": nil, "count": float64(0)}, got["ptr"])
	assert.Equal(t, "raw", got["bytes"])
	assert.Equal(t, "boom", got["err"])
	assert.Equal(t, map[string]any{"1": "one"}, got["ints"])
	assert.Equal(t, []any{"x", "y"}, got["strs"])
	assert.Equal(t, fmt.Sprintf("%v", ch), got["chan"])
	assert.Nil(t, got["nilptr"])
}

func TestStore_NonFiniteFloatsBecomeStrings(t *testing.T) {
	s := New()
	s.Write("calc", map[string]any{
		"nan":  math.NaN(),
		"inf":  math.Inf(1),
		"ninf": float32(math.Inf(-1)),
		"ok":   1.5,
	}, false)

	got := s.Read("calc", nil).(map[string]any)
	assert.Equal(t, map[string]any{"nan": "NaN", "inf": "+Inf", "ninf": "-Inf", "ok": 1.5}, got)

	var out map[string]any
	assert.NoError(t, Decode(got, &out))
}

func TestDecode(t *testing.T) {
	s := New()
	s.Write("doc", doc{Name: "n", Tags: []string{"a", "b"}, Count: 3}, false)

	var out doc
	require.NoError(t, Decode(s.Read("doc", nil), &out))
	assert.Equal(t, doc{Name: "n", Tags: []string{"a", "b"}, Count: 3}, out)
}

func TestStore_ConcurrentMergesKeepEveryKey(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Write("plan", map[string]any{fmt.Sprintf("k%d", i): i}, true)
			_ = s.Read("plan", nil)
		}(i)
	}
	wg.Wait()

	got := s.Read("plan", nil).(map[string]any)
	assert.Len(t, got, 50)
	assert.Len(t, s.Snapshot(), 1)
}
