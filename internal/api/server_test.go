package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	run "go-mas/internal/agents/run/actor"
	"go-mas/internal/engine"
	"go-mas/pkg/blackboard"
	"go-mas/pkg/models"
)

type instantRunner struct{}

func (instantRunner) Run(_ context.Context, board *blackboard.Store, req engine.Request) (engine.Result, error) {
	board.Write(blackboard.ReasoningTopic, map[string]any{"answer": "4"}, false)
	return engine.Result{TraceID: req.TraceID, Answer: "4", Confidence: models.ConfidenceHigh}, nil
}

func newTestServer() http.Handler {
	build := func(func(models.Transition)) run.Runner { return instantRunner{} }
	return New(actor.NewActorSystem().Root, ":0", build, nil).Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_RunLifecycle(t *testing.T) {
	h := newTestServer()

	rec := do(t, h, http.MethodPost, "/runs", `{"query": "2+2?", "attachments": []}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var created struct {
		Id string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Id)

	var got getStatus
	assert.Eventually(t, func() bool {
		rec := do(t, h, http.MethodGet, "/runs/"+created.Id, "")
		if rec.Code != http.StatusOK {
			return false
		}
		got = getStatus{}
		return json.Unmarshal(rec.Body.Bytes(), &got) == nil && got.Status.State == models.Finished
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "4", got.Status.Answer)
	assert.Equal(t, "2+2?", got.Status.Query)

	rec = do(t, h, http.MethodGet, "/runs/"+created.Id+"/blackboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"blackboard": {"reasoning": {"answer": "4"}}}`, rec.Body.String())
}

func TestServer_BadRequests(t *testing.T) {
	h := newTestServer()

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/runs", `not json`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/runs", `{"attachments": ["a"]}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/runs/not-a-uuid", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/runs/6f1c2a9e-0000-4000-8000-000000000000", "").Code)
}
