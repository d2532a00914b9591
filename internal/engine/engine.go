// Package engine drives one run through the plan, retrieve, reason, quality check
// and finalize pipeline over a per-run blackboard.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"go-mas/internal/agents/worker"
	"go-mas/internal/services/sink"
	"go-mas/pkg/blackboard"
	"go-mas/pkg/logger"
	"go-mas/pkg/models"
	"go-mas/pkg/tools"
)

var (
	ErrPlannerFailed  = errors.New("engine: planner produced no plan")
	ErrPlanMissing    = errors.New("engine: plan is missing")
	ErrReasonerFailed = errors.New("engine: reasoner produced no reasoning")
	ErrSinkFailed     = errors.New("engine: answer could not be written")
	ErrNoRule         = errors.New("engine: no transition rule matched")
)

// RunError is returned for runs that end in the failed state. No answer is produced.
type RunError struct {
	TraceID string
	State   State
	Err     error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s failed in %s: %v", e.TraceID, e.State, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Budgets are the action rounds each stage may spend per invocation.
type Budgets struct {
	Planner   int
	Retriever int
	Reasoner  int
}

var DefaultBudgets = Budgets{Planner: 5, Retriever: 12, Reasoner: 10}

type Request struct {
	Query       string
	Attachments []string
	// TraceID is generated when empty.
	TraceID string
	// OutputPath overrides the engine's sink destination.
	OutputPath string
}

type Result struct {
	TraceID     string              `json:"trace_id"`
	Answer      string              `json:"answer"`
	Confidence  models.Confidence   `json:"confidence"`
	Degraded    bool                `json:"degraded"`
	Issues      []string            `json:"issues,omitempty"`
	SinkPath    string              `json:"sink_path"`
	SinkBytes   int                 `json:"sink_bytes"`
	Final       State               `json:"final"`
	Transitions []models.Transition `json:"transitions"`
	Board       map[string]any      `json:"board"`
}

type Engine struct {
	planner   worker.Worker
	retriever worker.Worker
	reasoner  worker.Worker
	sink      sink.Sink
	table     Table
	budgets   Budgets
	output    string
	overwrite bool
	observer  func(models.Transition)
}

type Option func(*Engine)

// WithObserver is called with every transition as it happens.
func WithObserver(fn func(models.Transition)) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}

func WithBudgets(b Budgets) Option {
	return func(e *Engine) {
		e.budgets = b
	}
}

// WithOutput sets where finalize writes the answer and whether an existing file may be replaced.
func WithOutput(path string, overwrite bool) Option {
	return func(e *Engine) {
		e.output = path
		e.overwrite = overwrite
	}
}

func New(planner, retriever, reasoner worker.Worker, s sink.Sink, opts ...Option) *Engine {
	e := &Engine{
		planner:   planner,
		retriever: retriever,
		reasoner:  reasoner,
		sink:      s,
		table:     Pipeline,
		budgets:   DefaultBudgets,
		output:    "answer.md",
		overwrite: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// runState is the engine's own bookkeeping. It never goes into the store.
type runState struct {
	state            State
	retryUsed        bool
	invocations      map[State]int
	retrievalInvoked bool
	budgetExceeded   bool
	degraded         bool
	issues           []string
	// rejected is the answer the quality check turned down, with its issues. It
	// is finalized degraded if the corrective reason stage writes nothing.
	rejected       any
	rejectedIssues []string
	cause          error
	receipt        sink.Receipt
	transitions    []models.Transition
}

// Run walks the pipeline to done or failed. The board is reset when the run starts.
func (e *Engine) Run(ctx context.Context, board *blackboard.Store, req Request) (Result, error) {
	traceID := req.TraceID
	if traceID == "" {
		traceID = uuid.NewString()
	}
	l := log.With().Str(logger.TraceIDField, traceID).Logger()
	rs := &runState{state: StateInit, invocations: map[State]int{}}

	for !rs.state.Terminal() {
		if err := ctx.Err(); err != nil {
			rs.cause = err
			e.transition(l, rs, Rule{Name: "cancelled", To: StateFailed}, err.Error())
			break
		}

		facts := e.step(ctx, l, board, rs, req)
		facts.RetryUsed = rs.retryUsed
		facts.RetrievalInvoked = rs.retrievalInvoked

		rule, ok := e.table.Next(rs.state, facts)
		if !ok {
			rs.cause = fmt.Errorf("%w in %s", ErrNoRule, rs.state)
			e.transition(l, rs, Rule{Name: "no_rule", To: StateFailed}, rs.cause.Error())
			break
		}
		e.apply(board, rs, rule)
		e.transition(l, rs, rule, detail(rs, rule))
	}

	if rs.budgetExceeded {
		l.Warn().Msg("a stage ran out of action rounds")
	}
	if rs.state == StateFailed {
		l.Error().Err(rs.cause).Msg("run failed")
		return Result{}, &RunError{TraceID: traceID, State: rs.lastFrom(), Err: rs.cause}
	}

	res := Result{
		TraceID:     traceID,
		Degraded:    rs.degraded,
		Issues:      rs.issues,
		SinkPath:    rs.receipt.Path,
		SinkBytes:   rs.receipt.Bytes,
		Final:       rs.state,
		Transitions: rs.transitions,
		Board:       board.Snapshot(),
	}
	var doc models.ReasoningDocument
	if err := blackboard.Decode(board.Read(blackboard.ReasoningTopic, nil), &doc); err == nil {
		res.Answer = doc.Answer
		res.Confidence = doc.Confidence
	}
	l.Info().
		Bool("degraded", res.Degraded).
		Str("confidence", string(res.Confidence)).
		Int("reason_invocations", rs.invocations[StateReason]).
		Msg("run done")
	return res, nil
}

// step runs the current state and gathers the facts its rules look at.
func (e *Engine) step(ctx context.Context, l zerolog.Logger, board *blackboard.Store, rs *runState, req Request) Facts {
	rs.invocations[rs.state]++
	sl := l.With().Str(logger.StageField, string(rs.state)).Logger()

	switch rs.state {
	case StateInit:
		board.Reset()
		return Facts{}

	case StatePlan:
		out := e.invoke(ctx, sl, board, rs, e.planner, worker.Invocation{
			Task:        planTask(rs.issues),
			Query:       req.Query,
			Attachments: req.Attachments,
			Tools:       []tools.Tool{tools.BlackboardRead, tools.BlackboardWrite},
			MaxRounds:   e.budgets.Planner,
		})
		plan, ok := readPlan(board)
		if !ok {
			rs.cause = because(ErrPlannerFailed, out.Err)
			return Facts{}
		}
		rs.issues = nil
		return Facts{PlanPresent: true, NeedsRetrieval: plan.TaskType.NeedsRetrieval()}

	case StateRetrieve:
		if _, ok := readPlan(board); !ok {
			rs.cause = ErrPlanMissing
			return Facts{}
		}
		rs.retrievalInvoked = true
		e.invoke(ctx, sl, board, rs, e.retriever, worker.Invocation{
			Task:      "search the web for the evidence the plan needs",
			Query:     req.Query,
			Tools:     []tools.Tool{tools.BlackboardRead, tools.WebSearch, tools.BlackboardWrite},
			MaxRounds: e.budgets.Retriever,
		})
		_, ok := readPlan(board)
		if !ok {
			rs.cause = ErrPlanMissing
		}
		return Facts{PlanPresent: ok}

	case StateReason:
		out := e.invoke(ctx, sl, board, rs, e.reasoner, worker.Invocation{
			Task:      reasonTask(rs.issues),
			Query:     req.Query,
			Tools:     []tools.Tool{tools.BlackboardRead, tools.BlackboardWrite, tools.Calculate},
			MaxRounds: e.budgets.Reasoner,
		})
		present := board.Has(blackboard.ReasoningTopic)
		if !present {
			rs.cause = because(ErrReasonerFailed, out.Err)
		}
		return Facts{ReasoningPresent: present, PreviousAnswer: rs.rejected != nil}

	case StateQualityCheck:
		plan, _ := readPlan(board)
		doc, _ := board.Read(blackboard.ReasoningTopic, map[string]any{}).(map[string]any)
		report := Check(plan.Constraints, doc)
		rs.issues = report.Issues
		if !report.OK() {
			sl.Warn().Strs("issues", report.Issues).Msg("quality check failed")
		}
		return Facts{Violation: !report.OK(), PlanViolation: report.PlanIssue}

	case StateFinalize:
		if rs.degraded {
			board.Write(blackboard.ReasoningTopic, map[string]any{
				"confidence":     string(models.ConfidenceLow),
				"quality_issues": rs.issues,
			}, true)
		}
		var doc models.ReasoningDocument
		_ = blackboard.Decode(board.Read(blackboard.ReasoningTopic, nil), &doc)
		path := req.OutputPath
		if path == "" {
			path = e.output
		}
		receipt, err := e.sink.Write(ctx, path, doc.Answer, e.overwrite)
		if err != nil {
			rs.cause = because(ErrSinkFailed, err)
			sl.Error().Err(err).Str("path", path).Msg("sink write failed")
			return Facts{SinkFailed: true}
		}
		rs.receipt = receipt
		sl.Info().Str("path", receipt.Path).Int("bytes", receipt.Bytes).Msg("answer written")
		return Facts{}
	}
	return Facts{}
}

func (e *Engine) invoke(ctx context.Context, l zerolog.Logger, board *blackboard.Store, rs *runState, w worker.Worker, inv worker.Invocation) worker.Outcome {
	start := time.Now()
	out := w.Invoke(ctx, board, inv)
	if errors.Is(out.Err, worker.ErrRoundsExhausted) {
		rs.budgetExceeded = true
	}
	var ev *zerolog.Event
	if out.Completed() {
		ev = l.Info()
	} else {
		ev = l.Warn().Err(out.Err)
	}
	ev.Str(logger.AgentNameField, w.Name()).
		Str("outcome", string(out.Status)).
		Int("rounds", out.Rounds).
		Dur("took", time.Since(start)).
		Msg("stage finished")
	return out
}

// apply performs the side effects a rule carries besides changing state.
func (e *Engine) apply(board *blackboard.Store, rs *runState, rule Rule) {
	if rule.ConsumesRetry {
		rs.retryUsed = true
	}
	switch {
	case rule.Name == RuleReplan:
		rs.holdAnswer(board)
		board.Delete(blackboard.PlanTopic, blackboard.ReasoningTopic)
	case rule.Name == RuleRetryReason && rs.state == StateQualityCheck:
		rs.holdAnswer(board)
		board.Delete(blackboard.ReasoningTopic)
	case rule.Name == RulePreviousAnswer:
		board.Write(blackboard.ReasoningTopic, rs.rejected, false)
		rs.issues = rs.rejectedIssues
		rs.cause = nil
		rs.degraded = true
	case rule.Name == RuleDegraded:
		rs.degraded = true
	}
}

func (rs *runState) holdAnswer(board *blackboard.Store) {
	rs.rejected = board.Read(blackboard.ReasoningTopic, nil)
	rs.rejectedIssues = append([]string(nil), rs.issues...)
}

func (e *Engine) transition(l zerolog.Logger, rs *runState, rule Rule, detail string) {
	t := models.Transition{
		From:   string(rs.state),
		To:     string(rule.To),
		Rule:   rule.Name,
		Retry:  rule.ConsumesRetry,
		Time:   time.Now(),
		Detail: detail,
	}
	rs.transitions = append(rs.transitions, t)
	rs.state = rule.To
	l.Debug().Str("from", t.From).Str("to", t.To).Str("rule", t.Rule).Msg("transition")
	if e.observer != nil {
		e.observer(t)
	}
}

func (rs *runState) lastFrom() State {
	if n := len(rs.transitions); n > 0 {
		return State(rs.transitions[n-1].From)
	}
	return rs.state
}

func detail(rs *runState, rule Rule) string {
	switch {
	case rule.To == StateFailed && rs.cause != nil:
		return rs.cause.Error()
	case rule.Name == RuleReplan,
		rule.Name == RuleRetryReason && len(rs.issues) > 0,
		rule.Name == RulePreviousAnswer,
		rule.Name == RuleDegraded:
		return strings.Join(rs.issues, "; ")
	}
	return ""
}

// because wraps sentinel with the worker or service error that led to it.
func because(sentinel, err error) error {
	if err == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func readPlan(board *blackboard.Store) (models.PlanDocument, bool) {
	var plan models.PlanDocument
	raw := board.Read(blackboard.PlanTopic, nil)
	if raw == nil {
		return plan, false
	}
	if err := blackboard.Decode(raw, &plan); err != nil {
		return plan, false
	}
	return plan, true
}

func planTask(issues []string) string {
	task := "analyse the question and write the plan"
	if len(issues) > 0 {
		task += ". the previous plan was rejected: " + strings.Join(issues, "; ")
	}
	return task
}

func reasonTask(issues []string) string {
	task := "answer the question from the plan and the retrieved evidence, then write the reasoning"
	if len(issues) > 0 {
		task += ". the previous answer was rejected: " + strings.Join(issues, "; ")
	}
	return task
}
