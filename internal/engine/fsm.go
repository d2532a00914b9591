package engine

// State is a node of the run pipeline.
type State string

const (
	StateInit         State = "init"
	StatePlan         State = "plan"
	StateRetrieve     State = "retrieve"
	StateReason       State = "reason"
	StateQualityCheck State = "quality_check"
	StateFinalize     State = "finalize"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Terminal reports whether the run stops in s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Facts is what the engine observed after running a state. Rules only look at facts,
// never at the store.
type Facts struct {
	PlanPresent      bool
	NeedsRetrieval   bool
	RetrievalInvoked bool
	ReasoningPresent bool
	RetryUsed        bool
	Violation        bool
	// PlanViolation is set when the plan broke its own constraints contract.
	PlanViolation bool
	// PreviousAnswer is set while an answer rejected by the quality check is held
	// back for a corrective stage.
	PreviousAnswer bool
	SinkFailed     bool
}

type Condition func(f Facts) bool

type Rule struct {
	Name          string
	When          Condition
	To            State
	ConsumesRetry bool
}

// Table lists the outgoing rules of every state. The first matching rule wins.
type Table map[State][]Rule

func always(Facts) bool { return true }

func not(c Condition) Condition {
	return func(f Facts) bool { return !c(f) }
}

func and(cs ...Condition) Condition {
	return func(f Facts) bool {
		for _, c := range cs {
			if !c(f) {
				return false
			}
		}
		return true
	}
}

func planPresent(f Facts) bool      { return f.PlanPresent }
func needsRetrieval(f Facts) bool   { return f.NeedsRetrieval }
func retrievalInvoked(f Facts) bool { return f.RetrievalInvoked }
func reasoningPresent(f Facts) bool { return f.ReasoningPresent }
func retryUsed(f Facts) bool        { return f.RetryUsed }
func violation(f Facts) bool        { return f.Violation }
func planViolation(f Facts) bool    { return f.PlanViolation }
func previousAnswer(f Facts) bool   { return f.PreviousAnswer }
func sinkFailed(f Facts) bool       { return f.SinkFailed }

// Rule names, also used in transition logs.
const (
	RuleStart            = "start"
	RulePlanMissing      = "plan_missing"
	RuleNeedsRetrieval   = "needs_retrieval"
	RulePlanReady        = "plan_ready"
	RuleRetrieved        = "retrieved"
	RuleReasoningWritten = "reasoning_written"
	RuleRetryReason      = "retry_reason"
	RulePreviousAnswer   = "previous_answer"
	RuleReasonerFailed   = "reasoner_failed"
	RuleQualityOK        = "quality_ok"
	RuleReplan           = "replan"
	RuleDegraded         = "finalize_degraded"
	RuleSinkFailed       = "sink_failed"
	RuleWritten          = "written"
)

// Pipeline is plan, optional retrieve, reason, quality check and finalize with a
// single run-wide retry.
var Pipeline = Table{
	StateInit: {
		{Name: RuleStart, When: always, To: StatePlan},
	},
	StatePlan: {
		{Name: RulePlanMissing, When: not(planPresent), To: StateFailed},
		{Name: RuleNeedsRetrieval, When: and(needsRetrieval, not(retrievalInvoked)), To: StateRetrieve},
		{Name: RulePlanReady, When: always, To: StateReason},
	},
	StateRetrieve: {
		{Name: RulePlanMissing, When: not(planPresent), To: StateFailed},
		{Name: RuleRetrieved, When: always, To: StateReason},
	},
	StateReason: {
		{Name: RuleReasoningWritten, When: reasoningPresent, To: StateQualityCheck},
		{Name: RuleRetryReason, When: not(retryUsed), To: StateReason, ConsumesRetry: true},
		{Name: RulePreviousAnswer, When: previousAnswer, To: StateFinalize},
		{Name: RuleReasonerFailed, When: always, To: StateFailed},
	},
	StateQualityCheck: {
		{Name: RuleQualityOK, When: not(violation), To: StateFinalize},
		{Name: RuleReplan, When: and(planViolation, not(retryUsed)), To: StatePlan, ConsumesRetry: true},
		{Name: RuleRetryReason, When: not(retryUsed), To: StateReason, ConsumesRetry: true},
		{Name: RuleDegraded, When: always, To: StateFinalize},
	},
	StateFinalize: {
		{Name: RuleSinkFailed, When: sinkFailed, To: StateFailed},
		{Name: RuleWritten, When: always, To: StateDone},
	},
}

// Next returns the first rule of state that holds for facts. It reports false for
// terminal states and states without a matching rule.
func (t Table) Next(state State, facts Facts) (Rule, bool) {
	for _, r := range t[state] {
		if r.When(facts) {
			return r, true
		}
	}
	return Rule{}, false
}

// Next evaluates the default pipeline.
func Next(state State, facts Facts) (Rule, bool) {
	return Pipeline.Next(state, facts)
}
