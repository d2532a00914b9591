package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name  string
		from  State
		facts Facts
		rule  string
		to    State
		retry bool
	}{
		{"start", StateInit, Facts{}, RuleStart, StatePlan, false},
		{"no plan", StatePlan, Facts{}, RulePlanMissing, StateFailed, false},
		{"retrieval plan", StatePlan, Facts{PlanPresent: true, NeedsRetrieval: true}, RuleNeedsRetrieval, StateRetrieve, false},
		{"retrieval already ran", StatePlan, Facts{PlanPresent: true, NeedsRetrieval: true, RetrievalInvoked: true}, RulePlanReady, StateReason, false},
		{"reasoning plan", StatePlan, Facts{PlanPresent: true}, RulePlanReady, StateReason, false},
		{"retrieve always reasons", StateRetrieve, Facts{PlanPresent: true}, RuleRetrieved, StateReason, false},
		{"retrieve without plan", StateRetrieve, Facts{}, RulePlanMissing, StateFailed, false},
		{"reasoning written", StateReason, Facts{ReasoningPresent: true}, RuleReasoningWritten, StateQualityCheck, false},
		{"reasoner retried", StateReason, Facts{}, RuleRetryReason, StateReason, true},
		{"reasoner out of retries", StateReason, Facts{RetryUsed: true}, RuleReasonerFailed, StateFailed, false},
		{"corrective reason wrote nothing", StateReason, Facts{RetryUsed: true, PreviousAnswer: true}, RulePreviousAnswer, StateFinalize, false},
		{"quality ok", StateQualityCheck, Facts{}, RuleQualityOK, StateFinalize, false},
		{"answer violation", StateQualityCheck, Facts{Violation: true}, RuleRetryReason, StateReason, true},
		{"plan violation", StateQualityCheck, Facts{Violation: true, PlanViolation: true}, RuleReplan, StatePlan, true},
		{"violation out of retries", StateQualityCheck, Facts{Violation: true, PlanViolation: true, RetryUsed: true}, RuleDegraded, StateFinalize, false},
		{"written", StateFinalize, Facts{}, RuleWritten, StateDone, false},
		{"sink failed", StateFinalize, Facts{SinkFailed: true}, RuleSinkFailed, StateFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := Next(tt.from, tt.facts)
			assert.True(t, ok)
			assert.Equal(t, tt.rule, r.Name)
			assert.Equal(t, tt.to, r.To)
			assert.Equal(t, tt.retry, r.ConsumesRetry)
		})
	}
}

func TestNext_TerminalStates(t *testing.T) {
	for _, s := range []State{StateDone, StateFailed} {
		assert.True(t, s.Terminal())
		_, ok := Next(s, Facts{})
		assert.False(t, ok)
	}
}
