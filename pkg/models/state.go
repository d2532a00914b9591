package models

// State is how far a run is, as reported by its actor.
type State string

const (
	Init     State = "init"
	Thinking State = "thinking"
	Failed   State = "failed" // dead state
	Finished State = "finished"
)

// Outcome is how a worker invocation ended.
type Outcome string

const (
	Completed Outcome = "completed"
	Aborted   Outcome = "failed"
)

type TaskType string

const (
	TaskRetrieval TaskType = "retrieval"
	TaskReasoning TaskType = "reasoning"
	TaskHybrid    TaskType = "hybrid"
)

// NeedsRetrieval reports whether plans of this type go through the retrieve stage.
func (t TaskType) NeedsRetrieval() bool {
	return t == TaskRetrieval || t == TaskHybrid
}

type RetrievalStatus string

const (
	RetrievalSuccess   RetrievalStatus = "success"
	RetrievalNoResults RetrievalStatus = "no_results"
	RetrievalError     RetrievalStatus = "error"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)
