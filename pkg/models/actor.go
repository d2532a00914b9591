package models

import (
	"time"
)

// Status is what the run actor reports when asked how a run is going.
type Status struct {
	RunID       string       `json:"id"`
	TraceID     string       `json:"trace_id,omitempty"`
	State       State        `json:"state"`
	Stage       string       `json:"stage"`
	Query       string       `json:"query"`
	Transitions []Transition `json:"transitions"`
	Answer      string       `json:"answer,omitempty"`
	Confidence  Confidence   `json:"confidence,omitempty"`
	Degraded    bool         `json:"degraded,omitempty"`
	Errs        Error        `json:"error,omitempty"`
}

type Error struct {
	ErrMessage string      `json:"error,omitempty"`
	Message    interface{} `json:"message,omitempty"`
	Time       *time.Time  `json:"time,omitempty"`
}

// Transition is one step of the orchestration state machine.
type Transition struct {
	From   string    `json:"from"`
	To     string    `json:"to"`
	Rule   string    `json:"rule"`
	Retry  bool      `json:"retry,omitempty"`
	Time   time.Time `json:"time"`
	Detail string    `json:"detail,omitempty"`
}

type HandlerResult struct {
	Question string
	Answer   string
	Error    error
}
