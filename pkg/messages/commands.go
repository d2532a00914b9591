package messages

import (
	"github.com/google/uuid"

	"go-mas/pkg/models"
)

// StartRun asks a run actor to execute one query.
type StartRun struct {
	RunID       uuid.UUID
	Query       string
	Attachments []string
}

type StageTransition struct {
	Transition models.Transition
}

type RunComplete struct {
	TraceID    string
	Answer     string
	Confidence models.Confidence
	Degraded   bool
	SinkPath   string
}

type GetStatus struct{}

// GetBlackboard is answered with a snapshot of the run's store.
type GetBlackboard struct{}

type ReportError struct {
	Error models.Error
}
