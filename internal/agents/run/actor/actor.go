package actor

import (
	"context"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"go-mas/internal/engine"
	"go-mas/pkg/blackboard"
	"go-mas/pkg/logger"
	"go-mas/pkg/messages"
	"go-mas/pkg/models"
)

// Runner executes one run over board. *engine.Engine implements it.
type Runner interface {
	Run(ctx context.Context, board *blackboard.Store, req engine.Request) (engine.Result, error)
}

// Build creates the runner of one run, reporting its transitions to observer.
type Build func(observer func(models.Transition)) Runner

// Run owns one run: its store, its status and the goroutine walking the pipeline.
// Progress reaches the actor as messages so status reads never race the run.
type Run struct {
	root   *actor.RootContext
	build  Build
	output func(runID string) string
	board  *blackboard.Store
	status models.Status
	cancel context.CancelFunc
}

// Producer returns the props producer of run actors. output maps a run id to the
// file its answer is written to; nil keeps the engine's default.
func Producer(root *actor.RootContext, build Build, output func(runID string) string) actor.Producer {
	return func() actor.Actor {
		return New(root, build, output)
	}
}

func New(root *actor.RootContext, build Build, output func(runID string) string) *Run {
	return &Run{
		root:   root,
		build:  build,
		output: output,
		board:  blackboard.New(),
		status: models.Status{State: models.Init, Transitions: []models.Transition{}},
	}
}

func (agent *Run) Receive(ac actor.Context) {
	l := log.With().Fields(map[string]interface{}{
		logger.ActorIDField:   ac.Self().GetId(),
		logger.AgentNameField: "run",
		logger.RunIDField:     agent.status.RunID,
	}).Logger()

	switch msg := ac.Message().(type) {
	case *actor.Started:
		l.Debug().Msg("starting actor")
	case *actor.Stopping:
		l.Debug().Msg("stopping actor")
		if agent.cancel != nil {
			agent.cancel()
		}
	case *actor.Stopped:
		l.Debug().Msg("stopped actor")
	case *actor.Restarting:
		l.Debug().Msg("restarting actor")
	case messages.StartRun:
		if agent.status.State != models.Init {
			l.Warn().Msg("run already started, ignoring")
			return
		}
		agent.start(ac.Self(), msg)
		l.Info().Str(logger.RunIDField, msg.RunID.String()).Msg("run started")
	case messages.StageTransition:
		agent.status.Transitions = append(agent.status.Transitions, msg.Transition)
		agent.status.Stage = msg.Transition.To
		l.Debug().Str(logger.StageField, msg.Transition.To).Str("rule", msg.Transition.Rule).Msg("stage transition")
	case messages.RunComplete:
		agent.status.State = models.Finished
		agent.status.Answer = msg.Answer
		agent.status.Confidence = msg.Confidence
		agent.status.Degraded = msg.Degraded
		l.Info().Str(logger.TraceIDField, msg.TraceID).Str("path", msg.SinkPath).Msg("run complete")
	case messages.ReportError:
		agent.status.State = models.Failed
		agent.status.Errs = msg.Error
		l.Error().Str("error", msg.Error.ErrMessage).Msg("run failed")
	case messages.GetStatus:
		status := agent.status
		status.Transitions = append([]models.Transition{}, agent.status.Transitions...)
		ac.Respond(status)
	case messages.GetBlackboard:
		ac.Respond(agent.board.Snapshot())
	default:
		l.Warn().Msgf("unknown message: %v", msg)
	}
}

func (agent *Run) start(self *actor.PID, msg messages.StartRun) {
	runID := msg.RunID.String()
	traceID := uuid.NewString()
	agent.status.RunID = runID
	agent.status.TraceID = traceID
	agent.status.Query = msg.Query
	agent.status.State = models.Thinking

	ctx, cancel := context.WithCancel(context.Background())
	agent.cancel = cancel
	req := engine.Request{Query: msg.Query, Attachments: msg.Attachments, TraceID: traceID}
	if agent.output != nil {
		req.OutputPath = agent.output(runID)
	}
	runner := agent.build(func(t models.Transition) {
		agent.root.Send(self, messages.StageTransition{Transition: t})
	})
	board := agent.board

	go func() {
		defer cancel()
		res, err := runner.Run(ctx, board, req)
		if err != nil {
			t := time.Now()
			agent.root.Send(self, messages.ReportError{Error: models.Error{ErrMessage: err.Error(), Message: msg.Query, Time: &t}})
			return
		}
		agent.root.Send(self, messages.RunComplete{
			TraceID:    res.TraceID,
			Answer:     res.Answer,
			Confidence: res.Confidence,
			Degraded:   res.Degraded,
			SinkPath:   res.SinkPath,
		})
	}()
}
