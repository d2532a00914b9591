package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/justinas/alice"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	run "go-mas/internal/agents/run/actor"
	"go-mas/pkg/logger"
	"go-mas/pkg/messages"
	"go-mas/pkg/models"
)

const askTimeout = 5 * time.Second

type command struct {
	Query       string   `json:"query" validate:"required"`
	Attachments []string `json:"attachments"`
}

type getStatus struct {
	Status models.Status `json:"status"`
}

type getBlackboard struct {
	Blackboard map[string]any `json:"blackboard"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	ac      *actor.RootContext
	server  *http.Server
	runs    *runsCache
	handler http.Handler
}

// New wires the run endpoints. build creates the engine of every run and output
// names the answer file of a run id.
func New(ac *actor.RootContext, addr string, build run.Build, output func(runID string) string) *Server {
	r := chi.NewRouter()
	r.Use(logMiddleware())
	runs := newRunsCache()
	validate := validator.New()

	decider := func(reason interface{}) actor.Directive {
		log.Error().Msgf("handling failure for run actor. reason: %v", reason)
		return actor.StopDirective
	}
	strategy := actor.NewOneForOneStrategy(3, 10000, decider)
	props := actor.PropsFromProducer(run.Producer(ac, build, output), actor.WithSupervisor(strategy))

	r.Post("/runs", func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Msg("new run request")
		cmd := command{}
		if err := unmarshalRequestBody(r, &cmd); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			log.Debug().Err(err).Msg("cannot parse body")
			render.JSON(w, r, errorResponse{Error: "unable to parse body"})
			return
		}
		if err := validate.Struct(cmd); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, errorResponse{Error: "query is required"})
			return
		}

		pid := ac.Spawn(props)
		id := uuid.New()
		ac.Send(pid, messages.StartRun{RunID: id, Query: cmd.Query, Attachments: cmd.Attachments})
		runs.add(id, pid)

		log.Debug().Str(logger.RunIDField, id.String()).Msg("run has been started")
		w.WriteHeader(http.StatusAccepted)
		render.JSON(w, r, struct {
			Id string `json:"id"`
		}{id.String()})
	})

	r.Get("/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		res, ok := ask(w, r, ac, runs, messages.GetStatus{})
		if !ok {
			return
		}
		if status, ok := res.(models.Status); ok {
			render.JSON(w, r, getStatus{status})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		log.Error().Msgf("unknown status from actor: %T", res)
	})

	r.Get("/runs/{id}/blackboard", func(w http.ResponseWriter, r *http.Request) {
		res, ok := ask(w, r, ac, runs, messages.GetBlackboard{})
		if !ok {
			return
		}
		if board, ok := res.(map[string]any); ok {
			render.JSON(w, r, getBlackboard{board})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		log.Error().Msgf("unknown blackboard from actor: %T", res)
	})

	return &Server{
		ac:      ac,
		runs:    runs,
		handler: r,
		server: &http.Server{
			Addr:    addr,
			Handler: r,
		},
	}
}

// ask resolves the run of the request and sends msg to its actor. It writes the
// error response itself and reports false when there is nothing to render.
func ask(w http.ResponseWriter, r *http.Request, ac *actor.RootContext, runs *runsCache, msg interface{}) (interface{}, bool) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		log.Debug().Msg("cannot parse id")
		render.JSON(w, r, errorResponse{Error: "unable to parse id"})
		return nil, false
	}
	pid, ok := runs.get(id)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		log.Debug().Str(logger.RunIDField, idParam).Msg("cannot find id")
		render.JSON(w, r, errorResponse{Error: "run not found"})
		return nil, false
	}

	res, err := ac.RequestFuture(pid, msg, askTimeout).Result()
	if err != nil {
		runs.remove(id)
		w.WriteHeader(http.StatusInternalServerError)
		log.Error().Str(logger.RunIDField, idParam).Err(err).Msg("unable to reach run actor")
		return nil, false
	}
	return res, true
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("http server starting")
	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func logMiddleware() func(http.Handler) http.Handler {
	c := alice.New()
	c = c.Append(hlog.NewHandler(log.Logger))
	c = c.Append(hlog.RemoteAddrHandler("ip"))
	c = c.Append(hlog.UserAgentHandler("agent"))
	c = c.Append(hlog.RefererHandler("referer"))
	c = c.Append(hlog.RequestIDHandler("req_id", "Request-Id"))
	c = c.Append(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("verb", r.Method).
			Stringer("url", r.URL).
			Int("size", size).
			Int("status", status).
			Int64("duration", duration.Milliseconds()).
			Msg("REQ")
	}))

	return c.Then
}

func unmarshalRequestBody(req *http.Request, output interface{}) error {
	if req.Body == nil {
		return errors.New("invalid body in request")
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	if err = req.Body.Close(); err != nil {
		return err
	}
	return json.Unmarshal(body, output)
}
