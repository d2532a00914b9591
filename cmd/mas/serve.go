package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"go-mas/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve runs over HTTP",
	Long: `Start the HTTP API. POST /runs starts a run in its own actor,
GET /runs/{id} reports its status and GET /runs/{id}/blackboard its store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		build, err := newBuild(cfg)
		if err != nil {
			return err
		}

		system := actor.NewActorSystem().Root
		app := api.New(system, cfg.Server.Addr, build, runOutput(cfg))

		go func() {
			if err := app.Start(); err != nil {
				log.Panic().Err(err).Msg("server crash")
			}
		}()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		stop()
		log.Info().Msg("shutting down gracefully")

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := app.Stop(ctx); err != nil {
			log.Error().Err(err).Msg("server forced to shutdown")
			return err
		}

		log.Info().Msg("server exiting")
		return nil
	},
}
