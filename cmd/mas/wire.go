package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"go-mas/internal/agents/planner"
	"go-mas/internal/agents/reasoner"
	"go-mas/internal/agents/retriever"
	run "go-mas/internal/agents/run/actor"
	"go-mas/internal/config"
	"go-mas/internal/engine"
	"go-mas/internal/reasoning"
	"go-mas/internal/services/compute"
	"go-mas/internal/services/search"
	"go-mas/internal/services/sink"
	"go-mas/pkg/models"
)

func newLLM(c *config.Config) (reasoning.LLM, error) {
	switch strings.ToLower(c.LLM.Provider) {
	case "anthropic":
		return reasoning.NewAnthropic(c.LLM.Model, c.LLM.APIKey, c.LLM.MaxTokens())
	case "openai":
		return reasoning.NewOpenAI(c.LLM.Model, c.LLM.APIKey, c.LLM.MaxTokens())
	default:
		return nil, fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
}

// newBuild shares one set of service clients between all runs.
func newBuild(c *config.Config) (run.Build, error) {
	llm, err := newLLM(c)
	if err != nil {
		return nil, err
	}
	svc := reasoning.New(llm, c.Timeouts.Reasoning)
	searcher := search.NewDuckDuckGo(c.Search.Endpoint, c.Timeouts.Search)
	calculator := compute.NewStarlark(c.Timeouts.Compute)

	p := planner.New(svc)
	ret := retriever.New(svc, searcher, c.Search.MaxResults)
	rsn := reasoner.New(svc, calculator)
	budgets := engine.Budgets{
		Planner:   c.Budgets.Planner,
		Retriever: c.Budgets.Retriever,
		Reasoner:  c.Budgets.Reasoner,
	}

	return func(observer func(models.Transition)) run.Runner {
		return engine.New(p, ret, rsn, sink.File{},
			engine.WithBudgets(budgets),
			engine.WithOutput(c.OutputPath(), c.Output.Overwrite),
			engine.WithObserver(observer),
		)
	}, nil
}

// runOutput gives every served run its own answer file.
func runOutput(c *config.Config) func(runID string) string {
	return func(runID string) string {
		return filepath.Join(filepath.Dir(c.OutputPath()), runID, c.Output.ResultFilename)
	}
}
