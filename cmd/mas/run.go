package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"go-mas/internal/config"
	"go-mas/internal/engine"
	"go-mas/pkg/blackboard"
	"go-mas/pkg/models"
)

var (
	runQuery          string
	runAttachments    []string
	runModel          string
	runTokenLimits    []string
	runOutputDir      string
	runResultFilename string
	runMaxWebResults  int
	runVerbose        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Answer one question and print the result",
	Long: `Run the pipeline once for --query and print {"result", "trace_id"} as JSON.

The answer is also written to <output-dir>/<result-filename>.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyRunFlags(cmd, cfg); err != nil {
			return err
		}
		build, err := newBuild(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var observer func(models.Transition)
		if runVerbose {
			observer = func(t models.Transition) {
				fmt.Fprintf(os.Stderr, "%s %s -> %s (%s)\n", color.CyanString("»"), t.From, t.To, t.Rule)
			}
		}
		res, err := build(observer).Run(ctx, blackboard.New(), engine.Request{
			Query:       runQuery,
			Attachments: runAttachments,
		})
		if err != nil {
			var runErr *engine.RunError
			if errors.As(err, &runErr) {
				fmt.Fprintf(os.Stderr, "%s run %s failed: %v\n", color.RedString("✗"), runErr.TraceID, runErr.Err)
			}
			return err
		}

		if res.Degraded {
			fmt.Fprintf(os.Stderr, "%s answer did not pass every check: %v\n", color.YellowString("⚠"), res.Issues)
		} else {
			fmt.Fprintf(os.Stderr, "%s answer written to %s\n", color.GreenString("✓"), res.SinkPath)
		}
		return printResult(res)
	},
}

func printResult(res engine.Result) error {
	out, err := json.MarshalIndent(struct {
		Result  string `json:"result"`
		TraceID string `json:"trace_id"`
	}{res.Answer, res.TraceID}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// applyRunFlags lets explicitly set flags override the loaded config.
func applyRunFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("llm-model") {
		c.LLM.Model = runModel
	}
	if flags.Changed("llm-token-limit") {
		limits, err := config.ParseTokenLimits(runTokenLimits)
		if err != nil {
			return err
		}
		if c.LLM.TokenLimits == nil {
			c.LLM.TokenLimits = map[string]int{}
		}
		for model, limit := range limits {
			c.LLM.TokenLimits[model] = limit
		}
	}
	if flags.Changed("output-dir") {
		c.Output.Dir = runOutputDir
	}
	if flags.Changed("result-filename") {
		c.Output.ResultFilename = runResultFilename
	}
	if flags.Changed("max-web-results") {
		c.Search.MaxResults = runMaxWebResults
	}
	return c.Validate()
}

func init() {
	runCmd.Flags().StringVar(&runQuery, "query", "", "question or task to answer")
	runCmd.Flags().StringSliceVar(&runAttachments, "attachments", nil, "attachment paths handed to the planner")
	runCmd.Flags().StringVar(&runModel, "llm-model", "", "model used by every agent")
	runCmd.Flags().StringArrayVar(&runTokenLimits, "llm-token-limit", nil, "generation limit as model=limit, repeatable")
	runCmd.Flags().StringVar(&runOutputDir, "output-dir", "./outputs", "directory the answer is written to")
	runCmd.Flags().StringVar(&runResultFilename, "result-filename", "answer.md", "answer file name")
	runCmd.Flags().IntVar(&runMaxWebResults, "max-web-results", 3, "results requested per web search")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "print stage transitions")
	_ = runCmd.MarkFlagRequired("query")
}
