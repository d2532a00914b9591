package handler

import (
	"context"
	"fmt"

	"go-mas/pkg/models"
	"go-mas/pkg/prompts"
	"go-mas/pkg/template"
)

type Generator interface {
	Generate(ctx context.Context, text string, inputs map[string]any) (string, error)
}

type Handler struct {
	llm Generator
}

func New(llm Generator) *Handler {
	return &Handler{
		llm: llm,
	}
}

type input struct {
	Query    string
	Previous string
}

// Diversify asks the model for a keyword set unlike the ones already searched.
func (h *Handler) Diversify(ctx context.Context, query, previous string) models.HandlerResult {
	in := input{Query: query, Previous: previous}
	completion, err := h.llm.Generate(ctx, prompts.RetrieverKeywords, map[string]any{"Query": in.Query, "Previous": in.Previous})
	if err != nil {
		return models.HandlerResult{Error: fmt.Errorf("call: %w", err)}
	}

	question, err := template.Parse(prompts.RetrieverKeywords, in)
	if err != nil {
		return models.HandlerResult{Error: fmt.Errorf("execute: %w", err)}
	}

	return models.HandlerResult{Question: question, Answer: completion}
}
