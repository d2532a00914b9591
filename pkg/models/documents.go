package models

// PlanDocument is written by the planner under the "plan" topic.
type PlanDocument struct {
	Query          string      `json:"query" validate:"required"`
	Attachments    []string    `json:"attachments"`
	TaskType       TaskType    `json:"task_type" validate:"required,oneof=retrieval reasoning hybrid"`
	SearchKeywords []string    `json:"search_keywords"`
	ReasoningSteps []string    `json:"reasoning_steps"`
	Steps          []PlanStep  `json:"steps" validate:"dive"`
	Constraints    Constraints `json:"constraints"`
	ReasoningHints []string    `json:"reasoning_hints"`
}

type PlanStep struct {
	ID    string `json:"id" validate:"required"`
	Owner string `json:"owner"`
	Desc  string `json:"desc"`
}

type Constraints struct {
	Format       string   `json:"format,omitempty"`
	RequiredKeys []string `json:"required_keys,omitempty"`
	Bounds       Bounds   `json:"bounds,omitempty"`
}

// Bounds limits numeric answers. Nil ends are open.
type Bounds struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

func (b Bounds) Declared() bool {
	return b.Min != nil || b.Max != nil
}

func (b Bounds) Contains(v float64) bool {
	if b.Min != nil && v < *b.Min {
		return false
	}
	if b.Max != nil && v > *b.Max {
		return false
	}
	return true
}

// RetrievalDocument is written by the retriever under the "retrieval" topic.
type RetrievalDocument struct {
	Query          string          `json:"query"`
	SearchKeywords []string        `json:"search_keywords"`
	Results        []SearchResult  `json:"results"`
	Status         RetrievalStatus `json:"status"`
	Rounds         int             `json:"rounds"`
	Metadata       map[string]any  `json:"metadata"`
}

type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// ReasoningDocument is written by the reasoner under the "reasoning" topic.
type ReasoningDocument struct {
	Answer        string     `json:"answer"`
	Reasoning     string     `json:"reasoning"`
	Citations     []string   `json:"citations"`
	Confidence    Confidence `json:"confidence"`
	EvidenceUsed  []string   `json:"evidence_used"`
	QualityIssues []string   `json:"quality_issues,omitempty"`
}
