package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-mas/pkg/models"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		c          models.Constraints
		doc        map[string]any
		wantIssues int
		planIssue  bool
	}{
		{
			name: "free text",
			doc:  map[string]any{"answer": "Paris"},
		},
		{
			name:       "empty answer",
			doc:        map[string]any{"answer": "   "},
			wantIssues: 1,
		},
		{
			name:       "missing answer",
			doc:        map[string]any{},
			wantIssues: 1,
		},
		{
			name: "number",
			c:    models.Constraints{Format: "numeric"},
			doc:  map[string]any{"answer": " 3.5 "},
		},
		{
			name:       "not a number",
			c:          models.Constraints{Format: "number"},
			doc:        map[string]any{"answer": "3.5 km"},
			wantIssues: 1,
		},
		{
			name:       "not an integer",
			c:          models.Constraints{Format: "integer"},
			doc:        map[string]any{"answer": "3.5"},
			wantIssues: 1,
		},
		{
			name: "yes no",
			c:    models.Constraints{Format: "yes_no"},
			doc:  map[string]any{"answer": "Yes"},
		},
		{
			name:       "not boolean",
			c:          models.Constraints{Format: "boolean"},
			doc:        map[string]any{"answer": "maybe"},
			wantIssues: 1,
		},
		{
			name:       "invalid json",
			c:          models.Constraints{Format: "json"},
			doc:        map[string]any{"answer": "{nope"},
			wantIssues: 1,
		},
		{
			name: "required key in the document",
			c:    models.Constraints{RequiredKeys: []string{"reasoning"}},
			doc:  map[string]any{"answer": "x", "reasoning": "because"},
		},
		{
			name: "required key in the json answer",
			c:    models.Constraints{Format: "json", RequiredKeys: []string{"city"}},
			doc:  map[string]any{"answer": `{"city": "Paris"}`},
		},
		{
			name:       "required key missing",
			c:          models.Constraints{RequiredKeys: []string{"citations", "city"}},
			doc:        map[string]any{"answer": "x", "citations": []any{}},
			wantIssues: 2,
		},
		{
			name:       "number out of bounds",
			c:          models.Constraints{Bounds: models.Bounds{Max: float(10)}},
			doc:        map[string]any{"answer": "11"},
			wantIssues: 1,
		},
		{
			name:       "json values out of bounds",
			c:          models.Constraints{Bounds: models.Bounds{Min: float(0)}},
			doc:        map[string]any{"answer": `{"a": -1, "b": 2, "c": -3, "d": "text"}`},
			wantIssues: 2,
		},
		{
			name: "text answer ignores bounds",
			c:    models.Constraints{Bounds: models.Bounds{Min: float(0), Max: float(1)}},
			doc:  map[string]any{"answer": "about a dozen"},
		},
		{
			name:       "inverted bounds",
			c:          models.Constraints{Bounds: models.Bounds{Min: float(2), Max: float(1)}},
			doc:        map[string]any{"answer": "1.5"},
			wantIssues: 1,
			planIssue:  true,
		},
		{
			name:       "blank required key",
			c:          models.Constraints{RequiredKeys: []string{" "}},
			doc:        map[string]any{"answer": "x"},
			wantIssues: 1,
			planIssue:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Check(tt.c, tt.doc)
			assert.Len(t, r.Issues, tt.wantIssues, "%v", r.Issues)
			assert.Equal(t, tt.wantIssues == 0, r.OK())
			assert.Equal(t, tt.planIssue, r.PlanIssue)
		})
	}
}
