package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go-mas/pkg/models"
)

// Report is the outcome of checking a reasoning document against the plan's constraints.
type Report struct {
	Issues []string
	// PlanIssue marks reports where the constraints themselves are broken, so the
	// plan has to be redone rather than the answer.
	PlanIssue bool
}

func (r Report) OK() bool {
	return len(r.Issues) == 0
}

// Check validates the reasoning document doc against constraints c.
func Check(c models.Constraints, doc map[string]any) Report {
	if issues := contractIssues(c); len(issues) > 0 {
		return Report{Issues: issues, PlanIssue: true}
	}

	answer, _ := doc["answer"].(string)
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return Report{Issues: []string{"answer is empty"}}
	}

	var issues []string
	object, isObject := jsonObject(answer)
	for _, key := range c.RequiredKeys {
		if present(doc[key]) {
			continue
		}
		if _, ok := object[key]; isObject && ok {
			continue
		}
		issues = append(issues, fmt.Sprintf("required key %q is missing", key))
	}

	if issue := formatIssue(c.Format, answer); issue != "" {
		issues = append(issues, issue)
	}

	if c.Bounds.Declared() {
		issues = append(issues, boundsIssues(c.Bounds, answer, object)...)
	}
	return Report{Issues: issues}
}

func contractIssues(c models.Constraints) []string {
	var issues []string
	if c.Bounds.Min != nil && c.Bounds.Max != nil && *c.Bounds.Min > *c.Bounds.Max {
		issues = append(issues, fmt.Sprintf("plan bounds are inverted: min %v > max %v", *c.Bounds.Min, *c.Bounds.Max))
	}
	for i, key := range c.RequiredKeys {
		if strings.TrimSpace(key) == "" {
			issues = append(issues, fmt.Sprintf("plan required key %d is blank", i))
		}
	}
	return issues
}

func formatIssue(format, answer string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "number", "numeric":
		if _, ok := number(answer); !ok {
			return fmt.Sprintf("answer %q is not a number", answer)
		}
	case "integer":
		v, ok := number(answer)
		if !ok || v != math.Trunc(v) {
			return fmt.Sprintf("answer %q is not an integer", answer)
		}
	case "json":
		if !json.Valid([]byte(answer)) {
			return "answer is not valid json"
		}
	case "yes_no", "boolean":
		switch strings.ToLower(answer) {
		case "yes", "no", "true", "false":
		default:
			return fmt.Sprintf("answer %q is not yes or no", answer)
		}
	}
	return ""
}

// boundsIssues checks a numeric answer, or every numeric value of a json object
// answer. Other answers carry nothing to bound.
func boundsIssues(b models.Bounds, answer string, object map[string]any) []string {
	if v, ok := number(answer); ok {
		if !b.Contains(v) {
			return []string{fmt.Sprintf("answer %v is out of bounds", v)}
		}
		return nil
	}
	var issues []string
	keys := make([]string, 0, len(object))
	for k := range object {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v, ok := object[k].(float64); ok && !b.Contains(v) {
			issues = append(issues, fmt.Sprintf("answer field %q = %v is out of bounds", k, v))
		}
	}
	return issues
}

func number(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func jsonObject(s string) (map[string]any, bool) {
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, false
	}
	return m, true
}

func present(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(val) != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
