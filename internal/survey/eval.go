// Provides visibility evaluation for survey delivery.

package survey

import (
	"math"
	"strconv"
	"strings"
)

// AnswerState is a respondent's in-progress answers, keyed by question id.
type AnswerState map[string]any

// Evaluator decides per-item visibility during survey delivery.
//
// Evaluation is pure and total: it never mutates the graph, never errors and
// never panics, because delivery must not crash mid-survey. It is re-run on
// every answer change and never cached across answer states.
type Evaluator struct {
	graph *Graph
}

// NewEvaluator creates an evaluator reading from the given graph.
func NewEvaluator(graph *Graph) *Evaluator {
	return &Evaluator{graph: graph}
}

// IsVisible reports whether an item should be shown given the current
// answers. An item without a condition is always visible. An item whose
// target question has not been answered yet is not visible (fail closed).
func (e *Evaluator) IsVisible(surveyID, itemID string, answers AnswerState) bool {
	cond := e.graph.ConditionFor(surveyID, itemID)
	if cond == nil {
		return true
	}
	answer, ok := answers[cond.DependsOnQuestionID]
	if !ok {
		return false
	}
	return matchesCondition(answer, cond.Op, cond.Value)
}

// matchesCondition applies the condition operator to the answer.
func matchesCondition(answer any, op Op, operand any) bool {
	switch op {
	case OpEquals:
		return equalValues(answer, operand)
	case OpNotEquals:
		return !equalValues(answer, operand)
	case OpContains:
		return containsValue(answer, operand)
	case OpGreaterThan:
		return compareNumeric(answer, operand) > 0
	case OpLessThan:
		return compareNumeric(answer, operand) < 0
	default:
		return false
	}
}

// equalValues compares type-aware: numerically when both sides parse as
// numbers, otherwise by string equality after normalization.
func equalValues(a, b any) bool {
	if fa, ok := toNumber(a); ok {
		if fb, ok := toNumber(b); ok {
			return fa == fb
		}
	}
	return normalizeString(a) == normalizeString(b)
}

// containsValue tests membership when the answer is an array, substring
// otherwise.
func containsValue(answer, operand any) bool {
	needle := normalizeString(operand)
	switch vs := answer.(type) {
	case []any:
		for _, v := range vs {
			if equalValues(v, operand) {
				return true
			}
		}
		return false
	case []string:
		for _, v := range vs {
			if equalValues(v, operand) {
				return true
			}
		}
		return false
	default:
		return strings.Contains(normalizeString(answer), needle)
	}
}

// compareNumeric returns -1, 0 or 1, or 0 when either operand is not a
// number. Callers using strict inequalities therefore get false for
// non-numeric operands instead of an error.
func compareNumeric(a, b any) int {
	fa, ok := toNumber(a)
	if !ok {
		return 0
	}
	fb, ok := toNumber(b)
	if !ok {
		return 0
	}
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	default:
		return 0
	}
}

// toNumber coerces an operand to a finite float64.
func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsInf(x, 0) && !math.IsNaN(x)
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil && !math.IsInf(f, 0) && !math.IsNaN(f)
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// normalizeString converts a value to a trimmed string representation.
func normalizeString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) && !math.IsNaN(x) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}
