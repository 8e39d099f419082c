package survey

import (
	"slices"

	"github.com/maruel/ksid"
	"github.com/surveyforge/surveyforge/internal/storage"
)

// Op is a comparison operator usable in a dependency condition.
type Op string

const (
	OpEquals      Op = "equals"
	OpNotEquals   Op = "notEquals"
	OpContains    Op = "contains"
	OpGreaterThan Op = "greaterThan"
	OpLessThan    Op = "lessThan"
)

// KnownOp reports whether op is a supported comparison operator.
func KnownOp(op Op) bool {
	switch op {
	case OpEquals, OpNotEquals, OpContains, OpGreaterThan, OpLessThan:
		return true
	default:
		return false
	}
}

// Condition makes one section's or question's visibility conditional on a
// prior answer. An item has at most one condition; AND/OR composition is not
// supported.
type Condition struct {
	ID       ksid.ID `json:"id" jsonschema:"description=Unique condition identifier"`
	SurveyID string  `json:"survey_id" jsonschema:"description=Survey the condition belongs to"`

	// ItemID is the dependent section or question.
	ItemID string `json:"item_id" jsonschema:"description=Section or question whose visibility is gated"`

	// DependsOnSectionID names the section containing the answer the
	// condition depends on. Used for canonical order validation.
	DependsOnSectionID string `json:"depends_on_section_id,omitempty" jsonschema:"description=Section containing the target question"`

	// DependsOnQuestionID names the question whose answer is compared.
	DependsOnQuestionID string `json:"depends_on_question_id" jsonschema:"description=Question whose answer is compared"`

	Op    Op  `json:"op" jsonschema:"description=Comparison operator"`
	Value any `json:"value" jsonschema:"description=Comparison operand"`

	Created storage.Time `json:"created" jsonschema:"description=Creation timestamp"`
	Updated storage.Time `json:"updated" jsonschema:"description=Last modification timestamp"`
}

// Clone returns a deep copy of the condition.
func (c *Condition) Clone() *Condition {
	if c == nil {
		return nil
	}
	out := *c
	if vs, ok := c.Value.([]any); ok {
		out.Value = slices.Clone(vs)
	}
	return &out
}

// GetID implements jsonldb.Row.
func (c *Condition) GetID() ksid.ID {
	return c.ID
}

// Validate checks row-intrinsic invariants. Edge validity against a survey's
// canonical order is checked by Graph.AddCondition, which has the snapshot.
func (c *Condition) Validate() error {
	if c.ID.IsZero() {
		return &InvalidEdgeError{ItemID: c.ItemID, Reason: ReasonMissingID}
	}
	if c.SurveyID == "" || c.ItemID == "" {
		return &InvalidEdgeError{ItemID: c.ItemID, Reason: ReasonMissingItem}
	}
	if c.DependsOnQuestionID == "" {
		return &InvalidEdgeError{ItemID: c.ItemID, Reason: ReasonMissingTarget}
	}
	if !KnownOp(c.Op) {
		return &InvalidEdgeError{ItemID: c.ItemID, TargetID: c.DependsOnQuestionID, Reason: ReasonUnknownOperator}
	}
	return nil
}
