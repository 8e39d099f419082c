package taxonomy

import (
	"fmt"
	"strings"

	"github.com/maruel/ksid"
)

// Machine-readable reason codes carried by FieldError.
const (
	ReasonNotAString      = "not_a_string"
	ReasonNotANumber      = "not_a_number"
	ReasonNotFinite       = "not_finite"
	ReasonNotABoolean     = "not_a_boolean"
	ReasonInvalidDate     = "invalid_date"
	ReasonInvalidColor    = "invalid_color"
	ReasonEmptyReference  = "empty_reference"
	ReasonNotAnOption     = "not_an_option"
	ReasonMissingRequired = "missing_required"
	ReasonUnknownField    = "unknown_field"
	ReasonUnknownType     = "unknown_type"
	ReasonDuplicateField  = "duplicate_field"
	ReasonUnknownParent   = "unknown_parent"
	ReasonMissingOptions  = "missing_options"
	ReasonEmptyName       = "empty_name"
)

// FieldError describes one validation failure on one field.
type FieldError struct {
	FieldID string `json:"field_id"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	if e.FieldID == "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("field %s: %s: %s", e.FieldID, e.Reason, e.Message)
}

// ValidationError aggregates field-level failures so callers can render
// per-field messages instead of a single boolean.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i := range e.Fields {
		msgs[i] = e.Fields[i].Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add appends a failure to the list.
func (e *ValidationError) Add(fieldID, reason, message string) {
	e.Fields = append(e.Fields, FieldError{FieldID: fieldID, Reason: reason, Message: message})
}

// OrNil returns the error if any failure was recorded, nil otherwise.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// CycleError is returned when a reparent operation would make a layer its
// own ancestor.
type CycleError struct {
	LayerID     ksid.ID `json:"layer_id"`
	NewParentID ksid.ID `json:"new_parent_id"`
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("reparenting layer %s under %s would create a cycle", e.LayerID, e.NewParentID)
}

// StaleWriteError is returned when a structural mutation supplies a version
// that no longer matches the stored layer. The caller must re-fetch and retry.
type StaleWriteError struct {
	LayerID         ksid.ID `json:"layer_id"`
	ExpectedVersion int64   `json:"expected_version"`
	CurrentVersion  int64   `json:"current_version"`
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("layer %s was modified concurrently: expected version %d, current is %d", e.LayerID, e.ExpectedVersion, e.CurrentVersion)
}

// ReferentialIntegrityError is returned when deleting a layer that is still
// referenced by questions or surveys and force was not set.
type ReferentialIntegrityError struct {
	LayerID       ksid.ID `json:"layer_id"`
	QuestionCount int     `json:"question_count"`
	SurveyCount   int     `json:"survey_count"`
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("layer %s is in use by %d questions and %d surveys", e.LayerID, e.QuestionCount, e.SurveyCount)
}

// DanglingParentWarning reports a layer whose parent reference points at a
// missing layer. The node is treated as a root; authoring tools must surface
// the warning rather than drop the node.
type DanglingParentWarning struct {
	LayerID  ksid.ID `json:"layer_id"`
	ParentID ksid.ID `json:"parent_id"`
}

func (w *DanglingParentWarning) Error() string {
	return fmt.Sprintf("layer %s references missing parent %s", w.LayerID, w.ParentID)
}
