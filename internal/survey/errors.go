package survey

import (
	"errors"
	"fmt"
)

// Machine-readable reason codes carried by InvalidEdgeError.
const (
	ReasonSelfReference    = "self_reference"
	ReasonForwardReference = "forward_reference"
	ReasonDuplicateEdge    = "duplicate_edge"
	ReasonUnknownTarget    = "unknown_target"
	ReasonUnknownItem      = "unknown_item"
	ReasonUnknownOperator  = "unknown_operator"
	ReasonMissingTarget    = "missing_target"
	ReasonMissingItem      = "missing_item"
	ReasonMissingID        = "missing_id"
)

// ErrConditionNotFound is returned when an item has no condition attached.
var ErrConditionNotFound = errors.New("condition not found")

// ErrConditionQuotaExceeded is returned when a survey reaches its condition limit.
var ErrConditionQuotaExceeded = errors.New("condition quota exceeded")

// InvalidEdgeError rejects a dependency edge at authoring time. The failed
// AddCondition call leaves prior state untouched.
type InvalidEdgeError struct {
	ItemID   string `json:"item_id"`
	TargetID string `json:"target_id,omitempty"`
	Reason   string `json:"reason"`
}

func (e *InvalidEdgeError) Error() string {
	if e.TargetID == "" {
		return fmt.Sprintf("invalid dependency edge for %s: %s", e.ItemID, e.Reason)
	}
	return fmt.Sprintf("invalid dependency edge %s -> %s: %s", e.ItemID, e.TargetID, e.Reason)
}
