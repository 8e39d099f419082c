package survey

import (
	"errors"
	"sync"

	"github.com/maruel/ksid"
	"github.com/surveyforge/surveyforge/internal/jsonldb"
	"github.com/surveyforge/surveyforge/internal/storage"
)

// edgeKey identifies the single condition an item may carry within a survey.
type edgeKey struct {
	surveyID string
	itemID   string
}

// ConditionSpec is the caller-supplied part of a new condition.
type ConditionSpec struct {
	DependsOnSectionID  string
	DependsOnQuestionID string
	Op                  Op
	Value               any
}

// Graph manages the directed dependency edges authored across a survey's
// sections and questions.
//
// Every edge points from a dependent item to a strictly earlier target in
// canonical order. Because canonical order is total, forbidding forward
// references at authoring time makes cycles impossible by construction.
type Graph struct {
	table    *jsonldb.Table[*Condition]
	byItem   *jsonldb.UniqueIndex[edgeKey, *Condition]
	bySurvey *jsonldb.Index[string, *Condition]
	quotas   storage.ResourceQuotas

	mu sync.Mutex
}

// NewGraph creates a dependency graph backed by the given table file.
func NewGraph(tablePath string, quotas storage.ResourceQuotas) (*Graph, error) {
	table, err := jsonldb.NewTable[*Condition](tablePath)
	if err != nil {
		return nil, err
	}
	byItem := jsonldb.NewUniqueIndex(table, func(c *Condition) edgeKey {
		return edgeKey{surveyID: c.SurveyID, itemID: c.ItemID}
	})
	bySurvey := jsonldb.NewIndex(table, func(c *Condition) string { return c.SurveyID })
	return &Graph{table: table, byItem: byItem, bySurvey: bySurvey, quotas: quotas}, nil
}

// AddCondition validates and persists a new dependency edge for an item of
// the given survey snapshot. A rejected edge leaves prior state untouched.
func (g *Graph) AddCondition(s *Survey, itemID string, spec *ConditionSpec) (*Condition, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !KnownOp(spec.Op) {
		return nil, &InvalidEdgeError{ItemID: itemID, TargetID: spec.DependsOnQuestionID, Reason: ReasonUnknownOperator}
	}
	if spec.DependsOnQuestionID == "" {
		return nil, &InvalidEdgeError{ItemID: itemID, Reason: ReasonMissingTarget}
	}
	if err := g.checkEdge(s, itemID, spec); err != nil {
		return nil, err
	}
	if g.byItem.Get(edgeKey{surveyID: s.ID, itemID: itemID}) != nil {
		return nil, &InvalidEdgeError{ItemID: itemID, TargetID: spec.DependsOnQuestionID, Reason: ReasonDuplicateEdge}
	}
	if g.quotas.MaxConditionsPerSurvey > 0 && g.countLocked(s.ID) >= g.quotas.MaxConditionsPerSurvey {
		return nil, ErrConditionQuotaExceeded
	}

	now := storage.Now()
	cond := &Condition{
		ID:                  ksid.NewID(),
		SurveyID:            s.ID,
		ItemID:              itemID,
		DependsOnSectionID:  spec.DependsOnSectionID,
		DependsOnQuestionID: spec.DependsOnQuestionID,
		Op:                  spec.Op,
		Value:               spec.Value,
		Created:             now,
		Updated:             now,
	}
	if err := g.table.Append(cond); err != nil {
		return nil, err
	}
	return cond.Clone(), nil
}

// RemoveCondition detaches the condition from an item.
func (g *Graph) RemoveCondition(surveyID, itemID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cond := g.byItem.Get(edgeKey{surveyID: surveyID, itemID: itemID})
	if cond == nil {
		return ErrConditionNotFound
	}
	err := g.table.Delete(cond.ID)
	if errors.Is(err, jsonldb.ErrRowNotFound) {
		return ErrConditionNotFound
	}
	return err
}

// ConditionFor returns the condition attached to an item, or nil.
func (g *Graph) ConditionFor(surveyID, itemID string) *Condition {
	return g.byItem.Get(edgeKey{surveyID: surveyID, itemID: itemID})
}

// EdgesFor returns the outgoing dependency edges of an item. At most one in
// this design.
func (g *Graph) EdgesFor(surveyID, itemID string) []*Condition {
	if cond := g.ConditionFor(surveyID, itemID); cond != nil {
		return []*Condition{cond}
	}
	return nil
}

// ForSurvey returns all conditions authored across a survey.
func (g *Graph) ForSurvey(surveyID string) []*Condition {
	var out []*Condition
	for cond := range g.bySurvey.Iter(surveyID) {
		out = append(out, cond)
	}
	return out
}

// IsValidEdge reports whether an edge from dependent to target would be
// accepted against the given survey snapshot, ignoring duplicates.
func (g *Graph) IsValidEdge(s *Survey, dependent, target string) bool {
	err := g.checkEdge(s, dependent, &ConditionSpec{DependsOnQuestionID: target})
	return err == nil
}

// checkEdge validates self-reference and canonical order constraints.
func (g *Graph) checkEdge(s *Survey, itemID string, spec *ConditionSpec) error {
	if itemID == spec.DependsOnQuestionID || (spec.DependsOnSectionID != "" && itemID == spec.DependsOnSectionID) {
		return &InvalidEdgeError{ItemID: itemID, TargetID: itemID, Reason: ReasonSelfReference}
	}

	order := newCanonicalOrder(s)
	itemRank, ok := order.rankOf(itemID)
	if !ok {
		return &InvalidEdgeError{ItemID: itemID, TargetID: spec.DependsOnQuestionID, Reason: ReasonUnknownItem}
	}
	targetRank, ok := order.rankOf(spec.DependsOnQuestionID)
	if !ok {
		return &InvalidEdgeError{ItemID: itemID, TargetID: spec.DependsOnQuestionID, Reason: ReasonUnknownTarget}
	}
	// The target must be strictly earlier than the dependent.
	if targetRank >= itemRank {
		return &InvalidEdgeError{ItemID: itemID, TargetID: spec.DependsOnQuestionID, Reason: ReasonForwardReference}
	}
	if spec.DependsOnSectionID != "" {
		sectionRank, ok := order.rankOf(spec.DependsOnSectionID)
		if !ok {
			return &InvalidEdgeError{ItemID: itemID, TargetID: spec.DependsOnSectionID, Reason: ReasonUnknownTarget}
		}
		if sectionRank >= itemRank {
			return &InvalidEdgeError{ItemID: itemID, TargetID: spec.DependsOnSectionID, Reason: ReasonForwardReference}
		}
	}
	return nil
}

func (g *Graph) countLocked(surveyID string) int {
	n := 0
	for range g.bySurvey.Iter(surveyID) {
		n++
	}
	return n
}
