// Package taxonomy implements the dynamic taxonomy and schema engine.
//
// This package handles internal database tables (JSONL-backed) for:
//   - Layers (taxonomy nodes with user-defined field schemas)
//   - TagItems (schema-conformant entries belonging to a layer)
//
// plus the derived structures built on top of them: the taxonomy forest
// (tree.go) and the usage projection over external documents (usage.go).
package taxonomy

import (
	"errors"
	"fmt"
	"sync"

	"github.com/maruel/ksid"
	"github.com/surveyforge/surveyforge/internal/jsonldb"
	"github.com/surveyforge/surveyforge/internal/storage"
)

var (
	ErrLayerNotFound      = errors.New("layer not found")
	ErrLayerIDEmpty       = errors.New("layer id is required")
	ErrLayerQuotaExceeded = errors.New("layer quota exceeded")
	ErrFieldQuotaExceeded = errors.New("field quota exceeded")
)

// Usage counts how many external documents reference a layer.
type Usage struct {
	QuestionCount int `json:"question_count"`
	SurveyCount   int `json:"survey_count"`
}

// Total returns the combined reference count.
func (u Usage) Total() int {
	return u.QuestionCount + u.SurveyCount
}

// UsageReporter is consulted before a layer is deleted. Forget strips a
// deleted layer from the projection so subsequent lookups reflect the
// deletion without waiting for a corpus recompute.
type UsageReporter interface {
	UsageOf(tagID ksid.ID) Usage
	Forget(tagID ksid.ID)
}

// LayerPatch describes a partial update to a layer. Nil fields are unchanged.
type LayerPatch struct {
	Name   *string
	Color  *string
	Active *bool
	Fields *[]FieldDefinition
}

// LayerService handles layer schema management.
//
// Structural mutations (update, reparent, delete) are serialized on a service
// mutex so the cycle check always runs against current data. Each mutation
// must supply the structural version it last observed and fails with a
// StaleWriteError on mismatch.
type LayerService struct {
	table      *jsonldb.Table[*Layer]
	byLocation *jsonldb.Index[string, *Layer]
	quotas     storage.ResourceQuotas
	usage      UsageReporter

	mu sync.Mutex
}

// NewLayerService creates a new layer service backed by the given table file.
// usage may be nil, in which case delete never blocks on references.
func NewLayerService(tablePath string, quotas storage.ResourceQuotas, usage UsageReporter) (*LayerService, error) {
	table, err := jsonldb.NewTable[*Layer](tablePath)
	if err != nil {
		return nil, err
	}
	byLocation := jsonldb.NewIndex(table, func(l *Layer) string { return l.Location })
	return &LayerService{table: table, byLocation: byLocation, quotas: quotas, usage: usage}, nil
}

// Create creates a new layer. The parent, if given, must exist.
func (s *LayerService) Create(name, location string, parentID ksid.ID, color string, fields []FieldDefinition) (*Layer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quotas.MaxLayers > 0 && s.countLocked(location) >= s.quotas.MaxLayers {
		return nil, ErrLayerQuotaExceeded
	}
	if s.quotas.MaxFieldsPerLayer > 0 && len(fields) > s.quotas.MaxFieldsPerLayer {
		return nil, ErrFieldQuotaExceeded
	}
	if !parentID.IsZero() && s.table.Get(parentID) == nil {
		var verr ValidationError
		verr.Add("", ReasonUnknownParent, fmt.Sprintf("parent layer %s does not exist", parentID))
		return nil, &verr
	}

	now := storage.Now()
	layer := &Layer{
		ID:       ksid.NewID(),
		Name:     name,
		Location: location,
		ParentID: parentID,
		Color:    color,
		Active:   true,
		Version:  1,
		Fields:   cloneFields(fields),
		Created:  now,
		Updated:  now,
	}
	if err := s.table.Append(layer); err != nil {
		return nil, err
	}
	return layer.Clone(), nil
}

// Get retrieves a layer by ID.
func (s *LayerService) Get(id ksid.ID) (*Layer, error) {
	if id.IsZero() {
		return nil, ErrLayerIDEmpty
	}
	layer := s.table.Get(id)
	if layer == nil {
		return nil, ErrLayerNotFound
	}
	return layer, nil
}

// List returns all layers, restricted to a location when one is given.
// Order follows insertion order, which is creation order for this table.
func (s *LayerService) List(location string) []*Layer {
	var out []*Layer
	if location == "" {
		for l := range s.table.All() {
			out = append(out, l)
		}
		return out
	}
	for l := range s.byLocation.Iter(location) {
		out = append(out, l)
	}
	return out
}

// Update applies a partial update to a layer. expectedVersion must match the
// layer's current structural version; the update bumps it by one.
func (s *LayerService) Update(id ksid.ID, expectedVersion int64, patch *LayerPatch) (*Layer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.Fields != nil && s.quotas.MaxFieldsPerLayer > 0 && len(*patch.Fields) > s.quotas.MaxFieldsPerLayer {
		return nil, ErrFieldQuotaExceeded
	}
	updated, err := s.table.Modify(id, func(l *Layer) error {
		if l.Version != expectedVersion {
			return &StaleWriteError{LayerID: id, ExpectedVersion: expectedVersion, CurrentVersion: l.Version}
		}
		if patch.Name != nil {
			l.Name = *patch.Name
		}
		if patch.Color != nil {
			l.Color = *patch.Color
		}
		if patch.Active != nil {
			l.Active = *patch.Active
		}
		if patch.Fields != nil {
			l.Fields = cloneFields(*patch.Fields)
		}
		l.Version++
		l.Updated = storage.Now()
		return nil
	})
	if errors.Is(err, jsonldb.ErrRowNotFound) {
		return nil, ErrLayerNotFound
	}
	return updated, err
}

// Reparent moves a layer under a new parent, or to the root when newParentID
// is zero. The move is rejected with a CycleError if it would make the layer
// its own ancestor. The cycle check walks upward from the new parent along
// parent links against current data; no cached topology is trusted.
func (s *LayerService) Reparent(id, newParentID ksid.ID, expectedVersion int64) (*Layer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !newParentID.IsZero() {
		if s.table.Get(newParentID) == nil {
			var verr ValidationError
			verr.Add("", ReasonUnknownParent, fmt.Sprintf("parent layer %s does not exist", newParentID))
			return nil, &verr
		}
		if err := s.checkCycleLocked(id, newParentID); err != nil {
			return nil, err
		}
	}

	updated, err := s.table.Modify(id, func(l *Layer) error {
		if l.Version != expectedVersion {
			return &StaleWriteError{LayerID: id, ExpectedVersion: expectedVersion, CurrentVersion: l.Version}
		}
		l.ParentID = newParentID
		l.Version++
		l.Updated = storage.Now()
		return nil
	})
	if errors.Is(err, jsonldb.ErrRowNotFound) {
		return nil, ErrLayerNotFound
	}
	return updated, err
}

// Delete removes a layer. When the layer is still referenced by questions or
// surveys the delete is rejected unless force is set; a forced delete also
// strips the layer from the usage projection.
func (s *LayerService) Delete(id ksid.ID, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table.Get(id) == nil {
		return ErrLayerNotFound
	}
	if s.usage != nil {
		if u := s.usage.UsageOf(id); u.Total() > 0 {
			if !force {
				return &ReferentialIntegrityError{LayerID: id, QuestionCount: u.QuestionCount, SurveyCount: u.SurveyCount}
			}
		}
	}
	if err := s.table.Delete(id); err != nil {
		return err
	}
	if force && s.usage != nil {
		s.usage.Forget(id)
	}
	return nil
}

// checkCycleLocked walks upward from newParentID along parent links and
// rejects the move if id is encountered. O(depth) per call.
func (s *LayerService) checkCycleLocked(id, newParentID ksid.ID) error {
	for cur := newParentID; !cur.IsZero(); {
		if cur == id {
			return &CycleError{LayerID: id, NewParentID: newParentID}
		}
		parent := s.table.Get(cur)
		if parent == nil {
			// Dangling reference, treated as a root.
			return nil
		}
		cur = parent.ParentID
	}
	return nil
}

func (s *LayerService) countLocked(location string) int {
	n := 0
	for range s.byLocation.Iter(location) {
		n++
	}
	return n
}

func cloneFields(fields []FieldDefinition) []FieldDefinition {
	out := make([]FieldDefinition, len(fields))
	for i, f := range fields {
		out[i] = f
		if f.Options != nil {
			out[i].Options = append([]string(nil), f.Options...)
		}
	}
	return out
}
