package taxonomy

import (
	"errors"

	"github.com/maruel/ksid"
	"github.com/surveyforge/surveyforge/internal/jsonldb"
	"github.com/surveyforge/surveyforge/internal/storage"
)

var (
	ErrItemNotFound      = errors.New("item not found")
	ErrItemIDEmpty       = errors.New("item id is required")
	ErrItemQuotaExceeded = errors.New("item quota exceeded")
)

// ItemPatch describes a partial update to a tag item. Nil fields are unchanged.
type ItemPatch struct {
	Name   *string
	Active *bool
	Fields *[]FieldValue
}

// ItemService handles tag items, validated against their layer's schema.
//
// A layer's schema may evolve after items are created. Items are never
// migrated retroactively: a value whose defining field was removed from the
// layer is preserved on the item but excluded from subsequent validation.
type ItemService struct {
	table  *jsonldb.Table[*TagItem]
	byTag  *jsonldb.Index[ksid.ID, *TagItem]
	layers *LayerService
	quotas storage.ResourceQuotas
}

// NewItemService creates a new item service backed by the given table file.
func NewItemService(tablePath string, layers *LayerService, quotas storage.ResourceQuotas) (*ItemService, error) {
	table, err := jsonldb.NewTable[*TagItem](tablePath)
	if err != nil {
		return nil, err
	}
	byTag := jsonldb.NewIndex(table, func(i *TagItem) ksid.ID { return i.TagID })
	return &ItemService{table: table, byTag: byTag, layers: layers, quotas: quotas}, nil
}

// Create creates a new item under the given layer. Field values are validated
// against the layer's current schema; unknown field ids are rejected, not
// silently dropped.
func (s *ItemService) Create(tagID ksid.ID, name string, fieldValues []FieldValue) (*TagItem, error) {
	layer, err := s.layers.Get(tagID)
	if err != nil {
		return nil, err
	}
	if s.quotas.MaxItemsPerLayer > 0 && s.countByTag(tagID) >= s.quotas.MaxItemsPerLayer {
		return nil, ErrItemQuotaExceeded
	}
	validated, err := validateAgainstLayer(layer, fieldValues, nil)
	if err != nil {
		return nil, err
	}

	now := storage.Now()
	item := &TagItem{
		ID:      ksid.NewID(),
		TagID:   tagID,
		Name:    name,
		Active:  true,
		Fields:  validated,
		Created: now,
		Updated: now,
	}
	if err := s.table.Append(item); err != nil {
		return nil, err
	}
	return item.Clone(), nil
}

// Get retrieves an item by ID.
func (s *ItemService) Get(id ksid.ID) (*TagItem, error) {
	if id.IsZero() {
		return nil, ErrItemIDEmpty
	}
	item := s.table.Get(id)
	if item == nil {
		return nil, ErrItemNotFound
	}
	return item, nil
}

// List returns all items belonging to the given layer.
func (s *ItemService) List(tagID ksid.ID) []*TagItem {
	var out []*TagItem
	for item := range s.byTag.Iter(tagID) {
		out = append(out, item)
	}
	return out
}

// Update applies a partial update. Supplied field values are validated
// against the owning layer's current schema; stale values already on the
// item are carried over untouched.
func (s *ItemService) Update(id ksid.ID, patch *ItemPatch) (*TagItem, error) {
	updated, err := s.table.Modify(id, func(item *TagItem) error {
		if patch.Fields != nil {
			layer, err := s.layers.Get(item.TagID)
			if err != nil {
				return err
			}
			validated, err := validateAgainstLayer(layer, *patch.Fields, item.Fields)
			if err != nil {
				return err
			}
			item.Fields = validated
		}
		if patch.Name != nil {
			item.Name = *patch.Name
		}
		if patch.Active != nil {
			item.Active = *patch.Active
		}
		item.Updated = storage.Now()
		return nil
	})
	if errors.Is(err, jsonldb.ErrRowNotFound) {
		return nil, ErrItemNotFound
	}
	return updated, err
}

// SetActive toggles an item's active flag without revalidating its fields.
func (s *ItemService) SetActive(id ksid.ID, active bool) (*TagItem, error) {
	updated, err := s.table.Modify(id, func(item *TagItem) error {
		item.Active = active
		item.Updated = storage.Now()
		return nil
	})
	if errors.Is(err, jsonldb.ErrRowNotFound) {
		return nil, ErrItemNotFound
	}
	return updated, err
}

// Delete removes an item.
func (s *ItemService) Delete(id ksid.ID) error {
	err := s.table.Delete(id)
	if errors.Is(err, jsonldb.ErrRowNotFound) {
		return ErrItemNotFound
	}
	return err
}

func (s *ItemService) countByTag(tagID ksid.ID) int {
	n := 0
	for range s.byTag.Iter(tagID) {
		n++
	}
	return n
}

// validateAgainstLayer validates supplied values against the layer's current
// field list and returns the normalized value set. Values in existing whose
// defining field was removed from the layer are preserved as-is; everything
// else on existing is superseded by supplied.
func validateAgainstLayer(layer *Layer, supplied, existing []FieldValue) ([]FieldValue, error) {
	var verr ValidationError
	out := make([]FieldValue, 0, len(supplied))
	present := make(map[string]bool, len(supplied))
	for _, fv := range supplied {
		def := layer.FieldByID(fv.FieldID)
		if def == nil {
			verr.Add(fv.FieldID, ReasonUnknownField, "field does not exist in the layer's schema")
			continue
		}
		normalized, ferr := Normalize(def, fv.Value)
		if ferr != nil {
			verr.Fields = append(verr.Fields, *ferr)
			continue
		}
		out = append(out, FieldValue{FieldID: fv.FieldID, Value: normalized})
		present[fv.FieldID] = true
	}
	for i := range layer.Fields {
		def := &layer.Fields[i]
		if def.Required && !present[def.ID] {
			verr.Add(def.ID, ReasonMissingRequired, "required field has no value")
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	// Carry over stale values whose field no longer exists in the schema.
	for _, fv := range existing {
		if layer.FieldByID(fv.FieldID) == nil && !present[fv.FieldID] {
			out = append(out, fv)
		}
	}
	return out, nil
}
