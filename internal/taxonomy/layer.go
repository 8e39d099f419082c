package taxonomy

import (
	"fmt"
	"slices"

	"github.com/maruel/ksid"
	"github.com/surveyforge/surveyforge/internal/storage"
)

// Layer is a taxonomy node: a named tag with an optional parent and a schema
// of custom fields that its items must conform to.
type Layer struct {
	ID       ksid.ID `json:"id" jsonschema:"description=Unique layer identifier"`
	Name     string  `json:"name" jsonschema:"description=Display name of the layer"`
	Location string  `json:"location" jsonschema:"description=Domain the layer belongs to (surveys/questions/...)"`
	ParentID ksid.ID `json:"parent_id,omitzero" jsonschema:"description=Parent layer id; zero for roots"`
	Color    string  `json:"color,omitempty" jsonschema:"description=Hex color used when rendering the tag"`
	Active   bool    `json:"active" jsonschema:"description=Whether the layer is currently active"`

	// Version is the structural version, incremented on every mutation.
	// Structural operations must supply the version they last observed.
	Version int64 `json:"version" jsonschema:"description=Monotonic structural version for optimistic concurrency"`

	Fields []FieldDefinition `json:"fields,omitempty" jsonschema:"description=Custom field schema for items of this layer"`

	Created storage.Time `json:"created" jsonschema:"description=Creation timestamp"`
	Updated storage.Time `json:"updated" jsonschema:"description=Last modification timestamp"`
}

// Clone returns a deep copy of the layer.
func (l *Layer) Clone() *Layer {
	if l == nil {
		return nil
	}
	out := *l
	out.Fields = make([]FieldDefinition, len(l.Fields))
	for i, f := range l.Fields {
		out.Fields[i] = f
		out.Fields[i].Options = slices.Clone(f.Options)
	}
	return &out
}

// GetID implements jsonldb.Row.
func (l *Layer) GetID() ksid.ID {
	return l.ID
}

// Validate checks structural invariants: non-empty name, known field types,
// field id uniqueness and dropdown options. Failures are reported per field.
func (l *Layer) Validate() error {
	var verr ValidationError
	if l.ID.IsZero() {
		verr.Add("", ReasonEmptyName, "layer id is required")
	}
	if l.Name == "" {
		verr.Add("", ReasonEmptyName, "layer name must not be empty")
	}
	if l.Location == "" {
		verr.Add("", ReasonEmptyName, "layer location must not be empty")
	}
	seen := make(map[string]bool, len(l.Fields))
	for i := range l.Fields {
		f := &l.Fields[i]
		if f.ID == "" {
			verr.Add("", ReasonEmptyName, fmt.Sprintf("field %d has no id", i))
			continue
		}
		if seen[f.ID] {
			verr.Add(f.ID, ReasonDuplicateField, "field id is used more than once in this layer")
		}
		seen[f.ID] = true
		if f.Name == "" {
			verr.Add(f.ID, ReasonEmptyName, "field name must not be empty")
		}
		if !KnownFieldType(f.Type) {
			verr.Add(f.ID, ReasonUnknownType, fmt.Sprintf("unsupported field type %q", f.Type))
		}
		if f.Type == FieldTypeDropdown && len(f.Options) == 0 {
			verr.Add(f.ID, ReasonMissingOptions, "dropdown fields require at least one option")
		}
	}
	return verr.OrNil()
}

// FieldByID returns the field definition with the given id, or nil.
func (l *Layer) FieldByID(fieldID string) *FieldDefinition {
	for i := range l.Fields {
		if l.Fields[i].ID == fieldID {
			return &l.Fields[i]
		}
	}
	return nil
}

// TagItem is a schema-conformant data instance belonging to exactly one layer.
type TagItem struct {
	ID     ksid.ID `json:"id" jsonschema:"description=Unique item identifier"`
	TagID  ksid.ID `json:"tag_id" jsonschema:"description=Layer this item belongs to"`
	Name   string  `json:"name" jsonschema:"description=Display name of the item"`
	Active bool    `json:"active" jsonschema:"description=Whether the item is currently active"`

	Fields []FieldValue `json:"fields,omitempty" jsonschema:"description=Validated field values keyed by field definition id"`

	Created storage.Time `json:"created" jsonschema:"description=Creation timestamp"`
	Updated storage.Time `json:"updated" jsonschema:"description=Last modification timestamp"`
}

// Clone returns a deep copy of the item.
func (t *TagItem) Clone() *TagItem {
	if t == nil {
		return nil
	}
	out := *t
	out.Fields = slices.Clone(t.Fields)
	return &out
}

// GetID implements jsonldb.Row.
func (t *TagItem) GetID() ksid.ID {
	return t.ID
}

// Validate checks item-intrinsic invariants. Schema conformance against the
// owning layer is checked by ItemService, which has access to the layer.
func (t *TagItem) Validate() error {
	var verr ValidationError
	if t.ID.IsZero() {
		verr.Add("", ReasonEmptyName, "item id is required")
	}
	if t.TagID.IsZero() {
		verr.Add("", ReasonEmptyName, "item tag id is required")
	}
	if t.Name == "" {
		verr.Add("", ReasonEmptyName, "item name must not be empty")
	}
	seen := make(map[string]bool, len(t.Fields))
	for _, fv := range t.Fields {
		if seen[fv.FieldID] {
			verr.Add(fv.FieldID, ReasonDuplicateField, "field value supplied more than once")
		}
		seen[fv.FieldID] = true
	}
	return verr.OrNil()
}

// FieldValueByID returns the value for the given field id, or nil.
func (t *TagItem) FieldValueByID(fieldID string) *FieldValue {
	for i := range t.Fields {
		if t.Fields[i].FieldID == fieldID {
			return &t.Fields[i]
		}
	}
	return nil
}
