package taxonomy

// FieldType represents the type of a custom field declared on a layer.
type FieldType string

const (
	// Primitive types.

	// FieldTypeText stores a single line of plain text.
	FieldTypeText FieldType = "text"
	// FieldTypeTextarea stores multi-line plain text.
	FieldTypeTextarea FieldType = "textarea"
	// FieldTypeNumber stores numeric values (integer or float).
	FieldTypeNumber FieldType = "number"
	// FieldTypeBoolean stores boolean values.
	FieldTypeBoolean FieldType = "boolean"
	// FieldTypeDate stores ISO8601 date strings.
	FieldTypeDate FieldType = "date"

	// Validated text types.

	// FieldTypeColor stores hex color strings.
	FieldTypeColor FieldType = "color"
	// FieldTypeImage stores image references (URL or data URI).
	FieldTypeImage FieldType = "image"

	// Enumerated types (with predefined options).

	// FieldTypeDropdown stores a single selection from predefined options.
	FieldTypeDropdown FieldType = "dropdown"
)

// KnownFieldType reports whether t is one of the supported field types.
func KnownFieldType(t FieldType) bool {
	switch t {
	case FieldTypeText, FieldTypeTextarea, FieldTypeNumber, FieldTypeBoolean,
		FieldTypeDate, FieldTypeColor, FieldTypeImage, FieldTypeDropdown:
		return true
	default:
		return false
	}
}

// FieldDefinition represents one typed custom field in a layer's schema.
type FieldDefinition struct {
	ID       string    `json:"id" jsonschema:"description=Field identifier unique within the layer"`
	Name     string    `json:"name" jsonschema:"description=Machine name of the field"`
	Type     FieldType `json:"type" jsonschema:"description=Field type (text/number/dropdown/etc)"`
	Label    string    `json:"label,omitempty" jsonschema:"description=Display label shown in forms"`
	Required bool      `json:"required,omitempty" jsonschema:"description=Whether a value is required on every item"`
	Enabled  bool      `json:"enabled" jsonschema:"description=Whether the field is currently active"`

	// Options contains the allowed values for dropdown fields.
	Options []string `json:"options,omitempty" jsonschema:"description=Allowed values for dropdown fields"`
}

// FieldValue is one field's value on a tag item, keyed by field definition id.
type FieldValue struct {
	FieldID string `json:"field_id" jsonschema:"description=Field definition id this value belongs to"`
	Value   any    `json:"value" jsonschema:"description=Validated value; runtime shape depends on the field type"`
}
