package taxonomy

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Field value validation maps raw JSON wire values to normalized Go values.
//
// JSON wire type → Go type (json.Unmarshal) → normalized value:
//
//	"text"      → string  → trimmed string
//	123 / 3.14  → float64 → float64 (finite)
//	true/false  → bool    → bool
//	"2024-01-02"→ string  → ISO date string
//	"#552a47"   → string  → lowercase hex color
//
// Normalization is pure; a failure carries the field id and a machine-readable
// reason code so the UI can render per-field messages.

var hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// dateLayouts are the accepted unambiguous calendar date formats, tried in
// order. Ambiguous forms like 01/02/2006 are deliberately absent.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Normalize validates raw against the field definition and returns the
// normalized value. It has no side effects.
func Normalize(def *FieldDefinition, raw any) (any, *FieldError) {
	switch def.Type {
	case FieldTypeText, FieldTypeTextarea:
		return normalizeText(def, raw)
	case FieldTypeNumber:
		return normalizeNumber(def, raw)
	case FieldTypeBoolean:
		return normalizeBoolean(def, raw)
	case FieldTypeDate:
		return normalizeDate(def, raw)
	case FieldTypeColor:
		return normalizeColor(def, raw)
	case FieldTypeImage:
		return normalizeImage(def, raw)
	case FieldTypeDropdown:
		return normalizeDropdown(def, raw)
	default:
		return nil, &FieldError{FieldID: def.ID, Reason: ReasonUnknownType, Message: fmt.Sprintf("unsupported field type %q", def.Type)}
	}
}

func normalizeText(def *FieldDefinition, raw any) (any, *FieldError) {
	s, ok := raw.(string)
	if !ok {
		return nil, &FieldError{FieldID: def.ID, Reason: ReasonNotAString, Message: fmt.Sprintf("expected a string, got %T", raw)}
	}
	return strings.TrimSpace(s), nil
}

func normalizeNumber(def *FieldDefinition, raw any) (any, *FieldError) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, &FieldError{FieldID: def.ID, Reason: ReasonNotANumber, Message: fmt.Sprintf("%q does not parse as a number", v)}
		}
		f = parsed
	default:
		return nil, &FieldError{FieldID: def.ID, Reason: ReasonNotANumber, Message: fmt.Sprintf("expected a number, got %T", raw)}
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, &FieldError{FieldID: def.ID, Reason: ReasonNotFinite, Message: "number must be finite"}
	}
	return f, nil
}

func normalizeBoolean(def *FieldDefinition, raw any) (any, *FieldError) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1", "on":
			return true, nil
		case "false", "no", "0", "off":
			return false, nil
		}
		return nil, &FieldError{FieldID: def.ID, Reason: ReasonNotABoolean, Message: fmt.Sprintf("%q is not a boolean", v)}
	case float64:
		if v == 0 {
			return false, nil
		}
		if v == 1 {
			return true, nil
		}
		return nil, &FieldError{FieldID: def.ID, Reason: ReasonNotABoolean, Message: fmt.Sprintf("%v is not a boolean", v)}
	default:
		return nil, &FieldError{FieldID: def.ID, Reason: ReasonNotABoolean, Message: fmt.Sprintf("expected a boolean, got %T", raw)}
	}
}

func normalizeDate(def *FieldDefinition, raw any) (any, *FieldError) {
	s, ok := raw.(string)
	if !ok {
		return nil, &FieldError{FieldID: def.ID, Reason: ReasonInvalidDate, Message: fmt.Sprintf("expected a date string, got %T", raw)}
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return nil, &FieldError{FieldID: def.ID, Reason: ReasonInvalidDate, Message: fmt.Sprintf("%q is not an unambiguous calendar date", s)}
}

func normalizeColor(def *FieldDefinition, raw any) (any, *FieldError) {
	s, ok := raw.(string)
	if !ok {
		return nil, &FieldError{FieldID: def.ID, Reason: ReasonInvalidColor, Message: fmt.Sprintf("expected a color string, got %T", raw)}
	}
	s = strings.TrimSpace(s)
	if !hexColorRe.MatchString(s) {
		return nil, &FieldError{FieldID: def.ID, Reason: ReasonInvalidColor, Message: fmt.Sprintf("%q is not a hex color", s)}
	}
	return strings.ToLower(s), nil
}

func normalizeImage(def *FieldDefinition, raw any) (any, *FieldError) {
	s, ok := raw.(string)
	if !ok {
		return nil, &FieldError{FieldID: def.ID, Reason: ReasonEmptyReference, Message: fmt.Sprintf("expected an image reference string, got %T", raw)}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &FieldError{FieldID: def.ID, Reason: ReasonEmptyReference, Message: "image reference must not be empty"}
	}
	return s, nil
}

func normalizeDropdown(def *FieldDefinition, raw any) (any, *FieldError) {
	s, ok := raw.(string)
	if !ok {
		return nil, &FieldError{FieldID: def.ID, Reason: ReasonNotAnOption, Message: fmt.Sprintf("expected a string option, got %T", raw)}
	}
	s = strings.TrimSpace(s)
	for _, opt := range def.Options {
		if s == opt {
			return s, nil
		}
	}
	return nil, &FieldError{FieldID: def.ID, Reason: ReasonNotAnOption, Message: fmt.Sprintf("%q is not one of the field's options", s)}
}
