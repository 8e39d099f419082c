// Defines server-wide resource quotas applied by the taxonomy and survey services.

package storage

import "errors"

// ResourceQuotas defines content limits enforced by the services.
// A zero value means "no limit".
type ResourceQuotas struct {
	// MaxLayers limits the number of taxonomy layers per location.
	MaxLayers int `json:"max_layers" jsonschema:"description=Maximum layers per location (0=no limit)"`

	// MaxItemsPerLayer limits the number of items under a single layer.
	MaxItemsPerLayer int `json:"max_items_per_layer" jsonschema:"description=Maximum items per layer (0=no limit)"`

	// MaxFieldsPerLayer limits the custom fields a layer schema may declare.
	MaxFieldsPerLayer int `json:"max_fields_per_layer" jsonschema:"description=Maximum field definitions per layer (0=no limit)"`

	// MaxConditionsPerSurvey limits the dependency conditions per survey.
	MaxConditionsPerSurvey int `json:"max_conditions_per_survey" jsonschema:"description=Maximum dependency conditions per survey (0=no limit)"`

	// MaxRequestBodyBytes limits the size of a single API request body.
	MaxRequestBodyBytes int64 `json:"max_request_body_bytes" jsonschema:"description=Maximum API request body size in bytes (0=no limit)"`
}

// Validate checks that all quota values are non-negative.
func (q *ResourceQuotas) Validate() error {
	if q.MaxLayers < 0 {
		return errors.New("max_layers must be non-negative")
	}
	if q.MaxItemsPerLayer < 0 {
		return errors.New("max_items_per_layer must be non-negative")
	}
	if q.MaxFieldsPerLayer < 0 {
		return errors.New("max_fields_per_layer must be non-negative")
	}
	if q.MaxConditionsPerSurvey < 0 {
		return errors.New("max_conditions_per_survey must be non-negative")
	}
	if q.MaxRequestBodyBytes < 0 {
		return errors.New("max_request_body_bytes must be non-negative")
	}
	return nil
}

// DefaultResourceQuotas returns the default server-level resource quotas.
func DefaultResourceQuotas() ResourceQuotas {
	return ResourceQuotas{
		MaxLayers:              500,
		MaxItemsPerLayer:       2000,
		MaxFieldsPerLayer:      50,
		MaxConditionsPerSurvey: 500,
		MaxRequestBodyBytes:    1024 * 1024, // 1 MiB
	}
}
