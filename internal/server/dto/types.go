// Request and response types for the HTTP API.

package dto

import (
	"strings"

	"github.com/maruel/ksid"
	"github.com/surveyforge/surveyforge/internal/survey"
	"github.com/surveyforge/surveyforge/internal/taxonomy"
)

// --- Layers ---

// CreateLayerRequest creates a new layer, optionally nested under a parent.
type CreateLayerRequest struct {
	Name     string                     `json:"name"`
	Location string                     `json:"location"`
	ParentID ksid.ID                    `json:"parent_id,omitzero"`
	Color    string                     `json:"color,omitempty"`
	Fields   []taxonomy.FieldDefinition `json:"fields,omitempty"`
}

func (r *CreateLayerRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return MissingField("name")
	}
	if strings.TrimSpace(r.Location) == "" {
		return MissingField("location")
	}
	return nil
}

// ListLayersRequest lists layers, optionally filtered by location.
type ListLayersRequest struct {
	Location string `query:"location"`
}

func (r *ListLayersRequest) Validate() error {
	return nil
}

// GetLayerRequest fetches a single layer.
type GetLayerRequest struct {
	LayerID ksid.ID `path:"layerID"`
}

func (r *GetLayerRequest) Validate() error {
	if r.LayerID.IsZero() {
		return MissingField("layerID")
	}
	return nil
}

// UpdateLayerRequest patches a layer. Only non-nil fields change; the write
// is rejected when expected_version does not match the stored version.
type UpdateLayerRequest struct {
	LayerID         ksid.ID                     `path:"layerID"`
	ExpectedVersion int64                       `json:"expected_version"`
	Name            *string                     `json:"name,omitempty"`
	Color           *string                     `json:"color,omitempty"`
	Active          *bool                       `json:"active,omitempty"`
	Fields          *[]taxonomy.FieldDefinition `json:"fields,omitempty"`
}

func (r *UpdateLayerRequest) Validate() error {
	if r.LayerID.IsZero() {
		return MissingField("layerID")
	}
	if r.ExpectedVersion <= 0 {
		return MissingField("expected_version")
	}
	return nil
}

// ReparentLayerRequest moves a layer under a new parent. A zero new_parent_id
// moves the layer to the root.
type ReparentLayerRequest struct {
	LayerID         ksid.ID `path:"layerID"`
	NewParentID     ksid.ID `json:"new_parent_id,omitzero"`
	ExpectedVersion int64   `json:"expected_version"`
}

func (r *ReparentLayerRequest) Validate() error {
	if r.LayerID.IsZero() {
		return MissingField("layerID")
	}
	if r.ExpectedVersion <= 0 {
		return MissingField("expected_version")
	}
	return nil
}

// DeleteLayerRequest deletes a layer. Force skips the usage check.
type DeleteLayerRequest struct {
	LayerID ksid.ID `path:"layerID"`
	Force   bool    `query:"force"`
}

func (r *DeleteLayerRequest) Validate() error {
	if r.LayerID.IsZero() {
		return MissingField("layerID")
	}
	return nil
}

// LayerResponse is a single layer in API responses.
type LayerResponse struct {
	Layer *taxonomy.Layer `json:"layer"`
}

// LayerListResponse is a list of layers.
type LayerListResponse struct {
	Layers []*taxonomy.Layer `json:"layers"`
}

// TreeRequest builds the layer tree for one location.
type TreeRequest struct {
	Location string `query:"location"`
}

func (r *TreeRequest) Validate() error {
	return nil
}

// TreeNodeResponse is one node of the rendered layer tree.
type TreeNodeResponse struct {
	Layer    *taxonomy.Layer     `json:"layer"`
	Depth    int                 `json:"depth"`
	Children []*TreeNodeResponse `json:"children,omitempty"`
}

// TreeResponse is the full layer tree plus any integrity warnings
// encountered while building it.
type TreeResponse struct {
	Roots    []*TreeNodeResponse `json:"roots"`
	Warnings []string            `json:"warnings,omitempty"`
}

// UsageRequest fetches usage counts for a layer.
type UsageRequest struct {
	LayerID ksid.ID `path:"layerID"`
}

func (r *UsageRequest) Validate() error {
	if r.LayerID.IsZero() {
		return MissingField("layerID")
	}
	return nil
}

// UsageResponse reports how many documents reference a layer.
type UsageResponse struct {
	LayerID       ksid.ID `json:"layer_id"`
	QuestionCount int     `json:"question_count"`
	SurveyCount   int     `json:"survey_count"`
	Total         int     `json:"total"`
}

// --- Items ---

// CreateItemRequest creates a tag item under a layer.
type CreateItemRequest struct {
	LayerID ksid.ID               `path:"layerID"`
	Name    string                `json:"name"`
	Fields  []taxonomy.FieldValue `json:"fields,omitempty"`
}

func (r *CreateItemRequest) Validate() error {
	if r.LayerID.IsZero() {
		return MissingField("layerID")
	}
	if strings.TrimSpace(r.Name) == "" {
		return MissingField("name")
	}
	return nil
}

// ListItemsRequest lists the items of a layer.
type ListItemsRequest struct {
	LayerID ksid.ID `path:"layerID"`
}

func (r *ListItemsRequest) Validate() error {
	if r.LayerID.IsZero() {
		return MissingField("layerID")
	}
	return nil
}

// GetItemRequest fetches a single item.
type GetItemRequest struct {
	ItemID ksid.ID `path:"itemID"`
}

func (r *GetItemRequest) Validate() error {
	if r.ItemID.IsZero() {
		return MissingField("itemID")
	}
	return nil
}

// UpdateItemRequest patches an item. Only non-nil fields change.
type UpdateItemRequest struct {
	ItemID ksid.ID                `path:"itemID"`
	Name   *string                `json:"name,omitempty"`
	Fields *[]taxonomy.FieldValue `json:"fields,omitempty"`
}

func (r *UpdateItemRequest) Validate() error {
	if r.ItemID.IsZero() {
		return MissingField("itemID")
	}
	return nil
}

// SetItemActiveRequest toggles an item's active flag.
type SetItemActiveRequest struct {
	ItemID ksid.ID `path:"itemID"`
	Active bool    `json:"active"`
}

func (r *SetItemActiveRequest) Validate() error {
	if r.ItemID.IsZero() {
		return MissingField("itemID")
	}
	return nil
}

// DeleteItemRequest deletes an item.
type DeleteItemRequest struct {
	ItemID ksid.ID `path:"itemID"`
}

func (r *DeleteItemRequest) Validate() error {
	if r.ItemID.IsZero() {
		return MissingField("itemID")
	}
	return nil
}

// ItemResponse is a single item in API responses.
type ItemResponse struct {
	Item *taxonomy.TagItem `json:"item"`
}

// ItemListResponse is a list of items.
type ItemListResponse struct {
	Items []*taxonomy.TagItem `json:"items"`
}

// --- Conditions ---

// AddConditionRequest attaches a display condition to a survey item. At most
// one condition per item; adding to an item that already has one fails.
type AddConditionRequest struct {
	SurveyID            string `path:"surveyID"`
	ItemID              string `path:"itemID"`
	DependsOnSectionID  string `json:"depends_on_section_id,omitempty"`
	DependsOnQuestionID string `json:"depends_on_question_id"`
	Op                  string `json:"op"`
	Value               any    `json:"value"`
}

func (r *AddConditionRequest) Validate() error {
	if r.SurveyID == "" {
		return MissingField("surveyID")
	}
	if r.ItemID == "" {
		return MissingField("itemID")
	}
	if r.DependsOnQuestionID == "" {
		return MissingField("depends_on_question_id")
	}
	if r.Op == "" {
		return MissingField("op")
	}
	return nil
}

// RemoveConditionRequest detaches the condition from a survey item.
type RemoveConditionRequest struct {
	SurveyID string `path:"surveyID"`
	ItemID   string `path:"itemID"`
}

func (r *RemoveConditionRequest) Validate() error {
	if r.SurveyID == "" {
		return MissingField("surveyID")
	}
	if r.ItemID == "" {
		return MissingField("itemID")
	}
	return nil
}

// ListConditionsRequest lists all conditions of a survey.
type ListConditionsRequest struct {
	SurveyID string `path:"surveyID"`
}

func (r *ListConditionsRequest) Validate() error {
	if r.SurveyID == "" {
		return MissingField("surveyID")
	}
	return nil
}

// ConditionResponse is a single condition in API responses.
type ConditionResponse struct {
	Condition *survey.Condition `json:"condition"`
}

// ConditionListResponse is a list of conditions.
type ConditionListResponse struct {
	Conditions []*survey.Condition `json:"conditions"`
}

// --- Visibility ---

// EvaluateVisibilityRequest evaluates item visibility for one respondent's
// answer state. When item_ids is empty every item with a condition is
// evaluated.
type EvaluateVisibilityRequest struct {
	SurveyID string         `path:"surveyID"`
	Answers  map[string]any `json:"answers"`
	ItemIDs  []string       `json:"item_ids,omitempty"`
}

func (r *EvaluateVisibilityRequest) Validate() error {
	if r.SurveyID == "" {
		return MissingField("surveyID")
	}
	return nil
}

// VisibilityResponse maps item IDs to their computed visibility.
type VisibilityResponse struct {
	SurveyID string          `json:"survey_id"`
	Visible  map[string]bool `json:"visible"`
}

// --- Corpus ---

// ReplaceCorpusRequest swaps in a new snapshot of the external question and
// survey corpora. Usage counts are recomputed from the new snapshot.
type ReplaceCorpusRequest struct {
	Questions []survey.Question `json:"questions"`
	Surveys   []survey.Survey   `json:"surveys"`
}

func (r *ReplaceCorpusRequest) Validate() error {
	return nil
}

// ReplaceCorpusResponse reports the size of the accepted snapshot.
type ReplaceCorpusResponse struct {
	Questions int `json:"questions"`
	Surveys   int `json:"surveys"`
}

// --- Health ---

// HealthRequest is the empty health check request.
type HealthRequest struct{}

func (r *HealthRequest) Validate() error {
	return nil
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
