package handlers

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/maruel/ksid"
	"github.com/surveyforge/surveyforge/internal/server/dto"
	"github.com/surveyforge/surveyforge/internal/storage"
	"github.com/surveyforge/surveyforge/internal/survey"
	"github.com/surveyforge/surveyforge/internal/taxonomy"
)

func newTestServices(t *testing.T) *Services {
	t.Helper()
	dir := t.TempDir()
	quotas := storage.DefaultResourceQuotas()
	usage := taxonomy.NewUsageIndex()

	layers, err := taxonomy.NewLayerService(filepath.Join(dir, "layers.jsonl"), quotas, usage)
	if err != nil {
		t.Fatalf("NewLayerService: %v", err)
	}
	items, err := taxonomy.NewItemService(filepath.Join(dir, "items.jsonl"), layers, quotas)
	if err != nil {
		t.Fatalf("NewItemService: %v", err)
	}
	graph, err := survey.NewGraph(filepath.Join(dir, "conditions.jsonl"), quotas)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	return &Services{
		Layers: layers,
		Items:  items,
		Usage:  usage,
		Graph:  graph,
		Eval:   survey.NewEvaluator(graph),
		Corpus: survey.NewCorpusStore(),
	}
}

func testSurvey(id string) survey.Survey {
	return survey.Survey{
		ID: id,
		SurveySections: []survey.SurveySection{
			{ID: "s1", Title: "About you", Priority: 1},
			{ID: "s2", Title: "Details", Priority: 2},
		},
		SectionQuestions: []survey.SectionQuestion{
			{SectionID: "s1", QuestionID: "q1", Position: 1},
			{SectionID: "s1", QuestionID: "q2", Position: 2},
			{SectionID: "s2", QuestionID: "q3", Position: 1},
		},
	}
}

func apiCode(t *testing.T, err error) (int, dto.ErrorCode) {
	t.Helper()
	var ews dto.ErrorWithStatus
	if !errors.As(err, &ews) {
		t.Fatalf("error %v does not carry a status", err)
	}
	return ews.StatusCode(), ews.Code()
}

func TestLayerHandlerCRUD(t *testing.T) {
	svc := newTestServices(t)
	h := NewLayerHandler(svc.Layers, svc.Usage)
	ctx := context.Background()

	created, err := h.CreateLayer(ctx, &dto.CreateLayerRequest{
		Name:     "Region",
		Location: "taxonomy",
		Color:    "#552a47",
		Fields: []taxonomy.FieldDefinition{
			{ID: "code", Name: "code", Type: taxonomy.FieldTypeText, Label: "Code", Required: true, Enabled: true},
		},
	})
	if err != nil {
		t.Fatalf("CreateLayer: %v", err)
	}
	if created.Layer.Version != 1 {
		t.Errorf("Version = %d, want 1", created.Layer.Version)
	}

	got, err := h.GetLayer(ctx, &dto.GetLayerRequest{LayerID: created.Layer.ID})
	if err != nil {
		t.Fatalf("GetLayer: %v", err)
	}
	if got.Layer.Name != "Region" {
		t.Errorf("Name = %q", got.Layer.Name)
	}

	name := "Area"
	updated, err := h.UpdateLayer(ctx, &dto.UpdateLayerRequest{
		LayerID:         created.Layer.ID,
		ExpectedVersion: 1,
		Name:            &name,
	})
	if err != nil {
		t.Fatalf("UpdateLayer: %v", err)
	}
	if updated.Layer.Name != "Area" || updated.Layer.Version != 2 {
		t.Errorf("after update: name=%q version=%d", updated.Layer.Name, updated.Layer.Version)
	}

	// Stale replay of the same version
	_, err = h.UpdateLayer(ctx, &dto.UpdateLayerRequest{
		LayerID:         created.Layer.ID,
		ExpectedVersion: 1,
		Name:            &name,
	})
	if status, code := apiCode(t, err); status != http.StatusConflict || code != dto.ErrorCodeStaleWrite {
		t.Errorf("stale update: status=%d code=%s", status, code)
	}

	list, err := h.ListLayers(ctx, &dto.ListLayersRequest{Location: "taxonomy"})
	if err != nil {
		t.Fatalf("ListLayers: %v", err)
	}
	if len(list.Layers) != 1 {
		t.Errorf("len(Layers) = %d", len(list.Layers))
	}

	if _, err := h.DeleteLayer(ctx, &dto.DeleteLayerRequest{LayerID: created.Layer.ID}); err != nil {
		t.Fatalf("DeleteLayer: %v", err)
	}
	_, err = h.GetLayer(ctx, &dto.GetLayerRequest{LayerID: created.Layer.ID})
	if status, code := apiCode(t, err); status != http.StatusNotFound || code != dto.ErrorCodeLayerNotFound {
		t.Errorf("get after delete: status=%d code=%s", status, code)
	}
}

func TestLayerHandlerReparentCycle(t *testing.T) {
	svc := newTestServices(t)
	h := NewLayerHandler(svc.Layers, svc.Usage)
	ctx := context.Background()

	parent, err := h.CreateLayer(ctx, &dto.CreateLayerRequest{Name: "A", Location: "taxonomy"})
	if err != nil {
		t.Fatalf("CreateLayer: %v", err)
	}
	child, err := h.CreateLayer(ctx, &dto.CreateLayerRequest{Name: "B", Location: "taxonomy", ParentID: parent.Layer.ID})
	if err != nil {
		t.Fatalf("CreateLayer child: %v", err)
	}

	_, err = h.ReparentLayer(ctx, &dto.ReparentLayerRequest{
		LayerID:         parent.Layer.ID,
		NewParentID:     child.Layer.ID,
		ExpectedVersion: 1,
	})
	if status, code := apiCode(t, err); status != http.StatusConflict || code != dto.ErrorCodeCycleDetected {
		t.Errorf("cycle reparent: status=%d code=%s", status, code)
	}
}

func TestLayerHandlerTreeAndUsage(t *testing.T) {
	svc := newTestServices(t)
	h := NewLayerHandler(svc.Layers, svc.Usage)
	ch := NewConditionHandler(svc.Graph, svc.Eval, svc.Corpus, svc.Usage)
	ctx := context.Background()

	root, err := h.CreateLayer(ctx, &dto.CreateLayerRequest{Name: "Root", Location: "taxonomy"})
	if err != nil {
		t.Fatalf("CreateLayer: %v", err)
	}
	if _, err := h.CreateLayer(ctx, &dto.CreateLayerRequest{Name: "Child", Location: "taxonomy", ParentID: root.Layer.ID}); err != nil {
		t.Fatalf("CreateLayer child: %v", err)
	}

	tree, err := h.GetTree(ctx, &dto.TreeRequest{Location: "taxonomy"})
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if len(tree.Roots) != 1 || len(tree.Roots[0].Children) != 1 {
		t.Fatalf("tree shape: roots=%d", len(tree.Roots))
	}
	if tree.Roots[0].Depth != 0 || tree.Roots[0].Children[0].Depth != 1 {
		t.Errorf("depths: %d, %d", tree.Roots[0].Depth, tree.Roots[0].Children[0].Depth)
	}

	// Usage counts come from the corpus snapshot.
	if _, err := ch.ReplaceCorpus(ctx, &dto.ReplaceCorpusRequest{
		Questions: []survey.Question{
			{ID: "q1", CurrentVersion: survey.QuestionVersion{CategoryTags: []ksid.ID{root.Layer.ID}}},
		},
		Surveys: []survey.Survey{
			{ID: "sv1", SelectedTags: []ksid.ID{root.Layer.ID}, TemplateTags: []ksid.ID{root.Layer.ID}},
		},
	}); err != nil {
		t.Fatalf("ReplaceCorpus: %v", err)
	}

	usage, err := h.GetUsage(ctx, &dto.UsageRequest{LayerID: root.Layer.ID})
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}
	if usage.QuestionCount != 1 || usage.SurveyCount != 1 || usage.Total != 2 {
		t.Errorf("usage = %+v", usage)
	}

	// Deleting a referenced layer without force is rejected.
	_, err = h.DeleteLayer(ctx, &dto.DeleteLayerRequest{LayerID: root.Layer.ID})
	if status, code := apiCode(t, err); status != http.StatusConflict || code != dto.ErrorCodeLayerInUse {
		t.Errorf("delete in use: status=%d code=%s", status, code)
	}
	if _, err := h.DeleteLayer(ctx, &dto.DeleteLayerRequest{LayerID: root.Layer.ID, Force: true}); err != nil {
		t.Fatalf("force delete: %v", err)
	}
}

func TestItemHandlerValidation(t *testing.T) {
	svc := newTestServices(t)
	lh := NewLayerHandler(svc.Layers, svc.Usage)
	ih := NewItemHandler(svc.Items)
	ctx := context.Background()

	layer, err := lh.CreateLayer(ctx, &dto.CreateLayerRequest{
		Name:     "Topics",
		Location: "taxonomy",
		Fields: []taxonomy.FieldDefinition{
			{ID: "weight", Name: "weight", Type: taxonomy.FieldTypeNumber, Label: "Weight", Required: true, Enabled: true},
		},
	})
	if err != nil {
		t.Fatalf("CreateLayer: %v", err)
	}

	item, err := ih.CreateItem(ctx, &dto.CreateItemRequest{
		LayerID: layer.Layer.ID,
		Name:    "Climate",
		Fields:  []taxonomy.FieldValue{{FieldID: "weight", Value: "10"}},
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if v := item.Item.FieldValueByID("weight"); v == nil || v.Value != float64(10) {
		t.Errorf("weight = %#v", v)
	}

	// Missing required field maps to a 400 with field details.
	_, err = ih.CreateItem(ctx, &dto.CreateItemRequest{LayerID: layer.Layer.ID, Name: "Empty"})
	status, code := apiCode(t, err)
	if status != http.StatusBadRequest || code != dto.ErrorCodeValidationFailed {
		t.Errorf("missing required: status=%d code=%s", status, code)
	}

	// Unknown layer
	_, err = ih.CreateItem(ctx, &dto.CreateItemRequest{LayerID: item.Item.ID, Name: "X"})
	if status, _ := apiCode(t, err); status != http.StatusNotFound {
		t.Errorf("unknown layer: status=%d", status)
	}

	if _, err := ih.SetItemActive(ctx, &dto.SetItemActiveRequest{ItemID: item.Item.ID, Active: false}); err != nil {
		t.Fatalf("SetItemActive: %v", err)
	}
	if _, err := ih.DeleteItem(ctx, &dto.DeleteItemRequest{ItemID: item.Item.ID}); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	_, err = ih.GetItem(ctx, &dto.GetItemRequest{ItemID: item.Item.ID})
	if status, code := apiCode(t, err); status != http.StatusNotFound || code != dto.ErrorCodeItemNotFound {
		t.Errorf("get after delete: status=%d code=%s", status, code)
	}
}

func TestConditionHandlerFlow(t *testing.T) {
	svc := newTestServices(t)
	ch := NewConditionHandler(svc.Graph, svc.Eval, svc.Corpus, svc.Usage)
	ctx := context.Background()

	svc.Corpus.Replace(nil, []survey.Survey{testSurvey("sv1")})

	cond, err := ch.AddCondition(ctx, &dto.AddConditionRequest{
		SurveyID:            "sv1",
		ItemID:              "q2",
		DependsOnQuestionID: "q1",
		Op:                  "equals",
		Value:               "Yes",
	})
	if err != nil {
		t.Fatalf("AddCondition: %v", err)
	}
	if cond.Condition.ItemID != "q2" {
		t.Errorf("ItemID = %q", cond.Condition.ItemID)
	}

	// Forward reference is rejected.
	_, err = ch.AddCondition(ctx, &dto.AddConditionRequest{
		SurveyID:            "sv1",
		ItemID:              "q1",
		DependsOnQuestionID: "q3",
		Op:                  "equals",
		Value:               "Yes",
	})
	if status, code := apiCode(t, err); status != http.StatusBadRequest || code != dto.ErrorCodeInvalidEdge {
		t.Errorf("forward ref: status=%d code=%s", status, code)
	}

	// Unknown survey
	_, err = ch.AddCondition(ctx, &dto.AddConditionRequest{
		SurveyID:            "missing",
		ItemID:              "q2",
		DependsOnQuestionID: "q1",
		Op:                  "equals",
		Value:               "Yes",
	})
	if status, _ := apiCode(t, err); status != http.StatusNotFound {
		t.Errorf("unknown survey: status=%d", status)
	}

	// Visibility follows the answer state; unanswered fails closed.
	vis, err := ch.EvaluateVisibility(ctx, &dto.EvaluateVisibilityRequest{SurveyID: "sv1", Answers: map[string]any{}})
	if err != nil {
		t.Fatalf("EvaluateVisibility: %v", err)
	}
	if vis.Visible["q2"] {
		t.Error("q2 should be hidden before q1 is answered")
	}

	vis, err = ch.EvaluateVisibility(ctx, &dto.EvaluateVisibilityRequest{
		SurveyID: "sv1",
		Answers:  map[string]any{"q1": "Yes"},
		ItemIDs:  []string{"q2", "q3"},
	})
	if err != nil {
		t.Fatalf("EvaluateVisibility: %v", err)
	}
	if !vis.Visible["q2"] {
		t.Error("q2 should be visible when q1 = Yes")
	}
	if !vis.Visible["q3"] {
		t.Error("q3 has no condition and should be visible")
	}

	list, err := ch.ListConditions(ctx, &dto.ListConditionsRequest{SurveyID: "sv1"})
	if err != nil {
		t.Fatalf("ListConditions: %v", err)
	}
	if len(list.Conditions) != 1 {
		t.Errorf("len(Conditions) = %d", len(list.Conditions))
	}

	if _, err := ch.RemoveCondition(ctx, &dto.RemoveConditionRequest{SurveyID: "sv1", ItemID: "q2"}); err != nil {
		t.Fatalf("RemoveCondition: %v", err)
	}
	_, err = ch.RemoveCondition(ctx, &dto.RemoveConditionRequest{SurveyID: "sv1", ItemID: "q2"})
	if status, code := apiCode(t, err); status != http.StatusNotFound || code != dto.ErrorCodeConditionNotFound {
		t.Errorf("remove twice: status=%d code=%s", status, code)
	}
}

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler("1.0.0")
	resp, err := h.Health(context.Background(), &dto.HealthRequest{})
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if resp.Status != "ok" || resp.Version != "1.0.0" {
		t.Errorf("resp = %+v", resp)
	}
}
