package survey

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/surveyforge/surveyforge/internal/storage"
)

// testSurvey has two sections with canonical order s1, q1, q2, s2, q3.
func testSurvey() *Survey {
	return &Survey{
		ID: "sv1",
		SurveySections: []SurveySection{
			{ID: "s2", Title: "Second", Priority: 20},
			{ID: "s1", Title: "First", Priority: 10},
		},
		SectionQuestions: []SectionQuestion{
			{SectionID: "s1", QuestionID: "q2", Position: 2},
			{SectionID: "s1", QuestionID: "q1", Position: 1},
			{SectionID: "s2", QuestionID: "q3", Position: 1},
		},
	}
}

func newTestGraph(t *testing.T, quotas storage.ResourceQuotas) *Graph {
	t.Helper()
	g, err := NewGraph(filepath.Join(t.TempDir(), "conditions.jsonl"), quotas)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	return g
}

func TestCanonicalOrder(t *testing.T) {
	t.Parallel()
	order := newCanonicalOrder(testSurvey())

	want := []string{"s1", "q1", "q2", "s2", "q3"}
	for i, id := range want {
		r, ok := order.rankOf(id)
		if !ok {
			t.Fatalf("rankOf(%s): not ranked", id)
		}
		if r != i {
			t.Errorf("rankOf(%s) = %d, want %d", id, r, i)
		}
	}
	if _, ok := order.rankOf("unplaced"); ok {
		t.Error("unplaced ids must not be ranked")
	}
}

func TestGraphAddCondition(t *testing.T) {
	t.Parallel()
	g := newTestGraph(t, storage.ResourceQuotas{})
	s := testSurvey()

	cond, err := g.AddCondition(s, "q3", &ConditionSpec{
		DependsOnSectionID:  "s1",
		DependsOnQuestionID: "q1",
		Op:                  OpEquals,
		Value:               "Yes",
	})
	if err != nil {
		t.Fatalf("AddCondition: %v", err)
	}
	if cond.ID.IsZero() {
		t.Error("expected a generated id")
	}

	got := g.ConditionFor("sv1", "q3")
	if got == nil || got.DependsOnQuestionID != "q1" || got.Op != OpEquals {
		t.Errorf("ConditionFor = %+v", got)
	}
	if edges := g.EdgesFor("sv1", "q3"); len(edges) != 1 {
		t.Errorf("EdgesFor = %d edges, want 1", len(edges))
	}
	if edges := g.EdgesFor("sv1", "q2"); edges != nil {
		t.Errorf("EdgesFor(q2) = %v, want nil", edges)
	}
	if all := g.ForSurvey("sv1"); len(all) != 1 {
		t.Errorf("ForSurvey = %d conditions, want 1", len(all))
	}
}

func TestGraphAddConditionRejections(t *testing.T) {
	t.Parallel()
	g := newTestGraph(t, storage.ResourceQuotas{})
	s := testSurvey()

	tests := []struct {
		name       string
		itemID     string
		spec       ConditionSpec
		wantReason string
	}{
		{
			name:       "self reference",
			itemID:     "q1",
			spec:       ConditionSpec{DependsOnQuestionID: "q1", Op: OpEquals, Value: "x"},
			wantReason: ReasonSelfReference,
		},
		{
			name:       "forward reference to later question",
			itemID:     "q1",
			spec:       ConditionSpec{DependsOnQuestionID: "q3", Op: OpEquals, Value: "x"},
			wantReason: ReasonForwardReference,
		},
		{
			name:   "section before its depends on section",
			itemID: "s1",
			// s2 and its question come after s1 in canonical order.
			spec:       ConditionSpec{DependsOnSectionID: "s2", DependsOnQuestionID: "q3", Op: OpEquals, Value: "x"},
			wantReason: ReasonForwardReference,
		},
		{
			name:       "unknown operator",
			itemID:     "q3",
			spec:       ConditionSpec{DependsOnQuestionID: "q1", Op: Op("matches"), Value: "x"},
			wantReason: ReasonUnknownOperator,
		},
		{
			name:       "target not placed in any section",
			itemID:     "q3",
			spec:       ConditionSpec{DependsOnQuestionID: "unplaced", Op: OpEquals, Value: "x"},
			wantReason: ReasonUnknownTarget,
		},
		{
			name:       "unknown dependent",
			itemID:     "ghost",
			spec:       ConditionSpec{DependsOnQuestionID: "q1", Op: OpEquals, Value: "x"},
			wantReason: ReasonUnknownItem,
		},
		{
			name:       "missing target",
			itemID:     "q3",
			spec:       ConditionSpec{Op: OpEquals, Value: "x"},
			wantReason: ReasonMissingTarget,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.AddCondition(s, tt.itemID, &tt.spec)
			var ierr *InvalidEdgeError
			if !errors.As(err, &ierr) {
				t.Fatalf("expected InvalidEdgeError, got %v", err)
			}
			if ierr.Reason != tt.wantReason {
				t.Errorf("reason = %s, want %s", ierr.Reason, tt.wantReason)
			}
			// A rejected edge leaves no state behind.
			if g.ConditionFor("sv1", tt.itemID) != nil {
				t.Error("rejected condition was persisted")
			}
		})
	}
}

func TestGraphDuplicateEdge(t *testing.T) {
	t.Parallel()
	g := newTestGraph(t, storage.ResourceQuotas{})
	s := testSurvey()

	if _, err := g.AddCondition(s, "q2", &ConditionSpec{DependsOnQuestionID: "q1", Op: OpEquals, Value: "a"}); err != nil {
		t.Fatalf("AddCondition: %v", err)
	}
	_, err := g.AddCondition(s, "q2", &ConditionSpec{DependsOnQuestionID: "q1", Op: OpNotEquals, Value: "b"})
	var ierr *InvalidEdgeError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected InvalidEdgeError, got %v", err)
	}
	if ierr.Reason != ReasonDuplicateEdge {
		t.Errorf("reason = %s, want %s", ierr.Reason, ReasonDuplicateEdge)
	}
	// The original edge is untouched.
	if got := g.ConditionFor("sv1", "q2"); got == nil || got.Op != OpEquals {
		t.Errorf("ConditionFor = %+v", got)
	}
}

func TestGraphRemoveCondition(t *testing.T) {
	t.Parallel()
	g := newTestGraph(t, storage.ResourceQuotas{})
	s := testSurvey()

	if _, err := g.AddCondition(s, "q3", &ConditionSpec{DependsOnQuestionID: "q1", Op: OpEquals, Value: "x"}); err != nil {
		t.Fatalf("AddCondition: %v", err)
	}
	if err := g.RemoveCondition("sv1", "q3"); err != nil {
		t.Fatalf("RemoveCondition: %v", err)
	}
	if g.ConditionFor("sv1", "q3") != nil {
		t.Error("condition still attached after removal")
	}
	if err := g.RemoveCondition("sv1", "q3"); !errors.Is(err, ErrConditionNotFound) {
		t.Fatalf("expected ErrConditionNotFound, got %v", err)
	}
}

func TestGraphIsValidEdge(t *testing.T) {
	t.Parallel()
	g := newTestGraph(t, storage.ResourceQuotas{})
	s := testSurvey()

	if !g.IsValidEdge(s, "q3", "q1") {
		t.Error("q3 -> q1 should be valid")
	}
	if g.IsValidEdge(s, "q1", "q3") {
		t.Error("q1 -> q3 is a forward reference")
	}
	if g.IsValidEdge(s, "q1", "q1") {
		t.Error("self reference is never valid")
	}
}

func TestGraphQuota(t *testing.T) {
	t.Parallel()
	g := newTestGraph(t, storage.ResourceQuotas{MaxConditionsPerSurvey: 1})
	s := testSurvey()

	if _, err := g.AddCondition(s, "q2", &ConditionSpec{DependsOnQuestionID: "q1", Op: OpEquals, Value: "a"}); err != nil {
		t.Fatalf("AddCondition: %v", err)
	}
	if _, err := g.AddCondition(s, "q3", &ConditionSpec{DependsOnQuestionID: "q1", Op: OpEquals, Value: "a"}); !errors.Is(err, ErrConditionQuotaExceeded) {
		t.Fatalf("expected ErrConditionQuotaExceeded, got %v", err)
	}
}

func TestGraphPersistence(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "conditions.jsonl")
	g, err := NewGraph(path, storage.ResourceQuotas{})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	s := testSurvey()
	if _, err := g.AddCondition(s, "q3", &ConditionSpec{DependsOnQuestionID: "q1", Op: OpContains, Value: "x"}); err != nil {
		t.Fatalf("AddCondition: %v", err)
	}

	reopened, err := NewGraph(path, storage.ResourceQuotas{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := reopened.ConditionFor("sv1", "q3")
	if got == nil || got.Op != OpContains || got.Value != "x" {
		t.Errorf("reopened condition = %+v", got)
	}
}
