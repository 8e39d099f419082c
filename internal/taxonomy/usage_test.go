package taxonomy

import (
	"testing"

	"github.com/maruel/ksid"
	"github.com/surveyforge/surveyforge/internal/survey"
)

func TestUsageIndexRecompute(t *testing.T) {
	t.Parallel()
	t1 := ksid.NewID()
	t2 := ksid.NewID()

	idx := NewUsageIndex()
	idx.Recompute(
		[]survey.Question{
			{ID: "q1", CurrentVersion: survey.QuestionVersion{Labels: []ksid.ID{t1}}},
		},
		[]survey.Survey{
			{ID: "s1", SelectedTags: []ksid.ID{t1, t2}},
		},
	)

	if got := idx.UsageOf(t1); got != (Usage{QuestionCount: 1, SurveyCount: 1}) {
		t.Errorf("UsageOf(t1) = %+v", got)
	}
	if got := idx.UsageOf(t2); got != (Usage{QuestionCount: 0, SurveyCount: 1}) {
		t.Errorf("UsageOf(t2) = %+v", got)
	}
	if got := idx.UsageOf(ksid.NewID()); got != (Usage{}) {
		t.Errorf("UsageOf(unknown) = %+v", got)
	}
}

func TestUsageIndexCountsDocumentsOnce(t *testing.T) {
	t.Parallel()
	t1 := ksid.NewID()

	idx := NewUsageIndex()
	idx.Recompute(
		[]survey.Question{
			// Same tag in both lists of one document counts once.
			{ID: "q1", CurrentVersion: survey.QuestionVersion{
				CategoryTags: []ksid.ID{t1},
				Labels:       []ksid.ID{t1},
			}},
		},
		[]survey.Survey{
			{ID: "s1", SelectedTags: []ksid.ID{t1}, TemplateTags: []ksid.ID{t1}},
		},
	)

	if got := idx.UsageOf(t1); got != (Usage{QuestionCount: 1, SurveyCount: 1}) {
		t.Errorf("UsageOf(t1) = %+v", got)
	}
}

func TestUsageIndexRecomputeReplaces(t *testing.T) {
	t.Parallel()
	t1 := ksid.NewID()

	idx := NewUsageIndex()
	idx.Recompute(
		[]survey.Question{{ID: "q1", CurrentVersion: survey.QuestionVersion{Labels: []ksid.ID{t1}}}},
		nil,
	)
	if got := idx.UsageOf(t1); got.QuestionCount != 1 {
		t.Fatalf("UsageOf(t1) = %+v", got)
	}

	// A fresh corpus without the tag drops the old counts.
	idx.Recompute(nil, nil)
	if got := idx.UsageOf(t1); got.Total() != 0 {
		t.Errorf("UsageOf(t1) after empty recompute = %+v", got)
	}
}

func TestUsageIndexForget(t *testing.T) {
	t.Parallel()
	t1 := ksid.NewID()

	idx := NewUsageIndex()
	idx.Recompute(nil, []survey.Survey{{ID: "s1", SelectedTags: []ksid.ID{t1}}})
	if got := idx.UsageOf(t1); got.SurveyCount != 1 {
		t.Fatalf("UsageOf(t1) = %+v", got)
	}

	idx.Forget(t1)
	if got := idx.UsageOf(t1); got.Total() != 0 {
		t.Errorf("UsageOf(t1) after Forget = %+v", got)
	}
}
