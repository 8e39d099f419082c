package taxonomy

import (
	"sync"

	"github.com/maruel/ksid"
	"github.com/surveyforge/surveyforge/internal/survey"
)

// UsageIndex is a projection over the external question and survey corpora,
// counting how many documents reference each layer.
//
// The index is never a source of truth: it is recomputed from caller-supplied
// snapshots whenever the corpus changes. A document referencing the same
// layer more than once still counts as one document. Lookups are safe to call
// concurrently with recomputes.
type UsageIndex struct {
	mu     sync.RWMutex
	counts map[ksid.ID]Usage
}

// NewUsageIndex creates an empty usage index.
func NewUsageIndex() *UsageIndex {
	return &UsageIndex{counts: make(map[ksid.ID]Usage)}
}

// Recompute rebuilds the projection from corpus snapshots, replacing all
// previous counts.
func (x *UsageIndex) Recompute(questions []survey.Question, surveys []survey.Survey) {
	counts := make(map[ksid.ID]Usage)
	for i := range questions {
		q := &questions[i]
		for tagID := range documentTags(q.CurrentVersion.CategoryTags, q.CurrentVersion.Labels) {
			u := counts[tagID]
			u.QuestionCount++
			counts[tagID] = u
		}
	}
	for i := range surveys {
		sv := &surveys[i]
		for tagID := range documentTags(sv.SelectedTags, sv.TemplateTags) {
			u := counts[tagID]
			u.SurveyCount++
			counts[tagID] = u
		}
	}
	x.mu.Lock()
	x.counts = counts
	x.mu.Unlock()
}

// UsageOf returns how many questions and surveys reference the given layer.
func (x *UsageIndex) UsageOf(tagID ksid.ID) Usage {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.counts[tagID]
}

// Forget strips a layer from the projection. Called after a forced delete so
// subsequent lookups reflect the deletion before the next corpus recompute.
func (x *UsageIndex) Forget(tagID ksid.ID) {
	x.mu.Lock()
	delete(x.counts, tagID)
	x.mu.Unlock()
}

// documentTags deduplicates a document's tag references so each document is
// counted once per layer.
func documentTags(lists ...[]ksid.ID) map[ksid.ID]struct{} {
	out := make(map[ksid.ID]struct{})
	for _, list := range lists {
		for _, id := range list {
			if !id.IsZero() {
				out[id] = struct{}{}
			}
		}
	}
	return out
}
