package survey

import "sync"

// CorpusStore holds the latest read-only snapshots of the external question
// and survey corpora, as supplied by the surrounding application. The engine
// never fetches documents itself.
type CorpusStore struct {
	mu        sync.RWMutex
	questions []Question
	surveys   map[string]*Survey
}

// NewCorpusStore creates an empty corpus store.
func NewCorpusStore() *CorpusStore {
	return &CorpusStore{surveys: make(map[string]*Survey)}
}

// Replace swaps in a full new corpus snapshot.
func (c *CorpusStore) Replace(questions []Question, surveys []Survey) {
	byID := make(map[string]*Survey, len(surveys))
	for i := range surveys {
		byID[surveys[i].ID] = &surveys[i]
	}
	c.mu.Lock()
	c.questions = questions
	c.surveys = byID
	c.mu.Unlock()
}

// Survey returns the snapshot of one survey, or nil when unknown.
func (c *CorpusStore) Survey(id string) *Survey {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.surveys[id]
}

// Snapshot returns the current corpus contents.
func (c *CorpusStore) Snapshot() ([]Question, []Survey) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	questions := make([]Question, len(c.questions))
	copy(questions, c.questions)
	surveys := make([]Survey, 0, len(c.surveys))
	for _, s := range c.surveys {
		surveys = append(surveys, *s)
	}
	return questions, surveys
}
