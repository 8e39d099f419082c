// Package survey implements the conditional dependency and visibility engine
// for survey delivery, plus the read-only corpus snapshot types it and the
// taxonomy usage projection consume.
//
// The engine never fetches data itself. Callers hand it already-fetched
// snapshots of Questions and Surveys; evaluation is synchronous, pure and
// deterministic.
package survey

import (
	"sort"

	"github.com/maruel/ksid"
)

// QuestionVersion is the published revision of a question that carries its
// taxonomy references.
type QuestionVersion struct {
	CategoryTags []ksid.ID `json:"category_tags,omitempty" jsonschema:"description=Category layer ids assigned to the question"`
	Labels       []ksid.ID `json:"labels,omitempty" jsonschema:"description=Label layer ids assigned to the question"`
}

// Question is a read-only snapshot of a question document from the external
// corpus. Question ids are opaque strings owned by the corpus, not by this
// engine.
type Question struct {
	ID             string          `json:"id" jsonschema:"description=Corpus question identifier"`
	CurrentVersion QuestionVersion `json:"current_version" jsonschema:"description=Published revision carrying taxonomy references"`
}

// SurveySection is one section of a survey. Sections are ordered by Priority
// ascending; Priority ties break by section id for determinism.
type SurveySection struct {
	ID       string `json:"id" jsonschema:"description=Corpus section identifier"`
	Title    string `json:"title,omitempty" jsonschema:"description=Section display title"`
	Priority int    `json:"priority" jsonschema:"description=Sort priority; lower comes first"`
}

// SectionQuestion assigns a question to a section at a position.
type SectionQuestion struct {
	SectionID  string `json:"section_id" jsonschema:"description=Section the question belongs to"`
	QuestionID string `json:"question_id" jsonschema:"description=Question assigned to the section"`
	Position   int    `json:"position" jsonschema:"description=Position within the section; lower comes first"`
}

// Survey is a read-only snapshot of a survey document from the external
// corpus.
type Survey struct {
	ID               string            `json:"id" jsonschema:"description=Corpus survey identifier"`
	SelectedTags     []ksid.ID         `json:"selected_tags,omitempty" jsonschema:"description=Layer ids selected on the survey"`
	TemplateTags     []ksid.ID         `json:"template_tags,omitempty" jsonschema:"description=Layer ids inherited from the survey template"`
	SurveySections   []SurveySection   `json:"survey_sections,omitempty" jsonschema:"description=Ordered sections of the survey"`
	SectionQuestions []SectionQuestion `json:"section_questions,omitempty" jsonschema:"description=Question to section assignments"`
}

// OrderedSections returns the survey's sections sorted into canonical order.
func (s *Survey) OrderedSections() []SurveySection {
	out := make([]SurveySection, len(s.SurveySections))
	copy(out, s.SurveySections)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}
