package survey

import "sort"

// canonicalOrder assigns every section and question of a survey a rank in the
// deterministic delivery order: sections by priority, each followed by its
// questions by position. The order is total, so "strictly earlier" is well
// defined and forbidding forward references transitively forbids cycles.
type canonicalOrder struct {
	rank map[string]int
}

func newCanonicalOrder(s *Survey) *canonicalOrder {
	o := &canonicalOrder{rank: make(map[string]int, len(s.SurveySections)+len(s.SectionQuestions))}

	bySection := make(map[string][]SectionQuestion, len(s.SurveySections))
	for _, sq := range s.SectionQuestions {
		bySection[sq.SectionID] = append(bySection[sq.SectionID], sq)
	}

	next := 0
	for _, section := range s.OrderedSections() {
		o.rank[section.ID] = next
		next++
		questions := bySection[section.ID]
		sort.SliceStable(questions, func(i, j int) bool {
			if questions[i].Position != questions[j].Position {
				return questions[i].Position < questions[j].Position
			}
			return questions[i].QuestionID < questions[j].QuestionID
		})
		for _, sq := range questions {
			if _, seen := o.rank[sq.QuestionID]; !seen {
				o.rank[sq.QuestionID] = next
				next++
			}
		}
	}
	return o
}

// rankOf returns the canonical rank of a section or question id. Questions
// not assigned to any section have no rank.
func (o *canonicalOrder) rankOf(id string) (int, bool) {
	r, ok := o.rank[id]
	return r, ok
}
