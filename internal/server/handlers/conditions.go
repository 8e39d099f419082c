package handlers

import (
	"context"

	"github.com/surveyforge/surveyforge/internal/server/dto"
	"github.com/surveyforge/surveyforge/internal/survey"
	"github.com/surveyforge/surveyforge/internal/taxonomy"
)

// ConditionHandler handles display condition and visibility requests.
type ConditionHandler struct {
	graph  *survey.Graph
	eval   *survey.Evaluator
	corpus *survey.CorpusStore
	usage  *taxonomy.UsageIndex
}

// NewConditionHandler creates a new condition handler.
func NewConditionHandler(graph *survey.Graph, eval *survey.Evaluator, corpus *survey.CorpusStore, usage *taxonomy.UsageIndex) *ConditionHandler {
	return &ConditionHandler{
		graph:  graph,
		eval:   eval,
		corpus: corpus,
		usage:  usage,
	}
}

// AddCondition attaches a display condition to a survey item.
func (h *ConditionHandler) AddCondition(ctx context.Context, req *dto.AddConditionRequest) (*dto.ConditionResponse, error) {
	s := h.corpus.Survey(req.SurveyID)
	if s == nil {
		return nil, dto.NotFound("survey")
	}
	spec := &survey.ConditionSpec{
		DependsOnSectionID:  req.DependsOnSectionID,
		DependsOnQuestionID: req.DependsOnQuestionID,
		Op:                  survey.Op(req.Op),
		Value:               req.Value,
	}
	cond, err := h.graph.AddCondition(s, req.ItemID, spec)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return &dto.ConditionResponse{Condition: cond}, nil
}

// RemoveCondition detaches the condition from a survey item.
func (h *ConditionHandler) RemoveCondition(ctx context.Context, req *dto.RemoveConditionRequest) (*dto.ConditionResponse, error) {
	cond := h.graph.ConditionFor(req.SurveyID, req.ItemID)
	if err := h.graph.RemoveCondition(req.SurveyID, req.ItemID); err != nil {
		return nil, mapDomainError(err)
	}
	return &dto.ConditionResponse{Condition: cond}, nil
}

// ListConditions lists all conditions of a survey.
func (h *ConditionHandler) ListConditions(ctx context.Context, req *dto.ListConditionsRequest) (*dto.ConditionListResponse, error) {
	return &dto.ConditionListResponse{Conditions: h.graph.ForSurvey(req.SurveyID)}, nil
}

// EvaluateVisibility computes item visibility for one respondent's answer
// state. With no explicit item list every conditioned item is evaluated.
func (h *ConditionHandler) EvaluateVisibility(ctx context.Context, req *dto.EvaluateVisibilityRequest) (*dto.VisibilityResponse, error) {
	if h.corpus.Survey(req.SurveyID) == nil {
		return nil, dto.NotFound("survey")
	}

	itemIDs := req.ItemIDs
	if len(itemIDs) == 0 {
		for _, cond := range h.graph.ForSurvey(req.SurveyID) {
			itemIDs = append(itemIDs, cond.ItemID)
		}
	}

	visible := make(map[string]bool, len(itemIDs))
	for _, itemID := range itemIDs {
		visible[itemID] = h.eval.IsVisible(req.SurveyID, itemID, req.Answers)
	}
	return &dto.VisibilityResponse{SurveyID: req.SurveyID, Visible: visible}, nil
}

// ReplaceCorpus swaps in a new corpus snapshot and recomputes usage counts.
func (h *ConditionHandler) ReplaceCorpus(ctx context.Context, req *dto.ReplaceCorpusRequest) (*dto.ReplaceCorpusResponse, error) {
	h.corpus.Replace(req.Questions, req.Surveys)
	h.usage.Recompute(req.Questions, req.Surveys)
	return &dto.ReplaceCorpusResponse{
		Questions: len(req.Questions),
		Surveys:   len(req.Surveys),
	}, nil
}
