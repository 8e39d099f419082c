// Defines shared service dependencies for handlers.

package handlers

import (
	"github.com/surveyforge/surveyforge/internal/storage"
	"github.com/surveyforge/surveyforge/internal/survey"
	"github.com/surveyforge/surveyforge/internal/taxonomy"
)

// Services holds all service dependencies for handlers.
type Services struct {
	Layers *taxonomy.LayerService
	Items  *taxonomy.ItemService
	Usage  *taxonomy.UsageIndex
	Graph  *survey.Graph
	Eval   *survey.Evaluator
	Corpus *survey.CorpusStore
}

// Config holds configuration values needed by handlers.
type Config struct {
	Version string
	Quotas  storage.ResourceQuotas
}
