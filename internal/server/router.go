// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"

	"github.com/surveyforge/surveyforge/internal/server/handlers"
	"github.com/surveyforge/surveyforge/internal/server/ratelimit"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(svc *handlers.Services, cfg *handlers.Config, limiters *ratelimit.Config) http.Handler {
	mux := &http.ServeMux{}

	lh := handlers.NewLayerHandler(svc.Layers, svc.Usage)
	ih := handlers.NewItemHandler(svc.Items)
	ch := handlers.NewConditionHandler(svc.Graph, svc.Eval, svc.Corpus, svc.Usage)

	// Health check
	hh := handlers.NewHealthHandler(cfg.Version)
	mux.Handle("/api/health", Wrap(hh.Health, cfg, limiters))

	// Layer endpoints
	mux.Handle("POST /api/v1/layers", Wrap(lh.CreateLayer, cfg, limiters))
	mux.Handle("GET /api/v1/layers", Wrap(lh.ListLayers, cfg, limiters))
	mux.Handle("GET /api/v1/layers/tree", Wrap(lh.GetTree, cfg, limiters))
	mux.Handle("GET /api/v1/layers/{layerID}", Wrap(lh.GetLayer, cfg, limiters))
	mux.Handle("PATCH /api/v1/layers/{layerID}", Wrap(lh.UpdateLayer, cfg, limiters))
	mux.Handle("POST /api/v1/layers/{layerID}/reparent", Wrap(lh.ReparentLayer, cfg, limiters))
	mux.Handle("DELETE /api/v1/layers/{layerID}", Wrap(lh.DeleteLayer, cfg, limiters))
	mux.Handle("GET /api/v1/layers/{layerID}/usage", Wrap(lh.GetUsage, cfg, limiters))

	// Item endpoints
	mux.Handle("POST /api/v1/layers/{layerID}/items", Wrap(ih.CreateItem, cfg, limiters))
	mux.Handle("GET /api/v1/layers/{layerID}/items", Wrap(ih.ListItems, cfg, limiters))
	mux.Handle("GET /api/v1/items/{itemID}", Wrap(ih.GetItem, cfg, limiters))
	mux.Handle("PATCH /api/v1/items/{itemID}", Wrap(ih.UpdateItem, cfg, limiters))
	mux.Handle("POST /api/v1/items/{itemID}/active", Wrap(ih.SetItemActive, cfg, limiters))
	mux.Handle("DELETE /api/v1/items/{itemID}", Wrap(ih.DeleteItem, cfg, limiters))

	// Condition endpoints
	mux.Handle("GET /api/v1/surveys/{surveyID}/conditions", Wrap(ch.ListConditions, cfg, limiters))
	mux.Handle("PUT /api/v1/surveys/{surveyID}/conditions/{itemID}", Wrap(ch.AddCondition, cfg, limiters))
	mux.Handle("DELETE /api/v1/surveys/{surveyID}/conditions/{itemID}", Wrap(ch.RemoveCondition, cfg, limiters))

	// Visibility evaluation
	mux.Handle("POST /api/v1/surveys/{surveyID}/visibility", Wrap(ch.EvaluateVisibility, cfg, limiters))

	// Corpus snapshot ingestion
	mux.Handle("PUT /api/v1/corpus", Wrap(ch.ReplaceCorpus, cfg, limiters))

	return mux
}
