package handlers

import (
	"context"

	"github.com/surveyforge/surveyforge/internal/server/dto"
	"github.com/surveyforge/surveyforge/internal/taxonomy"
)

// LayerHandler handles taxonomy layer management requests.
type LayerHandler struct {
	layers *taxonomy.LayerService
	usage  *taxonomy.UsageIndex
}

// NewLayerHandler creates a new layer handler.
func NewLayerHandler(layers *taxonomy.LayerService, usage *taxonomy.UsageIndex) *LayerHandler {
	return &LayerHandler{
		layers: layers,
		usage:  usage,
	}
}

// CreateLayer creates a new layer.
func (h *LayerHandler) CreateLayer(ctx context.Context, req *dto.CreateLayerRequest) (*dto.LayerResponse, error) {
	layer, err := h.layers.Create(req.Name, req.Location, req.ParentID, req.Color, req.Fields)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return &dto.LayerResponse{Layer: layer}, nil
}

// ListLayers lists layers, optionally filtered by location.
func (h *LayerHandler) ListLayers(ctx context.Context, req *dto.ListLayersRequest) (*dto.LayerListResponse, error) {
	return &dto.LayerListResponse{Layers: h.layers.List(req.Location)}, nil
}

// GetLayer retrieves a single layer.
func (h *LayerHandler) GetLayer(ctx context.Context, req *dto.GetLayerRequest) (*dto.LayerResponse, error) {
	layer, err := h.layers.Get(req.LayerID)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return &dto.LayerResponse{Layer: layer}, nil
}

// UpdateLayer patches a layer's mutable fields under optimistic concurrency.
func (h *LayerHandler) UpdateLayer(ctx context.Context, req *dto.UpdateLayerRequest) (*dto.LayerResponse, error) {
	patch := &taxonomy.LayerPatch{
		Name:   req.Name,
		Color:  req.Color,
		Active: req.Active,
		Fields: req.Fields,
	}
	layer, err := h.layers.Update(req.LayerID, req.ExpectedVersion, patch)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return &dto.LayerResponse{Layer: layer}, nil
}

// ReparentLayer moves a layer under a new parent, rejecting cycles.
func (h *LayerHandler) ReparentLayer(ctx context.Context, req *dto.ReparentLayerRequest) (*dto.LayerResponse, error) {
	layer, err := h.layers.Reparent(req.LayerID, req.NewParentID, req.ExpectedVersion)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return &dto.LayerResponse{Layer: layer}, nil
}

// DeleteLayer deletes a layer unless it is still referenced, or always when
// force is set.
func (h *LayerHandler) DeleteLayer(ctx context.Context, req *dto.DeleteLayerRequest) (*dto.LayerResponse, error) {
	layer, err := h.layers.Get(req.LayerID)
	if err != nil {
		return nil, mapDomainError(err)
	}
	if err := h.layers.Delete(req.LayerID, req.Force); err != nil {
		return nil, mapDomainError(err)
	}
	return &dto.LayerResponse{Layer: layer}, nil
}

// GetTree renders the layer hierarchy for one location as a tree.
func (h *LayerHandler) GetTree(ctx context.Context, req *dto.TreeRequest) (*dto.TreeResponse, error) {
	tree := taxonomy.BuildTree(h.layers.List(req.Location))

	resp := &dto.TreeResponse{Roots: make([]*dto.TreeNodeResponse, 0, len(tree.Roots()))}
	for _, root := range tree.Roots() {
		resp.Roots = append(resp.Roots, treeNodeToResponse(root, 0))
	}
	for _, w := range tree.Warnings() {
		resp.Warnings = append(resp.Warnings, w.Error())
	}
	return resp, nil
}

func treeNodeToResponse(node *taxonomy.TreeNode, depth int) *dto.TreeNodeResponse {
	resp := &dto.TreeNodeResponse{Layer: node.Layer, Depth: depth}
	for _, child := range node.Children {
		resp.Children = append(resp.Children, treeNodeToResponse(child, depth+1))
	}
	return resp
}

// GetUsage reports how many questions and surveys reference a layer.
func (h *LayerHandler) GetUsage(ctx context.Context, req *dto.UsageRequest) (*dto.UsageResponse, error) {
	if _, err := h.layers.Get(req.LayerID); err != nil {
		return nil, mapDomainError(err)
	}
	u := h.usage.UsageOf(req.LayerID)
	return &dto.UsageResponse{
		LayerID:       req.LayerID,
		QuestionCount: u.QuestionCount,
		SurveyCount:   u.SurveyCount,
		Total:         u.Total(),
	}, nil
}
