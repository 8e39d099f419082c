package handlers

import (
	"context"

	"github.com/surveyforge/surveyforge/internal/server/dto"
	"github.com/surveyforge/surveyforge/internal/taxonomy"
)

// ItemHandler handles tag item management requests.
type ItemHandler struct {
	items *taxonomy.ItemService
}

// NewItemHandler creates a new item handler.
func NewItemHandler(items *taxonomy.ItemService) *ItemHandler {
	return &ItemHandler{items: items}
}

// CreateItem creates a tag item under a layer, validating its field values
// against the layer's schema.
func (h *ItemHandler) CreateItem(ctx context.Context, req *dto.CreateItemRequest) (*dto.ItemResponse, error) {
	item, err := h.items.Create(req.LayerID, req.Name, req.Fields)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return &dto.ItemResponse{Item: item}, nil
}

// ListItems lists the items of a layer.
func (h *ItemHandler) ListItems(ctx context.Context, req *dto.ListItemsRequest) (*dto.ItemListResponse, error) {
	return &dto.ItemListResponse{Items: h.items.List(req.LayerID)}, nil
}

// GetItem retrieves a single item.
func (h *ItemHandler) GetItem(ctx context.Context, req *dto.GetItemRequest) (*dto.ItemResponse, error) {
	item, err := h.items.Get(req.ItemID)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return &dto.ItemResponse{Item: item}, nil
}

// UpdateItem patches an item's name or field values.
func (h *ItemHandler) UpdateItem(ctx context.Context, req *dto.UpdateItemRequest) (*dto.ItemResponse, error) {
	patch := &taxonomy.ItemPatch{
		Name:   req.Name,
		Fields: req.Fields,
	}
	item, err := h.items.Update(req.ItemID, patch)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return &dto.ItemResponse{Item: item}, nil
}

// SetItemActive toggles an item's active flag.
func (h *ItemHandler) SetItemActive(ctx context.Context, req *dto.SetItemActiveRequest) (*dto.ItemResponse, error) {
	item, err := h.items.SetActive(req.ItemID, req.Active)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return &dto.ItemResponse{Item: item}, nil
}

// DeleteItem deletes an item.
func (h *ItemHandler) DeleteItem(ctx context.Context, req *dto.DeleteItemRequest) (*dto.ItemResponse, error) {
	item, err := h.items.Get(req.ItemID)
	if err != nil {
		return nil, mapDomainError(err)
	}
	if err := h.items.Delete(req.ItemID); err != nil {
		return nil, mapDomainError(err)
	}
	return &dto.ItemResponse{Item: item}, nil
}
