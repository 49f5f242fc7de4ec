package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"dinehall-pos-service/internal/middleware"
	"dinehall-pos-service/internal/pricing"
	"dinehall-pos-service/pkg/response"
)

// The cart itself is client-side state; the server re-prices it on every
// request from the submitted (item, quantity) pairs.

type cartItemRequest struct {
	MenuItemID int64   `json:"menuItemId"`
	Quantity   int32   `json:"quantity"`
	Notes      *string `json:"notes"`
}

type cartRequest struct {
	Items []cartItemRequest `json:"items"`
}

// buildCartLines snapshots catalog name and price onto each line at build
// time. Unavailable or unknown items fail the whole cart.
func (h *Handler) buildCartLines(ctx context.Context, restaurantID int64, items []cartItemRequest) ([]pricing.Line, error) {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("quantity must be at least 1")
		}
		ids = append(ids, item.MenuItemID)
	}

	menu, err := h.loadMenuItems(ctx, restaurantID, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		row, ok := menu[item.MenuItemID]
		if !ok {
			return nil, fmt.Errorf("menu item %d not found", item.MenuItemID)
		}
		if !row.IsAvailable {
			return nil, fmt.Errorf("%s is currently unavailable", row.Name)
		}
		notes := ""
		if item.Notes != nil {
			notes = *item.Notes
		}
		lines = append(lines, pricing.Line{
			MenuItemID: row.ID,
			Name:       row.Name,
			UnitPrice:  row.Price,
			Quantity:   item.Quantity,
			Notes:      notes,
		})
	}

	if err := pricing.Validate(lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// CartPriceQuote re-prices a cart for display. An empty cart is a valid,
// all-zero quote.
func (h *Handler) CartPriceQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		respondNotFound(w, "Restaurant context not found")
		return
	}

	var body cartRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondValidationError(w, "Invalid request body")
		return
	}

	lines, err := h.buildCartLines(ctx, authCtx.RestaurantID, body.Items)
	if err != nil {
		respondValidationError(w, err.Error())
		return
	}

	response.Success(w, pricing.Price(lines, h.Config.TaxRatePercent))
}
