package handlers

import (
	"context"
	"net/http"

	"dinehall-pos-service/internal/middleware"
	"dinehall-pos-service/pkg/response"

	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

// Menu management lives in a separate back-office service; the POS only reads
// the catalog, mainly to snapshot names and prices onto tickets.

type menuItemRow struct {
	ID          int64
	Name        string
	Price       float64
	IsAvailable bool
}

func (h *Handler) MenuList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		respondNotFound(w, "Restaurant context not found")
		return
	}

	rows, err := h.DB.Query(ctx, `
		select id, name, price, is_available
		from menu_items
		where restaurant_id = $1 and deleted_at is null
		order by name asc
	`, authCtx.RestaurantID)
	if err != nil {
		h.Logger.Error("menu list failed", zap.Error(err))
		respondInternalError(w)
		return
	}
	defer rows.Close()

	items := make([]map[string]any, 0)
	for rows.Next() {
		var (
			id          int64
			name        string
			price       pgtype.Numeric
			isAvailable bool
		)
		if err := rows.Scan(&id, &name, &price, &isAvailable); err != nil {
			respondInternalError(w)
			return
		}
		items = append(items, map[string]any{
			"id":          id,
			"name":        name,
			"price":       numericToFloat64(price),
			"isAvailable": isAvailable,
		})
	}

	response.Success(w, items)
}

// loadMenuItems resolves catalog rows for a cart, scoped to the restaurant so
// a foreign menu id simply comes back missing.
func (h *Handler) loadMenuItems(ctx context.Context, restaurantID int64, ids []int64) (map[int64]menuItemRow, error) {
	items := make(map[int64]menuItemRow, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	rows, err := h.DB.Query(ctx, `
		select id, name, price, is_available
		from menu_items
		where restaurant_id = $1 and id = any($2) and deleted_at is null
	`, restaurantID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item  menuItemRow
			price pgtype.Numeric
		)
		if err := rows.Scan(&item.ID, &item.Name, &price, &item.IsAvailable); err != nil {
			return nil, err
		}
		item.Price = numericToFloat64(price)
		items[item.ID] = item
	}
	return items, rows.Err()
}
