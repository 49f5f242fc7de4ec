package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

var errRestaurantNotFound = errors.New("restaurant not found")

// resolveRestaurantByCode scopes unauthenticated endpoints (booking widget,
// table-side QR) to a restaurant via its public code.
func (h *Handler) resolveRestaurantByCode(ctx context.Context, r *http.Request) (int64, error) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		return 0, errRestaurantNotFound
	}

	var restaurantID int64
	err := h.DB.QueryRow(ctx, `
		select id from restaurants where code = $1 and is_active
	`, code).Scan(&restaurantID)
	if err != nil {
		return 0, errRestaurantNotFound
	}
	return restaurantID, nil
}
