package handlers

import (
	"net/http"

	"dinehall-pos-service/internal/middleware"
	"dinehall-pos-service/pkg/response"

	"go.uber.org/zap"
)

// TablesList is the floor view. Occupancy is derived from open tickets on
// each read, never stored as a separate lock.
func (h *Handler) TablesList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		respondNotFound(w, "Restaurant context not found")
		return
	}

	rows, err := h.DB.Query(ctx, `
		select t.id, t.table_number, t.capacity, coalesce(a.name, 'Main'),
		       exists(
		           select 1 from kots k
		           where k.table_id = t.id and k.status in ('PENDING','PREPARING','READY')
		       ) as has_active_ticket,
		       (
		           select count(*) from reservations r
		           where r.table_id = t.id and r.reservation_date = current_date
		             and r.status in ('PENDING','CONFIRMED','CHECKED_IN')
		       ) as reservations_today
		from restaurant_tables t
		left join areas a on a.id = t.area_id
		where t.restaurant_id = $1 and t.is_active
		order by a.name nulls first, t.table_number
	`, authCtx.RestaurantID)
	if err != nil {
		h.Logger.Error("table list failed", zap.Error(err))
		respondInternalError(w)
		return
	}
	defer rows.Close()

	tables := make([]map[string]any, 0)
	for rows.Next() {
		var (
			id                int64
			tableNumber       string
			capacity          int32
			areaName          string
			hasActiveTicket   bool
			reservationsToday int64
		)
		if err := rows.Scan(&id, &tableNumber, &capacity, &areaName, &hasActiveTicket, &reservationsToday); err != nil {
			respondInternalError(w)
			return
		}
		tables = append(tables, map[string]any{
			"id":                id,
			"tableNumber":       tableNumber,
			"capacity":          capacity,
			"areaName":          areaName,
			"hasActiveTicket":   hasActiveTicket,
			"reservationsToday": reservationsToday,
		})
	}

	response.Success(w, tables)
}
