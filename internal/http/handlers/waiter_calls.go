package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"dinehall-pos-service/internal/middleware"
	"dinehall-pos-service/pkg/response"

	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

var waiterRequestTypes = map[string]struct{}{
	"SERVICE": {},
	"ORDER":   {},
	"BILL":    {},
}

type waiterCallRequest struct {
	TableNumber string  `json:"tableNumber"`
	RequestType string  `json:"requestType"`
	Notes       *string `json:"notes"`
}

// PublicWaiterCallCreate is hit from the table-side QR page. No dedup: a
// table may stack several open requests and the floor clears them one by one.
func (h *Handler) PublicWaiterCallCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, err := h.resolveRestaurantByCode(ctx, r)
	if err != nil {
		respondNotFound(w, "Restaurant not found")
		return
	}

	var body waiterCallRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondValidationError(w, "Invalid request body")
		return
	}

	requestType := strings.ToUpper(strings.TrimSpace(body.RequestType))
	if _, ok := waiterRequestTypes[requestType]; !ok {
		respondValidationError(w, "Request type must be SERVICE, ORDER or BILL")
		return
	}

	var tableID int64
	if err := h.DB.QueryRow(ctx, `
		select id from restaurant_tables where restaurant_id = $1 and table_number = $2 and is_active
	`, restaurantID, strings.TrimSpace(body.TableNumber)).Scan(&tableID); err != nil {
		respondNotFound(w, "Table not found")
		return
	}

	var requestID int64
	if err := h.DB.QueryRow(ctx, `
		insert into waiter_requests (restaurant_id, table_id, request_type, notes)
		values ($1, $2, $3, $4)
		returning id
	`, restaurantID, tableID, requestType, nullIfEmptyPtr(body.Notes)).Scan(&requestID); err != nil {
		h.Logger.Error("waiter request insert failed", zap.Error(err))
		respondInternalError(w)
		return
	}

	h.publishEvent(ctx, restaurantID, "waiter.called", map[string]any{
		"requestId":   requestID,
		"tableId":     tableID,
		"requestType": requestType,
	})

	response.Created(w, map[string]any{"id": requestID, "status": "OPEN"})
}

type waiterCallRow struct {
	ID          int64      `json:"id"`
	TableID     int64      `json:"tableId"`
	TableNumber string     `json:"tableNumber"`
	AreaName    string     `json:"areaName"`
	RequestType string     `json:"requestType"`
	Notes       *string    `json:"notes"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	AttendedAt  *time.Time `json:"attendedAt"`
}

// WaiterCallsList groups requests by area so each section's waiters see their
// own tables first. Grouping is purely a read-side shape.
func (h *Handler) WaiterCallsList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		respondNotFound(w, "Restaurant context not found")
		return
	}

	query := `
		select wr.id, wr.table_id, t.table_number, coalesce(a.name, 'Main'), wr.request_type,
		       wr.notes, wr.status, wr.created_at, wr.attended_at
		from waiter_requests wr
		join restaurant_tables t on t.id = wr.table_id
		left join areas a on a.id = t.area_id
		where wr.restaurant_id = $1
	`
	args := []any{authCtx.RestaurantID}

	statusFilter := strings.TrimSpace(r.URL.Query().Get("status"))
	switch statusFilter {
	case "":
		statusFilter = "OPEN"
		query += ` and wr.status = $2`
		args = append(args, statusFilter)
	case "OPEN", "ATTENDED":
		query += ` and wr.status = $2`
		args = append(args, statusFilter)
	case "ALL":
	default:
		respondValidationError(w, "status must be OPEN, ATTENDED or ALL")
		return
	}
	query += ` order by wr.created_at asc`

	rows, err := h.DB.Query(ctx, query, args...)
	if err != nil {
		h.Logger.Error("waiter call list failed", zap.Error(err))
		respondInternalError(w)
		return
	}
	defer rows.Close()

	calls := make([]waiterCallRow, 0)
	for rows.Next() {
		var (
			call       waiterCallRow
			notes      pgtype.Text
			attendedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&call.ID, &call.TableID, &call.TableNumber, &call.AreaName,
			&call.RequestType, &notes, &call.Status, &call.CreatedAt, &attendedAt); err != nil {
			respondInternalError(w)
			return
		}
		call.Notes = textOrNil(notes)
		if attendedAt.Valid {
			call.AttendedAt = &attendedAt.Time
		}
		calls = append(calls, call)
	}

	response.Success(w, groupWaiterCallsByArea(calls))
}

type waiterCallGroup struct {
	AreaName string          `json:"areaName"`
	Calls    []waiterCallRow `json:"calls"`
}

// groupWaiterCallsByArea preserves first-seen area order, and call order
// within each area, so the oldest request still surfaces first.
func groupWaiterCallsByArea(calls []waiterCallRow) []waiterCallGroup {
	groups := make([]waiterCallGroup, 0)
	index := make(map[string]int)
	for _, call := range calls {
		i, ok := index[call.AreaName]
		if !ok {
			i = len(groups)
			index[call.AreaName] = i
			groups = append(groups, waiterCallGroup{AreaName: call.AreaName, Calls: make([]waiterCallRow, 0, 1)})
		}
		groups[i].Calls = append(groups[i].Calls, call)
	}
	return groups
}

// WaiterCallAttend marks a request handled. Attending twice just refreshes
// the timestamp; that is harmless and not guarded against.
func (h *Handler) WaiterCallAttend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		respondNotFound(w, "Restaurant context not found")
		return
	}

	requestID, err := readPathInt64(r, "requestId")
	if err != nil {
		respondValidationError(w, "Invalid request id")
		return
	}

	tag, err := h.DB.Exec(ctx, `
		update waiter_requests set status = 'ATTENDED', attended_at = now()
		where id = $1 and restaurant_id = $2
	`, requestID, authCtx.RestaurantID)
	if err != nil {
		respondInternalError(w)
		return
	}
	if tag.RowsAffected() == 0 {
		respondNotFound(w, "Request not found")
		return
	}

	response.Success(w, map[string]any{"id": requestID, "status": "ATTENDED"})
}
