package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"dinehall-pos-service/internal/kot"
	"dinehall-pos-service/internal/middleware"
	"dinehall-pos-service/internal/pricing"
	"dinehall-pos-service/pkg/response"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

type kotCreateRequest struct {
	TableID *int64            `json:"tableId"`
	Items   []cartItemRequest `json:"items"`
	Notes   *string           `json:"notes"`
}

type kotAdvanceRequest struct {
	Status string `json:"status"`
}

// KOTCreate turns a submitted cart into a kitchen ticket. Item names and
// prices are snapshotted so later menu edits never rewrite the ticket.
func (h *Handler) KOTCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		respondNotFound(w, "Restaurant context not found")
		return
	}

	var body kotCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondValidationError(w, "Invalid request body")
		return
	}
	if len(body.Items) == 0 {
		respondValidationError(w, "Ticket must have at least one item")
		return
	}

	if body.TableID != nil {
		var exists bool
		if err := h.DB.QueryRow(ctx, `
			select exists(select 1 from restaurant_tables where id = $1 and restaurant_id = $2 and is_active)
		`, *body.TableID, authCtx.RestaurantID).Scan(&exists); err != nil || !exists {
			respondNotFound(w, "Table not found")
			return
		}
	}

	lines, err := h.buildCartLines(ctx, authCtx.RestaurantID, body.Items)
	if err != nil {
		respondValidationError(w, err.Error())
		return
	}

	tx, err := h.DB.Begin(ctx)
	if err != nil {
		respondInternalError(w)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	kotNumber, err := nextCounterValue(ctx, tx, authCtx.RestaurantID, "kot_number")
	if err != nil {
		h.Logger.Error("kot number allocation failed", zap.Error(err))
		respondInternalError(w)
		return
	}

	var kotID int64
	if err := tx.QueryRow(ctx, `
		insert into kots (restaurant_id, kot_number, table_id, status, notes, updated_at)
		values ($1, $2, $3, $4, $5, now())
		returning id
	`, authCtx.RestaurantID, kotNumber, body.TableID, kot.StatusPending, nullIfEmptyPtr(body.Notes)).Scan(&kotID); err != nil {
		h.Logger.Error("kot insert failed", zap.Error(err))
		respondInternalError(w)
		return
	}

	for _, line := range lines {
		if _, err := tx.Exec(ctx, `
			insert into kot_items (kot_id, menu_item_id, item_name, unit_price, quantity, notes)
			values ($1, $2, $3, $4, $5, $6)
		`, kotID, line.MenuItemID, line.Name, line.UnitPrice, line.Quantity, nullIfEmpty(line.Notes)); err != nil {
			h.Logger.Error("kot item insert failed", zap.Error(err))
			respondInternalError(w)
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		respondInternalError(w)
		return
	}

	details, err := h.fetchKOTDetails(ctx, authCtx.RestaurantID, kotID)
	if err != nil {
		respondInternalError(w)
		return
	}

	h.publishEvent(ctx, authCtx.RestaurantID, "kot.created", map[string]any{"kotId": kotID, "kotNumber": kotNumber})
	h.WS.Broadcast(authCtx.RestaurantID, "kot.created", details)

	response.Created(w, details)
}

// KOTList returns tickets oldest-first within the optional status filter, the
// order the kitchen works them in.
func (h *Handler) KOTList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		respondNotFound(w, "Restaurant context not found")
		return
	}

	query := `
		select k.id, k.kot_number, k.table_id, t.table_number, k.status, k.order_id, k.notes, k.created_at
		from kots k
		left join restaurant_tables t on t.id = k.table_id
		where k.restaurant_id = $1
	`
	args := []any{authCtx.RestaurantID}

	if statusFilter := r.URL.Query().Get("status"); statusFilter != "" {
		status, ok := kot.ParseStatus(statusFilter)
		if !ok {
			respondValidationError(w, "Unknown ticket status")
			return
		}
		query += fmt.Sprintf(` and k.status = $%d`, len(args)+1)
		args = append(args, string(status))
	}
	if tableFilter := r.URL.Query().Get("tableId"); tableFilter != "" {
		tableID, err := strconv.ParseInt(tableFilter, 10, 64)
		if err != nil {
			respondValidationError(w, "Invalid table id")
			return
		}
		query += fmt.Sprintf(` and k.table_id = $%d`, len(args)+1)
		args = append(args, tableID)
	}
	query += ` order by k.created_at asc`

	rows, err := h.DB.Query(ctx, query, args...)
	if err != nil {
		h.Logger.Error("kot list failed", zap.Error(err))
		respondInternalError(w)
		return
	}
	defer rows.Close()

	tickets := make([]map[string]any, 0)
	for rows.Next() {
		var (
			id          int64
			kotNumber   int64
			tableID     pgtype.Int8
			tableNumber pgtype.Text
			status      string
			orderID     pgtype.Int8
			notes       pgtype.Text
			createdAt   time.Time
		)
		if err := rows.Scan(&id, &kotNumber, &tableID, &tableNumber, &status, &orderID, &notes, &createdAt); err != nil {
			respondInternalError(w)
			return
		}
		tickets = append(tickets, map[string]any{
			"id":          id,
			"kotNumber":   kotNumber,
			"tableId":     int8OrNil(tableID),
			"tableNumber": textOrNil(tableNumber),
			"status":      status,
			"orderId":     int8OrNil(orderID),
			"notes":       textOrNil(notes),
			"createdAt":   createdAt,
		})
	}

	response.Success(w, tickets)
}

func (h *Handler) KOTDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		respondNotFound(w, "Restaurant context not found")
		return
	}

	kotID, err := readPathInt64(r, "kotId")
	if err != nil {
		respondValidationError(w, "Invalid ticket id")
		return
	}

	details, err := h.fetchKOTDetails(ctx, authCtx.RestaurantID, kotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondNotFound(w, "Ticket not found")
			return
		}
		respondInternalError(w)
		return
	}

	response.Success(w, details)
}

// KOTAdvance applies a generic status change along the strict preparation
// graph. Completion has its own endpoint; last-write-wins between two devices
// is accepted for this domain.
func (h *Handler) KOTAdvance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		respondNotFound(w, "Restaurant context not found")
		return
	}

	kotID, err := readPathInt64(r, "kotId")
	if err != nil {
		respondValidationError(w, "Invalid ticket id")
		return
	}

	var body kotAdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondValidationError(w, "Invalid request body")
		return
	}
	target, ok := kot.ParseStatus(body.Status)
	if !ok {
		respondValidationError(w, "Unknown ticket status")
		return
	}

	var current string
	if err := h.DB.QueryRow(ctx, `
		select status from kots where id = $1 and restaurant_id = $2
	`, kotID, authCtx.RestaurantID).Scan(&current); err != nil {
		respondNotFound(w, "Ticket not found")
		return
	}

	if target == kot.StatusCompleted {
		// Promotion into an order goes through the complete endpoint only.
		writeTicketError(w, &kot.Error{
			Code:       kot.ErrInvalidTransition,
			Message:    "use the complete operation to finish a ticket",
			StatusCode: http.StatusUnprocessableEntity,
		})
		return
	}

	if err := kot.Transition(kot.Status(current), target); err != nil {
		var domainErr *kot.Error
		if errors.As(err, &domainErr) {
			writeTicketError(w, domainErr)
			return
		}
		respondInternalError(w)
		return
	}

	// Guarded on the status just read: if a racing writer moved the ticket
	// (notably to COMPLETED), zero rows match and nothing is overwritten.
	tag, err := h.DB.Exec(ctx, `
		update kots set status = $1, updated_at = now()
		where id = $2 and restaurant_id = $3 and status = $4
	`, string(target), kotID, authCtx.RestaurantID, current)
	if err != nil {
		h.Logger.Error("kot status update failed", zap.Error(err))
		respondInternalError(w)
		return
	}
	if tag.RowsAffected() == 0 {
		respondTicketChanged(w)
		return
	}

	h.publishEvent(ctx, authCtx.RestaurantID, "kot.status.updated", map[string]any{"kotId": kotID, "status": string(target)})
	h.WS.Broadcast(authCtx.RestaurantID, "kot.status.updated", map[string]any{"kotId": kotID, "status": string(target)})

	response.Success(w, map[string]any{"id": kotID, "status": string(target)})
}

// KOTCancel retains the ticket with status CANCELLED for audit; nothing is
// deleted and no order is created.
func (h *Handler) KOTCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		respondNotFound(w, "Restaurant context not found")
		return
	}

	kotID, err := readPathInt64(r, "kotId")
	if err != nil {
		respondValidationError(w, "Invalid ticket id")
		return
	}

	var current string
	if err := h.DB.QueryRow(ctx, `
		select status from kots where id = $1 and restaurant_id = $2
	`, kotID, authCtx.RestaurantID).Scan(&current); err != nil {
		respondNotFound(w, "Ticket not found")
		return
	}

	if err := kot.CanCancel(kot.Status(current)); err != nil {
		var domainErr *kot.Error
		if errors.As(err, &domainErr) {
			writeTicketError(w, domainErr)
			return
		}
		respondInternalError(w)
		return
	}

	tag, err := h.DB.Exec(ctx, `
		update kots set status = $1, updated_at = now()
		where id = $2 and restaurant_id = $3 and status = $4
	`, string(kot.StatusCancelled), kotID, authCtx.RestaurantID, current)
	if err != nil {
		respondInternalError(w)
		return
	}
	if tag.RowsAffected() == 0 {
		respondTicketChanged(w)
		return
	}

	h.publishEvent(ctx, authCtx.RestaurantID, "kot.cancelled", map[string]any{"kotId": kotID})
	h.WS.Broadcast(authCtx.RestaurantID, "kot.cancelled", map[string]any{"kotId": kotID})

	response.Success(w, map[string]any{"id": kotID, "status": string(kot.StatusCancelled)})
}

func (h *Handler) fetchKOTDetails(ctx context.Context, restaurantID, kotID int64) (map[string]any, error) {
	var (
		kotNumber   int64
		tableID     pgtype.Int8
		tableNumber pgtype.Text
		status      string
		orderID     pgtype.Int8
		notes       pgtype.Text
		createdAt   time.Time
	)
	if err := h.DB.QueryRow(ctx, `
		select k.kot_number, k.table_id, t.table_number, k.status, k.order_id, k.notes, k.created_at
		from kots k
		left join restaurant_tables t on t.id = k.table_id
		where k.id = $1 and k.restaurant_id = $2
	`, kotID, restaurantID).Scan(&kotNumber, &tableID, &tableNumber, &status, &orderID, &notes, &createdAt); err != nil {
		return nil, err
	}

	lines, quote, err := h.loadKOTLines(ctx, kotID)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		items = append(items, map[string]any{
			"menuItemId": line.MenuItemID,
			"name":       line.Name,
			"unitPrice":  line.UnitPrice,
			"quantity":   line.Quantity,
			"notes":      line.Notes,
			"lineTotal":  line.Total(),
		})
	}

	return map[string]any{
		"id":          kotID,
		"kotNumber":   kotNumber,
		"tableId":     int8OrNil(tableID),
		"tableNumber": textOrNil(tableNumber),
		"status":      status,
		"orderId":     int8OrNil(orderID),
		"notes":       textOrNil(notes),
		"createdAt":   createdAt,
		"items":       items,
		"pricing":     quote,
	}, nil
}

// loadKOTLines rebuilds pricing lines from the stored snapshot, never from the
// live catalog.
func (h *Handler) loadKOTLines(ctx context.Context, kotID int64) ([]pricing.Line, pricing.Quote, error) {
	rows, err := h.DB.Query(ctx, `
		select menu_item_id, item_name, unit_price, quantity, notes
		from kot_items
		where kot_id = $1
		order by id asc
	`, kotID)
	if err != nil {
		return nil, pricing.Quote{}, err
	}
	defer rows.Close()

	lines := make([]pricing.Line, 0)
	for rows.Next() {
		var (
			menuItemID pgtype.Int8
			name       string
			unitPrice  pgtype.Numeric
			quantity   int32
			notes      pgtype.Text
		)
		if err := rows.Scan(&menuItemID, &name, &unitPrice, &quantity, &notes); err != nil {
			return nil, pricing.Quote{}, err
		}
		line := pricing.Line{
			Name:      name,
			UnitPrice: numericToFloat64(unitPrice),
			Quantity:  quantity,
		}
		if menuItemID.Valid {
			line.MenuItemID = menuItemID.Int64
		}
		if notes.Valid {
			line.Notes = notes.String
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, pricing.Quote{}, err
	}

	return lines, pricing.Price(lines, h.Config.TaxRatePercent), nil
}

func nullIfEmptyPtr(value *string) *string {
	if value == nil {
		return nil
	}
	return nullIfEmpty(*value)
}
