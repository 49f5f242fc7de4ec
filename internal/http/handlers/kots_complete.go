package handlers

import (
	"context"
	"errors"
	"net/http"

	"dinehall-pos-service/internal/kot"
	"dinehall-pos-service/internal/middleware"
	"dinehall-pos-service/internal/pricing"
	"dinehall-pos-service/pkg/response"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

// KOTComplete is the single promotion point from kitchen ticket to billable
// order. The status flip and the order insert share one transaction: either
// the ticket ends up COMPLETED with exactly one linked order, or nothing
// changes.
func (h *Handler) KOTComplete(w http.ResponseWriter, r *http.Request) {
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

	tx, err := h.DB.Begin(ctx)
	if err != nil {
		respondInternalError(w)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	promotion, err := h.promoteTicket(ctx, tx, authCtx.RestaurantID, kotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondNotFound(w, "Ticket not found")
			return
		}
		var domainErr *kot.Error
		if errors.As(err, &domainErr) {
			writeTicketError(w, domainErr)
			return
		}
		h.Logger.Error("ticket promotion failed", zap.Int64("kotId", kotID), zap.Error(err))
		respondInternalError(w)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		respondInternalError(w)
		return
	}

	h.publishEvent(ctx, authCtx.RestaurantID, "kot.completed", map[string]any{"kotId": kotID, "orderId": promotion.OrderID})
	h.publishEvent(ctx, authCtx.RestaurantID, "order.created", map[string]any{"orderId": promotion.OrderID, "orderNumber": promotion.OrderNumber, "source": "kot"})
	h.WS.Broadcast(authCtx.RestaurantID, "kot.completed", map[string]any{"kotId": kotID, "orderId": promotion.OrderID})

	response.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"kotId":       kotID,
			"kotStatus":   string(kot.StatusCompleted),
			"orderId":     promotion.OrderID,
			"orderNumber": promotion.OrderNumber,
			"pricing":     promotion.Quote,
		},
	})
}

type ticketPromotion struct {
	OrderID     int64
	OrderNumber string
	Quote       pricing.Quote
}

// promoteTicket performs every write of the promotion inside the caller's
// transaction. Nothing is visible until the caller commits; rolling back
// leaves the ticket exactly as found.
func (h *Handler) promoteTicket(ctx context.Context, tx pgx.Tx, restaurantID, kotID int64) (ticketPromotion, error) {
	var (
		promotion     ticketPromotion
		currentStatus string
		tableID       pgtype.Int8
		kotNotes      pgtype.Text
	)
	if err := tx.QueryRow(ctx, `
		select status, table_id, notes from kots
		where id = $1 and restaurant_id = $2
		for update
	`, kotID, restaurantID).Scan(&currentStatus, &tableID, &kotNotes); err != nil {
		return promotion, err
	}

	if err := kot.CanComplete(kot.Status(currentStatus)); err != nil {
		return promotion, err
	}

	lines, err := h.loadKOTLinesTx(ctx, tx, kotID)
	if err != nil {
		return promotion, err
	}
	quote := pricing.Price(lines, h.Config.TaxRatePercent)

	sequence, err := nextCounterValue(ctx, tx, restaurantID, "order_number")
	if err != nil {
		return promotion, err
	}
	orderNumber := formatOrderNumber(sequence)

	orderType := "DINE_IN"
	if !tableID.Valid {
		orderType = "TAKEAWAY"
	}

	var orderID int64
	if err := tx.QueryRow(ctx, `
		insert into orders (
			restaurant_id, kot_id, order_number, order_type, table_id,
			subtotal, tax_amount, total_amount, status, payment_status, notes, updated_at
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, 'PENDING', 'PENDING', $9, now())
		returning id
	`, restaurantID, kotID, orderNumber, orderType, int8OrNil(tableID),
		quote.Subtotal, quote.Tax, quote.Total, textOrNil(kotNotes)).Scan(&orderID); err != nil {
		return promotion, err
	}

	// Items are copied from the ticket snapshot, never re-queried from the
	// catalog.
	for _, line := range lines {
		var menuItemID *int64
		if line.MenuItemID != 0 {
			menuItemID = &line.MenuItemID
		}
		if _, err := tx.Exec(ctx, `
			insert into order_items (order_id, menu_item_id, item_name, unit_price, quantity, line_total, notes)
			values ($1, $2, $3, $4, $5, $6, $7)
		`, orderID, menuItemID, line.Name, line.UnitPrice, line.Quantity, line.Total(), nullIfEmpty(line.Notes)); err != nil {
			return promotion, err
		}
	}

	if _, err := tx.Exec(ctx, `
		update kots set status = $1, order_id = $2, updated_at = now()
		where id = $3 and restaurant_id = $4
	`, string(kot.StatusCompleted), orderID, kotID, restaurantID); err != nil {
		return promotion, err
	}

	promotion.OrderID = orderID
	promotion.OrderNumber = orderNumber
	promotion.Quote = quote
	return promotion, nil
}

func (h *Handler) loadKOTLinesTx(ctx context.Context, tx pgx.Tx, kotID int64) ([]pricing.Line, error) {
	rows, err := tx.Query(ctx, `
		select menu_item_id, item_name, unit_price, quantity, notes
		from kot_items
		where kot_id = $1
		order by id asc
	`, kotID)
	if err != nil {
		return nil, err
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
			return nil, err
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
	return lines, rows.Err()
}
