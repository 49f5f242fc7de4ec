package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"dinehall-pos-service/internal/middleware"
	"dinehall-pos-service/internal/pricing"
	"dinehall-pos-service/pkg/response"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

// Fulfillment and payment are independent axes. The kitchen-facing lifecycle
// mirrors KOT statuses plus SERVED; payment moves on its own as money arrives.
var orderStatuses = map[string]struct{}{
	"PENDING":   {},
	"PREPARING": {},
	"READY":     {},
	"SERVED":    {},
	"COMPLETED": {},
	"CANCELLED": {},
}

var orderTypes = map[string]struct{}{
	"DINE_IN":  {},
	"TAKEAWAY": {},
	"DELIVERY": {},
}

type directOrderRequest struct {
	OrderType     string            `json:"orderType"`
	TableID       *int64            `json:"tableId"`
	CustomerName  *string           `json:"customerName"`
	PaymentMethod string            `json:"paymentMethod"`
	Items         []cartItemRequest `json:"items"`
	Notes         *string           `json:"notes"`
}

// OrderCreateDirect is the till-sale path: no kitchen routing, payment taken
// on the spot, fulfillment starts PENDING.
func (h *Handler) OrderCreateDirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		respondNotFound(w, "Restaurant context not found")
		return
	}

	var body directOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondValidationError(w, "Invalid request body")
		return
	}

	if _, ok := orderTypes[body.OrderType]; !ok {
		respondValidationError(w, "Order type must be DINE_IN, TAKEAWAY or DELIVERY")
		return
	}
	if len(body.Items) == 0 {
		respondValidationError(w, "Order must have at least one item")
		return
	}
	if body.OrderType == "DINE_IN" && body.TableID == nil {
		respondValidationError(w, "Dine-in orders require a table")
		return
	}
	paymentMethod := strings.TrimSpace(body.PaymentMethod)
	if paymentMethod == "" {
		respondValidationError(w, "Payment method is required")
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
	quote := pricing.Price(lines, h.Config.TaxRatePercent)

	tx, err := h.DB.Begin(ctx)
	if err != nil {
		respondInternalError(w)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sequence, err := nextCounterValue(ctx, tx, authCtx.RestaurantID, "order_number")
	if err != nil {
		respondInternalError(w)
		return
	}
	orderNumber := formatOrderNumber(sequence)

	var orderID int64
	if err := tx.QueryRow(ctx, `
		insert into orders (
			restaurant_id, order_number, order_type, table_id, customer_name,
			subtotal, tax_amount, total_amount, status, payment_status, notes, updated_at
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, 'PENDING', 'PAID', $9, now())
		returning id
	`, authCtx.RestaurantID, orderNumber, body.OrderType, body.TableID, nullIfEmptyPtr(body.CustomerName),
		quote.Subtotal, quote.Tax, quote.Total, nullIfEmptyPtr(body.Notes)).Scan(&orderID); err != nil {
		h.Logger.Error("direct order insert failed", zap.Error(err))
		respondInternalError(w)
		return
	}

	for _, line := range lines {
		if _, err := tx.Exec(ctx, `
			insert into order_items (order_id, menu_item_id, item_name, unit_price, quantity, line_total, notes)
			values ($1, $2, $3, $4, $5, $6, $7)
		`, orderID, line.MenuItemID, line.Name, line.UnitPrice, line.Quantity, line.Total(), nullIfEmpty(line.Notes)); err != nil {
			respondInternalError(w)
			return
		}
	}

	if _, err := tx.Exec(ctx, `
		insert into payments (order_id, amount, method)
		values ($1, $2, $3)
	`, orderID, quote.Total, paymentMethod); err != nil {
		respondInternalError(w)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		respondInternalError(w)
		return
	}

	h.publishEvent(ctx, authCtx.RestaurantID, "order.created", map[string]any{"orderId": orderID, "orderNumber": orderNumber, "source": "pos"})

	details, err := h.fetchOrderDetails(ctx, authCtx.RestaurantID, orderID)
	if err != nil {
		respondInternalError(w)
		return
	}
	response.Created(w, details)
}

func (h *Handler) OrdersList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		respondNotFound(w, "Restaurant context not found")
		return
	}

	query := `
		select o.id, o.order_number, o.order_type, o.table_id, t.table_number, o.customer_name,
		       o.subtotal, o.tax_amount, o.total_amount, o.status, o.payment_status, o.kot_id, o.placed_at
		from orders o
		left join restaurant_tables t on t.id = o.table_id
		where o.restaurant_id = $1
	`
	args := []any{authCtx.RestaurantID}

	if statusFilter := strings.TrimSpace(r.URL.Query().Get("status")); statusFilter != "" {
		if _, ok := orderStatuses[statusFilter]; !ok {
			respondValidationError(w, "Unknown order status")
			return
		}
		query += ` and o.status = $2`
		args = append(args, statusFilter)
	}
	query += ` order by o.placed_at desc limit 200`

	rows, err := h.DB.Query(ctx, query, args...)
	if err != nil {
		h.Logger.Error("order list failed", zap.Error(err))
		respondInternalError(w)
		return
	}
	defer rows.Close()

	orders := make([]map[string]any, 0)
	for rows.Next() {
		var (
			id            int64
			orderNumber   string
			orderType     string
			tableID       pgtype.Int8
			tableNumber   pgtype.Text
			customerName  pgtype.Text
			subtotal      pgtype.Numeric
			taxAmount     pgtype.Numeric
			totalAmount   pgtype.Numeric
			status        string
			paymentStatus string
			kotID         pgtype.Int8
			placedAt      time.Time
		)
		if err := rows.Scan(&id, &orderNumber, &orderType, &tableID, &tableNumber, &customerName,
			&subtotal, &taxAmount, &totalAmount, &status, &paymentStatus, &kotID, &placedAt); err != nil {
			respondInternalError(w)
			return
		}
		orders = append(orders, map[string]any{
			"id":            id,
			"orderNumber":   orderNumber,
			"orderType":     orderType,
			"tableId":       int8OrNil(tableID),
			"tableNumber":   textOrNil(tableNumber),
			"customerName":  textOrNil(customerName),
			"subtotal":      numericToFloat64(subtotal),
			"taxAmount":     numericToFloat64(taxAmount),
			"totalAmount":   numericToFloat64(totalAmount),
			"status":        status,
			"paymentStatus": paymentStatus,
			"kotId":         int8OrNil(kotID),
			"placedAt":      placedAt,
		})
	}

	response.Success(w, orders)
}

func (h *Handler) OrderDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		respondNotFound(w, "Restaurant context not found")
		return
	}

	orderID, err := readPathInt64(r, "orderId")
	if err != nil {
		respondValidationError(w, "Invalid order id")
		return
	}

	details, err := h.fetchOrderDetails(ctx, authCtx.RestaurantID, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondNotFound(w, "Order not found")
			return
		}
		respondInternalError(w)
		return
	}

	response.Success(w, details)
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

// OrderUpdateStatus is deliberately lenient: fulfillment status is corrected
// by humans, so any enumerated value is accepted. Once cancelled, an order
// stays cancelled.
func (h *Handler) OrderUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		respondNotFound(w, "Restaurant context not found")
		return
	}

	orderID, err := readPathInt64(r, "orderId")
	if err != nil {
		respondValidationError(w, "Invalid order id")
		return
	}

	var body orderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondValidationError(w, "Invalid request body")
		return
	}
	target := strings.TrimSpace(body.Status)
	if _, ok := orderStatuses[target]; !ok {
		respondValidationError(w, "Unknown order status")
		return
	}

	var current string
	if err := h.DB.QueryRow(ctx, `
		select status from orders where id = $1 and restaurant_id = $2
	`, orderID, authCtx.RestaurantID).Scan(&current); err != nil {
		respondNotFound(w, "Order not found")
		return
	}

	if current == "CANCELLED" {
		respondTerminalState(w, "Order is already cancelled")
		return
	}

	if _, err := h.DB.Exec(ctx, `
		update orders set status = $1, updated_at = now() where id = $2 and restaurant_id = $3
	`, target, orderID, authCtx.RestaurantID); err != nil {
		h.Logger.Error("order status update failed", zap.Error(err))
		respondInternalError(w)
		return
	}

	h.publishEvent(ctx, authCtx.RestaurantID, "order.status.updated", map[string]any{"orderId": orderID, "status": target})

	response.Success(w, map[string]any{"id": orderID, "status": target})
}

func (h *Handler) fetchOrderDetails(ctx context.Context, restaurantID, orderID int64) (map[string]any, error) {
	var (
		orderNumber   string
		orderType     string
		tableID       pgtype.Int8
		tableNumber   pgtype.Text
		customerName  pgtype.Text
		subtotal      pgtype.Numeric
		taxAmount     pgtype.Numeric
		totalAmount   pgtype.Numeric
		status        string
		paymentStatus string
		kotID         pgtype.Int8
		notes         pgtype.Text
		placedAt      time.Time
	)
	if err := h.DB.QueryRow(ctx, `
		select o.order_number, o.order_type, o.table_id, t.table_number, o.customer_name,
		       o.subtotal, o.tax_amount, o.total_amount, o.status, o.payment_status, o.kot_id, o.notes, o.placed_at
		from orders o
		left join restaurant_tables t on t.id = o.table_id
		where o.id = $1 and o.restaurant_id = $2
	`, orderID, restaurantID).Scan(&orderNumber, &orderType, &tableID, &tableNumber, &customerName,
		&subtotal, &taxAmount, &totalAmount, &status, &paymentStatus, &kotID, &notes, &placedAt); err != nil {
		return nil, err
	}

	itemRows, err := h.DB.Query(ctx, `
		select item_name, unit_price, quantity, line_total, notes
		from order_items
		where order_id = $1
		order by id asc
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	items := make([]map[string]any, 0)
	for itemRows.Next() {
		var (
			itemName  string
			unitPrice pgtype.Numeric
			quantity  int32
			lineTotal pgtype.Numeric
			itemNotes pgtype.Text
		)
		if err := itemRows.Scan(&itemName, &unitPrice, &quantity, &lineTotal, &itemNotes); err != nil {
			return nil, err
		}
		items = append(items, map[string]any{
			"name":      itemName,
			"unitPrice": numericToFloat64(unitPrice),
			"quantity":  quantity,
			"lineTotal": numericToFloat64(lineTotal),
			"notes":     textOrNil(itemNotes),
		})
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	payments, err := h.loadOrderPayments(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"id":            orderID,
		"orderNumber":   orderNumber,
		"orderType":     orderType,
		"tableId":       int8OrNil(tableID),
		"tableNumber":   textOrNil(tableNumber),
		"customerName":  textOrNil(customerName),
		"subtotal":      numericToFloat64(subtotal),
		"taxAmount":     numericToFloat64(taxAmount),
		"totalAmount":   numericToFloat64(totalAmount),
		"status":        status,
		"paymentStatus": paymentStatus,
		"kotId":         int8OrNil(kotID),
		"notes":         textOrNil(notes),
		"placedAt":      placedAt,
		"items":         items,
		"payments":      payments,
	}, nil
}

func (h *Handler) loadOrderPayments(ctx context.Context, orderID int64) ([]map[string]any, error) {
	rows, err := h.DB.Query(ctx, `
		select id, amount, method, created_at
		from payments
		where order_id = $1
		order by created_at asc
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]map[string]any, 0)
	for rows.Next() {
		var (
			id        int64
			amount    pgtype.Numeric
			method    string
			createdAt time.Time
		)
		if err := rows.Scan(&id, &amount, &method, &createdAt); err != nil {
			return nil, err
		}
		payments = append(payments, map[string]any{
			"id":        id,
			"amount":    numericToFloat64(amount),
			"method":    method,
			"createdAt": createdAt,
		})
	}
	return payments, rows.Err()
}
