package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"dinehall-pos-service/internal/middleware"
	"dinehall-pos-service/pkg/response"

	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

type recordPaymentRequest struct {
	Amount float64 `json:"amount"`
	Method string  `json:"method"`
}

// OrderRecordPayment appends an immutable payment record. Cumulative payments
// may over- or undershoot the total (tips and ad-hoc discounts are settled
// this way on the floor), so no reconciliation is enforced. The fulfillment
// status is never touched here.
func (h *Handler) OrderRecordPayment(w http.ResponseWriter, r *http.Request) {
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

	var body recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondValidationError(w, "Invalid request body")
		return
	}
	if body.Amount <= 0 {
		respondValidationError(w, "Amount must be positive")
		return
	}
	method := strings.TrimSpace(body.Method)
	if method == "" {
		respondValidationError(w, "Payment method is required")
		return
	}

	var totalAmount pgtype.Numeric
	if err := h.DB.QueryRow(ctx, `
		select total_amount from orders where id = $1 and restaurant_id = $2
	`, orderID, authCtx.RestaurantID).Scan(&totalAmount); err != nil {
		respondNotFound(w, "Order not found")
		return
	}

	tx, err := h.DB.Begin(ctx)
	if err != nil {
		respondInternalError(w)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		insert into payments (order_id, amount, method)
		values ($1, $2, $3)
	`, orderID, body.Amount, method); err != nil {
		h.Logger.Error("payment insert failed", zap.Error(err))
		respondInternalError(w)
		return
	}

	var paidSoFar float64
	if err := tx.QueryRow(ctx, `
		select coalesce(sum(amount), 0) from payments where order_id = $1
	`, orderID).Scan(&paidSoFar); err != nil {
		respondInternalError(w)
		return
	}

	paymentStatus := paymentStatusFor(numericToFloat64(totalAmount), paidSoFar)
	if _, err := tx.Exec(ctx, `
		update orders set payment_status = $1, updated_at = now() where id = $2 and restaurant_id = $3
	`, paymentStatus, orderID, authCtx.RestaurantID); err != nil {
		respondInternalError(w)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		respondInternalError(w)
		return
	}

	h.publishEvent(ctx, authCtx.RestaurantID, "order.payment.recorded", map[string]any{
		"orderId": orderID,
		"amount":  body.Amount,
		"method":  method,
	})

	response.Success(w, map[string]any{
		"orderId":       orderID,
		"amountPaid":    paidSoFar,
		"paymentStatus": paymentStatus,
	})
}

// paymentStatusFor is bookkeeping for display, not validation: over-payment
// still reads as PAID.
func paymentStatusFor(total, paid float64) string {
	if paid <= 0 {
		return "PENDING"
	}
	if paid >= total {
		return "PAID"
	}
	return "PARTIALLY_PAID"
}

// OrderGatewayLink asks the external gateway for a payment link. Fire and
// forget: the core records nothing until a payment is reported back through
// the normal payment endpoint.
func (h *Handler) OrderGatewayLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		respondNotFound(w, "Restaurant context not found")
		return
	}

	if !h.Gateway.Enabled() {
		respondValidationError(w, "Payment gateway is not configured")
		return
	}

	orderID, err := readPathInt64(r, "orderId")
	if err != nil {
		respondValidationError(w, "Invalid order id")
		return
	}

	var (
		orderNumber string
		totalAmount pgtype.Numeric
	)
	if err := h.DB.QueryRow(ctx, `
		select order_number, total_amount from orders where id = $1 and restaurant_id = $2
	`, orderID, authCtx.RestaurantID).Scan(&orderNumber, &totalAmount); err != nil {
		respondNotFound(w, "Order not found")
		return
	}

	result, err := h.Gateway.Initiate(ctx, numericToFloat64(totalAmount), orderNumber)
	if err != nil {
		h.Logger.Warn("gateway initiate failed", zap.String("orderNumber", orderNumber), zap.Error(err))
		response.Error(w, http.StatusBadGateway, "GATEWAY_ERROR", "Payment gateway is unavailable")
		return
	}

	response.Success(w, map[string]any{"redirectUrl": result.RedirectURL})
}
