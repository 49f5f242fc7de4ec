package handlers

import (
	"fmt"
	"net/http"
	"time"

	"dinehall-pos-service/internal/middleware"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/phpdave11/gofpdf"
	"go.uber.org/zap"
)

// OrderReceiptPDF renders the customer receipt from the order's stored
// snapshot, so it stays printable unchanged years later.
func (h *Handler) OrderReceiptPDF(w http.ResponseWriter, r *http.Request) {
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

	var (
		restaurantName string
		currency       string
		orderNumber    string
		orderType      string
		tableNumber    pgtype.Text
		customerName   pgtype.Text
		subtotal       pgtype.Numeric
		taxAmount      pgtype.Numeric
		totalAmount    pgtype.Numeric
		paymentStatus  string
		placedAt       time.Time
	)
	if err := h.DB.QueryRow(ctx, `
		select rst.name, rst.currency, o.order_number, o.order_type, t.table_number, o.customer_name,
		       o.subtotal, o.tax_amount, o.total_amount, o.payment_status, o.placed_at
		from orders o
		join restaurants rst on rst.id = o.restaurant_id
		left join restaurant_tables t on t.id = o.table_id
		where o.id = $1 and o.restaurant_id = $2
	`, orderID, authCtx.RestaurantID).Scan(&restaurantName, &currency, &orderNumber, &orderType, &tableNumber,
		&customerName, &subtotal, &taxAmount, &totalAmount, &paymentStatus, &placedAt); err != nil {
		respondNotFound(w, "Order not found")
		return
	}

	itemRows, err := h.DB.Query(ctx, `
		select item_name, unit_price, quantity, line_total
		from order_items
		where order_id = $1
		order by id asc
	`, orderID)
	if err != nil {
		respondInternalError(w)
		return
	}
	defer itemRows.Close()

	type receiptLine struct {
		name      string
		unitPrice float64
		quantity  int32
		lineTotal float64
	}
	lines := make([]receiptLine, 0)
	for itemRows.Next() {
		var (
			line      receiptLine
			unitPrice pgtype.Numeric
			lineTotal pgtype.Numeric
		)
		if err := itemRows.Scan(&line.name, &unitPrice, &line.quantity, &lineTotal); err != nil {
			respondInternalError(w)
			return
		}
		line.unitPrice = numericToFloat64(unitPrice)
		line.lineTotal = numericToFloat64(lineTotal)
		lines = append(lines, line)
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetTitle(fmt.Sprintf("Receipt %s", orderNumber), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, restaurantName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("Order %s  |  %s", orderNumber, orderType), "", 1, "C", false, 0, "")
	if tableNumber.Valid {
		pdf.CellFormat(0, 5, "Table "+tableNumber.String, "", 1, "C", false, 0, "")
	}
	if customerName.Valid {
		pdf.CellFormat(0, 5, customerName.String, "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(0, 5, placedAt.Format("02 Jan 2006 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(60, 6, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(15, 6, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(25, 6, "Price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(25, 6, "Total", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, line := range lines {
		pdf.CellFormat(60, 6, line.name, "", 0, "L", false, 0, "")
		pdf.CellFormat(15, 6, fmt.Sprintf("%d", line.quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.2f", line.unitPrice), "", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.2f", line.lineTotal), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	writeTotal := func(label string, value float64, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 9)
		pdf.CellFormat(100, 6, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%s %.2f", currency, value), "", 1, "R", false, 0, "")
	}
	writeTotal("Subtotal", numericToFloat64(subtotal), false)
	writeTotal("Tax (CGST+SGST)", numericToFloat64(taxAmount), false)
	writeTotal("Total", numericToFloat64(totalAmount), true)

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(0, 5, fmt.Sprintf("Payment: %s", paymentStatus), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, h.Config.ReceiptFooter, "", 1, "C", false, 0, "")

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=receipt-%s.pdf", orderNumber))
	if err := pdf.Output(w); err != nil {
		h.Logger.Error("receipt render failed", zap.String("orderNumber", orderNumber), zap.Error(err))
	}
}
