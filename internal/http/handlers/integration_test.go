package handlers

// These tests need a live Postgres (DATABASE_URL) and are skipped without one.
// They cover the two properties that only the database can enforce: the
// partial unique index arbitrating reservation slots, and the promotion
// transaction being all-or-nothing.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"dinehall-pos-service/internal/auth"
	"dinehall-pos-service/internal/config"
	"dinehall-pos-service/internal/db"
	"dinehall-pos-service/internal/middleware"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func newIntegrationHandler(t *testing.T) (*Handler, int64) {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("schema: %v", err)
	}

	var restaurantID int64
	code := fmt.Sprintf("it-%d", time.Now().UnixNano())
	if err := pool.QueryRow(ctx, `
		insert into restaurants (code, name) values ($1, 'Test Kitchen') returning id
	`, code).Scan(&restaurantID); err != nil {
		t.Fatalf("seed restaurant: %v", err)
	}

	h := &Handler{DB: pool, Logger: zap.NewNop(), Config: config.Config{TaxRatePercent: 5}}
	return h, restaurantID
}

func seedTable(t *testing.T, h *Handler, restaurantID int64, tableNumber string) int64 {
	t.Helper()
	var tableID int64
	if err := h.DB.QueryRow(context.Background(), `
		insert into restaurant_tables (restaurant_id, table_number) values ($1, $2) returning id
	`, restaurantID, tableNumber).Scan(&tableID); err != nil {
		t.Fatalf("seed table: %v", err)
	}
	return tableID
}

func seedReadyTicket(t *testing.T, h *Handler, restaurantID, tableID int64) int64 {
	t.Helper()
	ctx := context.Background()
	var kotID int64
	if err := h.DB.QueryRow(ctx, `
		insert into kots (restaurant_id, kot_number, table_id, status, updated_at)
		values ($1, 1, $2, 'READY', now())
		returning id
	`, restaurantID, tableID).Scan(&kotID); err != nil {
		t.Fatalf("seed kot: %v", err)
	}
	for _, item := range []struct {
		name  string
		price float64
		qty   int32
	}{
		{"Masala Dosa", 80.00, 1},
		{"Filter Coffee", 35.50, 2},
	} {
		if _, err := h.DB.Exec(ctx, `
			insert into kot_items (kot_id, item_name, unit_price, quantity) values ($1, $2, $3, $4)
		`, kotID, item.name, item.price, item.qty); err != nil {
			t.Fatalf("seed kot item: %v", err)
		}
	}
	return kotID
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Eight writers race for one slot; the partial unique index must let exactly
// one through regardless of how the advisory pre-check interleaves.
func TestReservationSlotSingleWinner(t *testing.T) {
	h, restaurantID := newIntegrationHandler(t)
	tableID := seedTable(t, h, restaurantID, "T1")

	const writers = 8
	codes := make(chan *httptest.ResponseRecorder, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := httptest.NewRecorder()
			r := httptest.NewRequest("POST", "/", nil)
			h.createReservation(w, r, restaurantID, reservationRequest{
				TableID:      &tableID,
				Date:         "2026-10-01",
				TimeSlot:     "7:00 PM",
				PartySize:    2,
				CustomerName: fmt.Sprintf("Guest %d", i),
			}, "CONFIRMED")
			codes <- w
		}(i)
	}
	wg.Wait()
	close(codes)

	created, conflicts := 0, 0
	for w := range codes {
		switch w.Code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			var body envelope
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Error != "SLOT_CONFLICT" {
				t.Errorf("conflict body = %s", w.Body.String())
			}
			conflicts++
		default:
			t.Errorf("unexpected status %d: %s", w.Code, w.Body.String())
		}
	}
	if created != 1 || conflicts != writers-1 {
		t.Fatalf("created=%d conflicts=%d, want 1 and %d", created, conflicts, writers-1)
	}

	var live int
	if err := h.DB.QueryRow(context.Background(), `
		select count(*) from reservations
		where restaurant_id = $1 and table_id = $2 and reservation_date = '2026-10-01'
		  and time_slot = '7:00 PM' and status in ('PENDING','CONFIRMED','CHECKED_IN')
	`, restaurantID, tableID).Scan(&live); err != nil {
		t.Fatalf("count: %v", err)
	}
	if live != 1 {
		t.Fatalf("live reservations for the slot = %d, want 1", live)
	}
}

// A promotion that never commits must leave no trace: ticket still READY,
// no order row, no dangling link, counter bump rolled back.
func TestTicketPromotionAllOrNothing(t *testing.T) {
	h, restaurantID := newIntegrationHandler(t)
	ctx := context.Background()
	tableID := seedTable(t, h, restaurantID, "T1")
	kotID := seedReadyTicket(t, h, restaurantID, tableID)

	tx, err := h.DB.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := h.promoteTicket(ctx, tx, restaurantID, kotID); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	var (
		status  string
		orderID pgtype.Int8
	)
	if err := h.DB.QueryRow(ctx, `
		select status, order_id from kots where id = $1
	`, kotID).Scan(&status, &orderID); err != nil {
		t.Fatalf("reload kot: %v", err)
	}
	if status != "READY" || orderID.Valid {
		t.Fatalf("after rollback: status=%s orderId=%v, want READY and null", status, orderID)
	}
	var orders int
	if err := h.DB.QueryRow(ctx, `select count(*) from orders where kot_id = $1`, kotID).Scan(&orders); err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orders != 0 {
		t.Fatalf("orphan orders after rollback: %d", orders)
	}
	var counters int
	if err := h.DB.QueryRow(ctx, `
		select count(*) from restaurant_counters where restaurant_id = $1 and name = 'order_number'
	`, restaurantID).Scan(&counters); err != nil {
		t.Fatalf("count counters: %v", err)
	}
	if counters != 0 {
		t.Fatalf("counter bump survived rollback")
	}

	// Committed path: everything lands together.
	tx, err = h.DB.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	promotion, err := h.promoteTicket(ctx, tx, restaurantID, kotID)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := h.DB.QueryRow(ctx, `
		select status, order_id from kots where id = $1
	`, kotID).Scan(&status, &orderID); err != nil {
		t.Fatalf("reload kot: %v", err)
	}
	if status != "COMPLETED" || !orderID.Valid || orderID.Int64 != promotion.OrderID {
		t.Fatalf("after commit: status=%s orderId=%v, want COMPLETED linked to %d", status, orderID, promotion.OrderID)
	}
	var items int
	if err := h.DB.QueryRow(ctx, `select count(*) from order_items where order_id = $1`, promotion.OrderID).Scan(&items); err != nil {
		t.Fatalf("count order items: %v", err)
	}
	if items != 2 {
		t.Fatalf("order items = %d, want 2", items)
	}
}

// Once a ticket is COMPLETED no later cancel may overwrite it, even one that
// raced past its own status read.
func TestCancelRejectedAfterCompletion(t *testing.T) {
	h, restaurantID := newIntegrationHandler(t)
	ctx := context.Background()
	tableID := seedTable(t, h, restaurantID, "T1")
	kotID := seedReadyTicket(t, h, restaurantID, tableID)

	tx, err := h.DB.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := h.promoteTicket(ctx, tx, restaurantID, kotID); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	w := httptest.NewRecorder()
	r := requestWithPathParam("kotId", fmt.Sprint(kotID))
	r = r.WithContext(middleware.WithAuthContext(r.Context(), &middleware.AuthContext{
		UserID: 1, SessionID: 1, Role: auth.RoleManager, RestaurantID: restaurantID,
	}))
	h.KOTCancel(w, r)

	if w.Code != http.StatusConflict {
		t.Fatalf("cancel after complete = %d: %s", w.Code, w.Body.String())
	}
	var body envelope
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Error != "TERMINAL_STATE" {
		t.Fatalf("cancel body = %s", w.Body.String())
	}

	var status string
	if err := h.DB.QueryRow(ctx, `select status from kots where id = $1`, kotID).Scan(&status); err != nil {
		t.Fatalf("reload kot: %v", err)
	}
	if status != "COMPLETED" {
		t.Fatalf("status = %s, want COMPLETED", status)
	}

	// The guarded update alone: a writer holding a stale status matches no
	// rows instead of clobbering the promotion.
	tag, err := h.DB.Exec(ctx, `
		update kots set status = 'CANCELLED', updated_at = now()
		where id = $1 and restaurant_id = $2 and status = $3
	`, kotID, restaurantID, "READY")
	if err != nil {
		t.Fatalf("guarded update: %v", err)
	}
	if tag.RowsAffected() != 0 {
		t.Fatal("stale-status update overwrote a completed ticket")
	}
}
