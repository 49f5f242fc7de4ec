package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dinehall-pos-service/internal/db"
	"dinehall-pos-service/internal/middleware"
	"dinehall-pos-service/pkg/response"

	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

// Booking slots are a fixed menu of labels, not free-form times; the frontend
// renders exactly this list and the ledger validates membership.
var timeSlots = []string{
	"11:00 AM", "11:30 AM",
	"12:00 PM", "12:30 PM",
	"1:00 PM", "1:30 PM",
	"2:00 PM", "2:30 PM",
	"6:00 PM", "6:30 PM",
	"7:00 PM", "7:30 PM",
	"8:00 PM", "8:30 PM",
	"9:00 PM", "9:30 PM",
	"10:00 PM",
}

var reservationStatuses = map[string]struct{}{
	"PENDING":    {},
	"CONFIRMED":  {},
	"CHECKED_IN": {},
	"COMPLETED":  {},
	"CANCELLED":  {},
	"NO_SHOW":    {},
}

// Statuses that hold a slot. Everything else frees it.
var liveReservationStatuses = []string{"PENDING", "CONFIRMED", "CHECKED_IN"}

func validTimeSlot(slot string) bool {
	for _, s := range timeSlots {
		if s == slot {
			return true
		}
	}
	return false
}

func parseReservationDate(value string) (time.Time, bool) {
	date, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

type reservationRequest struct {
	TableID        *int64 `json:"tableId"`
	Date           string `json:"date"`
	TimeSlot       string `json:"timeSlot"`
	PartySize      int32  `json:"partySize"`
	CustomerName   string `json:"customerName"`
	CustomerPhone  string `json:"customerPhone"`
	CustomerEmail  string `json:"customerEmail"`
	SpecialRequest string `json:"specialRequest"`
}

func (h *Handler) TimeSlotsList(w http.ResponseWriter, r *http.Request) {
	response.Success(w, timeSlots)
}

// ReservationAvailability reports whether a slot is free. The answer can go
// stale before the caller books; the insert path is what actually guarantees
// exclusivity.
func (h *Handler) ReservationAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		respondNotFound(w, "Restaurant context not found")
		return
	}

	query := r.URL.Query()
	tableID, err := strconv.ParseInt(query.Get("tableId"), 10, 64)
	if err != nil {
		respondValidationError(w, "tableId is required")
		return
	}
	date, ok := parseReservationDate(query.Get("date"))
	if !ok {
		respondValidationError(w, "date must be YYYY-MM-DD")
		return
	}
	slot := strings.TrimSpace(query.Get("timeSlot"))
	if !validTimeSlot(slot) {
		respondValidationError(w, "Unrecognized time slot")
		return
	}

	available, err := h.slotAvailable(ctx, authCtx.RestaurantID, tableID, date, slot)
	if err != nil {
		h.Logger.Error("availability check failed", zap.Error(err))
		respondInternalError(w)
		return
	}

	response.Success(w, map[string]any{"available": available})
}

func (h *Handler) slotAvailable(ctx context.Context, restaurantID, tableID int64, date time.Time, slot string) (bool, error) {
	var taken bool
	err := h.DB.QueryRow(ctx, `
		select exists(
			select 1 from reservations
			where restaurant_id = $1 and table_id = $2 and reservation_date = $3 and time_slot = $4
			  and status = any($5)
		)
	`, restaurantID, tableID, date, slot, liveReservationStatuses).Scan(&taken)
	return !taken, err
}

func (h *Handler) ReservationCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		respondNotFound(w, "Restaurant context not found")
		return
	}

	var body reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondValidationError(w, "Invalid request body")
		return
	}

	h.createReservation(w, r, authCtx.RestaurantID, body, "CONFIRMED")
}

// PublicReservationCreate serves the booking widget; guests start PENDING and
// wait for staff confirmation.
func (h *Handler) PublicReservationCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restaurantID, err := h.resolveRestaurantByCode(ctx, r)
	if err != nil {
		respondNotFound(w, "Restaurant not found")
		return
	}

	var body reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondValidationError(w, "Invalid request body")
		return
	}
	// Guests never pick a concrete table; staff assign one later.
	body.TableID = nil

	h.createReservation(w, r, restaurantID, body, "PENDING")
}

func (h *Handler) createReservation(w http.ResponseWriter, r *http.Request, restaurantID int64, body reservationRequest, status string) {
	ctx := r.Context()

	date, ok := parseReservationDate(body.Date)
	if !ok {
		respondValidationError(w, "date must be YYYY-MM-DD")
		return
	}
	if !validTimeSlot(body.TimeSlot) {
		respondValidationError(w, "Unrecognized time slot")
		return
	}
	if strings.TrimSpace(body.CustomerName) == "" {
		respondValidationError(w, "Customer name is required")
		return
	}
	if body.PartySize < 1 {
		respondValidationError(w, "Party size must be at least 1")
		return
	}

	if body.TableID != nil {
		var exists bool
		if err := h.DB.QueryRow(ctx, `
			select exists(select 1 from restaurant_tables where id = $1 and restaurant_id = $2 and is_active)
		`, *body.TableID, restaurantID).Scan(&exists); err != nil || !exists {
			respondNotFound(w, "Table not found")
			return
		}

		available, err := h.slotAvailable(ctx, restaurantID, *body.TableID, date, body.TimeSlot)
		if err != nil {
			respondInternalError(w)
			return
		}
		if !available {
			respondSlotConflict(w)
			return
		}
	}

	var reservationID int64
	err := h.DB.QueryRow(ctx, `
		insert into reservations (
			restaurant_id, table_id, reservation_date, time_slot, party_size,
			customer_name, customer_phone, customer_email, special_request, status, updated_at
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		returning id
	`, restaurantID, body.TableID, date, body.TimeSlot, body.PartySize,
		strings.TrimSpace(body.CustomerName), nullIfEmpty(body.CustomerPhone), nullIfEmpty(body.CustomerEmail),
		nullIfEmpty(body.SpecialRequest), status).Scan(&reservationID)
	if err != nil {
		// The partial unique index is the real arbiter when two bookings race
		// past the availability pre-check.
		if isUniqueViolation(err, db.ReservationSlotIndexName) {
			respondSlotConflict(w)
			return
		}
		h.Logger.Error("reservation insert failed", zap.Error(err))
		respondInternalError(w)
		return
	}

	h.publishEvent(ctx, restaurantID, "reservation.created", map[string]any{"reservationId": reservationID})

	response.Created(w, map[string]any{
		"id":        reservationID,
		"status":    status,
		"date":      date.Format("2006-01-02"),
		"timeSlot":  body.TimeSlot,
		"tableId":   body.TableID,
		"partySize": body.PartySize,
	})
}

func (h *Handler) ReservationsList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		respondNotFound(w, "Restaurant context not found")
		return
	}

	query := `
		select r.id, r.table_id, t.table_number, r.reservation_date, r.time_slot, r.party_size,
		       r.customer_name, r.customer_phone, r.customer_email, r.special_request, r.status, r.created_at
		from reservations r
		left join restaurant_tables t on t.id = r.table_id
		where r.restaurant_id = $1
	`
	args := []any{authCtx.RestaurantID}

	if dateFilter := strings.TrimSpace(r.URL.Query().Get("date")); dateFilter != "" {
		date, ok := parseReservationDate(dateFilter)
		if !ok {
			respondValidationError(w, "date must be YYYY-MM-DD")
			return
		}
		query += ` and r.reservation_date = $2`
		args = append(args, date)
	}
	query += ` order by r.reservation_date asc, r.created_at asc`

	rows, err := h.DB.Query(ctx, query, args...)
	if err != nil {
		h.Logger.Error("reservation list failed", zap.Error(err))
		respondInternalError(w)
		return
	}
	defer rows.Close()

	reservations := make([]map[string]any, 0)
	for rows.Next() {
		var (
			id             int64
			tableID        pgtype.Int8
			tableNumber    pgtype.Text
			date           time.Time
			slot           string
			partySize      int32
			customerName   string
			customerPhone  pgtype.Text
			customerEmail  pgtype.Text
			specialRequest pgtype.Text
			status         string
			createdAt      time.Time
		)
		if err := rows.Scan(&id, &tableID, &tableNumber, &date, &slot, &partySize,
			&customerName, &customerPhone, &customerEmail, &specialRequest, &status, &createdAt); err != nil {
			respondInternalError(w)
			return
		}
		reservations = append(reservations, map[string]any{
			"id":             id,
			"tableId":        int8OrNil(tableID),
			"tableNumber":    textOrNil(tableNumber),
			"date":           date.Format("2006-01-02"),
			"timeSlot":       slot,
			"partySize":      partySize,
			"customerName":   customerName,
			"customerPhone":  textOrNil(customerPhone),
			"customerEmail":  textOrNil(customerEmail),
			"specialRequest": textOrNil(specialRequest),
			"status":         status,
			"createdAt":      createdAt,
		})
	}

	response.Success(w, reservations)
}

// ReservationUpdate edits the booking itself. Moving it to another date, slot
// or table goes through the same conflict handling as creation.
func (h *Handler) ReservationUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		respondNotFound(w, "Restaurant context not found")
		return
	}

	reservationID, err := readPathInt64(r, "reservationId")
	if err != nil {
		respondValidationError(w, "Invalid reservation id")
		return
	}

	var body reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondValidationError(w, "Invalid request body")
		return
	}
	date, ok := parseReservationDate(body.Date)
	if !ok {
		respondValidationError(w, "date must be YYYY-MM-DD")
		return
	}
	if !validTimeSlot(body.TimeSlot) {
		respondValidationError(w, "Unrecognized time slot")
		return
	}
	if strings.TrimSpace(body.CustomerName) == "" {
		respondValidationError(w, "Customer name is required")
		return
	}
	if body.PartySize < 1 {
		respondValidationError(w, "Party size must be at least 1")
		return
	}

	tag, err := h.DB.Exec(ctx, `
		update reservations
		set table_id = $1, reservation_date = $2, time_slot = $3, party_size = $4,
		    customer_name = $5, customer_phone = $6, customer_email = $7, special_request = $8,
		    updated_at = now()
		where id = $9 and restaurant_id = $10
	`, body.TableID, date, body.TimeSlot, body.PartySize,
		strings.TrimSpace(body.CustomerName), nullIfEmpty(body.CustomerPhone), nullIfEmpty(body.CustomerEmail),
		nullIfEmpty(body.SpecialRequest), reservationID, authCtx.RestaurantID)
	if err != nil {
		if isUniqueViolation(err, db.ReservationSlotIndexName) {
			respondSlotConflict(w)
			return
		}
		h.Logger.Error("reservation update failed", zap.Error(err))
		respondInternalError(w)
		return
	}
	if tag.RowsAffected() == 0 {
		respondNotFound(w, "Reservation not found")
		return
	}

	response.Success(w, map[string]any{"id": reservationID})
}

type reservationStatusRequest struct {
	Status string `json:"status"`
}

// ReservationUpdateStatus is free-form within the enumerated set; only the
// current status is kept, no history.
func (h *Handler) ReservationUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		respondNotFound(w, "Restaurant context not found")
		return
	}

	reservationID, err := readPathInt64(r, "reservationId")
	if err != nil {
		respondValidationError(w, "Invalid reservation id")
		return
	}

	var body reservationStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondValidationError(w, "Invalid request body")
		return
	}
	target := strings.TrimSpace(body.Status)
	if _, ok := reservationStatuses[target]; !ok {
		respondValidationError(w, "Unknown reservation status")
		return
	}

	tag, err := h.DB.Exec(ctx, `
		update reservations set status = $1, updated_at = now() where id = $2 and restaurant_id = $3
	`, target, reservationID, authCtx.RestaurantID)
	if err != nil {
		// Re-activating a booking can collide with a newer holder of the slot.
		if isUniqueViolation(err, db.ReservationSlotIndexName) {
			respondSlotConflict(w)
			return
		}
		respondInternalError(w)
		return
	}
	if tag.RowsAffected() == 0 {
		respondNotFound(w, "Reservation not found")
		return
	}

	response.Success(w, map[string]any{"id": reservationID, "status": target})
}

type assignTableRequest struct {
	TableID int64 `json:"tableId"`
}

// ReservationAssignTable matches an unassigned booking to a concrete table.
func (h *Handler) ReservationAssignTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx, ok := middleware.GetAuthContext(ctx)
	if !ok {
		respondNotFound(w, "Restaurant context not found")
		return
	}

	reservationID, err := readPathInt64(r, "reservationId")
	if err != nil {
		respondValidationError(w, "Invalid reservation id")
		return
	}

	var body assignTableRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.TableID == 0 {
		respondValidationError(w, "tableId is required")
		return
	}

	var exists bool
	if err := h.DB.QueryRow(ctx, `
		select exists(select 1 from restaurant_tables where id = $1 and restaurant_id = $2 and is_active)
	`, body.TableID, authCtx.RestaurantID).Scan(&exists); err != nil || !exists {
		respondNotFound(w, "Table not found")
		return
	}

	tag, err := h.DB.Exec(ctx, `
		update reservations set table_id = $1, updated_at = now() where id = $2 and restaurant_id = $3
	`, body.TableID, reservationID, authCtx.RestaurantID)
	if err != nil {
		if isUniqueViolation(err, db.ReservationSlotIndexName) {
			respondSlotConflict(w)
			return
		}
		respondInternalError(w)
		return
	}
	if tag.RowsAffected() == 0 {
		respondNotFound(w, "Reservation not found")
		return
	}

	response.Success(w, map[string]any{"id": reservationID, "tableId": body.TableID})
}
