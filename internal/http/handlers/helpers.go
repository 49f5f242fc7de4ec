package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"dinehall-pos-service/internal/queue"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

var errMissingParam = errors.New("missing param")

// readPathInt64 rejects anything but a bare decimal id; "12abc" is an error,
// not 12.
func readPathInt64(r *http.Request, key string) (int64, error) {
	value := chi.URLParam(r, key)
	if value == "" {
		return 0, errMissingParam
	}
	return strconv.ParseInt(value, 10, 64)
}

func nullIfEmpty(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func textOrNil(value pgtype.Text) *string {
	if !value.Valid {
		return nil
	}
	return &value.String
}

func int8OrNil(value pgtype.Int8) *int64 {
	if !value.Valid {
		return nil
	}
	return &value.Int64
}

func numericToFloat64(value pgtype.Numeric) float64 {
	if !value.Valid {
		return 0
	}
	f, err := value.Float64Value()
	if err != nil {
		return 0
	}
	return f.Float64
}

func formatOrderNumber(sequence int64) string {
	return fmt.Sprintf("ORD-%06d", sequence)
}

// nextCounterValue atomically bumps a per-restaurant sequence inside the
// caller's transaction. Gaps are fine (the bump rolls back with a rolled-back
// caller), reuse is not.
func nextCounterValue(ctx context.Context, tx pgx.Tx, restaurantID int64, name string) (int64, error) {
	var value int64
	err := tx.QueryRow(ctx, `
		insert into restaurant_counters (restaurant_id, name, value)
		values ($1, $2, 1)
		on conflict (restaurant_id, name)
		do update set value = restaurant_counters.value + 1
		returning value
	`, restaurantID, name).Scan(&value)
	return value, err
}

// publishEvent is best-effort: broker trouble never fails the request.
func (h *Handler) publishEvent(ctx context.Context, restaurantID int64, eventType string, payload map[string]any) {
	event := queue.Event{RestaurantID: restaurantID, Type: eventType, Payload: payload}
	if err := h.Queue.PublishJSON(ctx, eventType, event); err != nil {
		h.Logger.Warn("event publish failed", zap.String("event", eventType), zap.Error(err))
	}
}
