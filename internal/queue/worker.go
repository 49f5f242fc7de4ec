package queue

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Event is the envelope every handler publishes. Payload stays opaque to the
// worker; it is stored as-is for the floor clients to read.
type Event struct {
	RestaurantID int64          `json:"restaurantId"`
	Type         string         `json:"type"`
	Payload      map[string]any `json:"payload"`
}

// StoreNotification translates one broker delivery into a notifications row.
// Malformed bodies are dropped rather than requeued forever.
func StoreNotification(ctx context.Context, pool *pgxpool.Pool, body []byte) error {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil
	}
	if event.RestaurantID == 0 || event.Type == "" {
		return nil
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		payload = []byte("{}")
	}

	_, err = pool.Exec(ctx, `
		insert into notifications (restaurant_id, event_type, payload)
		values ($1, $2, $3)
	`, event.RestaurantID, event.Type, payload)
	return err
}
