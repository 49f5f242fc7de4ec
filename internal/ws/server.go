// Package ws streams kitchen-ticket events to connected kitchen displays.
// Clients subscribe per restaurant; handlers push events after each ticket
// mutation. Clients that fall behind are dropped, never blocked on.
package ws

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"dinehall-pos-service/internal/auth"
	"dinehall-pos-service/internal/config"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Server struct {
	Logger *zap.Logger
	Config config.Config

	mu   sync.RWMutex
	subs map[int64]map[*client]struct{}
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(value)
}

func New(logger *zap.Logger, cfg config.Config) *Server {
	return &Server{
		Logger: logger,
		Config: cfg,
		subs:   make(map[int64]map[*client]struct{}),
	}
}

// KitchenStream upgrades the connection and subscribes it to the restaurant
// carried by the token. Auth rides in the query string because browsers cannot
// set headers on WebSocket upgrades.
func (s *Server) KitchenStream(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	claims, err := auth.VerifyAccessToken(token, s.Config.JWTSecret)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	restaurantID, err := strconv.ParseInt(claims.RestaurantID, 10, 64)
	if err != nil || restaurantID == 0 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn("kitchen ws upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn}
	s.subscribe(restaurantID, c)
	defer func() {
		s.unsubscribe(restaurantID, c)
		_ = conn.Close()
	}()

	go s.heartbeat(c)

	// Read loop only drains control frames; the stream is one-way.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) subscribe(restaurantID int64, c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[restaurantID] == nil {
		s.subs[restaurantID] = make(map[*client]struct{})
	}
	s.subs[restaurantID][c] = struct{}{}
}

func (s *Server) unsubscribe(restaurantID int64, c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clients := s.subs[restaurantID]
	delete(clients, c)
	if len(clients) == 0 {
		delete(s.subs, restaurantID)
	}
}

func (s *Server) heartbeat(c *client) {
	interval := s.Config.WSHeartbeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		c.writeMu.Lock()
		err := c.conn.WriteMessage(websocket.PingMessage, nil)
		c.writeMu.Unlock()
		if err != nil {
			return
		}
	}
}

// Broadcast fans a ticket event out to every display of one restaurant. A nil
// server is a no-op so handlers can be tested without wiring.
func (s *Server) Broadcast(restaurantID int64, event string, payload any) {
	if s == nil {
		return
	}

	s.mu.RLock()
	clientsMap := s.subs[restaurantID]
	clients := make([]*client, 0, len(clientsMap))
	for c := range clientsMap {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	message := map[string]any{
		"event":   event,
		"payload": payload,
		"ts":      time.Now().UTC(),
	}
	for _, c := range clients {
		if err := c.writeJSON(message); err != nil {
			s.unsubscribe(restaurantID, c)
			_ = c.conn.Close()
		}
	}
}
