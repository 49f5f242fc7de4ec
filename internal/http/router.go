package httpapi

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"dinehall-pos-service/internal/config"
	"dinehall-pos-service/internal/gateway"
	"dinehall-pos-service/internal/http/handlers"
	"dinehall-pos-service/internal/middleware"
	"dinehall-pos-service/internal/queue"
	"dinehall-pos-service/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func NewRouter(db *pgxpool.Pool, logger *zap.Logger, cfg config.Config, queueClient *queue.Client, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Telemetry(logger))

	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"X-Requested-With",
				"Cache-Control",
				"Pragma",
			},
			AllowCredentials: true,
			MaxAge:           300,
		}

		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}

		r.Use(cors.Handler(options))
	}

	h := &handlers.Handler{
		DB:      db,
		Logger:  logger,
		Config:  cfg,
		Queue:   queueClient,
		WS:      wsServer,
		Gateway: gateway.New(cfg.PaymentGatewayURL),
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Guest-facing endpoints, scoped by the restaurant's public code.
	r.Route("/api/public/{code}", func(r chi.Router) {
		r.Get("/time-slots", h.TimeSlotsList)
		r.Post("/reservations", h.PublicReservationCreate)
		r.Post("/waiter-calls", h.PublicWaiterCallCreate)
	})

	r.Route("/api/pos", func(r chi.Router) {
		r.Use(middleware.StaffAuth(db, cfg.JWTSecret))

		r.Get("/menu", h.MenuList)
		r.Post("/cart/price", h.CartPriceQuote)

		r.Post("/kots", h.KOTCreate)
		r.Get("/kots", h.KOTList)
		r.Get("/kots/{kotId}", h.KOTDetail)
		r.Put("/kots/{kotId}/status", h.KOTAdvance)
		r.Post("/kots/{kotId}/cancel", h.KOTCancel)
		r.Post("/kots/{kotId}/complete", h.KOTComplete)

		r.Post("/orders", h.OrderCreateDirect)
		r.Get("/orders", h.OrdersList)
		r.Get("/orders/{orderId}", h.OrderDetail)
		r.Put("/orders/{orderId}/status", h.OrderUpdateStatus)
		r.Post("/orders/{orderId}/payments", h.OrderRecordPayment)
		r.Post("/orders/{orderId}/gateway-link", h.OrderGatewayLink)
		r.Get("/orders/{orderId}/receipt", h.OrderReceiptPDF)

		r.Get("/time-slots", h.TimeSlotsList)
		r.Get("/reservations/availability", h.ReservationAvailability)
		r.Post("/reservations", h.ReservationCreate)
		r.Get("/reservations", h.ReservationsList)
		r.Put("/reservations/{reservationId}", h.ReservationUpdate)
		r.Put("/reservations/{reservationId}/status", h.ReservationUpdateStatus)
		r.Post("/reservations/{reservationId}/assign-table", h.ReservationAssignTable)

		r.Get("/waiter-calls", h.WaiterCallsList)
		r.Post("/waiter-calls/{requestId}/attend", h.WaiterCallAttend)

		r.Get("/tables", h.TablesList)
	})

	if wsServer != nil {
		r.Get("/ws/kitchen", wsServer.KitchenStream)
	}

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
