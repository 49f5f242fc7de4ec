package handlers

import (
	"dinehall-pos-service/internal/config"
	"dinehall-pos-service/internal/gateway"
	"dinehall-pos-service/internal/queue"
	"dinehall-pos-service/internal/ws"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Handler struct {
	DB      *pgxpool.Pool
	Logger  *zap.Logger
	Config  config.Config
	Queue   *queue.Client
	WS      *ws.Server
	Gateway *gateway.Client
}
