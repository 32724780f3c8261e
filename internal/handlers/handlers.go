package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartageapp/cartage/internal/auth"
	"github.com/cartageapp/cartage/internal/cache"
	"github.com/cartageapp/cartage/internal/config"
	"github.com/cartageapp/cartage/internal/logging"
	"github.com/cartageapp/cartage/internal/services"
)

const (
	maxRequestBodyBytes = 1 << 20 // 1 MB
	maxWebhookBodyBytes = 1 << 20
)

// Handlers provides the HTTP request handlers for the order API.
type Handlers struct {
	config        *config.Config
	db            *pgxpool.Pool
	orderService  *services.OrderService
	tokenVerifier *auth.TokenVerifier
	cacheProvider cache.Provider
	paymentRouter *PaymentEventRouter
	logger        *slog.Logger
}

type Dependencies struct {
	Config        *config.Config
	DB            *pgxpool.Pool
	OrderService  *services.OrderService
	TokenVerifier *auth.TokenVerifier
	CacheProvider cache.Provider
	PaymentRouter *PaymentEventRouter
	Logger        *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.OrderService == nil {
		return nil, fmt.Errorf("handlers dependencies: orderService is required")
	}
	if deps.TokenVerifier == nil {
		return nil, fmt.Errorf("handlers dependencies: tokenVerifier is required")
	}
	if deps.CacheProvider == nil {
		return nil, fmt.Errorf("handlers dependencies: cacheProvider is required")
	}
	if deps.PaymentRouter == nil {
		return nil, fmt.Errorf("handlers dependencies: paymentRouter is required")
	}

	return &Handlers{
		config:        deps.Config,
		db:            deps.DB,
		orderService:  deps.OrderService,
		tokenVerifier: deps.TokenVerifier,
		cacheProvider: deps.CacheProvider,
		paymentRouter: deps.PaymentRouter,
		logger:        logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}
