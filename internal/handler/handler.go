// Package handler exposes the order placement and catalog API over plain
// JSON HTTP endpoints, mapping domain failures to the wire error contract.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/coupon-engine/internal/domain/catalog"
	"github.com/xenking/coupon-engine/internal/domain/order"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// DefaultCurrency is used when an order request carries no currency.
	DefaultCurrency string
	// DefaultPriceSystemID is used when an order request names no price
	// system.
	DefaultPriceSystemID int64
}

// Handler serves the JSON API, delegating business logic to the order
// service and catalog repository.
type Handler struct {
	cfg     Config
	catalog catalog.Repository
	orders  *order.Service
}

// New constructs a Handler with the required domain dependencies.
func New(cfg Config, cat catalog.Repository, orders *order.Service) *Handler {
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}
	return &Handler{
		cfg:     cfg,
		catalog: cat,
		orders:  orders,
	}
}

// Register wires the handler's routes onto the mux. All routes require the
// API key middleware to have resolved a tenant.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", h.PlaceOrder)
	mux.HandleFunc("GET /api/products", h.ListProducts)
}

// errorResponse is the wire shape of every API failure.
type errorResponse struct {
	ErrorKind     string `json:"error_kind"`
	Message       string `json:"message"`
	OffendingCode string `json:"offending_code,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zctx.From(r.Context()).Warn("Encoding response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, kind, message, code string) {
	writeJSON(w, r, status, errorResponse{
		ErrorKind:     kind,
		Message:       message,
		OffendingCode: code,
	})
}
