package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
	"github.com/xenking/coupon-engine/internal/domain/order"
)

type orderItemRequest struct {
	ProductID   int64 `json:"product_id"`
	VariationID int64 `json:"variation_id,omitempty"`
	Quantity    int   `json:"quantity"`
}

type placeOrderRequest struct {
	CustomerID    int64              `json:"customer_id,omitempty"`
	Currency      string             `json:"currency,omitempty"`
	PriceSystemID int64              `json:"price_system_id,omitempty"`
	CouponCodes   []string           `json:"coupon_codes,omitempty"`
	Items         []orderItemRequest `json:"items"`
}

type discountEntry struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

type placeOrderResponse struct {
	ID             string          `json:"id"`
	Currency       string          `json:"currency"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	Total          decimal.Decimal `json:"total"`
	Discounts      []discountEntry `json:"discounts,omitempty"`
	AppliedCoupons []int64         `json:"applied_coupons,omitempty"`
	FreeShipping   bool            `json:"free_shipping"`
	CreatedAt      time.Time       `json:"created_at"`
}

// PlaceOrder decodes the order request, delegates to the order service, and
// maps the result (or typed failure) onto the wire contract.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized", "missing tenant", "")
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", "invalid JSON body", "")
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = h.cfg.DefaultCurrency
	}
	priceSystemID := req.PriceSystemID
	if priceSystemID == 0 {
		priceSystemID = h.cfg.DefaultPriceSystemID
	}

	items := make([]coupon.ItemRef, len(req.Items))
	for i, item := range req.Items {
		items[i] = coupon.ItemRef{
			ProductID:   item.ProductID,
			VariationID: item.VariationID,
			Quantity:    item.Quantity,
		}
	}

	result, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		TenantID:      tenantID,
		CustomerID:    req.CustomerID,
		PriceSystemID: priceSystemID,
		Currency:      currency,
		CouponCodes:   req.CouponCodes,
		Items:         items,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	resp := placeOrderResponse{
		ID:             result.Order.ID,
		Currency:       result.Order.Currency,
		Subtotal:       result.Order.Subtotal,
		Discount:       result.Order.Discount,
		Total:          result.Order.Total,
		AppliedCoupons: result.Evaluation.AppliedCouponIDs,
		FreeShipping:   result.Order.FreeShipping,
		CreatedAt:      result.Order.CreatedAt,
	}
	for cur, amount := range result.Evaluation.Discounts {
		resp.Discounts = append(resp.Discounts, discountEntry{Currency: cur, Amount: amount})
	}

	writeJSON(w, r, http.StatusOK, resp)
}

// writeOrderError converts domain errors to the wire error contract.
// Business-rule coupon rejections map to 400, lookups to 404, everything
// unexpected to 500.
func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, order.ErrEmptyItems) {
		writeError(w, r, http.StatusBadRequest, "empty_items", err.Error(), "")
		return
	}

	var iqErr *order.InvalidQuantityError
	if errors.As(err, &iqErr) {
		writeError(w, r, http.StatusBadRequest, "invalid_quantity", iqErr.Error(), "")
		return
	}

	var pnfErr *order.ProductNotFoundError
	if errors.As(err, &pnfErr) {
		writeError(w, r, http.StatusNotFound, "product_not_found", pnfErr.Error(), "")
		return
	}

	var cerr *coupon.Error
	if errors.As(err, &cerr) {
		status := http.StatusBadRequest
		switch cerr.Kind {
		case coupon.KindNotFound, coupon.KindProductNotFound:
			status = http.StatusNotFound
		case coupon.KindInternal:
			status = http.StatusInternalServerError
		}
		writeError(w, r, status, string(cerr.Kind), cerr.Message, cerr.Code)
		return
	}

	zctx.From(r.Context()).Error("Placing order", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "internal", "internal error", "")
}
