package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

type productResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CategoryID int64  `json:"category_id"`
	OnSale     bool   `json:"on_sale"`
}

// ListProducts returns the tenant's catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized", "missing tenant", "")
		return
	}

	products, err := h.catalog.List(r.Context(), tenantID)
	if err != nil {
		zctx.From(r.Context()).Error("Listing products", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal", "internal error", "")
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = productResponse{
			ID:         p.ID,
			Name:       p.Name,
			CategoryID: p.CategoryID,
			OnSale:     p.OnSale,
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}
