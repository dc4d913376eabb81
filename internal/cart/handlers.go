package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/simrig-store/internal/catalog"
	"github.com/noah-isme/simrig-store/internal/common"
)

// Handler wires cart services to HTTP.
type Handler struct {
	Svc      *Service
	Currency string
}

// PriceLine prices one configured product.
func (h *Handler) PriceLine(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		OptionIDs []string `json:"optionIds"`
		Quantity  int      `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if payload.Quantity == 0 {
		payload.Quantity = 1
	}
	line, err := h.Svc.PriceLine(r.Context(), LineRequest{
		ProductID: chi.URLParam(r, "id"),
		OptionIDs: payload.OptionIDs,
		Quantity:  payload.Quantity,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, line, h.Currency)
}

// Defaults returns the configurator pre-selection for a product.
func (h *Handler) Defaults(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	ids, err := h.Svc.Defaults(r.Context(), productID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	common.Data(w, http.StatusOK, map[string]any{"productId": productID, "optionIds": ids}, "")
}

// QuoteShipping quotes shipping for a postal code.
func (h *Handler) QuoteShipping(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	quote, err := h.Svc.QuoteShipping(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, quote, h.Currency)
}

// Draft prices a whole cart into an order draft.
func (h *Handler) Draft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	draft, err := h.Svc.Draft(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, draft, h.Currency)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrProductNotFound) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
		return
	}
	common.WriteError(w, err)
}
