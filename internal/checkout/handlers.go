package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/noah-isme/simrig-store/internal/catalog"
	"github.com/noah-isme/simrig-store/internal/common"
)

// Handler exposes order placement over HTTP.
type Handler struct {
	Svc *Service
}

// PlaceOrder accepts a priced order from the storefront.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload Input
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	out, err := h.Svc.Place(r.Context(), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, out, h.Svc.Currency)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrProductNotFound) {
		common.JSONError(w, http.StatusUnprocessableEntity, "UNKNOWN_PRODUCT", "order references an unknown product", nil)
		return
	}
	common.WriteError(w, err)
}
