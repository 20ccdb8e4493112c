package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"zoho-sap-gateway/internal/core"
	"zoho-sap-gateway/internal/validation"

	"github.com/go-chi/chi/v5"
)

// messageResponse is the success envelope of the upsert endpoint.
type messageResponse struct {
	Message string      `json:"message"`
	Order   *core.Order `json:"order"`
}

// upsertOrder handles POST /orders/. A fresh id_zoho creates the order (201);
// a known one updates notes and detail lines and flags the order for re-sync
// with SAP (200).
func (h *Handler) upsertOrder(w http.ResponseWriter, r *http.Request) {
	var payload validation.OrderPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	if errs := h.validator.Validate(&payload); len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	order, created, err := h.svc.Upsert(r.Context(), payload.ToInput())
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to store order: "+err.Error())
		return
	}

	if created {
		writeJSON(w, http.StatusCreated, messageResponse{Message: "order created successfully", Order: order})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "order updated successfully", Order: order})
}

// getOrder handles GET /orders/{id} by internal numeric id.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "order id must be an integer")
		return
	}

	order, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrOrderNotFound) {
			writeDetail(w, http.StatusNotFound, fmt.Sprintf("order %d not found", id))
			return
		}
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// getOrderByZohoID handles GET /orders/zoho/{idZoho} by external key.
func (h *Handler) getOrderByZohoID(w http.ResponseWriter, r *http.Request) {
	idZoho := chi.URLParam(r, "idZoho")

	order, err := h.svc.GetOrderByZohoID(r.Context(), idZoho)
	if err != nil {
		if errors.Is(err, core.ErrOrderNotFound) {
			writeDetail(w, http.StatusNotFound, fmt.Sprintf("order %s not found", idZoho))
			return
		}
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// listPendingOrders handles GET /orders/pending — the poll feed the external
// SAP sync worker consumes.
func (h *Handler) listPendingOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListPendingOrders(r.Context())
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	if orders == nil {
		orders = []core.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}
