package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"zoho-sap-gateway/internal/config"
	"zoho-sap-gateway/internal/core"
	"zoho-sap-gateway/internal/validation"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Handler wires the gateway's HTTP surface: the order upsert, the read
// endpoints the sync worker polls, and the liveness probe.
type Handler struct {
	svc       core.OrderService
	validator *validation.Validator
	cfg       config.Config
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(cfg config.Config, svc core.OrderService) http.Handler {
	h := &Handler{
		svc:       svc,
		validator: validation.New(cfg.Enterprises),
		cfg:       cfg,
	}

	r := chi.NewRouter()
	// Zoho's webhook configuration historically posts to /orders/ with a
	// trailing slash; treat both forms as the same route.
	r.Use(chimiddleware.StripSlashes)
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(cfg.AllowedOrigins))
	r.Use(RequestBodyLimit(1 << 20)) // 1 MB

	r.Get("/", h.health)

	r.Post("/orders", h.upsertOrder)
	r.Get("/orders/pending", h.listPendingOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/zoho/{idZoho}", h.getOrderByZohoID)

	return r
}

// health is the liveness probe: a fixed payload, no dependency checks.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	writeJSON(w, http.StatusOK, response{
		Status:  "ok",
		Message: h.cfg.APITitle + " is running.",
	})
}

// decodeJSON decodes the request body into v, writing the appropriate error
// response on failure: 413 when the body exceeds the RequestBodyLimit, 400
// for everything else.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeDetail(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
