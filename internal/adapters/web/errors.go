package web

import (
	"encoding/json"
	"net/http"

	"zoho-sap-gateway/internal/validation"
)

// Error payloads carry a single "detail" member: a human-readable cause for
// not-found and persistence failures, or the violated-constraint list for
// rejected payloads.

type detailResponse struct {
	Detail string `json:"detail"`
}

type validationResponse struct {
	Detail []validation.FieldError `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes an error response in the {detail: <cause>} shape.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

// writeFieldErrors rejects a payload with 422 and one entry per violation.
func writeFieldErrors(w http.ResponseWriter, errs []validation.FieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Detail: errs})
}
