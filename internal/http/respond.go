package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/aman7082/Virtual-Bookstore/internal/bookstore"
	"github.com/aman7082/Virtual-Bookstore/internal/checkout"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps service-layer failures to HTTP responses.
// Remote failures surface as a generic upstream error, never retried.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bookstore.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty")
	case errors.Is(err, checkout.ErrUnsupportedMethod):
		respondError(w, http.StatusBadRequest, "invalid_payment_method", "payment method must be card, upi or cod")
	case errors.Is(err, checkout.ErrNoLiveSession):
		respondError(w, http.StatusNotFound, "no_payment_session", "no UPI payment session in flight")
	case bookstore.IsRemoteError(err):
		respondError(w, http.StatusBadGateway, "upstream_error", "bookstore service unavailable")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
