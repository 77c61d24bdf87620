package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aman7082/Virtual-Bookstore/internal/checkout"
	"github.com/aman7082/Virtual-Bookstore/internal/domain"
)

type CheckoutHandler struct {
	coordinator *checkout.Coordinator
	timeout     time.Duration
}

func NewCheckoutHandler(coordinator *checkout.Coordinator, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{coordinator: coordinator, timeout: timeout}
}

type CheckoutRequestDTO struct {
	PaymentMethod   string `json:"paymentMethod"`
	ShippingAddress string `json:"shippingAddress"`
}

// Checkout settles card and COD immediately. UPI is interactive and
// goes through StartUPIPayment instead.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	req, ok := h.decodeCheckoutRequest(w, r)
	if !ok {
		return
	}

	method := domain.PaymentMethod(req.PaymentMethod)
	if !method.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_payment_method", "payment method must be card, upi or cod")
		return
	}
	if method == domain.MethodUPI {
		respondError(w, http.StatusBadRequest, "use_upi_flow", "UPI checkout starts at /checkout/upi")
		return
	}

	result, err := h.coordinator.Checkout(ctx, method, req.ShippingAddress)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

type UPISessionDTO struct {
	State            string                 `json:"state"`
	Reason           string                 `json:"reason,omitempty"`
	Payload          string                 `json:"payload,omitempty"`
	RemainingSeconds int                    `json:"remainingSeconds"`
	Result           *domain.CheckoutResult `json:"result,omitempty"`
}

// StartUPIPayment opens the UPI payment session for the current cart
// and returns the scannable payload. A previous live session is
// superseded.
func (h *CheckoutHandler) StartUPIPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	req, ok := h.decodeCheckoutRequest(w, r)
	if !ok {
		return
	}
	if req.PaymentMethod != "" && req.PaymentMethod != string(domain.MethodUPI) {
		respondError(w, http.StatusBadRequest, "invalid_payment_method", "this endpoint only starts UPI payments")
		return
	}

	attempt, err := h.coordinator.StartUPI(ctx, req.ShippingAddress)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, UPISessionDTO{
		State:            attempt.Session.State().String(),
		Payload:          attempt.Session.Payload(),
		RemainingSeconds: attempt.Session.Remaining(),
	})
}

// UPIStatus reports the live (or latest) session for polling clients.
func (h *CheckoutHandler) UPIStatus(w http.ResponseWriter, r *http.Request) {
	attempt := h.coordinator.CurrentUPI()
	if attempt == nil {
		handleServiceError(w, checkout.ErrNoLiveSession)
		return
	}

	dto := UPISessionDTO{
		State:            attempt.Session.State().String(),
		Payload:          attempt.Session.Payload(),
		RemainingSeconds: attempt.Session.Remaining(),
	}
	if attempt.Session.State() == domain.SessionFailed {
		dto.Reason = string(attempt.Session.FailReason())
	}
	if result, err := attempt.Result(); err == nil {
		dto.Result = result
	}

	respondJSON(w, http.StatusOK, dto)
}

// ConfirmUPIPayment relays the user's "I've paid" claim.
func (h *CheckoutHandler) ConfirmUPIPayment(w http.ResponseWriter, r *http.Request) {
	if err := h.coordinator.ConfirmPayment(); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "verifying"})
}

// CancelUPIPayment cancels the live session.
func (h *CheckoutHandler) CancelUPIPayment(w http.ResponseWriter, r *http.Request) {
	if err := h.coordinator.CancelPayment(); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *CheckoutHandler) decodeCheckoutRequest(w http.ResponseWriter, r *http.Request) (CheckoutRequestDTO, bool) {
	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return CheckoutRequestDTO{}, false
	}

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return CheckoutRequestDTO{}, false
	}
	if req.ShippingAddress == "" {
		respondError(w, http.StatusBadRequest, "missing_shipping_address", "shippingAddress is required")
		return CheckoutRequestDTO{}, false
	}
	return req, true
}
