package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/maximefrech68-hue/monthe/internal/checkout"
	"github.com/maximefrech68-hue/monthe/internal/domain"
	"github.com/maximefrech68-hue/monthe/internal/payment"
)

type CheckoutHandler struct {
	checkout *checkout.Service
	timeout  time.Duration
}

func NewCheckoutHandler(svc *checkout.Service, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: svc,
		timeout:  timeout,
	}
}

type BeginCheckoutRequestDTO struct {
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Zip        string `json:"zip"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

type BeginCheckoutResponseDTO struct {
	OrderRef    string `json:"order_ref"`
	RedirectURL string `json:"redirect_url"`
}

type ReturnResponseDTO struct {
	State    string `json:"state"`
	OrderRef string `json:"order_ref,omitempty"`
	Message  string `json:"message,omitempty"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "no session")
		return
	}

	var req BeginCheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.SuccessURL == "" || req.CancelURL == "" {
		respondError(w, http.StatusBadRequest, "missing_return_urls", "success_url and cancel_url are required")
		return
	}

	customer := domain.Customer{
		Email:    req.Email,
		FullName: req.FullName,
		Address:  req.Address,
		City:     req.City,
		Zip:      req.Zip,
	}

	result, err := h.checkout.Begin(ctx, sessionID, customer, req.SuccessURL, req.CancelURL)
	if err != nil {
		handleCheckoutError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, BeginCheckoutResponseDTO{
		OrderRef:    result.OrderRef,
		RedirectURL: result.RedirectURL,
	})
}

// GET /api/v1/checkout/return?success=1 | ?canceled=1
func (h *CheckoutHandler) Return(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "no session")
		return
	}

	signal := checkout.SignalFromQuery(r.URL.Query())
	outcome, err := h.checkout.HandleReturn(ctx, sessionID, signal)
	if err != nil {
		handleReturnError(w, err)
		return
	}

	h.respondOutcome(w, outcome)
}

// POST /api/v1/checkout/retry
func (h *CheckoutHandler) Retry(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "no session")
		return
	}

	outcome, err := h.checkout.Retry(ctx, sessionID)
	if err != nil {
		handleReturnError(w, err)
		return
	}

	h.respondOutcome(w, outcome)
}

func (h *CheckoutHandler) respondOutcome(w http.ResponseWriter, outcome *checkout.Outcome) {
	dto := ReturnResponseDTO{
		State:    string(outcome.State),
		OrderRef: outcome.OrderRef,
	}
	switch outcome.State {
	case checkout.StateCanceled:
		dto.Message = "payment canceled, your cart is untouched"
	case checkout.StateConfirmed:
		dto.Message = "order confirmed"
	}
	respondJSON(w, http.StatusOK, dto)
}

func handleCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty")
	case errors.Is(err, checkout.ErrInvalidCustomer):
		respondError(w, http.StatusBadRequest, "invalid_customer", "all customer fields are required")
	case errors.Is(err, payment.ErrNoPayableItems), errors.Is(err, payment.ErrSessionRejected):
		respondError(w, http.StatusBadGateway, "payment_init_failed", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to start checkout")
	}
}

func handleReturnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkout.ErrOrphanedConfirmation):
		respondError(w, http.StatusNotFound, "orphaned_confirmation",
			"payment succeeded but no staged order was found; contact support with your payment receipt")
	case errors.Is(err, checkout.ErrPaymentNotConfirmed):
		respondError(w, http.StatusConflict, "payment_not_confirmed",
			"no payment confirmation was received for this order; complete the payment first")
	case errors.Is(err, checkout.ErrReconciliationFailed):
		respondError(w, http.StatusBadGateway, "reconciliation_failed",
			"payment succeeded but recording the order failed; your cart is kept, retry or contact support")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to process payment return")
	}
}
