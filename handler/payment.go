package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/gocips/infra/middle"
	"github.com/mstgnz/gocips/infra/response"
	"github.com/mstgnz/gocips/provider"
)

// PaymentServiceInterface defines the gateway operations exposed over HTTP
type PaymentServiceInterface interface {
	GenerateToken(ctx context.Context, selector string, txn provider.Transaction) (*provider.TokenResponse, error)
	ValidateCallback(ctx context.Context, selector, outcome, txnID, txnAmt string) (*provider.CallbackResult, error)
}

// PaymentHandler handles token generation and the payer callbacks
type PaymentHandler struct {
	paymentService PaymentServiceInterface
	validate       *validator.Validate
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService PaymentServiceInterface, validate *validator.Validate) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		validate:       validate,
	}
}

// GenerateToken handles POST /v1/cips-payment/generate-token. Merchant and app
// identity always come from the stored configuration, never from the body.
func (h *PaymentHandler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	var txn provider.Transaction
	if err := json.NewDecoder(r.Body).Decode(&txn); err != nil {
		response.ErrorWithKind(w, http.StatusBadRequest, "Invalid request format", KindInvalidRequest, err)
		return
	}

	if err := h.validate.Struct(txn); err != nil {
		writeValidationError(w, err)
		return
	}

	resp, err := h.paymentService.GenerateToken(r.Context(), middle.GetTenantIDFromContext(r.Context()), txn)
	if err != nil {
		writeError(w, "Token generation failed", err)
		return
	}

	response.Success(w, http.StatusOK, "Token generated", resp)
}

// Success handles GET /v1/cips-payment/success
func (h *PaymentHandler) Success(w http.ResponseWriter, r *http.Request) {
	h.callback(w, r, provider.OutcomeSuccess)
}

// Failure handles GET /v1/cips-payment/failure
func (h *PaymentHandler) Failure(w http.ResponseWriter, r *http.Request) {
	h.callback(w, r, provider.OutcomeFailure)
}

// callback validates the transaction named in the redirect query. The gateway's
// answer decides the result, not which URL the payer landed on.
func (h *PaymentHandler) callback(w http.ResponseWriter, r *http.Request, outcome string) {
	query := r.URL.Query()

	result, err := h.paymentService.ValidateCallback(
		r.Context(),
		middle.GetTenantIDFromContext(r.Context()),
		outcome,
		query.Get("TXNID"),
		query.Get("TXNAMT"),
	)
	if err != nil {
		writeError(w, "Transaction validation failed", err)
		return
	}

	response.Success(w, http.StatusOK, "Transaction validated", result)
}
