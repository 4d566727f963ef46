package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mstgnz/gocips/infra/middle"
	"github.com/mstgnz/gocips/infra/response"
	"github.com/mstgnz/gocips/infra/validate"
	"github.com/mstgnz/gocips/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock PaymentService for testing
type mockPaymentService struct {
	generateTokenFunc    func(ctx context.Context, selector string, txn provider.Transaction) (*provider.TokenResponse, error)
	validateCallbackFunc func(ctx context.Context, selector, outcome, txnID, txnAmt string) (*provider.CallbackResult, error)

	selector string
	outcome  string
}

func (m *mockPaymentService) GenerateToken(ctx context.Context, selector string, txn provider.Transaction) (*provider.TokenResponse, error) {
	m.selector = selector
	if m.generateTokenFunc != nil {
		return m.generateTokenFunc(ctx, selector, txn)
	}
	return &provider.TokenResponse{
		Token: "c2lnbmVk",
		Form:  provider.PaymentForm{GatewayURL: "https://gw.example/login"},
	}, nil
}

func (m *mockPaymentService) ValidateCallback(ctx context.Context, selector, outcome, txnID, txnAmt string) (*provider.CallbackResult, error) {
	m.selector = selector
	m.outcome = outcome
	if m.validateCallbackFunc != nil {
		return m.validateCallbackFunc(ctx, selector, outcome, txnID, txnAmt)
	}
	return &provider.CallbackResult{
		Outcome: outcome,
		TxnID:   txnID,
		TxnAmt:  txnAmt,
		Status:  "SUCCESS",
		Result:  provider.ValidationResult{"status": "SUCCESS"},
	}, nil
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func withTenant(r *http.Request, tenantID string) *http.Request {
	return r.WithContext(middle.WithTenantID(r.Context(), tenantID))
}

func TestPaymentHandler_GenerateToken(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantKind   string
	}{
		{
			name:       "valid transaction",
			body:       `{"TXNID":"T1","TXNAMT":"1000","REFERENCEID":"R1"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "malformed json",
			body:       `{"TXNID":`,
			wantStatus: http.StatusBadRequest,
			wantKind:   KindInvalidRequest,
		},
		{
			name:       "missing amount",
			body:       `{"TXNID":"T1"}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   string(provider.KindMissingRequiredField),
		},
		{
			name:       "amount with decimals",
			body:       `{"TXNID":"T1","TXNAMT":"10.50"}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   KindInvalidRequest,
		},
		{
			name:       "unknown tenant",
			body:       `{"TXNID":"T1","TXNAMT":"1000"}`,
			serviceErr: provider.Errorf(provider.KindConfigNotFound, "no configuration for %q", "APP1"),
			wantStatus: http.StatusNotFound,
			wantKind:   string(provider.KindConfigNotFound),
		},
		{
			name:       "certificate cannot be unlocked",
			body:       `{"TXNID":"T1","TXNAMT":"1000"}`,
			serviceErr: provider.Errorf(provider.KindInvalidCertificate, "failed to decode certificate bundle"),
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   string(provider.KindInvalidCertificate),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPaymentService{}
			if tt.serviceErr != nil {
				svc.generateTokenFunc = func(context.Context, string, provider.Transaction) (*provider.TokenResponse, error) {
					return nil, tt.serviceErr
				}
			}
			h := NewPaymentHandler(svc, validate.New())

			req := httptest.NewRequest(http.MethodPost, "/v1/cips-payment/generate-token", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			h.GenerateToken(w, withTenant(req, "APP1"))

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.Equal(t, tt.wantKind, resp.Kind)
			if tt.wantStatus == http.StatusOK {
				assert.True(t, resp.Success)
				assert.Equal(t, "APP1", svc.selector)
				data := resp.Data.(map[string]any)
				assert.Equal(t, "c2lnbmVk", data["TOKEN"])
			}
		})
	}
}

func TestPaymentHandler_Callbacks(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		outcome string
		call    func(h *PaymentHandler) http.HandlerFunc
	}{
		{
			name:    "success url",
			path:    "/v1/cips-payment/success?TXNID=T1&TXNAMT=1000",
			outcome: provider.OutcomeSuccess,
			call:    func(h *PaymentHandler) http.HandlerFunc { return h.Success },
		},
		{
			name:    "failure url",
			path:    "/v1/cips-payment/failure?TXNID=T1&TXNAMT=1000",
			outcome: provider.OutcomeFailure,
			call:    func(h *PaymentHandler) http.HandlerFunc { return h.Failure },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPaymentService{}
			h := NewPaymentHandler(svc, validate.New())

			w := httptest.NewRecorder()
			tt.call(h)(w, withTenant(httptest.NewRequest(http.MethodGet, tt.path, nil), "APP1"))

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.outcome, svc.outcome)
			assert.Equal(t, "APP1", svc.selector)

			data := decodeResponse(t, w).Data.(map[string]any)
			assert.Equal(t, "T1", data["txn_id"])
			assert.Equal(t, "1000", data["txn_amt"])
			assert.Equal(t, "SUCCESS", data["status"])
		})
	}
}

func TestPaymentHandler_CallbackMissingQuery(t *testing.T) {
	svc := &mockPaymentService{
		validateCallbackFunc: func(_ context.Context, _, _, txnID, txnAmt string) (*provider.CallbackResult, error) {
			assert.Empty(t, txnID)
			return nil, provider.Errorf(provider.KindMissingRequiredField, "missing required fields: TXNID")
		},
	}
	h := NewPaymentHandler(svc, validate.New())

	w := httptest.NewRecorder()
	h.Success(w, withTenant(httptest.NewRequest(http.MethodGet, "/v1/cips-payment/success?TXNAMT=1000", nil), "APP1"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, string(provider.KindMissingRequiredField), resp.Kind)
	assert.Contains(t, resp.Error, "TXNID")
}

func TestPaymentHandler_CallbackGatewayError(t *testing.T) {
	svc := &mockPaymentService{
		validateCallbackFunc: func(context.Context, string, string, string, string) (*provider.CallbackResult, error) {
			return nil, provider.GatewayErr(http.StatusInternalServerError, "upstream down")
		},
	}
	h := NewPaymentHandler(svc, validate.New())

	w := httptest.NewRecorder()
	h.Failure(w, withTenant(httptest.NewRequest(http.MethodGet, "/v1/cips-payment/failure?TXNID=T1&TXNAMT=1", nil), "APP1"))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, string(provider.KindGatewayError), resp.Kind)

	data := resp.Data.(map[string]any)
	assert.EqualValues(t, http.StatusInternalServerError, data["gateway_status"])
	assert.Equal(t, "upstream down", data["gateway_body"])
}
