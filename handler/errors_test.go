package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mstgnz/gocips/infra/validate"
	"github.com/mstgnz/gocips/provider"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind provider.ErrorKind
		want int
	}{
		{provider.KindConfigNotFound, http.StatusNotFound},
		{provider.KindCertificateNotFound, http.StatusNotFound},
		{provider.KindMissingRequiredField, http.StatusBadRequest},
		{provider.KindInvalidConfig, http.StatusBadRequest},
		{provider.KindConfigExists, http.StatusConflict},
		{provider.KindInvalidCertificate, http.StatusUnprocessableEntity},
		{provider.KindBadCredentials, http.StatusBadGateway},
		{provider.KindGatewayError, http.StatusBadGateway},
		{provider.KindGatewayUnreachable, http.StatusGatewayTimeout},
		{provider.KindTokenGenerationFailed, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(provider.Errorf(tt.kind, "boom")))
		})
	}

	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("plain")))
}

func TestWriteError_HidesUnkindedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, "Something failed", errors.New("dial tcp 10.0.0.3:5432: secret detail"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeResponse(t, w)
	assert.Empty(t, resp.Kind)
	assert.Equal(t, "internal error", resp.Error)
	assert.NotContains(t, w.Body.String(), "secret detail")
}

func TestWriteError_BadCredentialsCarriesGatewayResponse(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, "Transaction validation failed", &provider.Error{
		Kind:       provider.KindBadCredentials,
		Message:    "gateway rejected app credentials",
		StatusCode: http.StatusOK,
		Body:       `{"status":"ERROR","body":"Bad credentials"}`,
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, string(provider.KindBadCredentials), resp.Kind)
	assert.Equal(t, "gateway rejected app credentials", resp.Error)
	data := resp.Data.(map[string]any)
	assert.EqualValues(t, http.StatusOK, data["gateway_status"])
}

func TestWriteValidationError(t *testing.T) {
	v := validate.New()

	tests := []struct {
		name     string
		txn      provider.Transaction
		wantKind string
		contains string
	}{
		{
			name:     "missing fields use json names",
			txn:      provider.Transaction{},
			wantKind: string(provider.KindMissingRequiredField),
			contains: "TXNID, TXNAMT",
		},
		{
			name:     "format failure",
			txn:      provider.Transaction{TxnID: "T1", TxnAmount: "abc"},
			wantKind: KindInvalidRequest,
			contains: "TXNAMT (paisa)",
		},
		{
			name:     "txn id too long",
			txn:      provider.Transaction{TxnID: "123456789012345678901", TxnAmount: "1"},
			wantKind: KindInvalidRequest,
			contains: "TXNID (max)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.txn)
			if !assert.Error(t, err) {
				return
			}

			w := httptest.NewRecorder()
			writeValidationError(w, err)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeResponse(t, w)
			assert.Equal(t, tt.wantKind, resp.Kind)
			assert.Contains(t, resp.Error, tt.contains)
		})
	}
}
