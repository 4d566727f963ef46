package validate

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPaisa(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"100", true},
		{"0", true},
		{" 2500 ", true},
		{"1.50", false},
		{"-100", false},
		{"1e3", false},
		{"", false},
		{"1234567890123456", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsPaisa(tt.input))
		})
	}
}

func TestIsSelector(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"APP1", true},
		{"shop-1.np", true},
		{"tenant_42", true},
		{"", false},
		{"../etc", false},
		{"with space", false},
		{"a/b", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsSelector(tt.input))
		})
	}
}

func TestNew(t *testing.T) {
	type request struct {
		Tenant string `validate:"required,selector"`
		Amount string `validate:"required,paisa"`
	}

	v := New()

	assert.NoError(t, v.Struct(request{Tenant: "APP1", Amount: "100"}))
	assert.Error(t, v.Struct(request{Tenant: "APP1", Amount: "1.5"}))
	assert.Error(t, v.Struct(request{Tenant: "../x", Amount: "100"}))
	assert.Error(t, v.Struct(request{}))
}

func TestNew_ReportsJSONNames(t *testing.T) {
	type payload struct {
		TxnID  string `json:"TXNID" validate:"required"`
		TxnAmt string `json:"TXNAMT,omitempty" validate:"required,paisa"`
		Tenant string `json:"tenant_id" validate:"selector"`
	}

	err := New().Struct(payload{TxnAmt: "1.5", Tenant: "a/b"})

	var fieldErrs validator.ValidationErrors
	require.ErrorAs(t, err, &fieldErrs)
	require.Len(t, fieldErrs, 3)
	assert.Equal(t, "TXNID", fieldErrs[0].Field())
	assert.Equal(t, "required", fieldErrs[0].Tag())
	assert.Equal(t, "TXNAMT", fieldErrs[1].Field())
	assert.Equal(t, "paisa", fieldErrs[1].Tag())
	assert.Equal(t, "tenant_id", fieldErrs[2].Field())
}
