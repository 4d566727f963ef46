package connectips

import (
	"strings"
	"testing"

	"github.com/mstgnz/gocips/provider"
	"github.com/stretchr/testify/assert"
)

func testConfig() *provider.GatewayConfig {
	return &provider.GatewayConfig{
		TenantID:         "APP1",
		GatewayURL:       "https://uat.connectips.com/connectipswebgw/loginpage",
		MerchantID:       "M1",
		AppID:            "A1",
		AppName:          "App",
		Username:         "user",
		Password:         "shared-secret",
		CreditorPassword: testPassword,
	}
}

func TestTokenMessage(t *testing.T) {
	tests := []struct {
		name     string
		txn      provider.Transaction
		expected string
	}{
		{
			name:     "minimal transaction defaults currency",
			txn:      provider.Transaction{TxnID: "T1", TxnAmount: "100", ReferenceID: "R1"},
			expected: "MERCHANTID=M1,APPID=A1,APPNAME=App,TXNID=T1,TXNDATE=,TXNCRNCY=NPR,TXNAMT=100,REFERENCEID=R1,REMARKS=,PARTICULARS=,TOKEN=TOKEN",
		},
		{
			name: "all fields",
			txn: provider.Transaction{
				TxnID:       "T2",
				TxnDate:     "19-10-2026",
				TxnCurrency: "USD",
				TxnAmount:   "2500",
				ReferenceID: "REF-9",
				Remarks:     "order 9",
				Particulars: "shoes",
			},
			expected: "MERCHANTID=M1,APPID=A1,APPNAME=App,TXNID=T2,TXNDATE=19-10-2026,TXNCRNCY=USD,TXNAMT=2500,REFERENCEID=REF-9,REMARKS=order 9,PARTICULARS=shoes,TOKEN=TOKEN",
		},
		{
			name:     "blank currency defaults",
			txn:      provider.Transaction{TxnID: "T3", TxnCurrency: "  ", TxnAmount: "1"},
			expected: "MERCHANTID=M1,APPID=A1,APPNAME=App,TXNID=T3,TXNDATE=,TXNCRNCY=NPR,TXNAMT=1,REFERENCEID=,REMARKS=,PARTICULARS=,TOKEN=TOKEN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := TokenMessage(testConfig(), tt.txn)
			assert.Equal(t, tt.expected, msg)
			assert.True(t, strings.HasSuffix(msg, ",TOKEN=TOKEN"))
			assert.False(t, strings.HasSuffix(msg, ","))
		})
	}
}

func TestTokenMessage_FieldOrder(t *testing.T) {
	msg := TokenMessage(testConfig(), provider.Transaction{TxnID: "T1", TxnAmount: "100"})

	var keys []string
	for _, pair := range strings.Split(msg, ",") {
		keys = append(keys, strings.SplitN(pair, "=", 2)[0])
	}

	assert.Equal(t, []string{
		"MERCHANTID", "APPID", "APPNAME", "TXNID", "TXNDATE", "TXNCRNCY",
		"TXNAMT", "REFERENCEID", "REMARKS", "PARTICULARS", "TOKEN",
	}, keys)
}

func TestValidationMessage(t *testing.T) {
	msg := ValidationMessage(testConfig(), "T1", "100")

	assert.Equal(t, "MERCHANTID=M1,APPID=A1,REFERENCEID=T1,TXNAMT=100", msg)
	for _, absent := range []string{"APPNAME", "TXNDATE", "TXNCRNCY", "REMARKS", "PARTICULARS", "TOKEN"} {
		assert.NotContains(t, msg, absent)
	}
}
