package connectips

import (
	"strings"

	"github.com/mstgnz/gocips/provider"
)

// field is one KEY=value pair of a canonical message
type field struct {
	key   string
	value string
}

func join(fields []field) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(f.value)
	}
	return b.String()
}

func tokenFields(cfg *provider.GatewayConfig, txn provider.Transaction) []field {
	txn = txn.WithDefaults()
	return []field{
		{"MERCHANTID", cfg.MerchantID},
		{"APPID", cfg.AppID},
		{"APPNAME", cfg.AppName},
		{"TXNID", txn.TxnID},
		{"TXNDATE", txn.TxnDate},
		{"TXNCRNCY", txn.TxnCurrency},
		{"TXNAMT", txn.TxnAmount},
		{"REFERENCEID", txn.ReferenceID},
		{"REMARKS", txn.Remarks},
		{"PARTICULARS", txn.Particulars},
	}
}

// TokenMessage builds the message signed before redirecting a payer.
// The trailing TOKEN=TOKEN placeholder is part of the gateway contract.
func TokenMessage(cfg *provider.GatewayConfig, txn provider.Transaction) string {
	return join(append(tokenFields(cfg, txn), field{"TOKEN", "TOKEN"}))
}

// ValidationMessage builds the message signed for a transaction validation request
func ValidationMessage(cfg *provider.GatewayConfig, txnID, txnAmt string) string {
	return join([]field{
		{"MERCHANTID", cfg.MerchantID},
		{"APPID", cfg.AppID},
		{"REFERENCEID", txnID},
		{"TXNAMT", txnAmt},
	})
}
