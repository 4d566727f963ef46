// Package provider holds the gateway domain: configuration and transaction
// types, the error taxonomy, the outbound HTTP client and the PaymentService
// that ties a credential store to a token engine.
//
// # Core Concepts
//
//   - GatewayConfig: the credentials of one ConnectIPS installation
//   - Transaction: the per-payment fields supplied by the shop
//   - CredentialStore: resolves a configuration and its certificate bundle
//   - TokenEngine: signs tokens and validates transactions (see provider/connectips)
//   - AuditLogger: receives one AuditEntry per gateway operation
//
// # Errors
//
// Every failure carries an ErrorKind from a closed set. Callers test kinds
// with errors.Is against the Err* sentinels or read them with KindOf:
//
//	resp, err := service.GenerateToken(ctx, "APP1", txn)
//	switch {
//	case errors.Is(err, provider.ErrConfigNotFound):
//	    // unknown selector
//	case errors.Is(err, provider.ErrInvalidCertificate):
//	    // the bundle does not unlock with the creditor password
//	}
//
// GatewayError and BadCredentials raised from a response keep the gateway's
// status code and body. Nothing is retried automatically; Retryable reports
// whether a retry could succeed.
//
// # Basic Usage
//
//	engine := connectips.NewEngine(store, connectips.WithTimeout(30*time.Second))
//	service := provider.NewPaymentService(connectips.Name, store, engine, auditLog)
//
//	token, err := service.GenerateToken(ctx, "APP1", provider.Transaction{
//	    TxnID:     "TXN-1",
//	    TxnAmount: "1000",
//	})
//
//	result, err := service.ValidateCallback(ctx, "APP1", provider.OutcomeSuccess, "TXN-1", "1000")
package provider
