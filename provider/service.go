package provider

import (
	"context"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mstgnz/gocips/infra/logger"
	"github.com/mstgnz/gocips/infra/metrics"
)

// PaymentService resolves credentials and runs gateway operations through the
// token engine. Every operation is measured and audited.
type PaymentService struct {
	name   string
	store  CredentialStore
	engine TokenEngine
	audit  AuditLogger
}

// NewPaymentService creates a new payment service; a nil audit logger discards entries
func NewPaymentService(name string, store CredentialStore, engine TokenEngine, audit AuditLogger) *PaymentService {
	if audit == nil {
		audit = NopAuditLogger{}
	}
	return &PaymentService{
		name:   name,
		store:  store,
		engine: engine,
		audit:  audit,
	}
}

// GenerateToken signs txn with the credentials of selector and returns the
// token together with the hosted payment form
func (s *PaymentService) GenerateToken(ctx context.Context, selector string, txn Transaction) (*TokenResponse, error) {
	start := time.Now()
	txn = txn.WithDefaults()

	resp, err := s.generateToken(ctx, selector, txn)

	s.record(ctx, AuditEntry{
		TenantID:  selector,
		Operation: OperationGenerateToken,
		TxnID:     txn.TxnID,
		TxnAmt:    txn.TxnAmount,
	}, start, err)

	return resp, err
}

func (s *PaymentService) generateToken(ctx context.Context, selector string, txn Transaction) (*TokenResponse, error) {
	cfg, err := s.store.LoadConfig(ctx, selector)
	if err != nil {
		return nil, err
	}

	token, err := s.engine.GenerateTransactionToken(ctx, cfg, txn)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		Token: token,
		Form:  s.engine.BuildPaymentForm(cfg, txn, token),
	}, nil
}

// ValidateCallback asks the gateway for the state of a transaction after the
// payer was redirected to the success or failure URL. The outcome only says
// which URL was hit; the gateway's answer is authoritative.
func (s *PaymentService) ValidateCallback(ctx context.Context, selector, outcome, txnID, txnAmt string) (*CallbackResult, error) {
	start := time.Now()
	txnID = strings.TrimSpace(txnID)
	txnAmt = strings.TrimSpace(txnAmt)

	result, err := s.validate(ctx, selector, txnID, txnAmt)

	entry := AuditEntry{
		TenantID:  selector,
		Operation: OperationValidateTransaction,
		TxnID:     txnID,
		TxnAmt:    txnAmt,
		Outcome:   outcome,
	}
	if err != nil {
		s.record(ctx, entry, start, err)
		return nil, err
	}

	entry.Status = result.Status()
	s.record(ctx, entry, start, nil)

	return &CallbackResult{
		Outcome: outcome,
		TxnID:   txnID,
		TxnAmt:  txnAmt,
		Status:  result.Status(),
		Result:  result,
	}, nil
}

func (s *PaymentService) validate(ctx context.Context, selector, txnID, txnAmt string) (ValidationResult, error) {
	if txnID == "" || txnAmt == "" {
		var missing []string
		if txnID == "" {
			missing = append(missing, "TXNID")
		}
		if txnAmt == "" {
			missing = append(missing, "TXNAMT")
		}
		return nil, Errorf(KindMissingRequiredField, "missing required fields: %s", strings.Join(missing, ", "))
	}

	cfg, err := s.store.LoadConfig(ctx, selector)
	if err != nil {
		return nil, err
	}
	return s.engine.ValidateTransaction(ctx, cfg, txnID, txnAmt)
}

// record writes metrics and the audit entry; audit failures are logged only
func (s *PaymentService) record(ctx context.Context, entry AuditEntry, start time.Time, opErr error) {
	elapsed := time.Since(start)

	entry.Timestamp = start.UTC()
	entry.Provider = s.name
	entry.RequestID = middleware.GetReqID(ctx)
	entry.DurationMs = elapsed.Milliseconds()
	entry.Success = opErr == nil

	result := "ok"
	if opErr != nil {
		kind := KindOf(opErr)
		if kind == "" {
			kind = "UNKNOWN"
		}
		result = string(kind)
		entry.ErrorKind = string(kind)
		entry.ErrorMessage = opErr.Error()
	}
	metrics.ObserveOperation(entry.Operation, result, elapsed)

	logCtx := logger.LogContext{
		TenantID:  entry.TenantID,
		Provider:  s.name,
		TxnID:     entry.TxnID,
		RequestID: entry.RequestID,
		Fields: map[string]any{
			"operation":   entry.Operation,
			"duration_ms": entry.DurationMs,
		},
	}
	switch {
	case opErr == nil:
		logger.Info("Gateway operation completed", logCtx)
	case IsConfigurationError(opErr):
		logger.Warn("Gateway operation rejected: "+opErr.Error(), logCtx)
	default:
		logger.Error("Gateway operation failed", opErr, logCtx)
	}

	// audit entries are written even when the caller has gone away
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.audit.LogGatewayEvent(auditCtx, entry); err != nil {
		logger.Warn("Failed to write audit entry", logger.LogContext{
			TenantID: entry.TenantID,
			Provider: s.name,
			Fields: map[string]any{
				"operation": entry.Operation,
				"error":     err.Error(),
			},
		})
	}
}
