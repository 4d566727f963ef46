package provider

import (
	"context"
	"strings"
	"time"
)

// DefaultCurrency is used when a transaction does not carry TXNCRNCY
const DefaultCurrency = "NPR"

// Callback outcomes, decided by which callback URL the gateway redirected the payer to
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// GatewayConfig holds the ConnectIPS credentials of one installation
type GatewayConfig struct {
	ID                   int64     `json:"id,omitempty"`
	TenantID             string    `json:"tenant_id"`
	GatewayURL           string    `json:"gateway_url"`
	MerchantID           string    `json:"merchant_id"`
	AppID                string    `json:"app_id"`
	AppName              string    `json:"app_name"`
	ValidationURL        string    `json:"validation_url"`
	Username             string    `json:"username"`
	Password             string    `json:"password"`
	CreditorPassword     string    `json:"creditor_password"`
	CertificateReference string    `json:"certificate_reference,omitempty"`
	CreatedAt            time.Time `json:"created_at,omitempty"`
	UpdatedAt            time.Time `json:"updated_at,omitempty"`
}

// PublicView returns the fields that are safe to hand to a payer-facing client
func (c GatewayConfig) PublicView() map[string]string {
	return map[string]string{
		"gateway_url": c.GatewayURL,
		"merchant_id": c.MerchantID,
		"app_id":      c.AppID,
		"app_name":    c.AppName,
	}
}

// Masked returns a copy with secrets masked for dashboards
func (c GatewayConfig) Masked() GatewayConfig {
	c.Password = maskSecret(c.Password)
	c.CreditorPassword = maskSecret(c.CreditorPassword)
	return c
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) > 8 {
		return value[:2] + "****" + value[len(value)-2:]
	}
	return "****"
}

// ConfigPatch carries a partial update; nil fields are left unchanged
type ConfigPatch struct {
	GatewayURL       *string `json:"gateway_url,omitempty"`
	MerchantID       *string `json:"merchant_id,omitempty"`
	AppID            *string `json:"app_id,omitempty"`
	AppName          *string `json:"app_name,omitempty"`
	ValidationURL    *string `json:"validation_url,omitempty"`
	Username         *string `json:"username,omitempty"`
	Password         *string `json:"password,omitempty"`
	CreditorPassword *string `json:"creditor_password,omitempty"`
}

// Apply copies every non-nil field of the patch onto cfg
func (p ConfigPatch) Apply(cfg *GatewayConfig) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&cfg.GatewayURL, p.GatewayURL)
	set(&cfg.MerchantID, p.MerchantID)
	set(&cfg.AppID, p.AppID)
	set(&cfg.AppName, p.AppName)
	set(&cfg.ValidationURL, p.ValidationURL)
	set(&cfg.Username, p.Username)
	set(&cfg.Password, p.Password)
	set(&cfg.CreditorPassword, p.CreditorPassword)
}

// Transaction contains the per-payment fields supplied by the caller
type Transaction struct {
	TxnID       string `json:"TXNID" validate:"required,max=20"`
	TxnDate     string `json:"TXNDATE,omitempty"`
	TxnCurrency string `json:"TXNCRNCY,omitempty"`
	TxnAmount   string `json:"TXNAMT" validate:"required,paisa"`
	ReferenceID string `json:"REFERENCEID,omitempty"`
	Remarks     string `json:"REMARKS,omitempty"`
	Particulars string `json:"PARTICULARS,omitempty"`
}

// WithDefaults fills in protocol defaults for omitted fields
func (t Transaction) WithDefaults() Transaction {
	if strings.TrimSpace(t.TxnCurrency) == "" {
		t.TxnCurrency = DefaultCurrency
	}
	return t
}

// ValidationResult is the JSON document returned by the gateway's validation endpoint
type ValidationResult map[string]any

// Status returns the gateway's transaction status field, if present
func (r ValidationResult) Status() string {
	if v, ok := r["status"].(string); ok {
		return v
	}
	return ""
}

// PaymentForm is what the payer's browser posts to the hosted payment page
type PaymentForm struct {
	GatewayURL string            `json:"gateway_url"`
	Fields     map[string]string `json:"fields"`
	Order      []string          `json:"order"`
}

// TokenResponse is returned by the token generation flow
type TokenResponse struct {
	Token string      `json:"TOKEN"`
	Form  PaymentForm `json:"form"`
}

// CallbackResult is returned by the success and failure callback flows
type CallbackResult struct {
	Outcome string           `json:"outcome"`
	TxnID   string           `json:"txn_id"`
	TxnAmt  string           `json:"txn_amt"`
	Status  string           `json:"status,omitempty"`
	Result  ValidationResult `json:"result"`
}

// CredentialStore resolves gateway credentials and certificate bundles.
// Implementations must replace certificate files atomically.
type CredentialStore interface {
	// LoadConfig resolves exactly one configuration for the selector
	LoadConfig(ctx context.Context, selector string) (*GatewayConfig, error)

	// LoadCertificate returns the raw password-protected bundle of the config
	LoadCertificate(ctx context.Context, cfg *GatewayConfig) ([]byte, error)
}

// TokenEngine is the signed-token side of a gateway integration
type TokenEngine interface {
	GenerateTransactionToken(ctx context.Context, cfg *GatewayConfig, txn Transaction) (string, error)
	ValidateTransaction(ctx context.Context, cfg *GatewayConfig, txnID, txnAmt string) (ValidationResult, error)
	BuildPaymentForm(cfg *GatewayConfig, txn Transaction, token string) PaymentForm
}

// Audited operations
const (
	OperationGenerateToken       = "generate_token"
	OperationValidateTransaction = "validate_transaction"
)

// AuditEntry records one gateway operation. It never carries secrets or tokens.
type AuditEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	TenantID     string    `json:"tenant_id"`
	Provider     string    `json:"provider"`
	Operation    string    `json:"operation"`
	RequestID    string    `json:"request_id,omitempty"`
	TxnID        string    `json:"txn_id,omitempty"`
	TxnAmt       string    `json:"txn_amt,omitempty"`
	Outcome      string    `json:"outcome,omitempty"`
	Status       string    `json:"status,omitempty"`
	Success      bool      `json:"success"`
	DurationMs   int64     `json:"duration_ms"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// AuditLogger stores audit entries
type AuditLogger interface {
	LogGatewayEvent(ctx context.Context, entry AuditEntry) error
}

// NopAuditLogger discards audit entries
type NopAuditLogger struct{}

func (NopAuditLogger) LogGatewayEvent(context.Context, AuditEntry) error {
	return nil
}
