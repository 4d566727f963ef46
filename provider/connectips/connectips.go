package connectips

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mstgnz/gocips/provider"
)

const (
	// Name is the gateway identifier used in logs, metrics and audit entries
	Name = "connectips"

	// DefaultRejectionMarker is the text ConnectIPS puts in a 2xx body when basic auth is refused
	DefaultRejectionMarker = "Bad credentials"

	defaultTimeout = 30 * time.Second
)

// CertificateLoader returns the raw certificate bundle of a configuration
type CertificateLoader interface {
	LoadCertificate(ctx context.Context, cfg *provider.GatewayConfig) ([]byte, error)
}

// Engine produces ConnectIPS transaction tokens and validates transactions.
// It keeps no per-call state; every call loads the certificate afresh.
type Engine struct {
	certs           CertificateLoader
	client          *provider.ProviderHTTPClient
	rejectionMarker string
}

// Option configures an Engine
type Option func(*Engine)

// WithHTTPClient overrides the client used for validation calls
func WithHTTPClient(client *provider.ProviderHTTPClient) Option {
	return func(e *Engine) {
		e.client = client
	}
}

// WithTimeout bounds validation calls
func WithTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		e.client = provider.NewProviderHTTPClient(provider.CreateHTTPClientConfig("", true, timeout))
	}
}

// WithRejectionMarker overrides the credentials-rejection marker
func WithRejectionMarker(marker string) Option {
	return func(e *Engine) {
		if strings.TrimSpace(marker) != "" {
			e.rejectionMarker = marker
		}
	}
}

// NewEngine creates a new ConnectIPS engine
func NewEngine(certs CertificateLoader, opts ...Option) *Engine {
	e := &Engine{
		certs:           certs,
		rejectionMarker: DefaultRejectionMarker,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		e.client = provider.NewProviderHTTPClient(provider.CreateHTTPClientConfig("", true, defaultTimeout))
	}
	return e
}

// GenerateTransactionToken signs the token message of txn and returns it base64 encoded
func (e *Engine) GenerateTransactionToken(ctx context.Context, cfg *provider.GatewayConfig, txn provider.Transaction) (string, error) {
	if err := requireFields(
		"merchant_id", cfg.MerchantID,
		"app_id", cfg.AppID,
		"app_name", cfg.AppName,
		"creditor_password", cfg.CreditorPassword,
		"TXNID", txn.TxnID,
		"TXNAMT", txn.TxnAmount,
	); err != nil {
		return "", err
	}

	bundle, err := e.loadBundle(ctx, cfg)
	if err != nil {
		return "", err
	}

	signature, err := SignMessage(TokenMessage(cfg, txn), bundle, cfg.CreditorPassword)
	if err != nil {
		return "", err
	}
	return EncodeToken(signature), nil
}

// validationRequest is the JSON body posted to the validation endpoint
type validationRequest struct {
	MerchantID  string `json:"merchantId"`
	AppID       string `json:"appId"`
	ReferenceID string `json:"referenceId"`
	TxnAmt      string `json:"txnAmt"`
	Token       string `json:"token"`
}

// ValidateTransaction asks the gateway for the outcome of txnID. The request is
// signed with the creditor certificate and authenticated with (app_id, password).
func (e *Engine) ValidateTransaction(ctx context.Context, cfg *provider.GatewayConfig, txnID, txnAmt string) (provider.ValidationResult, error) {
	if err := requireFields(
		"merchant_id", cfg.MerchantID,
		"app_id", cfg.AppID,
		"validation_url", cfg.ValidationURL,
		"creditor_password", cfg.CreditorPassword,
		"TXNID", txnID,
		"TXNAMT", txnAmt,
	); err != nil {
		return nil, err
	}

	bundle, err := e.loadBundle(ctx, cfg)
	if err != nil {
		return nil, err
	}

	signature, err := SignMessage(ValidationMessage(cfg, txnID, txnAmt), bundle, cfg.CreditorPassword)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.SendJSON(ctx, &provider.HTTPRequest{
		Method:   http.MethodPost,
		Endpoint: cfg.ValidationURL,
		Body: validationRequest{
			MerchantID:  cfg.MerchantID,
			AppID:       cfg.AppID,
			ReferenceID: txnID,
			TxnAmt:      txnAmt,
			Token:       EncodeToken(signature),
		},
		BasicAuth: &provider.BasicAuth{Username: cfg.AppID, Password: cfg.Password},
	})
	if err != nil {
		if provider.KindOf(err) != "" {
			return nil, err
		}
		return nil, provider.NewError(provider.KindInvalidConfig, "failed to build validation request", err)
	}

	return e.interpret(resp)
}

func (e *Engine) interpret(resp *provider.HTTPResponse) (provider.ValidationResult, error) {
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &provider.Error{
			Kind:       provider.KindBadCredentials,
			Message:    "gateway rejected app credentials",
			StatusCode: resp.StatusCode,
			Body:       resp.RawBody,
		}
	}
	if !resp.IsSuccess() {
		return nil, provider.GatewayErr(resp.StatusCode, resp.RawBody)
	}

	var result provider.ValidationResult
	if err := json.Unmarshal(resp.Body, &result); err != nil || result == nil {
		gwErr := provider.GatewayErr(resp.StatusCode, resp.RawBody)
		gwErr.Message = "gateway returned a non-JSON validation response"
		gwErr.Err = err
		return nil, gwErr
	}

	if body, ok := result["body"].(string); ok && containsFold(body, e.rejectionMarker) {
		return nil, &provider.Error{
			Kind:       provider.KindBadCredentials,
			Message:    "gateway rejected app credentials",
			StatusCode: resp.StatusCode,
			Body:       resp.RawBody,
		}
	}

	return result, nil
}

// BuildPaymentForm returns the fields the payer's browser posts to the hosted payment page
func (e *Engine) BuildPaymentForm(cfg *provider.GatewayConfig, txn provider.Transaction, token string) provider.PaymentForm {
	fields := tokenFields(cfg, txn)
	form := provider.PaymentForm{
		GatewayURL: cfg.GatewayURL,
		Fields:     make(map[string]string, len(fields)+1),
		Order:      make([]string, 0, len(fields)+1),
	}
	for _, f := range append(fields, field{"TOKEN", token}) {
		form.Fields[f.key] = f.value
		form.Order = append(form.Order, f.key)
	}
	return form
}

// loadBundle keeps CertificateNotFound distinct from other read faults
func (e *Engine) loadBundle(ctx context.Context, cfg *provider.GatewayConfig) ([]byte, error) {
	if e.certs == nil {
		return nil, provider.Errorf(provider.KindCertificateNotFound, "no certificate source configured")
	}

	bundle, err := e.certs.LoadCertificate(ctx, cfg)
	if err != nil {
		var gwErr *provider.Error
		if errors.As(err, &gwErr) {
			return nil, err
		}
		return nil, provider.NewError(provider.KindTokenGenerationFailed, "failed to read certificate bundle", err)
	}
	if len(bundle) == 0 {
		return nil, provider.Errorf(provider.KindCertificateNotFound, "certificate bundle is empty")
	}
	return bundle, nil
}

func requireFields(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) > 0 {
		return provider.Errorf(provider.KindMissingRequiredField, "missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
