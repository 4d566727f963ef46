// Package gocips is a ConnectIPS payment gateway service. It keeps the
// merchant credentials of one or more ConnectIPS installations, signs
// transaction tokens with the creditor certificate and validates
// transactions with the gateway after the payer is redirected back.
//
// # Overview
//
// ConnectIPS authenticates merchants with a password-protected PKCS#12
// bundle (the "creditor certificate"). Every payment needs a token: a
// canonical message signed with the creditor key using RSA PKCS#1 v1.5
// over SHA-256 and encoded as standard base64. GoCIPS hides that work
// behind a small HTTP API so shops never handle the certificate.
//
// # Architecture
//
// The payment flow follows this pattern:
//
//	┌─────────────────┐    ┌─────────────────┐    ┌─────────────────┐
//	│                 │    │                 │    │                 │
//	│   Your Apps     │◄──►│     GoCIPS      │◄──►│   ConnectIPS    │
//	│  (APP1, APP2)   │    │   (Gateway)     │    │    Gateway      │
//	│                 │    │                 │    │                 │
//	└─────────────────┘    └─────────────────┘    └─────────────────┘
//
//  1. The shop asks GoCIPS for a token (POST /v1/cips-payment/generate-token).
//  2. The payer's browser posts the returned form to the ConnectIPS login page.
//  3. ConnectIPS redirects the payer to the success or failure URL.
//  4. GoCIPS validates the transaction with the gateway and reports the result.
//
// # Configurations
//
// Each installation is stored under a selector (the tenant ID). Requests pick
// one with a tenant-bound JWT, the X-Tenant-ID header or CIPS_DEFAULT_TENANT.
// A request that names no configuration is refused; GoCIPS never guesses.
//
//	POST /v1/cips
//	Authorization: Bearer <API_KEY>
//
//	{
//	  "tenant_id": "APP1",
//	  "gateway_url": "https://uat.connectips.com/connectipswebgw/loginpage",
//	  "merchant_id": "123",
//	  "app_id": "MER-123-APP-1",
//	  "app_name": "Shop",
//	  "validation_url": "https://uat.connectips.com/connectipswebws/api/creditor/validatetxn",
//	  "username": "MER-123-APP-1",
//	  "password": "...",
//	  "creditor_password": "..."
//	}
//
// The certificate is uploaded separately and must unlock with the stored
// creditor password:
//
//	curl -H "Authorization: Bearer $API_KEY" -H "X-Tenant-ID: APP1" \
//	     -F file=@CREDITOR.pfx http://localhost:9999/v1/cips-payment/upload
//
// # Storage
//
// Configurations live in SQLite by default or PostgreSQL (STORAGE_DRIVER).
// Certificate bundles are files under CERT_DIR, replaced atomically.
//
// # Observability
//
//   - Structured console logs, optionally shipped to OpenSearch
//   - An OpenSearch audit entry for every token and validation
//   - Prometheus metrics on /metrics
//   - GET /health reporting storage, disk and audit log state
//
// # Configuration
//
//	APP_PORT=9999
//	API_KEY=change-me
//	STORAGE_DRIVER=sqlite
//	SQLITE_PATH=./data/gocips.db
//	CERT_DIR=./data/certs
//	CIPS_DEFAULT_TENANT=
//	CIPS_VALIDATION_TIMEOUT=30s
//	ENABLE_OPENSEARCH_LOGGING=false
//	JWT_SECRET=
package gocips
