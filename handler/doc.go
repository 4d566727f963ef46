// Package handler provides the HTTP handlers of the gateway API.
//
// # Core Handlers
//
//   - PaymentHandler: token generation and the success/failure callbacks
//   - ConfigHandler: configuration admin and certificate upload
//   - AuthHandler: tenant-bound JWT issue, refresh and inspection
//   - LogsHandler: audit log queries (only when OpenSearch is enabled)
//   - HealthHandler: storage, disk and audit log health
//   - TenantRateLimitHandler: current request budgets of a tenant
//
// # Errors
//
// Errors carrying a provider.ErrorKind are reported with that kind and a
// matching status:
//
//	CONFIG_NOT_FOUND, CERTIFICATE_NOT_FOUND   404
//	MISSING_REQUIRED_FIELD, INVALID_CONFIG    400
//	CONFIG_EXISTS                             409
//	INVALID_CERTIFICATE                       422
//	BAD_CREDENTIALS, GATEWAY_ERROR            502
//	GATEWAY_UNREACHABLE                       504
//
// Anything else is a 500 without detail. Gateway responses are passed back in
// the data field:
//
//	{
//	  "code": 502,
//	  "success": false,
//	  "message": "Transaction validation failed",
//	  "kind": "GATEWAY_ERROR",
//	  "error": "gateway responded with HTTP 500",
//	  "data": {"gateway_status": 500, "gateway_body": "..."}
//	}
package handler
