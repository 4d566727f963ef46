package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/gocips/infra/logger"
	"github.com/mstgnz/gocips/infra/response"
	"github.com/mstgnz/gocips/provider"
)

// KindInvalidRequest marks request bodies that fail format rules
const KindInvalidRequest = "INVALID_REQUEST"

// statusFor maps an error kind to the HTTP status returned to the caller
func statusFor(err error) int {
	switch provider.KindOf(err) {
	case provider.KindConfigNotFound, provider.KindCertificateNotFound:
		return http.StatusNotFound
	case provider.KindMissingRequiredField, provider.KindInvalidConfig:
		return http.StatusBadRequest
	case provider.KindConfigExists:
		return http.StatusConflict
	case provider.KindInvalidCertificate:
		return http.StatusUnprocessableEntity
	case provider.KindBadCredentials, provider.KindGatewayError:
		return http.StatusBadGateway
	case provider.KindGatewayUnreachable:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// writeError writes err with the status and kind it maps to. Errors without a
// kind are logged and reported without detail.
func writeError(w http.ResponseWriter, message string, err error) {
	kind := provider.KindOf(err)
	if kind == "" {
		logger.Error(message, err)
		response.Error(w, http.StatusInternalServerError, message, errors.New("internal error"))
		return
	}

	var gwErr *provider.Error
	errors.As(err, &gwErr)
	detail := gwErr.Message
	if detail == "" {
		detail = string(kind)
	}

	resp := response.Response{
		Code:    statusFor(err),
		Success: false,
		Message: message,
		Kind:    string(kind),
		Error:   detail,
	}
	if gwErr.StatusCode != 0 {
		resp.Data = map[string]any{
			"gateway_status": gwErr.StatusCode,
			"gateway_body":   gwErr.Body,
		}
	}
	response.WriteJSON(w, resp.Code, resp)
}

// writeValidationError reports validator failures; missing required fields keep their own kind
func writeValidationError(w http.ResponseWriter, err error) {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		response.ErrorWithKind(w, http.StatusBadRequest, "Validation error", KindInvalidRequest, err)
		return
	}

	var missing, invalid []string
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		} else {
			invalid = append(invalid, fe.Field()+" ("+fe.Tag()+")")
		}
	}

	if len(missing) > 0 {
		writeError(w, "Validation error", provider.Errorf(provider.KindMissingRequiredField,
			"missing required fields: %s", strings.Join(missing, ", ")))
		return
	}
	response.ErrorWithKind(w, http.StatusBadRequest, "Validation error", KindInvalidRequest,
		errors.New("invalid fields: "+strings.Join(invalid, ", ")))
}
