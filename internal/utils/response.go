package utils

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Stable machine-readable error codes carried in every error response body.
// Clients and the security monitor key off these, so they are part of the
// public contract and must not be renamed.
const (
	ErrCodeNoToken            = "NO_TOKEN"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeBlacklistedToken   = "BLACKLISTED_TOKEN"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeAccountSuspended   = "ACCOUNT_SUSPENDED"
	ErrCodeSessionViolation   = "SESSION_VIOLATION"
	ErrCodeSessionExpired     = "SESSION_EXPIRED"
	ErrCodeCSRFTokenMissing   = "CSRF_TOKEN_MISSING"
	ErrCodeCSRFTokenInvalid   = "CSRF_TOKEN_INVALID"
	ErrCodeCSRFDoubleSubmit   = "CSRF_DOUBLE_SUBMIT_FAILED"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrCodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	ErrCodeIPBlocked          = "IP_BLOCKED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeInvalidPayload     = "INVALID_PAYLOAD"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// ErrorResponse carries an optional `Details` field for additional info
// (such as a retry-after hint on rate-limit rejections).
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// RespondErrorWithCode builds a JSON error response with a standard
// code and message. The optional `details` is included if non-nil.
// Internal errors go to the log only; the response body never carries
// stack traces, filenames or wrapped error text.
func RespondErrorWithCode(
	w http.ResponseWriter,
	status int,
	errorCode string,
	publicMessage string,
	details any,
	devErrs ...error,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errBody := ErrorResponse{
		Code:    errorCode,
		Message: publicMessage,
	}
	if details != nil {
		errBody.Details = details
	}
	_ = json.NewEncoder(w).Encode(errBody)

	if len(devErrs) > 0 && devErrs[0] != nil {
		Logger.WithFields(logrus.Fields{
			"status": status,
			"code":   errorCode,
			"error":  devErrs[0].Error(),
		}).Error(publicMessage)
	}
}

// RespondWithJSON for successful cases
func RespondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
