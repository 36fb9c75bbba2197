package dto

import (
	"net/http"
	"strings"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState      = "ERR_INVALID_STATE"
	ErrCodeBusinessRule      = "ERR_BUSINESS_RULE"
	ErrCodePlanLimitExceeded = "ERR_PLAN_LIMIT_EXCEEDED"
)

// Input error codes
const (
	ErrCodeBadRequest    = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput  = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON   = "ERR_INVALID_JSON"
	ErrCodeFileTooLarge  = "ERR_FILE_TOO_LARGE"
	ErrCodeRequestTooBig = "ERR_REQUEST_TOO_LARGE"
)

// Upstream error codes
const (
	ErrCodePaymentProvider = "ERR_PAYMENT_PROVIDER_ERROR"
	ErrCodeBillingDisabled = "ERR_BILLING_DISABLED"
	ErrCodeFinAPI          = "ERR_FINAPI_ERROR"
	ErrCodeFinAPIDown      = "ERR_FINAPI_UNAVAILABLE"
	ErrCodeAnalysisDown    = "ERR_ANALYSIS_UNAVAILABLE"
	ErrCodeAnalysisFailed  = "ERR_ANALYSIS_FAILED"
	ErrCodePDFDown         = "ERR_PDF_UNAVAILABLE"
)

// Rate limiting error codes
const (
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	"ERR_ALREADY_REFERRED":     http.StatusConflict,
	"ERR_CONTACT_IN_USE":       http.StatusConflict,
	"ERR_RECEIPT_BOOKED":       http.StatusConflict,
	"ERR_IMPORTED_TRANSACTION": http.StatusConflict,
	"ERR_IBAN_LOCKED":          http.StatusConflict,
	"ERR_SELF_REFERRAL":        http.StatusConflict,

	ErrCodeInvalidState:              http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:              http.StatusUnprocessableEntity,
	ErrCodePlanLimitExceeded:         http.StatusForbidden,
	"ERR_BANK_CONNECTION_EXPIRED":    http.StatusUnprocessableEntity,
	"ERR_WEB_FORM_PENDING":           http.StatusUnprocessableEntity,
	"ERR_WEB_FORM_FAILED":            http.StatusUnprocessableEntity,
	"ERR_UNKNOWN_WEB_FORM":           http.StatusUnprocessableEntity,
	"ERR_DATEV_SETTINGS_MISSING":     http.StatusUnprocessableEntity,
	"ERR_ELSTER_SETTINGS_MISSING":    http.StatusUnprocessableEntity,
	"ERR_VAT_EXEMPT":                 http.StatusUnprocessableEntity,
	"ERR_NO_BILLING_CUSTOMER":        http.StatusUnprocessableEntity,
	"ERR_NOT_LINKED":                 http.StatusUnprocessableEntity,
	"ERR_NOT_OVERDUE":                http.StatusUnprocessableEntity,
	"ERR_NO_LINE_ITEMS":              http.StatusUnprocessableEntity,
	"ERR_NO_CONDITIONS":              http.StatusUnprocessableEntity,
	"ERR_NO_ACTIONS":                 http.StatusUnprocessableEntity,
	"ERR_SCHEDULE_ENDED":             http.StatusUnprocessableEntity,
	"ERR_CATEGORY_MISMATCH":          http.StatusUnprocessableEntity,
	"ERR_REVERSE_CHARGE_NOT_ALLOWED": http.StatusUnprocessableEntity,
	"ERR_REFERRAL_CODE_EXHAUSTED":    http.StatusServiceUnavailable,

	ErrCodeBadRequest:            http.StatusBadRequest,
	ErrCodeInvalidInput:          http.StatusBadRequest,
	ErrCodeInvalidJSON:           http.StatusBadRequest,
	ErrCodeFileTooLarge:          http.StatusRequestEntityTooLarge,
	ErrCodeRequestTooBig:         http.StatusRequestEntityTooLarge,
	"ERR_EMPTY_FILE":             http.StatusBadRequest,
	"ERR_UNSUPPORTED_FILE_TYPE":  http.StatusUnsupportedMediaType,
	"ERR_IMPORT_FILE_TOO_LARGE":  http.StatusRequestEntityTooLarge,
	"ERR_IMPORT_DUPLICATE_IN_DB": http.StatusConflict,

	ErrCodePaymentProvider: http.StatusBadGateway,
	ErrCodeBillingDisabled: http.StatusServiceUnavailable,
	ErrCodeFinAPI:          http.StatusBadGateway,
	ErrCodeFinAPIDown:      http.StatusServiceUnavailable,
	ErrCodeAnalysisDown:    http.StatusServiceUnavailable,
	ErrCodeAnalysisFailed:  http.StatusBadGateway,
	ErrCodePDFDown:         http.StatusServiceUnavailable,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Codes without an entry fall back by prefix: ERR_INVALID_* is 400 and
// ERR_IMPORT_* is 422. Everything else is 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	switch {
	case strings.HasPrefix(code, "ERR_INVALID_"):
		return http.StatusBadRequest
	case strings.HasPrefix(code, "ERR_IMPORT_"):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps domain codes whose API code is not simply ERR_<code>
var LegacyErrorCodeMapping = map[string]string{
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
	"REQUEST_TOO_LARGE":    ErrCodeRequestTooBig,
	"RATE_LIMIT_EXCEEDED":  ErrCodeRateLimited,
	"TOKEN_EXPIRED":        ErrCodeTokenExpired,
	"INVALID_TOKEN":        ErrCodeTokenInvalid,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
}

// NormalizeErrorCode converts a domain error code to the ERR_ format.
// Codes already in that format are returned as-is.
func NormalizeErrorCode(code string) string {
	if code == "" {
		return ErrCodeUnknown
	}
	if strings.HasPrefix(code, "ERR_") {
		return code
	}
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return "ERR_" + code
}
