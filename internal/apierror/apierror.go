// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// Codes let the storefront tell error kinds apart without parsing messages.
const (
	CodeNotFound          = "not_found"
	CodeInsufficientStock = "insufficient_stock"
	CodeOutOfStock        = "out_of_stock"
	CodePromoInvalida     = "invalid_promo"
	CodePromoAgotada      = "promo_exhausted"
	CodeMalformedItem     = "malformed_cart_item"
	CodeTransactionAbort  = "transaction_aborted"
	CodeNoAutenticado     = "unauthenticated"
	CodeProhibido         = "forbidden"
	CodeValidacion        = "validation"
	CodeConflicto         = "conflict"
	CodeRateLimit         = "rate_limited"
	CodeInterno           = "internal"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
	// Restantes is set for insufficient_stock so the UI can show the allowance.
	Restantes *int `json:"remaining,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

func WithCode(code, msg string) *APIError {
	return &APIError{Detail: msg, Code: code}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Code: CodeValidacion, Fields: fields}
}
