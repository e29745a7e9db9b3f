package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeHasChildren is used when deleting a category that still has children
	ErrCodeHasChildren = "ERR_HAS_CHILDREN"
	// ErrCodeHasProducts is used when deleting a category that products reference
	ErrCodeHasProducts = "ERR_HAS_PRODUCTS"
	// ErrCodeCircularReference is used when a move would create a cycle
	ErrCodeCircularReference = "ERR_CIRCULAR_REFERENCE"
	// ErrCodeMaxDepthExceeded is used when a category would exceed the depth limit
	ErrCodeMaxDepthExceeded = "ERR_MAX_DEPTH_EXCEEDED"
	// ErrCodeSyncDisabled is used when synchronization is off for the target pair
	ErrCodeSyncDisabled = "ERR_SYNC_DISABLED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:      http.StatusUnprocessableEntity,
	ErrCodeHasChildren:       http.StatusUnprocessableEntity,
	ErrCodeHasProducts:       http.StatusUnprocessableEntity,
	ErrCodeCircularReference: http.StatusUnprocessableEntity,
	ErrCodeMaxDepthExceeded:  http.StatusUnprocessableEntity,
	ErrCodeSyncDisabled:      http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps domain error codes to the standardized codes
// used on the wire. Domain errors keep their short codes; handlers
// normalize before responding.
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"HAS_CHILDREN":         ErrCodeHasChildren,
	"HAS_PRODUCTS":         ErrCodeHasProducts,
	"CIRCULAR_REFERENCE":   ErrCodeCircularReference,
	"MAX_DEPTH_EXCEEDED":   ErrCodeMaxDepthExceeded,
	"INVALID_PARENT":       ErrCodeInvalidInput,
	"INVALID_CATEGORY":     ErrCodeInvalidInput,
	"INVALID_CODE":         ErrCodeInvalidInput,
	"INVALID_NAME":         ErrCodeInvalidInput,
	"INVALID_PRICE":        ErrCodeInvalidInput,
	"INVALID_PRIMARY":      ErrCodeInvalidInput,
	"ALREADY_ACTIVE":       ErrCodeInvalidState,
	"ALREADY_INACTIVE":     ErrCodeInvalidState,
	"SYNC_DISABLED":        ErrCodeSyncDisabled,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
