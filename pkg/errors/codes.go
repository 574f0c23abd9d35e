package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes
const (
	ErrCodeInternal              ErrorCode = "COMMON_001"
	ErrCodeBadRequest            ErrorCode = "COMMON_002"
	ErrCodeUnauthorized          ErrorCode = "COMMON_003"
	ErrCodeForbidden             ErrorCode = "COMMON_004"
	ErrCodeNotFound              ErrorCode = "COMMON_005"
	ErrCodeConflict              ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests       ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable    ErrorCode = "COMMON_008"
	ErrCodeTimeout               ErrorCode = "COMMON_009"
	ErrCodeValidation            ErrorCode = "COMMON_010"
	ErrCodeSerialization         ErrorCode = "COMMON_011"
	ErrCodeDatabaseError         ErrorCode = "COMMON_012"
	ErrCodeCacheError            ErrorCode = "COMMON_013"
	ErrCodeExternalService       ErrorCode = "COMMON_014"
	ErrCodeNotImplemented        ErrorCode = "COMMON_015"
	ErrCodeUnknown               ErrorCode = "COMMON_999"
	ErrCodeDependencyUnavailable ErrorCode = "COMMON_016"

	CodeOK ErrorCode = "OK"
)

// Scoring engine error codes
const (
	ErrCodeScoringInputInvalid ErrorCode = "SCORE_001"
	ErrCodeInsufficientData    ErrorCode = "SCORE_002"
	ErrCodeScoringFailed       ErrorCode = "SCORE_003"
)

// Search / similarity error codes
const (
	ErrCodeSearchFailed       ErrorCode = "SEARCH_001"
	ErrCodeEmptyQuery         ErrorCode = "SEARCH_002"
	ErrCodeIndexingFailed     ErrorCode = "SEARCH_003"
	ErrCodeEmbeddingFailed    ErrorCode = "SEARCH_004"
	ErrCodeVectorStoreFailure ErrorCode = "SEARCH_005"
)

// Forecast pipeline error codes
const (
	ErrCodeArtifactNotFound   ErrorCode = "FORECAST_001"
	ErrCodeTrainingFailed     ErrorCode = "FORECAST_002"
	ErrCodePredictionFailed   ErrorCode = "FORECAST_003"
	ErrCodeArtifactCorrupted  ErrorCode = "FORECAST_004"
	ErrCodeTrainingInProgress ErrorCode = "FORECAST_005"
)

// Market analysis error codes
const (
	ErrCodeTrendAnalysisFailed ErrorCode = "MARKET_001"
	ErrCodeAlertPublishFailed  ErrorCode = "MARKET_002"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:              http.StatusInternalServerError,
	ErrCodeBadRequest:            http.StatusBadRequest,
	ErrCodeUnauthorized:          http.StatusUnauthorized,
	ErrCodeForbidden:             http.StatusForbidden,
	ErrCodeNotFound:              http.StatusNotFound,
	ErrCodeConflict:              http.StatusConflict,
	ErrCodeTooManyRequests:       http.StatusTooManyRequests,
	ErrCodeServiceUnavailable:    http.StatusServiceUnavailable,
	ErrCodeTimeout:               http.StatusGatewayTimeout,
	ErrCodeValidation:            http.StatusUnprocessableEntity,
	ErrCodeSerialization:         http.StatusInternalServerError,
	ErrCodeDatabaseError:         http.StatusInternalServerError,
	ErrCodeCacheError:            http.StatusInternalServerError,
	ErrCodeExternalService:       http.StatusInternalServerError,
	ErrCodeNotImplemented:        http.StatusNotImplemented,
	ErrCodeDependencyUnavailable: http.StatusServiceUnavailable,

	ErrCodeScoringInputInvalid: http.StatusBadRequest,
	ErrCodeInsufficientData:    http.StatusUnprocessableEntity,
	ErrCodeScoringFailed:       http.StatusInternalServerError,

	ErrCodeSearchFailed:       http.StatusInternalServerError,
	ErrCodeEmptyQuery:         http.StatusBadRequest,
	ErrCodeIndexingFailed:     http.StatusInternalServerError,
	ErrCodeEmbeddingFailed:    http.StatusInternalServerError,
	ErrCodeVectorStoreFailure: http.StatusInternalServerError,

	ErrCodeArtifactNotFound:   http.StatusNotFound,
	ErrCodeTrainingFailed:     http.StatusInternalServerError,
	ErrCodePredictionFailed:   http.StatusInternalServerError,
	ErrCodeArtifactCorrupted:  http.StatusInternalServerError,
	ErrCodeTrainingInProgress: http.StatusConflict,

	ErrCodeTrendAnalysisFailed: http.StatusInternalServerError,
	ErrCodeAlertPublishFailed:  http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:              "internal server error",
	ErrCodeBadRequest:            "bad request",
	ErrCodeUnauthorized:          "unauthorized",
	ErrCodeForbidden:             "forbidden",
	ErrCodeNotFound:              "resource not found",
	ErrCodeConflict:              "resource conflict",
	ErrCodeTooManyRequests:       "too many requests",
	ErrCodeServiceUnavailable:    "service unavailable",
	ErrCodeTimeout:               "request timeout",
	ErrCodeValidation:            "validation failed",
	ErrCodeSerialization:         "serialization failed",
	ErrCodeDatabaseError:         "database error",
	ErrCodeCacheError:            "cache error",
	ErrCodeExternalService:       "external service error",
	ErrCodeNotImplemented:        "not implemented",
	ErrCodeDependencyUnavailable: "optional dependency unavailable",

	ErrCodeScoringInputInvalid: "invalid scoring input",
	ErrCodeInsufficientData:    "insufficient data",
	ErrCodeScoringFailed:       "scoring failed",

	ErrCodeSearchFailed:       "search failed",
	ErrCodeEmptyQuery:         "empty search query",
	ErrCodeIndexingFailed:     "product indexing failed",
	ErrCodeEmbeddingFailed:    "embedding generation failed",
	ErrCodeVectorStoreFailure: "vector store operation failed",

	ErrCodeArtifactNotFound:   "forecast artifact not found",
	ErrCodeTrainingFailed:     "model training failed",
	ErrCodePredictionFailed:   "prediction failed",
	ErrCodeArtifactCorrupted:  "forecast artifact corrupted",
	ErrCodeTrainingInProgress: "training already in progress",

	ErrCodeTrendAnalysisFailed: "trend analysis failed",
	ErrCodeAlertPublishFailed:  "failed to publish market alert",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
