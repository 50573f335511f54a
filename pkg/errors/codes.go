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

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeIO                 ErrorCode = "COMMON_017"
)

// Reaction-network Error Codes
const (
	ErrCodeEdgeFileMalformed     ErrorCode = "CRN_001"
	ErrCodeCompoundFileMalformed ErrorCode = "CRN_002"
	ErrCodeCompoundMissing       ErrorCode = "CRN_003"
	ErrCodeCompoundInvalid       ErrorCode = "CRN_004"
	ErrCodeDuplicateLabel        ErrorCode = "CRN_005"
	ErrCodeSourceUnavailable     ErrorCode = "CRN_006"
	ErrCodeCacheMiss             ErrorCode = "CRN_007"
	ErrCodeRenderFailed          ErrorCode = "CRN_008"
	ErrCodeUnknownLayout         ErrorCode = "CRN_009"
	ErrCodePublishFailed         ErrorCode = "CRN_010"
)

// Short aliases used at call sites.
const (
	CodeOK       = ErrorCode("OK")
	CodeUnknown  = ErrorCode("UNKNOWN")
	CodeInternal = ErrCodeInternal
	// CodeInvalidParam covers bad CLI flags and configuration values.
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeIO           = ErrCodeIO

	CodeEdgeFileMalformed     = ErrCodeEdgeFileMalformed
	CodeCompoundFileMalformed = ErrCodeCompoundFileMalformed
	CodeCompoundMissing       = ErrCodeCompoundMissing
	CodeCompoundInvalid       = ErrCodeCompoundInvalid
	CodeDuplicateLabel        = ErrCodeDuplicateLabel
	CodeSourceUnavailable     = ErrCodeSourceUnavailable
	CodeCacheMiss             = ErrCodeCacheMiss
	CodeRenderFailed          = ErrCodeRenderFailed
	CodeUnknownLayout         = ErrCodeUnknownLayout
	CodePublishFailed         = ErrCodePublishFailed
)

// ErrorCodeHTTPStatus maps codes to the status returned by the preview server.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeIO:                 http.StatusInternalServerError,

	ErrCodeEdgeFileMalformed:     http.StatusUnprocessableEntity,
	ErrCodeCompoundFileMalformed: http.StatusUnprocessableEntity,
	ErrCodeCompoundMissing:       http.StatusUnprocessableEntity,
	ErrCodeCompoundInvalid:       http.StatusUnprocessableEntity,
	ErrCodeDuplicateLabel:        http.StatusUnprocessableEntity,
	ErrCodeSourceUnavailable:     http.StatusServiceUnavailable,
	ErrCodeCacheMiss:             http.StatusNotFound,
	ErrCodeRenderFailed:          http.StatusInternalServerError,
	ErrCodeUnknownLayout:         http.StatusBadRequest,
	ErrCodePublishFailed:         http.StatusBadGateway,
}

// ErrorCodeMessage holds the default message per code.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "invalid parameter",
	ErrCodeNotFound:           "not found",
	ErrCodeConflict:           "conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeIO:                 "i/o error",

	ErrCodeEdgeFileMalformed:     "edge file malformed",
	ErrCodeCompoundFileMalformed: "compound file malformed",
	ErrCodeCompoundMissing:       "compound record missing",
	ErrCodeCompoundInvalid:       "compound record invalid",
	ErrCodeDuplicateLabel:        "duplicate display label",
	ErrCodeSourceUnavailable:     "extraction source unavailable",
	ErrCodeCacheMiss:             "pathfinder cache miss",
	ErrCodeRenderFailed:          "render failed",
	ErrCodeUnknownLayout:         "unknown layout",
	ErrCodePublishFailed:         "publish failed",
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
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
