package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents categorized error types.
// These codes are stable and can be used for programmatic error handling.
type ErrorCode string

const (
	ErrCodeEnvelopeNotFound     ErrorCode = "envelope_not_found"
	ErrCodeDataNotFound         ErrorCode = "data_not_found"
	ErrCodeSignatureMissing     ErrorCode = "signature_missing"
	ErrCodeUnsupportedEncoding  ErrorCode = "unsupported_encoding"
	ErrCodeUnsupportedAlgorithm ErrorCode = "unsupported_algorithm"
	ErrCodeEncoding             ErrorCode = "encoding_error"
	ErrCodeKeyFormat            ErrorCode = "key_format"
	ErrCodeKeyTooSmall          ErrorCode = "key_too_small"
	ErrCodeVerification         ErrorCode = "verification_error"
	ErrCodeKeyUnavailable       ErrorCode = "key_unavailable"
	ErrCodeFeedNotFound         ErrorCode = "feed_not_found"
	ErrCodeBadRequest           ErrorCode = "bad_request"
	ErrCodeServiceError         ErrorCode = "service_error"
)

// String returns the error code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// AppError is a structured error with code, message, and optional cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil && e.Message != "" {
		return e.Message + ": " + e.Cause.Error()
	}
	if e.Message == "" {
		return e.Code.String()
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError with the same code, so the
// package-level sentinels below can be used with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks. Only Code is compared.
var (
	ErrEnvelopeNotFound     = &AppError{Code: ErrCodeEnvelopeNotFound}
	ErrDataNotFound         = &AppError{Code: ErrCodeDataNotFound}
	ErrSignatureMissing     = &AppError{Code: ErrCodeSignatureMissing}
	ErrUnsupportedEncoding  = &AppError{Code: ErrCodeUnsupportedEncoding}
	ErrUnsupportedAlgorithm = &AppError{Code: ErrCodeUnsupportedAlgorithm}
	ErrEncoding             = &AppError{Code: ErrCodeEncoding}
	ErrKeyFormat            = &AppError{Code: ErrCodeKeyFormat}
	ErrKeyTooSmall          = &AppError{Code: ErrCodeKeyTooSmall}
	ErrVerification         = &AppError{Code: ErrCodeVerification}
	ErrKeyUnavailable       = &AppError{Code: ErrCodeKeyUnavailable}
	ErrFeedNotFound         = &AppError{Code: ErrCodeFeedNotFound}
	ErrBadRequest           = &AppError{Code: ErrCodeBadRequest}
	ErrServiceError         = &AppError{Code: ErrCodeServiceError}
)

// CodeOf returns the ErrorCode carried by err, or ErrCodeServiceError
// when err is not an AppError. Returns "" for a nil error.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeServiceError
}

// HTTPStatus returns the HTTP status code for this error code.
// Every rejected envelope is reported as 404 so that a forged envelope
// cannot be told apart from a malformed one at the HTTP boundary.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrCodeBadRequest:
		return http.StatusBadRequest
	case ErrCodeServiceError:
		return http.StatusInternalServerError
	default:
		return http.StatusNotFound
	}
}

// Title returns a user-friendly title for this error code.
func (c ErrorCode) Title() string {
	switch c {
	case ErrCodeBadRequest:
		return "Invalid Request"
	case ErrCodeServiceError:
		return "Service Error"
	case ErrCodeFeedNotFound:
		return "Not Found"
	default:
		return "Envelope Rejected"
	}
}

// JSONErrorResponse is the JSON body written for rejected requests.
type JSONErrorResponse struct {
	Error JSONErrorDetail `json:"error"`
}

// JSONErrorDetail contains error details.
type JSONErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewJSONErrorResponse creates a JSON error response from an AppError.
// Only the code title is exposed for service errors.
func NewJSONErrorResponse(err *AppError) JSONErrorResponse {
	message := err.Message
	if err.Code == ErrCodeServiceError {
		message = err.Code.Title()
	}
	return JSONErrorResponse{
		Error: JSONErrorDetail{
			Code:    err.Code.String(),
			Message: message,
		},
	}
}

// EnvelopeNotFoundError reports a document without a Magic Envelope root.
func EnvelopeNotFoundError(message string) *AppError {
	return &AppError{Code: ErrCodeEnvelopeNotFound, Message: message}
}

// DataNotFoundError reports an envelope without a data element.
func DataNotFoundError() *AppError {
	return &AppError{Code: ErrCodeDataNotFound, Message: "envelope has no data element"}
}

// SignatureMissingError reports an envelope without a sig element.
func SignatureMissingError() *AppError {
	return &AppError{Code: ErrCodeSignatureMissing, Message: "envelope has no sig element"}
}

// UnsupportedEncodingError reports a data encoding other than base64url.
func UnsupportedEncodingError(encoding string) *AppError {
	return &AppError{
		Code:    ErrCodeUnsupportedEncoding,
		Message: fmt.Sprintf("unsupported data encoding %q", encoding),
	}
}

// UnsupportedAlgorithmError reports a signature algorithm other than rsa-sha256.
func UnsupportedAlgorithmError(algorithm string) *AppError {
	return &AppError{
		Code:    ErrCodeUnsupportedAlgorithm,
		Message: fmt.Sprintf("unsupported signature algorithm %q", algorithm),
	}
}

// EncodingError reports invalid base64url input.
func EncodingError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeEncoding, Message: message, Cause: cause}
}

// KeyFormatError reports a public key string that is not RSA.<mod>.<exp>.
func KeyFormatError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeKeyFormat, Message: message, Cause: cause}
}

// KeyTooSmallError reports a modulus that cannot hold a SHA-256 PKCS#1 v1.5 block.
func KeyTooSmallError(modulusBytes int) *AppError {
	return &AppError{
		Code:    ErrCodeKeyTooSmall,
		Message: fmt.Sprintf("modulus of %d bytes is too small for a SHA-256 PKCS#1 v1.5 block", modulusBytes),
	}
}

// VerificationError reports a signature that is not a valid RSA value for the key.
func VerificationError(message string) *AppError {
	return &AppError{Code: ErrCodeVerification, Message: message}
}

// KeyUnavailableError reports a failed key discovery for an author.
func KeyUnavailableError(author string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeKeyUnavailable,
		Message: fmt.Sprintf("no public key available for %q", author),
		Cause:   cause,
	}
}

// FeedNotFoundError reports an unknown local feed.
func FeedNotFoundError(id string) *AppError {
	return &AppError{
		Code:    ErrCodeFeedNotFound,
		Message: fmt.Sprintf("feed %q was not found", id),
	}
}

// BadRequestError creates a bad request error.
func BadRequestError(message string) *AppError {
	return &AppError{Code: ErrCodeBadRequest, Message: message}
}

// ServiceError creates a service error.
func ServiceError(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeServiceError, Message: message, Cause: cause}
}
