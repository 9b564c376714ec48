package caddysalmon

import (
	"github.com/philiph/caddy-salmon/internal/core/domain"
)

// Re-export error types from domain package
type ErrorCode = domain.ErrorCode
type AppError = domain.AppError
type JSONErrorResponse = domain.JSONErrorResponse
type JSONErrorDetail = domain.JSONErrorDetail

// Re-export error code constants
const (
	ErrCodeEnvelopeNotFound     = domain.ErrCodeEnvelopeNotFound
	ErrCodeDataNotFound         = domain.ErrCodeDataNotFound
	ErrCodeSignatureMissing     = domain.ErrCodeSignatureMissing
	ErrCodeUnsupportedEncoding  = domain.ErrCodeUnsupportedEncoding
	ErrCodeUnsupportedAlgorithm = domain.ErrCodeUnsupportedAlgorithm
	ErrCodeEncoding             = domain.ErrCodeEncoding
	ErrCodeKeyFormat            = domain.ErrCodeKeyFormat
	ErrCodeKeyTooSmall          = domain.ErrCodeKeyTooSmall
	ErrCodeVerification         = domain.ErrCodeVerification
	ErrCodeKeyUnavailable       = domain.ErrCodeKeyUnavailable
	ErrCodeFeedNotFound         = domain.ErrCodeFeedNotFound
	ErrCodeBadRequest           = domain.ErrCodeBadRequest
	ErrCodeServiceError         = domain.ErrCodeServiceError
)

// Re-export sentinels for errors.Is
var (
	ErrEnvelopeNotFound     = domain.ErrEnvelopeNotFound
	ErrDataNotFound         = domain.ErrDataNotFound
	ErrSignatureMissing     = domain.ErrSignatureMissing
	ErrUnsupportedEncoding  = domain.ErrUnsupportedEncoding
	ErrUnsupportedAlgorithm = domain.ErrUnsupportedAlgorithm
	ErrEncoding             = domain.ErrEncoding
	ErrKeyFormat            = domain.ErrKeyFormat
	ErrKeyTooSmall          = domain.ErrKeyTooSmall
	ErrVerification         = domain.ErrVerification
	ErrKeyUnavailable       = domain.ErrKeyUnavailable
	ErrFeedNotFound         = domain.ErrFeedNotFound
)

var CodeOf = domain.CodeOf
