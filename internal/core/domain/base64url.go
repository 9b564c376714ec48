package domain

import (
	"encoding/base64"
	"strings"
)

// base64url is RFC 4648 section 5 without padding. Padding is stripped
// before decoding so both padded and unpadded input are accepted.
var base64url = base64.RawURLEncoding

// EncodeBase64URL encodes b with the URL-safe alphabet and no padding.
func EncodeBase64URL(b []byte) string {
	return base64url.EncodeToString(b)
}

// DecodeBase64URL decodes s from the URL-safe alphabet. Trailing '='
// padding is optional. Any character outside the alphabet, including
// whitespace and the standard '+' and '/' characters, is rejected.
func DecodeBase64URL(s string) ([]byte, error) {
	trimmed := strings.TrimRight(s, "=")
	if len(s)-len(trimmed) > 2 {
		return nil, EncodingError("invalid base64url padding", nil)
	}
	for i := 0; i < len(trimmed); i++ {
		if !isBase64URLChar(trimmed[i]) {
			return nil, EncodingError("invalid base64url character", nil)
		}
	}
	b, err := base64url.DecodeString(trimmed)
	if err != nil {
		return nil, EncodingError("invalid base64url input", err)
	}
	return b, nil
}

func isBase64URLChar(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	}
	return false
}
