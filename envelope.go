package caddysalmon

import (
	"github.com/philiph/caddy-salmon/internal/adapters/driven/magicenv"
	"github.com/philiph/caddy-salmon/internal/core/domain"
)

// Re-export envelope and key types from domain package
type MagicEnvelope = domain.MagicEnvelope
type VerificationResult = domain.VerificationResult
type RSAPublicKey = domain.RSAPublicKey

// Re-export envelope adapters
type Signer = magicenv.Signer
type SignOptions = magicenv.SignOptions

var (
	ParsePublicKey   = domain.ParsePublicKey
	NewRSAPublicKey  = domain.NewRSAPublicKey
	EncodeBase64URL  = domain.EncodeBase64URL
	DecodeBase64URL  = domain.DecodeBase64URL
	NewSigner        = magicenv.NewSigner
	MarshalEnvelope  = magicenv.Marshal
	LoadPrivateKey   = magicenv.LoadPrivateKey
	EncodePrivateKey = magicenv.EncodePrivateKey
)

var verifier = magicenv.NewVerifier()

// DecodeEnvelope parses Magic Envelope XML without verifying it.
func DecodeEnvelope(raw []byte) (*MagicEnvelope, error) {
	return magicenv.NewDecoder().Decode(raw)
}

// VerifyEnvelope decodes raw and verifies its signature against a magic
// public key string of the form RSA.<modulus>.<exponent>.
//
// Malformed envelopes, malformed or undersized keys, unsupported
// algorithms and out-of-range signatures are returned as *AppError. A
// well-formed signature that does not match returns Verified == false with
// a nil error; Payload is set in that case but must not be trusted.
func VerifyEnvelope(raw []byte, publicKey string) (*VerificationResult, error) {
	return verifier.Verify(raw, publicKey)
}
