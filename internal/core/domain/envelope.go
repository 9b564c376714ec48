package domain

import (
	"crypto/sha256"
	"strings"
)

// Magic Envelope constants.
const (
	MagicEnvNamespace = "http://salmon-protocol.org/ns/magic-env"

	DefaultDataType    = "application/atom+xml"
	EncodingBase64URL  = "base64url"
	AlgorithmRSASHA256 = "rsa-sha256"
)

// MagicEnvelope is a decoded Magic Envelope.
//
// The Armored fields hold the exact strings that were signed: the data
// text as received, and the base64url form of the type, encoding and alg
// values when those were present in the envelope. A field that was absent
// and took its default has an empty armored form.
type MagicEnvelope struct {
	Data      []byte
	DataType  string
	Encoding  string
	Algorithm string
	Signature []byte

	// KeyID is the optional key_id attribute of the sig element.
	KeyID string

	ArmoredData      string
	ArmoredDataType  string
	ArmoredEncoding  string
	ArmoredAlgorithm string
}

// SigningInput returns "<data>.<type>.<encoding>.<alg>" built from the
// armored fields.
func (e *MagicEnvelope) SigningInput() []byte {
	return []byte(strings.Join([]string{
		e.ArmoredData,
		e.ArmoredDataType,
		e.ArmoredEncoding,
		e.ArmoredAlgorithm,
	}, "."))
}

// Digest returns the SHA-256 digest of the signing input.
func (e *MagicEnvelope) Digest() []byte {
	sum := sha256.Sum256(e.SigningInput())
	return sum[:]
}

// CheckAlgorithm returns UnsupportedAlgorithmError unless the envelope
// declares rsa-sha256.
func (e *MagicEnvelope) CheckAlgorithm() error {
	if e.Algorithm != AlgorithmRSASHA256 {
		return UnsupportedAlgorithmError(e.Algorithm)
	}
	return nil
}

// VerificationResult is the outcome of verifying an envelope. Payload is
// set whenever the data field decoded, regardless of Verified. Callers
// must not act on Payload unless Verified is true.
type VerificationResult struct {
	Verified bool
	Payload  []byte
}
