package ports

import (
	"github.com/philiph/caddy-salmon/internal/core/domain"
)

// EnvelopeDecoder parses a Magic Envelope document.
// This is a port interface - implementations are adapters.
type EnvelopeDecoder interface {
	// Decode parses raw envelope XML and applies the Magic Envelope
	// defaulting rules. The returned envelope is not yet verified.
	Decode(raw []byte) (*domain.MagicEnvelope, error)
}

// EnvelopeVerifier checks Magic Envelope signatures.
// This is a port interface - implementations are adapters.
type EnvelopeVerifier interface {
	// Verify decodes raw envelope XML and verifies it against a magic
	// public key string. A signature mismatch is reported as
	// Verified == false with a nil error.
	Verify(raw []byte, publicKey string) (*domain.VerificationResult, error)

	// VerifyEnvelope verifies an already decoded envelope.
	VerifyEnvelope(env *domain.MagicEnvelope, publicKey string) (bool, error)
}

// EnvelopeSigner produces signed Magic Envelopes.
type EnvelopeSigner interface {
	// Sign wraps payload in a signed envelope and returns the envelope XML.
	Sign(payload []byte) ([]byte, error)
}
