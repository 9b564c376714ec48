package magicenv

import (
	"go.uber.org/zap"

	"github.com/philiph/caddy-salmon/internal/core/domain"
	"github.com/philiph/caddy-salmon/internal/core/ports"
)

// Verifier decodes Magic Envelopes and checks their RSA-SHA256 signatures.
// It holds no per-call state and is safe for concurrent use.
type Verifier struct {
	decoder ports.EnvelopeDecoder
	logger  *zap.Logger
}

// NewVerifier creates a verifier using the etree decoder.
func NewVerifier() *Verifier {
	return &Verifier{decoder: NewDecoder()}
}

// NewVerifierWithLogger creates a verifier that logs verification outcomes.
func NewVerifierWithLogger(logger *zap.Logger) *Verifier {
	return &Verifier{decoder: NewDecoder(), logger: logger}
}

// Verify decodes raw and verifies it against publicKey.
//
// Decode, key and algorithm failures are returned as errors. A signature
// that is well formed but does not match yields Verified == false, nil.
// Payload is set whenever the data decoded.
func (v *Verifier) Verify(raw []byte, publicKey string) (*domain.VerificationResult, error) {
	env, err := v.decoder.Decode(raw)
	if err != nil {
		return nil, err
	}
	verified, err := v.VerifyEnvelope(env, publicKey)
	if err != nil {
		return nil, err
	}
	return &domain.VerificationResult{Verified: verified, Payload: env.Data}, nil
}

// VerifyEnvelope verifies an already decoded envelope.
func (v *Verifier) VerifyEnvelope(env *domain.MagicEnvelope, publicKey string) (bool, error) {
	verified, err := domain.VerifyEnvelope(env, publicKey)
	if v.logger != nil {
		switch {
		case err != nil:
			v.logger.Debug("magic envelope verification error",
				zap.String("code", domain.CodeOf(err).String()),
				zap.Error(err))
		case !verified:
			v.logger.Debug("magic envelope signature mismatch",
				zap.String("data_type", env.DataType),
				zap.String("key_id", env.KeyID))
		default:
			v.logger.Debug("magic envelope verified",
				zap.String("data_type", env.DataType),
				zap.Int("payload_size", len(env.Data)))
		}
	}
	return verified, err
}

// Ensure Verifier satisfies the port interface
var _ ports.EnvelopeVerifier = (*Verifier)(nil)
