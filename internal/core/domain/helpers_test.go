//go:build unit

package domain

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
	testKeyErr  error
)

// testPrivateKey returns a 2048-bit key shared by the package's tests.
func testPrivateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		testKey, testKeyErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	if testKeyErr != nil {
		t.Fatalf("failed to generate key: %v", testKeyErr)
	}
	return testKey
}

// testPublicKeyString returns the magic public key string of testPrivateKey.
func testPublicKeyString(t *testing.T) string {
	t.Helper()
	return NewRSAPublicKey(&testPrivateKey(t).PublicKey).String()
}

// newTestEnvelope returns an envelope over payload with every optional
// field defaulted.
func newTestEnvelope(payload string) *MagicEnvelope {
	return &MagicEnvelope{
		Data:        []byte(payload),
		DataType:    DefaultDataType,
		Encoding:    EncodingBase64URL,
		Algorithm:   AlgorithmRSASHA256,
		ArmoredData: EncodeBase64URL([]byte(payload)),
	}
}

// signTestEnvelope signs env's digest with the shared key.
func signTestEnvelope(t *testing.T, env *MagicEnvelope) {
	t.Helper()
	sig, err := rsa.SignPKCS1v15(rand.Reader, testPrivateKey(t), crypto.SHA256, env.Digest())
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	env.Signature = sig
}
