//go:build unit

package magicenv

import (
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

const testPayload = `<?xml version="1.0" encoding="UTF-8"?>
<entry xmlns="http://www.w3.org/2005/Atom">
  <id>tag:remote.example,2026:note/1</id>
  <title>hello</title>
</entry>`

// generateTestKey returns a 2048-bit key shared by the package's tests.
func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		testKey, testKeyErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	if testKeyErr != nil {
		t.Fatalf("failed to generate key: %v", testKeyErr)
	}
	return testKey
}

// signedEnvelope signs testPayload with opts and returns the XML and key string.
func signedEnvelope(t *testing.T, opts SignOptions) ([]byte, string) {
	t.Helper()
	signer := NewSigner(generateTestKey(t), opts)
	raw, err := signer.Sign([]byte(testPayload))
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	return raw, signer.PublicKey()
}
