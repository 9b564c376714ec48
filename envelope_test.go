//go:build unit

package caddysalmon

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"strings"
	"testing"
)

const entry = `<entry xmlns="http://www.w3.org/2005/Atom"><id>tag:remote.example,2026:1</id></entry>`

func signedEntry(t *testing.T, opts SignOptions) (*rsa.PrivateKey, []byte) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	raw, err := NewSigner(priv, opts).Sign([]byte(entry))
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	return priv, raw
}

func TestVerifyEnvelope_RoundTrip(t *testing.T) {
	priv, raw := signedEntry(t, SignOptions{DataType: "application/atom+xml", KeyID: "k1"})
	key := NewRSAPublicKey(&priv.PublicKey).String()

	result, err := VerifyEnvelope(raw, key)
	if err != nil {
		t.Fatalf("VerifyEnvelope() error: %v", err)
	}
	if !result.Verified {
		t.Error("Verified = false, want true")
	}
	if string(result.Payload) != entry {
		t.Errorf("Payload = %q", result.Payload)
	}

	env, err := DecodeEnvelope(raw)
	if err != nil {
		t.Fatalf("DecodeEnvelope() error: %v", err)
	}
	if env.KeyID != "k1" {
		t.Errorf("KeyID = %q", env.KeyID)
	}
}

func TestVerifyEnvelope_Mismatch(t *testing.T) {
	_, raw := signedEntry(t, SignOptions{})
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}

	result, err := VerifyEnvelope(raw, NewRSAPublicKey(&other.PublicKey).String())
	if err != nil {
		t.Fatalf("VerifyEnvelope() error: %v", err)
	}
	if result.Verified {
		t.Error("Verified = true for a different key")
	}
}

func TestVerifyEnvelope_Errors(t *testing.T) {
	priv, raw := signedEntry(t, SignOptions{})
	key := NewRSAPublicKey(&priv.PublicKey).String()

	testCases := []struct {
		name string
		raw  []byte
		key  string
		want error
	}{
		{"not an envelope", []byte("<feed/>"), key, ErrEnvelopeNotFound},
		{"malformed key", raw, "DSA.AQAB.AQAB", ErrKeyFormat},
		{"key too small", raw, "RSA.AQID.AQAB", ErrKeyTooSmall},
		{"missing sig", []byte(strings.Replace(string(raw), "me:sig", "me:gis", 2)), key, ErrSignatureMissing},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := VerifyEnvelope(tc.raw, tc.key)
			if !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
			if result != nil {
				t.Error("result should be nil on error")
			}
			if CodeOf(err).HTTPStatus() != 404 {
				t.Errorf("HTTPStatus = %d, want 404", CodeOf(err).HTTPStatus())
			}
		})
	}
}

func TestParsePublicKey_Reexport(t *testing.T) {
	key, err := ParsePublicKey("RSA.AQID.AQAB")
	if err != nil {
		t.Fatalf("ParsePublicKey() error: %v", err)
	}
	if key.ModulusBytes != 3 || key.Exponent.Int64() != 65537 {
		t.Errorf("key = %+v", key)
	}
	if EncodeBase64URL([]byte{1, 2, 3}) != "AQID" {
		t.Error("EncodeBase64URL mismatch")
	}
}
