package domain

import (
	"crypto/rsa"
	"math/big"
	"strings"
)

// KeyPrefix is the algorithm label of a magic public key string.
const KeyPrefix = "RSA"

// RSAPublicKey is an RSA public key decoded from the "RSA.<mod>.<exp>" form.
//
// ModulusBytes is the length of the modulus as it was encoded, leading
// zero bytes included. It sizes the expected PKCS#1 v1.5 block, so it is
// never recomputed from Modulus.
type RSAPublicKey struct {
	Modulus      *big.Int
	Exponent     *big.Int
	ModulusBytes int
}

// ParsePublicKey parses a magic public key string of the exact form
// RSA.<base64url-modulus>.<base64url-exponent>. Surrounding whitespace is
// not tolerated. No strength or primality checks are made.
func ParsePublicKey(s string) (*RSAPublicKey, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 || parts[0] != KeyPrefix {
		return nil, KeyFormatError("public key must have the form RSA.<modulus>.<exponent>", nil)
	}
	if parts[1] == "" || parts[2] == "" {
		return nil, KeyFormatError("public key has an empty segment", nil)
	}

	modulus, err := DecodeBase64URL(parts[1])
	if err != nil {
		return nil, KeyFormatError("decode modulus", err)
	}
	exponent, err := DecodeBase64URL(parts[2])
	if err != nil {
		return nil, KeyFormatError("decode exponent", err)
	}

	return &RSAPublicKey{
		Modulus:      bytesToInt(modulus),
		Exponent:     bytesToInt(exponent),
		ModulusBytes: len(modulus),
	}, nil
}

// NewRSAPublicKey converts a crypto/rsa key. ModulusBytes is the key size
// in bytes, which keeps any leading zero byte of a short modulus.
func NewRSAPublicKey(pub *rsa.PublicKey) *RSAPublicKey {
	return &RSAPublicKey{
		Modulus:      new(big.Int).Set(pub.N),
		Exponent:     big.NewInt(int64(pub.E)),
		ModulusBytes: pub.Size(),
	}
}

// String returns the key in magic public key form.
func (k *RSAPublicKey) String() string {
	return KeyPrefix + "." +
		EncodeBase64URL(k.Modulus.FillBytes(make([]byte, k.modulusLen()))) + "." +
		EncodeBase64URL(k.Exponent.Bytes())
}

func (k *RSAPublicKey) modulusLen() int {
	if n := (k.Modulus.BitLen() + 7) / 8; n > k.ModulusBytes {
		return n
	}
	return k.ModulusBytes
}

// bytesToInt accumulates big-endian bytes into an unsigned integer,
// shifting left by eight bits per byte.
func bytesToInt(b []byte) *big.Int {
	n := new(big.Int)
	for _, c := range b {
		n.Lsh(n, 8)
		n.Or(n, big.NewInt(int64(c)))
	}
	return n
}
