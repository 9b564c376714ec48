package domain

import (
	"crypto/sha256"
	"crypto/subtle"
	"math/big"
)

// sha256DigestInfo is the DER DigestInfo prefix identifying SHA-256.
var sha256DigestInfo = []byte{
	0x30, 0x31, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01,
	0x65, 0x03, 0x04, 0x02, 0x01, 0x05, 0x00, 0x04, 0x20,
}

// EncodeEMSA builds the EMSA-PKCS1-v1_5 block for a SHA-256 digest:
//
//	00 01 FF..FF 00 <DigestInfo prefix> <digest>
//
// The block is key.ModulusBytes long.
func EncodeEMSA(digest []byte, key *RSAPublicKey) ([]byte, error) {
	if len(digest) != sha256.Size {
		return nil, VerificationError("digest is not a SHA-256 digest")
	}
	padding := key.ModulusBytes - 3 - len(sha256DigestInfo) - len(digest)
	if padding < 0 {
		return nil, KeyTooSmallError(key.ModulusBytes)
	}

	em := make([]byte, 0, key.ModulusBytes)
	em = append(em, 0x00, 0x01)
	for i := 0; i < padding; i++ {
		em = append(em, 0xff)
	}
	em = append(em, 0x00)
	em = append(em, sha256DigestInfo...)
	em = append(em, digest...)
	return em, nil
}

// RecoverEMSA performs the RSA public operation s^e mod n on a signature
// and returns the resulting block. The integer form drops the leading 0x00
// of the block, so it is restored when the first byte is the 0x01 block type.
func RecoverEMSA(signature []byte, key *RSAPublicKey) ([]byte, error) {
	s := new(big.Int).SetBytes(signature)
	if key.Modulus.Sign() <= 0 || s.Cmp(key.Modulus) >= 0 {
		return nil, VerificationError("signature is out of range for the public key")
	}

	m := new(big.Int).Exp(s, key.Exponent, key.Modulus)
	em := m.Bytes()
	if len(em) > 0 && em[0] == 0x01 {
		em = append([]byte{0x00}, em...)
	}
	return em, nil
}

// VerifyPKCS1v15SHA256 reports whether signature is a valid RSASSA-PKCS1-v1_5
// signature of digest under key. It returns an error only for unusable input:
// a key too small for the block or a signature out of range. A well-formed
// signature that does not match returns false and a nil error.
func VerifyPKCS1v15SHA256(key *RSAPublicKey, digest, signature []byte) (bool, error) {
	expected, err := EncodeEMSA(digest, key)
	if err != nil {
		return false, err
	}
	recovered, err := RecoverEMSA(signature, key)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(recovered, expected) == 1, nil
}

// VerifyEnvelope checks env's signature against the magic public key string.
// The envelope must declare rsa-sha256.
func VerifyEnvelope(env *MagicEnvelope, publicKey string) (bool, error) {
	if err := env.CheckAlgorithm(); err != nil {
		return false, err
	}
	key, err := ParsePublicKey(publicKey)
	if err != nil {
		return false, err
	}
	return VerifyPKCS1v15SHA256(key, env.Digest(), env.Signature)
}
