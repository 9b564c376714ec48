package magicenv

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/beevik/etree"

	"github.com/philiph/caddy-salmon/internal/core/domain"
	"github.com/philiph/caddy-salmon/internal/core/ports"
)

// SignOptions controls which optional envelope fields are written.
// An empty field is omitted from the envelope and signed as an empty
// armored string.
type SignOptions struct {
	DataType  string
	Encoding  string
	Algorithm string
	KeyID     string
}

// Signer produces RSA-SHA256 Magic Envelopes.
type Signer struct {
	privateKey *rsa.PrivateKey
	opts       SignOptions
}

// NewSigner creates a signer with the given key and options.
func NewSigner(privateKey *rsa.PrivateKey, opts SignOptions) *Signer {
	return &Signer{privateKey: privateKey, opts: opts}
}

// PublicKey returns the signer's key in magic public key form.
func (s *Signer) PublicKey() string {
	return domain.NewRSAPublicKey(&s.privateKey.PublicKey).String()
}

// Seal builds and signs an envelope around payload.
func (s *Signer) Seal(payload []byte) (*domain.MagicEnvelope, error) {
	if len(payload) == 0 {
		return nil, errors.New("empty payload")
	}

	env := &domain.MagicEnvelope{
		Data:        payload,
		DataType:    domain.DefaultDataType,
		Encoding:    domain.EncodingBase64URL,
		Algorithm:   domain.AlgorithmRSASHA256,
		KeyID:       s.opts.KeyID,
		ArmoredData: domain.EncodeBase64URL(payload),
	}
	if s.opts.DataType != "" {
		env.DataType = s.opts.DataType
		env.ArmoredDataType = domain.EncodeBase64URL([]byte(s.opts.DataType))
	}
	if s.opts.Encoding != "" {
		env.Encoding = strings.ToLower(s.opts.Encoding)
		env.ArmoredEncoding = domain.EncodeBase64URL([]byte(s.opts.Encoding))
	}
	if s.opts.Algorithm != "" {
		env.Algorithm = strings.ToLower(s.opts.Algorithm)
		env.ArmoredAlgorithm = domain.EncodeBase64URL([]byte(s.opts.Algorithm))
	}

	sig, err := rsa.SignPKCS1v15(rand.Reader, s.privateKey, crypto.SHA256, env.Digest())
	if err != nil {
		return nil, fmt.Errorf("sign envelope: %w", err)
	}
	env.Signature = sig
	return env, nil
}

// Sign seals payload and returns the envelope XML.
func (s *Signer) Sign(payload []byte) ([]byte, error) {
	env, err := s.Seal(payload)
	if err != nil {
		return nil, err
	}
	return Marshal(env)
}

// Marshal writes env as Magic Envelope XML. Optional elements are written
// only when their armored form is non-empty, with the armored value decoded
// back to the original text, so Decode(Marshal(env)) reproduces the
// signing input.
func Marshal(env *domain.MagicEnvelope) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("me:env")
	root.CreateAttr("xmlns:me", domain.MagicEnvNamespace)

	data := root.CreateElement("me:data")
	if env.ArmoredDataType != "" {
		dataType, err := dearmor(env.ArmoredDataType, "type")
		if err != nil {
			return nil, err
		}
		data.CreateAttr("type", dataType)
	}
	data.SetText(env.ArmoredData)

	if env.ArmoredEncoding != "" {
		encoding, err := dearmor(env.ArmoredEncoding, "encoding")
		if err != nil {
			return nil, err
		}
		root.CreateElement("me:encoding").SetText(encoding)
	}
	if env.ArmoredAlgorithm != "" {
		alg, err := dearmor(env.ArmoredAlgorithm, "alg")
		if err != nil {
			return nil, err
		}
		root.CreateElement("me:alg").SetText(alg)
	}

	sig := root.CreateElement("me:sig")
	if env.KeyID != "" {
		sig.CreateAttr("key_id", env.KeyID)
	}
	sig.SetText(domain.EncodeBase64URL(env.Signature))

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize envelope: %w", err)
	}
	return out, nil
}

func dearmor(armored, field string) (string, error) {
	b, err := domain.DecodeBase64URL(armored)
	if err != nil {
		return "", fmt.Errorf("armored %s: %w", field, err)
	}
	return string(b), nil
}

// LoadPrivateKey loads an RSA private key from a PEM file.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}

	// Try PKCS8 first (modern format), then PKCS1 (legacy RSA format)
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return rsaKey, nil
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("key is not RSA")
	}
	return rsaKey, nil
}

// EncodePrivateKey returns key as a PKCS#8 PEM block.
func EncodePrivateKey(key *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// Ensure Signer satisfies the port interface
var _ ports.EnvelopeSigner = (*Signer)(nil)
