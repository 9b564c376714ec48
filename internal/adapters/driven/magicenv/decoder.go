// Package magicenv reads, writes, and verifies Magic Envelopes.
package magicenv

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/philiph/caddy-salmon/internal/core/domain"
	"github.com/philiph/caddy-salmon/internal/core/ports"
)

// Decoder parses Magic Envelope XML with etree.
type Decoder struct{}

// NewDecoder creates a new Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode parses raw envelope XML into a MagicEnvelope.
//
// Fields that are absent take their defaults (type application/atom+xml,
// encoding base64url, alg rsa-sha256) with an empty armored form. Fields
// that are present are armored as the base64url of their text. The data
// text is kept verbatim as the armored data.
func (d *Decoder) Decode(raw []byte) (*domain.MagicEnvelope, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, &domain.AppError{
			Code:    domain.ErrCodeEnvelopeNotFound,
			Message: "failed to parse envelope XML",
			Cause:   err,
		}
	}

	root := doc.Root()
	if root == nil || !isMagicEnv(root, "env") {
		return nil, domain.EnvelopeNotFoundError("document root is not a magic envelope")
	}

	env := &domain.MagicEnvelope{}

	data := child(root, "data")
	if data == nil {
		return nil, domain.DataNotFoundError()
	}
	if dataType, ok := attr(data, "type"); ok {
		env.DataType = dataType
		env.ArmoredDataType = domain.EncodeBase64URL([]byte(dataType))
	} else {
		env.DataType = domain.DefaultDataType
	}

	if encoding := child(root, "encoding"); encoding != nil {
		text := content(encoding)
		env.ArmoredEncoding = domain.EncodeBase64URL([]byte(text))
		env.Encoding = strings.ToLower(text)
	} else {
		env.Encoding = domain.EncodingBase64URL
	}

	if alg := child(root, "alg"); alg != nil {
		text := content(alg)
		env.ArmoredAlgorithm = domain.EncodeBase64URL([]byte(text))
		env.Algorithm = strings.ToLower(text)
	} else {
		env.Algorithm = domain.AlgorithmRSASHA256
	}

	sig := child(root, "sig")
	if sig == nil {
		return nil, domain.SignatureMissingError()
	}
	env.KeyID, _ = attr(sig, "key_id")

	env.ArmoredData = content(data)
	if env.Encoding != domain.EncodingBase64URL {
		return nil, domain.UnsupportedEncodingError(env.Encoding)
	}
	payload, err := domain.DecodeBase64URL(env.ArmoredData)
	if err != nil {
		return nil, err
	}
	env.Data = payload

	signature, err := domain.DecodeBase64URL(content(sig))
	if err != nil {
		return nil, err
	}
	env.Signature = signature

	return env, nil
}

// isMagicEnv reports whether el is the named element in the Magic Envelope namespace.
func isMagicEnv(el *etree.Element, tag string) bool {
	return el.Tag == tag && el.NamespaceURI() == domain.MagicEnvNamespace
}

// child returns the first child element of el with the given local name
// in the Magic Envelope namespace, or nil.
func child(el *etree.Element, tag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if isMagicEnv(c, tag) {
			return c
		}
	}
	return nil
}

// attr returns the value of an unqualified attribute.
func attr(el *etree.Element, key string) (string, bool) {
	for _, a := range el.Attr {
		if a.Space == "" && a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// content returns the concatenated character data of el and its descendants.
func content(el *etree.Element) string {
	var b strings.Builder
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, tok := range e.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				b.WriteString(t.Data)
			case *etree.Element:
				walk(t)
			}
		}
	}
	walk(el)
	return b.String()
}

// Ensure Decoder satisfies the port interface
var _ ports.EnvelopeDecoder = (*Decoder)(nil)
