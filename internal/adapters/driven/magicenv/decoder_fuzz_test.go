//go:build go1.18

package magicenv

import (
	"testing"

	"github.com/philiph/caddy-salmon/internal/core/domain"
)

var decodeErrorCodes = map[domain.ErrorCode]bool{
	domain.ErrCodeEnvelopeNotFound:    true,
	domain.ErrCodeDataNotFound:        true,
	domain.ErrCodeSignatureMissing:    true,
	domain.ErrCodeUnsupportedEncoding: true,
	domain.ErrCodeEncoding:            true,
}

// FuzzDecode checks that arbitrary input never panics the decoder and that
// every failure carries one of the decode error codes.
func FuzzDecode(f *testing.F) {
	f.Add([]byte(`<me:env xmlns:me="http://salmon-protocol.org/ns/magic-env"><me:data type="text/plain">aGk</me:data><me:encoding>base64url</me:encoding><me:alg>RSA-SHA256</me:alg><me:sig key_id="k">AQID</me:sig></me:env>`))
	f.Add([]byte(`<me:env xmlns:me="http://salmon-protocol.org/ns/magic-env"><me:data>aGk=</me:data><me:sig>AQID</me:sig></me:env>`))
	f.Add([]byte(`<me:env xmlns:me="http://salmon-protocol.org/ns/magic-env"><me:sig>AQID</me:sig></me:env>`))
	f.Add([]byte(`<env><data>aGk</data><sig>AQID</sig></env>`))
	f.Add([]byte(`<me:env xmlns:me="http://salmon-protocol.org/ns/magic-env"><me:data>a+b/</me:data><me:sig>AQID</me:sig></me:env>`))
	f.Add([]byte(`not xml`))
	f.Add([]byte{})

	decoder := NewDecoder()
	f.Fuzz(func(t *testing.T, raw []byte) {
		env, err := decoder.Decode(raw)
		if err != nil {
			if env != nil {
				t.Fatalf("Decode returned envelope alongside error %v", err)
			}
			if code := domain.CodeOf(err); !decodeErrorCodes[code] {
				t.Fatalf("Decode error code = %q, err = %v", code, err)
			}
			return
		}
		if env.Encoding != domain.EncodingBase64URL {
			t.Fatalf("decoded envelope has encoding %q", env.Encoding)
		}
		if _, err := domain.DecodeBase64URL(env.ArmoredData); err != nil {
			t.Fatalf("armored data %q does not decode: %v", env.ArmoredData, err)
		}
	})
}

// FuzzParsePublicKey checks that key parsing never panics and fails only
// with KeyFormat or Encoding errors.
func FuzzParsePublicKey(f *testing.F) {
	f.Add("RSA.mVgY8RN6URBTstndvmUUPb4UZTdwvwmddSKE5z_jvKUEK6yk1u3rrC9yN8k6FilGj9K0eeUPe2hf4Pj-5CmHww.AQAB")
	f.Add("RSA..AQAB")
	f.Add("RSA.AQAB")
	f.Add("DSA.AQ.AQ")
	f.Add("")

	f.Fuzz(func(t *testing.T, s string) {
		_, err := domain.ParsePublicKey(s)
		if err == nil {
			return
		}
		switch code := domain.CodeOf(err); code {
		case domain.ErrCodeKeyFormat, domain.ErrCodeEncoding:
		default:
			t.Fatalf("ParsePublicKey(%q) error code = %q", s, code)
		}
	})
}
