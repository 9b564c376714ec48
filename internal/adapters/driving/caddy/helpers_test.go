//go:build unit

package caddy

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"sync"
	"testing"

	"github.com/philiph/caddy-salmon/internal/adapters/driven/magicenv"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
	testKeyErr  error
)

const (
	remoteAuthorURI = "https://remote.example/users/bob"
	localBaseURL    = "https://local.example"
)

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

// testPublicKey returns the magic public key of the shared test key.
func testPublicKey(t *testing.T) string {
	t.Helper()
	return magicenv.NewSigner(generateTestKey(t), magicenv.SignOptions{}).PublicKey()
}

// atomEntry builds an Atom entry by authorURI with the given verb.
func atomEntry(authorURI, verb, inReplyTo string) string {
	reply := ""
	if inReplyTo != "" {
		reply = fmt.Sprintf(`<thr:in-reply-to href="%s"/>`, inReplyTo)
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<entry xmlns="http://www.w3.org/2005/Atom"
       xmlns:activity="http://activitystrea.ms/spec/1.0/"
       xmlns:thr="http://purl.org/syndication/thread/1.0">
  <id>tag:remote.example,2026:note/1</id>
  <title>hello</title>
  <content>hello from bob</content>
  <activity:verb>%s</activity:verb>
  <author>
    <uri>%s</uri>
    <name>bob</name>
  </author>
  %s
</entry>`, verb, authorURI, reply)
}

// signEntry wraps payload in an envelope signed with the shared test key.
func signEntry(t *testing.T, payload string) []byte {
	t.Helper()
	raw, err := magicenv.NewSigner(generateTestKey(t), magicenv.SignOptions{}).Sign([]byte(payload))
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	return raw
}
