//go:build unit

package caddy

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/philiph/caddy-salmon/internal/adapters/driven/feeds"
	"github.com/philiph/caddy-salmon/internal/adapters/driven/inbox"
	"github.com/philiph/caddy-salmon/internal/adapters/driven/keys"
	"github.com/philiph/caddy-salmon/internal/core/domain"
	"github.com/philiph/caddy-salmon/internal/core/ports"
)

const (
	postVerb   = "http://activitystrea.ms/schema/1.0/post"
	followVerb = "http://activitystrea.ms/schema/1.0/follow"
)

// envelopeRecorder captures RecordEnvelope calls.
type envelopeRecorder struct {
	mu        sync.Mutex
	envelopes []string
}

func (r *envelopeRecorder) RecordEnvelope(feedID string, verified bool, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if verified {
		code = "verified"
	}
	r.envelopes = append(r.envelopes, feedID+":"+code)
}
func (r *envelopeRecorder) RecordKeyLookup(string, bool) {}
func (r *envelopeRecorder) RecordActivity(string)        {}

// forgettingResolver wraps a resolver and records Forget calls.
type forgettingResolver struct {
	ports.KeyResolver
	forgotten []string
}

func (f *forgettingResolver) Forget(authorURI string) {
	f.forgotten = append(f.forgotten, authorURI)
}

// countingResolver counts Resolve calls.
type countingResolver struct {
	ports.KeyResolver
	calls int
}

func (c *countingResolver) Resolve(ctx context.Context, author domain.Author) (*domain.RemoteAuthor, error) {
	c.calls++
	return c.KeyResolver.Resolve(ctx, author)
}

type testEnv struct {
	handler  *Salmon
	inbox    *inbox.Inbox
	recorder *envelopeRecorder
}

// newTestEnv builds a handler with feed "alice" and bob's key pinned to key.
func newTestEnv(t *testing.T, key string) *testEnv {
	t.Helper()
	store := feeds.NewInMemoryFeedStore()
	if err := store.Add(domain.Feed{ID: "alice", Owner: localBaseURL + "/users/alice"}); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	static := keys.NewStaticResolver(nil)
	if err := static.Add(remoteAuthorURI, key); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	box := inbox.NewInbox(localBaseURL, nil, nil)
	recorder := &envelopeRecorder{}

	h := NewSalmonForTest(Config{LocalBaseURL: localBaseURL}, store, static, box)
	h.SetMetricsRecorder(recorder)
	return &testEnv{handler: h, inbox: box, recorder: recorder}
}

var nextHandler = caddyhttp.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
	w.WriteHeader(http.StatusTeapot)
	return nil
})

func post(t *testing.T, h *Salmon, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/magic-envelope+xml")
	rec := httptest.NewRecorder()
	if err := h.ServeHTTP(rec, req, nextHandler); err != nil {
		t.Fatalf("ServeHTTP() error: %v", err)
	}
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp domain.JSONErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not a JSON error: %v (%q)", err, rec.Body.String())
	}
	return resp.Error.Code
}

func TestServeHTTP_VerifiedPost(t *testing.T) {
	env := newTestEnv(t, testPublicKey(t))
	raw := signEntry(t, atomEntry(remoteAuthorURI, postVerb, localBaseURL+"/updates/9"))

	rec := post(t, env.handler, "/feeds/alice/salmon", raw)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}

	entries := env.inbox.Entries("alice")
	if len(entries) != 1 {
		t.Fatalf("Entries() len = %d, want 1", len(entries))
	}
	if entries[0].ReplyTo != "9" || entries[0].Activity.Content != "hello from bob" {
		t.Errorf("entry = %+v", entries[0])
	}
	if _, ok := env.inbox.Author(remoteAuthorURI); !ok {
		t.Error("remote author not recorded")
	}
	if len(env.recorder.envelopes) != 1 || env.recorder.envelopes[0] != "alice:verified" {
		t.Errorf("envelopes = %v", env.recorder.envelopes)
	}
}

func TestServeHTTP_Follow(t *testing.T) {
	env := newTestEnv(t, testPublicKey(t))
	raw := signEntry(t, atomEntry(remoteAuthorURI, followVerb, ""))

	if rec := post(t, env.handler, "/feeds/alice/salmon", raw); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	followers := env.inbox.Followers("alice")
	if len(followers) != 1 || followers[0].URI != remoteAuthorURI {
		t.Errorf("Followers() = %v", followers)
	}
}

func TestServeHTTP_Rejections(t *testing.T) {
	valid := func(t *testing.T) []byte {
		return signEntry(t, atomEntry(remoteAuthorURI, postVerb, ""))
	}

	testCases := []struct {
		name       string
		path       string
		body       func(t *testing.T) []byte
		wantStatus int
		wantCode   domain.ErrorCode
	}{
		{
			name:       "unknown feed",
			path:       "/feeds/nobody/salmon",
			body:       valid,
			wantStatus: http.StatusNotFound,
			wantCode:   domain.ErrCodeFeedNotFound,
		},
		{
			name:       "not xml",
			path:       "/feeds/alice/salmon",
			body:       func(t *testing.T) []byte { return []byte("this is not xml") },
			wantStatus: http.StatusNotFound,
			wantCode:   domain.ErrCodeEnvelopeNotFound,
		},
		{
			name: "tampered data",
			path: "/feeds/alice/salmon",
			body: func(t *testing.T) []byte {
				other := signEntry(t, atomEntry(remoteAuthorURI, followVerb, ""))
				raw := valid(t)
				// Swap in the data of a different envelope, keeping the signature.
				return spliceData(t, raw, other)
			},
			wantStatus: http.StatusNotFound,
			wantCode:   domain.ErrCodeVerification,
		},
		{
			name: "unknown author",
			path: "/feeds/alice/salmon",
			body: func(t *testing.T) []byte {
				return signEntry(t, atomEntry("https://stranger.example/users/eve", postVerb, ""))
			},
			wantStatus: http.StatusNotFound,
			wantCode:   domain.ErrCodeKeyUnavailable,
		},
		{
			name:       "payload is not atom",
			path:       "/feeds/alice/salmon",
			body:       func(t *testing.T) []byte { return signEntry(t, "<note>hi</note>") },
			wantStatus: http.StatusBadRequest,
			wantCode:   domain.ErrCodeBadRequest,
		},
		{
			name:       "empty body",
			path:       "/feeds/alice/salmon",
			body:       func(t *testing.T) []byte { return nil },
			wantStatus: http.StatusBadRequest,
			wantCode:   domain.ErrCodeBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, testPublicKey(t))
			rec := post(t, env.handler, tc.path, tc.body(t))
			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if code := errorCode(t, rec); code != tc.wantCode.String() {
				t.Errorf("code = %q, want %q", code, tc.wantCode)
			}
			if n := len(env.inbox.Entries("alice")); n != 0 {
				t.Errorf("rejected envelope was dispatched (%d entries)", n)
			}
			if len(env.recorder.envelopes) != 1 || strings.HasSuffix(env.recorder.envelopes[0], ":verified") {
				t.Errorf("envelopes = %v, want one rejection", env.recorder.envelopes)
			}
		})
	}
}

// spliceData replaces the data element text of raw with that of other.
func spliceData(t *testing.T, raw, other []byte) []byte {
	t.Helper()
	extract := func(b []byte) string {
		s := string(b)
		start := strings.Index(s, "<me:data")
		start += strings.Index(s[start:], ">") + 1
		end := strings.Index(s, "</me:data>")
		if start <= 0 || end < start {
			t.Fatalf("no data element in %q", s)
		}
		return s[start:end]
	}
	return []byte(strings.Replace(string(raw), extract(raw), extract(other), 1))
}

func TestServeHTTP_WrongKeyForgetsCachedKey(t *testing.T) {
	env := newTestEnv(t, otherPublicKey(t))
	resolver := &forgettingResolver{KeyResolver: env.handler.keyResolver}
	env.handler.SetKeyResolver(resolver)

	rec := post(t, env.handler, "/feeds/alice/salmon", signEntry(t, atomEntry(remoteAuthorURI, postVerb, "")))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if code := errorCode(t, rec); code != domain.ErrCodeVerification.String() {
		t.Errorf("code = %q", code)
	}
	if len(resolver.forgotten) != 1 || resolver.forgotten[0] != remoteAuthorURI {
		t.Errorf("forgotten = %v", resolver.forgotten)
	}
	if _, ok := env.inbox.Author(remoteAuthorURI); ok {
		t.Error("author recorded for an unverified envelope")
	}
}

// otherPublicKey returns the magic public key of a fresh key pair.
func otherPublicKey(t *testing.T) string {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return domain.NewRSAPublicKey(&priv.PublicKey).String()
}

func TestServeHTTP_LocalAuthorIsAcknowledged(t *testing.T) {
	env := newTestEnv(t, testPublicKey(t))
	resolver := &countingResolver{KeyResolver: env.handler.keyResolver}
	env.handler.SetKeyResolver(resolver)

	raw := signEntry(t, atomEntry(localBaseURL+"/users/carol", postVerb, ""))
	rec := post(t, env.handler, "/feeds/alice/salmon", raw)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if resolver.calls != 0 {
		t.Error("key resolver consulted for a local author")
	}
	if len(env.inbox.Entries("alice")) != 0 {
		t.Error("local author's salmon was dispatched")
	}
}

func TestServeHTTP_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t, testPublicKey(t))
	env.handler.MaxBodySize = 64

	rec := post(t, env.handler, "/feeds/alice/salmon", signEntry(t, atomEntry(remoteAuthorURI, postVerb, "")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestServeHTTP_PassesThroughOtherPaths(t *testing.T) {
	env := newTestEnv(t, testPublicKey(t))
	for _, path := range []string{"/", "/feeds/alice", "/feeds/alice/atom", "/feeds//salmon", "/feeds/a/b/salmon", "/feeds/salmon"} {
		rec := post(t, env.handler, path, []byte("x"))
		if rec.Code != http.StatusTeapot {
			t.Errorf("%s: status = %d, want next handler", path, rec.Code)
		}
	}
}

func TestServeHTTP_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, testPublicKey(t))
	req := httptest.NewRequest(http.MethodGet, "/feeds/alice/salmon", nil)
	rec := httptest.NewRecorder()

	err := env.handler.ServeHTTP(rec, req, nextHandler)
	var handlerErr caddyhttp.HandlerError
	if !errors.As(err, &handlerErr) || handlerErr.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("error = %v, want 405 handler error", err)
	}
	if rec.Header().Get("Allow") != http.MethodPost {
		t.Errorf("Allow = %q", rec.Header().Get("Allow"))
	}
}

func TestServeHTTP_LogsRejections(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	env := newTestEnv(t, testPublicKey(t))
	env.handler.SetLogger(zap.New(core))

	post(t, env.handler, "/feeds/nobody/salmon", []byte("<x/>"))

	entries := logs.FilterMessage("salmon rejected").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 rejection log, got %d", len(entries))
	}
	if code := entries[0].ContextMap()["code"]; code != "feed_not_found" {
		t.Errorf("logged code = %v", code)
	}
}

func TestServeHTTP_ServiceErrorFromHandler(t *testing.T) {
	env := newTestEnv(t, testPublicKey(t))
	env.handler.SetActivityHandler(failingHandler{})

	rec := post(t, env.handler, "/feeds/alice/salmon", signEntry(t, atomEntry(remoteAuthorURI, postVerb, "")))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if code := errorCode(t, rec); code != domain.ErrCodeServiceError.String() {
		t.Errorf("code = %q", code)
	}
}

type failingHandler struct{}

func (failingHandler) Handle(context.Context, *domain.Feed, *domain.RemoteAuthor, *domain.Activity) error {
	return errors.New("storage offline")
}
