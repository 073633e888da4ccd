package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hafizmfadli/film-library/internal/auth"
	"github.com/hafizmfadli/film-library/internal/data"
	"github.com/hafizmfadli/film-library/internal/jsonlog"
)

const testSecret = "test-secret-with-enough-entropy"

type sentMail struct {
	recipient string
	template  string
	data      any
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) Send(recipient, templateFile string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{recipient, templateFile, data})
	return nil
}

type testEnv struct {
	app     *application
	store   *memStore
	mailer  *fakeMailer
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	var cfg config
	cfg.env = "testing"
	cfg.jwt.secret = testSecret
	cfg.jwt.ttl = time.Hour

	store := newMemStore()
	mailer := &fakeMailer{}

	app := &application{
		config: cfg,
		logger: jsonlog.NewLogger(io.Discard, jsonlog.LevelOff),
		models: store.models(),
		mailer: mailer,
	}

	return &testEnv{app: app, store: store, mailer: mailer, handler: app.routes()}
}

// addUser stores a user directly and returns it with a bearer token. Setting
// a password is skipped: bcrypt is slow and most tests never log in.
func (e *testEnv) addUser(t *testing.T, username string, elevated bool) (*data.User, string) {
	t.Helper()

	user := &data.User{Username: username, IsSuperuser: elevated, IsActive: true}
	if err := e.app.models.Users.Insert(user); err != nil {
		t.Fatal(err)
	}

	return user, tokenFor(t, user.ID)
}

type response struct {
	status int
	header http.Header
	body   map[string]any
}

// do sends a request through the full middleware chain. body is marshalled
// to JSON unless nil.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		js, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reqBody = bytes.NewReader(js)
	}

	req := httptest.NewRequest(method, path, reqBody)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)

	res := response{status: rr.Code, header: rr.Header()}
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &res.body); err != nil {
			t.Fatalf("%s %s: decoding response %q: %v", method, path, rr.Body.String(), err)
		}
	}
	return res
}

// object returns body[key] as a JSON object.
func (r response) object(t *testing.T, key string) map[string]any {
	t.Helper()
	obj, ok := r.body[key].(map[string]any)
	if !ok {
		t.Fatalf("response has no object %q: %v", key, r.body)
	}
	return obj
}

// array returns body[key] as a JSON array.
func (r response) array(t *testing.T, key string) []any {
	t.Helper()
	arr, ok := r.body[key].([]any)
	if !ok {
		t.Fatalf("response has no array %q: %v", key, r.body)
	}
	return arr
}

// jsonID returns the "id" field of a JSON object as an int64.
func jsonID(obj map[string]any) int64 {
	f, _ := obj["id"].(float64)
	return int64(f)
}

func tokenFor(t *testing.T, userID int64) string {
	t.Helper()

	token, err := auth.Issue([]byte(testSecret), userID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return token.Plaintext
}
