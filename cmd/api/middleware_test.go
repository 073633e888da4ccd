package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	e := newTestEnv(t)

	for name, header := range map[string]string{
		"garbage token": "Bearer not-a-jwt",
		"wrong scheme":  "Token abc",
		"no token":      "Bearer",
	} {
		req := httptest.NewRequest(http.MethodGet, "/v1/movies", nil)
		req.Header.Set("Authorization", header)
		rr := httptest.NewRecorder()
		e.handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, rr.Code)
		}
		if got := rr.Header().Get("WWW-Authenticate"); got != "Bearer" {
			t.Errorf("%s: WWW-Authenticate = %q", name, got)
		}
	}

	// A validly signed token for a user that does not exist.
	res := e.do(t, http.MethodGet, "/v1/movies", tokenFor(t, 42), nil)
	if res.status != http.StatusUnauthorized {
		t.Errorf("unknown user: status = %d, want 401", res.status)
	}
}

func TestRequestID(t *testing.T) {
	e := newTestEnv(t)

	res := e.do(t, http.MethodGet, "/v1/healthcheck", "", nil)
	if _, err := uuid.Parse(res.header.Get("X-Request-Id")); err != nil {
		t.Errorf("generated request id %q: %v", res.header.Get("X-Request-Id"), err)
	}

	sent := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/v1/healthcheck", nil)
	req.Header.Set("X-Request-Id", sent)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-Id"); got != sent {
		t.Errorf("request id = %q, want %q", got, sent)
	}
}

func TestRateLimit(t *testing.T) {
	e := newTestEnv(t)
	e.app.config.limiter.enabled = true
	e.app.config.limiter.rps = 1
	e.app.config.limiter.burst = 2

	var codes []int
	for range 3 {
		codes = append(codes, e.do(t, http.MethodGet, "/v1/healthcheck", "", nil).status)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want [200 200 429]", codes)
	}
}

func TestRecoverPanic(t *testing.T) {
	e := newTestEnv(t)

	h := e.app.recoverPanic(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
	if got := rr.Header().Get("Connection"); got != "close" {
		t.Errorf("Connection = %q, want close", got)
	}
}

func TestCORS(t *testing.T) {
	e := newTestEnv(t)
	e.app.config.cors.trustedOrigins = []string{"https://films.example.com"}
	handler := e.app.routes()

	for origin, allowed := range map[string]bool{
		"https://films.example.com": true,
		"https://evil.example.com":  false,
	} {
		req := httptest.NewRequest(http.MethodGet, "/v1/movies", nil)
		req.Header.Set("Origin", origin)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		got := rr.Header().Get("Access-Control-Allow-Origin")
		if allowed && got != origin {
			t.Errorf("%s: Access-Control-Allow-Origin = %q", origin, got)
		}
		if !allowed && got != "" {
			t.Errorf("%s: untrusted origin allowed", origin)
		}
	}
}

func TestHealthcheckAndNotFound(t *testing.T) {
	e := newTestEnv(t)

	res := e.do(t, http.MethodGet, "/v1/healthcheck", "", nil)
	if res.status != http.StatusOK || res.body["status"] != "available" {
		t.Errorf("healthcheck: status = %d, body = %v", res.status, res.body)
	}
	if got := res.object(t, "system_info")["version"]; got != version {
		t.Errorf("version = %v", got)
	}

	if res := e.do(t, http.MethodGet, "/v1/nothing-here", "", nil); res.status != http.StatusNotFound {
		t.Errorf("unknown route: status = %d, want 404", res.status)
	}

	if res := e.do(t, http.MethodPut, "/v1/users", "", nil); res.status != http.StatusMethodNotAllowed {
		t.Errorf("wrong method: status = %d, want 405", res.status)
	}
}
