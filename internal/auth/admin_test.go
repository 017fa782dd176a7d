package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestAdminToken_RoundTrip(t *testing.T) {
	m := NewAdminTokenManager(testSecret, "123456789012")

	token, err := m.Generate(time.Minute)
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "123456789012", claims.AccountID)
}

func TestAdminToken_RejectsForeignAccount(t *testing.T) {
	issuer := NewAdminTokenManager(testSecret, "999999999999")
	verifier := NewAdminTokenManager(testSecret, "123456789012")

	token, err := issuer.Generate(time.Minute)
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.Error(t, err)
}

func TestAdminToken_RejectsWrongSecret(t *testing.T) {
	issuer := NewAdminTokenManager("another-secret-of-sufficient-size!!", "123456789012")
	verifier := NewAdminTokenManager(testSecret, "123456789012")

	token, err := issuer.Generate(time.Minute)
	require.NoError(t, err)

	_, err = verifier.Validate(token)
	assert.Error(t, err)
}

func TestAdminToken_RejectsExpired(t *testing.T) {
	m := NewAdminTokenManager(testSecret, "123456789012")

	token, err := m.Generate(-time.Minute)
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.Error(t, err)
}

func TestAdminMiddleware_SetsPrivilegedCaller(t *testing.T) {
	m := NewAdminTokenManager(testSecret, "123456789012")
	token, err := m.Generate(time.Minute)
	require.NoError(t, err)

	var got CallerContext
	handler := AdminMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = CallerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/admin/analyze", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, got.Privileged)
	assert.Equal(t, "account#123456789012", got.Identity)
}

func TestAdminMiddleware_MissingTokenIs403(t *testing.T) {
	m := NewAdminTokenManager(testSecret, "123456789012")

	handler := AdminMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without credentials")
	}))

	req := httptest.NewRequest("POST", "/admin/analyze", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body struct {
		OK    bool `json:"ok"`
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.OK)
	assert.Equal(t, "AuthorizationError", body.Error.Kind)
}

func TestAdminMiddleware_GarbageTokenIs403(t *testing.T) {
	m := NewAdminTokenManager(testSecret, "123456789012")

	handler := AdminMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with bad credentials")
	}))

	req := httptest.NewRequest("POST", "/admin/analyze", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestIdentify_PrefersClientIDHeader(t *testing.T) {
	req := httptest.NewRequest("POST", "/analyze", nil)
	req.Header.Set("X-Client-ID", "device-42")
	req.RemoteAddr = "10.1.2.3:5555"

	caller := Identify(req)
	assert.Equal(t, "user#device-42", caller.Identity)
	assert.False(t, caller.Privileged)
}

func TestIdentify_FallsBackToIP(t *testing.T) {
	req := httptest.NewRequest("POST", "/analyze", nil)
	req.RemoteAddr = "10.1.2.3:5555"

	assert.Equal(t, "user#ip:10.1.2.3", Identify(req).Identity)

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "user#ip:203.0.113.9", Identify(req).Identity)
}
