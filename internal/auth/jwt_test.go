package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/codebench/codebench/pkg/protocol"
)

func newTestAuth(t *testing.T) *Auth {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return New("test-secret", "dev", string(hash))
}

func TestLoginIssuesValidToken(t *testing.T) {
	a := newTestAuth(t)

	body := strings.NewReader(`{"username":"dev","password":"hunter2"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", body)
	rec := httptest.NewRecorder()
	a.HandleLogin(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200", rec.Code)
	}
	var resp protocol.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a token")
	}

	claims, err := a.validateToken(resp.Token)
	if err != nil {
		t.Fatalf("validateToken: %v", err)
	}
	if claims.Username != "dev" {
		t.Errorf("claims username = %q, want dev", claims.Username)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	a := newTestAuth(t)

	for _, body := range []string{
		`{"username":"dev","password":"wrong"}`,
		`{"username":"other","password":"hunter2"}`,
		`{"username":"","password":""}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(body))
		rec := httptest.NewRecorder()
		a.HandleLogin(rec, req)
		if rec.Code == http.StatusOK {
			t.Errorf("login %s succeeded, want rejection", body)
		}
	}
}

func TestMiddleware(t *testing.T) {
	a := newTestAuth(t)
	token, _, err := a.IssueToken("dev")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r.Context())
		if claims == nil || claims.Username != "dev" {
			t.Error("claims missing from request context")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	// Valid bearer token
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tree", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("bearer token status = %d, want 204", rec.Code)
	}

	// Query-parameter fallback
	req = httptest.NewRequest(http.MethodGet, "/api/v1/events?token="+token, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("query token status = %d, want 204", rec.Code)
	}

	// Missing token
	req = httptest.NewRequest(http.MethodGet, "/api/v1/tree", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token status = %d, want 401", rec.Code)
	}

	// Token signed with a different secret
	other := New("other-secret", "dev", "")
	badToken, _, err := other.IssueToken("dev")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/v1/tree", nil)
	req.Header.Set("Authorization", "Bearer "+badToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("forged token status = %d, want 401", rec.Code)
	}
}
