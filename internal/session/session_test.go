package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func requestWithCookie(token string) *http.Request {
	r := httptest.NewRequest("GET", "/", nil)
	if token != "" {
		r.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	}
	return r
}

func TestSessionRoundtrip(t *testing.T) {
	m := NewManager(Config{Secret: "test-secret"}, zap.NewNop())

	token, err := m.issueToken(User{ID: "user-7", Email: "u@example.com"}, time.Now())
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}

	u := m.CurrentUser(requestWithCookie(token))
	if u == nil {
		t.Fatal("CurrentUser returned nil for a valid session")
	}
	if u.ID != "user-7" || u.Email != "u@example.com" {
		t.Errorf("user = %+v", u)
	}
}

func TestMissingCookieIsAnonymous(t *testing.T) {
	m := NewManager(Config{Secret: "test-secret"}, zap.NewNop())
	if u := m.CurrentUser(requestWithCookie("")); u != nil {
		t.Fatalf("user = %+v, want nil", u)
	}
}

func TestTamperedTokenIsAnonymous(t *testing.T) {
	m := NewManager(Config{Secret: "test-secret"}, zap.NewNop())
	token, err := m.issueToken(User{ID: "user-7"}, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	// Flip a character in the signature segment.
	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	parts[2] = string(sig)

	if u := m.CurrentUser(requestWithCookie(strings.Join(parts, "."))); u != nil {
		t.Fatalf("user = %+v, want nil for a tampered token", u)
	}
}

func TestWrongSecretIsAnonymous(t *testing.T) {
	issuer := NewManager(Config{Secret: "secret-a"}, zap.NewNop())
	verifier := NewManager(Config{Secret: "secret-b"}, zap.NewNop())

	token, err := issuer.issueToken(User{ID: "user-7"}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if u := verifier.CurrentUser(requestWithCookie(token)); u != nil {
		t.Fatalf("user = %+v, want nil across secrets", u)
	}
}

func TestExpiredTokenIsAnonymous(t *testing.T) {
	m := NewManager(Config{Secret: "test-secret"}, zap.NewNop())

	token, err := m.issueToken(User{ID: "user-7"}, time.Now().Add(-2*sessionTTL))
	if err != nil {
		t.Fatal(err)
	}
	if u := m.CurrentUser(requestWithCookie(token)); u != nil {
		t.Fatalf("user = %+v, want nil for an expired session", u)
	}
}

func TestConfigured(t *testing.T) {
	m := NewManager(Config{Secret: "s"}, zap.NewNop())
	if m.Configured() {
		t.Error("Configured() = true without OAuth credentials")
	}

	m = NewManager(Config{Secret: "s", GitHubClientID: "id", GitHubClientSecret: "sec"}, zap.NewNop())
	if !m.Configured() {
		t.Error("Configured() = false with OAuth credentials")
	}
}
