// Package session is the auth collaborator of the decision layer: it answers
// "who is making this request" from a signed session cookie, and owns the
// GitHub OAuth login flow that creates those cookies.
package session

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// User is the authenticated identity stored in the session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Authenticator resolves the current user from a request. A nil result means
// the request is anonymous.
type Authenticator interface {
	CurrentUser(r *http.Request) *User
}

const (
	cookieName = "gatewarden_session"
	sessionTTL = 24 * time.Hour
)

// Manager implements Authenticator over an HMAC-signed JWT cookie and serves
// the GitHub OAuth login flow.
type Manager struct {
	secret []byte
	oauth  *oauth2.Config
	logger *zap.Logger
}

// Config holds session manager configuration.
type Config struct {
	Secret             string
	GitHubClientID     string
	GitHubClientSecret string
	RedirectURL        string
}

// NewManager creates a session manager. OAuth credentials may be absent; the
// login routes then refuse with an operator hint, and every request is
// treated as anonymous until login works.
func NewManager(cfg Config, logger *zap.Logger) *Manager {
	m := &Manager{
		secret: []byte(cfg.Secret),
		logger: logger,
	}
	if cfg.GitHubClientID != "" && cfg.GitHubClientSecret != "" {
		m.oauth = &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}
	} else {
		logger.Warn("GitHub OAuth not configured; login is disabled",
			zap.String("hint", "set AUTH_GITHUB_ID and AUTH_GITHUB_SECRET"))
	}
	return m
}

// Configured reports whether OAuth login is available.
func (m *Manager) Configured() bool { return m.oauth != nil }

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// CurrentUser implements Authenticator. Missing, expired or tampered cookies
// all read as anonymous; session problems never fail a request.
func (m *Manager) CurrentUser(r *http.Request) *User {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	var claims sessionClaims
	token, err := jwt.ParseWithClaims(cookie.Value, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil
	}

	return &User{ID: claims.Subject, Email: claims.Email}
}

// issueToken signs a session JWT for the user.
func (m *Manager) issueToken(u User, now time.Time) (string, error) {
	claims := sessionClaims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}
