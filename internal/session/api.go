package session

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const stateCookie = "gatewarden_oauth_state"

// RegisterRoutes registers the login/logout routes.
func (m *Manager) RegisterRoutes(r *gin.Engine) {
	r.GET("/auth/github", m.login)
	r.GET("/auth/github/callback", m.callback)
	r.POST("/logout", m.logout)
}

func (m *Manager) login(c *gin.Context) {
	if !m.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"message": "GitHub OAuth is not configured. Are AUTH_GITHUB_ID and AUTH_GITHUB_SECRET set?",
		})
		return
	}

	state := uuid.NewString()
	c.SetCookie(stateCookie, state, int((5 * time.Minute).Seconds()), "/", "", false, true)
	c.Redirect(http.StatusFound, m.oauth.AuthCodeURL(state))
}

func (m *Manager) callback(c *gin.Context) {
	if !m.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "GitHub OAuth is not configured"})
		return
	}

	state, err := c.Cookie(stateCookie)
	if err != nil || state == "" || c.Query("state") != state {
		c.JSON(http.StatusBadRequest, gin.H{"message": "OAuth state mismatch"})
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)

	token, err := m.oauth.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		m.logger.Error("OAuth code exchange failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"message": "login failed"})
		return
	}

	user, err := m.fetchGitHubUser(c, token.AccessToken)
	if err != nil {
		m.logger.Error("fetch GitHub profile failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"message": "login failed"})
		return
	}

	jwtToken, err := m.issueToken(user, time.Now())
	if err != nil {
		m.logger.Error("issue session token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
		return
	}

	c.SetCookie(cookieName, jwtToken, int(sessionTTL.Seconds()), "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

func (m *Manager) logout(c *gin.Context) {
	c.SetCookie(cookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (m *Manager) fetchGitHubUser(c *gin.Context, accessToken string) (User, error) {
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, "https://api.github.com/user", nil)
	if err != nil {
		return User{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return User{}, err
	}
	defer resp.Body.Close()

	var profile struct {
		ID    json.Number `json:"id"`
		Email string      `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return User{}, err
	}

	return User{ID: profile.ID.String(), Email: profile.Email}, nil
}
