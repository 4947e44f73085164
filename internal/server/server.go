// Package server exposes the protected demo routes. Each route pairs a
// policy template from the startup-built set with the guard pipeline; the
// handlers themselves only translate outcomes into response bodies.
package server

import (
	"github.com/dhawalhost/gatewarden/internal/audit"
	"github.com/dhawalhost/gatewarden/internal/guard"
	"github.com/dhawalhost/gatewarden/internal/policy"
	"github.com/dhawalhost/gatewarden/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server holds the handler dependencies.
type Server struct {
	guard    *guard.Guard
	policies policy.Set
	auth     session.Authenticator
	logger   *zap.Logger
	audit    *audit.Store
}

// Option configures a Server.
type Option func(*Server)

// WithAuditStore enables the audit query endpoint.
func WithAuditStore(store *audit.Store) Option {
	return func(s *Server) { s.audit = store }
}

// New creates a Server.
func New(g *guard.Guard, policies policy.Set, auth session.Authenticator, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{guard: g, policies: policies, auth: auth, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRoutes registers the protected routes.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/", s.index)
	r.GET("/healthz", s.health)

	r.GET("/attack/test", s.attackTest)
	r.GET("/bots/test", s.botsTest)
	r.GET("/rate-limit", s.rateLimitInfo)
	r.POST("/rate-limit", s.rateLimitTest)
	r.POST("/signup", s.signup)
	r.POST("/sensitive-info", s.sensitiveInfo)

	if s.audit != nil {
		r.GET("/audit/recent", s.auditRecent)
	}
}

func (s *Server) index(c *gin.Context) {
	c.JSON(200, gin.H{
		"message": "gatewarden",
		"routes": []string{
			"GET /attack/test",
			"GET /bots/test",
			"POST /rate-limit",
			"POST /signup",
			"POST /sensitive-info",
		},
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
