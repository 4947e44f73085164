package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dhawalhost/gatewarden/internal/actor"
	"github.com/dhawalhost/gatewarden/internal/decision"
	"github.com/dhawalhost/gatewarden/internal/guard"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// currentActor resolves the request's actor from the session collaborator.
func (s *Server) currentActor(c *gin.Context) actor.Actor {
	ip := c.ClientIP()
	if user := s.auth.CurrentUser(c.Request); user != nil {
		return actor.Authenticated(user.ID, user.Email, ip)
	}
	return actor.Anonymous(ip)
}

// writeMessage renders a guard response as a {message} body.
func writeMessage(c *gin.Context, resp guard.Response) {
	for k, v := range resp.Headers {
		c.Header(k, v)
	}
	c.JSON(resp.Status, gin.H{"message": resp.Message})
}

// writeFieldError renders a guard response in the form-validation shape:
// {errors: {field: message}, values: {...}}.
func writeFieldError(c *gin.Context, resp guard.Response, field string, values gin.H) {
	for k, v := range resp.Headers {
		c.Header(k, v)
	}
	c.JSON(resp.Status, gin.H{
		"errors": gin.H{field: resp.Message},
		"values": values,
	})
}

// attackTest is protected by the always-on shield rule only.
func (s *Server) attackTest(c *gin.Context) {
	out := s.guard.Check(c.Request.Context(), c.Request, guard.CheckInput{
		Template: s.policies.Attack,
		Actor:    s.currentActor(c),
	})
	writeMessage(c, guard.MapToResponse(out, time.Now()))
}

// botsTest is protected by bot detection plus a generous fixed window. The
// country greeting is request business logic layered on top of the verdict;
// the VPN veto lives in the response mapper.
func (s *Server) botsTest(c *gin.Context) {
	out := s.guard.Check(c.Request.Context(), c.Request, guard.CheckInput{
		Template: s.policies.Bots,
		Actor:    s.currentActor(c),
	})

	if out.Kind == decision.OutcomeAllowed && !out.IP.IsVPN() && out.IP.Country == "JP" {
		c.JSON(http.StatusOK, gin.H{"message": "Konnichiwa!"})
		return
	}

	writeMessage(c, guard.MapToResponse(out, time.Now()))
}

// rateLimitInfo reports the current session, mirroring what the form page
// shows: which tier the next submission will get.
func (s *Server) rateLimitInfo(c *gin.Context) {
	a := s.currentActor(c)
	if a.IsAuthenticated() {
		c.JSON(http.StatusOK, gin.H{
			"user":  gin.H{"id": a.UserID, "email": a.Email},
			"limit": "5 requests every 60 seconds",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":  nil,
		"limit": "2 requests every 60 seconds",
	})
}

// rateLimitTest is protected by the auth-tiered fixed window.
func (s *Server) rateLimitTest(c *gin.Context) {
	out := s.guard.Check(c.Request.Context(), c.Request, guard.CheckInput{
		Template: s.policies.RateLimit,
		Actor:    s.currentActor(c),
	})
	writeMessage(c, guard.MapToResponse(out, time.Now()))
}

type signupForm struct {
	Email string `form:"email" json:"email" binding:"required"`
}

// signup is protected by the composite signup rule (bot + sliding window +
// email validation). Responses use the form-validation body shape.
func (s *Server) signup(c *gin.Context) {
	var form signupForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"errors": gin.H{"email": bindingMessage(err, "email is required.")},
			"values": gin.H{"email": form.Email},
		})
		return
	}

	out := s.guard.Check(c.Request.Context(), c.Request, guard.CheckInput{
		Template: s.policies.Signup,
		Actor:    s.currentActor(c),
		Email:    form.Email,
	})

	resp := guard.MapToResponse(out, time.Now())
	if resp.Status == http.StatusOK {
		c.JSON(http.StatusOK, gin.H{"message": "signup submitted"})
		return
	}
	writeFieldError(c, resp, "email", gin.H{"email": form.Email})
}

type supportForm struct {
	SupportMessage string `form:"supportMessage" json:"supportMessage" binding:"required"`
}

// sensitiveInfo is protected by the sensitive-info rule; the submitted
// message body is what gets scanned.
func (s *Server) sensitiveInfo(c *gin.Context) {
	var form supportForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"errors": gin.H{"supportMessage": bindingMessage(err, "a message is required.")},
			"values": gin.H{"supportMessage": form.SupportMessage},
		})
		return
	}

	out := s.guard.Check(c.Request.Context(), c.Request, guard.CheckInput{
		Template: s.policies.SensitiveInfo,
		Actor:    s.currentActor(c),
		Body:     form.SupportMessage,
	})

	resp := guard.MapToResponse(out, time.Now())
	if resp.Status == http.StatusOK {
		c.JSON(http.StatusOK, gin.H{"message": "message submitted"})
		return
	}
	writeFieldError(c, resp, "supportMessage", gin.H{"supportMessage": form.SupportMessage})
}

func (s *Server) auditRecent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	events, err := s.audit.Recent(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("query audit events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// bindingMessage translates a binding failure into the user-facing field
// message, keeping validator details out of the response.
func bindingMessage(err error, required string) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return required
	}
	return "could not parse the submitted form."
}
