// Package server exposes companiond over HTTP and WebSocket.
package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/solacelabs/companiond/internal/auth"
	"github.com/solacelabs/companiond/internal/companion"
	"github.com/solacelabs/companiond/internal/completion"
	"github.com/solacelabs/companiond/internal/core"
	"github.com/solacelabs/companiond/internal/history"
	"github.com/solacelabs/companiond/internal/memory"
	"github.com/solacelabs/companiond/internal/ratelimit"
)

// Rejection codes form the binding contract with callers: three
// specific rejection kinds, one generic fault, plus success.
const (
	codeUnauthorized  = "UNAUTHORIZED"
	codeRateLimited   = "RATE_LIMITED"
	codeNotFound      = "NOT_FOUND"
	codeBadRequest    = "BAD_REQUEST"
	codeInternalError = "INTERNAL_ERROR"
)

// retrievalTopK is how many background chunks one chat turn retrieves.
const retrievalTopK = 3

// Config wires the server's collaborators together.
type Config struct {
	Auth         auth.Provider
	Companions   *companion.Store
	History      *history.Store
	Index        *memory.Index
	Limiter      *ratelimit.Limiter
	Orchestrator *completion.Orchestrator

	// Model tags every CompanionKey this server produces.
	Model string

	// PromptMaxBytes bounds the assembled prompt.
	PromptMaxBytes int
}

// Server handles chat and companion management requests.
type Server struct {
	cfg Config
}

// New creates a Server from its collaborators.
func New(cfg Config) *Server {
	return &Server{cfg: cfg}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(s.authMiddleware())
	{
		api.POST("/chat/:companionId", s.handleChat)
		api.GET("/chat/:companionId/history", s.handleHistory)
		api.GET("/chat/:companionId/ws", s.handleChatWS)

		api.POST("/companions", s.handleCreateCompanion)
		api.GET("/companions", s.handleListCompanions)
		api.GET("/companions/:id", s.handleGetCompanion)
	}

	return r
}

// authMiddleware resolves the bearer token to an identity and stores
// it on the request context. Requests without a resolvable, complete
// identity are rejected before any work happens.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" {
			s.reject(c, http.StatusUnauthorized, codeUnauthorized, "missing credentials")
			c.Abort()
			return
		}

		ident, err := s.cfg.Auth.Authenticate(token)
		if err != nil {
			s.reject(c, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
			c.Abort()
			return
		}

		c.Set("identity", ident)
		c.Next()
	}
}

func identityFrom(c *gin.Context) *auth.Identity {
	v, _ := c.Get("identity")
	ident, _ := v.(*auth.Identity)
	return ident
}

// reject writes the JSON error envelope.
func (s *Server) reject(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

// rejectErr maps sentinel errors onto the rejection vocabulary.
// Everything unrecognized collapses to a generic internal error; no
// internal detail reaches the caller.
func (s *Server) rejectErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrUnauthenticated):
		s.reject(c, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
	case errors.Is(err, core.ErrRateLimited):
		s.reject(c, http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded")
	case errors.Is(err, core.ErrNotFound):
		s.reject(c, http.StatusNotFound, codeNotFound, "not found")
	case errors.Is(err, core.ErrMalformedRequest):
		s.reject(c, http.StatusBadRequest, codeBadRequest, "malformed request")
	default:
		s.reject(c, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
