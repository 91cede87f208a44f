package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/solacelabs/companiond/internal/auth"
	"github.com/solacelabs/companiond/internal/core"
	"github.com/solacelabs/companiond/internal/prompt"
)

// seedSeparator splits a companion's canned opening text into turns.
const seedSeparator = "\n\n"

// chatRequest accepts either a raw prompt or a messages array; with
// both, the last message wins.
type chatRequest struct {
	Prompt   string `json:"prompt"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func (r *chatRequest) userPrompt() string {
	if len(r.Messages) > 0 {
		return strings.TrimSpace(r.Messages[len(r.Messages)-1].Content)
	}
	return strings.TrimSpace(r.Prompt)
}

// handleChat is the main chat endpoint. The default response is an
// incrementally flushed text stream; ?stream=false buffers the
// completed reply into one JSON document.
func (s *Server) handleChat(c *gin.Context) {
	ident := identityFrom(c)

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.reject(c, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}
	userPrompt := req.userPrompt()
	if userPrompt == "" {
		s.reject(c, http.StatusBadRequest, codeBadRequest, "empty prompt")
		return
	}

	// Rate limit before any expensive work: no history writes, no
	// retrieval, no model spend on a denied request.
	identity := c.FullPath() + "-" + ident.UserID
	if !s.cfg.Limiter.Check(identity) {
		s.reject(c, http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded")
		return
	}

	if c.Query("stream") == "false" {
		reply, err := s.runChat(c.Request.Context(), ident, c.Param("companionId"), userPrompt, func(string) {})
		if err != nil {
			s.rejectErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reply": reply})
		return
	}

	wroteAny := false
	_, err := s.runChat(c.Request.Context(), ident, c.Param("companionId"), userPrompt, func(chunk string) {
		if !wroteAny {
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Status(http.StatusOK)
			wroteAny = true
		}
		c.Writer.WriteString(chunk)
		c.Writer.Flush()
	})
	if err != nil {
		if !wroteAny {
			s.rejectErr(c, err)
			return
		}
		// The status line is gone; all we can do is stop and log.
		log.Printf("[CHAT] Stream aborted after first byte: %v", err)
	}
}

// runChat executes one conversation turn: seed-if-empty, append the
// user turn, retrieve relevant background keyed on recent history,
// assemble the prompt, and stream the completion. Shared by the HTTP
// and WebSocket transports.
func (s *Server) runChat(ctx context.Context, ident *auth.Identity, companionID, userPrompt string, onDelta func(string)) (string, error) {
	comp, err := s.cfg.Companions.Get(ctx, companionID)
	if err != nil {
		return "", err
	}

	key := core.CompanionKey{
		CompanionID: comp.ID,
		UserID:      ident.UserID,
		ModelName:   s.cfg.Model,
	}

	if _, err := s.cfg.History.Seed(ctx, key, comp.Seed, seedSeparator); err != nil {
		return "", fmt.Errorf("seed history: %w", err)
	}

	// The user turn lands before the model call: a model failure from
	// here on leaves it recorded with no reply, by contract.
	if err := s.cfg.History.Append(ctx, key, core.RoleUser, "User", userPrompt); err != nil {
		return "", fmt.Errorf("append user turn: %w", err)
	}

	recent, err := s.cfg.History.ReadLatest(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read history: %w", err)
	}

	// Retrieval is keyed on the recent history window, not just the
	// latest utterance, so matches track the conversation.
	matches, err := s.cfg.Index.Search(ctx, comp.ID, strings.Join(recent, "\n"), retrievalTopK)
	if err != nil {
		log.Printf("[CHAT] Vector search failed for %s, continuing without: %v", comp.ID, err)
		matches = nil
	}
	relevant := make([]string, 0, len(matches))
	for _, m := range matches {
		relevant = append(relevant, m.Content)
	}

	promptText := prompt.Assemble(prompt.Params{
		CompanionName:   comp.Name,
		Instructions:    comp.Instructions,
		RelevantHistory: relevant,
		RecentHistory:   recent,
		MaxBytes:        s.cfg.PromptMaxBytes,
	})

	return s.cfg.Orchestrator.Complete(ctx, key, comp.Name, promptText, onDelta)
}

// handleHistory returns the trailing structured turns for the caller's
// conversation with a companion.
func (s *Server) handleHistory(c *gin.Context) {
	ident := identityFrom(c)

	comp, err := s.cfg.Companions.Get(c.Request.Context(), c.Param("companionId"))
	if err != nil {
		s.rejectErr(c, err)
		return
	}

	key := core.CompanionKey{CompanionID: comp.ID, UserID: ident.UserID, ModelName: s.cfg.Model}
	turns, err := s.cfg.History.ReadMessages(c.Request.Context(), key, 0)
	if err != nil {
		s.rejectErr(c, err)
		return
	}

	out := make([]gin.H, 0, len(turns))
	for _, t := range turns {
		out = append(out, gin.H{
			"role":       string(t.Role),
			"content":    t.Content,
			"created_at": t.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"companion_id": comp.ID, "turns": out})
}
