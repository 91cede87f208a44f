package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/solacelabs/companiond/internal/core"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Auth happens via the bearer token, not the origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsFrame is one server-to-client websocket message.
type wsFrame struct {
	Type    string `json:"type"` // chunk | done | error
	Content string `json:"content,omitempty"`
	Code    string `json:"code,omitempty"`
}

// handleChatWS serves the streaming deployment mode over a websocket:
// each client frame carries one prompt, each reply arrives as chunk
// frames followed by a done frame with the full text.
func (s *Server) handleChatWS(c *gin.Context) {
	ident := identityFrom(c)
	companionID := c.Param("companionId")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			return // client closed or sent garbage
		}
		userPrompt := req.userPrompt()
		if userPrompt == "" {
			conn.WriteJSON(wsFrame{Type: "error", Code: codeBadRequest})
			continue
		}

		if !s.cfg.Limiter.Check(c.FullPath() + "-" + ident.UserID) {
			conn.WriteJSON(wsFrame{Type: "error", Code: codeRateLimited})
			continue
		}

		reply, err := s.runChat(c.Request.Context(), ident, companionID, userPrompt, func(chunk string) {
			conn.WriteJSON(wsFrame{Type: "chunk", Content: chunk})
		})
		if err != nil {
			conn.WriteJSON(wsFrame{Type: "error", Code: wsErrorCode(err)})
			continue
		}

		conn.WriteJSON(wsFrame{Type: "done", Content: reply})
	}
}

func wsErrorCode(err error) string {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return codeNotFound
	case errors.Is(err, core.ErrMalformedRequest):
		return codeBadRequest
	default:
		return codeInternalError
	}
}
