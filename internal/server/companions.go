package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/solacelabs/companiond/internal/companion"
)

// handleCreateCompanion persists a persona and builds its vector index
// so background retrieval works from the first chat turn.
func (s *Server) handleCreateCompanion(c *gin.Context) {
	var comp companion.Companion
	if err := c.ShouldBindJSON(&comp); err != nil {
		s.reject(c, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	if err := s.cfg.Companions.Create(ctx, &comp); err != nil {
		s.rejectErr(c, err)
		return
	}

	if _, err := s.cfg.Index.BuildIndex(ctx, comp.ID, comp.Background); err != nil {
		// The persona exists; retrieval degrades to no relevant
		// section until the index is rebuilt.
		s.rejectErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, comp)
}

func (s *Server) handleGetCompanion(c *gin.Context) {
	comp, err := s.cfg.Companions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.rejectErr(c, err)
		return
	}
	c.JSON(http.StatusOK, comp)
}

func (s *Server) handleListCompanions(c *gin.Context) {
	companions, err := s.cfg.Companions.List(c.Request.Context())
	if err != nil {
		s.rejectErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"companions": companions})
}
