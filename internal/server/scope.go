package server

import (
	"github.com/gin-gonic/gin"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	scopedomain "github.com/smallbiznis/lingoflow/internal/scope/domain"
)

func (s *Server) AddScopeEntry(kind partydomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		dim, err := partydomain.ParseDimension(c.Param("dimension"))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		var req scopedomain.AddRequest
		if !bindJSON(c, &req) {
			return
		}

		resp, err := s.scopeSvc.Add(c.Request.Context(), kind, c.Param("party_id"), dim, req)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		respondCreated(c, resp)
	}
}

func (s *Server) ListScopeEntries(kind partydomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		dim, err := partydomain.ParseDimension(c.Param("dimension"))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		resp, err := s.scopeSvc.List(c.Request.Context(), kind, c.Param("party_id"), dim)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		respondOK(c, resp)
	}
}

func (s *Server) RemoveScopeEntry(kind partydomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		dim, err := partydomain.ParseDimension(c.Param("dimension"))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		if err := s.scopeSvc.Remove(c.Request.Context(), kind, c.Param("party_id"), dim, c.Param("value_id")); err != nil {
			AbortWithError(c, err)
			return
		}
		respondDeleted(c)
	}
}
