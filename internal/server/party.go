package server

import (
	"github.com/gin-gonic/gin"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
)

func (s *Server) CreateParty(kind partydomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req partydomain.CreateRequest
		if !bindJSON(c, &req) {
			return
		}

		resp, err := s.partySvc.Create(c.Request.Context(), kind, req)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		respondCreated(c, resp)
	}
}

func (s *Server) ListParties(kind partydomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req partydomain.ListRequest
		if !bindQuery(c, &req) {
			return
		}

		resp, err := s.partySvc.List(c.Request.Context(), kind, req)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		respondOK(c, resp)
	}
}

func (s *Server) GetParty(kind partydomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := s.partySvc.Get(c.Request.Context(), kind, c.Param("id"))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		respondOK(c, resp)
	}
}

func (s *Server) DeleteParty(kind partydomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.partySvc.Delete(c.Request.Context(), kind, c.Param("id")); err != nil {
			AbortWithError(c, err)
			return
		}
		respondDeleted(c)
	}
}
