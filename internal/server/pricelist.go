package server

import (
	"github.com/gin-gonic/gin"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	pricelistdomain "github.com/smallbiznis/lingoflow/internal/pricelist/domain"
)

func (s *Server) CreatePriceList(kind partydomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req pricelistdomain.CreateRequest
		if !bindJSON(c, &req) {
			return
		}

		resp, err := s.priceListSvc.Create(c.Request.Context(), kind, req)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		respondCreated(c, resp)
	}
}

func (s *Server) ListPriceLists(kind partydomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req pricelistdomain.ListRequest
		if !bindQuery(c, &req) {
			return
		}

		resp, err := s.priceListSvc.List(c.Request.Context(), kind, req)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		respondOK(c, resp)
	}
}

func (s *Server) GetPriceList(kind partydomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := s.priceListSvc.Get(c.Request.Context(), kind, c.Param("id"))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		respondOK(c, resp)
	}
}

func (s *Server) UpdatePriceList(kind partydomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req pricelistdomain.UpdateRequest
		if !bindJSON(c, &req) {
			return
		}

		resp, err := s.priceListSvc.Update(c.Request.Context(), kind, c.Param("id"), req)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		respondOK(c, resp)
	}
}

func (s *Server) DeletePriceList(kind partydomain.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.priceListSvc.Delete(c.Request.Context(), kind, c.Param("id")); err != nil {
			AbortWithError(c, err)
			return
		}
		respondDeleted(c)
	}
}
