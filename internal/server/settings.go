package server

import (
	"github.com/gin-gonic/gin"
	settingsdomain "github.com/smallbiznis/lingoflow/internal/settings/domain"
)

func (s *Server) GetVendorSettings(c *gin.Context) {
	resp, err := s.settingsSvc.Get(c.Request.Context(), c.Param("vendor_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, resp)
}

func (s *Server) UpdateVendorSettings(c *gin.Context) {
	var req settingsdomain.UpsertRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.settingsSvc.Upsert(c.Request.Context(), c.Param("vendor_id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, resp)
}
