package server

import (
	"github.com/gin-gonic/gin"
	projectdomain "github.com/smallbiznis/lingoflow/internal/project/domain"
)

func (s *Server) CreateProject(c *gin.Context) {
	var req projectdomain.CreateRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.projectSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, resp)
}

func (s *Server) ListProjects(c *gin.Context) {
	var req projectdomain.ListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := s.projectSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, resp)
}

func (s *Server) GetProject(c *gin.Context) {
	resp, err := s.projectSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, resp)
}

func (s *Server) UpdateProject(c *gin.Context) {
	var req projectdomain.UpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.projectSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, resp)
}

func (s *Server) DeleteProject(c *gin.Context) {
	if err := s.projectSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	respondDeleted(c)
}

func (s *Server) ListProjectStatusHistory(c *gin.Context) {
	resp, err := s.projectSvc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, resp)
}
