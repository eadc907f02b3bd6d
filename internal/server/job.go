package server

import (
	"github.com/gin-gonic/gin"
	jobdomain "github.com/smallbiznis/lingoflow/internal/job/domain"
)

// lineVariant binds one financial line route family to its direction and kind.
type lineVariant struct {
	path      string
	direction jobdomain.Direction
	kind      jobdomain.LineKind
}

var lineVariants = []lineVariant{
	{path: "/job-unit-receivables", direction: jobdomain.DirectionReceivable, kind: jobdomain.LineKindUnitBased},
	{path: "/job-unit-payables", direction: jobdomain.DirectionPayable, kind: jobdomain.LineKindUnitBased},
	{path: "/job-flat-receivables", direction: jobdomain.DirectionReceivable, kind: jobdomain.LineKindFlatRate},
	{path: "/job-flat-payables", direction: jobdomain.DirectionPayable, kind: jobdomain.LineKindFlatRate},
}

func (s *Server) CreateJob(c *gin.Context) {
	var req jobdomain.CreateRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.jobSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, resp)
}

func (s *Server) ListJobs(c *gin.Context) {
	var req jobdomain.ListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := s.jobSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, resp)
}

func (s *Server) GetJob(c *gin.Context) {
	resp, err := s.jobSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, resp)
}

func (s *Server) DeleteJob(c *gin.Context) {
	if err := s.jobSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	respondDeleted(c)
}

func (s *Server) SuggestPrices(c *gin.Context) {
	direction, err := jobdomain.ParseDirection(c.Query("direction"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.ledgerSvc.Suggest(c.Request.Context(), direction, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, resp)
}

func (s *Server) GetFinancialSummary(c *gin.Context) {
	resp, err := s.ledgerSvc.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, resp)
}

func (s *Server) CreateFinancialLine(v lineVariant) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req jobdomain.LineRequest
		if !bindJSON(c, &req) {
			return
		}

		resp, err := s.ledgerSvc.CreateLine(c.Request.Context(), v.direction, v.kind, req)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		respondCreated(c, resp)
	}
}

func (s *Server) ListFinancialLines(v lineVariant) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := s.ledgerSvc.ListLines(c.Request.Context(), v.direction, v.kind, c.Query("job_id"))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		respondOK(c, resp)
	}
}

func (s *Server) GetFinancialLine(v lineVariant) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := s.ledgerSvc.GetLine(c.Request.Context(), v.direction, v.kind, c.Param("id"))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		respondOK(c, resp)
	}
}

func (s *Server) UpdateFinancialLine(v lineVariant) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req jobdomain.LineRequest
		if !bindJSON(c, &req) {
			return
		}

		resp, err := s.ledgerSvc.UpdateLine(c.Request.Context(), v.direction, v.kind, c.Param("id"), req)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		respondOK(c, resp)
	}
}

func (s *Server) DeleteFinancialLine(v lineVariant) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.ledgerSvc.DeleteLine(c.Request.Context(), v.direction, v.kind, c.Param("id")); err != nil {
			AbortWithError(c, err)
			return
		}
		respondDeleted(c)
	}
}
