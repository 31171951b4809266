package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	reportdomain "github.com/ecoledger/ecoledger/internal/report/domain"
)

type generateReportRequest struct {
	OrganizationName string    `json:"organization_name"`
	Country          string    `json:"country"`
	PeriodStart      time.Time `json:"period_start"`
	PeriodEnd        time.Time `json:"period_end"`
}

func (s *Server) GenerateReport(c *gin.Context) {
	if s.reportSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	var req generateReportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	report, err := s.reportSvc.Generate(c.Request.Context(), reportdomain.GenerateRequest{
		OrgID:            orgIDFrom(c),
		OrganizationName: strings.TrimSpace(req.OrganizationName),
		Country:          strings.TrimSpace(req.Country),
		PeriodStart:      req.PeriodStart,
		PeriodEnd:        req.PeriodEnd,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"report": report})
}

func (s *Server) ListReports(c *gin.Context) {
	if s.reportSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	reports, err := s.reportSvc.List(c.Request.Context(), orgIDFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// GetReport serves the stored HTML when the client asks for text/html,
// otherwise the report metadata as JSON.
func (s *Server) GetReport(c *gin.Context) {
	if s.reportSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	report, err := s.reportSvc.Get(c.Request.Context(), orgIDFrom(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if strings.Contains(c.GetHeader("Accept"), "text/html") {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(report.HTML))
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}
