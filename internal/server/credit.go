package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	creditdomain "github.com/ecoledger/ecoledger/internal/credit/domain"
)

type estimateCreditsRequest struct {
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
	OffsetPercent string    `json:"offset_percent"`
	ProjectType   string    `json:"project_type"`
}

func (s *Server) EstimateCredits(c *gin.Context) {
	if s.creditSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	var req estimateCreditsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	estimate, err := s.creditSvc.Estimate(c.Request.Context(), creditdomain.EstimateRequest{
		OrgID:         orgIDFrom(c),
		PeriodStart:   req.PeriodStart,
		PeriodEnd:     req.PeriodEnd,
		OffsetPercent: req.OffsetPercent,
		ProjectType:   req.ProjectType,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"estimate": estimate})
}

func (s *Server) ListCreditProjects(c *gin.Context) {
	if s.creditSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	projects, err := s.creditSvc.ListProjects(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects.Projects})
}
