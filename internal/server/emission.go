package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	emissiondomain "github.com/ecoledger/ecoledger/internal/emission/domain"
)

type computeEmissionsRequest struct {
	RecordID string `json:"record_id"`
}

// ComputeEmissions computes one record when record_id is given, otherwise
// every pending record for the organization.
func (s *Server) ComputeEmissions(c *gin.Context) {
	var req computeEmissionsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	orgID := orgIDFrom(c)
	if recordID := strings.TrimSpace(req.RecordID); recordID != "" {
		result, err := s.emissionSvc.ComputeForRecord(c.Request.Context(), orgID, recordID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": result})
		return
	}

	outcome, err := s.emissionSvc.ComputePending(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	attempted := len(outcome.Computed) + len(outcome.Failures)
	c.JSON(http.StatusOK, gin.H{
		"status":   fmt.Sprintf("%d of %d records computed", len(outcome.Computed), attempted),
		"computed": outcome.Computed,
		"failures": outcome.Failures,
	})
}

func (s *Server) ListEmissions(c *gin.Context) {
	limit, offset := paginationFrom(c)

	results, err := s.emissionSvc.List(c.Request.Context(), emissiondomain.ListRequest{
		OrgID:  orgIDFrom(c),
		From:   timeQuery(c, "from"),
		To:     timeQuery(c, "to"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) SummarizeEmissions(c *gin.Context) {
	start := timeQuery(c, "start")
	end := timeQuery(c, "end")
	if start.IsZero() || end.IsZero() {
		// Default to the current calendar month.
		now := time.Now().UTC()
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	}

	summary, err := s.emissionSvc.SummarizePeriod(c.Request.Context(), emissiondomain.SummarizeRequest{
		OrgID: orgIDFrom(c),
		Start: start,
		End:   end,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
