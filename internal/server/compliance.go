package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ComplianceStatus(c *gin.Context) {
	if s.complianceSvc == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	status, err := s.complianceSvc.Evaluate(c.Request.Context(), orgIDFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"compliance": status})
}
