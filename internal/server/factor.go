package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ecoledger/ecoledger/internal/events"
	factordomain "github.com/ecoledger/ecoledger/internal/factor/domain"
)

// ResolveFactor discloses which factor a lookup would use without storing
// anything.
func (s *Server) ResolveFactor(c *gin.Context) {
	category := strings.TrimSpace(c.Query("category"))
	if category == "" {
		AbortWithError(c, newValidationError("category", "required", "category is required"))
		return
	}

	resolution, err := s.factorSvc.Resolve(c.Request.Context(), factordomain.ResolveRequest{
		Category: factordomain.Category(category),
		Subtype:  c.Query("subtype"),
		Country:  c.Query("country"),
		Region:   c.Query("region"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"resolution": resolution})
}

// ReloadFactors re-reads the factor reference file and swaps the table.
// In-flight computations keep the snapshot they started with.
func (s *Server) ReloadFactors(c *gin.Context) {
	ctx := c.Request.Context()
	previous := s.factorSvc.Version()

	if err := s.factorSvc.Reload(ctx); err != nil {
		AbortWithError(c, err)
		return
	}

	version := s.factorSvc.Version()
	s.log.Info("factor table reloaded",
		zap.String("previous_version", previous),
		zap.String("version", version),
	)

	if s.outbox != nil {
		payload := events.FactorsReloadedPayload{PreviousVersion: previous, Version: version}
		if err := s.outbox.Publish(ctx, events.Event{
			Type:    events.EventFactorsReloaded,
			Payload: payload.ToMap(),
		}); err != nil {
			s.log.Warn("factors.reloaded event not recorded", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"previous_version": previous,
		"version":          version,
	})
}
