package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	consumptiondomain "github.com/ecoledger/ecoledger/internal/consumption/domain"
)

type ingestConsumptionRequest struct {
	Category       string         `json:"category"`
	Subtype        string         `json:"subtype"`
	Country        string         `json:"country"`
	Region         string         `json:"region"`
	Quantity       string         `json:"quantity"`
	Unit           string         `json:"unit"`
	PeriodStart    time.Time      `json:"period_start"`
	PeriodEnd      time.Time      `json:"period_end"`
	IdempotencyKey *string        `json:"idempotency_key"`
	Metadata       map[string]any `json:"metadata"`
}

func (s *Server) IngestConsumption(c *gin.Context) {
	var req ingestConsumptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if strings.TrimSpace(req.Category) == "" {
		AbortWithError(c, newValidationError("category", "required", "category is required"))
		return
	}
	if strings.TrimSpace(req.Quantity) == "" {
		AbortWithError(c, newValidationError("quantity", "required", "quantity is required"))
		return
	}

	record, err := s.consumptionSvc.Ingest(c.Request.Context(), consumptiondomain.IngestRequest{
		OrgID:          orgIDFrom(c),
		Category:       req.Category,
		Subtype:        req.Subtype,
		Country:        req.Country,
		Region:         req.Region,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		PeriodStart:    req.PeriodStart,
		PeriodEnd:      req.PeriodEnd,
		IdempotencyKey: req.IdempotencyKey,
		Metadata:       req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"record": record})
}

func (s *Server) ListConsumption(c *gin.Context) {
	limit, offset := paginationFrom(c)

	records, err := s.consumptionSvc.List(c.Request.Context(), consumptiondomain.ListRequest{
		OrgID:    orgIDFrom(c),
		Category: strings.TrimSpace(c.Query("category")),
		Status:   strings.TrimSpace(c.Query("status")),
		From:     timeQuery(c, "from"),
		To:       timeQuery(c, "to"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (s *Server) GetConsumption(c *gin.Context) {
	record, err := s.consumptionSvc.GetByID(c.Request.Context(), orgIDFrom(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"record": record})
}

func (s *Server) InvalidateConsumption(c *gin.Context) {
	if err := s.consumptionSvc.Invalidate(c.Request.Context(), orgIDFrom(c), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "invalidated"})
}

func paginationFrom(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func timeQuery(c *gin.Context, key string) time.Time {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return time.Time{}
	}
	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return value
}
