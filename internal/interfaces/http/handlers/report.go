// internal/interfaces/http/handlers/report.go
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/farmshop-backend/internal/domain/ledger"
	"github.com/your-org/farmshop-backend/internal/interfaces/http/middleware"
)

// ReportHandler handles period report requests
type ReportHandler struct {
	ledgerService *ledger.Service
}

// NewReportHandler creates a new report handler
func NewReportHandler(ledgerService *ledger.Service) *ReportHandler {
	return &ReportHandler{
		ledgerService: ledgerService,
	}
}

// GenerateReportRequest represents a report generation request. Dates
// are inclusive start, exclusive end, formatted YYYY-MM-DD.
type GenerateReportRequest struct {
	PeriodStart string `json:"period_start" binding:"required"`
	PeriodEnd   string `json:"period_end" binding:"required"`
}

// Generate handles POST /reports
func (h *ReportHandler) Generate(c *gin.Context) {
	var req GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	start, err := time.Parse("2006-01-02", req.PeriodStart)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid period_start, expected YYYY-MM-DD"})
		return
	}
	end, err := time.Parse("2006-01-02", req.PeriodEnd)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid period_end, expected YYYY-MM-DD"})
		return
	}

	generatedBy, _ := middleware.GetOperatorEmailFromContext(c)
	report, err := h.ledgerService.GeneratePeriodReport(c.Request.Context(), ledger.ReportInput{
		PeriodStart: start,
		PeriodEnd:   end,
		GeneratedBy: generatedBy,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, report)
}

// List handles GET /reports
func (h *ReportHandler) List(c *gin.Context) {
	reports, err := h.ledgerService.ListReports(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reports": reports})
}
