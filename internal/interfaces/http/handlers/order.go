// internal/interfaces/http/handlers/order.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/your-org/farmshop-backend/internal/domain/ledger"
	"github.com/your-org/farmshop-backend/internal/domain/order"
	"github.com/your-org/farmshop-backend/internal/interfaces/http/middleware"
)

// OrderHandler handles operator order requests
type OrderHandler struct {
	orderService  *order.Service
	ledgerService *ledger.Service
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *order.Service, ledgerService *ledger.Service) *OrderHandler {
	return &OrderHandler{
		orderService:  orderService,
		ledgerService: ledgerService,
	}
}

// List handles GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	var req order.OrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	resp, err := h.orderService.GetOrders(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Get handles GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	ord, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ord)
}

// Ledger handles GET /orders/:id/ledger
func (h *OrderHandler) Ledger(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	entries, err := h.ledgerService.EntriesForOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	netRevenue, err := h.ledgerService.NetRevenueForOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":          id,
		"entries":           entries,
		"net_revenue_cents": netRevenue,
	})
}

// RefundRequest represents a manual refund request
type RefundRequest struct {
	AmountCents      int64  `json:"amount_cents" binding:"required"`
	ExternalRefundID string `json:"external_refund_id" binding:"required"`
	Reason           string `json:"reason"`
}

// Refund handles POST /orders/:id/refund for refunds issued outside the
// payment provider's webhook flow.
func (h *OrderHandler) Refund(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	performedBy, _ := middleware.GetOperatorEmailFromContext(c)
	result, err := h.ledgerService.ProcessRefund(c.Request.Context(), ledger.RefundInput{
		OrderID:          id,
		AmountCents:      req.AmountCents,
		ExternalRefundID: req.ExternalRefundID,
		Reason:           req.Reason,
		PerformedBy:      performedBy,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.AlreadyProcessed {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

func parseIDParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id), err
}
