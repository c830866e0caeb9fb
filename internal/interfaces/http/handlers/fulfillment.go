// internal/interfaces/http/handlers/fulfillment.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/farmshop-backend/internal/domain/fulfillment"
	"github.com/your-org/farmshop-backend/internal/interfaces/http/middleware"
)

// FulfillmentHandler handles operator fulfillment requests
type FulfillmentHandler struct {
	dispatcher *fulfillment.Dispatcher
}

// NewFulfillmentHandler creates a new fulfillment handler
func NewFulfillmentHandler(dispatcher *fulfillment.Dispatcher) *FulfillmentHandler {
	return &FulfillmentHandler{
		dispatcher: dispatcher,
	}
}

// ListTasks handles GET /fulfillment/tasks
func (h *FulfillmentHandler) ListTasks(c *gin.Context) {
	var req fulfillment.TaskListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	tasks, total, err := h.dispatcher.ListTasks(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"total": total,
		"page":  req.Page,
		"limit": req.Limit,
	})
}

// RetryTask handles POST /fulfillment/tasks/:id/retry
func (h *FulfillmentHandler) RetryTask(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return
	}

	result, err := h.dispatcher.DispatchTask(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdateTaskStatus handles PUT /fulfillment/tasks/:id/status
func (h *FulfillmentHandler) UpdateTaskStatus(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return
	}

	var req fulfillment.StatusUpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	req.PerformedBy, _ = middleware.GetOperatorEmailFromContext(c)

	task, err := h.dispatcher.UpdateTaskStatus(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// DispatchOrder handles POST /orders/:id/dispatch
func (h *FulfillmentHandler) DispatchOrder(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	summary, err := h.dispatcher.DispatchPendingTasks(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
