// internal/domain/fulfillment/dispatcher.go
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/farmshop-backend/internal/config"
	"github.com/your-org/farmshop-backend/internal/domain/ledger"
	"github.com/your-org/farmshop-backend/internal/domain/order"
	"github.com/your-org/farmshop-backend/internal/domain/producer"
	"github.com/your-org/farmshop-backend/internal/pkg/errs"
)

// Dispatcher forwards pending fulfillment tasks to their producers and
// tracks every attempt. One producer failing never blocks the others.
type Dispatcher struct {
	db            *gorm.DB
	registry      *producer.Registry
	config        *config.Config
	ledgerService *ledger.Service
	logger        *logrus.Logger
}

// NewDispatcher creates a new fulfillment dispatcher
func NewDispatcher(db *gorm.DB, registry *producer.Registry, cfg *config.Config, ledgerService *ledger.Service, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		db:            db,
		registry:      registry,
		config:        cfg,
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// DispatchSummary reports the outcome of a dispatch round.
type DispatchSummary struct {
	OrderID   uint         `json:"order_id"`
	Attempted int          `json:"attempted"`
	Sent      int          `json:"sent"`
	Failed    int          `json:"failed"`
	Tasks     []TaskResult `json:"tasks"`
}

// TaskResult is the per-task outcome within a dispatch round.
type TaskResult struct {
	TaskID   uint             `json:"task_id"`
	Producer producer.Key     `json:"producer"`
	Status   order.TaskStatus `json:"status"`
	Error    string           `json:"error,omitempty"`
}

// DispatchPendingTasks sends every pending task of an order to its
// producer. Failures are recorded on the task, not returned: the caller
// reads the summary to see what went through.
func (d *Dispatcher) DispatchPendingTasks(ctx context.Context, orderID uint) (*DispatchSummary, error) {
	var ord order.Order
	if err := d.db.WithContext(ctx).Preload("Items").Preload("Tasks").First(&ord, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Validation("order %d not found", orderID)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	summary := &DispatchSummary{OrderID: ord.ID}
	for i := range ord.Tasks {
		task := &ord.Tasks[i]
		if task.Status != order.TaskStatusPending {
			continue
		}
		summary.Attempted++
		result := d.dispatchOne(ctx, &ord, task)
		if result.Status == order.TaskStatusSentToProducer {
			summary.Sent++
		} else {
			summary.Failed++
		}
		summary.Tasks = append(summary.Tasks, result)
	}

	d.logger.WithFields(logrus.Fields{
		"order_id":  ord.ID,
		"attempted": summary.Attempted,
		"sent":      summary.Sent,
		"failed":    summary.Failed,
	}).Info("Dispatch round finished")

	return summary, nil
}

// DispatchTask retries a single task, typically from the operator UI.
// Terminal tasks are rejected.
func (d *Dispatcher) DispatchTask(ctx context.Context, taskID uint) (*TaskResult, error) {
	var task order.FulfillmentTask
	if err := d.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Validation("fulfillment task %d not found", taskID)
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}

	switch task.Status {
	case order.TaskStatusPending:
	case order.TaskStatusFailed:
		// An operator retry gets a fresh attempt budget.
		task.RetryCount = 0
	default:
		return nil, errs.Conflict("task %d is %s and cannot be dispatched", task.ID, task.Status)
	}

	var ord order.Order
	if err := d.db.WithContext(ctx).Preload("Items").First(&ord, task.OrderID).Error; err != nil {
		return nil, fmt.Errorf("failed to load order for task: %w", err)
	}

	result := d.dispatchOne(ctx, &ord, &task)
	return &result, nil
}

// dispatchOne performs one send attempt with its bookkeeping. It never
// returns an error; the outcome lives on the task row.
func (d *Dispatcher) dispatchOne(ctx context.Context, ord *order.Order, task *order.FulfillmentTask) TaskResult {
	client, err := d.registry.Resolve(task.Producer)
	if err != nil {
		return d.recordFailure(ctx, task, err.Error())
	}

	payload := d.buildPayload(ord, task)
	sendResult := client.SendOrder(ctx, payload)
	if !sendResult.Success {
		return d.recordFailure(ctx, task, sendResult.Error)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":      order.TaskStatusSentToProducer,
		"external_id": sendResult.ExternalID,
		"sent_at":     now,
		"last_error":  "",
		// Persists the in-memory reset an operator retry applied.
		"retry_count": task.RetryCount,
	}
	if err := d.db.WithContext(ctx).Model(task).Updates(updates).Error; err != nil {
		d.logger.WithError(err).WithField("task_id", task.ID).Error("Failed to persist dispatch success")
		return TaskResult{TaskID: task.ID, Producer: task.Producer, Status: task.Status, Error: err.Error()}
	}
	task.Status = order.TaskStatusSentToProducer
	task.ExternalID = sendResult.ExternalID
	task.SentAt = &now

	d.recordEvent(ctx, task, "sent_to_producer", fmt.Sprintf("delivered via %s, external id %s", sendResult.Method, sendResult.ExternalID))

	d.logger.WithFields(logrus.Fields{
		"task_id":     task.ID,
		"order_id":    ord.ID,
		"producer":    task.Producer,
		"method":      sendResult.Method,
		"external_id": sendResult.ExternalID,
	}).Info("Fulfillment task sent")

	return TaskResult{TaskID: task.ID, Producer: task.Producer, Status: order.TaskStatusSentToProducer}
}

// recordFailure increments the attempt counter and, once the ceiling is
// reached, parks the task as failed for operator attention.
func (d *Dispatcher) recordFailure(ctx context.Context, task *order.FulfillmentTask, reason string) TaskResult {
	task.RetryCount++
	task.LastError = reason
	status := order.TaskStatusPending
	if task.RetryCount >= d.config.Dispatch.MaxAttempts {
		status = order.TaskStatusFailed
	}

	updates := map[string]interface{}{
		"status":      status,
		"retry_count": task.RetryCount,
		"last_error":  reason,
	}
	if err := d.db.WithContext(ctx).Model(task).Updates(updates).Error; err != nil {
		d.logger.WithError(err).WithField("task_id", task.ID).Error("Failed to persist dispatch failure")
	}
	task.Status = status

	d.recordEvent(ctx, task, "dispatch_failed", fmt.Sprintf("attempt %d: %s", task.RetryCount, reason))

	d.logger.WithFields(logrus.Fields{
		"task_id":  task.ID,
		"producer": task.Producer,
		"attempt":  task.RetryCount,
		"status":   status,
	}).Warn("Fulfillment dispatch attempt failed")

	return TaskResult{TaskID: task.ID, Producer: task.Producer, Status: status, Error: reason}
}

// buildPayload selects the order lines belonging to the task's producer.
// The external reference embeds the task id so a producer callback can be
// matched back without guessing.
func (d *Dispatcher) buildPayload(ord *order.Order, task *order.FulfillmentTask) producer.OrderPayload {
	items := ord.ItemsForProducer(task.Producer)
	wireItems := make([]producer.Item, 0, len(items))
	for _, item := range items {
		wireItems = append(wireItems, producer.Item{
			SKU:         item.SKU,
			Quantity:    item.Quantity,
			ProductName: item.Name,
			Size:        item.VariantName,
			WeightGrams: item.WeightGrams,
		})
	}
	return producer.OrderPayload{
		ExternalReference: fmt.Sprintf("%s/T%d", ord.OrderNumber, task.ID),
		OrderNumber:       ord.OrderNumber,
		Items:             wireItems,
		ShippingAddress:   ord.ShippingAddress.ToWire(),
		CustomerEmail:     ord.Email,
		Notes:             ord.Notes,
	}
}

func (d *Dispatcher) recordEvent(ctx context.Context, task *order.FulfillmentTask, eventType, detail string) {
	event := order.FulfillmentEvent{
		TaskID:    task.ID,
		OrderID:   task.OrderID,
		EventType: eventType,
		Detail:    detail,
	}
	if err := d.db.WithContext(ctx).Create(&event).Error; err != nil {
		d.logger.WithError(err).WithField("task_id", task.ID).Error("Failed to record fulfillment event")
	}
}

// StatusUpdateInput carries an operator-driven task status change.
type StatusUpdateInput struct {
	Status         order.TaskStatus `json:"status" binding:"required"`
	TrackingNumber string           `json:"tracking_number"`
	TrackingURL    string           `json:"tracking_url"`
	Note           string           `json:"note"`
	PerformedBy    string           `json:"-"`
}

// taskTransitions describes the fulfillment task state machine.
var taskTransitions = map[order.TaskStatus][]order.TaskStatus{
	order.TaskStatusPending:        {order.TaskStatusSentToProducer, order.TaskStatusCancelled},
	order.TaskStatusSentToProducer: {order.TaskStatusConfirmed, order.TaskStatusShipped, order.TaskStatusFailed, order.TaskStatusCancelled},
	order.TaskStatusConfirmed:      {order.TaskStatusShipped, order.TaskStatusCancelled},
	order.TaskStatusShipped:        {order.TaskStatusDelivered},
	order.TaskStatusFailed:         {order.TaskStatusPending, order.TaskStatusCancelled},
}

func canTransitionTask(from, to order.TaskStatus) bool {
	for _, status := range taskTransitions[from] {
		if status == to {
			return true
		}
	}
	return false
}

// UpdateTaskStatus applies an operator status override, records the
// event and rolls the change up into the order status.
func (d *Dispatcher) UpdateTaskStatus(ctx context.Context, taskID uint, in *StatusUpdateInput) (*order.FulfillmentTask, error) {
	var task order.FulfillmentTask
	if err := d.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Validation("fulfillment task %d not found", taskID)
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}

	if !canTransitionTask(task.Status, in.Status) {
		return nil, errs.Validation("cannot change task %d from %s to %s", task.ID, task.Status, in.Status)
	}

	oldStatus := task.Status
	now := time.Now().UTC()
	updates := map[string]interface{}{"status": in.Status}
	switch in.Status {
	case order.TaskStatusConfirmed:
		updates["confirmed_at"] = now
	case order.TaskStatusShipped:
		updates["shipped_at"] = now
		if in.TrackingNumber != "" {
			updates["tracking_number"] = in.TrackingNumber
		}
		if in.TrackingURL != "" {
			updates["tracking_url"] = in.TrackingURL
		}
	case order.TaskStatusDelivered:
		updates["delivered_at"] = now
	}

	tx := d.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := tx.Model(&task).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}
	task.Status = in.Status

	detail := fmt.Sprintf("status %s -> %s", oldStatus, in.Status)
	if in.Note != "" {
		detail = detail + ": " + in.Note
	}
	event := order.FulfillmentEvent{TaskID: task.ID, OrderID: task.OrderID, EventType: "status_change", Detail: detail}
	if err := tx.Create(&event).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to record fulfillment event: %w", err)
	}

	if err := d.ledgerService.WriteAudit(tx, "fulfillment_task", task.ID, "update_status",
		map[string]interface{}{"status": oldStatus},
		map[string]interface{}{"status": in.Status, "tracking_number": in.TrackingNumber},
		in.PerformedBy); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := d.rollUpOrderStatus(tx, task.OrderID); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}
	return &task, nil
}

// rollUpOrderStatus derives the order status from its tasks: all shipped
// or delivered means shipped/delivered, some shipped means partially
// shipped. Terminal orders are left alone.
func (d *Dispatcher) rollUpOrderStatus(tx *gorm.DB, orderID uint) error {
	var ord order.Order
	if err := tx.Preload("Tasks").First(&ord, orderID).Error; err != nil {
		return fmt.Errorf("failed to load order for rollup: %w", err)
	}
	if ord.IsTerminal() || len(ord.Tasks) == 0 {
		return nil
	}

	allDelivered, allShippedOrBeyond := true, true
	anyShipped := false
	for _, task := range ord.Tasks {
		if task.Status == order.TaskStatusCancelled {
			continue
		}
		switch task.Status {
		case order.TaskStatusDelivered:
			anyShipped = true
		case order.TaskStatusShipped:
			anyShipped = true
			allDelivered = false
		default:
			allDelivered = false
			allShippedOrBeyond = false
		}
	}

	var next order.OrderStatus
	switch {
	case allDelivered && anyShipped:
		next = order.OrderStatusDelivered
	case allShippedOrBeyond && anyShipped:
		next = order.OrderStatusShipped
	case anyShipped:
		next = order.OrderStatusPartiallyShipped
	default:
		return nil
	}

	if next == ord.Status || !order.CanTransition(ord.Status, next) {
		return nil
	}
	if err := tx.Model(&order.Order{}).Where("id = ?", ord.ID).Update("status", next).Error; err != nil {
		return fmt.Errorf("failed to roll up order status: %w", err)
	}
	return nil
}

// TaskListRequest represents fulfillment task list query parameters
type TaskListRequest struct {
	Page     int              `form:"page,default=1"`
	Limit    int              `form:"limit,default=20"`
	Status   order.TaskStatus `form:"status"`
	Producer producer.Key     `form:"producer"`
}

// ListTasks retrieves fulfillment tasks with filtering and pagination.
func (d *Dispatcher) ListTasks(ctx context.Context, req *TaskListRequest) ([]order.FulfillmentTask, int64, error) {
	var tasks []order.FulfillmentTask
	var total int64

	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = 20
	}

	query := d.db.WithContext(ctx).Model(&order.FulfillmentTask{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Producer != "" {
		query = query.Where("producer = ?", req.Producer)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.Limit).Find(&tasks).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve tasks: %w", err)
	}
	return tasks, total, nil
}
