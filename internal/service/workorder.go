package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WorkOrderService orchestrates work orders. Creation and edits answer the
// caller immediately and hand the allocation work to the background worker
// through the broker; lot and balance state read back right afterwards may
// be briefly stale.
type WorkOrderService struct {
	orders    WorkOrderStore
	journal   ConsumptionJournal
	allocator *Allocator
	publisher EventPublisher
	audit     AuditSink
	cache     SnapshotCache
	logger    *zap.Logger
}

// NewWorkOrderService creates a new work order service
func NewWorkOrderService(
	orders WorkOrderStore,
	journal ConsumptionJournal,
	allocator *Allocator,
	publisher EventPublisher,
	audit AuditSink,
	cache SnapshotCache,
) *WorkOrderService {
	return &WorkOrderService{
		orders:    orders,
		journal:   journal,
		allocator: allocator,
		publisher: publisher,
		audit:     audit,
		cache:     cache,
		logger:    util.GetLogger(),
	}
}

// PartLineRequest is one requested part on a work order.
type PartLineRequest struct {
	SKU            string `json:"sku" binding:"required"`
	PartName       string `json:"part_name"`
	Quantity       int    `json:"quantity" binding:"required,min=1"`
	UnitCost       int64  `json:"unit_cost" binding:"min=0"`
	PreferredLotID *int64 `json:"preferred_lot_id,omitempty"`
}

// CreateWorkOrderRequest creates a work order and queues its allocations.
type CreateWorkOrderRequest struct {
	TrailerID      string            `json:"trailer_id"`
	Customer       string            `json:"customer"`
	Description    string            `json:"description"`
	Parts          []PartLineRequest `json:"parts" binding:"required,min=1"`
	Actor          string            `json:"actor"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
}

// CreateWorkOrderResponse is returned before allocation has run.
type CreateWorkOrderResponse struct {
	WorkOrderID int64  `json:"work_order_id"`
	Status      string `json:"status"`
}

// CreateWorkOrder persists the order, answers, and enqueues one allocation
// per part line for the background worker.
func (s *WorkOrderService) CreateWorkOrder(ctx context.Context, req *CreateWorkOrderRequest) (*CreateWorkOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "WorkOrderService.CreateWorkOrder")
	defer span.End()

	if err := validateParts(req.Parts); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		if id, found, err := s.cache.GetIdempotentWorkOrder(ctx, req.IdempotencyKey); err != nil {
			s.logger.Warn("Idempotency lookup failed", zap.Error(err))
		} else if found {
			s.logger.Info("Duplicate work order request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Int64("work_order_id", id))
			existing, err := s.orders.GetWorkOrderByID(ctx, id)
			if err != nil {
				return nil, err
			}
			return &CreateWorkOrderResponse{WorkOrderID: existing.ID, Status: existing.Status}, nil
		}
	}

	wo := &models.WorkOrder{
		TrailerID:   req.TrailerID,
		Customer:    req.Customer,
		Description: req.Description,
		Status:      models.WorkOrderStatusOpen,
	}
	if err := s.orders.CreateWorkOrder(ctx, wo); err != nil {
		return nil, fmt.Errorf("failed to create work order: %w", err)
	}

	util.WorkOrdersCreatedTotal.Inc()
	s.logger.Info("Work order created", zap.Int64("work_order_id", wo.ID))

	if req.IdempotencyKey != "" {
		if err := s.cache.SetIdempotentWorkOrder(ctx, req.IdempotencyKey, wo.ID, 24*time.Hour); err != nil {
			s.logger.Warn("Failed to store idempotency key", zap.Error(err))
		}
	}

	s.auditWorkOrder(ctx, req.Actor, "CREATE_WORK_ORDER", wo.ID, req.Parts)

	event := &models.WorkOrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeWorkOrderCreated,
			Timestamp: time.Now(),
		},
		WorkOrderID: wo.ID,
		Actor:       req.Actor,
		Lines:       toPartLineData(req.Parts),
	}
	if err := s.publisher.PublishWorkOrderCreated(ctx, event); err != nil {
		// Allocation will not run until the event lands; surface it in the
		// order status so an operator can resubmit.
		s.logger.Error("Failed to publish WorkOrderCreated event", zap.Error(err))
		_ = s.orders.UpdateWorkOrderStatus(ctx, wo.ID, models.WorkOrderStatusAttention)
		return &CreateWorkOrderResponse{WorkOrderID: wo.ID, Status: models.WorkOrderStatusAttention}, nil
	}

	return &CreateWorkOrderResponse{WorkOrderID: wo.ID, Status: wo.Status}, nil
}

// RebuildParts replaces a work order's parts list. The journal rows for the
// order are deleted and every new line is allocated from scratch; stock
// debited for the old rows is not returned.
func (s *WorkOrderService) RebuildParts(ctx context.Context, workOrderID int64, parts []PartLineRequest, actor string) (*CreateWorkOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "WorkOrderService.RebuildParts")
	defer span.End()

	if err := validateParts(parts); err != nil {
		return nil, err
	}

	wo, err := s.orders.GetWorkOrderByID(ctx, workOrderID)
	if err != nil {
		return nil, err
	}

	s.auditWorkOrder(ctx, actor, "REBUILD_WORK_ORDER", wo.ID, parts)

	event := &models.WorkOrderRebuiltEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeWorkOrderRebuilt,
			Timestamp: time.Now(),
		},
		WorkOrderID: wo.ID,
		Actor:       actor,
		Lines:       toPartLineData(parts),
	}
	if err := s.publisher.PublishWorkOrderRebuilt(ctx, event); err != nil {
		s.logger.Error("Failed to publish WorkOrderRebuilt event", zap.Error(err))
		_ = s.orders.UpdateWorkOrderStatus(ctx, wo.ID, models.WorkOrderStatusAttention)
		return &CreateWorkOrderResponse{WorkOrderID: wo.ID, Status: models.WorkOrderStatusAttention}, nil
	}

	return &CreateWorkOrderResponse{WorkOrderID: wo.ID, Status: wo.Status}, nil
}

// HandleWorkOrderCreated runs the allocations for a new work order. Worker
// side; the HTTP caller is long gone by now.
func (s *WorkOrderService) HandleWorkOrderCreated(ctx context.Context, event *models.WorkOrderCreatedEvent) error {
	return s.allocateAll(ctx, event.WorkOrderID, event.Actor, event.Lines)
}

// HandleWorkOrderRebuilt deletes the order's journal rows and re-allocates
// the new lines. Consumption is strictly additive across rebuilds.
func (s *WorkOrderService) HandleWorkOrderRebuilt(ctx context.Context, event *models.WorkOrderRebuiltEvent) error {
	deleted, err := s.journal.DeleteConsumptionForWorkOrder(ctx, event.WorkOrderID)
	if err != nil {
		return fmt.Errorf("failed to clear journal for work order %d: %w", event.WorkOrderID, err)
	}

	util.JournalRebuildsTotal.Inc()
	s.logger.Info("Journal cleared for rebuild",
		zap.Int64("work_order_id", event.WorkOrderID),
		zap.Int64("rows_deleted", deleted))

	return s.allocateAll(ctx, event.WorkOrderID, event.Actor, event.Lines)
}

// allocateAll allocates each line independently: a validation or
// unknown-SKU failure on one line does not stop the others.
func (s *WorkOrderService) allocateAll(ctx context.Context, workOrderID int64, actor string, lines []models.PartLineData) error {
	if err := s.orders.UpdateWorkOrderStatus(ctx, workOrderID, models.WorkOrderStatusAllocating); err != nil {
		s.logger.Error("Failed to mark work order allocating",
			zap.Int64("work_order_id", workOrderID), zap.Error(err))
	}

	var requested, deducted int
	clean := true

	for _, line := range lines {
		requested += line.Quantity

		result, err := s.allocator.Allocate(ctx, &AllocationRequest{
			WorkOrderID:    workOrderID,
			SKU:            line.SKU,
			PartName:       line.PartName,
			Quantity:       line.Quantity,
			UnitCost:       line.UnitCost,
			PreferredLotID: line.PreferredLotID,
			Actor:          actor,
		})
		if err != nil {
			clean = false
			s.logger.Warn("Line allocation failed",
				zap.Int64("work_order_id", workOrderID),
				zap.String("sku", line.SKU),
				zap.Error(err))
		}
		if result != nil {
			deducted += result.TotalDeducted
		}

		if err := s.cache.InvalidateSnapshot(ctx, line.SKU); err != nil {
			s.logger.Warn("Failed to invalidate snapshot cache",
				zap.String("sku", line.SKU), zap.Error(err))
		}
	}

	status := models.WorkOrderStatusAllocated
	if !clean || deducted < requested {
		status = models.WorkOrderStatusAttention
	}
	if err := s.orders.UpdateWorkOrderStatus(ctx, workOrderID, status); err != nil {
		s.logger.Error("Failed to update work order status",
			zap.Int64("work_order_id", workOrderID), zap.Error(err))
	}

	completed := &models.AllocationCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeAllocationCompleted,
			Timestamp: time.Now(),
		},
		WorkOrderID:    workOrderID,
		TotalRequested: requested,
		TotalDeducted:  deducted,
		Status:         status,
	}
	if err := s.publisher.PublishAllocationCompleted(ctx, completed); err != nil {
		s.logger.Error("Failed to publish AllocationCompleted event", zap.Error(err))
	}

	return nil
}

// GetWorkOrder returns a work order with its consumption journal rows.
func (s *WorkOrderService) GetWorkOrder(ctx context.Context, workOrderID int64) (*models.WorkOrder, []models.ConsumptionRecord, error) {
	wo, err := s.orders.GetWorkOrderByID(ctx, workOrderID)
	if err != nil {
		return nil, nil, err
	}

	recs, err := s.journal.ListConsumptionForWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, nil, err
	}

	return wo, recs, nil
}

func (s *WorkOrderService) auditWorkOrder(ctx context.Context, actor, action string, workOrderID int64, parts []PartLineRequest) {
	blob, _ := json.Marshal(map[string]interface{}{"parts": parts})
	if err := s.audit.AppendAudit(ctx, &models.AuditEntry{
		Actor:       actor,
		Action:      action,
		EntityTable: "work_orders",
		EntityID:    strconv.FormatInt(workOrderID, 10),
		Details:     string(blob),
	}); err != nil {
		util.AuditWriteFailuresTotal.Inc()
		s.logger.Warn("Audit write dropped", zap.Error(err))
	}
}

func validateParts(parts []PartLineRequest) error {
	if len(parts) == 0 {
		return &ValidationError{Field: "parts", Reason: "must not be empty"}
	}
	for _, p := range parts {
		if p.SKU == "" {
			return &ValidationError{Field: "parts.sku", Reason: "must not be empty"}
		}
		if p.Quantity <= 0 {
			return &ValidationError{Field: "parts.quantity", Reason: "must be positive"}
		}
	}
	return nil
}

func toPartLineData(parts []PartLineRequest) []models.PartLineData {
	lines := make([]models.PartLineData, len(parts))
	for i, p := range parts {
		lines[i] = models.PartLineData{
			SKU:            p.SKU,
			PartName:       p.PartName,
			Quantity:       p.Quantity,
			UnitCost:       p.UnitCost,
			PreferredLotID: p.PreferredLotID,
		}
	}
	return lines
}
