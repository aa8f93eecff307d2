package service

import (
	"context"
	"time"

	"shop-service/internal/models"
)

// ReceiptLedger is the lot store surface the allocator consumes. DebitLot is
// the only mutation path for quantity_remaining: a single-lot atomic
// critical section that returns the quantity actually taken.
type ReceiptLedger interface {
	CreateLot(ctx context.Context, lot *models.Lot) error
	GetLot(ctx context.Context, id int64) (*models.Lot, error)
	ListPendingLots(ctx context.Context, sku string) ([]models.Lot, error)
	ListPendingLotsByDestination(ctx context.Context, destination string) ([]models.Lot, error)
	HasLots(ctx context.Context, sku string) (bool, error)
	DebitLot(ctx context.Context, lotID int64, want int) (int, error)
	PendingQuantity(ctx context.Context, sku string) (int, error)
}

// BalanceStore is the per-SKU overflow counter. DebitFallback never fails
// for lack of stock; on_hand has no floor.
type BalanceStore interface {
	GetBalance(ctx context.Context, sku string) (*models.MasterBalance, error)
	DebitFallback(ctx context.Context, sku string, quantity int) error
	AdjustManually(ctx context.Context, sku string, delta int) error
}

// ConsumptionJournal is the append-only per-debit record.
type ConsumptionJournal interface {
	RecordConsumption(ctx context.Context, rec *models.ConsumptionRecord) error
	DeleteConsumptionForWorkOrder(ctx context.Context, workOrderID int64) (int64, error)
	ListConsumptionForWorkOrder(ctx context.Context, workOrderID int64) ([]models.ConsumptionRecord, error)
}

// AuditSink accepts compliance log writes. Append failures must never abort
// the caller's primary work.
type AuditSink interface {
	AppendAudit(ctx context.Context, entry *models.AuditEntry) error
}

// WorkOrderStore is the minimal work order surface the orchestrator needs.
type WorkOrderStore interface {
	CreateWorkOrder(ctx context.Context, wo *models.WorkOrder) error
	GetWorkOrderByID(ctx context.Context, id int64) (*models.WorkOrder, error)
	UpdateWorkOrderStatus(ctx context.Context, id int64, status string) error
}

// EventPublisher hands allocation jobs to the background worker path.
type EventPublisher interface {
	PublishWorkOrderCreated(ctx context.Context, event *models.WorkOrderCreatedEvent) error
	PublishWorkOrderRebuilt(ctx context.Context, event *models.WorkOrderRebuiltEvent) error
	PublishAllocationCompleted(ctx context.Context, event *models.AllocationCompletedEvent) error
}

// SnapshotCache is the read-side cache for inventory summaries plus the
// idempotency keys guarding work order creation.
type SnapshotCache interface {
	GetSnapshot(ctx context.Context, sku string) (*InventorySnapshot, error)
	SetSnapshot(ctx context.Context, snap *InventorySnapshot, ttl time.Duration) error
	InvalidateSnapshot(ctx context.Context, sku string) error
	GetIdempotentWorkOrder(ctx context.Context, key string) (int64, bool, error)
	SetIdempotentWorkOrder(ctx context.Context, key string, workOrderID int64, ttl time.Duration) error
}

// InventorySnapshot is the display view served to the inventory collaborator.
type InventorySnapshot struct {
	SKU             string `json:"sku"`
	OnHand          int    `json:"on_hand"`
	Issued          int    `json:"issued"`
	PendingQuantity int    `json:"pending_quantity"`
}
