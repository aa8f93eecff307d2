package models

import "time"

// Event types
const (
	EventTypeWorkOrderCreated    = "WORK_ORDER_CREATED"
	EventTypeWorkOrderRebuilt    = "WORK_ORDER_REBUILT"
	EventTypeAllocationCompleted = "ALLOCATION_COMPLETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// PartLineData is one requested part line carried in work order events.
type PartLineData struct {
	SKU            string `json:"sku"`
	PartName       string `json:"part_name"`
	Quantity       int    `json:"quantity"`
	UnitCost       int64  `json:"unit_cost"`
	PreferredLotID *int64 `json:"preferred_lot_id,omitempty"`
}

// WorkOrderCreatedEvent published when a work order is created. The HTTP
// caller has already been answered by the time this is consumed.
type WorkOrderCreatedEvent struct {
	BaseEvent
	WorkOrderID int64          `json:"work_order_id"`
	Actor       string         `json:"actor"`
	Lines       []PartLineData `json:"lines"`
}

// WorkOrderRebuiltEvent published when a work order's parts list is replaced.
// Consuming it deletes the order's journal rows and allocates the new lines;
// previously debited stock is not returned.
type WorkOrderRebuiltEvent struct {
	BaseEvent
	WorkOrderID int64          `json:"work_order_id"`
	Actor       string         `json:"actor"`
	Lines       []PartLineData `json:"lines"`
}

// AllocationCompletedEvent published after background allocation for a work
// order finishes, successfully or not.
type AllocationCompletedEvent struct {
	BaseEvent
	WorkOrderID    int64  `json:"work_order_id"`
	TotalRequested int    `json:"total_requested"`
	TotalDeducted  int    `json:"total_deducted"`
	Status         string `json:"status"`
}
