package models

import "time"

// Lot represents a traceable batch of received stock for one SKU.
type Lot struct {
	ID                int64     `db:"id" json:"id"`
	SKU               string    `db:"sku" json:"sku"`
	Destination       string    `db:"destination" json:"destination"`
	QuantityReceived  int       `db:"quantity_received" json:"quantity_received"`
	QuantityRemaining int       `db:"quantity_remaining" json:"quantity_remaining"`
	UnitCost          int64     `db:"unit_cost" json:"unit_cost"`
	Status            string    `db:"status" json:"status"`
	ReceivedAt        time.Time `db:"received_at" json:"received_at"`
	InvoiceRef        string    `db:"invoice_ref" json:"invoice_ref,omitempty"`
}

// Lot statuses. A lot becomes USED once quantity_remaining reaches exactly 0;
// there is no reverse transition.
const (
	LotStatusPending = "PENDING"
	LotStatusUsed    = "USED"
)

// MasterBalance is the per-SKU running counter used as the overflow source
// once all lots are exhausted. on_hand has no floor and may go negative.
type MasterBalance struct {
	SKU       string    `db:"sku" json:"sku"`
	OnHand    int       `db:"on_hand" json:"on_hand"`
	Issued    int       `db:"issued" json:"issued"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ConsumptionRecord is one journal row per individual debit. LotID is nil
// for master-balance fallback debits; lot-sourced rows carry the lot's
// invoice reference for traceability.
type ConsumptionRecord struct {
	ID          int64     `db:"id" json:"id"`
	WorkOrderID int64     `db:"work_order_id" json:"work_order_id"`
	SKU         string    `db:"sku" json:"sku"`
	PartName    string    `db:"part_name" json:"part_name"`
	Quantity    int       `db:"quantity" json:"quantity"`
	UnitCost    int64     `db:"unit_cost" json:"unit_cost"`
	LotID       *int64    `db:"lot_id" json:"lot_id,omitempty"`
	InvoiceRef  *string   `db:"invoice_ref" json:"invoice_ref,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AuditEntry is an append-only compliance log row written by all mutators.
type AuditEntry struct {
	ID          int64     `db:"id" json:"id"`
	Actor       string    `db:"actor" json:"actor"`
	Action      string    `db:"action" json:"action"`
	EntityTable string    `db:"entity_table" json:"entity_table"`
	EntityID    string    `db:"entity_id" json:"entity_id"`
	Details     string    `db:"details" json:"details"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// WorkOrder is a repair job whose requested parts drive allocation.
type WorkOrder struct {
	ID          int64     `db:"id" json:"id"`
	TrailerID   string    `db:"trailer_id" json:"trailer_id"`
	Customer    string    `db:"customer" json:"customer"`
	Description string    `db:"description" json:"description"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Work order statuses. The HTTP caller sees OPEN; allocation runs in the
// background and moves the order forward afterwards.
const (
	WorkOrderStatusOpen       = "OPEN"
	WorkOrderStatusAllocating = "ALLOCATING"
	WorkOrderStatusAllocated  = "ALLOCATED"
	WorkOrderStatusAttention  = "ATTENTION"
)
