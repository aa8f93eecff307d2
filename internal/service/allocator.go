package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

// Allocator decides which lots a part request consumes from. Debits run
// oldest lot first, a caller-pinned lot takes precedence, and whatever the
// lots cannot cover is taken from the master balance with no floor. Every
// individual debit produces exactly one journal row.
type Allocator struct {
	lots      ReceiptLedger
	balances  BalanceStore
	journal   ConsumptionJournal
	audit     AuditSink
	logger    *zap.Logger
	opTimeout time.Duration
}

// NewAllocator creates a new allocator
func NewAllocator(
	lots ReceiptLedger,
	balances BalanceStore,
	journal ConsumptionJournal,
	audit AuditSink,
	opTimeout time.Duration,
) *Allocator {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &Allocator{
		lots:      lots,
		balances:  balances,
		journal:   journal,
		audit:     audit,
		logger:    util.GetLogger(),
		opTimeout: opTimeout,
	}
}

// AllocationRequest is one part line of a work order.
type AllocationRequest struct {
	WorkOrderID    int64
	SKU            string
	PartName       string
	Quantity       int
	UnitCost       int64
	PreferredLotID *int64
	Actor          string
}

// AllocationEntry is one debit. LotID is nil for the fallback debit.
type AllocationEntry struct {
	LotID    *int64 `json:"lot_id,omitempty"`
	Quantity int    `json:"quantity"`
}

// AllocationResult reports what was debited. TotalDeducted equals the
// requested quantity unless a store operation failed transiently.
type AllocationResult struct {
	Entries       []AllocationEntry `json:"entries"`
	TotalDeducted int               `json:"total_deducted"`
}

// Allocate runs the consumption algorithm for a single part line. It returns
// a ValidationError before any mutation on malformed input, ErrUnknownSKU
// when the SKU has neither lots nor a balance row, and a PartialFailureError
// alongside the (still meaningful) result when a store write failed
// mid-sequence.
func (a *Allocator) Allocate(ctx context.Context, req *AllocationRequest) (*AllocationResult, error) {
	ctx, span := util.StartSpan(ctx, "Allocator.Allocate")
	defer span.End()

	start := time.Now()
	defer func() {
		util.AllocationLatency.Observe(time.Since(start).Seconds())
	}()

	if req.SKU == "" {
		util.AllocationsFailedTotal.WithLabelValues("validation").Inc()
		return nil, &ValidationError{Field: "sku", Reason: "must not be empty"}
	}
	if req.Quantity <= 0 {
		util.AllocationsFailedTotal.WithLabelValues("validation").Inc()
		return nil, &ValidationError{Field: "quantity", Reason: "must be positive"}
	}

	util.AllocationsTotal.Inc()

	result := &AllocationResult{}
	remaining := req.Quantity
	var failures []error
	var preferredID int64 = -1

	if req.PreferredLotID != nil {
		preferredID = *req.PreferredLotID
		remaining = a.debitPreferredLot(ctx, req, preferredID, remaining, result, &failures)
	}

	lots, err := a.listPendingLots(ctx, req.SKU)
	if err != nil {
		failures = append(failures, fmt.Errorf("list pending lots: %w", err))
		lots = nil
	}

	for _, lot := range lots {
		if remaining == 0 {
			break
		}
		if lot.ID == preferredID {
			continue
		}
		remaining = a.debitLot(ctx, req, &lot, remaining, result, &failures)
	}

	if remaining > 0 {
		var unknown bool
		remaining, unknown = a.debitFallback(ctx, req, remaining, result, &failures, len(lots) == 0 && result.TotalDeducted == 0)
		if unknown {
			util.AllocationsFailedTotal.WithLabelValues("unknown_sku").Inc()
			return result, fmt.Errorf("sku %q: %w", req.SKU, ErrUnknownSKU)
		}
	}

	if len(failures) > 0 {
		util.AllocationPartialTotal.Inc()
		a.logger.Warn("Allocation fell short",
			zap.Int64("work_order_id", req.WorkOrderID),
			zap.String("sku", req.SKU),
			zap.Int("requested", req.Quantity),
			zap.Int("deducted", result.TotalDeducted))
		return result, &PartialFailureError{Causes: failures}
	}

	return result, nil
}

// debitPreferredLot honors a caller-pinned lot when it belongs to the
// requested SKU and still has stock; otherwise allocation proceeds in FIFO
// order as if no lot had been pinned.
func (a *Allocator) debitPreferredLot(ctx context.Context, req *AllocationRequest, lotID int64, remaining int, result *AllocationResult, failures *[]error) int {
	opCtx, cancel := context.WithTimeout(ctx, a.opTimeout)
	defer cancel()

	lot, err := a.lots.GetLot(opCtx, lotID)
	if err != nil {
		a.logger.Warn("Preferred lot unavailable, falling back to FIFO",
			zap.Int64("lot_id", lotID),
			zap.Error(err))
		return remaining
	}
	if lot.SKU != req.SKU || lot.QuantityRemaining <= 0 {
		return remaining
	}

	return a.debitLot(ctx, req, lot, remaining, result, failures)
}

// debitLot takes what it can from one lot and journals the debit. The debit
// itself is a single-lot critical section inside the ledger; a failure here
// is transient and only skips this lot.
func (a *Allocator) debitLot(ctx context.Context, req *AllocationRequest, lot *models.Lot, remaining int, result *AllocationResult, failures *[]error) int {
	opCtx, cancel := context.WithTimeout(ctx, a.opTimeout)
	defer cancel()

	debited, err := a.lots.DebitLot(opCtx, lot.ID, remaining)
	if err != nil {
		*failures = append(*failures, fmt.Errorf("debit lot %d: %w", lot.ID, err))
		return remaining
	}
	if debited == 0 {
		return remaining
	}

	util.LotDebitsTotal.Inc()
	if debited == lot.QuantityRemaining {
		util.LotsExhaustedTotal.Inc()
	}

	lotID := lot.ID
	rec := &models.ConsumptionRecord{
		WorkOrderID: req.WorkOrderID,
		SKU:         req.SKU,
		PartName:    req.PartName,
		Quantity:    debited,
		UnitCost:    req.UnitCost,
		LotID:       &lotID,
	}
	if lot.InvoiceRef != "" {
		ref := lot.InvoiceRef
		rec.InvoiceRef = &ref
	}
	a.record(ctx, rec, failures)

	a.appendAudit(ctx, req.Actor, "DEBIT_LOT", "lots", strconv.FormatInt(lot.ID, 10), map[string]interface{}{
		"work_order_id": req.WorkOrderID,
		"sku":           req.SKU,
		"quantity":      debited,
	})

	result.Entries = append(result.Entries, AllocationEntry{LotID: &lotID, Quantity: debited})
	result.TotalDeducted += debited
	return remaining - debited
}

// debitFallback takes the unsatisfied remainder from the master balance.
// This never fails for lack of stock; on_hand simply goes negative. The
// second return value reports that the SKU is unknown end to end.
func (a *Allocator) debitFallback(ctx context.Context, req *AllocationRequest, remaining int, result *AllocationResult, failures *[]error, maybeUnknown bool) (int, bool) {
	if maybeUnknown {
		known, err := a.skuKnown(ctx, req.SKU)
		if err != nil {
			*failures = append(*failures, fmt.Errorf("resolve sku %q: %w", req.SKU, err))
			return remaining, false
		}
		if !known {
			return remaining, true
		}
	}

	opCtx, cancel := context.WithTimeout(ctx, a.opTimeout)
	defer cancel()

	if err := a.balances.DebitFallback(opCtx, req.SKU, remaining); err != nil {
		*failures = append(*failures, fmt.Errorf("fallback debit %q: %w", req.SKU, err))
		return remaining, false
	}

	util.FallbackDebitsTotal.Inc()
	util.FallbackQuantityTotal.Add(float64(remaining))

	rec := &models.ConsumptionRecord{
		WorkOrderID: req.WorkOrderID,
		SKU:         req.SKU,
		PartName:    req.PartName,
		Quantity:    remaining,
		UnitCost:    req.UnitCost,
	}
	a.record(ctx, rec, failures)

	a.appendAudit(ctx, req.Actor, "DEBIT_FALLBACK", "master_balance", req.SKU, map[string]interface{}{
		"work_order_id": req.WorkOrderID,
		"quantity":      remaining,
	})

	result.Entries = append(result.Entries, AllocationEntry{Quantity: remaining})
	result.TotalDeducted += remaining
	return 0, false
}

// skuKnown reports whether the SKU exists anywhere: any lot row (any
// status) or a master balance row.
func (a *Allocator) skuKnown(ctx context.Context, sku string) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, a.opTimeout)
	defer cancel()

	hasLots, err := a.lots.HasLots(opCtx, sku)
	if err != nil {
		return false, err
	}
	if hasLots {
		return true, nil
	}

	bal, err := a.balances.GetBalance(opCtx, sku)
	if err != nil {
		return false, err
	}
	return bal != nil, nil
}

func (a *Allocator) record(ctx context.Context, rec *models.ConsumptionRecord, failures *[]error) {
	opCtx, cancel := context.WithTimeout(ctx, a.opTimeout)
	defer cancel()

	if err := a.journal.RecordConsumption(opCtx, rec); err != nil {
		// The stock debit already happened; the missing row is a
		// reconciliation problem, not a reason to stop.
		*failures = append(*failures, fmt.Errorf("journal record: %w", err))
	}
}

// appendAudit writes a compliance row. Failures are logged and dropped.
func (a *Allocator) appendAudit(ctx context.Context, actor, action, table, entityID string, details map[string]interface{}) {
	opCtx, cancel := context.WithTimeout(ctx, a.opTimeout)
	defer cancel()

	blob, _ := json.Marshal(details)
	entry := &models.AuditEntry{
		Actor:       actor,
		Action:      action,
		EntityTable: table,
		EntityID:    entityID,
		Details:     string(blob),
	}
	if err := a.audit.AppendAudit(opCtx, entry); err != nil {
		util.AuditWriteFailuresTotal.Inc()
		a.logger.Warn("Audit write dropped",
			zap.String("action", action),
			zap.String("entity_id", entityID),
			zap.Error(err))
	}
}

func (a *Allocator) listPendingLots(ctx context.Context, sku string) ([]models.Lot, error) {
	opCtx, cancel := context.WithTimeout(ctx, a.opTimeout)
	defer cancel()
	return a.lots.ListPendingLots(opCtx, sku)
}
