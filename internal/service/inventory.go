package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

// InventoryService serves balance reads for operators and applies manual
// corrections. It never touches the allocator's fallback path.
type InventoryService struct {
	lots     ReceiptLedger
	balances BalanceStore
	audit    AuditSink
	cache    SnapshotCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(lots ReceiptLedger, balances BalanceStore, audit AuditSink, cache SnapshotCache, cacheTTL time.Duration) *InventoryService {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &InventoryService{
		lots:     lots,
		balances: balances,
		audit:    audit,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   util.GetLogger(),
	}
}

// GetSnapshot returns the SKU's balance and pending lot quantity, via the
// cache when warm. Allocation runs in the background, so a snapshot read
// immediately after submitting a work order may be briefly stale.
func (is *InventoryService) GetSnapshot(ctx context.Context, sku string) (*InventorySnapshot, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.GetSnapshot")
	defer span.End()

	if snap, err := is.cache.GetSnapshot(ctx, sku); err != nil {
		is.logger.Warn("Snapshot cache read failed, falling back to DB",
			zap.String("sku", sku), zap.Error(err))
	} else if snap != nil {
		return snap, nil
	}

	bal, err := is.balances.GetBalance(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	pending, err := is.lots.PendingQuantity(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("failed to sum pending lots: %w", err)
	}

	hasLots, err := is.lots.HasLots(ctx, sku)
	if err != nil {
		return nil, err
	}
	if bal == nil && !hasLots {
		return nil, fmt.Errorf("sku %q: %w", sku, ErrUnknownSKU)
	}

	snap := &InventorySnapshot{SKU: sku, PendingQuantity: pending}
	if bal != nil {
		snap.OnHand = bal.OnHand
		snap.Issued = bal.Issued
	}

	if err := is.cache.SetSnapshot(ctx, snap, is.cacheTTL); err != nil {
		is.logger.Warn("Failed to cache snapshot",
			zap.String("sku", sku), zap.Error(err))
	}

	return snap, nil
}

// Adjust applies an operator correction to on_hand and audits it.
func (is *InventoryService) Adjust(ctx context.Context, sku string, delta int, actor, reason string) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.Adjust")
	defer span.End()

	if sku == "" {
		return &ValidationError{Field: "sku", Reason: "must not be empty"}
	}
	if delta == 0 {
		return &ValidationError{Field: "delta", Reason: "must not be zero"}
	}

	if err := is.balances.AdjustManually(ctx, sku, delta); err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}

	blob, _ := json.Marshal(map[string]interface{}{
		"delta":  delta,
		"reason": reason,
	})
	if err := is.audit.AppendAudit(ctx, &models.AuditEntry{
		Actor:       actor,
		Action:      "ADJUST_BALANCE",
		EntityTable: "master_balance",
		EntityID:    sku,
		Details:     string(blob),
	}); err != nil {
		util.AuditWriteFailuresTotal.Inc()
		is.logger.Warn("Audit write dropped", zap.Error(err))
	}

	if err := is.cache.InvalidateSnapshot(ctx, sku); err != nil {
		is.logger.Warn("Failed to invalidate snapshot cache",
			zap.String("sku", sku), zap.Error(err))
	}

	return nil
}
