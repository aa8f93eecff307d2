package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"shop-service/internal/models"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

// ReceivingService creates lots for incoming stock and serves the pending
// receipt views used on the receiving side.
type ReceivingService struct {
	lots   ReceiptLedger
	audit  AuditSink
	cache  SnapshotCache
	logger *zap.Logger
}

// NewReceivingService creates a new receiving service
func NewReceivingService(lots ReceiptLedger, audit AuditSink, cache SnapshotCache) *ReceivingService {
	return &ReceivingService{
		lots:   lots,
		audit:  audit,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// ReceiveStockRequest describes one received batch.
type ReceiveStockRequest struct {
	SKU         string `json:"sku" binding:"required"`
	Destination string `json:"destination"`
	Quantity    int    `json:"quantity" binding:"required,min=1"`
	UnitCost    int64  `json:"unit_cost" binding:"min=0"`
	InvoiceRef  string `json:"invoice_ref"`
	Actor       string `json:"actor"`
}

// ReceiveStock creates a new lot with its full quantity remaining.
func (rs *ReceivingService) ReceiveStock(ctx context.Context, req *ReceiveStockRequest) (*models.Lot, error) {
	ctx, span := util.StartSpan(ctx, "ReceivingService.ReceiveStock")
	defer span.End()

	if req.SKU == "" {
		return nil, &ValidationError{Field: "sku", Reason: "must not be empty"}
	}
	if req.Quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Reason: "must be positive"}
	}

	lot := &models.Lot{
		SKU:              req.SKU,
		Destination:      req.Destination,
		QuantityReceived: req.Quantity,
		UnitCost:         req.UnitCost,
		InvoiceRef:       req.InvoiceRef,
	}
	if err := rs.lots.CreateLot(ctx, lot); err != nil {
		return nil, fmt.Errorf("failed to create lot: %w", err)
	}

	util.LotsReceivedTotal.Inc()
	rs.logger.Info("Lot received",
		zap.Int64("lot_id", lot.ID),
		zap.String("sku", lot.SKU),
		zap.Int("quantity", lot.QuantityReceived))

	blob, _ := json.Marshal(map[string]interface{}{
		"sku":         lot.SKU,
		"quantity":    lot.QuantityReceived,
		"invoice_ref": lot.InvoiceRef,
	})
	if err := rs.audit.AppendAudit(ctx, &models.AuditEntry{
		Actor:       req.Actor,
		Action:      "RECEIVE_LOT",
		EntityTable: "lots",
		EntityID:    strconv.FormatInt(lot.ID, 10),
		Details:     string(blob),
	}); err != nil {
		util.AuditWriteFailuresTotal.Inc()
		rs.logger.Warn("Audit write dropped", zap.Error(err))
	}

	if err := rs.cache.InvalidateSnapshot(ctx, lot.SKU); err != nil {
		rs.logger.Warn("Failed to invalidate snapshot cache",
			zap.String("sku", lot.SKU), zap.Error(err))
	}

	return lot, nil
}

// ListPendingLots returns a SKU's lots with stock left, oldest first.
func (rs *ReceivingService) ListPendingLots(ctx context.Context, sku string) ([]models.Lot, error) {
	return rs.lots.ListPendingLots(ctx, sku)
}

// ListPendingLotsByDestination returns pending lots tagged for a trailer or
// bay, oldest first.
func (rs *ReceivingService) ListPendingLotsByDestination(ctx context.Context, destination string) ([]models.Lot, error) {
	return rs.lots.ListPendingLotsByDestination(ctx, destination)
}
