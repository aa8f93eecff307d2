package store

import (
	"context"

	"shop-service/internal/models"
)

// RecordConsumption appends one journal row for a single debit.
func (s *Store) RecordConsumption(ctx context.Context, rec *models.ConsumptionRecord) error {
	query := `
		INSERT INTO consumption_journal (work_order_id, sku, part_name, quantity, unit_cost, lot_id, invoice_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, rec, query,
		rec.WorkOrderID, rec.SKU, rec.PartName, rec.Quantity, rec.UnitCost,
		rec.LotID, rec.InvoiceRef)
}

// DeleteConsumptionForWorkOrder removes all journal rows for a work order.
// Deleting rows does not restock the lots or balances they were debited
// from; a rebuild is strictly net-additional consumption.
func (s *Store) DeleteConsumptionForWorkOrder(ctx context.Context, workOrderID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM consumption_journal WHERE work_order_id = $1", workOrderID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListConsumptionForWorkOrder returns a work order's journal rows in debit order.
func (s *Store) ListConsumptionForWorkOrder(ctx context.Context, workOrderID int64) ([]models.ConsumptionRecord, error) {
	var recs []models.ConsumptionRecord
	err := s.db.SelectContext(ctx, &recs, `
		SELECT * FROM consumption_journal
		WHERE work_order_id = $1
		ORDER BY created_at ASC, id ASC`, workOrderID)
	return recs, err
}
