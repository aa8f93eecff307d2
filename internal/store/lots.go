package store

import (
	"context"
	"database/sql"
	"fmt"

	"shop-service/internal/models"
)

// CreateLot inserts a new lot with quantity_remaining = quantity_received
// and status PENDING.
func (s *Store) CreateLot(ctx context.Context, lot *models.Lot) error {
	query := `
		INSERT INTO lots (sku, destination, quantity_received, quantity_remaining, unit_cost, status, received_at, invoice_ref)
		VALUES ($1, $2, $3, $3, $4, $5, NOW(), $6)
		RETURNING id, quantity_remaining, status, received_at`

	return s.db.GetContext(ctx, lot, query,
		lot.SKU, lot.Destination, lot.QuantityReceived, lot.UnitCost,
		models.LotStatusPending, lot.InvoiceRef)
}

// GetLot retrieves a lot by ID, used when a caller pins a specific receipt.
func (s *Store) GetLot(ctx context.Context, id int64) (*models.Lot, error) {
	var lot models.Lot
	err := s.db.GetContext(ctx, &lot, "SELECT * FROM lots WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("lot not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

// ListPendingLots returns lots with stock left for a SKU, oldest receipt
// first with ties broken by id, which fixes the FIFO consumption order.
func (s *Store) ListPendingLots(ctx context.Context, sku string) ([]models.Lot, error) {
	var lots []models.Lot
	err := s.db.SelectContext(ctx, &lots, `
		SELECT * FROM lots
		WHERE sku = $1 AND status = $2 AND quantity_remaining > 0
		ORDER BY received_at ASC, id ASC`,
		sku, models.LotStatusPending)
	return lots, err
}

// ListPendingLotsByDestination returns pending lots tagged for a destination,
// used by the receiving collaborator for display.
func (s *Store) ListPendingLotsByDestination(ctx context.Context, destination string) ([]models.Lot, error) {
	var lots []models.Lot
	err := s.db.SelectContext(ctx, &lots, `
		SELECT * FROM lots
		WHERE destination = $1 AND status = $2 AND quantity_remaining > 0
		ORDER BY received_at ASC, id ASC`,
		destination, models.LotStatusPending)
	return lots, err
}

// HasLots reports whether any lot row exists for the SKU, regardless of
// status. A SKU with only USED lots is still a known SKU.
func (s *Store) HasLots(ctx context.Context, sku string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM lots WHERE sku = $1)", sku)
	return exists, err
}

// DebitLot atomically takes up to want units from a single lot inside one
// transaction (FOR UPDATE lock) and returns the quantity actually debited.
// A lot driven to exactly 0 flips to USED in the same transaction. Only one
// lot's row lock is ever held at a time.
func (s *Store) DebitLot(ctx context.Context, lotID int64, want int) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var remaining int
	err = tx.GetContext(ctx, &remaining,
		"SELECT quantity_remaining FROM lots WHERE id = $1 FOR UPDATE", lotID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("lot not found: %d", lotID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock lot %d: %w", lotID, err)
	}

	if remaining <= 0 {
		return 0, nil
	}

	take := want
	if take > remaining {
		take = remaining
	}

	status := models.LotStatusPending
	if remaining-take == 0 {
		status = models.LotStatusUsed
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE lots SET quantity_remaining = quantity_remaining - $1, status = $2 WHERE id = $3",
		take, status, lotID)
	if err != nil {
		return 0, fmt.Errorf("failed to debit lot %d: %w", lotID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return take, nil
}

// PendingQuantity sums the remaining quantity across a SKU's pending lots.
func (s *Store) PendingQuantity(ctx context.Context, sku string) (int, error) {
	var total int
	err := s.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(quantity_remaining), 0) FROM lots
		WHERE sku = $1 AND status = $2`,
		sku, models.LotStatusPending)
	return total, err
}
