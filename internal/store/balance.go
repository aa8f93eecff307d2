package store

import (
	"context"
	"database/sql"

	"shop-service/internal/models"
)

// GetBalance retrieves the master balance row for a SKU. Returns nil without
// error when the SKU has no row yet.
func (s *Store) GetBalance(ctx context.Context, sku string) (*models.MasterBalance, error) {
	var bal models.MasterBalance
	err := s.db.GetContext(ctx, &bal, "SELECT * FROM master_balance WHERE sku = $1", sku)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bal, nil
}

// DebitFallback decrements on_hand and increments issued with no floor
// check; on_hand is allowed to go negative. The row is created implicitly
// when the SKU is known only through its lots.
func (s *Store) DebitFallback(ctx context.Context, sku string, quantity int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO master_balance (sku, on_hand, issued, updated_at)
		VALUES ($1, -$2, $2, NOW())
		ON CONFLICT (sku) DO UPDATE
		SET on_hand = master_balance.on_hand - $2,
		    issued = master_balance.issued + $2,
		    updated_at = NOW()`,
		sku, quantity)
	return err
}

// AdjustManually applies an operator correction to on_hand. Not called from
// the allocation path.
func (s *Store) AdjustManually(ctx context.Context, sku string, delta int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO master_balance (sku, on_hand, issued, updated_at)
		VALUES ($1, $2, 0, NOW())
		ON CONFLICT (sku) DO UPDATE
		SET on_hand = master_balance.on_hand + $2,
		    updated_at = NOW()`,
		sku, delta)
	return err
}
