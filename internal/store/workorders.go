package store

import (
	"context"
	"database/sql"
	"fmt"

	"shop-service/internal/models"
)

// CreateWorkOrder creates a new work order
func (s *Store) CreateWorkOrder(ctx context.Context, wo *models.WorkOrder) error {
	query := `
		INSERT INTO work_orders (trailer_id, customer, description, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, wo, query,
		wo.TrailerID, wo.Customer, wo.Description, wo.Status)
}

// GetWorkOrderByID retrieves a work order by ID
func (s *Store) GetWorkOrderByID(ctx context.Context, id int64) (*models.WorkOrder, error) {
	var wo models.WorkOrder
	err := s.db.GetContext(ctx, &wo, "SELECT * FROM work_orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("work order not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &wo, nil
}

// UpdateWorkOrderStatus updates work order status
func (s *Store) UpdateWorkOrderStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE work_orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, id)
	return err
}
