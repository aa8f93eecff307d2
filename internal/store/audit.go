package store

import (
	"context"

	"shop-service/internal/models"
)

// AppendAudit writes one compliance log row. Callers treat failures as
// non-fatal; nothing in the core reads this table back.
func (s *Store) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (actor, action, entity_table, entity_id, details)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.Actor, entry.Action, entry.EntityTable, entry.EntityID, entry.Details)
	return err
}
