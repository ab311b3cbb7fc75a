package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sefa-b/go-bill-ledger/internal/domain"
)

// auditRepo implements the AuditRepo interface.
type auditRepo struct {
	db *pgxpool.Pool
}

// NewAuditRepo creates a new audit repository.
func NewAuditRepo(db *pgxpool.Pool) AuditRepo {
	return &auditRepo{db: db}
}

// Log creates a new audit log entry.
func (r *auditRepo) Log(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID, action domain.AuditAction, details interface{}) error {
	query := `
		INSERT INTO audit_logs (id, entity_type, entity_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	var detailsJSON []byte
	if details != nil {
		var err error
		detailsJSON, err = json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to marshal audit details: %w", err)
		}
	}

	_, err := r.db.Exec(ctx, query, uuid.New(), string(entityType), entityID, string(action), detailsJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	return nil
}

// ListForEntity retrieves audit logs for a specific entity.
func (r *auditRepo) ListForEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID, limit, offset int) ([]*domain.AuditLog, error) {
	query := `
		SELECT id, entity_type, entity_id, action, details, created_at
		FROM audit_logs
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC`

	args := []interface{}{string(entityType), entityID}
	argIndex := 3

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, limit)
		argIndex++
	}

	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		var entry domain.AuditLog
		var entity, action string
		if err := rows.Scan(&entry.ID, &entity, &entry.EntityID, &action, &entry.Details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		entry.EntityType = domain.EntityType(entity)
		entry.Action = domain.AuditAction(action)
		logs = append(logs, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit logs: %w", err)
	}

	return logs, nil
}
