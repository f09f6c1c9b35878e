package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/repository"
)

var _ repository.AuditRepository = (*AuditRepo)(nil)

// copier lo cumple *pgxpool.Pool.
type copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AuditRepo bitácora de auditoría. Se escribe fuera de la transacción del lote.
type AuditRepo struct {
	db copier
}

func NewAuditRepository(db copier) *AuditRepo {
	return &AuditRepo{db: db}
}

// Write inserta las entradas con COPY (una sola ida y vuelta aunque el lote tenga miles).
func (r *AuditRepo) Write(ctx context.Context, entries []entity.AuditLog) error {
	switch len(entries) {
	case 0:
		return nil
	case 1:
		e := entries[0]
		_, err := r.db.Exec(ctx, `
			INSERT INTO audit_logs (user_id, action, entity_type, entity_id, run_id, created_at)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)`,
			nullableID(e.UserID), e.Action, string(e.EntityType), e.EntityID, e.RunID, e.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert audit log: %w", err)
		}
		return nil
	}

	_, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"audit_logs"},
		[]string{"user_id", "action", "entity_type", "entity_id", "run_id", "created_at"},
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := entries[i]
			var runID *string
			if e.RunID != "" {
				runID = &e.RunID
			}
			return []any{nullableID(e.UserID), e.Action, string(e.EntityType), e.EntityID, runID, e.CreatedAt}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy audit logs: %w", err)
	}
	return nil
}

func nullableID(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}
