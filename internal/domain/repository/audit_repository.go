package repository

import (
	"context"

	"github.com/jhoicas/crm-api/internal/domain/entity"
)

// AuditRepository escribe la bitácora. Se invoca fuera de las transacciones de negocio.
type AuditRepository interface {
	Write(ctx context.Context, entries []entity.AuditLog) error
}
