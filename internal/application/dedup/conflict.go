package dedup

import (
	"context"
	"fmt"

	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/repository"
)

// ConflictResult resultado de CheckConflicts. Field y ExistingID solo tienen valor si Conflict.
type ConflictResult struct {
	Conflict   bool
	Field      string
	ExistingID int64
}

// Message texto legible del conflicto; incluye siempre el nombre del campo.
func (r ConflictResult) Message() string {
	if !r.Conflict {
		return ""
	}
	return fmt.Sprintf("duplicado: ya existe un registro con el mismo %s (id %d)", r.Field, r.ExistingID)
}

// CheckConflicts recorre las reglas en orden y devuelve el primer campo en conflicto.
// Los valores vacíos se omiten. excludeID se usa en actualizaciones (0 en altas).
// Los errores de almacenamiento se propagan sin tocar: el llamador decide el rollback.
func CheckConflicts(
	ctx context.Context,
	lookup repository.UniqueLookup,
	kind entity.Kind,
	values map[string]string,
	rules []UniquenessRule,
	excludeID int64,
) (ConflictResult, error) {
	for _, rule := range rules {
		v := rule.Normalize(values[rule.Field])
		if v == "" {
			continue
		}
		id, found, err := lookup.FindDuplicate(ctx, repository.UniqueQuery{
			Kind:            kind,
			Field:           rule.Field,
			Value:           v,
			CaseInsensitive: rule.Mode == CaseInsensitive,
			Scope:           rule.Scope,
			ExcludeID:       excludeID,
		})
		if err != nil {
			return ConflictResult{}, err
		}
		if found {
			return ConflictResult{Conflict: true, Field: rule.Field, ExistingID: id}, nil
		}
	}
	return ConflictResult{}, nil
}
