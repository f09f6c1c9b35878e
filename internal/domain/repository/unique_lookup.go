package repository

import (
	"context"

	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/query"
)

// UniqueQuery busca un registro existente con el mismo valor en un campo único.
type UniqueQuery struct {
	Kind            entity.Kind
	Field           string // campo lógico: name, domain, ruc, email, dni, cee
	Value           string // ya normalizado por la regla
	CaseInsensitive bool
	Scope           *query.Predicate // restricción adicional opcional
	ExcludeID       int64            // 0 = no excluir (alta); id propio en actualizaciones
}

// UniqueLookup consulta de duplicados usada por el resolvedor de conflictos.
type UniqueLookup interface {
	// FindDuplicate devuelve el id del primer registro que coincide.
	FindDuplicate(ctx context.Context, q UniqueQuery) (id int64, found bool, err error)
}
