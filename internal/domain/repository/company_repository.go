package repository

import (
	"context"

	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/query"
)

// CompanyRepository define el puerto de persistencia para Company (DIP).
// La implementación vive en infrastructure.
type CompanyRepository interface {
	// Create asigna ID al registro. Devuelve domain.ErrDuplicate ante una violación de unicidad.
	Create(ctx context.Context, company *entity.Company) error
	// GetByID devuelve (nil, nil) si no existe.
	GetByID(ctx context.Context, id int64) (*entity.Company, error)
	Update(ctx context.Context, company *entity.Company) error
	Delete(ctx context.Context, id int64) error
	// List aplica el QuerySpec y devuelve la página junto con el total sin paginar.
	List(ctx context.Context, spec query.QuerySpec) ([]*entity.Company, int, error)
}
