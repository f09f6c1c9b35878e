package dedup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/crm-api/internal/domain"
	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/repository"
)

// ErrUnresolved la referencia no se pudo resolver ni crear. Es un fallo de fila, no de lote.
var ErrUnresolved = errors.New("referencia no resuelta")

// EntityResolver convierte un nombre libre en el id de una entidad, creándola si no existe.
type EntityResolver struct {
	now func() time.Time
}

// NewEntityResolver construye el resolvedor.
func NewEntityResolver() *EntityResolver {
	return &EntityResolver{now: time.Now}
}

var companyNameRule = []UniquenessRule{CompanyRules[0]}

// ResolveOrCreateByName busca por nombre exacto sin distinguir mayúsculas dentro de la
// sesión s (ve las altas aún no confirmadas de la misma transacción). Si no existe crea
// una entidad mínima con etapa por defecto y propietario ownerID.
//
// La creación va en un savepoint: si otra transacción ganó la carrera y la restricción
// única salta, se vuelve a consultar una vez y se usa la fila existente.
func (r *EntityResolver) ResolveOrCreateByName(
	ctx context.Context,
	s repository.Session,
	kind entity.Kind,
	name string,
	ownerID *int64,
) (id int64, created bool, err error) {
	if kind != entity.KindCompany {
		return 0, false, fmt.Errorf("resolver %s: %w", kind, domain.ErrUnknownEntity)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, false, fmt.Errorf("%w: nombre vacío", ErrUnresolved)
	}

	if id, found, err := r.lookup(ctx, s, name); err != nil || found {
		return id, false, err
	}

	now := r.now()
	company := &entity.Company{
		Name:           name,
		LifecycleStage: entity.StageLead,
		OwnerID:        ownerID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = s.Savepoint(ctx, func(sp repository.Session) error {
		return sp.Companies().Create(ctx, company)
	})
	if err == nil {
		return company.ID, true, nil
	}
	if !errors.Is(err, domain.ErrDuplicate) {
		return 0, false, err
	}

	id, found, err := r.lookup(ctx, s, name)
	if err != nil {
		return 0, false, err
	}
	if !found {
		return 0, false, fmt.Errorf("%w: no se pudo crear la empresa %q", ErrUnresolved, name)
	}
	return id, false, nil
}

func (r *EntityResolver) lookup(ctx context.Context, s repository.Session, name string) (int64, bool, error) {
	res, err := CheckConflicts(ctx, s.Lookup(), entity.KindCompany,
		map[string]string{"name": name}, companyNameRule, 0)
	if err != nil {
		return 0, false, fmt.Errorf("buscar empresa por nombre: %w", err)
	}
	return res.ExistingID, res.Conflict, nil
}
