package listing

import (
	"context"
	"fmt"

	"github.com/jhoicas/crm-api/internal/application/dto"
	"github.com/jhoicas/crm-api/internal/application/projection"
	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/policy"
	"github.com/jhoicas/crm-api/internal/domain/query"
	"github.com/jhoicas/crm-api/internal/domain/repository"
)

// Repositories puertos de lectura que usa el listado.
type Repositories struct {
	Contacts  repository.ContactRepository
	Companies repository.CompanyRepository
	Deals     repository.DealRepository
	Tasks     repository.TaskRepository
}

// ListUseCase lista entidades de cualquier tipo aplicando la visibilidad del principal.
type ListUseCase struct {
	repos Repositories
}

// NewListUseCase construye el caso de uso.
func NewListUseCase(repos Repositories) *ListUseCase {
	return &ListUseCase{repos: repos}
}

// ListEntities devuelve una página del tipo kind en forma de listado.
func (uc *ListUseCase) ListEntities(
	ctx context.Context,
	kind entity.Kind,
	params ListParams,
	p policy.Principal,
) (*dto.ListResponse, error) {
	d, err := DescriptorFor(kind)
	if err != nil {
		return nil, err
	}
	if err := params.Validate(d); err != nil {
		return nil, err
	}
	spec := ComposeQuery(p.Role, p.UserID, params, d)

	items, total, err := uc.fetch(ctx, kind, spec)
	if err != nil {
		return nil, fmt.Errorf("listar %s: %w", kind, err)
	}
	return &dto.ListResponse{
		Items:      items,
		Total:      total,
		Page:       spec.Page,
		Limit:      spec.Limit,
		TotalPages: dto.TotalPages(total, spec.Limit),
	}, nil
}

func (uc *ListUseCase) fetch(ctx context.Context, kind entity.Kind, spec query.QuerySpec) ([]projection.PublicEntity, int, error) {
	switch kind {
	case entity.KindContact:
		list, total, err := uc.repos.Contacts.List(ctx, spec)
		return projectAll(list, err), total, err
	case entity.KindCompany:
		list, total, err := uc.repos.Companies.List(ctx, spec)
		return projectAll(list, err), total, err
	case entity.KindDeal:
		list, total, err := uc.repos.Deals.List(ctx, spec)
		return projectAll(list, err), total, err
	case entity.KindTask:
		list, total, err := uc.repos.Tasks.List(ctx, spec)
		return projectAll(list, err), total, err
	}
	return nil, 0, fmt.Errorf("tipo no listable: %s", kind)
}

func projectAll[T any](list []*T, err error) []projection.PublicEntity {
	if err != nil {
		return nil
	}
	out := make([]projection.PublicEntity, 0, len(list))
	for _, e := range list {
		out = append(out, projection.Project(e, projection.List))
	}
	return out
}
