// Package listing compone consultas de listado acotadas por la visibilidad del rol.
package listing

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/jhoicas/crm-api/internal/domain"
	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/policy"
	"github.com/jhoicas/crm-api/internal/domain/query"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	defaultSort  = "createdAt"
)

// FilterType tipo de valor de un filtro de columna.
type FilterType int

const (
	TextFilter FilterType = iota
	IntFilter
)

// Descriptor columnas de un tipo de entidad que admiten búsqueda, filtro y orden.
type Descriptor struct {
	Kind     entity.Kind
	Search   []string
	Filters  map[string]FilterType
	Sortable []string
}

func (d Descriptor) sortable(field string) bool {
	for _, f := range d.Sortable {
		if f == field {
			return true
		}
	}
	return false
}

var descriptors = map[entity.Kind]Descriptor{
	entity.KindContact: {
		Kind:   entity.KindContact,
		Search: []string{"firstName", "lastName", "email"},
		Filters: map[string]FilterType{
			"lifecycleStage": TextFilter,
			"companyId":      IntFilter,
			"position":       TextFilter,
		},
		Sortable: []string{"firstName", "lastName", "createdAt", "updatedAt"},
	},
	entity.KindCompany: {
		Kind:   entity.KindCompany,
		Search: []string{"name", "domain", "industry"},
		Filters: map[string]FilterType{
			"lifecycleStage": TextFilter,
			"industry":       TextFilter,
		},
		Sortable: []string{"name", "employees", "createdAt", "updatedAt"},
	},
	entity.KindDeal: {
		Kind:   entity.KindDeal,
		Search: []string{"title"},
		Filters: map[string]FilterType{
			"stage":     TextFilter,
			"currency":  TextFilter,
			"companyId": IntFilter,
			"contactId": IntFilter,
		},
		Sortable: []string{"title", "amount", "expectedCloseDate", "createdAt"},
	},
	entity.KindTask: {
		Kind:   entity.KindTask,
		Search: []string{"title"},
		Filters: map[string]FilterType{
			"status":    TextFilter,
			"priority":  TextFilter,
			"dealId":    IntFilter,
			"contactId": IntFilter,
		},
		Sortable: []string{"title", "dueDate", "priority", "createdAt"},
	},
}

// DescriptorFor descriptor del tipo; ErrUnknownEntity si no es listable.
func DescriptorFor(kind entity.Kind) (Descriptor, error) {
	d, ok := descriptors[kind]
	if !ok {
		return Descriptor{}, fmt.Errorf("listar %q: %w", kind, domain.ErrUnknownEntity)
	}
	return d, nil
}

// ListParams parámetros de listado tal como llegan del cliente.
type ListParams struct {
	Search  string
	Filters map[string]string // columna -> valor; "null" filtra por ausente, comas = IN
	Sort    string
	Order   string // asc | desc
	Page    int
	Limit   int     // 0 = DefaultLimit; otro valor se acota a [1, MaxLimit]
	Owners  []int64 // solo se respeta para jefe_comercial y admin
}

// Validate rechaza filtros y órdenes que el descriptor no admite.
func (p ListParams) Validate(d Descriptor) error {
	for field, raw := range p.Filters {
		typ, ok := d.Filters[field]
		if !ok {
			return fmt.Errorf("%w: filtro no permitido: %s", domain.ErrInvalidInput, field)
		}
		raw = strings.TrimSpace(raw)
		if typ == IntFilter && raw != "" && raw != "null" {
			for _, part := range strings.Split(raw, ",") {
				if _, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err != nil {
					return fmt.Errorf("%w: %s debe ser numérico", domain.ErrInvalidInput, field)
				}
			}
		}
	}
	if p.Sort != "" && !d.sortable(p.Sort) {
		return fmt.Errorf("%w: no se puede ordenar por %s", domain.ErrInvalidInput, p.Sort)
	}
	switch strings.ToLower(p.Order) {
	case "", "asc", "desc":
	default:
		return fmt.Errorf("%w: order debe ser asc o desc", domain.ErrInvalidInput)
	}
	return nil
}

// ClampLimit acota un tamaño de página explícito a [1, MaxLimit].
func ClampLimit(n int) int {
	return min(max(n, 1), MaxLimit)
}

// ComposeQuery arma la consulta de listado:
//
//	AND(visibilidad, OR(búsqueda...), AND(filtros...), ownerId IN owners)
//
// El grupo OR de búsqueda va siempre anidado y nunca amplía la visibilidad. Filtros u
// órdenes no admitidos por el descriptor se ignoran (Validate los rechaza antes).
func ComposeQuery(role policy.Role, userID int64, params ListParams, d Descriptor) query.QuerySpec {
	limit := DefaultLimit
	if params.Limit != 0 {
		limit = ClampLimit(params.Limit)
	}
	// el desplazamiento (page-1)*limit no debe desbordar int
	page := min(max(params.Page, 1), math.MaxInt/limit)

	var search *query.Predicate
	if term := strings.TrimSpace(params.Search); term != "" {
		terms := make([]*query.Predicate, 0, len(d.Search))
		for _, f := range d.Search {
			terms = append(terms, query.Contains(f, term))
		}
		search = query.Or(terms...)
	}

	var owners *query.Predicate
	if len(params.Owners) > 0 && policy.AtLeast(role, policy.RoleJefeComercial) {
		ids := make([]any, len(params.Owners))
		for i, id := range params.Owners {
			ids[i] = id
		}
		owners = query.In(policy.FieldOwnerID, ids...)
	}

	return query.QuerySpec{
		Where: query.And(
			policy.VisibilityFilter(role, userID),
			search,
			columnFilters(params.Filters, d),
			owners,
		),
		Sort:   sortFor(params, d),
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

func columnFilters(filters map[string]string, d Descriptor) *query.Predicate {
	if len(filters) == 0 {
		return nil
	}
	fields := make([]string, 0, len(filters))
	for f := range filters {
		if _, ok := d.Filters[f]; ok {
			fields = append(fields, f)
		}
	}
	// orden estable para que la consulta (y su SQL) sea determinista
	sort.Strings(fields)

	preds := make([]*query.Predicate, 0, len(fields))
	for _, f := range fields {
		if p := filterPredicate(f, strings.TrimSpace(filters[f]), d.Filters[f]); p != nil {
			preds = append(preds, p)
		}
	}
	return query.And(preds...)
}

func filterPredicate(field, raw string, typ FilterType) *query.Predicate {
	if raw == "" {
		return nil
	}
	if raw == "null" {
		return query.IsNull(field)
	}
	parts := strings.Split(raw, ",")
	values := make([]any, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if typ == IntFilter {
			n, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				continue
			}
			values = append(values, n)
			continue
		}
		if part != "" {
			values = append(values, part)
		}
	}
	switch len(values) {
	case 0:
		return nil
	case 1:
		return query.Eq(field, values[0])
	}
	return query.In(field, values...)
}

func sortFor(params ListParams, d Descriptor) []query.Sort {
	if params.Sort == "" || !d.sortable(params.Sort) {
		return []query.Sort{{Field: defaultSort, Desc: true}}
	}
	return []query.Sort{{Field: params.Sort, Desc: strings.EqualFold(params.Order, "desc")}}
}
