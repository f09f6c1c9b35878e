package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/crm-api/internal/domain/query"
)

// table mapea los campos lógicos de la API a columnas de una tabla.
type table struct {
	name    string
	columns map[string]string // campo lógico -> columna
	order   []string          // columnas del SELECT, en orden de Scan
}

func (t table) column(field string) (string, error) {
	col, ok := t.columns[field]
	if !ok {
		return "", fmt.Errorf("campo no mapeado en %s: %s", t.name, field)
	}
	return pgx.Identifier{col}.Sanitize(), nil
}

func (t table) ident() string { return pgx.Identifier{t.name}.Sanitize() }

func (t table) selectList() string {
	cols := make([]string, len(t.order))
	for i, c := range t.order {
		cols[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(cols, ", ")
}

var companiesTable = table{
	name: "companies",
	columns: map[string]string{
		"id":             "id",
		"name":           "name",
		"domain":         "domain",
		"ruc":            "ruc",
		"industry":       "industry",
		"phone":          "phone",
		"address":        "address",
		"employees":      "employees",
		"lifecycleStage": "lifecycle_stage",
		"ownerId":        "owner_id",
		"createdAt":      "created_at",
		"updatedAt":      "updated_at",
	},
	order: []string{"id", "name", "domain", "ruc", "industry", "phone", "address", "employees",
		"lifecycle_stage", "owner_id", "created_at", "updated_at"},
}

var contactsTable = table{
	name: "contacts",
	columns: map[string]string{
		"id":             "id",
		"firstName":      "first_name",
		"lastName":       "last_name",
		"email":          "email",
		"phone":          "phone",
		"dni":            "dni",
		"cee":            "cee",
		"position":       "position",
		"address":        "address",
		"companyId":      "company_id",
		"lifecycleStage": "lifecycle_stage",
		"ownerId":        "owner_id",
		"createdAt":      "created_at",
		"updatedAt":      "updated_at",
	},
	order: []string{"id", "first_name", "last_name", "email", "phone", "dni", "cee", "position",
		"address", "company_id", "lifecycle_stage", "owner_id", "created_at", "updated_at"},
}

// En deals y tasks el propietario es el asignado.
var dealsTable = table{
	name: "deals",
	columns: map[string]string{
		"id":                "id",
		"title":             "title",
		"amount":            "amount",
		"currency":          "currency",
		"stage":             "stage",
		"companyId":         "company_id",
		"contactId":         "contact_id",
		"ownerId":           "assigned_to_id",
		"assignedToId":      "assigned_to_id",
		"expectedCloseDate": "expected_close_date",
		"createdAt":         "created_at",
		"updatedAt":         "updated_at",
	},
	order: []string{"id", "title", "amount", "currency", "stage", "company_id", "contact_id",
		"assigned_to_id", "expected_close_date", "created_at", "updated_at"},
}

var tasksTable = table{
	name: "tasks",
	columns: map[string]string{
		"id":           "id",
		"title":        "title",
		"description":  "description",
		"status":       "status",
		"priority":     "priority",
		"dueDate":      "due_date",
		"dealId":       "deal_id",
		"contactId":    "contact_id",
		"ownerId":      "assigned_to_id",
		"assignedToId": "assigned_to_id",
		"createdAt":    "created_at",
		"updatedAt":    "updated_at",
	},
	order: []string{"id", "title", "description", "status", "priority", "due_date", "deal_id",
		"contact_id", "assigned_to_id", "created_at", "updated_at"},
}

// sqlBuilder acumula argumentos posicionales ($1, $2, ...).
type sqlBuilder struct {
	args []any
}

func (b *sqlBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// where compila el predicado a una expresión SQL. nil -> TRUE.
func (b *sqlBuilder) where(p *query.Predicate, t table) (string, error) {
	if p == nil {
		return "TRUE", nil
	}
	switch p.Op {
	case query.OpEq:
		col, err := t.column(p.Field)
		if err != nil {
			return "", err
		}
		v := query.Deref(p.Value)
		if v == nil {
			return col + " IS NULL", nil
		}
		return col + " = " + b.arg(v), nil
	case query.OpIn:
		col, err := t.column(p.Field)
		if err != nil {
			return "", err
		}
		if len(p.Values) == 0 {
			return "FALSE", nil
		}
		ph := make([]string, len(p.Values))
		for i, v := range p.Values {
			ph[i] = b.arg(query.Deref(v))
		}
		return col + " IN (" + strings.Join(ph, ", ") + ")", nil
	case query.OpContains:
		col, err := t.column(p.Field)
		if err != nil {
			return "", err
		}
		term, _ := p.Value.(string)
		return col + " ILIKE " + b.arg("%"+escapeLike(term)+"%"), nil
	case query.OpIsNull:
		col, err := t.column(p.Field)
		if err != nil {
			return "", err
		}
		return col + " IS NULL", nil
	case query.OpAnd, query.OpOr:
		parts := make([]string, 0, len(p.Children))
		for _, c := range p.Children {
			s, err := b.where(c, t)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		if len(parts) == 0 {
			return "TRUE", nil
		}
		sep := " AND "
		if p.Op == query.OpOr {
			sep = " OR "
		}
		return "(" + strings.Join(parts, sep) + ")", nil
	}
	return "", fmt.Errorf("operador no soportado: %s", p.Op)
}

// orderBy compila el orden; siempre desempata por id para paginar de forma estable.
func orderBy(sorts []query.Sort, t table) (string, error) {
	parts := make([]string, 0, len(sorts)+1)
	for _, s := range sorts {
		col, err := t.column(s.Field)
		if err != nil {
			return "", err
		}
		if s.Desc {
			parts = append(parts, col+" DESC NULLS LAST")
		} else {
			parts = append(parts, col+" ASC NULLS LAST")
		}
	}
	parts = append(parts, `"id" ASC`)
	return "ORDER BY " + strings.Join(parts, ", "), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// listSQL devuelve la consulta de conteo y la de página para spec sobre t.
func listSQL(spec query.QuerySpec, t table) (countSQL, pageSQL string, args []any, err error) {
	if spec.Offset < 0 || spec.Limit < 0 {
		return "", "", nil, fmt.Errorf("paginación inválida: limit=%d offset=%d", spec.Limit, spec.Offset)
	}
	b := &sqlBuilder{}
	where, err := b.where(spec.Where, t)
	if err != nil {
		return "", "", nil, err
	}
	order, err := orderBy(spec.Sort, t)
	if err != nil {
		return "", "", nil, err
	}
	countSQL = "SELECT count(*) FROM " + t.ident() + " WHERE " + where
	pageSQL = "SELECT " + t.selectList() + " FROM " + t.ident() + " WHERE " + where + " " + order
	if spec.Limit > 0 {
		pageSQL += " LIMIT " + strconv.Itoa(spec.Limit)
	}
	if spec.Offset > 0 {
		pageSQL += " OFFSET " + strconv.Itoa(spec.Offset)
	}
	return countSQL, pageSQL, b.args, nil
}
