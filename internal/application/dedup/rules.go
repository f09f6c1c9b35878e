// Package dedup detecta duplicados por campos únicos y resuelve referencias por nombre.
package dedup

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/query"
)

// Mode modo de comparación de una regla de unicidad.
type Mode int

const (
	Exact Mode = iota
	CaseInsensitive
)

// UniquenessRule regla de unicidad de un campo. Scope restringe opcionalmente el universo
// de registros comparados.
type UniquenessRule struct {
	Field string
	Mode  Mode
	Scope *query.Predicate
}

// Lower minúsculas Unicode sin plegado, igual que lower() de Postgres: "ß" no pasa a
// "ss". Un Caser guarda estado, así que se crea uno por llamada.
func Lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// Normalize aplica la normalización del modo: trim siempre, minúsculas si es
// insensible a mayúsculas.
func (r UniquenessRule) Normalize(value string) string {
	value = strings.TrimSpace(value)
	if r.Mode == CaseInsensitive {
		return Lower(value)
	}
	return value
}

// Reglas por tipo de entidad, en orden de prioridad. El primer conflicto gana.
var (
	CompanyRules = []UniquenessRule{
		{Field: "name", Mode: CaseInsensitive},
		{Field: "domain", Mode: CaseInsensitive},
		{Field: "ruc", Mode: Exact},
	}
	ContactRules = []UniquenessRule{
		{Field: "email", Mode: CaseInsensitive},
		{Field: "dni", Mode: Exact},
		{Field: "cee", Mode: CaseInsensitive},
	}
)

// RulesFor reglas de unicidad del tipo; nil si no tiene.
func RulesFor(kind entity.Kind) []UniquenessRule {
	switch kind {
	case entity.KindCompany:
		return CompanyRules
	case entity.KindContact:
		return ContactRules
	}
	return nil
}

// CompanyValues valores únicos de una empresa indexados por campo lógico.
func CompanyValues(c *entity.Company) map[string]string {
	return map[string]string{
		"name":   c.Name,
		"domain": deref(c.Domain),
		"ruc":    deref(c.RUC),
	}
}

// ContactValues valores únicos de un contacto indexados por campo lógico.
func ContactValues(c *entity.Contact) map[string]string {
	return map[string]string{
		"email": c.Email,
		"dni":   deref(c.DNI),
		"cee":   deref(c.CEE),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
