// Package query modela predicados de acceso a datos independientes del almacenamiento.
// Los campos son nombres lógicos de la API (ownerId, companyId, ...); cada adaptador
// los traduce a sus columnas.
package query

import (
	"fmt"
	"strings"
	"time"
)

// Op operador de un nodo del predicado.
type Op string

const (
	OpEq       Op = "eq"
	OpIn       Op = "in"
	OpContains Op = "contains" // ILIKE '%v%'
	OpIsNull   Op = "is_null"
	OpAnd      Op = "and"
	OpOr       Op = "or"
)

// Predicate es un árbol de condiciones. Un *Predicate nil significa "sin restricción".
type Predicate struct {
	Op       Op
	Field    string
	Value    any
	Values   []any
	Children []*Predicate
}

// Eq campo = valor.
func Eq(field string, value any) *Predicate {
	return &Predicate{Op: OpEq, Field: field, Value: value}
}

// In campo IN (valores). Sin valores no coincide con nada.
func In(field string, values ...any) *Predicate {
	return &Predicate{Op: OpIn, Field: field, Values: values}
}

// Contains búsqueda parcial sin distinguir mayúsculas.
func Contains(field, term string) *Predicate {
	return &Predicate{Op: OpContains, Field: field, Value: term}
}

// IsNull campo IS NULL.
func IsNull(field string) *Predicate {
	return &Predicate{Op: OpIsNull, Field: field}
}

// And agrupa condiciones con AND. Ignora los nil; con un único hijo lo devuelve tal cual.
func And(preds ...*Predicate) *Predicate {
	return group(OpAnd, preds)
}

// Or agrupa condiciones con OR. El grupo se conserva como un nodo propio: nunca se
// aplana dentro de un AND padre.
func Or(preds ...*Predicate) *Predicate {
	return group(OpOr, preds)
}

func group(op Op, preds []*Predicate) *Predicate {
	children := make([]*Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			children = append(children, p)
		}
	}
	switch len(children) {
	case 0:
		return nil
	case 1:
		return children[0]
	}
	return &Predicate{Op: op, Children: children}
}

// Match evalúa el predicado en memoria. get devuelve el valor del campo lógico (nil si es NULL).
func (p *Predicate) Match(get func(field string) any) bool {
	if p == nil {
		return true
	}
	switch p.Op {
	case OpEq:
		return Equal(get(p.Field), p.Value)
	case OpIn:
		v := get(p.Field)
		for _, candidate := range p.Values {
			if Equal(v, candidate) {
				return true
			}
		}
		return false
	case OpContains:
		s, ok := Deref(get(p.Field)).(string)
		if !ok {
			return false
		}
		term, _ := p.Value.(string)
		return strings.Contains(strings.ToLower(s), strings.ToLower(term))
	case OpIsNull:
		return Deref(get(p.Field)) == nil
	case OpAnd:
		for _, c := range p.Children {
			if !c.Match(get) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range p.Children {
			if c.Match(get) {
				return true
			}
		}
		return false
	}
	return false
}

// String representación legible, útil en logs y tests.
func (p *Predicate) String() string {
	if p == nil {
		return "TRUE"
	}
	switch p.Op {
	case OpEq:
		return fmt.Sprintf("%s = %v", p.Field, Deref(p.Value))
	case OpIn:
		return fmt.Sprintf("%s IN %v", p.Field, p.Values)
	case OpContains:
		return fmt.Sprintf("%s ~ %q", p.Field, p.Value)
	case OpIsNull:
		return p.Field + " IS NULL"
	}
	parts := make([]string, len(p.Children))
	for i, c := range p.Children {
		parts[i] = c.String()
	}
	sep := " AND "
	if p.Op == OpOr {
		sep = " OR "
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// Deref quita un nivel de puntero y normaliza enteros a int64. Punteros nil -> nil.
func Deref(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case *int64:
		if t == nil {
			return nil
		}
		return *t
	case *int:
		if t == nil {
			return nil
		}
		return int64(*t)
	case *string:
		if t == nil {
			return nil
		}
		return *t
	case *time.Time:
		if t == nil {
			return nil
		}
		return *t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	}
	return v
}

// Equal compara dos valores escalares tras Deref. NULL nunca es igual a nada.
func Equal(a, b any) bool {
	a, b = Deref(a), Deref(b)
	if a == nil || b == nil {
		return false
	}
	return a == b
}
