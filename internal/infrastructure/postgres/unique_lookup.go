package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/crm-api/internal/domain"
	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/repository"
)

var _ repository.UniqueLookup = (*UniqueLookup)(nil)

// uniqueFields campos consultables por tipo; coinciden con los índices únicos
// (lower(col) para los insensibles a mayúsculas).
var uniqueFields = map[entity.Kind]struct {
	t      table
	fields map[string]bool
}{
	entity.KindCompany: {companiesTable, map[string]bool{"name": true, "domain": true, "ruc": true}},
	entity.KindContact: {contactsTable, map[string]bool{"email": true, "dni": true, "cee": true}},
}

// UniqueLookup búsqueda de duplicados. Dentro de una tx ve las altas aún sin confirmar.
type UniqueLookup struct {
	q Querier
}

func NewUniqueLookup(q Querier) *UniqueLookup {
	return &UniqueLookup{q: q}
}

// FindDuplicate devuelve el menor id con el mismo valor normalizado en q.Field.
func (l *UniqueLookup) FindDuplicate(ctx context.Context, q repository.UniqueQuery) (int64, bool, error) {
	def, ok := uniqueFields[q.Kind]
	if !ok {
		return 0, false, fmt.Errorf("buscar duplicado en %q: %w", q.Kind, domain.ErrUnknownEntity)
	}
	if !def.fields[q.Field] {
		return 0, false, fmt.Errorf("campo sin índice único: %s", q.Field)
	}
	col, err := def.t.column(q.Field)
	if err != nil {
		return 0, false, err
	}

	b := &sqlBuilder{}
	match := "btrim(" + col + ") = " + b.arg(q.Value)
	if q.CaseInsensitive {
		match = "lower(btrim(" + col + ")) = lower(" + b.arg(q.Value) + ")"
	}
	sql := "SELECT id FROM " + def.t.ident() + " WHERE " + match
	if q.ExcludeID > 0 {
		sql += " AND id <> " + b.arg(q.ExcludeID)
	}
	if q.Scope != nil {
		scope, err := b.where(q.Scope, def.t)
		if err != nil {
			return 0, false, err
		}
		sql += " AND " + scope
	}
	sql += " ORDER BY id LIMIT 1"

	var id int64
	if err := l.q.QueryRow(ctx, sql, b.args...).Scan(&id); err != nil {
		if isNoRows(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("buscar duplicado %s.%s: %w", def.t.name, q.Field, err)
	}
	return id, true, nil
}
