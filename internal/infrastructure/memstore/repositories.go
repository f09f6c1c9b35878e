package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/crm-api/internal/application/dedup"
	"github.com/jhoicas/crm-api/internal/domain"
	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/query"
	"github.com/jhoicas/crm-api/internal/domain/repository"
)

// uniqueIndex simula las restricciones únicas de la BD: campo -> insensible a mayúsculas.
var uniqueIndex = map[entity.Kind]map[string]bool{
	entity.KindCompany: {"name": true, "domain": true, "ruc": false},
	entity.KindContact: {"email": true, "dni": false, "cee": true},
}

func normalize(v any, ci bool) string {
	s, _ := query.Deref(v).(string)
	s = strings.TrimSpace(s)
	if ci {
		return dedup.Lower(s)
	}
	return s
}

// violatesUnique comprueba las restricciones únicas de row frente a rows (excluyendo selfID).
func violatesUnique(kind entity.Kind, row map[string]any, selfID int64, rows map[int64]map[string]any) bool {
	for field, ci := range uniqueIndex[kind] {
		v := normalize(row[field], ci)
		if v == "" {
			continue
		}
		for id, other := range rows {
			if id != selfID && normalize(other[field], ci) == v {
				return true
			}
		}
	}
	return false
}

// ---- companies ----

type companyRepo struct{ v view }

func companyFields(c *entity.Company) map[string]any {
	return map[string]any{
		"id":             c.ID,
		"name":           c.Name,
		"domain":         c.Domain,
		"ruc":            c.RUC,
		"industry":       c.Industry,
		"phone":          c.Phone,
		"address":        c.Address,
		"employees":      c.Employees,
		"lifecycleStage": c.LifecycleStage,
		"ownerId":        c.OwnerID,
		"createdAt":      c.CreatedAt,
		"updatedAt":      c.UpdatedAt,
	}
}

func companyRows(d *data) map[int64]map[string]any {
	rows := make(map[int64]map[string]any, len(d.companies))
	for id, c := range d.companies {
		c := c
		rows[id] = companyFields(&c)
	}
	return rows
}

func (r *companyRepo) Create(ctx context.Context, company *entity.Company) error {
	if hook := r.v.store().CreateHook; hook != nil {
		if err := hook(entity.KindCompany, company.Name); err != nil {
			return err
		}
	}
	return r.v.with(func(d *data) error {
		if violatesUnique(entity.KindCompany, companyFields(company), 0, companyRows(d)) {
			return domain.ErrDuplicate
		}
		company.ID = d.nextID()
		d.putCompany(*company)
		return nil
	})
}

func (r *companyRepo) GetByID(ctx context.Context, id int64) (*entity.Company, error) {
	var out *entity.Company
	err := r.v.with(func(d *data) error {
		if c, ok := d.companies[id]; ok {
			out = &c
		}
		return nil
	})
	return out, err
}

func (r *companyRepo) Update(ctx context.Context, company *entity.Company) error {
	return r.v.with(func(d *data) error {
		if _, ok := d.companies[company.ID]; !ok {
			return domain.ErrNotFound
		}
		if violatesUnique(entity.KindCompany, companyFields(company), company.ID, companyRows(d)) {
			return domain.ErrDuplicate
		}
		d.putCompany(*company)
		return nil
	})
}

func (r *companyRepo) Delete(ctx context.Context, id int64) error {
	return r.v.with(func(d *data) error {
		d.deleteCompany(id)
		return nil
	})
}

func (r *companyRepo) List(ctx context.Context, spec query.QuerySpec) ([]*entity.Company, int, error) {
	var out []*entity.Company
	var total int
	err := r.v.with(func(d *data) error {
		rows := make([]map[string]any, 0, len(d.companies))
		for _, c := range d.companies {
			c := c
			rows = append(rows, companyFields(&c))
		}
		page, n := paginate(rows, spec)
		total = n
		for _, row := range page {
			c := d.companies[row["id"].(int64)]
			out = append(out, &c)
		}
		return nil
	})
	return out, total, err
}

// ---- contacts ----

type contactRepo struct{ v view }

func contactFields(c *entity.Contact) map[string]any {
	return map[string]any{
		"id":             c.ID,
		"firstName":      c.FirstName,
		"lastName":       c.LastName,
		"email":          c.Email,
		"phone":          c.Phone,
		"dni":            c.DNI,
		"cee":            c.CEE,
		"position":       c.Position,
		"address":        c.Address,
		"companyId":      c.CompanyID,
		"lifecycleStage": c.LifecycleStage,
		"ownerId":        c.OwnerID,
		"createdAt":      c.CreatedAt,
		"updatedAt":      c.UpdatedAt,
	}
}

func contactRows(d *data) map[int64]map[string]any {
	rows := make(map[int64]map[string]any, len(d.contacts))
	for id, c := range d.contacts {
		c := c
		rows[id] = contactFields(&c)
	}
	return rows
}

func (r *contactRepo) Create(ctx context.Context, contact *entity.Contact) error {
	if hook := r.v.store().CreateHook; hook != nil {
		if err := hook(entity.KindContact, contact.Email); err != nil {
			return err
		}
	}
	return r.v.with(func(d *data) error {
		if violatesUnique(entity.KindContact, contactFields(contact), 0, contactRows(d)) {
			return domain.ErrDuplicate
		}
		contact.ID = d.nextID()
		d.putContact(*contact)
		return nil
	})
}

func (r *contactRepo) GetByID(ctx context.Context, id int64) (*entity.Contact, error) {
	var out *entity.Contact
	err := r.v.with(func(d *data) error {
		if c, ok := d.contacts[id]; ok {
			out = &c
		}
		return nil
	})
	return out, err
}

func (r *contactRepo) Update(ctx context.Context, contact *entity.Contact) error {
	return r.v.with(func(d *data) error {
		if _, ok := d.contacts[contact.ID]; !ok {
			return domain.ErrNotFound
		}
		if violatesUnique(entity.KindContact, contactFields(contact), contact.ID, contactRows(d)) {
			return domain.ErrDuplicate
		}
		d.putContact(*contact)
		return nil
	})
}

func (r *contactRepo) Delete(ctx context.Context, id int64) error {
	return r.v.with(func(d *data) error {
		d.deleteContact(id)
		return nil
	})
}

func (r *contactRepo) List(ctx context.Context, spec query.QuerySpec) ([]*entity.Contact, int, error) {
	var out []*entity.Contact
	var total int
	err := r.v.with(func(d *data) error {
		rows := make([]map[string]any, 0, len(d.contacts))
		for _, c := range d.contacts {
			c := c
			rows = append(rows, contactFields(&c))
		}
		page, n := paginate(rows, spec)
		total = n
		for _, row := range page {
			c := d.contacts[row["id"].(int64)]
			out = append(out, &c)
		}
		return nil
	})
	return out, total, err
}

// ---- deals / tasks (solo lectura) ----

type dealRepo struct{ v view }

func (r *dealRepo) List(ctx context.Context, spec query.QuerySpec) ([]*entity.Deal, int, error) {
	var out []*entity.Deal
	var total int
	err := r.v.with(func(d *data) error {
		rows := make([]map[string]any, 0, len(d.deals))
		for _, deal := range d.deals {
			rows = append(rows, map[string]any{
				"id":                deal.ID,
				"title":             deal.Title,
				"amount":            deal.Amount,
				"currency":          deal.Currency,
				"stage":             deal.Stage,
				"companyId":         deal.CompanyID,
				"contactId":         deal.ContactID,
				"ownerId":           deal.AssignedToID,
				"expectedCloseDate": deal.ExpectedCloseDate,
				"createdAt":         deal.CreatedAt,
				"updatedAt":         deal.UpdatedAt,
			})
		}
		page, n := paginate(rows, spec)
		total = n
		for _, row := range page {
			deal := d.deals[row["id"].(int64)]
			out = append(out, &deal)
		}
		return nil
	})
	return out, total, err
}

type taskRepo struct{ v view }

func (r *taskRepo) List(ctx context.Context, spec query.QuerySpec) ([]*entity.Task, int, error) {
	var out []*entity.Task
	var total int
	err := r.v.with(func(d *data) error {
		rows := make([]map[string]any, 0, len(d.tasks))
		for _, t := range d.tasks {
			rows = append(rows, map[string]any{
				"id":        t.ID,
				"title":     t.Title,
				"status":    t.Status,
				"priority":  t.Priority,
				"dueDate":   t.DueDate,
				"dealId":    t.DealID,
				"contactId": t.ContactID,
				"ownerId":   t.AssignedToID,
				"createdAt": t.CreatedAt,
				"updatedAt": t.UpdatedAt,
			})
		}
		page, n := paginate(rows, spec)
		total = n
		for _, row := range page {
			t := d.tasks[row["id"].(int64)]
			out = append(out, &t)
		}
		return nil
	})
	return out, total, err
}

// ---- lookup ----

type lookup struct{ v view }

func (l *lookup) FindDuplicate(ctx context.Context, q repository.UniqueQuery) (int64, bool, error) {
	var (
		foundID int64
		found   bool
	)
	err := l.v.with(func(d *data) error {
		var rows map[int64]map[string]any
		switch q.Kind {
		case entity.KindCompany:
			rows = companyRows(d)
		case entity.KindContact:
			rows = contactRows(d)
		default:
			return domain.ErrUnknownEntity
		}
		want := normalize(q.Value, q.CaseInsensitive)
		for _, id := range sortedIDs(rows) {
			row := rows[id]
			if id == q.ExcludeID || normalize(row[q.Field], q.CaseInsensitive) != want {
				continue
			}
			if !q.Scope.Match(func(f string) any { return row[f] }) {
				continue
			}
			foundID, found = id, true
			return nil
		}
		return nil
	})
	return foundID, found, err
}

func sortedIDs(rows map[int64]map[string]any) []int64 {
	ids := make([]int64, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// paginate filtra, ordena y pagina filas genéricas. Devuelve la página y el total filtrado.
func paginate(rows []map[string]any, spec query.QuerySpec) ([]map[string]any, int) {
	matched := rows[:0]
	for _, row := range rows {
		row := row
		if spec.Where.Match(func(f string) any { return row[f] }) {
			matched = append(matched, row)
		}
	}
	sorts := append(append([]query.Sort(nil), spec.Sort...), query.Sort{Field: "id"})
	sort.SliceStable(matched, func(i, j int) bool {
		for _, s := range sorts {
			c := compare(matched[i][s.Field], matched[j][s.Field])
			if c == 0 {
				continue
			}
			if s.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	total := len(matched)
	if spec.Offset < 0 || spec.Offset >= total {
		return nil, total
	}
	end := total
	if spec.Limit > 0 && spec.Limit < total-spec.Offset {
		end = spec.Offset + spec.Limit
	}
	return matched[spec.Offset:end], total
}

// compare orden total con NULL al final.
func compare(a, b any) int {
	a, b = query.Deref(a), query.Deref(b)
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	switch x := a.(type) {
	case int64:
		y, _ := b.(int64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case string:
		y, _ := b.(string)
		return strings.Compare(strings.ToLower(x), strings.ToLower(y))
	case time.Time:
		y, _ := b.(time.Time)
		return x.Compare(y)
	case decimal.Decimal:
		y, _ := b.(decimal.Decimal)
		return x.Cmp(y)
	}
	return 0
}
