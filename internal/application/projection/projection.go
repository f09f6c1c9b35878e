// Package projection construye la representación pública de las entidades.
// Los campos opcionales nulos se omiten; los sensibles solo aparecen en modo detalle.
package projection

import (
	"time"

	"github.com/jhoicas/crm-api/internal/domain/entity"
)

// Mode forma de la representación.
type Mode int

const (
	// List forma de listados: sin documentos de identidad, email ni dirección.
	List Mode = iota
	// Detail forma completa de un registro.
	Detail
)

// PublicEntity representación serializable de una entidad.
type PublicEntity map[string]any

// Project proyecta cualquier entidad conocida. Tipos desconocidos devuelven nil.
func Project(v any, mode Mode) PublicEntity {
	switch e := v.(type) {
	case *entity.Contact:
		return Contact(e, mode)
	case *entity.Company:
		return Company(e, mode)
	case *entity.Deal:
		return Deal(e, mode)
	case *entity.Task:
		return Task(e, mode)
	}
	return nil
}

// Contact proyecta un contacto.
func Contact(c *entity.Contact, mode Mode) PublicEntity {
	if c == nil {
		return nil
	}
	out := PublicEntity{
		"id":        c.ID,
		"firstName": c.FirstName,
		"lastName":  c.LastName,
		"createdAt": c.CreatedAt,
		"updatedAt": c.UpdatedAt,
	}
	putString(out, "lifecycleStage", c.LifecycleStage)
	putPtr(out, "phone", c.Phone)
	putPtr(out, "position", c.Position)
	putPtr(out, "companyId", c.CompanyID)
	putPtr(out, "ownerId", c.OwnerID)
	if mode == Detail {
		putString(out, "email", c.Email)
		putPtr(out, "dni", c.DNI)
		putPtr(out, "cee", c.CEE)
		putPtr(out, "address", c.Address)
	}
	return out
}

// Company proyecta una empresa.
func Company(c *entity.Company, mode Mode) PublicEntity {
	if c == nil {
		return nil
	}
	out := PublicEntity{
		"id":        c.ID,
		"name":      c.Name,
		"createdAt": c.CreatedAt,
		"updatedAt": c.UpdatedAt,
	}
	putString(out, "lifecycleStage", c.LifecycleStage)
	putPtr(out, "domain", c.Domain)
	putPtr(out, "industry", c.Industry)
	putPtr(out, "phone", c.Phone)
	putPtr(out, "employees", c.Employees)
	putPtr(out, "ownerId", c.OwnerID)
	if mode == Detail {
		putPtr(out, "ruc", c.RUC)
		putPtr(out, "address", c.Address)
	}
	return out
}

// Deal proyecta una oportunidad. No tiene campos sensibles.
func Deal(d *entity.Deal, _ Mode) PublicEntity {
	if d == nil {
		return nil
	}
	out := PublicEntity{
		"id":           d.ID,
		"title":        d.Title,
		"amount":       d.Amount.StringFixed(2),
		"assignedToId": d.AssignedToID,
		"createdAt":    d.CreatedAt,
		"updatedAt":    d.UpdatedAt,
	}
	putString(out, "currency", d.Currency)
	putString(out, "stage", d.Stage)
	putPtr(out, "companyId", d.CompanyID)
	putPtr(out, "contactId", d.ContactID)
	putPtr(out, "expectedCloseDate", d.ExpectedCloseDate)
	return out
}

// Task proyecta una tarea; la descripción solo en detalle.
func Task(t *entity.Task, mode Mode) PublicEntity {
	if t == nil {
		return nil
	}
	out := PublicEntity{
		"id":           t.ID,
		"title":        t.Title,
		"assignedToId": t.AssignedToID,
		"createdAt":    t.CreatedAt,
		"updatedAt":    t.UpdatedAt,
	}
	putString(out, "status", t.Status)
	putString(out, "priority", t.Priority)
	putPtr(out, "dueDate", t.DueDate)
	putPtr(out, "dealId", t.DealID)
	putPtr(out, "contactId", t.ContactID)
	if mode == Detail {
		putPtr(out, "description", t.Description)
	}
	return out
}

func putString(out PublicEntity, key, v string) {
	if v != "" {
		out[key] = v
	}
}

func putPtr[T string | int | int64 | time.Time](out PublicEntity, key string, v *T) {
	if v != nil {
		out[key] = *v
	}
}
