package entity

import "time"

// Kind identifica un tipo de entidad con propietario.
type Kind string

const (
	KindContact Kind = "contact"
	KindCompany Kind = "company"
	KindDeal    Kind = "deal"
	KindTask    Kind = "task"
)

// ParseKind acepta singular o plural ("contacts", "companies", ...).
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "contact", "contacts":
		return KindContact, true
	case "company", "companies":
		return KindCompany, true
	case "deal", "deals":
		return KindDeal, true
	case "task", "tasks":
		return KindTask, true
	}
	return "", false
}

// Acciones registradas en la bitácora de auditoría.
const (
	AuditActionImportCreate = "import.create"
	AuditActionUpdate       = "update"
	AuditActionDelete       = "delete"
)

// AuditLog es una entrada de la bitácora. RunID agrupa las entradas de una misma importación.
type AuditLog struct {
	ID         int64
	UserID     int64
	Action     string
	EntityType Kind
	EntityID   int64
	RunID      string
	CreatedAt  time.Time
}
