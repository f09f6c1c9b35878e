package entity

import "time"

// Etapas de ciclo de vida comercial (compartidas por Company y Contact).
const (
	StageLead     = "lead"
	StageProspect = "prospecto"
	StageCustomer = "cliente"
	StageInactive = "inactivo"
)

// Company representa una empresa del CRM. Name, Domain y RUC son únicos.
type Company struct {
	ID             int64
	Name           string
	Domain         *string // dominio web, único sin distinguir mayúsculas
	RUC            *string // RUC (Perú), único exacto
	Industry       *string
	Phone          *string
	Address        *string
	Employees      *int
	LifecycleStage string
	OwnerID        *int64 // nil = sin propietario
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
