package entity

import "time"

// Contact representa una persona de contacto. Email, DNI y CEE son únicos.
type Contact struct {
	ID             int64
	FirstName      string
	LastName       string
	Email          string
	Phone          *string
	DNI            *string // documento nacional de identidad
	CEE            *string // carné de extranjería
	Position       *string
	Address        *string
	CompanyID      *int64
	LifecycleStage string
	OwnerID        *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FullName devuelve "Nombre Apellido" sin espacios sobrantes.
func (c *Contact) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
