package entity

import "time"

// Task es una actividad asignada a un usuario.
type Task struct {
	ID           int64
	Title        string
	Description  *string
	Status       string // pendiente, en_progreso, completada
	Priority     string // baja, media, alta
	DueDate      *time.Time
	DealID       *int64
	ContactID    *int64
	AssignedToID int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
