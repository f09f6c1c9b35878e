package dto

import "github.com/jhoicas/crm-api/internal/application/projection"

// ListResponse página de un listado. Los elementos van en forma de listado (sin datos sensibles).
type ListResponse struct {
	Items      []projection.PublicEntity `json:"items"`
	Total      int                       `json:"total"`
	Page       int                       `json:"page"`
	Limit      int                       `json:"limit"`
	TotalPages int                       `json:"totalPages"`
}

// TotalPages número de páginas para total elementos; 0 si no hay ninguno.
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
