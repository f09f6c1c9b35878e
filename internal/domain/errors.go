package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound      = errors.New("recurso no encontrado")
	ErrInvalidInput  = errors.New("entrada inválida")
	ErrDuplicate     = errors.New("recurso duplicado")
	ErrUnauthorized  = errors.New("no autorizado")
	ErrForbidden     = errors.New("acceso denegado")
	ErrConflict      = errors.New("conflicto con el estado actual")
	ErrUnknownEntity = errors.New("tipo de entidad desconocido")

	// Errores de forma de la petición de importación: se rechazan antes de tocar la BD.
	ErrEmptyImport   = errors.New("la lista de items está vacía")
	ErrBatchTooLarge = errors.New("batchSize supera el máximo permitido")
)
