package dto

import "github.com/jhoicas/crm-api/internal/application/importer"

// ImportRequest cuerpo de POST /api/import/:kind.
type ImportRequest struct {
	Items     []map[string]any `json:"items"`
	BatchSize int              `json:"batchSize"`
}

// ImportResponse resumen de la importación. Success es siempre true: los fallos de fila
// viajan dentro de Results, no como error de transporte.
type ImportResponse struct {
	Success bool `json:"success"`
	*importer.ImportSummary
}

// NewImportResponse envuelve el resumen del motor.
func NewImportResponse(s *importer.ImportSummary) ImportResponse {
	return ImportResponse{Success: true, ImportSummary: s}
}
