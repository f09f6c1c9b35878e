package importer

import (
	"time"

	"github.com/jhoicas/crm-api/internal/application/projection"
	"github.com/jhoicas/crm-api/internal/domain/entity"
)

const (
	// HardMaxBatchSize techo absoluto de filas por transacción; la configuración solo puede bajarlo.
	HardMaxBatchSize = 5000
	// DefaultBatchSize tamaño de lote cuando la petición no lo indica.
	DefaultBatchSize = 1000
)

// Config límites del motor de importación.
type Config struct {
	DefaultBatchSize int
	MaxBatchSize     int
}

func (c Config) normalized() Config {
	if c.MaxBatchSize <= 0 || c.MaxBatchSize > HardMaxBatchSize {
		c.MaxBatchSize = HardMaxBatchSize
	}
	if c.DefaultBatchSize <= 0 {
		c.DefaultBatchSize = DefaultBatchSize
	}
	if c.DefaultBatchSize > c.MaxBatchSize {
		c.DefaultBatchSize = c.MaxBatchSize
	}
	return c
}

// Resultados de fila, usados como etiqueta de métricas.
const (
	ResultCreated    = "created"
	ResultInvalid    = "invalid"
	ResultDuplicate  = "duplicate"
	ResultUnresolved = "unresolved"
	ResultAborted    = "aborted"
)

// Metrics puerto de métricas del motor. Lo implementa infrastructure/metrics.
type Metrics interface {
	ObserveRow(kind entity.Kind, result string)
	ObserveChunk(kind entity.Kind, committed bool)
	ObserveImport(kind entity.Kind, elapsed time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ObserveRow(entity.Kind, string)            {}
func (nopMetrics) ObserveChunk(entity.Kind, bool)            {}
func (nopMetrics) ObserveImport(entity.Kind, time.Duration) {}

// ImportRequest petición de importación masiva.
type ImportRequest struct {
	Kind      entity.Kind
	Items     []map[string]any
	BatchSize int // 0 = valor por defecto
}

// ImportOutcome resultado de una fila. Index es la posición en la entrada original.
type ImportOutcome struct {
	Index   int                     `json:"index"`
	Name    string                  `json:"name"`
	Success bool                    `json:"success"`
	Data    projection.PublicEntity `json:"data,omitempty"`
	Error   string                  `json:"error,omitempty"`

	result string
}

// Result categoría del resultado (created, invalid, duplicate, unresolved, aborted).
func (o ImportOutcome) Result() string { return o.result }

// ImportSummary agregado de la importación. SuccessCount + ErrorCount == Total.
type ImportSummary struct {
	Total        int             `json:"total"`
	SuccessCount int             `json:"successCount"`
	ErrorCount   int             `json:"errorCount"`
	Results      []ImportOutcome `json:"results"`
}

func (s *ImportSummary) tally() {
	s.Total = len(s.Results)
	s.SuccessCount, s.ErrorCount = 0, 0
	for _, r := range s.Results {
		if r.Success {
			s.SuccessCount++
		} else {
			s.ErrorCount++
		}
	}
}
