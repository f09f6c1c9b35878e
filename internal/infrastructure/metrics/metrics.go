// Package metrics publica métricas Prometheus de la importación y del servidor HTTP.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jhoicas/crm-api/internal/application/importer"
	"github.com/jhoicas/crm-api/internal/domain/entity"
)

var _ importer.Metrics = (*ImportMetrics)(nil)

// ImportMetrics contadores e histogramas del motor de importación.
type ImportMetrics struct {
	rowsTotal      *prometheus.CounterVec
	chunksTotal    *prometheus.CounterVec
	importDuration *prometheus.HistogramVec
}

// HTTPMetrics métricas de peticiones HTTP.
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// El registro global de Prometheus no admite registrar dos veces el mismo nombre.
var importSingleton = sync.OnceValue(func() *ImportMetrics {
	return &ImportMetrics{
		rowsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Filas procesadas por la importación masiva, por tipo y resultado.",
		}, []string{"kind", "result"}), // result: created, invalid, duplicate, unresolved, aborted
		chunksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "import",
			Name:      "chunks_total",
			Help:      "Lotes transaccionales, por tipo y estado (committed / rolled_back).",
		}, []string{"kind", "status"}),
		importDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crm",
			Subsystem: "import",
			Name:      "duration_seconds",
			Help:      "Duración de una llamada de importación completa.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"kind"}),
	}
})

var httpSingleton = sync.OnceValue(func() *HTTPMetrics {
	return &HTTPMetrics{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Peticiones HTTP por método, ruta y código.",
		}, []string{"method", "route", "status"}),
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crm",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latencia de las peticiones HTTP.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
})

// Import devuelve las métricas de importación (registradas una sola vez).
func Import() *ImportMetrics { return importSingleton() }

// HTTP devuelve las métricas HTTP (registradas una sola vez).
func HTTP() *HTTPMetrics { return httpSingleton() }

func (m *ImportMetrics) ObserveRow(kind entity.Kind, result string) {
	m.rowsTotal.WithLabelValues(string(kind), result).Inc()
}

func (m *ImportMetrics) ObserveChunk(kind entity.Kind, committed bool) {
	status := "committed"
	if !committed {
		status = "rolled_back"
	}
	m.chunksTotal.WithLabelValues(string(kind), status).Inc()
}

func (m *ImportMetrics) ObserveImport(kind entity.Kind, elapsed time.Duration) {
	m.importDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

// Observe registra una petición terminada. route es el patrón de fiber, no la URL concreta.
func (m *HTTPMetrics) Observe(method, route string, status int, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
