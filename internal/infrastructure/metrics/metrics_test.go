package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/crm-api/internal/domain/entity"
)

func TestImportMetrics_Singleton(t *testing.T) {
	assert.Same(t, Import(), Import())
	assert.Same(t, HTTP(), HTTP())
}

func TestImportMetrics_Contadores(t *testing.T) {
	m := Import()
	before := testutil.ToFloat64(m.rowsTotal.WithLabelValues("contact", "duplicate"))

	m.ObserveRow(entity.KindContact, "duplicate")
	m.ObserveRow(entity.KindContact, "duplicate")
	m.ObserveChunk(entity.KindContact, false)
	m.ObserveImport(entity.KindContact, 150*time.Millisecond)

	assert.Equal(t, before+2, testutil.ToFloat64(m.rowsTotal.WithLabelValues("contact", "duplicate")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.chunksTotal.WithLabelValues("contact", "rolled_back")), 1.0)
}

func TestHTTPMetrics_Observe(t *testing.T) {
	m := HTTP()
	before := testutil.ToFloat64(m.requestsTotal.WithLabelValues("POST", "/api/import/:kind", "200"))
	m.Observe("POST", "/api/import/:kind", 200, time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(m.requestsTotal.WithLabelValues("POST", "/api/import/:kind", "200")))
}
