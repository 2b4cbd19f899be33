package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.RecordValidation("list", true)
	c.RecordViolation("FOREIGN_KEY", "high")
	c.RecordScan(time.Second, 90)
	c.RecordRules(3)
}

func TestRecordValidationOutcomes(t *testing.T) {
	c := NewCollector()
	c.RecordValidation("list", true)
	c.RecordValidation("list", true)
	c.RecordValidation("item", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.validationsTotal.WithLabelValues("list", "valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.validationsTotal.WithLabelValues("item", "invalid")))
}

func TestRecordScanSetsHealthScore(t *testing.T) {
	c := NewCollector()
	c.RecordScan(250*time.Millisecond, 85)
	assert.Equal(t, 85.0, testutil.ToFloat64(c.healthScore))

	c.RecordScan(100*time.Millisecond, 40)
	assert.Equal(t, 40.0, testutil.ToFloat64(c.healthScore))
}

func TestHandlerServesRegistry(t *testing.T) {
	c := NewCollector()
	c.RecordRules(5)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "taskward_rules_executed_total 5")
}
