package observability

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_IsolatedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.DaysProcessed.Add(3)
	m.PipelineRunsTotal.WithLabelValues("index", "success").Inc()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.DaysProcessed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PipelineRunsTotal.WithLabelValues("index", "success")))

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_index_days_processed_total")
	assert.Contains(t, names, "test_pipeline_runs_total")
}

func TestRecordIndexRun(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.DaysProcessed)

	RecordIndexRun(5, 2, 1, 111.8182, 3)

	assert.Equal(t, before+5, testutil.ToFloat64(DefaultMetrics.DaysProcessed))
	assert.Equal(t, 111.8182, testutil.ToFloat64(DefaultMetrics.LastIndexLevel))
	assert.Equal(t, 3.0, testutil.ToFloat64(DefaultMetrics.LastConstituents))
}

func TestHandler(t *testing.T) {
	RecordReport("csv")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "equal_weight_index_pipeline_reports_generated_total"))
}
