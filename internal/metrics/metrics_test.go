package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_ExposesCounters(t *testing.T) {
	c := NewNop()
	c.Extractions.Add(3)
	c.Wins.WithLabelValues("Tombola").Inc()

	assert.Equal(t, 3.0, testutil.ToFloat64(c.Extractions))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Wins.WithLabelValues("Tombola")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tombola_extractions_total 3")
}
