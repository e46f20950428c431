package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithRegistererIsolated(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegisterer(reg)

	m.IndexBuildsTotal.WithLabelValues("success").Inc()
	m.IndexTableKeys.WithLabelValues("class").Set(12)
	m.CacheHitsTotal.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexBuildsTotal.WithLabelValues("success")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.IndexTableKeys.WithLabelValues("class")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	// A second registry accepts a second set of collectors.
	assert.NotPanics(t, func() { NewWithRegisterer(prometheus.NewRegistry()) })
}
