package metricskey_test

import (
	"testing"

	"github.com/effective-security/xcsr/metricskey"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	names := map[string]bool{}
	for _, m := range metricskey.Metrics {
		assert.NotEmpty(t, m.Help, m.Name)
		assert.NotEmpty(t, m.RequiredTags, m.Name)
		assert.False(t, names[m.Name], "duplicate metric: %s", m.Name)
		names[m.Name] = true
	}
	assert.True(t, names["perf_csr"])
	assert.True(t, names["perf_crypto"])
}
