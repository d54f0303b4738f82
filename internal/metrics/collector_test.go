package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordRun(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	c := NewCollector("council", reg, nil)

	c.RecordRun("success", 2*time.Second)
	c.RecordRun("success", time.Second)
	c.RecordRun("failed", time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.runsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.runsTotal.WithLabelValues("failed")))
}

func TestCollector_RecordPersonaOutcome(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	c := NewCollector("council", reg, nil)

	c.RecordPersonaOutcome("architect", true)
	c.RecordPersonaOutcome("architect", false)
	c.RecordPersonaOutcome("security", true)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.personaOutcomes.WithLabelValues("architect", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.personaOutcomes.WithLabelValues("architect", "failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.personaOutcomes.WithLabelValues("security", "success")))
}

func TestCollector_RecordTokens(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	c := NewCollector("council", reg, nil)

	c.RecordTokens("anthropic", 100, 50)
	c.RecordTokens("anthropic", 10, 5)

	assert.Equal(t, float64(110), testutil.ToFloat64(c.llmTokensUsed.WithLabelValues("anthropic", "prompt")))
	assert.Equal(t, float64(55), testutil.ToFloat64(c.llmTokensUsed.WithLabelValues("anthropic", "completion")))
}

func TestCollector_SeparateRegistries(t *testing.T) {
	t.Parallel()
	// Two collectors on fresh registries must not collide.
	require.NotPanics(t, func() {
		NewCollector("council", prometheus.NewRegistry(), nil)
		NewCollector("council", prometheus.NewRegistry(), nil)
	})
}
