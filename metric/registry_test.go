package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()
	require.NotNil(t, registry)
	require.NotNil(t, registry.CoreMetrics())
	require.NotNil(t, registry.PrometheusRegistry())
}

func TestRegister_Duplicate(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_component_ops_total",
		Help: "test counter",
	})

	require.NoError(t, registry.Register("bot", "ops", counter))
	assert.Error(t, registry.Register("bot", "ops", counter))
}

func TestUnregister(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_component_depth",
		Help: "test gauge",
	})

	require.NoError(t, registry.Register("bot", "depth", gauge))
	assert.True(t, registry.Unregister("bot", "depth"))
	assert.False(t, registry.Unregister("bot", "depth"))
}

func TestRecordHelpers(t *testing.T) {
	m := NewMetrics()

	m.RecordFrameReceived("rtm/subscription/data")
	m.RecordFrameReceived("rtm/subscription/data")
	m.RecordMessagePublished("camera/analysis")
	m.RecordEmissionsDropped("camera", 3)
	m.RecordEmissionsDropped("camera", 0) // no-op

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesReceived.WithLabelValues("rtm/subscription/data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesPublished.WithLabelValues("camera/analysis")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.EmissionsDropped.WithLabelValues("camera")))
}
