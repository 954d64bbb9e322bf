package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	m := NullMetrics()

	assert.NotPanics(t, func() {
		m.RecordTask("render-batch", "completed", 0.001)
		m.RecordTaskOutcome("render-batch", "dropped")
		m.SetPoolWorkers("render-batch", 2)
		m.RecordCacheRequest("textures", true)
		m.RecordCacheLoad("textures", nil)
		m.RecordEvictions("textures", 3)
		m.SetCacheEntries("textures", 10)
		m.RecordWindow(30, 10, 9)
		m.SetRenderDistance(4)
		m.ObserveTick(0.0001)
	})
}

func TestRecorders(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordTask("resource-load", "completed", 0.002)
	m.RecordTask("resource-load", "panicked", 0.001)
	m.RecordTaskOutcome("resource-load", "dropped")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues("resource-load", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues("resource-load", "panicked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues("resource-load", "dropped")))

	m.RecordCacheRequest("models", true)
	m.RecordCacheRequest("models", false)
	m.RecordCacheRequest("models", false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("models", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheRequestsTotal.WithLabelValues("models", "miss")))

	m.RecordCacheLoad("models", errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLoadsTotal.WithLabelValues("models", "error")))

	m.RecordEvictions("textures", 0)
	m.RecordEvictions("textures", 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheEvictionsTotal.WithLabelValues("textures")))
}

func TestRecordWindow(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordWindow(30, 10, 9)
	m.RecordWindow(75, 9, 10)
	m.RecordWindow(60, 10, 10)

	assert.Equal(t, 60.0, testutil.ToFloat64(m.FPS))
	assert.Equal(t, 10.0, testutil.ToFloat64(m.RenderDistance))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DistanceChangesTotal.WithLabelValues("down")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DistanceChangesTotal.WithLabelValues("up")))
}
