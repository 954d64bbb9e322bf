package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/framepilot/pkg/framepilot/metrics"
	"github.com/jamesainslie/framepilot/pkg/framepilot/optimizer"
	"github.com/jamesainslie/framepilot/pkg/sim"
)

type staticSource struct{ snap optimizer.Snapshot }

func (s staticSource) Snapshot() optimizer.Snapshot { return s.snap }

func newTestRouter(t *testing.T, engine func() sim.Stats) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	m.SetRenderDistance(7)
	return newStatusRouter(reg, staticSource{optimizer.Snapshot{Ticks: 42, RenderDistance: 7, Device: "standard"}}, engine)
}

func TestStatusRouter_Snapshot(t *testing.T) {
	router := newTestRouter(t, func() sim.Stats { return sim.Stats{ChunkLoads: 5} })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/snapshot", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body statusBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, uint64(42), body.Optimizer.Ticks)
	assert.Equal(t, 7, body.Optimizer.RenderDistance)
	require.NotNil(t, body.Engine)
	assert.Equal(t, uint64(5), body.Engine.ChunkLoads)
}

func TestStatusRouter_SnapshotWithoutEngine(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/snapshot", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"engine"`)
}

func TestStatusRouter_Metrics(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "framepilot_render_distance_chunks 7"), rec.Body.String())
}

func TestStatusRouter_RootRedirects(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/snapshot", rec.Header().Get("Location"))
}
