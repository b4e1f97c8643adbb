package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/railjobs/core/metrics"
	"github.com/kilianp07/railjobs/core/model"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, s.RecordCycle(coremetrics.CycleReport{Consumed: 7, Tasks: 3, Time: time.Unix(100, 0)}))
	require.NoError(t, s.RecordTask(coremetrics.TaskRecord{Kind: model.TaskEmptyHaul, Source: "A", Destination: "B"}))
	require.NoError(t, s.RecordTask(coremetrics.TaskRecord{Kind: model.TaskEmptyHaul, Source: "A", Destination: "B", Declined: true}))
	require.NoError(t, s.RecordDroppedRun(coremetrics.DroppedRunRecord{Cars: 4, Reason: "no_track"}))

	assert.Equal(t, 7.0, testutil.ToFloat64(s.lastCycle.WithLabelValues("consumed_cars")))
	assert.Equal(t, 100.0, testutil.ToFloat64(s.lastCycle.WithLabelValues("timestamp_seconds")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.tasks.WithLabelValues("empty_haul", "A", "B", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.tasks.WithLabelValues("empty_haul", "A", "B", "true")))
	assert.Equal(t, 4.0, testutil.ToFloat64(s.dropped.WithLabelValues("none", "no_track")))
}

func TestPromSinkReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	s1, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	s2, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	require.NoError(t, s1.RecordTask(coremetrics.TaskRecord{Kind: model.TaskTransport}))
	assert.Equal(t, 1.0, testutil.ToFloat64(s2.tasks.WithLabelValues("transport", "", "", "false")))
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	require.NoError(t, s.RecordCycle(coremetrics.CycleReport{Tasks: 1}))

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `railjobs_last_cycle{figure="tasks"} 1`)

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestHandlerMountsRoutes(t *testing.T) {
	api := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	srv := httptest.NewServer(Handler(prometheus.NewRegistry(), Route{Pattern: "/api/cycles", Handler: api}))
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/api/cycles")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}
