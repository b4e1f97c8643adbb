package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/railjobs/auth"
	"github.com/kilianp07/railjobs/core/factory"
	coremetrics "github.com/kilianp07/railjobs/core/metrics"
	"github.com/kilianp07/railjobs/core/model"
)

type hookServer struct {
	mu     sync.Mutex
	events []webhookEvent
	auth   []string
	status int
}

func newHookServer(t *testing.T) (*hookServer, *httptest.Server) {
	t.Helper()
	hs := &hookServer{status: http.StatusAccepted}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev webhookEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		hs.mu.Lock()
		hs.events = append(hs.events, ev)
		hs.auth = append(hs.auth, r.Header.Get("Authorization"))
		status := hs.status
		hs.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return hs, srv
}

func TestWebhookSinkPostsRecords(t *testing.T) {
	hs, srv := newHookServer(t)
	sink := NewWebhookSink(srv.URL, auth.Conf{}, 0)

	require.NoError(t, sink.RecordCycle(coremetrics.CycleReport{Seed: 3, Tasks: 2}))
	require.NoError(t, sink.RecordTask(coremetrics.TaskRecord{TaskID: "task-0001", Kind: model.TaskTransport}))
	require.NoError(t, sink.RecordDroppedRun(coremetrics.DroppedRunRecord{Station: "B", Cars: 2, Reason: "no_track"}))

	require.Len(t, hs.events, 3)
	assert.Equal(t, "cycle", hs.events[0].Kind)
	assert.Equal(t, int64(3), hs.events[0].Cycle.Seed)
	assert.Equal(t, "task-0001", hs.events[1].Task.TaskID)
	assert.Equal(t, "no_track", hs.events[2].Dropped.Reason)
	assert.Empty(t, hs.auth[0])

	hs.status = http.StatusInternalServerError
	assert.Error(t, sink.RecordCycle(coremetrics.CycleReport{}))
}

func TestWebhookSinkUsesClientCredentials(t *testing.T) {
	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokens.Close()
	hs, srv := newHookServer(t)

	sink, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{
		Type: "webhook",
		Conf: map[string]any{
			"url":     srv.URL,
			"timeout": "2s",
			"auth":    map[string]any{"client_id": "id", "client_secret": "secret", "token_url": tokens.URL},
		},
	}})
	require.NoError(t, err)
	require.NoError(t, sink.RecordCycle(coremetrics.CycleReport{}))
	require.Len(t, hs.auth, 1)
	assert.Equal(t, "Bearer abc", hs.auth[0])

	_, err = coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "webhook", Conf: map[string]any{}}})
	assert.Error(t, err)
}
