package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesInstruments(t *testing.T) {
	m := NewMetrics("chatty")
	m.ChatRequests.WithLabelValues("replied").Inc()
	m.ArchiveSaves.WithLabelValues("ok").Add(2)
	m.ObserveReplyLatency(300 * time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `chatty_chat_requests_total{outcome="replied"} 1`)
	assert.Contains(t, body, `chatty_archive_saves_total{result="ok"} 2`)
	assert.Contains(t, body, "chatty_reply_latency_ms_count 1")
	assert.Equal(t, 1, testutil.CollectAndCount(m.ReplyLatency))
}

func TestMetricsAreIsolatedPerInstance(t *testing.T) {
	a := NewMetrics("chatty")
	b := NewMetrics("chatty")
	a.ChatRequests.WithLabelValues("empty").Inc()

	assert.Equal(t, 0.0, testutil.ToFloat64(b.ChatRequests.WithLabelValues("empty")))
}
