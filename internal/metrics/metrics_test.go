package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williampepple1/booksource-verifier/internal/logging"
)

func TestRecording(t *testing.T) {
	m := New()

	m.CheckStarted()
	m.CheckStarted()
	m.CheckStarted()
	m.CheckFinished(true, 10*time.Millisecond)
	m.CheckFinished(false, time.Second)
	m.CheckFinished(true, 20*time.Millisecond)
	m.Loaded(3)
	m.LoadFailed("decode")
	m.Deduplicated(2)
	m.Filtered("good", 1)
	m.Filtered("error", 4)
	m.SaveFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChecksTotal.WithLabelValues(VerdictReachable)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChecksTotal.WithLabelValues(VerdictUnreachable)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ChecksInFlight))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SourcesLoaded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoadErrors.WithLabelValues("decode")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DuplicatesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilteredTotal.WithLabelValues("good")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.FilteredTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SaveErrors))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CheckStarted()
		m.CheckFinished(true, time.Second)
		m.Loaded(1)
		m.LoadFailed("network")
		m.Deduplicated(1)
		m.Filtered("good", 1)
		m.SaveFailed()
	})
}

func TestServer(t *testing.T) {
	m := New()
	m.CheckStarted()
	m.CheckFinished(false, time.Millisecond)

	srv, err := m.StartServer("127.0.0.1:0", logging.Discard())
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `booksource_checks_total{verdict="unreachable"} 1`)
}
