package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williampepple1/booksource-verifier/internal/checker"
	"github.com/williampepple1/booksource-verifier/internal/logging"
	"github.com/williampepple1/booksource-verifier/internal/metrics"
	"github.com/williampepple1/booksource-verifier/pkg/models"
)

func makeSources(t *testing.T, n int) []models.BookSource {
	t.Helper()
	sources := make([]models.BookSource, n)
	for i := range sources {
		b, err := models.NewBookSource(models.KeyURL, fmt.Sprintf("http://s%d.example", i), "index", i)
		require.NoError(t, err)
		sources[i] = b
	}
	return sources
}

func indexOf(t *testing.T, b models.BookSource) int {
	t.Helper()
	raw, ok := b.Get("index")
	require.True(t, ok)
	i, err := strconv.Atoi(string(raw))
	require.NoError(t, err)
	return i
}

// evenReachable marks even-indexed sources reachable and tracks concurrency
type evenReachable struct {
	t        *testing.T
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (c *evenReachable) check(_ context.Context, s models.BookSource) models.CheckResult {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	return models.CheckResult{Source: s, Reachable: indexOf(c.t, s)%2 == 0}
}

func TestDispatchCoversEverySourceOnce(t *testing.T) {
	for _, workers := range []int{1, 3, 8, 64} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			const total = 50
			c := &evenReachable{t: t}
			pool := NewPool(workers, checker.CheckFunc(c.check), logging.Discard())

			rs := pool.Dispatch(context.Background(), makeSources(t, total))

			require.Equal(t, total, rs.Total())
			seen := map[int]bool{}
			for _, b := range rs.Good {
				i := indexOf(t, b)
				assert.Zero(t, i%2, "odd source %d in good set", i)
				assert.False(t, seen[i], "duplicate source %d", i)
				seen[i] = true
			}
			for _, b := range rs.Error {
				i := indexOf(t, b)
				assert.Equal(t, 1, i%2, "even source %d in error set", i)
				assert.False(t, seen[i], "duplicate source %d", i)
				seen[i] = true
			}
			assert.Len(t, seen, total)
			assert.LessOrEqual(t, int(c.peak.Load()), workers)
		})
	}
}

func TestDispatchEmpty(t *testing.T) {
	pool := NewPool(4, checker.CheckFunc(func(context.Context, models.BookSource) models.CheckResult {
		t.Fatal("checker must not be called")
		return models.CheckResult{}
	}), logging.Discard())

	rs := pool.Dispatch(context.Background(), nil)
	assert.NotNil(t, rs.Good)
	assert.NotNil(t, rs.Error)
	assert.Equal(t, 0, rs.Total())
}

func TestNewPoolClampsWorkers(t *testing.T) {
	assert.Equal(t, 1, NewPool(0, nil, logging.Discard()).Workers)
	assert.Equal(t, 1, NewPool(-3, nil, logging.Discard()).Workers)
	assert.Equal(t, 7, NewPool(7, nil, logging.Discard()).Workers)
}

func TestDispatchProgressAndMetrics(t *testing.T) {
	var mu sync.Mutex
	var calls []int
	m := metrics.New()

	pool := NewPool(3, checker.CheckFunc(func(_ context.Context, s models.BookSource) models.CheckResult {
		return models.CheckResult{Source: s, Reachable: s.URL() != "http://s1.example"}
	}), logging.Discard())
	pool.Metrics = m
	pool.Progress = func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 5, total)
		calls = append(calls, done)
	}

	rs := pool.Dispatch(context.Background(), makeSources(t, 5))

	assert.Len(t, rs.Good, 4)
	assert.Len(t, rs.Error, 1)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, calls)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ChecksTotal.WithLabelValues(metrics.VerdictReachable)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChecksTotal.WithLabelValues(metrics.VerdictUnreachable)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ChecksInFlight))
}
