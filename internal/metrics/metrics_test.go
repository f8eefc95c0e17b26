package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordQuery("ok", 20*time.Millisecond, 3)
	m.RecordQuery("ok", 10*time.Millisecond, 0)
	m.RecordQuery("load_failed", time.Second, 0)
	m.RecordLoad("words", nil)
	m.RecordLoad("pairs", errors.New("boom"))
	m.RecordStale()
	m.RecordSegment()
	m.RecordSegment()
	m.SetBooks(4)
	m.SetActiveSessions(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("load_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DataLoadsTotal.WithLabelValues("words", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DataLoadsTotal.WithLabelValues("pairs", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleDiscardsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SegmentsTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.BooksTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActiveSessions))
	assert.Equal(t, 2, testutil.CollectAndCount(m.QueriesTotal))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordQuery("ok", time.Millisecond, 1)
		m.RecordPhase("words", time.Millisecond)
		m.RecordLoad("words", nil)
		m.RecordStale()
		m.RecordSegment()
		m.SetBooks(1)
		m.SetActiveSessions(1)
	})
}
