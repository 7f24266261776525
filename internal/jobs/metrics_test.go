package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	_ "github.com/ledgerline/ledgerline/testing"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("items:import").End(nil))
	err := errors.New("boom")
	assert.Equal(t, err, m.Track("items:import").End(err))
	m.AddRows("maintenance:idempotency_cleanup", 4)
	m.AddRows("maintenance:idempotency_cleanup", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("items:import", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("items:import", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("items:import")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.rows.WithLabelValues("maintenance:idempotency_cleanup")))

	var nilMetrics *Metrics
	assert.Equal(t, err, nilMetrics.Track("x").End(err))
}
