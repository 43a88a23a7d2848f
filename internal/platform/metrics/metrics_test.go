package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementPersonsCreated()
	m.IncrementPersonsCreated()
	m.IncrementUploads("photo")
	m.IncrementBackendFailures("person.create")
	m.ObserveOperation("person.create", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PersonsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Uploads.WithLabelValues("photo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackendFailures.WithLabelValues("person.create")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationDuration))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementPersonsCreated()
		m.IncrementConferencesRecorded()
		m.IncrementUploads("report")
		m.IncrementBackendFailures("x")
		m.ObserveOperation("x", time.Now())
		m.ObserveRequest("GET", "/presos", time.Second)
	})
}
