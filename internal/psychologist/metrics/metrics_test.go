package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementRegistered()
	m.IncrementRegistered()
	m.IncrementConflicts()
	m.RecordValidationFailures([]string{"email", "crp", "email"})
	m.RecordWizardTransition("advance", "personal", "rejected")
	m.ObserveCreate(time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Registered))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Conflicts))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ValidationFailures.WithLabelValues("email")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WizardTransitions.WithLabelValues("advance", "personal", "rejected")))
}
