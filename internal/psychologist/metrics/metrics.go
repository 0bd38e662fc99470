package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the psychologist directory.
type Metrics struct {
	Registered         prometheus.Counter
	Updated            prometheus.Counter
	Deleted            prometheus.Counter
	Conflicts          prometheus.Counter
	ValidationFailures *prometheus.CounterVec
	WizardTransitions  *prometheus.CounterVec
	CreateDuration     prometheus.Histogram
}

// New registers the directory metrics with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registered: factory.NewCounter(prometheus.CounterOpts{
			Name: "mindflow_psychologists_registered_total",
			Help: "Total number of psychologists registered",
		}),
		Updated: factory.NewCounter(prometheus.CounterOpts{
			Name: "mindflow_psychologists_updated_total",
			Help: "Total number of psychologist records updated",
		}),
		Deleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "mindflow_psychologists_deleted_total",
			Help: "Total number of psychologist records deleted",
		}),
		Conflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "mindflow_psychologist_email_conflicts_total",
			Help: "Writes rejected because the email is already registered",
		}),
		ValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mindflow_validation_failures_total",
			Help: "Field validation failures by field",
		}, []string{"field"}),
		WizardTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mindflow_wizard_transitions_total",
			Help: "Wizard transitions by action, step and outcome",
		}, []string{"action", "step", "outcome"}),
		CreateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mindflow_create_psychologist_duration_seconds",
			Help:    "Duration of Create operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementRegistered() { m.Registered.Inc() }
func (m *Metrics) IncrementUpdated()    { m.Updated.Inc() }
func (m *Metrics) IncrementDeleted()    { m.Deleted.Inc() }
func (m *Metrics) IncrementConflicts()  { m.Conflicts.Inc() }

// RecordValidationFailures counts one failure per failing field.
func (m *Metrics) RecordValidationFailures(fields []string) {
	for _, f := range fields {
		m.ValidationFailures.WithLabelValues(f).Inc()
	}
}

func (m *Metrics) RecordWizardTransition(action, step, outcome string) {
	m.WizardTransitions.WithLabelValues(action, step, outcome).Inc()
}

// ObserveCreate records the duration of a Create operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCreate(start time.Time) {
	m.CreateDuration.Observe(time.Since(start).Seconds())
}
