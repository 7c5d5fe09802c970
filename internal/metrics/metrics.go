package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder groups the bot's counters. Register it against the process
// registry in main and against a throwaway registry in tests.
type Recorder struct {
	evaluations       *prometheus.CounterVec
	remindersSent     prometheus.Counter
	transportFailures *prometheus.CounterVec
	intakesLogged     prometheus.Counter
}

func NewRecorder(registerer prometheus.Registerer) *Recorder {
	recorder := &Recorder{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sipwell",
			Name:      "reminder_evaluations_total",
			Help:      "Reminder eligibility evaluations by outcome.",
		}, []string{"outcome"}),
		remindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sipwell",
			Name:      "reminders_sent_total",
			Help:      "Reminders successfully dispatched.",
		}),
		transportFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sipwell",
			Name:      "transport_failures_total",
			Help:      "Message dispatch failures by class.",
		}, []string{"class"}),
		intakesLogged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sipwell",
			Name:      "intakes_logged_total",
			Help:      "Intake rows recorded through the bot.",
		}),
	}

	registerer.MustRegister(
		recorder.evaluations,
		recorder.remindersSent,
		recorder.transportFailures,
		recorder.intakesLogged,
	)
	return recorder
}

func (recorder *Recorder) Evaluation(outcome string) {
	recorder.evaluations.WithLabelValues(outcome).Inc()
}

func (recorder *Recorder) ReminderSent() {
	recorder.remindersSent.Inc()
}

func (recorder *Recorder) TransportFailure(class string) {
	recorder.transportFailures.WithLabelValues(class).Inc()
}

func (recorder *Recorder) IntakeLogged() {
	recorder.intakesLogged.Inc()
}
