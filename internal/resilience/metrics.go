package resilience

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// BreakerMetrics exposes breaker state and transitions. A nil value records nothing.
type BreakerMetrics struct {
	State       *prometheus.GaugeVec
	Transitions *prometheus.CounterVec
	Opened      *prometheus.CounterVec
}

// NewBreakerMetrics registers breaker collectors on reg.
func NewBreakerMetrics(namespace string, reg prometheus.Registerer) *BreakerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &BreakerMetrics{
		State: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Current breaker state: 0=closed,1=open,2=half-open",
		}, []string{"target"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transition_total",
			Help:      "Count of breaker state transitions",
		}, []string{"target", "from", "to"}),
		Opened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_open_total",
			Help:      "Number of times a breaker transitioned into open state",
		}, []string{"target"}),
	}
	m.State = registerOrExisting(reg, m.State)
	m.Transitions = registerOrExisting(reg, m.Transitions)
	m.Opened = registerOrExisting(reg, m.Opened)
	return m
}

func (m *BreakerMetrics) setState(target string, state State) {
	if m == nil {
		return
	}
	m.State.WithLabelValues(target).Set(float64(state))
}

func (m *BreakerMetrics) transition(target string, from, to State) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(target, from.String(), to.String()).Inc()
	if to == Open {
		m.Opened.WithLabelValues(target).Inc()
	}
}

func registerOrExisting[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
