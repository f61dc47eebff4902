// Package metrics implementa ports.Metrics con Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/joyeria-ledger/internal/application/ports"
)

var _ ports.Metrics = (*Prometheus)(nil)

// Prometheus colectores del libro de inventario.
type Prometheus struct {
	movements   *prometheus.CounterVec
	recomputes  *prometheus.CounterVec
	recomputeDu prometheus.Histogram
	gapDays     prometheus.Counter
	transfers   *prometheus.CounterVec
	jobs        *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
}

// New registra los colectores en registerer; si es nil usa el registro por defecto.
func New(registerer prometheus.Registerer) *Prometheus {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &Prometheus{
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_movements_appended_total",
			Help: "Eventos agregados al libro por tipo.",
		}, []string{"kind"}),
		recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_balance_recomputes_total",
			Help: "Recálculos de saldo diario por resultado.",
		}, []string{"outcome"}),
		recomputeDu: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_balance_recompute_duration_seconds",
			Help:    "Duración de un recálculo de saldo (incluye relleno de huecos).",
			Buckets: prometheus.DefBuckets,
		}),
		gapDays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_balance_gap_days_filled_total",
			Help: "Días materializados al rellenar huecos de la cadena de saldos.",
		}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_transfer_transitions_total",
			Help: "Transiciones de traslados por acción y resultado.",
		}, []string{"action", "outcome"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_jobs_total",
			Help: "Tareas de fondo procesadas por tipo y resultado.",
		}, []string{"task", "outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_job_duration_seconds",
			Help:    "Duración de las tareas de fondo.",
			Buckets: prometheus.DefBuckets,
		}, []string{"task"}),
	}
	registerer.MustRegister(m.movements, m.recomputes, m.recomputeDu, m.gapDays, m.transfers, m.jobs, m.jobDuration)
	return m
}

func (m *Prometheus) MovementsAppended(kind string, n int) {
	if n <= 0 {
		return
	}
	m.movements.WithLabelValues(kind).Add(float64(n))
}

func (m *Prometheus) BalanceRecomputed(outcome string, elapsed time.Duration) {
	m.recomputes.WithLabelValues(label(outcome)).Inc()
	m.recomputeDu.Observe(elapsed.Seconds())
}

func (m *Prometheus) GapDaysFilled(n int) {
	if n > 0 {
		m.gapDays.Add(float64(n))
	}
}

func (m *Prometheus) TransferTransition(action, outcome string) {
	m.transfers.WithLabelValues(action, label(outcome)).Inc()
}

func (m *Prometheus) JobProcessed(task, outcome string, elapsed time.Duration) {
	m.jobs.WithLabelValues(task, label(outcome)).Inc()
	m.jobDuration.WithLabelValues(task).Observe(elapsed.Seconds())
}

func label(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
