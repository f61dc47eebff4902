package ports

import "time"

// Metrics puerto de observabilidad del núcleo del libro. Las implementaciones no deben fallar.
type Metrics interface {
	MovementsAppended(kind string, n int)
	BalanceRecomputed(outcome string, elapsed time.Duration)
	GapDaysFilled(n int)
	TransferTransition(action, outcome string)
	JobProcessed(task, outcome string, elapsed time.Duration)
}

// NopMetrics descarta todo; útil en tests y en la CLI.
type NopMetrics struct{}

func (NopMetrics) MovementsAppended(string, int)              {}
func (NopMetrics) BalanceRecomputed(string, time.Duration)    {}
func (NopMetrics) GapDaysFilled(int)                          {}
func (NopMetrics) TransferTransition(string, string)          {}
func (NopMetrics) JobProcessed(string, string, time.Duration) {}
