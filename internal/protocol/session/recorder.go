package session

import "time"

// ExchangeKind labels single-shot versus streamed exchanges.
type ExchangeKind string

const (
	KindRequest  ExchangeKind = "request"
	KindStreamed ExchangeKind = "streamed"
)

const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// Recorder receives exchange observations. Implementations must not block.
type Recorder interface {
	ObserveExchange(command string, kind ExchangeKind, outcome string, elapsed time.Duration)
	ObserveEvent(stream string, delivered bool)
	ObserveSubscription(stream string, delta int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveExchange(string, ExchangeKind, string, time.Duration) {}
func (nopRecorder) ObserveEvent(string, bool)                                   {}
func (nopRecorder) ObserveSubscription(string, int)                             {}

func outcomeOf(err error, cancelled bool) string {
	switch {
	case err != nil:
		return OutcomeError
	case cancelled:
		return OutcomeCancelled
	default:
		return OutcomeOK
	}
}
