package filesystem

import "sync/atomic"

// Observer records retry metrics. The metrics package provides the Prometheus
// implementation so that filesystem does not import it.
type Observer interface {
	ObserveRetryAttempt(op, volume string)
	ObserveRetrySuccess(op, volume string)
	ObserveRetryFailure(op, volume string)
	ObserveRetryDuration(op, volume string, durationSeconds float64)
	ObserveStaleError(op, volume string)
}

type nopObserver struct{}

func (nopObserver) ObserveRetryAttempt(string, string)           {}
func (nopObserver) ObserveRetrySuccess(string, string)           {}
func (nopObserver) ObserveRetryFailure(string, string)           {}
func (nopObserver) ObserveRetryDuration(string, string, float64) {}
func (nopObserver) ObserveStaleError(string, string)             {}

type observerBox struct{ Observer }

var defaultObserver atomic.Pointer[observerBox]

// SetObserver sets the package-level metrics observer. nil restores the no-op
// observer.
func SetObserver(o Observer) {
	if o == nil {
		defaultObserver.Store(nil)
		return
	}
	defaultObserver.Store(&observerBox{o})
}

func observe() Observer {
	if b := defaultObserver.Load(); b != nil {
		return b.Observer
	}
	return nopObserver{}
}
