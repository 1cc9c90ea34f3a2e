package thumbnail

import (
	"time"

	"media-thumbnailer/internal/raster"
)

// State is a position in the batch state machine:
//
//	idle -> loading-metadata -> extracting -> done
//	             |                  |
//	             +----> failed <----+
type State string

const (
	StateIdle            State = "idle"
	StateLoadingMetadata State = "loading-metadata"
	StateExtracting      State = "extracting"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

var transitions = map[State][]State{
	StateIdle:            {StateLoadingMetadata},
	StateLoadingMetadata: {StateExtracting, StateFailed},
	StateExtracting:      {StateDone, StateFailed},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Transition describes one batch state change. Metadata and Offsets are set
// from extracting onwards; Err is set when entering failed.
type Transition struct {
	From     State
	To       State
	Metadata Metadata
	Offsets  []float64
	Err      error
	Elapsed  time.Duration
}

// ExtractionReport is emitted once per offset after it settles.
type ExtractionReport struct {
	Index  int
	Offset float64
	Format raster.Format
	Size   int
	Seek   time.Duration
	Draw   time.Duration
	Encode time.Duration
	Err    error
}

// Observer is notified of batch progress. OnExtraction is called from
// extraction goroutines and must be safe for concurrent use.
type Observer interface {
	OnTransition(Transition)
	OnExtraction(ExtractionReport)
}

// NopObserver ignores every event. Embed it to implement only one method.
type NopObserver struct{}

func (NopObserver) OnTransition(Transition)       {}
func (NopObserver) OnExtraction(ExtractionReport) {}

type multiObserver []Observer

func (m multiObserver) OnTransition(t Transition) {
	for _, o := range m {
		o.OnTransition(t)
	}
}

func (m multiObserver) OnExtraction(r ExtractionReport) {
	for _, o := range m {
		o.OnExtraction(r)
	}
}

// Observers fans events out to every non-nil observer.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}
