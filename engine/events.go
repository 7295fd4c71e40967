package engine

import "github.com/milk9111/nomad3d/collision"

// Alert is the collision banner state shown to the operator.
type Alert int

const (
	AlertClear Alert = iota
	AlertColliding
)

func (a Alert) String() string {
	if a == AlertColliding {
		return "COLLIDING"
	}
	return "OK"
}

// Observer receives engine notifications on the tick goroutine. Embed
// NopObserver to implement only some of them.
type Observer interface {
	// OnCollisions is called with the ledger entries added by one report.
	OnCollisions(events []collision.Event)
	// OnAlert is called when the banner state changes.
	OnAlert(alert Alert, pairs []collision.Pair)
	OnHistoryCleared()
	OnFocus(enabled bool)
	OnPause(paused bool)
}

type NopObserver struct{}

func (NopObserver) OnCollisions([]collision.Event)  {}
func (NopObserver) OnAlert(Alert, []collision.Pair) {}
func (NopObserver) OnHistoryCleared()               {}
func (NopObserver) OnFocus(bool)                    {}
func (NopObserver) OnPause(bool)                    {}

type observers []Observer

func (obs observers) collisions(events []collision.Event) {
	for _, o := range obs {
		o.OnCollisions(events)
	}
}

func (obs observers) alert(a Alert, pairs []collision.Pair) {
	for _, o := range obs {
		o.OnAlert(a, pairs)
	}
}

func (obs observers) cleared() {
	for _, o := range obs {
		o.OnHistoryCleared()
	}
}

func (obs observers) focus(enabled bool) {
	for _, o := range obs {
		o.OnFocus(enabled)
	}
}

func (obs observers) pause(paused bool) {
	for _, o := range obs {
		o.OnPause(paused)
	}
}
