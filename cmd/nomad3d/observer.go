package main

import (
	"log"

	"github.com/milk9111/nomad3d/collision"
	"github.com/milk9111/nomad3d/engine"
)

// logObserver prints what an operator would see in the viewer.
type logObserver struct {
	logger *log.Logger
}

func (o logObserver) OnCollisions(events []collision.Event) {
	for _, ev := range events {
		o.logger.Printf("Collision N°%d: %s", ev.Seq, ev)
	}
}

func (o logObserver) OnAlert(a engine.Alert, pairs []collision.Pair) {
	if a == engine.AlertColliding {
		o.logger.Printf("Alert: %s (%d pairs)", a, len(pairs))
		return
	}
	o.logger.Printf("Alert: %s", a)
}

func (o logObserver) OnHistoryCleared() {
	o.logger.Printf("History: cleared")
}

func (o logObserver) OnFocus(enabled bool) {
	o.logger.Printf("Focus: %t", enabled)
}

func (o logObserver) OnPause(paused bool) {
	if paused {
		o.logger.Printf("Positions: paused")
		return
	}
	o.logger.Printf("Positions: resumed")
}
