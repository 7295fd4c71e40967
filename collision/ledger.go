package collision

import (
	"context"
	"fmt"
)

// Event is one distinct colliding pair, recorded the first time it was seen.
type Event struct {
	Seq     int
	BlockA  string
	BlockB  string
	ObjectA ObjectID
	ObjectB ObjectID
}

func (e Event) Pair() Pair {
	return Pair{BlockA: e.BlockA, BlockB: e.BlockB, ObjectA: e.ObjectA, ObjectB: e.ObjectB}
}

func (e Event) String() string {
	return fmt.Sprintf("%s collided with %s", e.BlockA, e.BlockB)
}

// pairKey is the order-independent identity of a pair.
type pairKey struct {
	lo BlockKey
	hi BlockKey
}

func keyOf(p Pair) pairKey {
	a, b := p.A(), p.B()
	if b.Object < a.Object || (b.Object == a.Object && b.Name < a.Name) {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// Filterer receives permanently suppressed pairs, normally a Bridge.
type Filterer interface {
	Filter(ctx context.Context, pairs []Pair) error
}

// Ledger is the ordered, deduplicated collision history. A pair is known
// regardless of which side the backend reports first.
type Ledger struct {
	events   []Event
	known    map[pairKey]int
	filtered map[pairKey]struct{}
	nextSeq  int
}

func NewLedger() *Ledger {
	return &Ledger{
		known:    make(map[pairKey]int),
		filtered: make(map[pairKey]struct{}),
	}
}

// Ingest records every novel pair and returns only those, in report order.
func (l *Ledger) Ingest(pairs []Pair) []Event {
	var added []Event
	for _, p := range pairs {
		k := keyOf(p)
		if _, ok := l.filtered[k]; ok {
			continue
		}
		if _, ok := l.known[k]; ok {
			continue
		}
		e := Event{Seq: l.nextSeq, BlockA: p.BlockA, BlockB: p.BlockB, ObjectA: p.ObjectA, ObjectB: p.ObjectB}
		l.nextSeq++
		l.known[k] = len(l.events)
		l.events = append(l.events, e)
		added = append(added, e)
	}
	return added
}

// Contains reports whether the pair is already in the history.
func (l *Ledger) Contains(p Pair) bool {
	_, ok := l.known[keyOf(p)]
	return ok
}

// Filtered reports whether the pair has been declared a false positive.
func (l *Ledger) Filtered(p Pair) bool {
	_, ok := l.filtered[keyOf(p)]
	return ok
}

// Clear empties the history and restarts numbering. Filtered pairs stay
// filtered.
func (l *Ledger) Clear() {
	l.events = nil
	l.known = make(map[pairKey]int)
	l.nextSeq = 0
}

// Filter suppresses pairs for good and forwards them to f. A nil pairs
// slice means every recorded event. History entries are kept.
func (l *Ledger) Filter(ctx context.Context, f Filterer, pairs []Pair) error {
	if pairs == nil {
		pairs = make([]Pair, 0, len(l.events))
		for _, e := range l.events {
			pairs = append(pairs, e.Pair())
		}
	}
	for _, p := range pairs {
		l.filtered[keyOf(p)] = struct{}{}
	}
	if f == nil || len(pairs) == 0 {
		return nil
	}
	if err := f.Filter(ctx, pairs); err != nil {
		return fmt.Errorf("collision: filter %d pairs: %w", len(pairs), err)
	}
	return nil
}

func (l *Ledger) Len() int {
	return len(l.events)
}

// Events returns the history in detection order.
func (l *Ledger) Events() []Event {
	return append([]Event(nil), l.events...)
}

// History renders the history as the lines shown to operators.
func (l *Ledger) History() []string {
	if len(l.events) == 0 {
		return []string{"No collisions were found"}
	}
	out := make([]string, 0, len(l.events)+1)
	out = append(out, fmt.Sprintf("%d collisions occurred", len(l.events)))
	for _, e := range l.events {
		out = append(out, fmt.Sprintf("Collision N°%d: %s", e.Seq, e))
	}
	return out
}
