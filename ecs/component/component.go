package component

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	ErrEntityNotAlive       = errors.New("ecs: entity not alive")
	ErrNilComponent         = errors.New("ecs: component is nil")
	ErrInvalidComponentKind = errors.New("ecs: invalid component kind")
)

// ComponentID is the process-wide number of a component kind. Zero is
// never assigned.
type ComponentID uint32

var lastComponentID atomic.Uint32

// ComponentHandle is the typed key of one kind of component. Handles are
// declared once as package variables next to the type they store.
type ComponentHandle[T any] struct {
	id   ComponentID
	name string
}

func NewComponent[T any]() ComponentHandle[T] {
	var zero T
	return ComponentHandle[T]{
		id:   ComponentID(lastComponentID.Add(1)),
		name: fmt.Sprintf("%T", zero),
	}
}

func (h ComponentHandle[T]) ID() ComponentID { return h.id }
func (h ComponentHandle[T]) Valid() bool     { return h.id != 0 }

// String names the stored type, for error messages.
func (h ComponentHandle[T]) String() string {
	if h.name == "" {
		return fmt.Sprintf("component(%d)", h.id)
	}
	return h.name
}
