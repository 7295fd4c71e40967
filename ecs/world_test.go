package ecs

import (
	"errors"
	"testing"

	"github.com/milk9111/nomad3d/ecs/component"
)

func TestSparseWorldEntityLifecycle(t *testing.T) {
	cases := []struct {
		name         string
		create       int
		destroyIndex int // -1 = none
	}{
		{"single", 1, 0},
		{"three_create_destroy_middle", 3, 1},
		{"none_destroy", 2, -1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := NewWorld()
			ents := make([]Entity, 0, c.create)
			for i := 0; i < c.create; i++ {
				ents = append(ents, CreateEntity(w))
			}
			if len(Entities(w)) != c.create {
				t.Fatalf("expected %d entities, got %d", c.create, len(Entities(w)))
			}
			if c.destroyIndex >= 0 {
				if !DestroyEntity(w, ents[c.destroyIndex]) {
					t.Fatalf("DestroyEntity should return true for alive entity")
				}
				if IsAlive(w, ents[c.destroyIndex]) {
					t.Fatalf("entity should not be alive after destruction")
				}
				if DestroyEntity(w, ents[c.destroyIndex]) {
					t.Fatalf("DestroyEntity should return false the second time")
				}
			}
		})
	}
}

func TestRecycledSlotRejectsStaleHandle(t *testing.T) {
	w := NewWorld()
	h := component.NewComponent[int]()

	old := CreateEntity(w)
	if err := Add(w, old, h, 1); err != nil {
		t.Fatal(err)
	}
	DestroyEntity(w, old)

	fresh := CreateEntity(w)
	if fresh.id() != old.id() {
		t.Fatalf("expected slot reuse, got %s after %s", fresh, old)
	}
	if Has(w, fresh, h) {
		t.Fatalf("components must not survive destruction")
	}
	if err := Add(w, old, h, 2); !errors.Is(err, component.ErrEntityNotAlive) {
		t.Fatalf("expected ErrEntityNotAlive, got %v", err)
	}
}

func TestSparseWorldComponentsAndQueries(t *testing.T) {
	w := NewWorld()

	h1 := component.NewComponent[int]()
	h2 := component.NewComponent[string]()

	e1 := CreateEntity(w)
	e2 := CreateEntity(w)

	tests := []struct {
		name     string
		setup    func() error
		check    func(t *testing.T)
		teardown func() bool
	}{
		{
			name:  "add_int_to_e1",
			setup: func() error { return Add(w, e1, h1, 10) },
			check: func(t *testing.T) {
				v, ok := Get(w, e1, h1)
				if !ok || *v != 10 {
					t.Fatalf("expected 10, got %v ok=%v", v, ok)
				}
			},
			teardown: func() bool { return Remove(w, e1, h1) },
		},
		{
			name: "add_str_to_e1_and_e2",
			setup: func() error {
				if err := Add(w, e1, h2, "a"); err != nil {
					return err
				}
				return Add(w, e2, h2, "b")
			},
			check: func(t *testing.T) {
				if !Has(w, e1, h2) || !Has(w, e2, h2) {
					t.Fatalf("expected both entities to have string component")
				}
				if Count(w, h2) != 2 {
					t.Fatalf("expected count 2, got %d", Count(w, h2))
				}
			},
			teardown: func() bool { return Remove(w, e1, h2) },
		},
		{
			name:  "mutate_through_pointer",
			setup: func() error { return Add(w, e2, h1, 1) },
			check: func(t *testing.T) {
				v, _ := Get(w, e2, h1)
				*v = 7
				again, _ := Get(w, e2, h1)
				if *again != 7 {
					t.Fatalf("expected in-place mutation, got %d", *again)
				}
			},
			teardown: func() bool { return Remove(w, e2, h1) },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.setup(); err != nil {
				t.Fatalf("setup failed: %v", err)
			}
			tc.check(t)
			if !tc.teardown() {
				t.Fatalf("teardown failed for %s", tc.name)
			}
		})
	}
}

func TestForEachAndFirst(t *testing.T) {
	w := NewWorld()
	ka := component.NewComponent[int]()
	kb := component.NewComponent[int]()

	e1 := CreateEntity(w)
	e2 := CreateEntity(w)
	e3 := CreateEntity(w)

	for _, step := range []struct {
		e Entity
		h component.ComponentHandle[int]
		v int
	}{{e1, ka, 1}, {e2, ka, 2}, {e2, kb, 3}, {e3, kb, 4}} {
		if err := Add(w, step.e, step.h, step.v); err != nil {
			t.Fatal(err)
		}
	}

	var seen []Entity
	ForEach(w, ka, func(e Entity, _ *int) { seen = append(seen, e) })
	if len(seen) != 2 || seen[0] != e1 || seen[1] != e2 {
		t.Fatalf("unexpected ForEach result %v", seen)
	}

	e, v, ok := First(w, kb)
	if !ok || e != e2 || *v != 3 {
		t.Fatalf("unexpected First result %v %v %v", e, v, ok)
	}
}

func TestSchedulerRunsInOrder(t *testing.T) {
	var order []string
	s := NewScheduler(SystemFunc(func(*World) { order = append(order, "a") }), nil)
	s.Add(SystemFunc(func(*World) { order = append(order, "b") }))
	s.Add(nil)
	s.Update(NewWorld())
	s.Update(NewWorld())
	if len(order) != 4 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("unexpected order %v", order)
	}
	if s.Len() != 2 {
		t.Fatalf("unexpected scheduler length %d", s.Len())
	}
}

func TestComponentHandlesAreDistinct(t *testing.T) {
	a := component.NewComponent[int]()
	b := component.NewComponent[int]()
	if !a.Valid() || !b.Valid() || a.ID() == b.ID() {
		t.Fatalf("expected distinct valid ids, got %d and %d", a.ID(), b.ID())
	}
	if a.String() != "int" {
		t.Fatalf("unexpected name %q", a.String())
	}
	var zero component.ComponentHandle[int]
	if zero.Valid() {
		t.Fatal("zero handle must be invalid")
	}
}
