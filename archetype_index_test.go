package ecsim

import "testing"

func TestArchetypeIndexGetOrCreateIsMemoized(t *testing.T) {
	r := NewComponentTypeRegistry()
	pos := RegisterComponent[testPosition](r)
	idx := newArchetypeIndex(r)

	sig := EmptySignature().With(pos.ID())
	a1 := idx.getOrCreate(sig)
	a2 := idx.getOrCreate(sig)

	if a1 != a2 {
		t.Fatal("getOrCreate should return the same archetype pointer for an equal signature")
	}
}

func TestArchetypeIndexTransitionEdgesAreMemoized(t *testing.T) {
	r := NewComponentTypeRegistry()
	pos := RegisterComponent[testPosition](r)
	idx := newArchetypeIndex(r)

	empty := idx.getOrCreate(EmptySignature())
	withPos1 := idx.transitionAdd(empty, pos.ID())
	withPos2 := idx.transitionAdd(empty, pos.ID())

	if withPos1 != withPos2 {
		t.Fatal("transitionAdd should memoize the edge and return the same target archetype")
	}
	if back := idx.transitionRemove(withPos1, pos.ID()); back != empty {
		t.Fatal("transitionRemove should reach the original empty archetype via the memoized reverse edge")
	}
}

func TestArchetypeIndexHandlesAreStable(t *testing.T) {
	r := NewComponentTypeRegistry()
	pos := RegisterComponent[testPosition](r)
	vel := RegisterComponent[testVelocity](r)
	idx := newArchetypeIndex(r)

	a := idx.getOrCreate(EmptySignature().With(pos.ID()))
	b := idx.getOrCreate(EmptySignature().With(vel.ID()))

	if a.handle == b.handle {
		t.Fatal("distinct archetypes must receive distinct handles")
	}
	if idx.all[a.handle] != a || idx.all[b.handle] != b {
		t.Fatal("archetype.handle must index directly into archetypeIndex.all")
	}
}

func TestArchetypeIndexQueryMatchesSupersets(t *testing.T) {
	r := NewComponentTypeRegistry()
	pos := RegisterComponent[testPosition](r)
	vel := RegisterComponent[testVelocity](r)
	idx := newArchetypeIndex(r)

	idx.getOrCreate(EmptySignature().With(pos.ID()))
	idx.getOrCreate(EmptySignature().With(pos.ID()).With(vel.ID()))
	idx.getOrCreate(EmptySignature().With(vel.ID()))

	var matches int
	idx.query([]ComponentTypeId{pos.ID()}, func(a *archetype) bool {
		matches++
		return true
	})
	if matches != 2 {
		t.Fatalf("expected 2 archetypes to contain position, got %d", matches)
	}
}
