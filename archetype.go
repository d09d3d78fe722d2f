package ecsim

import (
	"fmt"
	"sort"
	"strings"
)

// archetype holds every entity sharing an identical ComponentSignature,
// column-by-column (Structure-of-Arrays), per §3/§4.E. Removal uses
// deferred compaction: remove_at_swap only tombstones a slot, and the
// actual defragmentation happens later in compact(). This is the
// required algorithm (§9 "Deferred compaction vs swap-remove") — it
// avoids the stale-slot race an immediate swap-remove produces when a
// batch destroys several entities from the same archetype in one pass.
type archetype struct {
	handle    int32 // stable small-int id assigned by archetypeIndex at creation
	signature ComponentSignature
	ids       []ComponentTypeId
	columns   map[ComponentTypeId]columnStore
	entities  []Entity

	liveCount int
	deadSlots []int

	addEdge    map[ComponentTypeId]*archetype
	removeEdge map[ComponentTypeId]*archetype
}

func newArchetype(sig ComponentSignature, registry *ComponentTypeRegistry) *archetype {
	ids := sig.IDs()
	a := &archetype{
		signature:  sig,
		ids:        ids,
		columns:    make(map[ComponentTypeId]columnStore, len(ids)),
		addEdge:    make(map[ComponentTypeId]*archetype),
		removeEdge: make(map[ComponentTypeId]*archetype),
	}
	for _, id := range ids {
		a.columns[id] = registry.newColumnFor(id)
	}
	return a
}

// Count returns live_count: the number of non-tombstoned slots.
func (a *archetype) Count() int { return a.liveCount }

// Entities returns the entity column, including tombstoned slots (the
// caller filters on liveCount/dead sentinel as needed).
func (a *archetype) Entities() []Entity { return a.entities }

// addEntity places e into a fresh or recycled slot and returns it.
// Reused dead slots keep stale column data until the caller overwrites
// it (matches §4.E: "columns already sized, data is stale default").
func (a *archetype) addEntity(e Entity) int {
	if n := len(a.deadSlots); n > 0 {
		slot := a.deadSlots[n-1]
		a.deadSlots = a.deadSlots[:n-1]
		a.entities[slot] = e
		a.liveCount++
		return slot
	}
	slot := len(a.entities)
	a.entities = append(a.entities, e)
	for _, id := range a.ids {
		a.columns[id].pushDefault()
	}
	a.liveCount++
	return slot
}

// removeAtSwap tombstones slot (§4.E deferred-compaction semantics: no
// column touched, no lookup table touched — the caller, typically
// EntityManager, owns clearing the destroyed entity's lookup entry).
// Out-of-range or already-dead slots are silent no-ops per §4.E
// "Failure semantics: slot out of range -> no-op."
func (a *archetype) removeAtSwap(slot int) {
	if slot < 0 || slot >= len(a.entities) {
		return
	}
	if isDeadSlot(a.entities[slot]) {
		return
	}
	a.entities[slot] = deadEntitySentinel
	a.deadSlots = append(a.deadSlots, slot)
	a.liveCount--
}

// compact defragments: each dead slot is filled by swapping in the
// entity (and every column value) from the current live tail, then all
// columns and the entity column are truncated to liveCount. updateLookup
// is invoked for every entity actually moved, so the caller (EntityManager)
// can repoint its slot table — this callback is the explicit
// back-reference §9 asks for in place of a process-global world handle.
//
// compact is idempotent (§8 R3): once no dead slots remain, calling it
// again is a no-op.
func (a *archetype) compact(updateLookup func(e Entity, newSlot int)) {
	if len(a.deadSlots) == 0 {
		return
	}
	// Ascending order, per §4.E: "iterate dead_slots in ascending order".
	sortInts(a.deadSlots)

	tail := len(a.entities)
	for _, hole := range a.deadSlots {
		// Find the last live slot strictly after every processed hole.
		tail--
		for tail > hole && isDeadSlot(a.entities[tail]) {
			tail--
		}
		if tail <= hole {
			// No live entity left beyond this hole; everything past it
			// is dead and will be truncated away below.
			break
		}
		moved := a.entities[tail]
		a.entities[hole] = moved
		a.entities[tail] = deadEntitySentinel
		for _, id := range a.ids {
			a.columns[id].swapInternal(hole, tail)
		}
		updateLookup(moved, hole)
	}

	a.entities = a.entities[:a.liveCount]
	for _, id := range a.ids {
		a.columns[id].truncate(a.liveCount)
	}
	a.deadSlots = a.deadSlots[:0]
}

// transition moves the entity at fromSlot in a into target, copying
// every shared component, writing extra (if target has a component a
// doesn't), and marking fromSlot dead in a. Returns the slot in target.
func (a *archetype) transition(fromSlot int, target *archetype, extraID ComponentTypeId, extra any, hasExtra bool) int {
	e := a.entities[fromSlot]
	newSlot := len(target.entities)
	target.entities = append(target.entities, e)

	for _, id := range target.ids {
		dst := target.columns[id]
		if src, ok := a.columns[id]; ok {
			src.copySlotTo(dst, fromSlot)
		} else if hasExtra && id == extraID {
			dst.pushDefault()
			dst.setBoxed(newSlot, extra)
		} else {
			dst.pushDefault()
		}
	}
	target.liveCount++
	a.removeAtSwap(fromSlot)
	return newSlot
}

func sortInts(s []int) {
	// Small insertion sort: dead-slot batches are typically small
	// relative to archetype size, and this avoids pulling in sort for a
	// handful of ints on the hot compaction path.
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j] > v {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}

// columnSlice returns the typed backing slice for accessor a on
// archetype arch, or nil if arch does not carry that component.
func columnSlice[T any](arch *archetype, accessor ComponentAccessor[T]) []T {
	cs, ok := arch.columns[accessor.id]
	if !ok {
		return nil
	}
	return cs.(*column[T]).slice()
}

// Archetype is the public, read-mostly handle to an internal archetype
// exposed to systems and queries.
type Archetype struct {
	a *archetype
}

// Count returns the number of live entities in the archetype.
func (a Archetype) Count() int { return a.a.Count() }

// Entities returns the entity column. FrameOrchestrator.Tick compacts
// every archetype after applying structural changes, so during system
// updates and between ticks the column holds exactly Count() live
// entities; a removal made outside a tick leaves a tombstoned slot in
// place until the next compaction.
func (a Archetype) Entities() []Entity { return a.a.Entities() }

// Signature returns the archetype's component signature.
func (a Archetype) Signature() ComponentSignature { return a.a.signature }

// Column is the exported accessor systems use to read/write component
// values in place for a queried archetype.
func Column[T any](arch Archetype, accessor ComponentAccessor[T]) []T {
	return columnSlice[T](arch.a, accessor)
}

// String renders a sorted, human-readable list of the archetype's
// component type names, e.g. "[Position, Velocity]", for debug logging
// and the CLI. Grounded on the teacher's `entity.ComponentsAsString`
// (sorted, bracketed, package-qualifier stripped), reshaped from "walk
// an entity's live component values and reflect.TypeOf each one" to
// "walk the archetype's ids and ask the registry for each one's type,"
// since this core stores components in typed columns rather than a
// per-entity `[]Component` of boxed values. A name the registry can no
// longer resolve (should not happen; ids are never reused) falls back
// to "#<id>" rather than panicking, since this is a debug aid.
func (a Archetype) String(r *ComponentTypeRegistry) string {
	if len(a.a.ids) == 0 {
		return "[]"
	}
	names := make([]string, 0, len(a.a.ids))
	for _, id := range a.a.ids {
		desc, err := r.TypeOf(id)
		if err != nil {
			names = append(names, fmt.Sprintf("#%d", id))
			continue
		}
		name := desc.Type.String()
		name = strings.TrimPrefix(name, "*")
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[i+1:]
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return "[" + strings.Join(names, ", ") + "]"
}
