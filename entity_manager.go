package ecsim

import (
	"fmt"

	"github.com/TheBitDrifter/bark"
)

// entityManager allocates, recycles, and locates entities, per §4.G.
// Unlike the teacher's storage.go (globalEntryIndex/globalEntities
// package vars), this state lives on the World itself — per Open
// Question 1, multiple independent worlds must be able to coexist in
// one process, which a package-global table forecloses.
type entityManager struct {
	versions     []uint32
	archetypeIdx []int32
	slot         []int32
	freeStack    []uint64 // packed (newVersion, index), per §3

	archetypes []*archetype // indexed by archetype.handle
}

func newEntityManager() *entityManager {
	m := &entityManager{}
	// Index 0 is reserved for NullEntity; burn it so the first real
	// allocateIndex() call returns 1, never 0.
	m.versions = append(m.versions, 0)
	m.archetypeIdx = append(m.archetypeIdx, -1)
	m.slot = append(m.slot, -1)
	return m
}

// rememberArchetype records a, indexed by its stable archetypeIndex
// handle, so later lookups are O(1) rather than a linear scan. The
// entityManager still never reaches into archetypeIndex directly; the
// handle is assigned once, by archetypeIndex, when the archetype is
// created, and simply threaded through here.
func (m *entityManager) rememberArchetype(a *archetype) {
	if int(a.handle) >= len(m.archetypes) {
		grown := make([]*archetype, a.handle+1)
		copy(grown, m.archetypes)
		m.archetypes = grown
	}
	m.archetypes[a.handle] = a
}

// allocateIndex pops a free index (with its already-incremented
// version) or grows the arrays for a brand-new index at version 1.
func (m *entityManager) allocateIndex() (index uint32, version uint32) {
	if n := len(m.freeStack); n > 0 {
		packed := m.freeStack[n-1]
		m.freeStack = m.freeStack[:n-1]
		return uint32(packed & 0xFFFFFFFF), uint32(packed >> 32)
	}
	index = uint32(len(m.versions))
	m.versions = append(m.versions, 1)
	m.archetypeIdx = append(m.archetypeIdx, -1)
	m.slot = append(m.slot, -1)
	return index, 1
}

// place records that index is now live in archetype a at slot s.
func (m *entityManager) place(index uint32, version uint32, a *archetype, s int) {
	m.rememberArchetype(a)
	m.versions[index] = version
	m.archetypeIdx[index] = a.handle
	m.slot[index] = int32(s)
}

// IsAlive reports whether e is the current occupant of its index.
func (m *entityManager) IsAlive(e Entity) bool {
	idx := e.Index()
	if idx == 0 || int(idx) >= len(m.versions) {
		return false
	}
	return m.versions[idx] == e.Version() && m.archetypeIdx[idx] >= 0
}

// TryGetLocation returns the archetype and slot for a live entity. The
// result is valid only while e remains alive (§4.G contract).
func (m *entityManager) TryGetLocation(e Entity) (*archetype, int, bool) {
	if !m.IsAlive(e) {
		return nil, 0, false
	}
	idx := e.Index()
	return m.archetypes[m.archetypeIdx[idx]], int(m.slot[idx]), true
}

// Create allocates a new entity into the empty archetype (the caller
// supplies it; entityManager has no notion of "the" empty archetype).
func (m *entityManager) Create(empty *archetype) Entity {
	index, version := m.allocateIndex()
	slot := empty.addEntity(NewEntity(index, version))
	m.place(index, version, empty, slot)
	return NewEntity(index, version)
}

// CreateWithArchetype allocates a new entity directly into target,
// avoiding the archetype-thrashing a create-then-N-adds sequence would
// cause (§4.G "avoids archetype thrashing"). Returns the entity and its
// slot so the caller can write component values.
func (m *entityManager) CreateWithArchetype(target *archetype) (Entity, int) {
	index, version := m.allocateIndex()
	e := NewEntity(index, version)
	slot := target.addEntity(e)
	m.place(index, version, target, slot)
	return e, slot
}

// Destroy invalidates e: the version is incremented exactly once
// (§4.G/§9 "version increment cadence" — create() never increments it
// again, it merely reuses the value freshly incremented here).
func (m *entityManager) Destroy(e Entity) error {
	if !m.IsAlive(e) {
		return bark.AddTrace(fmt.Errorf("%w: %v", ErrInvalidEntity, e))
	}
	idx := e.Index()
	a := m.archetypes[m.archetypeIdx[idx]]
	a.removeAtSwap(int(m.slot[idx]))

	newVersion := m.versions[idx] + 1
	m.versions[idx] = newVersion
	m.archetypeIdx[idx] = -1
	m.slot[idx] = -1
	m.freeStack = append(m.freeStack, uint64(newVersion)<<32|uint64(idx))
	return nil
}

// UpdateLookup is the callback archetype.compact invokes when an
// entity's slot changes underneath it (transitions use SetLocation).
func (m *entityManager) UpdateLookup(e Entity, newSlot int) {
	idx := e.Index()
	if int(idx) >= len(m.versions) || m.versions[idx] != e.Version() {
		return
	}
	m.slot[idx] = int32(newSlot)
}

// SetLocation directly repoints index to a new (archetype, slot) pair,
// used after a transition moves an entity into a different archetype.
func (m *entityManager) SetLocation(e Entity, a *archetype, s int) {
	m.rememberArchetype(a)
	idx := e.Index()
	m.archetypeIdx[idx] = a.handle
	m.slot[idx] = int32(s)
}
