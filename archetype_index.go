package ecsim

// archetypeIndex resolves signatures to archetypes and memoizes
// add(id)/remove(id) transition edges between them, per §4.F.
type archetypeIndex struct {
	registry *ComponentTypeRegistry
	byFP     map[string]*archetype
	all      []*archetype
}

func newArchetypeIndex(registry *ComponentTypeRegistry) *archetypeIndex {
	idx := &archetypeIndex{
		registry: registry,
		byFP:     make(map[string]*archetype),
	}
	// The empty archetype always exists: every entity created with no
	// components lands here.
	idx.getOrCreate(EmptySignature())
	return idx
}

// getOrCreate returns the archetype for sig, allocating a new one (with
// one column per id in sig, ascending order) if it doesn't exist yet.
func (idx *archetypeIndex) getOrCreate(sig ComponentSignature) *archetype {
	fp := sig.fingerprint()
	if a, ok := idx.byFP[fp]; ok {
		return a
	}
	a := newArchetype(sig, idx.registry)
	a.handle = int32(len(idx.all))
	idx.byFP[fp] = a
	idx.all = append(idx.all, a)
	return a
}

// transitionAdd returns the archetype reached from src by adding id,
// using (and populating) the memoized edge cache.
func (idx *archetypeIndex) transitionAdd(src *archetype, id ComponentTypeId) *archetype {
	if dst, ok := src.addEdge[id]; ok {
		return dst
	}
	dst := idx.getOrCreate(src.signature.With(id))
	src.addEdge[id] = dst
	dst.removeEdge[id] = src
	return dst
}

// transitionRemove returns the archetype reached from src by removing
// id, using (and populating) the memoized edge cache.
func (idx *archetypeIndex) transitionRemove(src *archetype, id ComponentTypeId) *archetype {
	if dst, ok := src.removeEdge[id]; ok {
		return dst
	}
	dst := idx.getOrCreate(src.signature.Without(id))
	src.removeEdge[id] = dst
	dst.addEdge[id] = src
	return dst
}

// query lazily yields every archetype whose signature contains every id
// in ids. Complexity is O(N_archetypes * k) per §4.F — no acceleration
// structure is in scope for the core.
func (idx *archetypeIndex) query(ids []ComponentTypeId, yield func(*archetype) bool) {
	var want ComponentSignature
	for _, id := range ids {
		want = want.With(id)
	}
	for _, a := range idx.all {
		if a.signature.ContainsAll(want) {
			if !yield(a) {
				return
			}
		}
	}
}
