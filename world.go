package ecsim

// World owns every piece of per-simulation state: the component type
// registry, the archetype graph, entity bookkeeping, the command
// buffer mediating structural mutation, the system scheduler, and the
// event bus. None of this is a package-level global (Open Question 1):
// a process may run any number of independent Worlds concurrently,
// each with its own registry so component ids need not line up across
// worlds.
type World struct {
	cfg Config

	registry   *ComponentTypeRegistry
	archetypes *archetypeIndex
	entities   *entityManager
	commands   *CommandBuffer
	scheduler  *SystemScheduler
	events     *EventBus

	clock clock
	stats *schedulerStats

	parent      []Entity
	parentEpoch []uint32

	autosaveAccum float64
}

// clock tracks the monotonic simulation time the orchestrator advances
// in phase 1.
type clock struct {
	elapsed float64
	tick    uint64
}

// Elapsed returns total simulated seconds advanced so far.
func (c clock) Elapsed() float64 { return c.elapsed }

// Tick returns the current tick counter.
func (c clock) Tick() uint64 { return c.tick }

// NewWorld constructs an empty World using cfg (use DefaultConfig() for
// sane debug-build defaults).
func NewWorld(cfg Config) *World {
	registry := NewComponentTypeRegistry()
	w := &World{
		cfg:        cfg,
		registry:   registry,
		archetypes: newArchetypeIndex(registry),
		entities:   newEntityManager(),
		events:     NewEventBus(cfg.logger()),
		stats:      newSchedulerStats(),
	}
	w.commands = NewCommandBuffer(registry, cfg.DefaultCommandBucketCapacity)
	w.scheduler = NewSystemScheduler(w.cfg.ParallelWorkerCount, w.stats, cfg.logger())
	return w
}

// Registry returns the world's component type registry, used to
// register component types before building queries or builders.
func (w *World) Registry() *ComponentTypeRegistry { return w.registry }

// Commands returns the world's CommandBuffer, the only sanctioned
// route for structural mutation.
func (w *World) Commands() *CommandBuffer { return w.commands }

// Events returns the world's event bus for subscribing to lifecycle
// events.
func (w *World) Events() *EventBus { return w.events }

// Scheduler returns the world's system scheduler, used to register
// systems.
func (w *World) Scheduler() *SystemScheduler { return w.scheduler }

// Clock returns the current simulated time and tick counter.
func (w *World) Clock() (elapsedSeconds float64, tick uint64) {
	return w.clock.elapsed, w.clock.tick
}

// IsAlive reports whether e still identifies a live entity.
func (w *World) IsAlive(e Entity) bool { return w.entities.IsAlive(e) }

// Query invokes yield with every archetype whose signature satisfies
// node, in archetypeIndex order (lazy, O(N_archetypes) per §4.F).
func (w *World) Query(node QueryNode, yield func(Archetype) bool) {
	w.archetypes.query(nil, func(a *archetype) bool {
		if !node.Evaluate(a.signature) {
			return true
		}
		return yield(Archetype{a: a})
	})
}

// SetParent records child as having parent p, stamping child's version
// into parentEpoch so a later destroy-then-recycle of e's index can be
// told apart from the relationship that was set this tick (the same
// recycle-safety concern §4.G's version field exists for, extended to
// this supplemental relationship table). SetParent is a direct,
// synchronous write: parent/child bookkeeping is metadata, not
// archetype-affecting structure, so it does not need to go through the
// command buffer.
func (w *World) SetParent(child, p Entity) {
	idx := child.Index()
	w.growParentTables(idx)
	w.parent[idx] = p
	w.parentEpoch[idx] = child.Version()
}

// Parent returns child's parent and whether the relationship is still
// valid for child's current version.
func (w *World) Parent(child Entity) (Entity, bool) {
	idx := child.Index()
	if int(idx) >= len(w.parent) || w.parentEpoch[idx] != child.Version() {
		return NullEntity, false
	}
	p := w.parent[idx]
	if p.IsInvalid() {
		return NullEntity, false
	}
	return p, true
}

// ClearParent removes child's recorded parent, if any.
func (w *World) ClearParent(child Entity) {
	idx := child.Index()
	if int(idx) >= len(w.parent) {
		return
	}
	w.parent[idx] = NullEntity
}

func (w *World) growParentTables(idx uint32) {
	if int(idx) < len(w.parent) {
		return
	}
	grown := make([]Entity, idx+1)
	copy(grown, w.parent)
	w.parent = grown

	grownEpoch := make([]uint32, idx+1)
	copy(grownEpoch, w.parentEpoch)
	w.parentEpoch = grownEpoch
}
