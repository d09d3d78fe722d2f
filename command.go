package ecsim

import (
	"sync"
)

// EntityBuilder accumulates a typed component list for a single
// CreateEntity call, so the final signature is known up front and the
// entity is placed directly into its target archetype instead of
// thrashing through N archetype transitions for N components (§4.H
// rationale).
type EntityBuilder struct {
	ids    []ComponentTypeId
	values []any
}

// NewEntityBuilder returns an empty builder.
func NewEntityBuilder() *EntityBuilder {
	return &EntityBuilder{}
}

// WithComponent stages value under accessor's component type. Staging
// the same component twice keeps the last value and does not grow the
// signature twice; duplicates are not otherwise checked.
func WithComponent[T any](b *EntityBuilder, accessor ComponentAccessor[T], value T) *EntityBuilder {
	b.ids = append(b.ids, accessor.ID())
	b.values = append(b.values, value)
	return b
}

// createRecord is the materialized result of a builder: a signature
// plus the id/value pairs needed to populate the new entity's slot
// once its archetype is resolved.
type createRecord struct {
	ids    []ComponentTypeId
	values []any
}

func (b *EntityBuilder) toRecord() createRecord {
	return createRecord{ids: b.ids, values: b.values}
}

// addRecord is a worker- or main-thread-queued add_component op.
// Entity carries the full (index, version) pair so the apply phase can
// detect and drop stale ops against a recycled index (I6).
type addRecord struct {
	e     Entity
	id    ComponentTypeId
	value any
}

// removeRecord is a worker- or main-thread-queued remove_component op.
type removeRecord struct {
	e  Entity
	id ComponentTypeId
}

// CommandBucket is a per-thread-owned scratch buffer for worker-side
// structural requests: add_component, remove_component, destroy_entity.
// It carries no lock; the scheduler guarantees one goroutine owns a
// given bucket for the duration of a system's update (§5 "Worker-side
// command buckets: per-thread-owned; never shared during the frame's
// system phase").
type CommandBucket struct {
	adds     []addRecord
	removes  []removeRecord
	destroys []Entity
}

// AddComponent stages a deferred add_component(e, id, value).
func (cb *CommandBucket) AddComponent(e Entity, id ComponentTypeId, value any) {
	cb.adds = append(cb.adds, addRecord{e: e, id: id, value: value})
}

// RemoveComponent stages a deferred remove_component(e, id).
func (cb *CommandBucket) RemoveComponent(e Entity, id ComponentTypeId) {
	cb.removes = append(cb.removes, removeRecord{e: e, id: id})
}

// DestroyEntity stages a deferred destroy_entity(e).
func (cb *CommandBucket) DestroyEntity(e Entity) {
	cb.destroys = append(cb.destroys, e)
}

func (cb *CommandBucket) reset() {
	cb.adds = cb.adds[:0]
	cb.removes = cb.removes[:0]
	cb.destroys = cb.destroys[:0]
}

func (cb *CommandBucket) isOverCap(cap int) bool {
	return len(cb.adds)+len(cb.removes)+len(cb.destroys) > cap
}

// CommandBucketPool hands out CommandBuckets to worker goroutines and
// reclaims them after apply(), per §5's "scoped acquisition ... with
// guaranteed release". Built on sync.Pool, matching the pack's
// standard-library answer for exactly this shape of per-goroutine
// scratch buffer reuse (no example repo reaches for a third-party
// object-pool library).
type CommandBucketPool struct {
	pool     sync.Pool
	capacity int

	mu      sync.Mutex
	live    []*CommandBucket
	overCap bool // sticky "warn once per tick" latch, see §7
}

// NewCommandBucketPool creates a pool whose freshly minted buckets
// preallocate capacity slots per queue.
func NewCommandBucketPool(capacity int) *CommandBucketPool {
	p := &CommandBucketPool{capacity: capacity}
	p.pool.New = func() any {
		return &CommandBucket{
			adds:     make([]addRecord, 0, capacity),
			removes:  make([]removeRecord, 0, capacity),
			destroys: make([]Entity, 0, capacity),
		}
	}
	return p
}

// Acquire hands the caller a bucket and remembers it so Drain can find
// every live bucket even if the caller never calls Release (a failing
// worker goroutine should not leak its bucket's staged ops).
func (p *CommandBucketPool) Acquire() *CommandBucket {
	cb := p.pool.Get().(*CommandBucket)
	p.mu.Lock()
	p.live = append(p.live, cb)
	p.mu.Unlock()
	return cb
}

// Release returns cb to the pool once its ops have been drained. It is
// safe to call Release without having drained cb; Drain handles that:
// a bucket still waiting for the next drain is left in place, and the
// drain applies its staged ops before returning it to the pool.
func (p *CommandBucketPool) Release(cb *CommandBucket) {
	p.mu.Lock()
	for _, l := range p.live {
		if l == cb {
			p.mu.Unlock()
			return
		}
	}
	p.mu.Unlock()
	cb.reset()
	p.pool.Put(cb)
}

// drainInto moves every live bucket's staged ops into the destination
// slices, warns once if any bucket exceeded its soft cap, and returns
// every bucket to the pool. Called once per tick from CommandBuffer's
// apply pipeline step 1.
func (p *CommandBucketPool) drainInto(adds *[]addRecord, removes *[]removeRecord, destroys *[]Entity, logger Logger) {
	p.mu.Lock()
	live := p.live
	p.live = nil
	p.mu.Unlock()

	overCap := false
	for _, cb := range live {
		if cb.isOverCap(p.capacity) {
			overCap = true
		}
		*adds = append(*adds, cb.adds...)
		*removes = append(*removes, cb.removes...)
		*destroys = append(*destroys, cb.destroys...)
		p.Release(cb)
	}
	if overCap {
		logger.Warn("command bucket exceeded soft capacity", "error", ErrCommandBucketOverflow, "capacity", p.capacity)
	}
}

// CommandBuffer is the mediator for every structural mutation: systems
// never touch the EntityManager/ArchetypeIndex directly (§6
// "Subscribers must not perform structural mutations directly").
type CommandBuffer struct {
	registry *ComponentTypeRegistry
	pool     *CommandBucketPool

	creates       []createRecord
	mainDestroys  []Entity
	addQueue      []addRecord
	removeQueue   []removeRecord
	destroyQueue  []Entity
}

// NewCommandBuffer builds a CommandBuffer backed by a fresh bucket pool
// sized per cfg.DefaultCommandBucketCapacity.
func NewCommandBuffer(registry *ComponentTypeRegistry, bucketCapacity int) *CommandBuffer {
	return &CommandBuffer{
		registry: registry,
		pool:     NewCommandBucketPool(bucketCapacity),
	}
}

// CreateEntity stages a main-thread entity creation built by fn. fn
// receives a fresh builder to populate.
func (c *CommandBuffer) CreateEntity(fn func(b *EntityBuilder)) {
	b := NewEntityBuilder()
	fn(b)
	c.creates = append(c.creates, b.toRecord())
}

// DestroyEntity stages a main-thread destroy.
func (c *CommandBuffer) DestroyEntity(e Entity) {
	c.mainDestroys = append(c.mainDestroys, e)
}

// AcquireBucket hands a worker goroutine its own CommandBucket for the
// duration of one system update.
func (c *CommandBuffer) AcquireBucket() *CommandBucket {
	return c.pool.Acquire()
}

// ReleaseBucket hands a bucket back (rarely needed; Drain reclaims any
// bucket still outstanding at apply time, and a bucket that has not yet
// been drained stays outstanding until then).
func (c *CommandBuffer) ReleaseBucket(cb *CommandBucket) {
	c.pool.Release(cb)
}

// drainBuckets is apply-pipeline step 1: move every worker bucket's
// staged ops into the world-level queues and return buckets to the pool.
func (c *CommandBuffer) drainBuckets(logger Logger) {
	c.pool.drainInto(&c.addQueue, &c.removeQueue, &c.destroyQueue, logger)
	c.destroyQueue = append(c.destroyQueue, c.mainDestroys...)
	c.mainDestroys = c.mainDestroys[:0]
}

// ApplyStructural is phase 3: drain buckets, then destroy before
// create, firing the EntityBatch* lifecycle events around each half.
// Returns the entities destroyed and created this tick so the
// orchestrator can publish events in the exact order §4.I specifies.
func (c *CommandBuffer) ApplyStructural(w *World) (destroyed, created []Entity) {
	c.drainBuckets(w.cfg.logger())

	destroyed = c.applyDestroys(w)
	created = c.applyCreates(w)
	return destroyed, created
}

func (c *CommandBuffer) applyDestroys(w *World) []Entity {
	if len(c.destroyQueue) == 0 {
		return nil
	}
	w.events.Publish(EntityBatchDestroyRequest, c.destroyQueue)

	ok := make([]Entity, 0, len(c.destroyQueue))
	for _, e := range c.destroyQueue {
		if err := w.entities.Destroy(e); err != nil {
			w.cfg.logger().Debug("dropped destroy of invalid entity", "error", ErrInvalidEntity, "entity", e.String())
			continue
		}
		ok = append(ok, e)
	}
	c.destroyQueue = c.destroyQueue[:0]

	w.events.Publish(EntityBatchDestroyed, ok)
	return ok
}

func (c *CommandBuffer) applyCreates(w *World) []Entity {
	if len(c.creates) == 0 {
		return nil
	}
	out := make([]Entity, 0, len(c.creates))
	for _, rec := range c.creates {
		var sig ComponentSignature
		for _, id := range rec.ids {
			sig = sig.With(id)
		}
		target := w.archetypes.getOrCreate(sig)
		e, slot := w.entities.CreateWithArchetype(target)
		for i, id := range rec.ids {
			target.columns[id].setBoxed(slot, rec.values[i])
		}
		out = append(out, e)
	}
	c.creates = c.creates[:0]

	w.events.Publish(EntityBatchCreated, out)
	return out
}

// ApplyComponentOps is phase 4: drain the remove queue, then the add
// queue. Each op validates liveness and is silently skipped if the
// entity's version no longer matches (I6: a stale op from a destroyed
// index must never affect whatever entity later recycles that index).
func (c *CommandBuffer) ApplyComponentOps(w *World) {
	for _, rec := range c.removeQueue {
		c.applyRemove(w, rec)
	}
	c.removeQueue = c.removeQueue[:0]

	for _, rec := range c.addQueue {
		c.applyAdd(w, rec)
	}
	c.addQueue = c.addQueue[:0]
}

func (c *CommandBuffer) applyRemove(w *World, rec removeRecord) {
	if !w.entities.IsAlive(rec.e) {
		w.cfg.logger().Debug("dropped remove_component on dead entity", "error", ErrInvalidEntity, "entity", rec.e.String())
		return
	}
	src, slot, _ := w.entities.TryGetLocation(rec.e)
	if !src.signature.Contains(rec.id) {
		w.cfg.logger().Warn("remove_component no-op", "error", ErrMissingComponent, "entity", rec.e.String())
		return
	}
	dst := w.archetypes.transitionRemove(src, rec.id)
	newSlot := src.transition(slot, dst, 0, nil, false)
	w.entities.SetLocation(rec.e, dst, newSlot)
}

func (c *CommandBuffer) applyAdd(w *World, rec addRecord) {
	if !w.entities.IsAlive(rec.e) {
		w.cfg.logger().Debug("dropped add_component on dead entity", "error", ErrInvalidEntity, "entity", rec.e.String())
		return
	}
	src, slot, _ := w.entities.TryGetLocation(rec.e)
	if src.signature.Contains(rec.id) {
		w.cfg.logger().Warn("add_component no-op", "error", ErrDuplicateComponent, "entity", rec.e.String())
		return
	}
	dst := w.archetypes.transitionAdd(src, rec.id)
	newSlot := src.transition(slot, dst, rec.id, rec.value, true)
	w.entities.SetLocation(rec.e, dst, newSlot)
}
