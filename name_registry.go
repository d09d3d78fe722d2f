package ecsim

import "fmt"

// NameRegistry is an optional string-name <-> ComponentTypeId side table
// for CLI/debug tooling that wants to print human-readable component
// names instead of raw ids; nothing on the hot path (RegisterComponent,
// Query, column access) ever consults it. Grounded on the teacher's
// `cache.go` `SimpleCache[T]` (`Register(key, item) (int, error)`,
// `GetIndex(key) (int, bool)`), generalized from "cache a generic item
// behind a string key" to "bind a string name to an already-registered
// ComponentTypeId in both directions," since a debug tool wants to go
// id->name as often as name->id.
type NameRegistry struct {
	nameToID map[string]ComponentTypeId
	idToName map[ComponentTypeId]string
}

// NewNameRegistry returns an empty side table.
func NewNameRegistry() *NameRegistry {
	return &NameRegistry{
		nameToID: make(map[string]ComponentTypeId),
		idToName: make(map[ComponentTypeId]string),
	}
}

// Register binds name to id. Re-registering the same name against a
// different id fails, mirroring the teacher's Register rejecting a
// request it cannot satisfy rather than silently overwriting.
func (n *NameRegistry) Register(name string, id ComponentTypeId) error {
	if existing, ok := n.nameToID[name]; ok && existing != id {
		return fmt.Errorf("ecsim: name %q already bound to component id %d", name, existing)
	}
	n.nameToID[name] = id
	n.idToName[id] = name
	return nil
}

// IDOf returns the ComponentTypeId bound to name, if any.
func (n *NameRegistry) IDOf(name string) (ComponentTypeId, bool) {
	id, ok := n.nameToID[name]
	return id, ok
}

// NameOf returns the name bound to id, if any.
func (n *NameRegistry) NameOf(id ComponentTypeId) (string, bool) {
	name, ok := n.idToName[id]
	return name, ok
}
