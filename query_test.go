package ecsim

import "testing"

func TestQueryAndRequiresAllComponents(t *testing.T) {
	r := NewComponentTypeRegistry()
	pos := RegisterComponent[testPosition](r)
	vel := RegisterComponent[testVelocity](r)

	q := NewQuery()
	q.And(pos.ID(), vel.ID())

	both := EmptySignature().With(pos.ID()).With(vel.ID())
	posOnly := EmptySignature().With(pos.ID())

	if !q.Evaluate(both) {
		t.Error("AND query should match a signature containing both components")
	}
	if q.Evaluate(posOnly) {
		t.Error("AND query should not match a signature missing one of the components")
	}
}

func TestQueryOrMatchesEither(t *testing.T) {
	r := NewComponentTypeRegistry()
	pos := RegisterComponent[testPosition](r)
	vel := RegisterComponent[testVelocity](r)

	q := NewQuery()
	q.Or(pos.ID(), vel.ID())

	posOnly := EmptySignature().With(pos.ID())
	neither := EmptySignature()

	if !q.Evaluate(posOnly) {
		t.Error("OR query should match a signature containing only one of the components")
	}
	if q.Evaluate(neither) {
		t.Error("OR query should not match a signature containing neither component")
	}
}

func TestQueryNotExcludesComponent(t *testing.T) {
	r := NewComponentTypeRegistry()
	pos := RegisterComponent[testPosition](r)
	vel := RegisterComponent[testVelocity](r)

	q := NewQuery()
	q.Not(vel.ID())

	posOnly := EmptySignature().With(pos.ID())
	both := EmptySignature().With(pos.ID()).With(vel.ID())

	if !q.Evaluate(posOnly) {
		t.Error("NOT query should match a signature lacking the excluded component")
	}
	if q.Evaluate(both) {
		t.Error("NOT query should not match a signature carrying the excluded component")
	}
}

func TestQueryNestedComposite(t *testing.T) {
	r := NewComponentTypeRegistry()
	pos := RegisterComponent[testPosition](r)
	vel := RegisterComponent[testVelocity](r)
	tag := RegisterComponent[struct{}](r)

	q := NewQuery()
	q.And(pos.ID(), q.Not(tag.ID()))

	wanted := EmptySignature().With(pos.ID()).With(vel.ID())
	tagged := EmptySignature().With(pos.ID()).With(tag.ID())

	if !q.Evaluate(wanted) {
		t.Error("position without tag should match And(position, Not(tag))")
	}
	if q.Evaluate(tagged) {
		t.Error("position with tag should not match And(position, Not(tag))")
	}
}
