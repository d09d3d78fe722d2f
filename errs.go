package ecsim

import "errors"

// Sentinel errors per the error-kinds table in §7. Call sites wrap
// these with bark.AddTrace and fmt.Errorf("%w: ...", ...) so callers
// can still errors.Is against the sentinel while getting a stack trace
// at the point of failure, following the teacher's pattern of carrying
// bark through every returned error without losing Go's error-wrapping
// conventions (the teacher instead defines typed structs per error;
// this core treats most of its failures as routine, policy-governed
// outcomes rather than exceptional conditions, so plain sentinels plus
// wrapping fit better here).
var (
	// ErrInvalidEntity means an operation referenced a stale
	// (index, version) pair. Queued component ops and queued destroys
	// against a stale entity are dropped silently by the caller; this
	// sentinel exists so that drop can still be logged and tested.
	ErrInvalidEntity = errors.New("ecsim: invalid entity")

	// ErrDuplicateComponent means add_component targeted an entity that
	// already carries the component. Policy: no-op with a warning.
	ErrDuplicateComponent = errors.New("ecsim: component already present")

	// ErrMissingComponent means remove_component targeted an entity that
	// doesn't carry the component. Policy: no-op with a warning.
	ErrMissingComponent = errors.New("ecsim: component not present")

	// ErrUnknownComponent means a ComponentTypeId was used that the
	// registry never assigned. Policy: fatal at the offending system's
	// update; the scheduler isolates the failure.
	ErrUnknownComponent = errors.New("ecsim: unknown component type")

	// ErrCircularDependency is reported when system topological sort
	// detects a cycle. Policy: fatal for that tick's run-set only.
	ErrCircularDependency = errors.New("ecsim: circular system dependency")

	// ErrCommandBucketOverflow marks a worker command bucket exceeding
	// its soft capacity. Policy: the bucket grows anyway; this sentinel
	// backs a once-per-tick warning, never a hard failure.
	ErrCommandBucketOverflow = errors.New("ecsim: command bucket overflow")

	// ErrInvariantViolation backs debug-only assertions run in the
	// validation phase. Policy: panic in debug builds, log-and-continue
	// in release builds (see config.go's ValidateEveryTick).
	ErrInvariantViolation = errors.New("ecsim: invariant violation")
)
