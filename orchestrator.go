package ecsim

import "fmt"

// FrameOrchestrator drives one World through the ordered phase
// sequence in §4.I. It holds no state of its own beyond an optional
// autosave profile; all mutable state lives on the World.
type FrameOrchestrator struct {
	world           *World
	autosaveProfile Profile
}

// NewFrameOrchestrator wraps w. Call SetAutosaveProfile to enable the
// phase-7 autosave hook.
func NewFrameOrchestrator(w *World) *FrameOrchestrator {
	return &FrameOrchestrator{world: w}
}

// SetAutosaveProfile supplies the Profile the phase-7 hook saves
// through once cfg.AutosaveIntervalSeconds of simulated time (the sum
// of the dt values passed to Tick) has accumulated; wall-clock time is
// not measured. A nil profile disables autosave regardless of the
// configured interval.
func (o *FrameOrchestrator) SetAutosaveProfile(p Profile) {
	o.autosaveProfile = p
}

// Tick runs phases 1-8 once, in order. Reentry into Tick from within a
// system's Update (e.g. a system that itself calls Tick) is forbidden
// by §4.I and is not guarded against here — the caller is trusted not
// to do this, same as the teacher trusts callers not to reenter a
// locked Storage.
func (o *FrameOrchestrator) Tick(dt float64) {
	w := o.world

	// Phase 1: advance time.
	w.clock.elapsed += dt

	// Phase 2: system structural queue, before entity ops so newly
	// registered systems observe this tick's EntityBatchCreated.
	w.scheduler.drainStructuralQueue(w)

	// Phase 3: destructions, then creations.
	w.commands.ApplyStructural(w)

	// Phase 4: component operations (remove before add).
	w.commands.ApplyComponentOps(w)

	// Compact every archetype so that, during phase 6 and between ticks,
	// each archetype's first Count() slots hold exactly its live entities.
	for _, a := range w.archetypes.all {
		a.compact(w.entities.UpdateLookup)
	}

	// Phase 5: debug-only validation. Per §7's InvariantViolation policy,
	// a debug build (`-tags ecsim_debug`) aborts so the violation is
	// caught at its source tick; a release build only logs it and keeps
	// ticking, since aborting a running release process on an assertion
	// is worse than a corrupted-but-running world in most deployments.
	if w.cfg.ValidateEveryTick {
		if err := o.validate(); err != nil {
			w.cfg.logger().Error("invariant violation", "error", err.Error())
			if debugBuild {
				panic(err)
			}
		}
	}

	// Phase 6: run systems.
	w.scheduler.Update(w, dt)
	w.events.Publish(WorldSystemsUpdated, nil)

	// Phase 7: autosave hook.
	if w.cfg.AutosaveIntervalSeconds > 0 && o.autosaveProfile != nil {
		w.autosaveAccum += dt
		if w.autosaveAccum >= w.cfg.AutosaveIntervalSeconds {
			w.autosaveAccum -= w.cfg.AutosaveIntervalSeconds
			if err := SaveWorld(w, o.autosaveProfile); err != nil {
				w.cfg.logger().Error("autosave failed", "error", err.Error())
			}
		}
	}

	// Phase 8: tick counter.
	w.clock.tick++
}

// validate walks every archetype and checks the §3/§8 column-balance
// and live-accounting invariants (I1, I2). I3-I5 are exercised by
// EntityManager/Archetype's own method contracts rather than re-walked
// here, since re-deriving them would mean re-implementing
// TryGetLocation's logic a second time for no additional coverage.
func (o *FrameOrchestrator) validate() error {
	for _, a := range o.world.archetypes.all {
		for _, id := range a.ids {
			col, ok := a.columns[id]
			if !ok {
				return fmt.Errorf("%w: archetype missing column for registered id %d", ErrInvariantViolation, id)
			}
			if col.len() != len(a.entities) {
				return fmt.Errorf("%w: column/entity length mismatch (%d vs %d)", ErrInvariantViolation, col.len(), len(a.entities))
			}
		}
		live := 0
		for _, e := range a.entities {
			if !isDeadSlot(e) {
				live++
			}
		}
		if live != a.liveCount {
			return fmt.Errorf("%w: live_count %d does not match counted live entities %d", ErrInvariantViolation, a.liveCount, live)
		}
	}
	return nil
}
