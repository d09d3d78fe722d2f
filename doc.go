/*
Package ecsim provides an archetype-based Entity-Component-System (ECS)
runtime core for simulations with large entity counts updating at
interactive rates.

It is built around five subsystems: an EntityManager that allocates and
recycles versioned entity handles, an ArchetypeIndex of signature-keyed
Structure-of-Arrays tables, a CommandBuffer pipeline that defers
structural mutation into well-defined frame phases, a SystemScheduler
that batches systems by read/write conflict and runs each batch in
parallel, and a FrameOrchestrator that sequences all of the above into
a single tick.

Core Concepts:

  - Entity: a packed (index, version) handle.
  - Component: a plain value type registered once per process.
  - Archetype: the set of entities sharing an identical component
    signature, stored column-by-column.
  - CommandBuffer: the only way systems may request structural
    mutation; applied at fixed phases of the next tick boundary.
  - System: a unit of per-tick work with a declared read/write set used
    to batch it safely alongside other systems.

Basic Usage:

	world := ecsim.NewWorld(ecsim.DefaultConfig())

	position := ecsim.RegisterComponent[Position](world.Registry())
	velocity := ecsim.RegisterComponent[Velocity](world.Registry())

	world.Commands().CreateEntity(func(b *ecsim.EntityBuilder) {
		ecsim.WithComponent(b, position, Position{X: 1, Y: 2})
		ecsim.WithComponent(b, velocity, Velocity{X: 0, Y: 1})
	})

	orchestrator := ecsim.NewFrameOrchestrator(world)
	orchestrator.Tick(1.0 / 60.0)

	world.Query(ecsim.Leaf(position.ID(), velocity.ID()), func(arch ecsim.Archetype) bool {
		positions := ecsim.Column(arch, position)
		velocities := ecsim.Column(arch, velocity)
		for i := 0; i < arch.Count(); i++ {
			positions[i].X += velocities[i].X
			positions[i].Y += velocities[i].Y
		}
		return true
	})
*/
package ecsim
