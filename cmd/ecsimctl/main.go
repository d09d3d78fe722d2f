// Command ecsimctl is a debug CLI for driving a world through a fixed
// number of ticks and printing scheduler statistics, useful for
// reproducing a scenario from a bug report without wiring a full host
// application.
package main

import (
	"fmt"
	"os"

	"github.com/archonlab/ecsim"
	"github.com/spf13/cobra"
)

type position struct{ X, Y, Z float64 }
type velocity struct{ X, Y, Z float64 }

// moverSystem advances position by velocity every tick, used only to
// give `ecsimctl bench` something to schedule.
type moverSystem struct {
	position ecsim.ComponentAccessor[position]
	velocity ecsim.ComponentAccessor[velocity]
}

func (s moverSystem) Name() string                     { return "Mover" }
func (s moverSystem) TickRate() ecsim.TickRate         { return ecsim.EveryFrame() }
func (s moverSystem) ReadSet() []ecsim.ComponentTypeId { return []ecsim.ComponentTypeId{s.velocity.ID()} }
func (s moverSystem) WriteSet() []ecsim.ComponentTypeId {
	return []ecsim.ComponentTypeId{s.position.ID()}
}
func (s moverSystem) Requires() []string { return nil }

// EnableStatistics opts Mover into release-build timing so `ecsimctl
// bench` always has something to print, even without -tags ecsim_debug.
func (s moverSystem) EnableStatistics() bool { return true }
func (s moverSystem) Update(w *ecsim.World, dt float64) {
	w.Query(ecsim.Leaf(s.position.ID(), s.velocity.ID()), func(arch ecsim.Archetype) bool {
		positions := ecsim.Column(arch, s.position)
		velocities := ecsim.Column(arch, s.velocity)
		for i := 0; i < arch.Count(); i++ {
			positions[i].X += velocities[i].X * dt
			positions[i].Y += velocities[i].Y * dt
			positions[i].Z += velocities[i].Z * dt
		}
		return true
	})
}

func newBenchCmd() *cobra.Command {
	var entities int
	var ticks int
	var dt float64

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "create N entities and run the scheduler for T ticks",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := ecsim.NewWorld(ecsim.DefaultConfig())
			posAccessor := ecsim.RegisterComponent[position](w.Registry())
			velAccessor := ecsim.RegisterComponent[velocity](w.Registry())

			names := ecsim.NewNameRegistry()
			_ = names.Register("Position", posAccessor.ID())
			_ = names.Register("Velocity", velAccessor.ID())

			w.Scheduler().Register(moverSystem{position: posAccessor, velocity: velAccessor})

			for i := 0; i < entities; i++ {
				w.Commands().CreateEntity(func(b *ecsim.EntityBuilder) {
					ecsim.WithComponent(b, posAccessor, position{1, 2, 3})
					ecsim.WithComponent(b, velAccessor, velocity{0, 1, 0})
				})
			}

			orch := ecsim.NewFrameOrchestrator(w)
			for t := 0; t < ticks; t++ {
				orch.Tick(dt)
			}

			elapsed, tick := w.Clock()
			fmt.Fprintf(cmd.OutOrStdout(), "ticked %d times (elapsed=%.3fs)\n", tick, elapsed)
			for _, s := range w.Scheduler().Stats() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-16s last=%-12s avg=%-12s peak=%-12s samples=%d\n",
					s.Name, s.Last, s.Average, s.Peak, s.Samples)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "archetypes:")
			w.Query(ecsim.Leaf(), func(arch ecsim.Archetype) bool {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s count=%d\n", arch.String(w.Registry()), arch.Count())
				return true
			})

			if name, ok := names.NameOf(posAccessor.ID()); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Mover writes %q (id=%d)\n", name, posAccessor.ID())
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&entities, "entities", 1000, "number of entities to create before ticking")
	cmd.Flags().IntVar(&ticks, "ticks", 60, "number of ticks to run")
	cmd.Flags().Float64Var(&dt, "dt", 1.0/60.0, "seconds per tick")
	return cmd
}

func main() {
	root := &cobra.Command{
		Use:   "ecsimctl",
		Short: "debug driver for ecsim worlds",
	}
	root.AddCommand(newBenchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
