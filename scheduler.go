package ecsim

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/TheBitDrifter/bark"
	"golang.org/x/sync/errgroup"
)

// TickRateKind classifies how often a system is considered for a
// given tick, per §6's "TickRate ∈ {EveryFrame, Hz(N), Manual}".
type TickRateKind int

const (
	// TickEveryFrame runs a system on every tick.
	TickEveryFrame TickRateKind = iota
	// TickHz runs a system at a fixed rate in simulated time (the dt
	// passed to each tick), independent of how often the orchestrator
	// itself ticks.
	TickHz
	// TickManual never runs automatically; it must be driven through
	// RunManual.
	TickManual
)

// TickRate describes how often a system should run.
type TickRate struct {
	kind TickRateKind
	hz   float64
}

// EveryFrame returns a TickRate that runs on every tick.
func EveryFrame() TickRate { return TickRate{kind: TickEveryFrame} }

// Hz returns a TickRate that runs n times per simulated second.
func Hz(n float64) TickRate { return TickRate{kind: TickHz, hz: n} }

// ManualRate returns a TickRate that never runs automatically.
func ManualRate() TickRate { return TickRate{kind: TickManual} }

// System is the contract every scheduled unit of per-tick logic must
// satisfy, per §6's "System contract".
type System interface {
	Name() string
	TickRate() TickRate
	ReadSet() []ComponentTypeId
	WriteSet() []ComponentTypeId
	Requires() []string
	Update(w *World, dt float64)

	// EnableStatistics opts this system into per-update timing recording
	// on a release build. A debug build (`-tags ecsim_debug`) always
	// records regardless of this return value, per §4.J's "debug builds
	// always record, release builds record only when a per-system
	// EnableStatistics flag is set".
	EnableStatistics() bool
}

// EnableAware is an optional extension a System may implement to
// observe enable/disable transitions: OnEnable runs when the system is
// registered and OnDisable when it is unregistered. Enable/Disable
// requests do not call either hook.
type EnableAware interface {
	OnEnable(w *World)
	OnDisable(w *World)
}

// StatefulSystem is an optional extension letting a system participate
// in world persistence (§6 "save_state(writer)"/"load_state(reader)").
type StatefulSystem interface {
	SaveState(w IWriter) error
	LoadState(r IReader) error
}

type systemEntry struct {
	sys      System
	enabled  bool
	accum    float64 // seconds accumulated since this Hz-bucketed system last ran
	interval float64 // 1/hz, seconds between runs; 0 for EveryFrame/Manual
}

type registerRequest struct {
	sys System
}

// SystemScheduler implements §4.J: registration queues, tick-rate
// bucketing, dependency-respecting topological sort, R/W conflict
// batching with a memoized batch cache, and parallel batch execution
// joined with a single wait-all.
type SystemScheduler struct {
	mu      sync.Mutex
	entries map[string]*systemEntry
	order   []string // registration order, used to break sort ties deterministically

	registerQueue   []registerRequest
	unregisterQueue []string
	enableQueue     []string
	disableQueue    []string

	workerCount int
	stats       *schedulerStats
	logger      Logger

	cacheMu sync.Mutex
	cache   map[string][][]string // key -> ordered batches of system names
}

// NewSystemScheduler builds a scheduler. workerCount of 0 lets the
// errgroup/goroutine fan-out use host default parallelism (GOMAXPROCS
// worth of concurrently runnable goroutines; Go's scheduler, not a
// fixed worker pool, governs actual concurrency).
func NewSystemScheduler(workerCount int, stats *schedulerStats, logger Logger) *SystemScheduler {
	if logger == nil {
		logger = noopLogger{}
	}
	return &SystemScheduler{
		entries:     make(map[string]*systemEntry),
		workerCount: workerCount,
		stats:       stats,
		logger:      logger,
		cache:       make(map[string][][]string),
	}
}

// Register stages sys for insertion at the next phase-2 drain.
func (s *SystemScheduler) Register(sys System) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registerQueue = append(s.registerQueue, registerRequest{sys: sys})
}

// Unregister stages name's removal at the next phase-2 drain.
func (s *SystemScheduler) Unregister(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unregisterQueue = append(s.unregisterQueue, name)
}

// Enable stages name's re-enablement at the next phase-2 drain.
func (s *SystemScheduler) Enable(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enableQueue = append(s.enableQueue, name)
}

// Disable stages name's disablement at the next phase-2 drain.
func (s *SystemScheduler) Disable(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disableQueue = append(s.disableQueue, name)
}

// drainStructuralQueue is phase 2: resolve register/unregister/enable/
// disable requests. Registration inserts the system into the registry
// *before* touching Requires, so a system that (incorrectly) names
// itself in its own Requires chain is detected by the cycle check in
// batching rather than by infinite recursion here (§4.J "re-entrancy
// safe").
func (s *SystemScheduler) drainStructuralQueue(w *World) {
	s.mu.Lock()
	registers := s.registerQueue
	s.registerQueue = nil
	unregisters := s.unregisterQueue
	s.unregisterQueue = nil
	enables := s.enableQueue
	s.enableQueue = nil
	disables := s.disableQueue
	s.disableQueue = nil
	s.mu.Unlock()

	if len(registers) == 0 && len(unregisters) == 0 && len(enables) == 0 && len(disables) == 0 {
		return
	}

	s.mu.Lock()
	for _, r := range registers {
		name := r.sys.Name()
		interval := 0.0
		if r.sys.TickRate().kind == TickHz && r.sys.TickRate().hz > 0 {
			interval = 1.0 / r.sys.TickRate().hz
		}
		if _, exists := s.entries[name]; !exists {
			s.order = append(s.order, name)
		}
		s.entries[name] = &systemEntry{sys: r.sys, enabled: true, interval: interval}
	}
	var removed []*systemEntry
	for _, name := range unregisters {
		if e, ok := s.entries[name]; ok {
			removed = append(removed, e)
		}
		delete(s.entries, name)
	}
	for _, name := range enables {
		if e, ok := s.entries[name]; ok {
			e.enabled = true
		}
	}
	for _, name := range disables {
		if e, ok := s.entries[name]; ok {
			e.enabled = false
		}
	}
	s.mu.Unlock()

	s.invalidateCacheFor(append(append([]string{}, unregisters...), disables...))

	for _, r := range registers {
		if aware, ok := r.sys.(EnableAware); ok {
			aware.OnEnable(w)
		}
	}
	for _, e := range removed {
		if aware, ok := e.sys.(EnableAware); ok {
			aware.OnDisable(w)
		}
	}
}

// collectRunSet returns the names of systems due to run this tick: the
// union of every enabled EveryFrame system and every enabled Hz-bucket
// system whose accumulator has crossed its interval, per §4.J
// "tick-rate bucketing". dt is added to every Hz system's accumulator
// regardless of whether it fires, so a system is never starved by
// jitter (R/R-carry rather than reset-on-miss).
func (s *SystemScheduler) collectRunSet(dt float64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	runSet := make([]string, 0, len(s.order))
	for _, name := range s.order {
		e, ok := s.entries[name]
		if !ok || !e.enabled {
			continue
		}
		switch e.sys.TickRate().kind {
		case TickEveryFrame:
			runSet = append(runSet, name)
		case TickHz:
			e.accum += dt
			if e.accum >= e.interval {
				e.accum -= e.interval
				runSet = append(runSet, name)
			}
		case TickManual:
			// never auto-collected
		}
	}
	return runSet
}

// topoSort orders names respecting each system's Requires edges,
// returning ErrCircularDependency (with the offending names) if a
// cycle is found. Early-exits to the input order if no system in the
// set declares any Requires, per §4.J.
func (s *SystemScheduler) topoSort(names []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inSet := make(map[string]bool, len(names))
	for _, n := range names {
		inSet[n] = true
	}

	anyRequires := false
	for _, n := range names {
		if e, ok := s.entries[n]; ok && len(e.sys.Requires()) > 0 {
			anyRequires = true
			break
		}
	}
	if !anyRequires {
		return names, nil
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(names))
	var order []string
	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return bark.AddTrace(fmt.Errorf("%w: %s", ErrCircularDependency, name))
		}
		color[name] = gray
		if e, ok := s.entries[name]; ok {
			for _, dep := range e.sys.Requires() {
				if !inSet[dep] {
					continue
				}
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		color[name] = black
		order = append(order, name)
		return nil
	}

	for _, n := range names {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// buildBatches groups system names that may run concurrently.
func (s *SystemScheduler) buildBatches(sorted []string) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var batches [][]string
	var batchReads, batchWrites []map[ComponentTypeId]bool

	for _, name := range sorted {
		e, ok := s.entries[name]
		if !ok {
			continue
		}
		reads := toSet(e.sys.ReadSet())
		writes := toSet(e.sys.WriteSet())

		placed := false
		for i := range batches {
			if conflicts(reads, writes, batchReads[i], batchWrites[i]) {
				continue
			}
			batches[i] = append(batches[i], name)
			mergeInto(batchReads[i], reads)
			mergeInto(batchWrites[i], writes)
			placed = true
			break
		}
		if !placed {
			batches = append(batches, []string{name})
			batchReads = append(batchReads, reads)
			batchWrites = append(batchWrites, writes)
		}
	}
	return batches
}

func toSet(ids []ComponentTypeId) map[ComponentTypeId]bool {
	set := make(map[ComponentTypeId]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func mergeInto(dst, src map[ComponentTypeId]bool) {
	for id := range src {
		dst[id] = true
	}
}

// conflicts reports whether (reads, writes) conflicts with an existing
// batch's accumulated (otherReads, otherWrites) under §4.J's three
// conflict rules; read/read never conflicts.
func conflicts(reads, writes, otherReads, otherWrites map[ComponentTypeId]bool) bool {
	return intersects(writes, otherWrites) || intersects(writes, otherReads) || intersects(reads, otherWrites)
}

func intersects(a, b map[ComponentTypeId]bool) bool {
	small, big := a, b
	if len(b) < len(a) {
		small, big = b, a
	}
	for id := range small {
		if big[id] {
			return true
		}
	}
	return false
}

// cacheKey canonicalizes a run-set into a stable string: the identity
// set of system names, sorted, joined — not the cardinality, per §4.J
// "memoized keyed on the identity set ... not its cardinality" (I8).
func cacheKey(names []string) string {
	sorted := append([]string{}, names...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}

func (s *SystemScheduler) lookupCache(names []string) ([][]string, bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	batches, ok := s.cache[cacheKey(names)]
	return batches, ok
}

func (s *SystemScheduler) storeCache(names []string, batches [][]string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache[cacheKey(names)] = batches
}

// invalidateCacheFor evicts any cache entry whose key mentions one of
// names, per §4.J "invalidate entries that mention any unregistered
// system" / "evicting cache entries whose set contains any removed
// system".
func (s *SystemScheduler) invalidateCacheFor(names []string) {
	if len(names) == 0 {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	for key := range s.cache {
		parts := strings.Split(key, "\x00")
		for _, n := range names {
			if containsStr(parts, n) {
				delete(s.cache, key)
				break
			}
		}
	}
}

func containsStr(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}

// Update runs phase 6: collect the run-set, sort it, batch it (using
// the memoized batch cache when the identity set hasn't changed),
// then execute each batch's systems in parallel with a single
// wait-all join before starting the next batch.
func (s *SystemScheduler) Update(w *World, dt float64) {
	runSet := s.collectRunSet(dt)
	if len(runSet) == 0 {
		return
	}

	batches, ok := s.lookupCache(runSet)
	if !ok {
		sorted, err := s.topoSort(runSet)
		if err != nil {
			s.logger.Error("system dependency cycle detected; skipping offending systems this tick", "error", err.Error())
			sorted = s.dropCyclic(runSet)
			if len(sorted) == 0 {
				return
			}
		}
		batches = s.buildBatches(sorted)
		s.storeCache(runSet, batches)
	}

	for _, batch := range batches {
		s.runBatch(w, dt, batch)
	}
}

// dropCyclic falls back to running only the systems that declare no
// Requires of their own, a conservative recovery that keeps "the remainder of
// the scheduler" running per the concrete scenario in §8.5. Systems
// with empty Requires are always safe to keep.
func (s *SystemScheduler) dropCyclic(names []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var safe []string
	for _, n := range names {
		if e, ok := s.entries[n]; ok && len(e.sys.Requires()) == 0 {
			safe = append(safe, n)
		}
	}
	return safe
}

// runBatch executes every system in batch concurrently and waits for
// all of them with a single errgroup.Wait — not a serial per-task
// join — so batch latency is bounded by the slowest system (§4.J,
// §5's "suspension points ... the batch join").
func (s *SystemScheduler) runBatch(w *World, dt float64, batch []string) {
	s.stats.recordBatchSize(len(batch))

	var g errgroup.Group
	if s.workerCount > 0 {
		g.SetLimit(s.workerCount)
	}
	for _, name := range batch {
		name := name
		s.mu.Lock()
		e := s.entries[name]
		s.mu.Unlock()
		if e == nil || !e.enabled {
			continue
		}
		g.Go(func() error {
			s.runOne(w, dt, e)
			return nil
		})
	}
	_ = g.Wait()
}

// runOne invokes one system's Update, recovering a panic and recording
// timing statistics so a single failing system never aborts the batch
// (§4.J "Failure: a system update panics/fails -> logged, statistics
// updated, scheduler continues with the remainder of the batch").
func (s *SystemScheduler) runOne(w *World, dt float64, e *systemEntry) {
	start := time.Now()
	defer func() {
		if debugBuild || e.sys.EnableStatistics() {
			s.stats.recordUpdate(e.sys.Name(), time.Since(start))
		}
		if r := recover(); r != nil {
			s.logger.Error("system update panicked", "system", e.sys.Name(), "recovered", r)
		}
	}()
	e.sys.Update(w, dt)
}

// Stats returns a snapshot of every system's recorded update timing.
func (s *SystemScheduler) Stats() []SystemStats {
	return s.stats.Stats()
}

// RunManual forces a Manual-rate system to run outside the normal
// collection, synchronously, on the caller's goroutine.
func (s *SystemScheduler) RunManual(w *World, name string, dt float64) {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok || !e.enabled {
		return
	}
	s.runOne(w, dt, e)
}
