package ecsim

import (
	"testing"
	"time"
)

func TestSchedulerStatsRecordsPeakAndSamples(t *testing.T) {
	s := newSchedulerStats()
	s.recordUpdate("Mover", 10*time.Millisecond)
	s.recordUpdate("Mover", 30*time.Millisecond)
	s.recordUpdate("Mover", 5*time.Millisecond)

	snap := s.Stats()
	if len(snap) != 1 {
		t.Fatalf("expected one system in the snapshot, got %d", len(snap))
	}
	got := snap[0]
	if got.Name != "Mover" {
		t.Fatalf("Name = %q, want Mover", got.Name)
	}
	if got.Samples != 3 {
		t.Fatalf("Samples = %d, want 3", got.Samples)
	}
	if got.Peak != 30*time.Millisecond {
		t.Fatalf("Peak = %v, want 30ms", got.Peak)
	}
	if got.Last != 5*time.Millisecond {
		t.Fatalf("Last = %v, want 5ms (most recent sample)", got.Last)
	}
}

func TestSchedulerStatsEMAWeightsRecentSampleMore(t *testing.T) {
	s := newSchedulerStats()
	s.recordUpdate("A", 10*time.Millisecond)
	firstAvg := s.Stats()[0].Average
	if firstAvg != 10*time.Millisecond {
		t.Fatalf("first sample should seed the average directly, got %v", firstAvg)
	}

	s.recordUpdate("A", 20*time.Millisecond)
	secondAvg := s.Stats()[0].Average
	if secondAvg <= firstAvg || secondAvg >= 20*time.Millisecond {
		t.Fatalf("EMA after a higher sample should move toward it without jumping straight to it, got %v", secondAvg)
	}
}

func TestSchedulerStatsCollectorsAreDistinct(t *testing.T) {
	s := newSchedulerStats()
	collectors := s.Collectors()
	if len(collectors) != 2 {
		t.Fatalf("expected gauge + histogram collectors, got %d", len(collectors))
	}
}
