package monitoring

import (
	"testing"
	"time"
)

func TestRingAppendAndEviction(t *testing.T) {
	r := newRing[int](3)

	t.Run("fills to capacity", func(t *testing.T) {
		r.Append(1)
		r.Append(2)
		r.Append(3)
		if r.Len() != 3 {
			t.Fatalf("Len = %d, want 3", r.Len())
		}
		got := r.Snapshot()
		if got[0] != 1 || got[1] != 2 || got[2] != 3 {
			t.Errorf("Snapshot = %v, want [1 2 3]", got)
		}
	})

	t.Run("evicts oldest beyond capacity", func(t *testing.T) {
		r.Append(4)
		r.Append(5)
		if r.Len() != 3 {
			t.Fatalf("Len = %d, want 3 after overflow", r.Len())
		}
		got := r.Snapshot()
		if got[0] != 3 || got[1] != 4 || got[2] != 5 {
			t.Errorf("Snapshot = %v, want [3 4 5]", got)
		}
	})

	t.Run("last returns newest", func(t *testing.T) {
		last, ok := r.Last()
		if !ok || last != 5 {
			t.Errorf("Last = %v, %v; want 5, true", last, ok)
		}
	})
}

func TestRingEmpty(t *testing.T) {
	r := newRing[string](4)
	if r.Len() != 0 {
		t.Errorf("empty ring Len = %d", r.Len())
	}
	if got := r.Snapshot(); len(got) != 0 {
		t.Errorf("empty ring Snapshot = %v", got)
	}
	if _, ok := r.Last(); ok {
		t.Error("empty ring Last should report no item")
	}
}

func TestRingSnapshotIsCopy(t *testing.T) {
	r := newRing[int](2)
	r.Append(7)
	snap := r.Snapshot()
	snap[0] = 99
	if again := r.Snapshot(); again[0] != 7 {
		t.Error("mutating a snapshot leaked into the ring")
	}
}

func TestRingRemoveOldestWhile(t *testing.T) {
	now := time.Now().UTC()
	r := newRing[Metrics](5)
	for i := 0; i < 5; i++ {
		r.Append(Metrics{Timestamp: now.Add(time.Duration(i-4) * time.Hour)})
	}

	cutoff := now.Add(-150 * time.Minute)
	removed := r.RemoveOldestWhile(func(m Metrics) bool {
		return m.Timestamp.Before(cutoff)
	})

	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if r.Len() != 3 {
		t.Fatalf("Len = %d, want 3", r.Len())
	}
	for _, m := range r.Snapshot() {
		if m.Timestamp.Before(cutoff) {
			t.Errorf("entry older than cutoff survived: %v", m.Timestamp)
		}
	}
}
