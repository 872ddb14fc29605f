package telemetry

import (
	"testing"
	"time"
)

func TestCacheUpsertAndGet(t *testing.T) {
	c := NewCache()

	now := time.Now()
	c.Upsert("power", 1500.0, now)

	sig, ok := c.Get("power")
	if !ok {
		t.Fatal("Get() did not find upserted key")
	}
	if v, ok := sig.Number(); !ok || v != 1500.0 {
		t.Errorf("Number() = %v, %v; want 1500, true", v, ok)
	}
	if !sig.LastUpdated.Equal(now) {
		t.Errorf("LastUpdated = %v, want %v", sig.LastUpdated, now)
	}
}

func TestCacheLaterUpdateWins(t *testing.T) {
	c := NewCache()

	c.Upsert("power", 100.0, time.Now())
	c.Upsert("power", 200.0, time.Now())

	sig, _ := c.Get("power")
	if v, _ := sig.Number(); v != 200.0 {
		t.Errorf("value = %v, want 200 after overwrite", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCacheSnapshotIsCopy(t *testing.T) {
	c := NewCache()
	c.Upsert("a", 1.0, time.Now())

	snap := c.Snapshot()
	snap["b"] = Signal{Value: 2.0}

	if c.Len() != 1 {
		t.Errorf("mutating a snapshot changed the cache: Len() = %d, want 1", c.Len())
	}
}

func TestCacheClear(t *testing.T) {
	c := NewCache()
	c.Upsert("a", 1.0, time.Now())
	c.Upsert("b", true, time.Now())

	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("Get() found a key after Clear")
	}
}

func TestSignalNumberForNonNumeric(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
	}{
		{"bool", true},
		{"string", "running"},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := Signal{Value: tt.value}
			if _, ok := sig.Number(); ok {
				t.Errorf("Number() = true for %T value", tt.value)
			}
		})
	}
}
