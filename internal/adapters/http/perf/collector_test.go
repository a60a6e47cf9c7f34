package perf

import (
	"sync"
	"testing"
	"time"
)

// TestCollector_RecordAndSnapshot verifies aggregation per kind and name.
func TestCollector_RecordAndSnapshot(t *testing.T) {
	c := NewCollector(100)
	now := time.Now()

	c.Record(Sample{Kind: KindRequest, Name: "GET /api/weekly-logs", Status: 200, Duration: 10 * time.Millisecond, At: now})
	c.Record(Sample{Kind: KindRequest, Name: "GET /api/weekly-logs", Status: 500, Duration: 30 * time.Millisecond, At: now})
	c.RecordQuery("activity", "QueryContext", 5*time.Millisecond)

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.TotalRecorded != 3 || snap.Requests != 2 {
		t.Errorf("TotalRecorded = %d, Requests = %d", snap.TotalRecorded, snap.Requests)
	}
	if len(snap.SlowestPaths) != 1 {
		t.Fatalf("SlowestPaths len = %d, want 1", len(snap.SlowestPaths))
	}
	p := snap.SlowestPaths[0]
	if p.AvgMs != 20 || p.MaxMs != 30 || p.Errors != 1 {
		t.Errorf("path stat = %+v", p)
	}
	if len(snap.SlowestQueries) != 1 || snap.SlowestQueries[0].Name != "activity.QueryContext" {
		t.Errorf("SlowestQueries = %+v", snap.SlowestQueries)
	}
}

// TestCollector_RingOverwritesOldest verifies the buffer keeps only the newest samples.
func TestCollector_RingOverwritesOldest(t *testing.T) {
	c := NewCollector(3)
	now := time.Now()
	for i := 0; i < 5; i++ {
		c.Record(Sample{Kind: KindRequest, Name: "GET /x", Duration: time.Duration(i) * time.Millisecond, At: now})
	}

	if c.TotalRecorded() != 5 {
		t.Errorf("TotalRecorded = %d, want 5", c.TotalRecorded())
	}
	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if got := snap.SlowestPaths[0]; got.Count != 3 || got.AvgMs != 3 {
		t.Errorf("stat = %+v, want the last three samples (2, 3, 4 ms)", got)
	}
}

// TestCollector_Percentiles verifies interpolated percentiles.
func TestCollector_Percentiles(t *testing.T) {
	c := NewCollector(200)
	now := time.Now()
	for i := 1; i <= 101; i++ {
		c.RecordRequest("GET", "/p", 200, time.Duration(i)*time.Millisecond)
	}
	snap := c.Snapshot(now.Add(-time.Minute), 5)
	if snap.RequestP50Ms != 51 || snap.RequestP99Ms != 100 {
		t.Errorf("p50 = %v, p99 = %v", snap.RequestP50Ms, snap.RequestP99Ms)
	}
}

// TestCollector_SinceFilter verifies old samples are excluded.
func TestCollector_SinceFilter(t *testing.T) {
	c := NewCollector(10)
	now := time.Now()
	c.Record(Sample{Kind: KindRequest, Name: "GET /old", Duration: time.Millisecond, At: now.Add(-time.Hour)})
	c.Record(Sample{Kind: KindRequest, Name: "GET /new", Duration: time.Millisecond, At: now})

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if len(snap.SlowestPaths) != 1 || snap.SlowestPaths[0].Name != "GET /new" {
		t.Errorf("SlowestPaths = %+v", snap.SlowestPaths)
	}
}

// TestCollector_Empty verifies an empty snapshot.
func TestCollector_Empty(t *testing.T) {
	snap := NewCollector(0).Snapshot(time.Time{}, 5)
	if snap.Requests != 0 || snap.RequestP95Ms != 0 || len(snap.SlowestPaths) != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
}

// TestCollector_ConcurrentRecord verifies Record is safe under concurrent writers.
func TestCollector_ConcurrentRecord(t *testing.T) {
	c := NewCollector(50)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.RecordQuery("auth", "QueryRowContext", time.Microsecond)
			}
		}()
	}
	wg.Wait()
	if c.TotalRecorded() != 800 {
		t.Errorf("TotalRecorded = %d, want 800", c.TotalRecorded())
	}
}
