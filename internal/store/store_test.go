package store_test

import (
	"sync"
	"testing"
	"time"

	"github.com/raffaelramalhorosa/folio-api/internal/models"
	"github.com/raffaelramalhorosa/folio-api/internal/store"
)

func TestSaveAndLatest(t *testing.T) {
	s := store.New(5)
	now := time.Now()

	s.Save(models.ProbeRecord{Name: "now-playing", State: models.ProbeOK, CheckedAt: now})
	s.Save(models.ProbeRecord{Name: "journal", State: models.ProbeFallback, CheckedAt: now})
	s.Save(models.ProbeRecord{Name: "journal", State: models.ProbeOK, CheckedAt: now.Add(time.Minute)})

	latest := s.Latest()
	if len(latest) != 2 {
		t.Fatalf("expected 2 probes, got %d", len(latest))
	}
	if latest[0].Name != "journal" || latest[1].Name != "now-playing" {
		t.Fatal("latest records not sorted by name")
	}
	if latest[0].State != models.ProbeOK {
		t.Fatalf("expected newest journal record, got %s", latest[0].State)
	}
}

func TestHistoryBoundedNewestFirst(t *testing.T) {
	s := store.New(3)
	base := time.Now()
	for i := 0; i < 5; i++ {
		s.Save(models.ProbeRecord{Name: "journal", LatencyMs: int64(i), CheckedAt: base.Add(time.Duration(i) * time.Second)})
	}

	h := s.History("journal", 0)
	if len(h) != 3 {
		t.Fatalf("expected history capped at 3, got %d", len(h))
	}
	if h[0].LatencyMs != 4 || h[2].LatencyMs != 2 {
		t.Fatalf("history not newest first: %+v", h)
	}

	if got := s.History("journal", 1); len(got) != 1 || got[0].LatencyMs != 4 {
		t.Fatalf("limited history = %+v", got)
	}
	if got := s.History("unknown", 0); len(got) != 0 {
		t.Fatalf("expected empty history for unknown probe, got %d", len(got))
	}
}

func TestConcurrentSaves(t *testing.T) {
	s := store.New(10)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Save(models.ProbeRecord{Name: "journal"})
			s.Latest()
		}()
	}
	wg.Wait()

	if len(s.History("journal", 0)) != 10 {
		t.Fatalf("expected 10 records kept, got %d", len(s.History("journal", 0)))
	}
}
