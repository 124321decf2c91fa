package cache

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/dmaytorres/trackvault/internal/catalog"
	"github.com/dmaytorres/trackvault/internal/domain"
	"github.com/dmaytorres/trackvault/internal/storage"
)

type fixedProtector struct {
	ids map[string]struct{}
}

func (p *fixedProtector) ProtectedTrackIDs() map[string]struct{} { return p.ids }

func cacheTracks(t *testing.T, engine *Engine, provider *catalog.MockProvider, ids []string, size int) {
	t.Helper()
	for _, id := range ids {
		provider.SetPayload(id, bytes.Repeat([]byte("z"), size))
		if err := engine.Request(id, domain.TrackMetadata{}); err != nil {
			t.Fatalf("Request %s failed: %v", id, err)
		}
		if !engine.WaitForIdle(5 * time.Second) {
			t.Fatalf("Transfer for %s did not finish", id)
		}
		// Distinct access timestamps for deterministic LRU order.
		time.Sleep(20 * time.Millisecond)
	}
}

func TestEnforceBudget_EvictsLeastRecentlyAccessed(t *testing.T) {
	provider := catalog.NewMockProvider()
	engine, _ := setupEngine(t, provider, nil)

	cacheTracks(t, engine, provider, []string{"a", "b", "c"}, 100)

	// Touching "a" makes it the most recently accessed; "b" is now the
	// LRU candidate, then "c".
	if err := engine.Touch("a"); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}

	// 300 bytes cached; a 150 byte budget needs two evictions.
	if err := engine.SetLimit(150); err != nil {
		t.Fatalf("SetLimit failed: %v", err)
	}

	if entry, _ := engine.Get("b"); entry != nil {
		t.Error("Expected b to be evicted first")
	}
	if entry, _ := engine.Get("c"); entry != nil {
		t.Error("Expected c to be evicted second")
	}
	entry, _ := engine.Get("a")
	if entry == nil {
		t.Fatal("Expected most recently accessed track to survive")
	}
	if !storage.FileExists(entry.FilePath) {
		t.Error("Expected surviving track to keep its file")
	}

	stats, err := engine.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalBytes != 100 {
		t.Errorf("Expected 100 bytes after eviction, got %d", stats.TotalBytes)
	}
	if stats.OverBudgetBytes != 0 {
		t.Errorf("Expected cache within budget, got %d bytes over", stats.OverBudgetBytes)
	}
}

func TestEnforceBudget_NeverEvictsProtected(t *testing.T) {
	provider := catalog.NewMockProvider()
	protector := &fixedProtector{ids: map[string]struct{}{
		"playing": {},
		"queued":  {},
	}}
	engine, _ := setupEngine(t, provider, protector)

	cacheTracks(t, engine, provider, []string{"playing", "queued", "idle"}, 100)

	err := engine.SetLimit(0)
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("Expected ErrQuotaExceeded when only protected entries remain, got %v", err)
	}

	if entry, _ := engine.Get("idle"); entry != nil {
		t.Error("Expected unprotected track to be evicted")
	}
	for _, id := range []string{"playing", "queued"} {
		entry, _ := engine.Get(id)
		if entry == nil {
			t.Errorf("Protected track %s was evicted", id)
			continue
		}
		if !storage.FileExists(entry.FilePath) {
			t.Errorf("Protected track %s lost its file", id)
		}
	}

	// The over-budget condition is surfaced, not silently violated.
	stats, _ := engine.Stats()
	if stats.OverBudgetBytes != 200 {
		t.Errorf("Expected 200 bytes over budget, got %d", stats.OverBudgetBytes)
	}
}

func TestClear_BypassesProtection(t *testing.T) {
	provider := catalog.NewMockProvider()
	protector := &fixedProtector{ids: map[string]struct{}{
		"playing": {},
	}}
	engine, _ := setupEngine(t, provider, protector)

	cacheTracks(t, engine, provider, []string{"playing", "other"}, 50)

	if err := engine.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	entries, _ := engine.List()
	if len(entries) != 0 {
		t.Errorf("Expected clear to remove protected entries too, got %d left", len(entries))
	}
}

func TestEnforceBudget_UnboundedIsNoop(t *testing.T) {
	provider := catalog.NewMockProvider()
	engine, _ := setupEngine(t, provider, nil)

	cacheTracks(t, engine, provider, []string{"a", "b"}, 1000)

	if err := engine.SetLimit(-1); err != nil {
		t.Fatalf("SetLimit(-1) failed: %v", err)
	}

	entries, _ := engine.List()
	if len(entries) != 2 {
		t.Errorf("Expected no eviction with unbounded cache, got %d entries", len(entries))
	}
}
