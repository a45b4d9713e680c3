package grocery

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

type countingSource struct {
	mu       sync.Mutex
	calls    map[int64]int
	inFlight atomic.Int32
	peak     atomic.Int32
	lines    StaticSource
	fail     int64
}

func (s *countingSource) IngredientLines(ctx context.Context, recipeID int64) ([]IngredientLine, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}

	s.mu.Lock()
	s.calls[recipeID]++
	s.mu.Unlock()

	if recipeID == s.fail {
		return nil, errors.New("lookup failed")
	}
	return s.lines[recipeID], nil
}

func TestPrefetchResolvesEachRecipeOnce(t *testing.T) {
	src := &countingSource{
		calls: map[int64]int{},
		lines: StaticSource{
			1: {line("Egg", "2", "", "")},
			2: {line("Milk", "1", "cup", "")},
		},
	}
	entries := []MealPlanEntry{
		entry(1, 1, "Omelette", "2024-03-01"),
		entry(2, 2, "Latte", "2024-03-01"),
		entry(3, 1, "Omelette", "2024-03-02"),
		entry(4, 3, "Nothing", "2024-03-03"),
	}

	got, err := Prefetch(context.Background(), src, entries, 2)
	if err != nil {
		t.Fatalf("Prefetch() error = %v", err)
	}

	for id, n := range src.calls {
		if n != 1 {
			t.Errorf("recipe %d fetched %d times, want 1", id, n)
		}
	}
	if len(src.calls) != 3 {
		t.Errorf("fetched %d recipes, want 3", len(src.calls))
	}
	if peak := src.peak.Load(); peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
	if len(got[1]) != 1 || len(got[2]) != 1 {
		t.Errorf("prefetched lines = %v", got)
	}

	list, err := NewAssembler().Generate(context.Background(), got, entries)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if list.TotalItems != 2 {
		t.Errorf("TotalItems = %d, want 2", list.TotalItems)
	}
}

func TestPrefetchReturnsFirstError(t *testing.T) {
	src := &countingSource{calls: map[int64]int{}, fail: 2}
	entries := []MealPlanEntry{entry(1, 1, "A", "2024-03-01"), entry(2, 2, "B", "2024-03-01")}

	if _, err := Prefetch(context.Background(), src, entries, 1); err == nil {
		t.Fatal("Prefetch() error = nil, want lookup failure")
	}
}

func TestPrefetchEmpty(t *testing.T) {
	got, err := Prefetch(context.Background(), StaticSource{}, nil, 4)
	if err != nil || len(got) != 0 {
		t.Errorf("Prefetch(nil) = %v, %v", got, err)
	}
}
