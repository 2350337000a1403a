package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hireloop/matchengine/internal/storage"
	"github.com/hireloop/matchengine/pkg/types"
)

func TestStore_PutGet_Roundtrip(t *testing.T) {
	store, err := New(0)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()

	vector := []float64{0.1, 0.2, 0.3}
	if err := store.Put(ctx, "cand-1", types.DimensionSkills, "fp-1", vector, "m"); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := store.Get(ctx, "cand-1", types.DimensionSkills, "fp-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	for i := range vector {
		if got[i] != vector[i] {
			t.Errorf("component %d: got %v, want %v", i, got[i], vector[i])
		}
	}

	// Stale fingerprint is a miss.
	if _, err := store.Get(ctx, "cand-1", types.DimensionSkills, "fp-2"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for stale fingerprint, got %v", err)
	}
}

func TestStore_Get_ReturnsCopy(t *testing.T) {
	store, _ := New(0)
	ctx := context.Background()

	_ = store.Put(ctx, "cand-1", types.DimensionSkills, "fp", []float64{1, 2}, "m")

	first, _ := store.Get(ctx, "cand-1", types.DimensionSkills, "fp")
	first[0] = 99

	second, _ := store.Get(ctx, "cand-1", types.DimensionSkills, "fp")
	if second[0] != 1 {
		t.Errorf("cached vector was mutated through the returned slice: %v", second)
	}
}

func TestStore_Eviction(t *testing.T) {
	store, err := New(2)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("cand-%d", i)
		if err := store.Put(ctx, id, types.DimensionSkills, "fp", []float64{float64(i)}, "m"); err != nil {
			t.Fatalf("put %d failed: %v", i, err)
		}
	}

	// Oldest entry was evicted; eviction looks like a miss.
	if _, err := store.Get(ctx, "cand-0", types.DimensionSkills, "fp"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected evicted slot to miss, got %v", err)
	}
	if _, err := store.Get(ctx, "cand-2", types.DimensionSkills, "fp"); err != nil {
		t.Errorf("recent slot should survive: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Vectors != 2 {
		t.Errorf("vectors = %d, want capacity bound 2", stats.Vectors)
	}
}

func TestStore_DeleteEntity(t *testing.T) {
	store, _ := New(0)
	ctx := context.Background()

	_ = store.Put(ctx, "cand-1", types.DimensionSkills, "f1", []float64{1}, "m")
	_ = store.Put(ctx, "cand-1", types.DimensionGoals, "f2", []float64{2}, "m")
	_ = store.Put(ctx, "cand-2", types.DimensionSkills, "f3", []float64{3}, "m")

	removed, err := store.DeleteEntity(ctx, "cand-1")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	stats, _ := store.Stats(ctx)
	if stats.Vectors != 1 || stats.Entities != 1 {
		t.Errorf("stats = %+v, want one vector for one entity", stats)
	}
}
