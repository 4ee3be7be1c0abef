package stateindex

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/cache/memstore"
)

func newIndex(t *testing.T) *Index {
	t.Helper()
	return New(memstore.New(64, time.Minute), time.Minute)
}

func TestAddAndKeys_RoundTrip(t *testing.T) {
	ix := newIndex(t)
	ctx := context.Background()

	if err := ix.Add(ctx, []string{"CO", "KS"}, "plan:a"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := ix.Add(ctx, []string{"KS"}, "plan:b"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	co, err := ix.Keys(ctx, "CO")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(co) != 1 || co[0] != "plan:a" {
		t.Fatalf("CO keys=%v", co)
	}

	ks, err := ix.Keys(ctx, "KS")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(ks) != 2 {
		t.Fatalf("KS keys=%v want 2", ks)
	}
}

func TestAdd_SameKeyTwiceDeduplicates(t *testing.T) {
	ix := newIndex(t)
	ctx := context.Background()

	_ = ix.Add(ctx, []string{"CO"}, "plan:a")
	_ = ix.Add(ctx, []string{"CO"}, "plan:a")

	keys, err := ix.Keys(ctx, "CO")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("keys=%v want 1 entry", keys)
	}
}

func TestKeys_UnknownStateIsEmpty(t *testing.T) {
	ix := newIndex(t)
	keys, err := ix.Keys(context.Background(), "WY")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("keys=%v want empty", keys)
	}
}

func TestClear_DropsOnlyThatState(t *testing.T) {
	ix := newIndex(t)
	ctx := context.Background()

	_ = ix.Add(ctx, []string{"CO", "KS"}, "plan:a")
	if err := ix.Clear(ctx, "CO"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	co, _ := ix.Keys(ctx, "CO")
	if len(co) != 0 {
		t.Fatalf("CO keys=%v want empty", co)
	}
	ks, _ := ix.Keys(ctx, "KS")
	if len(ks) != 1 {
		t.Fatalf("KS keys=%v want 1", ks)
	}
}

func TestAdd_ConcurrentWritersLoseNothing(t *testing.T) {
	ix := newIndex(t)
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "plan:" + string(rune('a'+i%26)) + string(rune('a'+i/26))
			if err := ix.Add(ctx, []string{"CO"}, key); err != nil {
				t.Errorf("Add: %v", err)
			}
		}(i)
	}
	wg.Wait()

	keys, err := ix.Keys(ctx, "CO")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != n {
		t.Fatalf("keys=%d want %d", len(keys), n)
	}
}
