package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestKeyHash(t *testing.T) {
	// The hash must equal the client's JSON.stringify of the key array:
	// literal &, no & escaping, no trailing newline.
	k := Key{"products", "offset=0&limit=12"}
	want := `["products","offset=0&limit=12"]`
	if got := k.Hash(); got != want {
		t.Errorf("Hash = %s, want %s", got, want)
	}

	k = Key{"products", "title=shoe&offset=12&limit=12"}
	want = `["products","title=shoe&offset=12&limit=12"]`
	if got := k.Hash(); got != want {
		t.Errorf("Hash = %s, want %s", got, want)
	}
}

func TestPrefetchAndGet(t *testing.T) {
	c := New()
	key := Key{"products", "offset=0&limit=12"}

	calls := 0
	fetch := func(ctx context.Context) (interface{}, error) {
		calls++
		return map[string]int{"count": 4}, nil
	}

	if err := c.Prefetch(context.Background(), key, fetch); err != nil {
		t.Fatalf("Prefetch failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("Expected one fetch, got %d", calls)
	}

	// A fresh entry must not be refetched.
	if err := c.Prefetch(context.Background(), key, fetch); err != nil {
		t.Fatalf("Second prefetch failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Fresh entry was refetched (%d calls)", calls)
	}

	data, ok := c.Get(key)
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if data.(map[string]int)["count"] != 4 {
		t.Errorf("Unexpected cached data %v", data)
	}
}

func TestPrefetchStaleEntryRefetched(t *testing.T) {
	c := New()
	current := time.Now()
	c.now = func() time.Time { return current }
	key := Key{"products", ""}

	calls := 0
	fetch := func(ctx context.Context) (interface{}, error) {
		calls++
		return calls, nil
	}

	c.Prefetch(context.Background(), key, fetch)
	current = current.Add(DefaultStaleTime + time.Second)
	c.Prefetch(context.Background(), key, fetch)

	if calls != 2 {
		t.Errorf("Expected stale entry refetch, got %d calls", calls)
	}
	if data, _ := c.Get(key); data.(int) != 2 {
		t.Errorf("Expected refreshed data, got %v", data)
	}
}

func TestPrefetchErrorLeavesNoEntry(t *testing.T) {
	c := New()
	key := Key{"products", "offset=0&limit=12"}

	err := c.Prefetch(context.Background(), key, func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("upstream down")
	})
	if err == nil {
		t.Fatal("Expected prefetch error")
	}
	if _, ok := c.Get(key); ok {
		t.Error("Failed prefetch must not cache an entry")
	}
	if len(c.Dehydrate().Queries) != 0 {
		t.Error("Snapshot must not carry failed queries")
	}
}

func TestDehydrateShape(t *testing.T) {
	c := New()
	key := Key{"products", "title=shoe&offset=12&limit=12"}
	c.Prefetch(context.Background(), key, func(ctx context.Context) (interface{}, error) {
		return map[string]interface{}{"products": []string{}, "productsCount": 0}, nil
	})

	buf, err := json.Marshal(c.Dehydrate())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var parsed struct {
		Mutations []interface{} `json:"mutations"`
		Queries   []struct {
			State     map[string]interface{} `json:"state"`
			QueryKey  []string               `json:"queryKey"`
			QueryHash string                 `json:"queryHash"`
		} `json:"queries"`
	}
	if err := json.Unmarshal(buf, &parsed); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if parsed.Mutations == nil {
		t.Error("mutations must serialize as [], not null")
	}
	if len(parsed.Queries) != 1 {
		t.Fatalf("Expected one query, got %d", len(parsed.Queries))
	}
	q := parsed.Queries[0]
	if q.QueryHash != `["products","title=shoe&offset=12&limit=12"]` {
		t.Errorf("Unexpected queryHash %s", q.QueryHash)
	}
	if len(q.QueryKey) != 2 || q.QueryKey[0] != "products" {
		t.Errorf("Unexpected queryKey %v", q.QueryKey)
	}
	if q.State["status"] != "success" || q.State["fetchStatus"] != "idle" {
		t.Errorf("Unexpected state flags %v", q.State)
	}
	if q.State["dataUpdatedAt"].(float64) == 0 {
		t.Error("dataUpdatedAt must be set")
	}
}

func TestHydrateRoundTrip(t *testing.T) {
	c := New()
	key := Key{"products", "offset=0&limit=12"}
	c.Prefetch(context.Background(), key, func(ctx context.Context) (interface{}, error) {
		return "page-one", nil
	})

	// Through JSON, as the client would receive it.
	buf, _ := json.Marshal(c.Dehydrate())
	var state DehydratedState
	if err := json.Unmarshal(buf, &state); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	hydrated := Hydrate(&state)

	data, ok := hydrated.Get(key)
	if !ok {
		t.Fatal("Expected hydration hit under the same key")
	}
	if data != "page-one" {
		t.Errorf("Unexpected hydrated data %v", data)
	}

	// A hydrated fresh entry must not trigger a refetch.
	refetched := false
	hydrated.Prefetch(context.Background(), key, func(ctx context.Context) (interface{}, error) {
		refetched = true
		return nil, nil
	})
	if refetched {
		t.Error("Hydrated fresh entry was refetched")
	}
}

func TestHydrateMismatchedKeyMisses(t *testing.T) {
	c := New()
	c.Prefetch(context.Background(), Key{"products", "offset=0&limit=12"}, func(ctx context.Context) (interface{}, error) {
		return "x", nil
	})

	hydrated := Hydrate(c.Dehydrate())

	// Key scheme mismatch is a silent miss, not a failure.
	if _, ok := hydrated.Get(Key{"products", "offset=0&limit=24"}); ok {
		t.Error("Expected miss for a different key")
	}
}
