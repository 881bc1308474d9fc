package database

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("Expected a value, channel closed")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for a snapshot")
	}
	var zero T
	return zero
}

func TestObserveSongs_ReemitsOnWrite(t *testing.T) {
	db := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := db.ObserveSongs(ctx, SongQuery{Filter: FilterLiked, SortBy: SortByDateAdded, Order: Descending})

	if initial := receive(t, stream); len(initial) != 0 {
		t.Fatalf("Expected empty initial snapshot, got %d", len(initial))
	}

	mustUpsert(t, db, record("abc", "Song"))
	if snap := receive(t, stream); len(snap) != 0 {
		t.Errorf("Expected unliked song to stay filtered out, got %d", len(snap))
	}

	now := time.Now()
	db.Like(context.Background(), "abc", &now)
	snap := receive(t, stream)
	if len(snap) != 1 || snap[0].ID != "abc" {
		t.Errorf("Expected liked song in snapshot, got %+v", snap)
	}
}

func TestObserve_IgnoresUnrelatedTables(t *testing.T) {
	db := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := db.ObserveSongs(ctx, SongQuery{Filter: FilterAll, SortBy: SortByDateAdded, Order: Descending})
	receive(t, stream)

	db.InsertSearchQuery(context.Background(), "unrelated")

	select {
	case snap := <-stream:
		t.Errorf("Expected no re-emission for a search history write, got %+v", snap)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestObserve_CoalescesBursts(t *testing.T) {
	db := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := db.ObserveSongs(ctx, SongQuery{Filter: FilterAll, SortBy: SortByDateAdded, Order: Descending})
	receive(t, stream)

	// Nobody reads while these land, so the observer sees at most one
	// pending signal plus the snapshot it is blocked sending.
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		mustUpsert(t, db, record(id, id))
	}

	emissions := 0
	var last []Song
	for done := false; !done; {
		select {
		case last = <-stream:
			emissions++
		case <-time.After(200 * time.Millisecond):
			done = true
		}
	}
	if emissions == 0 || emissions > 2 {
		t.Errorf("Expected 1 or 2 coalesced emissions, got %d", emissions)
	}
	if len(last) != 5 {
		t.Errorf("Expected final snapshot to hold all 5 songs, got %d", len(last))
	}
}

func TestObserve_SkipsFailedRequery(t *testing.T) {
	db := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	stream := Observe(ctx, db, []Table{TableSearchQuery}, func(ctx context.Context) (int, error) {
		n := calls.Add(1)
		if n == 2 {
			return 0, errors.New("disk on fire")
		}
		return int(n), nil
	})

	if v := receive(t, stream); v != 1 {
		t.Fatalf("Expected first snapshot 1, got %d", v)
	}
	db.InsertSearchQuery(context.Background(), "one")
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	db.InsertSearchQuery(context.Background(), "two")

	if v := receive(t, stream); v != 3 {
		t.Errorf("Expected failed re-query to be skipped and the next to emit 3, got %d", v)
	}
}

func TestObserve_ClosesOnCancel(t *testing.T) {
	db := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())

	stream := db.ObserveSongs(ctx, SongQuery{Filter: FilterAll, SortBy: SortByDateAdded, Order: Descending})
	receive(t, stream)
	cancel()

	select {
	case _, ok := <-stream:
		if ok {
			// A write may have raced the cancel; the next read must see the close.
			if _, ok := <-stream; ok {
				t.Error("Expected stream to close after cancel")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for stream to close")
	}

	deadline := time.Now().Add(time.Second)
	for db.tracker.count() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := db.tracker.count(); n != 0 {
		t.Errorf("Expected subscription to be released, got %d", n)
	}
}
