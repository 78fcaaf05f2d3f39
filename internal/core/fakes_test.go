package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/slabstock/internal/slab"
	"github.com/JonMunkholm/slabstock/internal/store/memstore"
)

var testNow = time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// faultyStore wraps the in-memory store and injects failures.
type faultyStore struct {
	*memstore.Store

	mu         sync.Mutex
	createErr  map[string]error // keyed by slab_id
	findErr    error
	adjustErr  error
	findCalls  int
	findHook   func(slabID string)
	adjustHook func()
}

func newFaultyStore() *faultyStore {
	return &faultyStore{
		Store:     memstore.New().WithClock(fixedClock),
		createErr: map[string]error{},
	}
}

func (f *faultyStore) Create(ctx context.Context, rec slab.Record) (slab.Record, error) {
	f.mu.Lock()
	err := f.createErr[rec.SlabID]
	f.mu.Unlock()
	if err != nil {
		return slab.Record{}, err
	}
	return f.Store.Create(ctx, rec)
}

func (f *faultyStore) FindOne(ctx context.Context, flt slab.Filter) (slab.Record, bool, error) {
	f.mu.Lock()
	f.findCalls++
	hook := f.findHook
	f.mu.Unlock()

	// The hook may set findErr for this call.
	if hook != nil {
		hook(flt.SlabID)
	}

	f.mu.Lock()
	err := f.findErr
	f.mu.Unlock()
	if err != nil {
		return slab.Record{}, false, err
	}
	return f.Store.FindOne(ctx, flt)
}

func (f *faultyStore) AdjustQuantity(ctx context.Context, id string, delta int) (slab.Record, error) {
	f.mu.Lock()
	err := f.adjustErr
	hook := f.adjustHook
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return slab.Record{}, err
	}
	return f.Store.AdjustQuantity(ctx, id, delta)
}

func (f *faultyStore) FindCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findCalls
}

// seed stores a record and returns it with its id.
func seed(t *testing.T, store Store, rec slab.Record) slab.Record {
	t.Helper()
	if rec.Status == "" {
		rec.Status = slab.StatusInStock
	}
	if rec.Category == "" {
		rec.Category = slab.CategoryCurrent
	}
	if rec.Family == "" {
		rec.Family = "Calacatta"
	}
	out, err := store.Create(context.Background(), rec)
	if err != nil {
		t.Fatalf("seed %s: %v", rec.SlabID, err)
	}
	return out
}

// slabsByID returns every stored record with slabID.
func slabsByID(t *testing.T, store Store, slabID string) []slab.Record {
	t.Helper()
	recs, err := store.FindMany(context.Background(), slab.Filter{SlabID: slabID, MatchSlabID: true})
	if err != nil {
		t.Fatalf("FindMany(%s): %v", slabID, err)
	}
	return recs
}
