// Package memstore is an in-memory slab store. It backs STORE_DRIVER=memory
// and serves as the persistence double in tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/slabstock/internal/slab"
)

// Store keeps records in insertion order behind a mutex.
type Store struct {
	mu      sync.RWMutex
	records []slab.Record
	byID    map[string]int
	now     func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		byID: make(map[string]int),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for created_at and updated_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Create stores rec under a new id.
func (s *Store) Create(_ context.Context, rec slab.Record) (slab.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec.ID = uuid.New().String()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	s.byID[rec.ID] = len(s.records)
	s.records = append(s.records, rec)
	return clone(rec), nil
}

// Update applies patch to the record with id.
func (s *Store) Update(_ context.Context, id string, p slab.Patch) (slab.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[id]
	if !ok {
		return slab.Record{}, slab.ErrNotFound
	}
	rec := &s.records[i]

	if p.Family != nil {
		rec.Family = *p.Family
	}
	setOptional(&rec.Formulation, p.Formulation)
	setOptional(&rec.Version, p.Version)
	if p.Status != nil {
		rec.Status = *p.Status
	}
	if p.Category != nil {
		rec.Category = *p.Category
	}
	if p.Quantity != nil {
		rec.Quantity = *p.Quantity
	}
	setOptional(&rec.ReceivedDate, p.ReceivedDate)
	setOptional(&rec.SentToLocation, p.SentToLocation)
	setOptional(&rec.SentToDate, p.SentToDate)
	setOptional(&rec.Notes, p.Notes)
	setOptional(&rec.BoxSharedLink, p.BoxSharedLink)
	setOptional(&rec.ImageURL, p.ImageURL)
	setOptional(&rec.SKU, p.SKU)
	rec.UpdatedAt = s.now()

	return clone(*rec), nil
}

// AdjustQuantity adds delta to the record's quantity unless the result
// would be negative.
func (s *Store) AdjustQuantity(_ context.Context, id string, delta int) (slab.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[id]
	if !ok {
		return slab.Record{}, slab.ErrNotFound
	}
	rec := &s.records[i]
	if rec.Quantity+delta < 0 {
		return slab.Record{}, slab.ErrInsufficientQuantity
	}
	rec.Quantity += delta
	rec.UpdatedAt = s.now()
	return clone(*rec), nil
}

// FindOne returns the oldest record matching f.
func (s *Store) FindOne(_ context.Context, f slab.Filter) (slab.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if matches(rec, f) {
			return clone(rec), true, nil
		}
	}
	return slab.Record{}, false, nil
}

// FindMany returns records matching f ordered by slab_id, then creation.
func (s *Store) FindMany(_ context.Context, f slab.Filter) ([]slab.Record, error) {
	s.mu.RLock()
	out := make([]slab.Record, 0)
	for _, rec := range s.records {
		if matches(rec, f) {
			out = append(out, clone(rec))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SlabID < out[j].SlabID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// LowStock sums in-stock quantity per family and formulation over active
// categories and returns the totals below threshold, smallest first.
func (s *Store) LowStock(_ context.Context, threshold int) ([]slab.StockLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type key struct {
		family      string
		formulation string
		hasForm     bool
	}
	index := make(map[key]*slab.StockLevel)
	var levels []*slab.StockLevel

	for _, rec := range s.records {
		if rec.Status != slab.StatusInStock || !rec.Category.Valid() {
			continue
		}
		k := key{family: rec.Family}
		if rec.Formulation != nil {
			k.formulation, k.hasForm = *rec.Formulation, true
		}
		lvl, ok := index[k]
		if !ok {
			lvl = &slab.StockLevel{Family: rec.Family}
			if k.hasForm {
				lvl.Formulation = slab.StringPtr(k.formulation)
			}
			index[k] = lvl
			levels = append(levels, lvl)
		}
		lvl.Total += rec.Quantity
		lvl.Slabs++
	}

	out := make([]slab.StockLevel, 0)
	for _, lvl := range levels {
		if lvl.Total < threshold {
			out = append(out, *lvl)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total < out[j].Total
		}
		if out[i].Family != out[j].Family {
			return out[i].Family < out[j].Family
		}
		return slab.Deref(out[i].Formulation) < slab.Deref(out[j].Formulation)
	})
	return out, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func matches(rec slab.Record, f slab.Filter) bool {
	if f.ID != "" && rec.ID != f.ID {
		return false
	}
	if (f.SlabID != "" || f.MatchSlabID) && rec.SlabID != f.SlabID {
		return false
	}
	if f.MatchVersion {
		if (f.Version == nil) != (rec.Version == nil) {
			return false
		}
		if f.Version != nil && *f.Version != *rec.Version {
			return false
		}
	}
	if len(f.Categories) > 0 && !containsCategory(f.Categories, rec.Category) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, rec.Status) {
		return false
	}
	if f.Search != "" && !matchesSearch(rec, strings.ToLower(f.Search)) {
		return false
	}
	return true
}

func matchesSearch(rec slab.Record, needle string) bool {
	fields := []string{
		rec.SlabID,
		rec.Family,
		slab.Deref(rec.Formulation),
		slab.Deref(rec.Notes),
		slab.Deref(rec.SKU),
		slab.Deref(rec.SentToLocation),
	}
	for _, v := range fields {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

func containsCategory(set []slab.Category, c slab.Category) bool {
	for _, v := range set {
		if v == c {
			return true
		}
	}
	return false
}

func containsStatus(set []slab.Status, st slab.Status) bool {
	for _, v := range set {
		if v == st {
			return true
		}
	}
	return false
}

// setOptional applies a patch value to an optional column. An empty string
// clears it.
func setOptional(dst **string, v *string) {
	if v == nil {
		return
	}
	*dst = slab.StringPtr(*v)
}

// clone copies rec so callers cannot mutate stored pointers.
func clone(rec slab.Record) slab.Record {
	cp := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	rec.Formulation = cp(rec.Formulation)
	rec.Version = cp(rec.Version)
	rec.ReceivedDate = cp(rec.ReceivedDate)
	rec.SentToLocation = cp(rec.SentToLocation)
	rec.SentToDate = cp(rec.SentToDate)
	rec.Notes = cp(rec.Notes)
	rec.BoxSharedLink = cp(rec.BoxSharedLink)
	rec.ImageURL = cp(rec.ImageURL)
	rec.SKU = cp(rec.SKU)
	return rec
}
