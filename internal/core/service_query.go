package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/slabstock/internal/logging"
	"github.com/JonMunkholm/slabstock/internal/slab"
)

// DefaultBrowseLimit caps list results when the caller sets no limit.
const DefaultBrowseLimit = 500

// BrowseQuery is the browse and export filter as given by a client.
type BrowseQuery struct {
	Category slab.Category
	Status   slab.Status
	Search   string
	Limit    int
}

// BrowseFilter converts q to a store filter. The outbound category selects
// sent slabs from every category.
func BrowseFilter(q BrowseQuery) (slab.Filter, error) {
	f := slab.Filter{
		Search: strings.TrimSpace(q.Search),
		Limit:  q.Limit,
	}

	switch {
	case q.Category == "":
	case q.Category == slab.CategoryOutbound:
		f.Statuses = []slab.Status{slab.StatusSent}
	case q.Category.Valid():
		f.Categories = []slab.Category{q.Category}
	default:
		return slab.Filter{}, ValidationError{
			Field:   string(FieldCategory),
			Value:   string(q.Category),
			Message: fmt.Sprintf("must be %s, %s or %s", slab.CategoryCurrent, slab.CategoryDevelopment, slab.CategoryOutbound),
		}
	}

	if q.Status != "" {
		if q.Category == slab.CategoryOutbound && q.Status != slab.StatusSent {
			return slab.Filter{}, ValidationError{
				Field:   string(FieldStatus),
				Value:   string(q.Status),
				Message: "outbound only lists sent slabs",
			}
		}
		f.Statuses = []slab.Status{q.Status}
	}
	return f, nil
}

// ListSlabs returns slabs matching q, capped at DefaultBrowseLimit when q
// sets no limit.
func (s *Service) ListSlabs(ctx context.Context, q BrowseQuery) ([]slab.Record, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultBrowseLimit
	}
	return s.ExportSlabs(ctx, q)
}

// ExportSlabs returns every slab matching q. A zero limit means no limit.
func (s *Service) ExportSlabs(ctx context.Context, q BrowseQuery) ([]slab.Record, error) {
	f, err := BrowseFilter(q)
	if err != nil {
		return nil, err
	}
	recs, err := s.store.FindMany(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list slabs: %w", err)
	}
	return recs, nil
}

// GetSlab returns the slab with the given record id.
func (s *Service) GetSlab(ctx context.Context, id string) (slab.Record, error) {
	rec, found, err := s.store.FindOne(ctx, slab.Filter{ID: id})
	if err != nil {
		return slab.Record{}, fmt.Errorf("get slab: %w", err)
	}
	if !found {
		return slab.Record{}, slab.ErrNotFound
	}
	return rec, nil
}

// CheckDuplicate looks slabID up among active categories.
func (s *Service) CheckDuplicate(ctx context.Context, slabID string) (*Duplicate, error) {
	slabID = strings.TrimSpace(slabID)
	if slabID == "" {
		return nil, nil
	}
	dup, err := FindDuplicate(ctx, s.store, slabID)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	return dup, nil
}

// LowStock reports family/formulation pairs whose in-stock total is below
// threshold. A non-positive threshold uses the configured default.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]slab.StockLevel, error) {
	if threshold <= 0 {
		threshold = s.threshold
	}
	levels, err := s.store.LowStock(ctx, threshold)
	if err != nil {
		if errors.Is(err, slab.ErrUnavailable) {
			logging.FromContext(ctx).Warn("low stock check failed", "error", err)
		}
		return nil, fmt.Errorf("low stock: %w", err)
	}
	s.metrics.SetLowStockLevels(len(levels))
	return levels, nil
}
