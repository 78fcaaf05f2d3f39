package core

import (
	"context"
	"errors"
	"time"

	"github.com/JonMunkholm/slabstock/internal/slab"
)

// Store is the persistence service the core depends on.
// Implementations live in internal/store.
type Store interface {
	Create(ctx context.Context, rec slab.Record) (slab.Record, error)
	Update(ctx context.Context, id string, patch slab.Patch) (slab.Record, error)

	// AdjustQuantity atomically adds delta to the stored quantity and
	// refreshes updated_at. It returns slab.ErrInsufficientQuantity, without
	// writing, when the result would be negative.
	AdjustQuantity(ctx context.Context, id string, delta int) (slab.Record, error)

	FindOne(ctx context.Context, f slab.Filter) (slab.Record, bool, error)
	FindMany(ctx context.Context, f slab.Filter) ([]slab.Record, error)

	// LowStock returns in-stock totals per family and formulation that are
	// strictly below threshold.
	LowStock(ctx context.Context, threshold int) ([]slab.StockLevel, error)
}

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// isSystemic reports whether err means the store as a whole cannot be used,
// as opposed to a failure scoped to one record.
func isSystemic(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, slab.ErrUnavailable)
}
