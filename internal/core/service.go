package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/JonMunkholm/slabstock/internal/metrics"
	"github.com/JonMunkholm/slabstock/internal/slab"
)

// DefaultMaxFileSize is the largest import accepted when Options leaves it unset (10MB).
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// DefaultPreviewTTL is how long a preview can be committed.
const DefaultPreviewTTL = 15 * time.Minute

// DefaultLowStockThreshold is the in-stock total below which a family is reported.
const DefaultLowStockThreshold = 5

// Import input errors.
var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrEmptyFile       = errors.New("empty file: expected a header line and at least one data row")
	ErrPreviewNotFound = errors.New("preview not found or expired")
)

// Options configures a Service. Zero values select the defaults.
type Options struct {
	MaxFileSize       int64
	MaxConcurrent     int
	MaxWait           time.Duration
	ImportTimeout     time.Duration
	PreviewTTL        time.Duration
	LowStockThreshold int
	Now               Clock
	Metrics           *metrics.Metrics
}

// Service provides the inventory operations used by the HTTP layer.
type Service struct {
	store      Store
	reconciler *Reconciler
	limiter    *ImportLimiter
	metrics    *metrics.Metrics
	now        Clock

	maxFileSize   int64
	importTimeout time.Duration
	threshold     int

	previewMu  sync.Mutex
	previews   *cache.Cache
	previewTTL time.Duration
}

// NewService creates a Service backed by store.
func NewService(store Store, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = systemClock
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.PreviewTTL <= 0 {
		opts.PreviewTTL = DefaultPreviewTTL
	}
	if opts.LowStockThreshold <= 0 {
		opts.LowStockThreshold = DefaultLowStockThreshold
	}

	s := &Service{
		store:         store,
		reconciler:    NewReconciler(store, opts.Now),
		limiter:       NewImportLimiter(opts.MaxConcurrent, opts.MaxWait),
		metrics:       opts.Metrics,
		now:           opts.Now,
		maxFileSize:   opts.MaxFileSize,
		importTimeout: opts.ImportTimeout,
		threshold:     opts.LowStockThreshold,
		previews:      cache.New(opts.PreviewTTL, 2*opts.PreviewTTL),
		previewTTL:    opts.PreviewTTL,
	}
	s.previews.OnEvicted(func(string, interface{}) {
		s.metrics.SetPreviewTokens(s.previews.ItemCount())
	})
	return s
}

// LimiterStatus reports import slot usage.
func (s *Service) LimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx ends.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// LowStockThreshold returns the configured default threshold.
func (s *Service) LowStockThreshold() int {
	return s.threshold
}

// Ping checks that the store answers a trivial query.
func (s *Service) Ping(ctx context.Context) error {
	_, err := s.store.FindMany(ctx, slab.Filter{Limit: 1})
	return err
}
