package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/JonMunkholm/slabstock/internal/logging"
	"github.com/JonMunkholm/slabstock/internal/metrics"
)

// PreviewImport tokenizes data and reports what committing it would do.
// The parsed rows are kept under the returned token until CommitPreview or
// expiry.
func (s *Service) PreviewImport(ctx context.Context, data []byte) (PreviewResult, error) {
	rows, err := s.parseImport(data)
	if err != nil {
		return PreviewResult{}, err
	}

	if err := s.acquire(ctx); err != nil {
		return PreviewResult{}, err
	}
	defer s.release()

	ctx, cancel := s.withImportTimeout(ctx)
	defer cancel()

	start := time.Now()
	res, err := s.reconciler.Preview(ctx, rows)
	s.metrics.ObserveImport("preview", time.Since(start))
	if err != nil {
		return res, fmt.Errorf("preview import: %w", err)
	}

	res.Token = uuid.New().String()
	s.previews.Set(res.Token, rows, cache.DefaultExpiration)
	s.metrics.SetPreviewTokens(s.previews.ItemCount())

	logging.WithFields(ctx, "preview_token", res.Token).Info("import previewed",
		"rows", res.Rows,
		"will_create", res.WillCreate,
		"will_update", res.WillUpdate,
		"errors", len(res.Errors),
		"expires_in", s.previewTTL,
	)
	return res, nil
}

// CommitPreview imports the rows stored under token. A token can be
// committed once.
func (s *Service) CommitPreview(ctx context.Context, token string) (ImportResult, error) {
	rows, ok := s.takePreview(token)
	if !ok {
		return ImportResult{}, ErrPreviewNotFound
	}
	return s.runImport(ctx, rows)
}

// Import tokenizes and commits data in one step.
func (s *Service) Import(ctx context.Context, data []byte) (ImportResult, error) {
	rows, err := s.parseImport(data)
	if err != nil {
		return ImportResult{}, err
	}
	return s.runImport(ctx, rows)
}

func (s *Service) runImport(ctx context.Context, rows []Row) (ImportResult, error) {
	if err := s.acquire(ctx); err != nil {
		return ImportResult{}, err
	}
	defer s.release()

	ctx, cancel := s.withImportTimeout(ctx)
	defer cancel()

	logger := logging.WithFields(ctx, "import_id", uuid.New().String())
	logger.Info("import started", "rows", len(rows))

	start := time.Now()
	res, err := s.reconciler.Import(ctx, rows)
	elapsed := time.Since(start)

	s.metrics.ObserveImport("commit", elapsed)
	s.metrics.RecordRows(metrics.RowAccepted, res.Rows-res.Rejected)
	s.metrics.RecordRows(metrics.RowRejected, res.Rejected)
	s.metrics.RecordGroups(metrics.GroupCreated, res.Created)
	s.metrics.RecordGroups(metrics.GroupUpdated, res.Updated)
	s.metrics.RecordGroups(metrics.GroupFailed, res.Failed)

	if err != nil {
		logger.Error("import aborted",
			"created", res.Created,
			"updated", res.Updated,
			"errors", len(res.Errors),
			"duration", elapsed,
			"error", err,
		)
		return res, fmt.Errorf("import: %w", err)
	}

	logger.Info("import finished",
		"rows", res.Rows,
		"created", res.Created,
		"updated", res.Updated,
		"errors", len(res.Errors),
		"duration", elapsed,
	)
	return res, nil
}

func (s *Service) parseImport(data []byte) ([]Row, error) {
	if int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, len(data), s.maxFileSize)
	}
	var rows []Row
	if IsWorkbook(data) {
		var err error
		if rows, err = TokenizeWorkbook(data); err != nil {
			return nil, err
		}
	} else {
		rows = Tokenize(string(data))
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return rows, nil
}

// takePreview removes and returns the rows stored under token.
func (s *Service) takePreview(token string) ([]Row, bool) {
	s.previewMu.Lock()
	defer s.previewMu.Unlock()

	v, ok := s.previews.Get(token)
	if !ok {
		return nil, false
	}
	s.previews.Delete(token)

	rows, ok := v.([]Row)
	return rows, ok
}

func (s *Service) acquire(ctx context.Context) error {
	if err := s.limiter.Acquire(ctx); err != nil {
		return err
	}
	s.metrics.ImportStarted()
	return nil
}

func (s *Service) release() {
	s.metrics.ImportFinished()
	s.limiter.Release()
}

func (s *Service) withImportTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.importTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.importTimeout)
}
