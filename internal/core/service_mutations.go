package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/slabstock/internal/logging"
	"github.com/JonMunkholm/slabstock/internal/slab"
)

// UpdateSlab applies a manual edit. An empty patch returns the record unchanged.
func (s *Service) UpdateSlab(ctx context.Context, id string, patch slab.Patch) (slab.Record, error) {
	if err := validatePatch(patch); err != nil {
		return slab.Record{}, err
	}
	if patch.Empty() {
		return s.GetSlab(ctx, id)
	}

	rec, err := s.store.Update(ctx, id, normalizePatch(patch, s.now()))
	if err != nil {
		return slab.Record{}, fmt.Errorf("update slab: %w", err)
	}

	auditLogger(ctx).Info("slab updated",
		"id", rec.ID,
		"slab_id", rec.SlabID,
		"quantity", rec.Quantity,
		"status", rec.Status,
	)
	return rec, nil
}

// AddSlab runs the add workflow for a single request. Without a resolution
// a duplicate that needs confirmation is returned as ActionNeedsConfirmation;
// with one, the confirmation is applied in the same call.
func (s *Service) AddSlab(ctx context.Context, form AddForm, resolution Resolution) (Outcome, error) {
	switch resolution {
	case "", ResolutionAdd, ResolutionCreateNew:
	default:
		return Outcome{}, ValidationError{Field: "resolution", Value: string(resolution), Message: "must be add or create_new"}
	}

	session := NewAddSession(s.store, s.now)
	session.Edit(form)

	out, err := session.Submit(ctx)
	if err == nil && out.Action == ActionNeedsConfirmation && resolution != "" {
		out, err = session.Resolve(ctx, resolution)
	}

	logger := auditLogger(ctx).With("slab_id", form.SlabID, "status", form.Status)
	if err != nil {
		s.metrics.RecordResolution("rejected")
		var ve ValidationError
		level := slog.LevelError
		if errors.As(err, &ve) || errors.Is(err, ErrUnsupportedResolution) {
			level = slog.LevelInfo
		}
		logger.Log(ctx, level, "add slab rejected", "state", session.State(), "error", err)
		return out, err
	}

	s.metrics.RecordResolution(string(out.Action))
	args := []any{"action", out.Action}
	if out.Record != nil {
		args = append(args, "id", out.Record.ID, "quantity", out.Record.Quantity)
	}
	logger.Info("add slab", args...)
	return out, nil
}

// auditLogger carries the client details stored on ctx by the web layer.
func auditLogger(ctx context.Context) *slog.Logger {
	return logging.WithFields(ctx, ClientFromContext(ctx).logArgs()...)
}
