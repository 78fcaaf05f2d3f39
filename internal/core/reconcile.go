package core

// reconcile.go turns tokenized rows into slab creates and quantity updates.
//
// An import runs in two steps that share one planning pass:
//
//  1. plan: validate rows, group them by (slab_id, version), sum quantities
//     and look up each group's existing record.
//  2. execute: create or increment per group (commit only).
//
// Preview stops after step 1, so its counts are exactly what a commit of the
// same rows would do against the same database state.

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/slabstock/internal/logging"
	"github.com/JonMunkholm/slabstock/internal/slab"
)

// nullVersionKey stands in for a missing version in group keys only.
const nullVersionKey = "null"

// ImportResult summarizes a committed import.
type ImportResult struct {
	Created  int      `json:"success"`
	Updated  int      `json:"updated"`
	Errors   []string `json:"errors"`
	Rows     int      `json:"rows"`
	Rejected int      `json:"rejected"`
	Failed   int      `json:"failed"`
}

// PreviewResult summarizes what committing the same rows would do.
type PreviewResult struct {
	WillCreate int      `json:"willCreate"`
	WillUpdate int      `json:"willUpdate"`
	Errors     []string `json:"errors"`
	Rows       int      `json:"rows"`
	Rejected   int      `json:"rejected"`
	Token      string   `json:"token,omitempty"`
}

// slabGroup is the set of rows that collapse to one slab.
type slabGroup struct {
	key      string
	slabID   string
	version  *string
	first    Row
	lines    []int
	quantity int

	existing  *slab.Record
	lookupErr error
}

type importPlan struct {
	groups   []*slabGroup
	errors   []string
	rejected int
}

// Reconciler plans and executes imports against a Store.
type Reconciler struct {
	store Store
	now   Clock
}

// NewReconciler creates a Reconciler. A nil clock uses the system clock.
func NewReconciler(store Store, now Clock) *Reconciler {
	if now == nil {
		now = systemClock
	}
	return &Reconciler{store: store, now: now}
}

// Preview reports what Import would do without writing anything.
func (r *Reconciler) Preview(ctx context.Context, rows []Row) (PreviewResult, error) {
	p, err := r.plan(ctx, rows)
	res := PreviewResult{Rows: len(rows)}
	if p == nil {
		return res, err
	}

	res.Errors = p.errors
	res.Rejected = p.rejected
	for _, g := range p.groups {
		switch {
		case g.lookupErr != nil:
		case g.existing != nil:
			res.WillUpdate++
		default:
			res.WillCreate++
		}
	}
	return res, err
}

// Import creates or increments one slab per group.
// Per-row and per-group failures are collected in Errors; only systemic
// failures are returned as an error, alongside the partial result.
func (r *Reconciler) Import(ctx context.Context, rows []Row) (ImportResult, error) {
	res := ImportResult{Rows: len(rows)}

	p, err := r.plan(ctx, rows)
	if p != nil {
		res.Errors = p.errors
		res.Rejected = p.rejected
	}
	if err != nil {
		return res, err
	}

	logger := logging.FromContext(ctx)
	now := r.now()

	for _, g := range p.groups {
		if g.lookupErr != nil {
			res.Failed++
			continue
		}

		if g.existing != nil {
			_, err := r.store.AdjustQuantity(ctx, g.existing.ID, g.quantity)
			if err != nil {
				if isSystemic(ctx, err) {
					return res, fmt.Errorf("update slab %s: %w", g.slabID, err)
				}
				logger.Warn("import: update failed", "slab_id", g.slabID, "error", err)
				res.Failed++
				res.Errors = append(res.Errors, groupError(g, err))
				continue
			}
			res.Updated++
			continue
		}

		if _, err := r.store.Create(ctx, g.record(now)); err != nil {
			if isSystemic(ctx, err) {
				return res, fmt.Errorf("create slab %s: %w", g.slabID, err)
			}
			logger.Warn("import: create failed", "slab_id", g.slabID, "lines", g.lines, "error", err)
			res.Failed++
			res.Errors = append(res.Errors, groupError(g, err))
			continue
		}
		res.Created++
	}

	return res, nil
}

// plan validates and groups rows, then looks up each group's existing record.
// A non-nil plan is returned with a systemic error so callers can report
// row-level errors gathered before the failure.
func (r *Reconciler) plan(ctx context.Context, rows []Row) (*importPlan, error) {
	p := &importPlan{errors: []string{}}
	index := make(map[string]*slabGroup)

	for i, row := range rows {
		line := i + 2 // header is line 1

		if row.Get(FieldFamily) == "" {
			p.rejected++
			p.errors = append(p.errors, fmt.Sprintf("Row %d: missing required field %q", line, FieldFamily))
			continue
		}

		slabID := rawCell(row, FieldSlabID)
		version := rawCell(row, FieldVersion)
		key := groupKey(slabID, version)

		g, ok := index[key]
		if !ok {
			g = &slabGroup{
				key:     key,
				slabID:  slabID,
				version: slab.StringPtr(version),
				first:   row,
			}
			index[key] = g
			p.groups = append(p.groups, g)
		}
		g.lines = append(g.lines, line)
		g.quantity += ParseQuantity(row.Get(FieldQuantity))
	}

	for _, g := range p.groups {
		existing, found, err := r.store.FindOne(ctx, slab.Filter{
			SlabID:       g.slabID,
			MatchSlabID:  true,
			MatchVersion: true,
			Version:      g.version,
		})
		if err != nil {
			if isSystemic(ctx, err) {
				return p, fmt.Errorf("look up slab %s: %w", g.slabID, err)
			}
			g.lookupErr = err
			p.errors = append(p.errors, groupError(g, err))
			continue
		}
		if found {
			g.existing = &existing
		}
	}

	return p, nil
}

// record builds the slab to create from the group's first row.
func (g *slabGroup) record(now time.Time) slab.Record {
	row := g.first

	received := ParseDate(row.Get(FieldReceivedDate), now)
	var sentDate *string
	if raw := row.Get(FieldSentToDate); raw != "" {
		d := ParseDate(raw, now)
		sentDate = &d
	}

	return slab.Record{
		SlabID:         g.slabID,
		Family:         row.Get(FieldFamily),
		Formulation:    slab.StringPtr(row.Get(FieldFormulation)),
		Version:        g.version,
		Status:         NormalizeStatus(row.Get(FieldStatus)),
		Category:       NormalizeCategory(row.Get(FieldCategory)),
		Quantity:       g.quantity,
		ReceivedDate:   &received,
		SentToLocation: slab.StringPtr(row.Get(FieldSentToLocation)),
		SentToDate:     sentDate,
		Notes:          slab.StringPtr(row.Get(FieldNotes)),
		BoxSharedLink:  ExtractURL(row.Get(FieldBoxSharedLink)),
		ImageURL:       ExtractURL(row.Get(FieldImageURL)),
		SKU:            slab.StringPtr(row.Get(FieldSKU)),
	}
}

// rawCell resolves a field without trimming, so group identity follows the
// file's exact spelling.
func rawCell(row Row, f Field) string {
	for _, alias := range fieldAliases[f] {
		if v, ok := row[alias]; ok && v != "" {
			return v
		}
	}
	return ""
}

func groupKey(slabID, version string) string {
	if version == "" {
		version = nullVersionKey
	}
	return slabID + "\x00" + version
}

func groupError(g *slabGroup, err error) string {
	return fmt.Sprintf("Slab %s: %v", g.slabID, err)
}
