// Package postgres is the PostgreSQL slab store built on pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/slabstock/internal/slab"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const selectColumns = `id, slab_id, family, formulation, version, status, category, quantity,
	received_date, sent_to_location, sent_to_date, notes, box_shared_link, image_url, sku,
	created_at, updated_at`

// Store implements the core store over a pgx pool.
type Store struct {
	db DBTX
}

// New returns a Store using pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// NewWithDB returns a Store over any DBTX, such as a transaction.
func NewWithDB(db DBTX) *Store {
	return &Store{db: db}
}

// Create inserts rec with a new id.
func (s *Store) Create(ctx context.Context, rec slab.Record) (slab.Record, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO slabs (
			id, slab_id, family, formulation, version, status, category, quantity,
			received_date, sent_to_location, sent_to_date, notes, box_shared_link, image_url, sku
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+selectColumns,
		pgtype.UUID{Bytes: uuid.New(), Valid: true},
		rec.SlabID,
		rec.Family,
		toPgText(rec.Formulation),
		toPgText(rec.Version),
		string(rec.Status),
		string(rec.Category),
		rec.Quantity,
		toPgDate(rec.ReceivedDate),
		toPgText(rec.SentToLocation),
		toPgDate(rec.SentToDate),
		toPgText(rec.Notes),
		toPgText(rec.BoxSharedLink),
		toPgText(rec.ImageURL),
		toPgText(rec.SKU),
	)

	out, err := scanRecord(row)
	if err != nil {
		return slab.Record{}, classify("insert slab", err)
	}
	return out, nil
}

// Update applies the non-nil fields of p.
func (s *Store) Update(ctx context.Context, id string, p slab.Patch) (slab.Record, error) {
	pgID := toPgUUID(id)
	if !pgID.Valid {
		return slab.Record{}, slab.ErrNotFound
	}

	sets := []string{"updated_at = now()"}
	args := []interface{}{pgID}
	set := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if p.Family != nil {
		set("family", *p.Family)
	}
	if p.Formulation != nil {
		set("formulation", toPgText(p.Formulation))
	}
	if p.Version != nil {
		set("version", toPgText(p.Version))
	}
	if p.Status != nil {
		set("status", string(*p.Status))
	}
	if p.Category != nil {
		set("category", string(*p.Category))
	}
	if p.Quantity != nil {
		set("quantity", *p.Quantity)
	}
	if p.ReceivedDate != nil {
		set("received_date", toPgDate(p.ReceivedDate))
	}
	if p.SentToLocation != nil {
		set("sent_to_location", toPgText(p.SentToLocation))
	}
	if p.SentToDate != nil {
		set("sent_to_date", toPgDate(p.SentToDate))
	}
	if p.Notes != nil {
		set("notes", toPgText(p.Notes))
	}
	if p.BoxSharedLink != nil {
		set("box_shared_link", toPgText(p.BoxSharedLink))
	}
	if p.ImageURL != nil {
		set("image_url", toPgText(p.ImageURL))
	}
	if p.SKU != nil {
		set("sku", toPgText(p.SKU))
	}

	query := fmt.Sprintf("UPDATE slabs SET %s WHERE id = $1 RETURNING %s",
		strings.Join(sets, ", "), selectColumns)

	out, err := scanRecord(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return slab.Record{}, slab.ErrNotFound
		}
		return slab.Record{}, classify("update slab", err)
	}
	return out, nil
}

// AdjustQuantity adds delta in a single statement. When the guard rejects
// the row, a second lookup tells a missing id from an insufficient quantity.
func (s *Store) AdjustQuantity(ctx context.Context, id string, delta int) (slab.Record, error) {
	pgID := toPgUUID(id)
	if !pgID.Valid {
		return slab.Record{}, slab.ErrNotFound
	}

	row := s.db.QueryRow(ctx, `
		UPDATE slabs
		SET quantity = quantity + $2, updated_at = now()
		WHERE id = $1 AND quantity + $2 >= 0
		RETURNING `+selectColumns,
		pgID, delta,
	)

	out, err := scanRecord(row)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return slab.Record{}, classify("adjust quantity", err)
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM slabs WHERE id = $1)`, pgID).Scan(&exists); err != nil {
		return slab.Record{}, classify("adjust quantity", err)
	}
	if !exists {
		return slab.Record{}, slab.ErrNotFound
	}
	return slab.Record{}, slab.ErrInsufficientQuantity
}

// FindOne returns the oldest record matching f.
func (s *Store) FindOne(ctx context.Context, f slab.Filter) (slab.Record, bool, error) {
	if f.ID != "" && !toPgUUID(f.ID).Valid {
		return slab.Record{}, false, nil
	}

	where, args := buildWhere(f)
	query := fmt.Sprintf("SELECT %s FROM slabs%s ORDER BY created_at, id LIMIT 1", selectColumns, where)

	out, err := scanRecord(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return slab.Record{}, false, nil
		}
		return slab.Record{}, false, classify("find slab", err)
	}
	return out, true, nil
}

// FindMany returns records matching f ordered by slab_id, then creation.
func (s *Store) FindMany(ctx context.Context, f slab.Filter) ([]slab.Record, error) {
	if f.ID != "" && !toPgUUID(f.ID).Valid {
		return []slab.Record{}, nil
	}

	where, args := buildWhere(f)
	query := fmt.Sprintf("SELECT %s FROM slabs%s ORDER BY slab_id, created_at, id", selectColumns, where)
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list slabs", err)
	}
	defer rows.Close()

	out := make([]slab.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, classify("scan slab", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list slabs", err)
	}
	return out, nil
}

// LowStock calls the low_stock_levels SQL function.
func (s *Store) LowStock(ctx context.Context, threshold int) ([]slab.StockLevel, error) {
	rows, err := s.db.Query(ctx, `SELECT family, formulation, total, slabs FROM low_stock_levels($1)`, threshold)
	if err != nil {
		return nil, classify("low stock", err)
	}
	defer rows.Close()

	out := make([]slab.StockLevel, 0)
	for rows.Next() {
		var (
			lvl         slab.StockLevel
			formulation pgtype.Text
			total       int64
			count       int64
		)
		if err := rows.Scan(&lvl.Family, &formulation, &total, &count); err != nil {
			return nil, classify("scan low stock", err)
		}
		lvl.Formulation = fromPgText(formulation)
		lvl.Total = int(total)
		lvl.Slabs = int(count)
		out = append(out, lvl)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("low stock", err)
	}
	return out, nil
}

// buildWhere renders f as a WHERE clause with positional arguments.
func buildWhere(f slab.Filter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ID != "" {
		conds = append(conds, "id = "+arg(toPgUUID(f.ID)))
	}
	if f.SlabID != "" || f.MatchSlabID {
		conds = append(conds, "slab_id = "+arg(f.SlabID))
	}
	if f.MatchVersion {
		if f.Version == nil {
			conds = append(conds, "version IS NULL")
		} else {
			conds = append(conds, "version = "+arg(*f.Version))
		}
	}
	if len(f.Categories) > 0 {
		cats := make([]string, len(f.Categories))
		for i, c := range f.Categories {
			cats[i] = string(c)
		}
		conds = append(conds, "category = ANY("+arg(cats)+")")
	}
	if len(f.Statuses) > 0 {
		sts := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			sts[i] = string(st)
		}
		conds = append(conds, "status = ANY("+arg(sts)+")")
	}
	if f.Search != "" {
		p := arg("%" + escapeLike(f.Search) + "%")
		cols := []string{"slab_id", "family", "formulation", "notes", "sku", "sent_to_location"}
		ors := make([]string, len(cols))
		for i, c := range cols {
			ors[i] = fmt.Sprintf("%s ILIKE %s", c, p)
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (slab.Record, error) {
	var (
		rec                            slab.Record
		id                             pgtype.UUID
		formulation, version           pgtype.Text
		sentTo, notes, box, image, sku pgtype.Text
		status, category               string
		quantity                       int32
		received, sentDate             pgtype.Date
	)
	err := row.Scan(
		&id, &rec.SlabID, &rec.Family, &formulation, &version, &status, &category, &quantity,
		&received, &sentTo, &sentDate, &notes, &box, &image, &sku,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return slab.Record{}, err
	}

	rec.ID = pgUUIDToString(id)
	rec.Formulation = fromPgText(formulation)
	rec.Version = fromPgText(version)
	rec.Status = slab.Status(status)
	rec.Category = slab.Category(category)
	rec.Quantity = int(quantity)
	rec.ReceivedDate = fromPgDate(received)
	rec.SentToLocation = fromPgText(sentTo)
	rec.SentToDate = fromPgDate(sentDate)
	rec.Notes = fromPgText(notes)
	rec.BoxSharedLink = fromPgText(box)
	rec.ImageURL = fromPgText(image)
	rec.SKU = fromPgText(sku)
	return rec, nil
}

// classify wraps err, marking connection-level failures with
// slab.ErrUnavailable so imports abort instead of failing every group.
func classify(op string, err error) error {
	if isConnectionError(err) {
		return fmt.Errorf("%s: %w: %w", op, slab.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isConnectionError(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exception; 57P0x: server shutting down.
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P0")
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
