package postgres

// convert.go maps between slab.Record fields and pgx types.
//
// Optional text columns use pgtype.Text so an empty or missing value is
// stored as NULL. Dates travel as YYYY-MM-DD strings in the domain and as
// pgtype.Date in the database.

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const isoDate = "2006-01-02"

// toPgText converts an optional string to pgtype.Text.
// Nil and empty strings become NULL.
func toPgText(s *string) pgtype.Text {
	if s == nil || *s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: *s, Valid: true}
}

// fromPgText converts pgtype.Text back to an optional string.
func fromPgText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

// toPgDate converts a YYYY-MM-DD string to pgtype.Date.
// Nil, empty or malformed input becomes NULL.
func toPgDate(s *string) pgtype.Date {
	if s == nil || *s == "" {
		return pgtype.Date{Valid: false}
	}
	t, err := time.Parse(isoDate, *s)
	if err != nil {
		return pgtype.Date{Valid: false}
	}
	return pgtype.Date{Time: t, Valid: true}
}

// fromPgDate formats pgtype.Date as YYYY-MM-DD.
func fromPgDate(d pgtype.Date) *string {
	if !d.Valid || d.InfinityModifier != pgtype.Finite {
		return nil
	}
	s := d.Time.UTC().Format(isoDate)
	return &s
}

// toPgUUID parses a record id. Malformed ids are invalid, never an error:
// they simply match nothing.
func toPgUUID(s string) pgtype.UUID {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

// pgUUIDToString converts a pgtype.UUID to its string form.
func pgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}
