// Package slab defines the persisted slab record and the query types shared
// by the import engine, the add-slab workflow and the store implementations.
package slab

import (
	"errors"
	"time"
)

// Sentinel errors returned by stores.
var (
	ErrNotFound             = errors.New("slab not found")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrUnavailable          = errors.New("store unavailable")
)

// Status is the stock state of a slab.
type Status string

const (
	StatusInStock      Status = "in_stock"
	StatusSent         Status = "sent"
	StatusReserved     Status = "reserved"
	StatusSold         Status = "sold"
	StatusNotInYet     Status = "not_in_yet"
	StatusDiscontinued Status = "discontinued"
)

// ImportStatuses is the vocabulary CSV imports normalize to.
var ImportStatuses = []Status{StatusInStock, StatusSent, StatusReserved, StatusSold}

// FormStatuses is the vocabulary accepted by the add and edit operations.
// It intentionally differs from ImportStatuses; see DESIGN.md.
var FormStatuses = []Status{StatusInStock, StatusSent, StatusNotInYet, StatusDiscontinued}

// Category partitions inventory into production and experimental stock.
type Category string

const (
	CategoryCurrent     Category = "current"
	CategoryDevelopment Category = "development"

	// CategoryOutbound is a browse filter (status == sent), never stored.
	CategoryOutbound Category = "outbound"
)

// Record is one persisted slab.
type Record struct {
	ID             string    `json:"id"`
	SlabID         string    `json:"slab_id"`
	Family         string    `json:"family"`
	Formulation    *string   `json:"formulation"`
	Version        *string   `json:"version"`
	Status         Status    `json:"status"`
	Category       Category  `json:"category"`
	Quantity       int       `json:"quantity"`
	ReceivedDate   *string   `json:"received_date"`
	SentToLocation *string   `json:"sent_to_location"`
	SentToDate     *string   `json:"sent_to_date"`
	Notes          *string   `json:"notes"`
	BoxSharedLink  *string   `json:"box_shared_link"`
	ImageURL       *string   `json:"image_url"`
	SKU            *string   `json:"sku"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Patch lists the fields an update may change. Nil fields are left as-is;
// an empty string clears an optional field.
type Patch struct {
	Family         *string   `json:"family,omitempty"`
	Formulation    *string   `json:"formulation,omitempty"`
	Version        *string   `json:"version,omitempty"`
	Status         *Status   `json:"status,omitempty"`
	Category       *Category `json:"category,omitempty"`
	Quantity       *int      `json:"quantity,omitempty"`
	ReceivedDate   *string   `json:"received_date,omitempty"`
	SentToLocation *string   `json:"sent_to_location,omitempty"`
	SentToDate     *string   `json:"sent_to_date,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
	BoxSharedLink  *string   `json:"box_shared_link,omitempty"`
	ImageURL       *string   `json:"image_url,omitempty"`
	SKU            *string   `json:"sku,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p == Patch{}
}

// Filter selects records. Zero-valued fields do not constrain the result.
type Filter struct {
	ID     string
	SlabID string

	// MatchSlabID makes SlabID an exact constraint even when it is empty.
	MatchSlabID bool

	// MatchVersion enables the version constraint: Version must equal the
	// stored version, and a nil Version matches only records without one.
	MatchVersion bool
	Version      *string

	Categories []Category
	Statuses   []Status

	// Search is a case-insensitive substring match over the text fields.
	Search string

	Limit int
}

// StockLevel is one row of the low-stock aggregate.
type StockLevel struct {
	Family      string  `json:"family"`
	Formulation *string `json:"formulation"`
	Total       int     `json:"total"`
	Slabs       int     `json:"slabs"`
}

// ActiveCategories are the categories the add-slab duplicate check considers.
var ActiveCategories = []Category{CategoryCurrent, CategoryDevelopment}

// IsImportStatus reports whether s is in the import vocabulary.
func IsImportStatus(s Status) bool {
	return contains(ImportStatuses, s)
}

// IsFormStatus reports whether s is in the form vocabulary.
func IsFormStatus(s Status) bool {
	return contains(FormStatuses, s)
}

// Valid reports whether c is a stored category.
func (c Category) Valid() bool {
	return c == CategoryCurrent || c == CategoryDevelopment
}

func contains(set []Status, s Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// StringPtr returns nil for an empty string, otherwise a pointer to s.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
