package core

// validation.go checks the add and edit forms before anything is written.
//
// Imports are lenient and never reject a value except a missing family.
// Forms are strict: the status must come from the form vocabulary, the
// category must be a stored category and quantities must be whole numbers.

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/slabstock/internal/slab"
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Field/column name
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// validateAddForm checks the add form and returns the parsed quantity.
func validateAddForm(form AddForm) (int, error) {
	if strings.TrimSpace(form.SlabID) == "" {
		return 0, ValidationError{Field: string(FieldSlabID), Message: "is required"}
	}
	if strings.TrimSpace(form.Family) == "" {
		return 0, ValidationError{Field: string(FieldFamily), Message: "is required"}
	}
	if err := validateFormStatus(form.Status); err != nil {
		return 0, err
	}
	if form.Category != "" && !form.Category.Valid() {
		return 0, invalidCategory(form.Category)
	}

	qty, err := parseFormQuantity(form.Quantity)
	if err != nil {
		return 0, err
	}
	if qty < 1 {
		return 0, ValidationError{Field: string(FieldQuantity), Value: form.Quantity, Message: "must be at least 1"}
	}
	return qty, nil
}

// validatePatch checks an edit. Quantity may drop to zero but not below.
func validatePatch(p slab.Patch) error {
	if p.Family != nil && strings.TrimSpace(*p.Family) == "" {
		return ValidationError{Field: string(FieldFamily), Message: "cannot be empty"}
	}
	if p.Status != nil {
		if err := validateFormStatus(*p.Status); err != nil {
			return err
		}
	}
	if p.Category != nil && !p.Category.Valid() {
		return invalidCategory(*p.Category)
	}
	if p.Quantity != nil && *p.Quantity < 0 {
		return ValidationError{Field: string(FieldQuantity), Value: strconv.Itoa(*p.Quantity), Message: "cannot be negative"}
	}
	return nil
}

func validateFormStatus(s slab.Status) error {
	if slab.IsFormStatus(s) {
		return nil
	}
	names := make([]string, len(slab.FormStatuses))
	for i, v := range slab.FormStatuses {
		names[i] = string(v)
	}
	return ValidationError{
		Field:   string(FieldStatus),
		Value:   string(s),
		Message: fmt.Sprintf("invalid status: must be one of %s", strings.Join(names, ", ")),
	}
}

func invalidCategory(c slab.Category) error {
	return ValidationError{
		Field:   string(FieldCategory),
		Value:   string(c),
		Message: fmt.Sprintf("must be %s or %s", slab.CategoryCurrent, slab.CategoryDevelopment),
	}
}

// parseFormQuantity is the strict counterpart of ParseQuantity. An empty
// field means one slab.
func parseFormQuantity(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ValidationError{Field: string(FieldQuantity), Value: raw, Message: "must be a whole number"}
	}
	return n, nil
}

// formRecord builds the record an add creates.
func formRecord(form AddForm, qty int, now time.Time) slab.Record {
	category := form.Category
	if category == "" {
		category = slab.CategoryCurrent
	}

	received := ParseDate(form.ReceivedDate, now)
	var sentDate *string
	if strings.TrimSpace(form.SentToDate) != "" {
		d := ParseDate(form.SentToDate, now)
		sentDate = &d
	}

	trim := strings.TrimSpace
	return slab.Record{
		SlabID:         trim(form.SlabID),
		Family:         trim(form.Family),
		Formulation:    slab.StringPtr(trim(form.Formulation)),
		Version:        slab.StringPtr(trim(form.Version)),
		Status:         form.Status,
		Category:       category,
		Quantity:       qty,
		ReceivedDate:   &received,
		SentToLocation: slab.StringPtr(trim(form.SentToLocation)),
		SentToDate:     sentDate,
		Notes:          slab.StringPtr(trim(form.Notes)),
		BoxSharedLink:  ExtractURL(form.BoxSharedLink),
		ImageURL:       ExtractURL(form.ImageURL),
		SKU:            slab.StringPtr(trim(form.SKU)),
	}
}

// normalizePatch canonicalizes dates and links the way imports do.
func normalizePatch(p slab.Patch, now time.Time) slab.Patch {
	date := func(v *string) *string {
		if v == nil || strings.TrimSpace(*v) == "" {
			return v
		}
		d := ParseDate(*v, now)
		return &d
	}
	link := func(v *string) *string {
		if v == nil {
			return nil
		}
		if u := ExtractURL(*v); u != nil {
			return u
		}
		empty := ""
		return &empty
	}

	p.ReceivedDate = date(p.ReceivedDate)
	p.SentToDate = date(p.SentToDate)
	p.BoxSharedLink = link(p.BoxSharedLink)
	p.ImageURL = link(p.ImageURL)
	return p
}
