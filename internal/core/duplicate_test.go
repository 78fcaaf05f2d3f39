package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/slabstock/internal/slab"
)

func addForm(slabID string, status slab.Status, qty string) AddForm {
	return AddForm{SlabID: slabID, Family: "Calacatta", Status: status, Quantity: qty}
}

func TestAddSession_SentSubtractsFromDuplicate(t *testing.T) {
	store := newFaultyStore()
	existing := seed(t, store, slab.Record{SlabID: "2B", Category: slab.CategoryCurrent, Quantity: 10})

	session := NewAddSession(store, fixedClock)
	session.Edit(addForm("2B", slab.StatusSent, "3"))

	out, err := session.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if out.Action != ActionSubtracted {
		t.Errorf("Action = %q, want %q", out.Action, ActionSubtracted)
	}
	if out.Record == nil || out.Record.ID != existing.ID || out.Record.Quantity != 7 {
		t.Errorf("Record = %+v, want %s with quantity 7", out.Record, existing.ID)
	}
	if got := session.State(); got != StateDone {
		t.Errorf("State() = %q, want %q", got, StateDone)
	}
	if n := store.Len(); n != 1 {
		t.Errorf("store has %d records, want 1", n)
	}
}

func TestAddSession_ConfirmAddIncrementsDuplicate(t *testing.T) {
	store := newFaultyStore()
	seed(t, store, slab.Record{SlabID: "2B", Category: slab.CategoryCurrent, Quantity: 10})

	session := NewAddSession(store, fixedClock)
	session.Edit(addForm("2B", slab.StatusInStock, "5"))

	out, err := session.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if out.Action != ActionNeedsConfirmation {
		t.Fatalf("Action = %q, want %q", out.Action, ActionNeedsConfirmation)
	}
	if out.Duplicate == nil || out.Duplicate.Quantity != 10 {
		t.Errorf("Duplicate = %+v, want quantity 10", out.Duplicate)
	}
	if got := session.State(); got != StateConfirming {
		t.Errorf("State() = %q, want %q", got, StateConfirming)
	}

	out, err = session.ConfirmAdd(context.Background())
	if err != nil {
		t.Fatalf("ConfirmAdd() error = %v", err)
	}
	if out.Action != ActionAdded || out.Record == nil || out.Record.Quantity != 15 {
		t.Errorf("ConfirmAdd() = %+v, want added with quantity 15", out)
	}
	if n := store.Len(); n != 1 {
		t.Errorf("store has %d records, want 1", n)
	}

	if _, err := session.ConfirmAdd(context.Background()); !errors.Is(err, ErrNotConfirming) {
		t.Errorf("second ConfirmAdd() error = %v, want ErrNotConfirming", err)
	}
}

func TestAddSession_SubtractBeyondStockRejected(t *testing.T) {
	store := newFaultyStore()
	existing := seed(t, store, slab.Record{SlabID: "2B", Quantity: 2})

	session := NewAddSession(store, fixedClock)
	session.Edit(addForm("2B", slab.StatusSent, "5"))

	_, err := session.Submit(context.Background())
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Submit() error = %v, want ValidationError", err)
	}
	if ve.Field != "quantity" {
		t.Errorf("Field = %q, want quantity", ve.Field)
	}

	rec, _, err := store.Store.FindOne(context.Background(), slab.Filter{ID: existing.ID})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Quantity != 2 {
		t.Errorf("quantity = %d, want 2", rec.Quantity)
	}
}

func TestAddSession_ConcurrentSubtractRejected(t *testing.T) {
	store := newFaultyStore()
	seed(t, store, slab.Record{SlabID: "2B", Quantity: 10})
	store.adjustErr = fmt.Errorf("guard: %w", slab.ErrInsufficientQuantity)

	session := NewAddSession(store, fixedClock)
	session.Edit(addForm("2B", slab.StatusSent, "3"))

	_, err := session.Submit(context.Background())
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Submit() error = %v, want ValidationError", err)
	}
	if got := session.State(); got != StateDuplicateFound {
		t.Errorf("State() = %q, want %q", got, StateDuplicateFound)
	}
}

func TestAddSession_CreatesWhenClear(t *testing.T) {
	store := newFaultyStore()
	seed(t, store, slab.Record{SlabID: "OTHER", Quantity: 1})

	session := NewAddSession(store, fixedClock)
	session.Edit(AddForm{
		SlabID:        "  9Z  ",
		Family:        "Statuario",
		Status:        slab.StatusNotInYet,
		BoxSharedLink: "yes",
	})

	out, err := session.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if out.Action != ActionCreated || out.Record == nil {
		t.Fatalf("Submit() = %+v, want created", out)
	}

	rec := *out.Record
	if rec.SlabID != "9Z" {
		t.Errorf("SlabID = %q, want trimmed 9Z", rec.SlabID)
	}
	if rec.Quantity != 1 {
		t.Errorf("Quantity = %d, want default 1", rec.Quantity)
	}
	if rec.Category != slab.CategoryCurrent {
		t.Errorf("Category = %q, want current", rec.Category)
	}
	if rec.Status != slab.StatusNotInYet {
		t.Errorf("Status = %q, want not_in_yet", rec.Status)
	}
	if slab.Deref(rec.ReceivedDate) != "2025-06-10" {
		t.Errorf("ReceivedDate = %q, want today", slab.Deref(rec.ReceivedDate))
	}
	if rec.BoxSharedLink != nil {
		t.Errorf("BoxSharedLink = %q, want nil", *rec.BoxSharedLink)
	}
}

func TestAddSession_StaleLookupIgnored(t *testing.T) {
	store := newFaultyStore()
	seed(t, store, slab.Record{SlabID: "OLD", Quantity: 3})

	session := NewAddSession(store, fixedClock)
	session.Edit(addForm("OLD", slab.StatusInStock, "1"))

	// The user keeps typing while the lookup for OLD is in flight.
	store.findHook = func(slabID string) {
		if slabID == "OLD" {
			session.Edit(addForm("NEW", slab.StatusInStock, "1"))
		}
	}

	if err := session.Check(context.Background()); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got := session.State(); got != StateEditing {
		t.Errorf("State() after stale lookup = %q, want %q", got, StateEditing)
	}
	if d := session.Duplicate(); d != nil {
		t.Errorf("Duplicate() = %+v, want nil after stale lookup", d)
	}

	if err := session.Check(context.Background()); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got := session.State(); got != StateClear {
		t.Errorf("State() = %q, want %q", got, StateClear)
	}
}

func TestAddSession_EditKeepsResultForSameSlabID(t *testing.T) {
	store := newFaultyStore()
	seed(t, store, slab.Record{SlabID: "2B", Quantity: 10})

	session := NewAddSession(store, fixedClock)
	gen := session.Edit(addForm("2B", slab.StatusInStock, "1"))
	if err := session.Check(context.Background()); err != nil {
		t.Fatal(err)
	}

	if next := session.Edit(addForm("2B", slab.StatusSent, "4")); next != gen {
		t.Errorf("Edit() generation = %d, want unchanged %d", next, gen)
	}
	if got := session.State(); got != StateDuplicateFound {
		t.Errorf("State() = %q, want %q", got, StateDuplicateFound)
	}
	if calls := store.FindCalls(); calls != 1 {
		t.Errorf("FindOne called %d times, want 1", calls)
	}
}

func TestAddSession_CreateNewUnsupported(t *testing.T) {
	store := newFaultyStore()
	seed(t, store, slab.Record{SlabID: "2B", Quantity: 10})

	session := NewAddSession(store, fixedClock)
	session.Edit(addForm("2B", slab.StatusInStock, "5"))
	if _, err := session.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := session.Resolve(context.Background(), ResolutionCreateNew); !errors.Is(err, ErrUnsupportedResolution) {
		t.Errorf("Resolve(create_new) error = %v, want ErrUnsupportedResolution", err)
	}
	if n := store.Len(); n != 1 {
		t.Errorf("store has %d records, want 1", n)
	}
	if got := session.State(); got != StateConfirming {
		t.Errorf("State() = %q, want still %q", got, StateConfirming)
	}

	var ve ValidationError
	if _, err := session.Resolve(context.Background(), "merge"); !errors.As(err, &ve) {
		t.Errorf("Resolve(merge) error = %v, want ValidationError", err)
	}
}

func TestAddSession_ConfirmWithoutDuplicate(t *testing.T) {
	session := NewAddSession(newFaultyStore(), fixedClock)
	session.Edit(addForm("2B", slab.StatusInStock, "1"))

	if _, err := session.ConfirmAdd(context.Background()); !errors.Is(err, ErrNotConfirming) {
		t.Errorf("ConfirmAdd() error = %v, want ErrNotConfirming", err)
	}
	if _, err := session.ConfirmCreateNew(context.Background()); !errors.Is(err, ErrNotConfirming) {
		t.Errorf("ConfirmCreateNew() error = %v, want ErrNotConfirming", err)
	}
}

func TestAddSession_Validation(t *testing.T) {
	tests := []struct {
		name      string
		form      AddForm
		wantField string
	}{
		{"missing slab id", AddForm{Family: "Calacatta", Status: slab.StatusInStock}, "slab_id"},
		{"missing family", AddForm{SlabID: "1A", Status: slab.StatusInStock}, "family"},
		{"import-only status", AddForm{SlabID: "1A", Family: "Calacatta", Status: slab.StatusSold}, "status"},
		{"empty status", AddForm{SlabID: "1A", Family: "Calacatta"}, "status"},
		{"outbound category", AddForm{SlabID: "1A", Family: "Calacatta", Status: slab.StatusSent, Category: slab.CategoryOutbound}, "category"},
		{"fractional quantity", AddForm{SlabID: "1A", Family: "Calacatta", Status: slab.StatusInStock, Quantity: "1.5"}, "quantity"},
		{"zero quantity", AddForm{SlabID: "1A", Family: "Calacatta", Status: slab.StatusInStock, Quantity: "0"}, "quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFaultyStore()
			session := NewAddSession(store, fixedClock)
			session.Edit(tt.form)

			_, err := session.Submit(context.Background())
			var ve ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Submit() error = %v, want ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantField)
			}
			if store.Len() != 0 {
				t.Errorf("invalid form wrote %d records", store.Len())
			}
		})
	}
}

func TestAddSession_StoreFailure(t *testing.T) {
	store := newFaultyStore()
	store.createErr["1A"] = errors.New("disk full")

	session := NewAddSession(store, fixedClock)
	session.Edit(addForm("1A", slab.StatusInStock, "1"))

	if _, err := session.Submit(context.Background()); err == nil {
		t.Fatal("Submit() expected error")
	}
	if got := session.State(); got != StateFailed {
		t.Errorf("State() = %q, want %q", got, StateFailed)
	}
	if session.Err() == nil {
		t.Error("Err() = nil, want the create failure")
	}
}

func TestFindDuplicate_IgnoresMissing(t *testing.T) {
	store := newFaultyStore()
	dup, err := FindDuplicate(context.Background(), store, "NOPE")
	if err != nil || dup != nil {
		t.Errorf("FindDuplicate() = %+v, %v; want nil, nil", dup, err)
	}
}
